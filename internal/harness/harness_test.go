package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hangup/internal/engine"
)

func TestRun_TestdataScenarios(t *testing.T) {
	for _, name := range []string{"state_sync", "notices", "invalid_input"} {
		t.Run(name, func(t *testing.T) {
			s, err := LoadScenario("testdata/scenarios/" + name + ".yaml")
			require.NoError(t, err)

			result, err := Run(s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Empty(t, result.Errors)
		})
	}
}

func TestRun_StepsPrecedeTheirEvents(t *testing.T) {
	s := &Scenario{
		Name:        "order",
		Description: "d",
		Contexts:    []ContextSpec{{Name: "a"}},
		Steps:       []Step{{Context: "a", Action: ActionBootstrap}},
	}

	result, err := Run(s)
	require.NoError(t, err)
	require.Len(t, result.Trace, 2)

	assert.Equal(t, TraceStep, result.Trace[0].Type)
	assert.Equal(t, ActionBootstrap, result.Trace[0].Action)
	assert.Equal(t, TraceEvent, result.Trace[1].Type)
	assert.Equal(t, engine.TopicAPIReady, result.Trace[1].Topic)
	assert.Equal(t, []int64{1, 2}, []int64{result.Trace[0].Seq, result.Trace[1].Seq})
}

func TestRun_UnexpectedStepErrorFails(t *testing.T) {
	s := &Scenario{
		Name:        "unbootstrapped",
		Description: "d",
		Contexts:    []ContextSpec{{Name: "a"}},
		Steps:       []Step{{Context: "a", Action: ActionSend, Body: "hi"}},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "unexpected error")
	assert.Equal(t, "NOT_BOOTSTRAPPED", result.Trace[0].Error)
}

func TestRun_ExpectedErrorThatDoesNotHappenFails(t *testing.T) {
	s := &Scenario{
		Name:        "no error",
		Description: "d",
		Contexts:    []ContextSpec{{Name: "a"}},
		Steps: []Step{
			{Context: "a", Action: ActionBootstrap},
			{Context: "a", Action: ActionSet, Key: "k", Value: "v", ExpectError: "INVALID_ARGUMENT"},
		},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "expected error INVALID_ARGUMENT")
}

func TestRun_FailedAssertionReported(t *testing.T) {
	s := &Scenario{
		Name:        "wrong state",
		Description: "d",
		Contexts:    []ContextSpec{{Name: "a"}},
		Steps: []Step{
			{Context: "a", Action: ActionBootstrap},
			{Context: "a", Action: ActionSet, Key: "k", Value: "v"},
		},
		Assertions: []Assertion{{Type: AssertFinalState, State: map[string]string{"k": "other"}}},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Assertion failed: final_state")
	assert.Contains(t, result.Errors[0], "{k=v}")
}

func TestRun_DisplayNameAndIsolation(t *testing.T) {
	s := &Scenario{
		Name:        "isolated",
		Description: "d",
		Contexts:    []ContextSpec{{Name: "a", ID: "7", DisplayName: "Ada"}},
		Steps:       []Step{{Context: "a", Action: ActionBootstrap}},
		Assertions:  []Assertion{{Type: AssertParticipants, IDs: []string{"7"}}},
	}

	for i := 0; i < 2; i++ {
		result, err := Run(s)
		require.NoError(t, err)
		assert.True(t, result.Pass, "run %d: %v", i, result.Errors)
	}
}

func TestRunContext_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := &Scenario{
		Name:        "cancelled",
		Description: "d",
		Contexts:    []ContextSpec{{Name: "a"}},
		Steps:       []Step{{Context: "a", Action: ActionBootstrap}},
	}
	_, err := RunContext(ctx, s)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSummarize_ParticipantsReducedToIDs(t *testing.T) {
	got := summarize(engine.ParticipantsRemovedEvent{})
	assert.Equal(t, map[string]any{"ids": []any{}}, got)
}
