package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithGolden_StateSync(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/state_sync.yaml")
	require.NoError(t, err)

	result, err := RunWithGolden(t, s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestMarshalTrace_Deterministic(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/notices.yaml")
	require.NoError(t, err)

	first, err := Run(s)
	require.NoError(t, err)
	second, err := Run(s)
	require.NoError(t, err)

	a, err := MarshalTrace(s.Name, first)
	require.NoError(t, err)
	b, err := MarshalTrace(s.Name, second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestMarshalTrace_OmitsEmptyFields(t *testing.T) {
	r := NewResult()
	r.AddStepTrace("", ActionAdvance, map[string]any{"ms": int64(3)}, "")

	got, err := MarshalTrace("tiny", r)
	require.NoError(t, err)
	assert.Equal(t,
		`{"scenario_name":"tiny","trace":[{"action":"advance","args":{"ms":3},"seq":1,"type":"step"}]}`,
		string(got))
}
