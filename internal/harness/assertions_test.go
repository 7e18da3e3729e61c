package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hangup/internal/store"
)

func sampleResult() *Result {
	r := NewResult()
	r.AddStepTrace("a", ActionTick, nil, "")
	r.AddEventTrace("a", "t.one", map[string]any{"n": int64(1), "ids": []any{"x"}})
	r.AddEventTrace("b", "t.two", map[string]any{})
	r.AddEventTrace("a", "t.two", map[string]any{"n": int64(2)})
	r.AddEventTrace("a", "t.one", map[string]any{"n": int64(3)})
	return r
}

func TestAssertTraceContains(t *testing.T) {
	r := sampleResult()

	assert.NoError(t, assertTraceContains(r, Assertion{Context: "a", Topic: "t.one"}))
	assert.NoError(t, assertTraceContains(r, Assertion{Context: "a", Topic: "t.one", Payload: map[string]any{"n": 3}}))
	assert.NoError(t, assertTraceContains(r, Assertion{Context: "a", Topic: "t.one", Payload: map[string]any{"ids": []any{"x"}}}))

	err := assertTraceContains(r, Assertion{Context: "b", Topic: "t.one"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found in trace")

	assert.Error(t, assertTraceContains(r, Assertion{Context: "a", Topic: "t.one", Payload: map[string]any{"n": 2}}))
	assert.Error(t, assertTraceContains(r, Assertion{Context: "a", Topic: "t.one", Payload: map[string]any{"missing": 1}}))
}

func TestAssertTraceOrder(t *testing.T) {
	r := sampleResult()

	assert.NoError(t, assertTraceOrder(r, Assertion{Context: "a", Topics: []string{"t.one", "t.two", "t.one"}}))
	assert.NoError(t, assertTraceOrder(r, Assertion{Context: "a", Topics: []string{"t.two", "t.one"}}))

	err := assertTraceOrder(r, Assertion{Context: "a", Topics: []string{"t.two", "t.two"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "matched 1 of 2")

	assert.Error(t, assertTraceOrder(r, Assertion{Context: "b", Topics: []string{"t.one"}}))
}

func TestAssertTraceCount(t *testing.T) {
	r := sampleResult()

	assert.NoError(t, assertTraceCount(r, Assertion{Context: "a", Topic: "t.one", Count: 2}))
	assert.NoError(t, assertTraceCount(r, Assertion{Context: "b", Topic: "t.one", Count: 0}))

	err := assertTraceCount(r, Assertion{Context: "a", Topic: "t.two", Count: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 occurrences")
}

func TestAssertStoreContents(t *testing.T) {
	ctx := context.Background()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	defer st.Close()

	// Absent records read as empty.
	assert.NoError(t, assertFinalState(ctx, st, Assertion{State: map[string]string{}}))
	assert.NoError(t, assertParticipants(ctx, st, Assertion{IDs: []string{}}))

	require.NoError(t, st.Shared().Set(ctx, sharedStateKey, `{"a":"1"}`))
	require.NoError(t, st.Shared().Set(ctx, participantsKey, `[{"id":"x"},{"id":"y"}]`))

	assert.NoError(t, assertFinalState(ctx, st, Assertion{State: map[string]string{"a": "1"}}))
	assert.Error(t, assertFinalState(ctx, st, Assertion{State: map[string]string{}}))
	assert.NoError(t, assertParticipants(ctx, st, Assertion{IDs: []string{"x", "y"}}))
	assert.Error(t, assertParticipants(ctx, st, Assertion{IDs: []string{"y", "x"}}))

	require.NoError(t, st.Shared().Set(ctx, sharedStateKey, `[1]`))
	err = assertFinalState(ctx, st, Assertion{State: map[string]string{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "well-formed")
}

func TestEvaluateAssertions(t *testing.T) {
	r := sampleResult()

	errs := EvaluateAssertions(context.Background(), r, []Assertion{
		{Type: AssertTraceCount, Context: "a", Topic: "t.one", Count: 2},
		{Type: AssertTraceCount, Context: "a", Topic: "t.one", Count: 5},
		{Type: AssertFinalState, State: map[string]string{}},
		{Type: "vibes"},
	}, nil)

	require.Len(t, errs, 3)
	assert.Contains(t, errs[0], "trace_count")
	assert.Contains(t, errs[1], "requires a store")
	assert.Contains(t, errs[2], "unknown assertion type")
}

func TestValuesEqual(t *testing.T) {
	assert.True(t, valuesEqual(int64(5), 5))
	assert.True(t, valuesEqual([]any{"a"}, []string{"a"}))
	assert.True(t, valuesEqual(map[string]any{"k": "v"}, map[string]any{"k": "v"}))
	assert.True(t, valuesEqual(map[string]any{"n": int64(1)}, map[string]any{"n": 1}))
	assert.False(t, valuesEqual("1", 1))
	assert.False(t, valuesEqual(true, false))
}
