package harness

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/roach88/hangup/internal/ir"
	"github.com/roach88/hangup/internal/store"
)

// Shared partition keys read by store assertions.
const (
	sharedStateKey  = "shared_state"
	participantsKey = "participants"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string  // Assertion type for categorization
	Expected string  // Human-readable expected outcome
	Actual   string  // Human-readable actual outcome
	Trace    []Event // Events of the context concerned, for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nEvents:\n")
		for i, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %v\n", i+1, event.Topic, event.Payload)
		}
	}

	return buf.String()
}

// assertTraceContains checks that context saw an event on the topic whose
// payload contains the expected fields (subset match).
func assertTraceContains(result *Result, assertion Assertion) error {
	events := result.Events(assertion.Context)
	for _, event := range events {
		if event.Topic == assertion.Topic && matchPayload(event.Payload, assertion.Payload) {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("%s to see %s with %v", assertion.Context, assertion.Topic, assertion.Payload),
		Actual:   "not found in trace",
		Trace:    events,
	}
}

// assertTraceOrder checks that context saw the topics in the given relative
// order. Other events may come in between.
func assertTraceOrder(result *Result, assertion Assertion) error {
	events := result.Events(assertion.Context)

	next := 0
	for _, event := range events {
		if next < len(assertion.Topics) && event.Topic == assertion.Topics[next] {
			next++
		}
	}
	if next == len(assertion.Topics) {
		return nil
	}

	return &AssertionError{
		Type:     AssertTraceOrder,
		Expected: fmt.Sprintf("%s to see topics in order: %v", assertion.Context, assertion.Topics),
		Actual:   fmt.Sprintf("matched %d of %d, stuck at %s", next, len(assertion.Topics), assertion.Topics[next]),
		Trace:    events,
	}
}

// assertTraceCount checks that context saw exactly Count events on the topic.
func assertTraceCount(result *Result, assertion Assertion) error {
	events := result.Events(assertion.Context)
	count := 0
	for _, event := range events {
		if event.Topic == assertion.Topic {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s for %s", assertion.Count, assertion.Topic, assertion.Context),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    events,
		}
	}
	return nil
}

// assertFinalState compares the stored shared state with the expected
// mapping. The comparison is exact.
func assertFinalState(ctx context.Context, st *store.Store, assertion Assertion) error {
	raw, ok, err := st.Shared().Get(ctx, sharedStateKey)
	if err != nil {
		return fmt.Errorf("final_state: %w", err)
	}
	actual := ir.SharedState{}
	if ok {
		actual, err = ir.ParseSharedState([]byte(raw))
		if err != nil {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: "a well-formed shared state",
				Actual:   err.Error(),
			}
		}
	}

	expected := ir.SharedState(assertion.State)
	if !reflect.DeepEqual(map[string]string(expected), map[string]string(actual)) {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: formatState(expected),
			Actual:   formatState(actual),
		}
	}
	return nil
}

// assertParticipants compares the stored participant ids, in list order.
func assertParticipants(ctx context.Context, st *store.Store, assertion Assertion) error {
	raw, ok, err := st.Shared().Get(ctx, participantsKey)
	if err != nil {
		return fmt.Errorf("participants: %w", err)
	}
	var list []ir.Participant
	if ok {
		list, err = ir.ParseParticipants([]byte(raw))
		if err != nil {
			return &AssertionError{
				Type:     AssertParticipants,
				Expected: "a well-formed participant list",
				Actual:   err.Error(),
			}
		}
	}

	actual := make([]string, 0, len(list))
	for _, p := range list {
		actual = append(actual, p.ID)
	}
	if !reflect.DeepEqual(actual, append([]string{}, assertion.IDs...)) {
		return &AssertionError{
			Type:     AssertParticipants,
			Expected: fmt.Sprintf("%v", assertion.IDs),
			Actual:   fmt.Sprintf("%v", actual),
		}
	}
	return nil
}

// formatState renders a state with sorted keys.
func formatState(s ir.SharedState) string {
	parts := make([]string, 0, len(s))
	for _, k := range s.SortedKeys() {
		parts = append(parts, fmt.Sprintf("%s=%s", k, s[k]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// matchPayload checks if the actual payload contains all expected fields
// (subset match). Extra keys in actual are ignored.
func matchPayload(actual any, expected map[string]any) bool {
	if len(expected) == 0 {
		return true
	}

	actualMap, ok := actual.(map[string]any)
	if !ok {
		return false
	}

	for key, expectedVal := range expected {
		actualVal, exists := actualMap[key]
		if !exists {
			return false
		}
		if !valuesEqual(actualVal, expectedVal) {
			return false
		}
	}
	return true
}

// valuesEqual compares two JSON-shaped values. Integers compare by value
// regardless of their Go type, since YAML decodes them as int while traces
// carry int64.
func valuesEqual(actual, expected any) bool {
	return reflect.DeepEqual(normalize(actual), normalize(expected))
}

func normalize(v any) any {
	switch val := v.(type) {
	case int:
		return int64(val)
	case int32:
		return int64(val)
	case uint64:
		return int64(val)
	case float64:
		if val == float64(int64(val)) {
			return int64(val)
		}
		return val
	case []string:
		out := make([]any, len(val))
		for i, s := range val {
			out[i] = s
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = normalize(elem)
		}
		return out
	case map[string]string:
		out := make(map[string]any, len(val))
		for k, s := range val {
			out[k] = s
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = normalize(elem)
		}
		return out
	default:
		return v
	}
}

// EvaluateAssertions evaluates all assertions against the result and the
// store the scenario ran on.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(ctx context.Context, result *Result, assertions []Assertion, st *store.Store) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result, assertion)
		case AssertFinalState, AssertParticipants:
			if st == nil {
				err = fmt.Errorf("assertion[%d]: %s requires a store", i, assertion.Type)
			} else if assertion.Type == AssertFinalState {
				err = assertFinalState(ctx, st, assertion)
			} else {
				err = assertParticipants(ctx, st, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
