package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines a multi-context session run.
// Each context is an independent participant sharing one store; steps are
// executed in order against the named context.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// StartMS is the clock reading when the scenario begins.
	// Defaults to DefaultStartMS.
	StartMS int64 `yaml:"start_ms,omitempty"`

	// Debug makes handler failures surface from steps.
	Debug bool `yaml:"debug,omitempty"`

	// Contexts declares the participants taking part.
	Contexts []ContextSpec `yaml:"contexts"`

	// Steps drive the contexts.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final trace and store.
	Assertions []Assertion `yaml:"assertions"`
}

// DefaultStartMS is the clock reading used when a scenario sets none.
const DefaultStartMS = 1000

// ContextSpec declares one execution context.
type ContextSpec struct {
	// Name is the context's session key and how steps refer to it.
	Name string `yaml:"name"`

	// ID is the participant id the context gets when it first bootstraps.
	// Defaults to Name.
	ID string `yaml:"id,omitempty"`

	// DisplayName overrides the generated display name.
	DisplayName string `yaml:"display_name,omitempty"`
}

// ParticipantID returns the id this context joins with.
func (c ContextSpec) ParticipantID() string {
	if c.ID != "" {
		return c.ID
	}
	return c.Name
}

// Step is one action performed by one context, or by the clock.
type Step struct {
	// Context names the acting context. Not used by "advance".
	Context string `yaml:"context,omitempty"`

	// Action is one of the Action* constants.
	Action string `yaml:"action"`

	// Key and Value are used by "set" and "clear".
	Key   string `yaml:"key,omitempty"`
	Value string `yaml:"value,omitempty"`

	// Updates and Removals are used by "submit".
	Updates  map[string]string `yaml:"updates,omitempty"`
	Removals []string          `yaml:"removals,omitempty"`

	// Body is used by "send"; Message and Permanent by "notice".
	Body      string `yaml:"body,omitempty"`
	Message   string `yaml:"message,omitempty"`
	Permanent bool   `yaml:"permanent,omitempty"`

	// MS is used by "advance".
	MS int64 `yaml:"ms,omitempty"`

	// ExpectError is the error code the step must fail with, e.g.
	// INVALID_ARGUMENT. Empty means the step must succeed.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Step actions.
const (
	ActionBootstrap = "bootstrap"
	ActionClose     = "close"
	ActionTick      = "tick"
	ActionSet       = "set"
	ActionClear     = "clear"
	ActionSubmit    = "submit"
	ActionSend      = "send"
	ActionNotice    = "notice"
	ActionDismiss   = "dismiss"
	ActionShowApp   = "show_app"
	ActionHideApp   = "hide_app"
	ActionAdvance   = "advance"
)

var validActions = map[string]bool{
	ActionBootstrap: true,
	ActionClose:     true,
	ActionTick:      true,
	ActionSet:       true,
	ActionClear:     true,
	ActionSubmit:    true,
	ActionSend:      true,
	ActionNotice:    true,
	ActionDismiss:   true,
	ActionShowApp:   true,
	ActionHideApp:   true,
	ActionAdvance:   true,
}

// Assertion validates the trace or the final store contents.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": an event on Topic seen by Context whose payload
	//   contains Payload (subset match)
	// - "trace_order": Topics seen by Context in this relative order
	// - "trace_count": exactly Count events on Topic seen by Context
	// - "final_state": the shared state equals State exactly
	// - "participants": the shared participant list has exactly IDs, in order
	Type string `yaml:"type"`

	Context string         `yaml:"context,omitempty"`
	Topic   string         `yaml:"topic,omitempty"`
	Payload map[string]any `yaml:"payload,omitempty"`
	Topics  []string       `yaml:"topics,omitempty"`
	Count   int            `yaml:"count,omitempty"`

	State map[string]string `yaml:"state,omitempty"`
	IDs   []string          `yaml:"ids,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
	AssertParticipants  = "participants"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or fails validation.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Contexts) == 0 {
		return fmt.Errorf("contexts list is required and must be non-empty")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	names := make(map[string]bool, len(s.Contexts))
	for i, c := range s.Contexts {
		if c.Name == "" {
			return fmt.Errorf("contexts[%d]: name is required", i)
		}
		if names[c.Name] {
			return fmt.Errorf("contexts[%d]: duplicate context %q", i, c.Name)
		}
		names[c.Name] = true
	}

	for i, step := range s.Steps {
		if err := validateStep(i, step, names); err != nil {
			return err
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i], names); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, step Step, contexts map[string]bool) error {
	if step.Action == "" {
		return fmt.Errorf("steps[%d]: action is required", index)
	}
	if !validActions[step.Action] {
		return fmt.Errorf("steps[%d]: unknown action %q", index, step.Action)
	}

	if step.Action == ActionAdvance {
		if step.MS <= 0 {
			return fmt.Errorf("steps[%d]: ms must be positive for advance", index)
		}
		return nil
	}

	if step.Context == "" {
		return fmt.Errorf("steps[%d]: context is required for %s", index, step.Action)
	}
	if !contexts[step.Context] {
		return fmt.Errorf("steps[%d]: unknown context %q", index, step.Context)
	}

	switch step.Action {
	case ActionSet:
		if step.Key == "" {
			return fmt.Errorf("steps[%d]: key is required for set", index)
		}
	case ActionClear:
		if step.Key == "" {
			return fmt.Errorf("steps[%d]: key is required for clear", index)
		}
	case ActionSubmit:
		if len(step.Updates) == 0 && len(step.Removals) == 0 {
			return fmt.Errorf("steps[%d]: submit needs updates or removals", index)
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, contexts map[string]bool) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains, AssertTraceCount:
		if a.Topic == "" {
			return fmt.Errorf("assertions[%d]: topic is required for %s", index, a.Type)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertTraceOrder:
		if len(a.Topics) == 0 {
			return fmt.Errorf("assertions[%d]: topics list is required for trace_order", index)
		}
	case AssertFinalState:
		if a.State == nil {
			return fmt.Errorf("assertions[%d]: state is required for final_state (use {} for empty)", index)
		}
		return nil
	case AssertParticipants:
		if a.IDs == nil {
			return fmt.Errorf("assertions[%d]: ids is required for participants (use [] for empty)", index)
		}
		return nil
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	if a.Context == "" {
		return fmt.Errorf("assertions[%d]: context is required for %s", index, a.Type)
	}
	if !contexts[a.Context] {
		return fmt.Errorf("assertions[%d]: unknown context %q", index, a.Context)
	}
	return nil
}
