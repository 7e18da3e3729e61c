package harness

// Trace event types.
const (
	TraceStep  = "step"
	TraceEvent = "event"
)

// Event is one trace entry: either a step the scenario performed or an
// event a context's bus delivered.
type Event struct {
	Type    string `json:"type"` // "step" or "event"
	Seq     int64  `json:"seq"`
	Context string `json:"context,omitempty"`

	// Step fields.
	Action string         `json:"action,omitempty"`
	Args   map[string]any `json:"args,omitempty"`
	Error  string         `json:"error,omitempty"` // error code, if the step failed

	// Event fields.
	Topic   string `json:"topic,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success: every step behaved as expected and
	// every assertion held.
	Pass bool `json:"pass"`

	// Trace contains all steps and delivered events in order.
	Trace []Event `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []Event{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddStepTrace records a performed step.
func (r *Result) AddStepTrace(context, action string, args map[string]any, errCode string) {
	r.Trace = append(r.Trace, Event{
		Type:    TraceStep,
		Seq:     int64(len(r.Trace) + 1),
		Context: context,
		Action:  action,
		Args:    args,
		Error:   errCode,
	})
}

// AddEventTrace records an event delivered to a context.
func (r *Result) AddEventTrace(context, topic string, payload any) {
	r.Trace = append(r.Trace, Event{
		Type:    TraceEvent,
		Seq:     int64(len(r.Trace) + 1),
		Context: context,
		Topic:   topic,
		Payload: payload,
	})
}

// Events returns the delivered events seen by context, in order.
func (r *Result) Events(context string) []Event {
	var out []Event
	for _, ev := range r.Trace {
		if ev.Type == TraceEvent && ev.Context == context {
			out = append(out, ev)
		}
	}
	return out
}
