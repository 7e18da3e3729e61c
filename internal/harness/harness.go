package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/hangup/internal/bus"
	"github.com/roach88/hangup/internal/engine"
	"github.com/roach88/hangup/internal/ir"
	"github.com/roach88/hangup/internal/store"
	"github.com/roach88/hangup/internal/testutil"
)

// topics lists every topic the harness records.
var topics = []string{
	engine.TopicAPIReady,
	engine.TopicStateChanged,
	engine.TopicMessageReceived,
	engine.TopicParticipantsAdded,
	engine.TopicParticipantsChanged,
	engine.TopicParticipantsRemoved,
	engine.TopicNoticeDisplayed,
	engine.TopicNoticeDismissed,
	engine.TopicAppVisible,
}

// Harness is the scenario execution engine.
// All contexts share one in-memory store and one deterministic clock, and
// the loop is driven only by explicit tick steps, so a scenario always
// produces the same trace.
type Harness struct {
	store    *store.Store
	clock    *testutil.DeterministicClock
	contexts map[string]*engine.Engine
	result   *Result
	logger   *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// A returned error means the scenario could not be executed at all;
// unexpected step outcomes and failed assertions are reported in the result.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	start := scenario.StartMS
	if start == 0 {
		start = DefaultStartMS
	}

	h := &Harness{
		store:    st,
		clock:    testutil.NewDeterministicClock(start),
		contexts: make(map[string]*engine.Engine, len(scenario.Contexts)),
		result:   NewResult(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in scenarios
	}

	for _, cs := range scenario.Contexts {
		h.contexts[cs.Name] = h.newContext(cs, scenario.Debug)
	}
	defer func() {
		for _, e := range h.contexts {
			e.Stop()
		}
	}()

	for i, step := range scenario.Steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		h.executeStep(ctx, i, step)
	}

	for _, msg := range EvaluateAssertions(ctx, h.result, scenario.Assertions, st) {
		h.result.AddError(msg)
	}
	return h.result, nil
}

func (h *Harness) newContext(cs ContextSpec, debug bool) *engine.Engine {
	opts := []engine.EngineOption{
		engine.WithClock(h.clock),
		engine.WithIDGenerator(testutil.ConstantIDGenerator(cs.ParticipantID())),
		engine.WithLogger(h.logger),
		engine.WithDebug(debug),
		engine.WithNoticeTimeout(0),
	}
	if cs.DisplayName != "" {
		opts = append(opts, engine.WithDisplayName(cs.DisplayName))
	}
	e := engine.New(h.store, cs.Name, opts...)

	name := cs.Name
	for _, topic := range topics {
		e.On(topic, func(ev bus.Event) error {
			h.result.AddEventTrace(name, ev.Topic, summarize(ev.Payload))
			return nil
		}, h)
	}
	return e
}

// executeStep performs one step and records it. The step is traced before
// it runs so the events it causes follow it in the trace.
func (h *Harness) executeStep(ctx context.Context, index int, step Step) {
	h.result.AddStepTrace(step.Context, step.Action, stepArgs(step), "")
	entry := len(h.result.Trace) - 1

	err := h.perform(ctx, step)

	code := ""
	if err != nil {
		code = string(ir.CodeOf(err))
		if code == "" {
			code = "ERROR"
		}
		h.result.Trace[entry].Error = code
	}

	if code != step.ExpectError {
		if step.ExpectError == "" {
			h.result.AddError(fmt.Sprintf("steps[%d] %s %s: unexpected error: %v", index, step.Context, step.Action, err))
		} else {
			h.result.AddError(fmt.Sprintf("steps[%d] %s %s: expected error %s, got %q", index, step.Context, step.Action, step.ExpectError, code))
		}
	}

	h.logger.Info("step completed",
		"step", index,
		"context", step.Context,
		"action", step.Action,
		"error", code,
	)
}

func (h *Harness) perform(ctx context.Context, step Step) error {
	if step.Action == ActionAdvance {
		h.clock.Advance(step.MS)
		return nil
	}

	e, ok := h.contexts[step.Context]
	if !ok {
		return fmt.Errorf("unknown context %q", step.Context)
	}

	switch step.Action {
	case ActionBootstrap:
		return e.Bootstrap(ctx)
	case ActionClose:
		return e.Close(ctx)
	case ActionTick:
		return e.Tick(ctx)
	case ActionSet:
		return e.SetValue(ctx, step.Key, step.Value)
	case ActionClear:
		return e.ClearValue(ctx, step.Key)
	case ActionSubmit:
		return e.SubmitDelta(ctx, ir.SharedState(step.Updates), step.Removals)
	case ActionSend:
		return e.SendMessage(ctx, step.Body)
	case ActionNotice:
		return e.DisplayNotice(ctx, step.Message, step.Permanent)
	case ActionDismiss:
		return e.DismissNotice(ctx)
	case ActionShowApp:
		return e.ShowApp()
	case ActionHideApp:
		return e.HideApp()
	default:
		return fmt.Errorf("unknown action %q", step.Action)
	}
}

// stepArgs returns the fields of step that matter for its action.
func stepArgs(step Step) map[string]any {
	switch step.Action {
	case ActionSet:
		return map[string]any{"key": step.Key, "value": step.Value}
	case ActionClear:
		return map[string]any{"key": step.Key}
	case ActionSubmit:
		args := map[string]any{}
		if len(step.Updates) > 0 {
			updates := make(map[string]any, len(step.Updates))
			for k, v := range step.Updates {
				updates[k] = v
			}
			args["updates"] = updates
		}
		if len(step.Removals) > 0 {
			args["removals"] = stringsToAny(step.Removals)
		}
		return args
	case ActionSend:
		return map[string]any{"body": step.Body}
	case ActionNotice:
		return map[string]any{"message": step.Message, "permanent": step.Permanent}
	case ActionAdvance:
		return map[string]any{"ms": step.MS}
	default:
		return nil
	}
}

// summarize reduces an event payload to JSON-shaped values. Participant
// events are reduced to participant ids and state deltas to key/value maps,
// which keeps golden traces readable.
func summarize(payload any) any {
	switch p := payload.(type) {
	case engine.StateChangedEvent:
		added := make(map[string]any, len(p.Added))
		for _, entry := range p.Added {
			added[entry.Key] = entry.Value
		}
		state := make(map[string]any, len(p.State))
		for k, v := range p.State {
			state[k] = v
		}
		return map[string]any{
			"added":   added,
			"removed": stringsToAny(p.Removed),
			"state":   state,
		}
	case engine.MessageReceivedEvent:
		return map[string]any{
			"sender_id": p.SenderID,
			"body":      p.Body,
			"timestamp": p.Timestamp,
		}
	case engine.ParticipantsAddedEvent:
		return map[string]any{"ids": participantIDs(p.AddedParticipants)}
	case engine.ParticipantsChangedEvent:
		return map[string]any{"ids": participantIDs(p.Participants)}
	case engine.ParticipantsRemovedEvent:
		return map[string]any{"ids": participantIDs(p.RemovedParticipants)}
	case engine.APIReadyEvent:
		return map[string]any{"is_api_ready": p.IsAPIReady}
	case engine.AppVisibleEvent:
		return map[string]any{"is_app_visible": p.IsAppVisible}
	case engine.NoticeEvent:
		return map[string]any{
			"message":   p.Message,
			"permanent": p.Permanent,
			"expired":   p.Expired,
		}
	default:
		generic, err := ir.ToGeneric(payload)
		if err != nil {
			return fmt.Sprintf("%v", payload)
		}
		return generic
	}
}

func participantIDs(list []ir.Participant) []any {
	out := make([]any, 0, len(list))
	for _, p := range list {
		out = append(out, p.ID)
	}
	return out
}

func stringsToAny(in []string) []any {
	out := make([]any, 0, len(in))
	for _, s := range in {
		out = append(out, s)
	}
	return out
}
