package engine

import (
	"context"
	"fmt"

	"github.com/roach88/hangup/internal/diff"
	"github.com/roach88/hangup/internal/ir"
	"github.com/roach88/hangup/internal/store"
)

// SubmitDelta applies updates and then removals to the shared state as one
// write, and fires hangout.data.stateChanged locally.
//
// Invalid input is rejected as INVALID_ARGUMENT before anything is written.
// The local snapshot absorbs this delta so the next tick reports only
// changes made by other contexts.
func (e *Engine) SubmitDelta(ctx context.Context, updates ir.SharedState, removals []string) error {
	if _, err := e.requireLocal("submitDelta"); err != nil {
		return err
	}
	if err := ir.ValidateDelta(updates, removals); err != nil {
		return err
	}

	stored, added, removed, err := e.writeDelta(ctx, updates, removals)
	if err != nil {
		return err
	}

	e.logger.Debug("delta submitted",
		"participant_id", e.ParticipantID(),
		"updated", len(added),
		"removed", len(removed),
	)

	return e.bus.Trigger(TopicStateChanged, StateChangedEvent{
		Added:   added,
		Removed: removed,
		State:   stored.Clone(),
	})
}

// writeDelta stores the delta and folds it into the snapshot.
func (e *Engine) writeDelta(ctx context.Context, updates ir.SharedState, removals []string) (ir.SharedState, []ir.StateEntry, []string, error) {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()

	var stored ir.SharedState
	err := e.shared.Update(ctx, keySharedState, func(current string, ok bool) (string, error) {
		state := ir.SharedState{}
		if ok {
			parsed, err := ir.ParseSharedState([]byte(current))
			if err != nil {
				return "", err
			}
			state = parsed
		}
		for k, v := range updates {
			state[k] = v
		}
		for _, k := range removals {
			delete(state, k)
		}
		stored = state
		return store.EncodeJSON(state)
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("submit delta: %w", err)
	}

	now := e.clock.NowMillis()
	added := make([]ir.StateEntry, 0, len(updates))
	for _, k := range updates.SortedKeys() {
		added = append(added, ir.StateEntry{Key: k, Value: updates[k], Timestamp: now})
	}
	removed := append([]string{}, removals...)

	e.mu.Lock()
	e.state = diff.Apply(e.state, diff.StateDelta{Changed: added, Removed: removed})
	e.mu.Unlock()
	return stored, added, removed, nil
}

// SetValue sets one key in the shared state.
func (e *Engine) SetValue(ctx context.Context, key, value string) error {
	return e.SubmitDelta(ctx, ir.SharedState{key: value}, nil)
}

// ClearValue removes one key from the shared state.
func (e *Engine) ClearValue(ctx context.Context, key string) error {
	return e.SubmitDelta(ctx, nil, []string{key})
}

// State returns the shared state as currently stored.
func (e *Engine) State(ctx context.Context) (ir.SharedState, error) {
	return e.readSharedState(ctx)
}

// Value returns the stored value of key.
func (e *Engine) Value(ctx context.Context, key string) (string, bool, error) {
	state, err := e.readSharedState(ctx)
	if err != nil {
		return "", false, err
	}
	v, ok := state[key]
	return v, ok, nil
}

// Keys returns the stored shared state keys, sorted.
func (e *Engine) Keys(ctx context.Context) ([]string, error) {
	state, err := e.readSharedState(ctx)
	if err != nil {
		return nil, err
	}
	return state.SortedKeys(), nil
}

// readSharedState loads the shared state. An absent record is empty.
func (e *Engine) readSharedState(ctx context.Context) (ir.SharedState, error) {
	raw, ok, err := e.shared.Get(ctx, keySharedState)
	if err != nil {
		return nil, fmt.Errorf("read shared state: %w", err)
	}
	if !ok {
		return ir.SharedState{}, nil
	}
	return ir.ParseSharedState([]byte(raw))
}

// checkState is tick step 2.
func (e *Engine) checkState(ctx context.Context) error {
	delta, current, err := e.refreshState(ctx)
	if err != nil || delta.Empty() {
		return err
	}

	e.logger.Debug("shared state changed",
		"participant_id", e.ParticipantID(),
		"changed", len(delta.Changed),
		"removed", len(delta.Removed),
	)

	return e.bus.Trigger(TopicStateChanged, StateChangedEvent{
		Added:   delta.Changed,
		Removed: delta.Removed,
		State:   current.Clone(),
	})
}

// refreshState reads the stored state and swaps it into the snapshot,
// returning what changed.
func (e *Engine) refreshState(ctx context.Context) (diff.StateDelta, ir.SharedState, error) {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()

	current, err := e.readSharedState(ctx)
	if err != nil {
		return diff.StateDelta{}, nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	delta, err := diff.Diff(e.state, current)
	if err != nil || delta.Empty() {
		return delta, current, err
	}
	e.state = current
	return delta, current, nil
}
