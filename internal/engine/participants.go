package engine

import (
	"context"
	"fmt"

	"github.com/roach88/hangup/internal/diff"
	"github.com/roach88/hangup/internal/ir"
	"github.com/roach88/hangup/internal/store"
)

// Participants returns the shared participant list as currently stored.
func (e *Engine) Participants(ctx context.Context) ([]ir.Participant, error) {
	return e.readParticipants(ctx)
}

// ParticipantByID returns the stored participant with id, or nil if there
// is none.
func (e *Engine) ParticipantByID(ctx context.Context, id string) (*ir.Participant, error) {
	list, err := e.readParticipants(ctx)
	if err != nil {
		return nil, err
	}
	p, ok := ir.FindParticipant(list, id)
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// LocalParticipant returns this context's participant.
func (e *Engine) LocalParticipant() (ir.Participant, error) {
	return e.requireLocal("localParticipant")
}

// ParticipantID returns this context's participant id, or "" before
// Bootstrap or Resume.
func (e *Engine) ParticipantID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.local == nil {
		return ""
	}
	return e.local.ID
}

// readParticipants loads the shared participant list. An absent record is
// empty.
func (e *Engine) readParticipants(ctx context.Context) ([]ir.Participant, error) {
	raw, ok, err := e.shared.Get(ctx, keyParticipants)
	if err != nil {
		return nil, fmt.Errorf("read participants: %w", err)
	}
	if !ok {
		return []ir.Participant{}, nil
	}
	return ir.ParseParticipants([]byte(raw))
}

// join appends p to the shared list unless its id is already there, and
// returns the resulting list.
func (e *Engine) join(ctx context.Context, p ir.Participant) ([]ir.Participant, error) {
	var result []ir.Participant
	err := e.shared.Update(ctx, keyParticipants, func(current string, ok bool) (string, error) {
		list := []ir.Participant{}
		if ok {
			parsed, err := ir.ParseParticipants([]byte(current))
			if err != nil {
				return "", err
			}
			list = parsed
		}
		if _, found := ir.FindParticipant(list, p.ID); found {
			result = list
			return current, nil
		}
		list = append(list, p)
		result = list
		return store.EncodeJSON(list)
	})
	if err != nil {
		return nil, fmt.Errorf("join: %w", err)
	}
	return result, nil
}

// leave removes every entry with id from the shared list.
func (e *Engine) leave(ctx context.Context, id string) error {
	err := e.shared.Update(ctx, keyParticipants, func(current string, ok bool) (string, error) {
		if !ok {
			return "[]", nil
		}
		list, err := ir.ParseParticipants([]byte(current))
		if err != nil {
			return "", err
		}
		kept := make([]ir.Participant, 0, len(list))
		for _, p := range list {
			if p.ID != id {
				kept = append(kept, p)
			}
		}
		return store.EncodeJSON(kept)
	})
	if err != nil {
		return fmt.Errorf("leave: %w", err)
	}
	return nil
}

// checkParticipants is tick step 4. Events are published before the
// snapshot moves, in the order added, changed, removed.
func (e *Engine) checkParticipants(ctx context.Context) error {
	current, err := e.readParticipants(ctx)
	if err != nil {
		return err
	}

	e.mu.Lock()
	previous := e.participants
	e.mu.Unlock()

	r, err := diff.Reconcile(previous, current)
	if err != nil {
		return err
	}
	if r.Unchanged() {
		return nil
	}

	e.logger.Debug("participants changed",
		"participant_id", e.ParticipantID(),
		"added", len(r.Added),
		"removed", len(r.Removed),
		"changed_only", r.ChangedOnly,
	)

	if len(r.Added) > 0 {
		if err := e.bus.Trigger(TopicParticipantsAdded, ParticipantsAddedEvent{AddedParticipants: r.Added}); err != nil {
			return err
		}
	}
	if err := e.bus.Trigger(TopicParticipantsChanged, ParticipantsChangedEvent{Participants: ir.CloneParticipants(current)}); err != nil {
		return err
	}
	if len(r.Removed) > 0 {
		if err := e.bus.Trigger(TopicParticipantsRemoved, ParticipantsRemovedEvent{RemovedParticipants: r.Removed}); err != nil {
			return err
		}
	}

	e.mu.Lock()
	e.participants = current
	e.mu.Unlock()
	return nil
}
