package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/hangup/internal/bus"
	"github.com/roach88/hangup/internal/ir"
	"github.com/roach88/hangup/internal/store"
)

// Shared partition keys.
const (
	keySharedState    = "shared_state"
	keyParticipants   = "participants"
	keySharedMessages = "shared_messages"
	keyHostUIEvents   = "host_ui_events"
)

// Session partition keys.
const (
	keyParticipant   = "participant"
	keyMessageCursor = "message_cursor"
	keyHostUICursor  = "host_ui_cursor"
)

// Engine is one context's session: identity, snapshots, cursors and bus.
type Engine struct {
	store      *store.Store
	shared     *store.Partition
	session    *store.Partition
	sessionKey string
	bus        *bus.Bus

	clock            Clock
	ids              IDGenerator
	logger           *slog.Logger
	debug            bool
	messageLogLimit  int
	clearDataOnClose bool
	noticeTimeout    time.Duration
	person           ir.Person

	// tickMu serializes ticks with lifecycle operations and notice expiry.
	tickMu sync.Mutex

	// stateMu orders local state writes with the tick's state comparison,
	// so the snapshot never falls behind a write this context made.
	stateMu sync.Mutex

	mu           sync.Mutex
	local        *ir.Participant
	state        ir.SharedState
	participants []ir.Participant
	startTime    int64
	apiReady     bool
	hasNotice    bool
	appVisible   bool
	noticeTimer  *time.Timer
	noticeGen    uint64

	// Loop scheduling, guarded by mu.
	loopCtx  context.Context
	interval time.Duration
	timer    *time.Timer
	gen      uint64
	running  bool
	halted   bool
	haltErr  error
	haltCh   chan struct{}
}

// New creates an idle engine for the context identified by sessionKey.
//
// The session key names this context's private partition; reusing a key
// resumes the same identity and cursors.
func New(s *store.Store, sessionKey string, opts ...EngineOption) *Engine {
	e := &Engine{
		store:           s,
		shared:          s.Shared(),
		session:         s.Session(sessionKey),
		sessionKey:      sessionKey,
		clock:           NewSystemClock(),
		ids:             UUIDv7Generator{},
		logger:          slog.Default(),
		messageLogLimit: DefaultMessageLogLimit,
		noticeTimeout:   DefaultNoticeTimeout,
	}

	for _, opt := range opts {
		opt(e)
	}

	e.logger = e.logger.With("session", sessionKey)
	e.bus = bus.New(bus.WithDebug(e.debug), bus.WithLogger(e.logger))
	return e
}

// SessionKey returns the key of this context's private partition.
func (e *Engine) SessionKey() string {
	return e.sessionKey
}

// Bus returns the engine's event bus.
func (e *Engine) Bus() *bus.Bus {
	return e.bus
}

// On registers fn for topic. See bus.Bus.On.
//
// Handlers for changes observed by a tick run inside that tick, so they may
// mutate the session (SetValue, SendMessage, DisplayNotice) but must not call
// Tick, Resume or Close.
func (e *Engine) On(topic string, fn bus.HandlerFunc, owner any) *bus.Subscription {
	return e.bus.On(topic, fn, owner)
}

// Off removes subscriptions. See bus.Bus.Off.
func (e *Engine) Off(topic string, sub *bus.Subscription, owner any) {
	e.bus.Off(topic, sub, owner)
}

// Bootstrap establishes this context's identity and registers it in the
// shared participant list, then fires hangout.apiReady.
//
// The identity is loaded from the session partition, or created and stored
// there. Absent shared records are initialized empty. The message cursor is
// placed at the end of the log the first time, so messages sent before the
// context joined are never delivered.
//
// Calling Bootstrap again on a bootstrapped engine is a no-op.
func (e *Engine) Bootstrap(ctx context.Context) error {
	joined, err := e.bootstrap(ctx)
	if err != nil || !joined {
		return err
	}
	return e.bus.Trigger(TopicAPIReady, APIReadyEvent{IsAPIReady: true})
}

// bootstrap does the work of Bootstrap under the tick lock. It reports
// whether this call joined the session.
func (e *Engine) bootstrap(ctx context.Context) (bool, error) {
	e.tickMu.Lock()
	defer e.tickMu.Unlock()

	e.mu.Lock()
	ready := e.apiReady
	e.mu.Unlock()
	if ready {
		return false, nil
	}

	if err := e.ensureSharedRecords(ctx); err != nil {
		return false, err
	}

	state, err := e.readSharedState(ctx)
	if err != nil {
		return false, err
	}
	existing, err := e.readParticipants(ctx)
	if err != nil {
		return false, err
	}

	local, created, err := e.loadOrCreateLocal(ctx, len(existing))
	if err != nil {
		return false, err
	}

	if err := e.initMessageCursor(ctx); err != nil {
		return false, err
	}

	participants, err := e.join(ctx, local)
	if err != nil {
		return false, err
	}

	e.mu.Lock()
	e.local = &local
	e.state = state
	e.participants = participants
	e.startTime = e.clock.NowMillis()
	e.apiReady = true
	e.mu.Unlock()

	e.logger.Info("session bootstrapped",
		"participant_id", local.ID,
		"created", created,
		"participants", len(participants),
	)
	return true, nil
}

// Resume loads an existing identity from the session partition without
// joining the participant list or firing events. One-shot tools use it to
// act as a participant that bootstrapped earlier.
//
// Snapshots are taken from the store as it is now; a malformed record
// leaves the corresponding snapshot empty and is reported by the next Tick.
func (e *Engine) Resume(ctx context.Context) error {
	e.tickMu.Lock()
	defer e.tickMu.Unlock()

	var local ir.Participant
	ok, err := e.session.GetJSON(ctx, keyParticipant, &local)
	if err != nil {
		return fmt.Errorf("resume: %w", err)
	}
	if !ok || local.ID == "" {
		return ir.NewNotBootstrapped("resume")
	}

	state, err := e.readSharedState(ctx)
	if err != nil {
		if !ir.IsCorruptedState(err) {
			return err
		}
		e.logger.Warn("resuming with empty state snapshot", "error", err)
		state = ir.SharedState{}
	}
	participants, err := e.readParticipants(ctx)
	if err != nil {
		if !ir.IsCorruptedState(err) {
			return err
		}
		e.logger.Warn("resuming with empty participant snapshot", "error", err)
		participants = []ir.Participant{}
	}

	e.mu.Lock()
	e.local = &local
	e.state = state
	e.participants = participants
	e.startTime = e.clock.NowMillis()
	e.mu.Unlock()

	e.logger.Debug("session resumed", "participant_id", local.ID)
	return nil
}

// Close ends this context's participation: the loop stops, the local
// participant leaves the shared list and, with WithClearDataOnClose, the
// shared partition and this session's partition are purged.
//
// After Close the engine has no identity; Bootstrap may be called again.
func (e *Engine) Close(ctx context.Context) error {
	e.Stop()

	e.tickMu.Lock()
	defer e.tickMu.Unlock()

	e.mu.Lock()
	local := e.local
	e.stopNoticeTimerLocked()
	e.mu.Unlock()

	var errs []error
	if local != nil {
		if err := e.leave(ctx, local.ID); err != nil {
			errs = append(errs, err)
		}
	}
	if e.clearDataOnClose {
		if err := e.store.Purge(ctx, e.sessionKey); err != nil {
			errs = append(errs, err)
		}
	}

	e.mu.Lock()
	e.local = nil
	e.state = nil
	e.participants = nil
	e.apiReady = false
	e.hasNotice = false
	e.mu.Unlock()

	if local != nil {
		e.logger.Info("session closed",
			"participant_id", local.ID,
			"cleared", e.clearDataOnClose,
		)
	}
	return errors.Join(errs...)
}

// IsAPIReady reports whether Bootstrap has completed.
func (e *Engine) IsAPIReady() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.apiReady
}

// StartTime returns the clock reading taken when the session was
// bootstrapped or resumed. Host UI events at or before it are ignored.
func (e *Engine) StartTime() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.startTime
}

// Snapshot returns a copy of the locally cached shared state.
func (e *Engine) Snapshot() ir.SharedState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}

// requireLocal returns the local participant or NOT_BOOTSTRAPPED.
func (e *Engine) requireLocal(op string) (ir.Participant, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.local == nil {
		return ir.Participant{}, ir.NewNotBootstrapped(op)
	}
	return *e.local, nil
}

// ensureSharedRecords creates empty shared records that do not exist yet.
func (e *Engine) ensureSharedRecords(ctx context.Context) error {
	defaults := []struct{ key, value string }{
		{keySharedState, "{}"},
		{keyParticipants, "[]"},
		{keySharedMessages, "[]"},
		{keyHostUIEvents, "[]"},
	}
	for _, d := range defaults {
		if _, err := e.shared.SetDefault(ctx, d.key, d.value); err != nil {
			return fmt.Errorf("initialize %s: %w", d.key, err)
		}
	}
	return nil
}

// loadOrCreateLocal returns the session's participant, creating and storing
// one if the session has none. displayIndex is used for a new participant.
func (e *Engine) loadOrCreateLocal(ctx context.Context, displayIndex int) (ir.Participant, bool, error) {
	var p ir.Participant
	ok, err := e.session.GetJSON(ctx, keyParticipant, &p)
	if err != nil {
		e.logger.Warn("replacing unreadable local participant", "error", err)
		ok = false
	}
	if ok && p.ID != "" {
		return p, false, nil
	}

	id := e.ids.Generate()
	person := e.person
	if person.DisplayName == "" {
		person.DisplayName = "Participant " + id
	}
	if person.ID == "" {
		person.ID = id
	}
	p = ir.Participant{
		ID:            id,
		DisplayIndex:  displayIndex,
		HasMicrophone: true,
		HasCamera:     true,
		HasAppEnabled: true,
		Person:        person,
	}
	if err := e.session.SetJSON(ctx, keyParticipant, p); err != nil {
		return ir.Participant{}, false, fmt.Errorf("store local participant: %w", err)
	}
	return p, true, nil
}

// initMessageCursor places the message cursor at the end of the log unless
// the session already has one.
func (e *Engine) initMessageCursor(ctx context.Context) error {
	if _, ok, err := e.loadCursor(ctx, keyMessageCursor); err != nil || ok {
		return err
	}
	msgs, err := e.readMessages(ctx)
	if err != nil {
		if !ir.IsCorruptedState(err) {
			return err
		}
		e.logger.Warn("message log unreadable at bootstrap", "error", err)
		msgs = nil
	}
	return e.saveCursor(ctx, keyMessageCursor, cursorAtEnd(msgs, messageStamp))
}

// trimLog keeps the newest limit entries. limit <= 0 keeps everything.
func trimLog[T any](log []T, limit int) []T {
	if limit > 0 && len(log) > limit {
		return append([]T(nil), log[len(log)-limit:]...)
	}
	return log
}
