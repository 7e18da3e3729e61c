package engine

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/hangup/internal/bus"
	"github.com/roach88/hangup/internal/store"
	"github.com/roach88/hangup/internal/testutil"
)

const testStart = 1000

// setupTestStore opens a file-backed store shared by every context in a test.
func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// newContext creates an engine for sessionKey whose new participant id is
// id. It is not bootstrapped.
func newContext(t *testing.T, s *store.Store, clock Clock, sessionKey, id string, opts ...EngineOption) *Engine {
	t.Helper()
	base := []EngineOption{
		WithClock(clock),
		WithIDGenerator(NewFixedGenerator(id)),
		WithLogger(slog.New(slog.DiscardHandler)),
		WithNoticeTimeout(0),
	}
	e := New(s, sessionKey, append(base, opts...)...)
	t.Cleanup(e.Stop)
	return e
}

// joinContext creates and bootstraps an engine.
func joinContext(t *testing.T, s *store.Store, clock Clock, sessionKey, id string, opts ...EngineOption) *Engine {
	t.Helper()
	e := newContext(t, s, clock, sessionKey, id, opts...)
	require.NoError(t, e.Bootstrap(context.Background()))
	return e
}

// recorder captures events in arrival order.
type recorder struct {
	mu     sync.Mutex
	events []bus.Event
}

func record(e *Engine, topics ...string) *recorder {
	r := &recorder{}
	for _, topic := range topics {
		e.On(topic, func(ev bus.Event) error {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.events = append(r.events, ev)
			return nil
		}, r)
	}
	return r
}

func (r *recorder) topics() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Topic)
	}
	return out
}

func (r *recorder) payloads(topic string) []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []any
	for _, ev := range r.events {
		if ev.Topic == topic {
			out = append(out, ev.Payload)
		}
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

func newClock() *testutil.DeterministicClock {
	return testutil.NewDeterministicClock(testStart)
}
