package engine

import (
	"log/slog"
	"time"

	"github.com/roach88/hangup/internal/ir"
)

// DefaultMessageLogLimit caps the shared message and host UI logs.
const DefaultMessageLogLimit = 500

// DefaultNoticeTimeout is how long a non-permanent notice stays up.
const DefaultNoticeTimeout = 5 * time.Second

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithClock sets the clock used for message, notice and delta timestamps.
func WithClock(c Clock) EngineOption {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithIDGenerator sets the generator used for a new participant's id.
func WithIDGenerator(g IDGenerator) EngineOption {
	return func(e *Engine) {
		e.ids = g
	}
}

// WithLogger sets the logger for the engine and its bus.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithDebug makes event handler failures propagate out of Tick and the
// mutation that triggered them instead of being logged.
func WithDebug(debug bool) EngineOption {
	return func(e *Engine) {
		e.debug = debug
	}
}

// WithMessageLogLimit caps the shared logs; oldest entries are trimmed on
// append. Zero or negative disables trimming.
//
// Default: 500 entries (DefaultMessageLogLimit)
func WithMessageLogLimit(n int) EngineOption {
	return func(e *Engine) {
		e.messageLogLimit = n
	}
}

// WithClearDataOnClose makes Close purge the shared partition and this
// session's partition after leaving.
func WithClearDataOnClose(clear bool) EngineOption {
	return func(e *Engine) {
		e.clearDataOnClose = clear
	}
}

// WithDisplayName sets the display name of a newly created participant.
// Ignored when an identity already exists in the session.
func WithDisplayName(name string) EngineOption {
	return func(e *Engine) {
		e.person.DisplayName = name
	}
}

// WithPerson sets the person attached to a newly created participant.
// Ignored when an identity already exists in the session.
func WithPerson(p ir.Person) EngineOption {
	return func(e *Engine) {
		e.person = p
	}
}

// WithNoticeTimeout sets how long a non-permanent notice stays up before it
// is dismissed locally. Zero or negative keeps notices up until dismissed.
//
// Default: 5s (DefaultNoticeTimeout)
func WithNoticeTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		e.noticeTimeout = d
	}
}
