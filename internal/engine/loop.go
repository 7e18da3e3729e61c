package engine

import (
	"context"
	"time"

	"github.com/roach88/hangup/internal/ir"
)

// Start schedules Tick every interval until Stop, Close, a halt, or ctx is
// cancelled. The first tick runs one interval from now.
//
// Start on a running loop restarts the schedule with the new interval. A
// halted loop is resumed.
func (e *Engine) Start(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return ir.NewInvalidArgument("start", "interval must be positive, got %s", interval)
	}
	if _, err := e.requireLocal("start"); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.gen++
	e.loopCtx = ctx
	e.interval = interval
	e.running = true
	e.halted = false
	e.haltErr = nil
	e.haltCh = make(chan struct{})
	e.scheduleLocked()

	e.logger.Info("synchronization started", "interval", interval)
	return nil
}

// Stop cancels the schedule. It does not interrupt a tick that is already
// running, but that tick will not reschedule. Stop is idempotent.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return
	}
	e.running = false
	e.gen++
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.logger.Info("synchronization stopped")
}

// Running reports whether ticks are scheduled.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running && !e.halted
}

// HaltC returns a channel closed when the loop started by the latest Start
// halts. It is nil before the first Start.
func (e *Engine) HaltC() <-chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.haltCh
}

// Halted returns the error that halted the loop, or nil.
func (e *Engine) Halted() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.haltErr
}

// Tick runs one synchronization pass.
//
// Any pending scheduled tick is cancelled first and, if the loop is running,
// the next one is scheduled after the pass, so at most one is ever pending.
// A CORRUPTED_STATE error halts the loop and is returned.
//
// Events are dispatched on the calling goroutine before Tick returns; a
// handler calling Tick deadlocks.
func (e *Engine) Tick(ctx context.Context) error {
	e.tickMu.Lock()
	defer e.tickMu.Unlock()
	return e.runTickLocked(ctx)
}

func (e *Engine) runTickLocked(ctx context.Context) error {
	e.mu.Lock()
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.mu.Unlock()

	err := e.tick(ctx)
	if ir.IsCorruptedState(err) {
		e.halt(err)
	}

	e.mu.Lock()
	if e.running && !e.halted {
		e.scheduleLocked()
	}
	e.mu.Unlock()
	return err
}

// scheduleLocked arms the timer for the next scheduled tick. e.mu must be held.
func (e *Engine) scheduleLocked() {
	gen := e.gen
	e.timer = time.AfterFunc(e.interval, func() { e.fire(gen) })
}

// fire runs a scheduled tick unless the schedule it belongs to was
// cancelled in the meantime.
func (e *Engine) fire(gen uint64) {
	e.tickMu.Lock()
	defer e.tickMu.Unlock()

	e.mu.Lock()
	live := e.running && !e.halted && gen == e.gen
	ctx := e.loopCtx
	e.mu.Unlock()
	if !live {
		return
	}

	if ctx.Err() != nil {
		e.Stop()
		return
	}

	if err := e.runTickLocked(ctx); err != nil && !ir.IsCorruptedState(err) {
		// Corruption was already logged by halt.
		e.logger.Error("scheduled tick failed",
			"participant_id", e.ParticipantID(),
			"error", err,
		)
	}
}

// halt stops scheduling after unrecoverable corruption.
func (e *Engine) halt(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.halted && e.haltCh != nil {
		close(e.haltCh)
	}
	e.halted = true
	e.haltErr = err
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.logger.Error("synchronization halted",
		"code", ir.CodeOf(err),
		"error", err,
	)
}

// tick runs the four synchronization steps in order.
func (e *Engine) tick(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := e.requireLocal("tick"); err != nil {
		return err
	}

	if err := e.checkHostUI(ctx); err != nil {
		return err
	}
	if err := e.checkState(ctx); err != nil {
		return err
	}
	if err := e.checkMessages(ctx); err != nil {
		return err
	}
	return e.checkParticipants(ctx)
}
