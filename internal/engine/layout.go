package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/hangup/internal/ir"
	"github.com/roach88/hangup/internal/store"
)

func hostUIStamp(ev ir.HostUIEvent) (int64, int64) { return ev.Timestamp, ev.Seq }

// DisplayNotice asks every context, including this one, to show message.
// It takes effect on each context's next tick.
func (e *Engine) DisplayNotice(ctx context.Context, message string, permanent bool) error {
	if _, err := e.requireLocal("displayNotice"); err != nil {
		return err
	}
	if err := ir.ValidateMessageBody(message); err != nil {
		return err
	}
	return e.appendHostUIEvent(ctx, ir.HostUIEvent{
		Type:      ir.HostUIDisplayNotice,
		Message:   message,
		Permanent: permanent,
	})
}

// DismissNotice asks every context to hide its notice.
func (e *Engine) DismissNotice(ctx context.Context) error {
	if _, err := e.requireLocal("dismissNotice"); err != nil {
		return err
	}
	return e.appendHostUIEvent(ctx, ir.HostUIEvent{Type: ir.HostUIDismissNotice})
}

// HasNotice reports whether a notice is currently shown in this context.
func (e *Engine) HasNotice() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hasNotice
}

// ShowApp marks the app visible in this context and fires
// hangout.appVisible.
func (e *Engine) ShowApp() error {
	return e.setAppVisible(true)
}

// HideApp marks the app hidden in this context and fires
// hangout.appVisible.
func (e *Engine) HideApp() error {
	return e.setAppVisible(false)
}

// IsAppVisible reports the local app visibility.
func (e *Engine) IsAppVisible() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.appVisible
}

func (e *Engine) setAppVisible(visible bool) error {
	e.mu.Lock()
	e.appVisible = visible
	e.mu.Unlock()
	return e.bus.Trigger(TopicAppVisible, AppVisibleEvent{IsAppVisible: visible})
}

func (e *Engine) appendHostUIEvent(ctx context.Context, ev ir.HostUIEvent) error {
	ev.Timestamp = e.clock.NowMillis()
	err := e.shared.Update(ctx, keyHostUIEvents, func(current string, ok bool) (string, error) {
		log := []ir.HostUIEvent{}
		if ok {
			parsed, err := ir.ParseHostUIEvents([]byte(current))
			if err != nil {
				return "", err
			}
			if parsed != nil {
				log = parsed
			}
		}
		ev.Seq = nextSeq(log, hostUIStamp)
		log = trimLog(append(log, ev), e.messageLogLimit)
		return store.EncodeJSON(log)
	})
	if err != nil {
		return fmt.Errorf("append host UI event: %w", err)
	}
	return nil
}

// readHostUIEvents loads the host UI log. An absent record is empty.
func (e *Engine) readHostUIEvents(ctx context.Context) ([]ir.HostUIEvent, error) {
	raw, ok, err := e.shared.Get(ctx, keyHostUIEvents)
	if err != nil {
		return nil, fmt.Errorf("read host UI log: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return ir.ParseHostUIEvents([]byte(raw))
}

// checkHostUI is tick step 1. Only entries later than the session start and
// the cursor are dispatched. A malformed log is skipped, not fatal.
func (e *Engine) checkHostUI(ctx context.Context) error {
	log, err := e.readHostUIEvents(ctx)
	if err != nil {
		if ir.IsCorruptedState(err) {
			e.logger.Warn("skipping unreadable host UI log",
				"participant_id", e.ParticipantID(),
				"error", err,
			)
			return nil
		}
		return err
	}

	cur, _, err := e.loadCursor(ctx, keyHostUICursor)
	if err != nil {
		return err
	}

	fresh, next := scanLog(log, hostUIStamp, cur, e.StartTime())
	if next == cur {
		return nil
	}
	if err := e.saveCursor(ctx, keyHostUICursor, next); err != nil {
		return err
	}

	for _, ev := range fresh {
		if err := e.dispatchHostUIEvent(ev); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) dispatchHostUIEvent(ev ir.HostUIEvent) error {
	switch ev.Type {
	case ir.HostUIDisplayNotice:
		e.mu.Lock()
		e.hasNotice = true
		e.stopNoticeTimerLocked()
		if !ev.Permanent && e.noticeTimeout > 0 {
			e.noticeGen++
			gen := e.noticeGen
			e.noticeTimer = time.AfterFunc(e.noticeTimeout, func() { e.expireNotice(gen) })
		}
		e.mu.Unlock()
		return e.bus.Trigger(TopicNoticeDisplayed, NoticeEvent{Message: ev.Message, Permanent: ev.Permanent})

	case ir.HostUIDismissNotice:
		e.mu.Lock()
		e.hasNotice = false
		e.stopNoticeTimerLocked()
		e.mu.Unlock()
		return e.bus.Trigger(TopicNoticeDismissed, NoticeEvent{})

	default:
		e.logger.Warn("ignoring unknown host UI event",
			"participant_id", e.ParticipantID(),
			"event", ev.Type,
		)
		return nil
	}
}

// expireNotice dismisses a non-permanent notice locally once its timeout
// passes, unless it was replaced or dismissed first.
func (e *Engine) expireNotice(gen uint64) {
	e.tickMu.Lock()
	defer e.tickMu.Unlock()

	e.mu.Lock()
	if gen != e.noticeGen || !e.hasNotice {
		e.mu.Unlock()
		return
	}
	e.hasNotice = false
	e.noticeTimer = nil
	e.mu.Unlock()

	if err := e.bus.Trigger(TopicNoticeDismissed, NoticeEvent{Expired: true}); err != nil {
		e.logger.Error("notice expiry handler failed", "error", err)
	}
}

// stopNoticeTimerLocked cancels a pending expiry. e.mu must be held.
func (e *Engine) stopNoticeTimerLocked() {
	e.noticeGen++
	if e.noticeTimer != nil {
		e.noticeTimer.Stop()
		e.noticeTimer = nil
	}
}
