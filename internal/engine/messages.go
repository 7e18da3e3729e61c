package engine

import (
	"context"
	"fmt"

	"github.com/roach88/hangup/internal/ir"
	"github.com/roach88/hangup/internal/store"
)

func messageStamp(m ir.Message) (int64, int64) { return m.Timestamp, m.Seq }

// SendMessage appends body to the shared message log.
//
// Delivery is best effort and at most once per context. The sender never
// receives its own message.
func (e *Engine) SendMessage(ctx context.Context, body string) error {
	local, err := e.requireLocal("sendMessage")
	if err != nil {
		return err
	}
	if err := ir.ValidateMessageBody(body); err != nil {
		return err
	}

	msg := ir.Message{
		Timestamp: e.clock.NowMillis(),
		SenderID:  local.ID,
		Body:      body,
	}

	err = e.shared.Update(ctx, keySharedMessages, func(current string, ok bool) (string, error) {
		log := []ir.Message{}
		if ok {
			parsed, err := ir.ParseMessages([]byte(current))
			if err != nil {
				return "", err
			}
			if parsed != nil {
				log = parsed
			}
		}
		msg.Seq = nextSeq(log, messageStamp)
		log = trimLog(append(log, msg), e.messageLogLimit)
		return store.EncodeJSON(log)
	})
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}

	e.logger.Debug("message sent",
		"participant_id", local.ID,
		"timestamp", msg.Timestamp,
		"seq", msg.Seq,
	)
	return nil
}

// readMessages loads the shared message log. An absent record is empty.
func (e *Engine) readMessages(ctx context.Context) ([]ir.Message, error) {
	raw, ok, err := e.shared.Get(ctx, keySharedMessages)
	if err != nil {
		return nil, fmt.Errorf("read message log: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return ir.ParseMessages([]byte(raw))
}

// checkMessages is tick step 3. A malformed log is skipped, not fatal.
func (e *Engine) checkMessages(ctx context.Context) error {
	log, err := e.readMessages(ctx)
	if err != nil {
		if ir.IsCorruptedState(err) {
			e.logger.Warn("skipping unreadable message log",
				"participant_id", e.ParticipantID(),
				"error", err,
			)
			return nil
		}
		return err
	}

	cur, _, err := e.loadCursor(ctx, keyMessageCursor)
	if err != nil {
		return err
	}

	fresh, next := scanLog(log, messageStamp, cur, noFloor)
	if next == cur {
		return nil
	}
	// Persist before dispatch: a handler failure must not cause redelivery.
	if err := e.saveCursor(ctx, keyMessageCursor, next); err != nil {
		return err
	}

	self := e.ParticipantID()
	for _, m := range fresh {
		if m.SenderID == self {
			continue
		}
		err := e.bus.Trigger(TopicMessageReceived, MessageReceivedEvent{
			SenderID:  m.SenderID,
			Body:      m.Body,
			Timestamp: m.Timestamp,
		})
		if err != nil {
			return err
		}
	}
	return nil
}
