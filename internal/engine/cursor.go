package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
)

// Cursor marks the last entry of an append-only shared log this context
// consumed.
//
// Timestamps are not unique, so the entry's Seq breaks ties. Seq is assigned
// in append order and is not disturbed when the front of the log is trimmed.
type Cursor struct {
	Timestamp int64 `json:"timestamp"`
	Seq       int64 `json:"seq"`
}

// precedes reports whether an entry stamped (ts, seq) is newer than c.
func (c Cursor) precedes(ts, seq int64) bool {
	return ts > c.Timestamp || (ts == c.Timestamp && seq > c.Seq)
}

// noFloor disables the lower timestamp bound in scanLog.
const noFloor = math.MinInt64

// scanLog returns the entries of log that the cursor has not consumed, in
// log order, together with the advanced cursor.
//
// The log is walked newest-first and the walk stops at the first entry the
// cursor already covers or not later than floor, so only the unread tail is
// visited. That relies on the log being appended in roughly time order.
func scanLog[T any](log []T, stamp func(T) (int64, int64), cur Cursor, floor int64) ([]T, Cursor) {
	start := len(log)
	for start > 0 {
		ts, seq := stamp(log[start-1])
		if !cur.precedes(ts, seq) || ts <= floor {
			break
		}
		start--
	}
	if start == len(log) {
		return nil, cur
	}

	fresh := append([]T(nil), log[start:]...)
	next := cur
	for _, entry := range fresh {
		if ts, seq := stamp(entry); next.precedes(ts, seq) {
			next = Cursor{Timestamp: ts, Seq: seq}
		}
	}
	return fresh, next
}

// cursorAtEnd returns a cursor that has consumed every entry of log.
func cursorAtEnd[T any](log []T, stamp func(T) (int64, int64)) Cursor {
	if len(log) == 0 {
		return Cursor{}
	}
	_, c := scanLog(log, stamp, Cursor{Timestamp: math.MinInt64}, noFloor)
	return c
}

// nextSeq returns the sequence number for an entry appended to log.
func nextSeq[T any](log []T, stamp func(T) (int64, int64)) int64 {
	if len(log) == 0 {
		return 1
	}
	_, seq := stamp(log[len(log)-1])
	return seq + 1
}

// loadCursor reads a cursor from the session partition. An absent cursor is
// the zero cursor; an unreadable one is logged and reset.
func (e *Engine) loadCursor(ctx context.Context, key string) (Cursor, bool, error) {
	raw, ok, err := e.session.Get(ctx, key)
	if err != nil {
		return Cursor{}, false, fmt.Errorf("load cursor: %w", err)
	}
	if !ok {
		return Cursor{}, false, nil
	}
	var c Cursor
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		e.logger.Warn("discarding unreadable cursor",
			"participant_id", e.ParticipantID(),
			"key", key,
			"error", err,
		)
		return Cursor{}, false, nil
	}
	return c, true, nil
}

// saveCursor persists a cursor to the session partition.
func (e *Engine) saveCursor(ctx context.Context, key string, c Cursor) error {
	if err := e.session.SetJSON(ctx, key, c); err != nil {
		return fmt.Errorf("save cursor %s: %w", key, err)
	}
	return nil
}

// MessageCursor returns this context's position in the shared message log.
func (e *Engine) MessageCursor(ctx context.Context) (Cursor, error) {
	c, _, err := e.loadCursor(ctx, keyMessageCursor)
	return c, err
}
