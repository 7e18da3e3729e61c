package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// Scope identifies which partition a record lives in.
type Scope int

const (
	// ScopeShared is visible to every context.
	ScopeShared Scope = iota + 1
	// ScopeSession is visible only to the context owning the session key.
	ScopeSession
)

// String returns the scope name used in logs and errors.
func (s Scope) String() string {
	switch s {
	case ScopeShared:
		return "shared"
	case ScopeSession:
		return "session"
	default:
		return fmt.Sprintf("scope(%d)", int(s))
	}
}

// Partition is typed get/set access to one scope of the store.
type Partition struct {
	db         *sql.DB
	scope      Scope
	sessionKey string
}

// Scope returns the partition's scope.
func (p *Partition) Scope() Scope {
	return p.scope
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Get returns the value stored under key.
// ok is false when the key is absent.
func (p *Partition) Get(ctx context.Context, key string) (value string, ok bool, err error) {
	return p.get(ctx, p.db, key)
}

func (p *Partition) get(ctx context.Context, q querier, key string) (string, bool, error) {
	var row *sql.Row
	if p.scope == ScopeShared {
		row = q.QueryRowContext(ctx, `SELECT value FROM shared_kv WHERE key = ?`, key)
	} else {
		row = q.QueryRowContext(ctx, `SELECT value FROM session_kv WHERE session_key = ? AND key = ?`, p.sessionKey, key)
	}

	var value string
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get %s %q: %w", p.scope, key, err)
	}
	return value, true, nil
}

// Set overwrites the value stored under key.
func (p *Partition) Set(ctx context.Context, key, value string) error {
	return p.set(ctx, p.db, key, value)
}

func (p *Partition) set(ctx context.Context, q querier, key, value string) error {
	var err error
	if p.scope == ScopeShared {
		_, err = q.ExecContext(ctx, `
			INSERT INTO shared_kv (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value
		`, key, value)
	} else {
		_, err = q.ExecContext(ctx, `
			INSERT INTO session_kv (session_key, key, value) VALUES (?, ?, ?)
			ON CONFLICT(session_key, key) DO UPDATE SET value = excluded.value
		`, p.sessionKey, key, value)
	}
	if err != nil {
		return fmt.Errorf("set %s %q: %w", p.scope, key, err)
	}
	return nil
}

// SetDefault stores value under key only if the key is absent.
// Reports whether it wrote.
func (p *Partition) SetDefault(ctx context.Context, key, value string) (bool, error) {
	var (
		res sql.Result
		err error
	)
	if p.scope == ScopeShared {
		res, err = p.db.ExecContext(ctx, `
			INSERT INTO shared_kv (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO NOTHING
		`, key, value)
	} else {
		res, err = p.db.ExecContext(ctx, `
			INSERT INTO session_kv (session_key, key, value) VALUES (?, ?, ?)
			ON CONFLICT(session_key, key) DO NOTHING
		`, p.sessionKey, key, value)
	}
	if err != nil {
		return false, fmt.Errorf("set default %s %q: %w", p.scope, key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set default %s %q: %w", p.scope, key, err)
	}
	return n > 0, nil
}

// Delete removes key. Deleting an absent key is not an error.
func (p *Partition) Delete(ctx context.Context, key string) error {
	var err error
	if p.scope == ScopeShared {
		_, err = p.db.ExecContext(ctx, `DELETE FROM shared_kv WHERE key = ?`, key)
	} else {
		_, err = p.db.ExecContext(ctx, `DELETE FROM session_kv WHERE session_key = ? AND key = ?`, p.sessionKey, key)
	}
	if err != nil {
		return fmt.Errorf("delete %s %q: %w", p.scope, key, err)
	}
	return nil
}

// Clear removes every key in the partition.
func (p *Partition) Clear(ctx context.Context) error {
	var err error
	if p.scope == ScopeShared {
		_, err = p.db.ExecContext(ctx, `DELETE FROM shared_kv`)
	} else {
		_, err = p.db.ExecContext(ctx, `DELETE FROM session_kv WHERE session_key = ?`, p.sessionKey)
	}
	if err != nil {
		return fmt.Errorf("clear %s: %w", p.scope, err)
	}
	return nil
}

// Update runs a read-modify-write of one key inside a single transaction.
// fn receives the current value (ok=false if absent) and returns the value to
// store. If fn returns an error nothing is written and the error is returned
// unwrapped so callers can inspect typed errors.
func (p *Partition) Update(ctx context.Context, key string, fn func(current string, ok bool) (string, error)) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("update %s %q: begin tx: %w", p.scope, key, err)
	}
	defer tx.Rollback() // No-op if committed

	current, ok, err := p.get(ctx, tx, key)
	if err != nil {
		return err
	}

	next, err := fn(current, ok)
	if err != nil {
		return err
	}

	if err := p.set(ctx, tx, key, next); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("update %s %q: commit: %w", p.scope, key, err)
	}
	return nil
}

// SetJSON encodes v as JSON and stores it under key.
func (p *Partition) SetJSON(ctx context.Context, key string, v any) error {
	data, err := EncodeJSON(v)
	if err != nil {
		return fmt.Errorf("set %s %q: %w", p.scope, key, err)
	}
	return p.Set(ctx, key, data)
}

// GetJSON decodes the JSON value stored under key into dst.
// ok is false (and dst untouched) when the key is absent.
func (p *Partition) GetJSON(ctx context.Context, key string, dst any) (ok bool, err error) {
	raw, ok, err := p.Get(ctx, key)
	if err != nil || !ok {
		return ok, err
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return true, fmt.Errorf("decode %s %q: %w", p.scope, key, err)
	}
	return true, nil
}

// EncodeJSON encodes v as compact JSON TEXT without HTML escaping.
func EncodeJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("encode json: %w", err)
	}
	// Encoder adds a trailing newline, remove it
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}
