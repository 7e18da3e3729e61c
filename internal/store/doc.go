// Package store provides the SQLite-backed key/value store shared by every
// context of a hangup session.
//
// The store has two partitions:
//   - Shared: one table visible to every context attached to the database file
//   - Session: rows keyed by a session key, visible only to the context that
//     owns that key (the analogue of a browser tab's sessionStorage)
//
// Values are opaque strings. Callers encode records as JSON and own their
// well-formedness checks; the store carries no business logic.
//
// # Consistency
//
// Writes are plain overwrites. Two contexts writing the same key within one
// polling window race, and the last write observed by the next poll wins.
// Update wraps a single key's read-modify-write in one transaction so that a
// batch (for example a state delta) is never partially applied.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads from other contexts during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks held by other processes up to 5 seconds
package store
