// Package ir provides the shared data model for hangup sessions.
//
// This package contains the records that travel through the shared store
// (participants, shared state, messages, host UI events), their canonical
// JSON encoding, and the error taxonomy used by every other internal
// package. All other internal packages import ir; ir imports nothing
// internal.
//
// Key design constraints:
//   - Shared state values are strings only; anything else is rejected
//   - Timestamps are wall-clock milliseconds (int64); ties are broken by list position
//   - All JSON tags use snake_case
//   - Participant identity is the ID field, never the display name
package ir
