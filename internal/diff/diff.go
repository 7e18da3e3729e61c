// Package diff computes deltas between snapshots of the shared session data.
//
// Both functions are pure: they never touch the store and never mutate their
// inputs. The synchronization loop treats any error returned here as
// terminal corruption.
package diff

import (
	"errors"
	"sort"

	"github.com/roach88/hangup/internal/ir"
)

// StateDelta is the difference between two shared-state snapshots.
type StateDelta struct {
	// Changed holds keys that are new in the second snapshot or whose value
	// differs, sorted by key.
	Changed []ir.StateEntry `json:"changed"`

	// Removed holds keys present in the first snapshot and absent from the
	// second, sorted.
	Removed []string `json:"removed"`
}

// Empty reports whether the delta carries no change.
func (d StateDelta) Empty() bool {
	return len(d.Changed) == 0 && len(d.Removed) == 0
}

var errNilState = errors.New("state mapping is nil")

// Diff computes the delta from old to new.
//
// A nil mapping on either side is the malformed-input case and yields a
// CORRUPTED_STATE error. An absent record should be passed as an empty,
// non-nil SharedState.
func Diff(old, new ir.SharedState) (StateDelta, error) {
	if old == nil {
		return StateDelta{}, ir.NewCorruptedState("diff", "previous state", errNilState)
	}
	if new == nil {
		return StateDelta{}, ir.NewCorruptedState("diff", "current state", errNilState)
	}

	delta := StateDelta{
		Changed: []ir.StateEntry{},
		Removed: []string{},
	}

	for k, v := range new {
		if prev, ok := old[k]; !ok || prev != v {
			delta.Changed = append(delta.Changed, ir.StateEntry{Key: k, Value: v})
		}
	}
	for k := range old {
		if _, ok := new[k]; !ok {
			delta.Removed = append(delta.Removed, k)
		}
	}

	sort.Slice(delta.Changed, func(i, j int) bool {
		return delta.Changed[i].Key < delta.Changed[j].Key
	})
	sort.Strings(delta.Removed)

	return delta, nil
}

// Apply returns a copy of base with the delta applied: every changed key is
// set, then every removed key is deleted. base is not modified.
func Apply(base ir.SharedState, delta StateDelta) ir.SharedState {
	out := base.Clone()
	if out == nil {
		out = ir.SharedState{}
	}
	for _, e := range delta.Changed {
		out[e.Key] = e.Value
	}
	for _, k := range delta.Removed {
		delete(out, k)
	}
	return out
}
