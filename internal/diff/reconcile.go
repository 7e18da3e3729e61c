package diff

import (
	"github.com/roach88/hangup/internal/ir"
)

// Reconciliation is the membership change between two participant lists.
//
// At most one of Added and Removed is populated. A list of the same length
// that differs in any way is reported as ChangedOnly, so a participant
// leaving exactly as another joins within one poll is indistinguishable from
// a field edit.
type Reconciliation struct {
	Added       []ir.Participant `json:"added"`
	Removed     []ir.Participant `json:"removed"`
	ChangedOnly bool             `json:"changed_only"`
}

// Unchanged reports whether the two lists serialized identically.
func (r Reconciliation) Unchanged() bool {
	return !r.ChangedOnly && len(r.Added) == 0 && len(r.Removed) == 0
}

// Changed reports whether a participantsChanged event is due. It is due on
// any difference, including membership changes.
func (r Reconciliation) Changed() bool {
	return !r.Unchanged()
}

// Reconcile computes the membership change from old to new.
//
// Lists are compared by canonical fingerprint; nil and empty lists are
// equal. When the lengths differ the id-set difference is computed in list
// order of the longer side.
func Reconcile(old, new []ir.Participant) (Reconciliation, error) {
	oldFP, err := ir.ParticipantsFingerprint(old)
	if err != nil {
		return Reconciliation{}, ir.NewCorruptedState("reconcile", "previous participant list", err)
	}
	newFP, err := ir.ParticipantsFingerprint(new)
	if err != nil {
		return Reconciliation{}, ir.NewCorruptedState("reconcile", "current participant list", err)
	}
	if oldFP == newFP {
		return Reconciliation{}, nil
	}

	var r Reconciliation
	switch {
	case len(new) > len(old):
		r.Added = subtractByID(new, old)
	case len(new) < len(old):
		r.Removed = subtractByID(old, new)
	}
	// Same length, or a length change that only repeated known ids.
	if len(r.Added) == 0 && len(r.Removed) == 0 {
		r = Reconciliation{ChangedOnly: true}
	}
	return r, nil
}

// subtractByID returns the entries of a whose id does not occur in b.
func subtractByID(a, b []ir.Participant) []ir.Participant {
	ids := make(map[string]struct{}, len(b))
	for _, p := range b {
		ids[p.ID] = struct{}{}
	}
	out := []ir.Participant{}
	for _, p := range a {
		if _, ok := ids[p.ID]; !ok {
			out = append(out, p)
		}
	}
	return out
}
