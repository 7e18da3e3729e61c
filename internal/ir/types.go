package ir

import "sort"

// Participant is one context taking part in the session.
type Participant struct {
	ID            string `json:"id"`
	DisplayIndex  int    `json:"display_index"`
	HasMicrophone bool   `json:"has_microphone"`
	HasCamera     bool   `json:"has_camera"`
	HasAppEnabled bool   `json:"has_app_enabled"`
	Person        Person `json:"person"`
}

// Person describes the human behind a participant.
type Person struct {
	DisplayName string `json:"display_name"`
	ID          string `json:"id"` // External account id, not the participant id
	Image       Image  `json:"image"`
}

// Image is a person's avatar.
type Image struct {
	URL string `json:"url"`
}

// SharedState is the session-wide key/value table. Last write wins.
type SharedState map[string]string

// Clone returns a copy of the state. A nil state clones to nil.
func (s SharedState) Clone() SharedState {
	if s == nil {
		return nil
	}
	out := make(SharedState, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// SortedKeys returns the state's keys in byte order.
func (s SharedState) SortedKeys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// StateEntry is a single added or changed key in a state delta.
type StateEntry struct {
	Key       string `json:"key"`
	Value     string `json:"value"`
	Timestamp int64  `json:"timestamp,omitempty"` // Zero when observed by polling
}

// Message is an ephemeral, best-effort message in the shared log.
// Immutable once appended.
type Message struct {
	Timestamp int64  `json:"timestamp"`
	SenderID  string `json:"sender_id"`
	Body      string `json:"body"`
	// Seq is the entry's append position in the log. It survives trimming.
	Seq       int64  `json:"seq,omitempty"`
}

// HostUIEventType identifies a host chrome action mirrored across contexts.
type HostUIEventType string

const (
	// HostUIDisplayNotice shows a notice at the top of every window.
	HostUIDisplayNotice HostUIEventType = "displayNotice"
	// HostUIDismissNotice hides the current notice.
	HostUIDismissNotice HostUIEventType = "dismissNotice"
)

// ValidHostUIEventTypes lists the event types a context will dispatch.
var ValidHostUIEventTypes = map[HostUIEventType]bool{
	HostUIDisplayNotice: true,
	HostUIDismissNotice: true,
}

// HostUIEvent is one entry in the append-only host UI log.
type HostUIEvent struct {
	Type      HostUIEventType `json:"type"`
	Message   string          `json:"message,omitempty"`
	Permanent bool            `json:"permanent,omitempty"`
	Timestamp int64           `json:"timestamp"`
	Seq       int64           `json:"seq,omitempty"`
}

// FindParticipant returns the participant with the given id.
func FindParticipant(list []Participant, id string) (Participant, bool) {
	for _, p := range list {
		if p.ID == id {
			return p, true
		}
	}
	return Participant{}, false
}

// CloneParticipants copies a participant list. Participants hold no
// reference types, so a shallow copy of the slice is sufficient.
func CloneParticipants(list []Participant) []Participant {
	if list == nil {
		return nil
	}
	out := make([]Participant, len(list))
	copy(out, list)
	return out
}
