package engine

import "github.com/roach88/hangup/internal/ir"

// Topics published on the engine's bus.
const (
	TopicStateChanged        = "hangout.data.stateChanged"
	TopicMessageReceived     = "hangout.data.messageReceived"
	TopicParticipantsAdded   = "hangout.participantsAdded"
	TopicParticipantsChanged = "hangout.participantsChanged"
	TopicParticipantsRemoved = "hangout.participantsRemoved"
	TopicAPIReady            = "hangout.apiReady"
	TopicAppVisible          = "hangout.appVisible"
	TopicNoticeDisplayed     = "hangout.layout.noticeDisplayed"
	TopicNoticeDismissed     = "hangout.layout.noticeDismissed"
)

// StateChangedEvent is the payload of TopicStateChanged.
type StateChangedEvent struct {
	// Added holds new and changed keys, sorted by key.
	Added []ir.StateEntry `json:"added"`
	// Removed holds removed keys.
	Removed []string `json:"removed"`
	// State is the full shared state after the change.
	State ir.SharedState `json:"state"`
}

// MessageReceivedEvent is the payload of TopicMessageReceived.
type MessageReceivedEvent struct {
	SenderID  string `json:"sender_id"`
	Body      string `json:"body"`
	Timestamp int64  `json:"timestamp"`
}

// ParticipantsAddedEvent is the payload of TopicParticipantsAdded.
type ParticipantsAddedEvent struct {
	AddedParticipants []ir.Participant `json:"added_participants"`
}

// ParticipantsChangedEvent is the payload of TopicParticipantsChanged.
// Participants is the complete current list.
type ParticipantsChangedEvent struct {
	Participants []ir.Participant `json:"participants"`
}

// ParticipantsRemovedEvent is the payload of TopicParticipantsRemoved.
type ParticipantsRemovedEvent struct {
	RemovedParticipants []ir.Participant `json:"removed_participants"`
}

// APIReadyEvent is the payload of TopicAPIReady.
type APIReadyEvent struct {
	IsAPIReady bool `json:"is_api_ready"`
}

// AppVisibleEvent is the payload of TopicAppVisible.
type AppVisibleEvent struct {
	IsAppVisible bool `json:"is_app_visible"`
}

// NoticeEvent is the payload of TopicNoticeDisplayed and
// TopicNoticeDismissed. Dismissals carry only Expired.
type NoticeEvent struct {
	Message   string `json:"message,omitempty"`
	Permanent bool   `json:"permanent,omitempty"`
	// Expired is set when a non-permanent notice timed out locally.
	Expired bool `json:"expired,omitempty"`
}
