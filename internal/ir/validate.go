package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// ParseSharedState decodes a stored shared state record.
// The record must be a JSON object whose values are all strings; anything
// else (including null) is CORRUPTED_STATE.
func ParseSharedState(raw []byte) (SharedState, error) {
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, NewCorruptedState("parseSharedState", "shared state", err)
	}
	obj, ok := generic.(map[string]any)
	if !ok {
		return nil, NewCorruptedState("parseSharedState", "shared state",
			fmt.Errorf("expected object, found %s", jsonKind(generic)))
	}
	state := make(SharedState, len(obj))
	for k, v := range obj {
		s, ok := v.(string)
		if !ok {
			return nil, NewCorruptedState("parseSharedState", "shared state",
				fmt.Errorf("value for key %q is %s, not string", k, jsonKind(v)))
		}
		state[k] = s
	}
	return state, nil
}

// ParseParticipants decodes a stored participant list.
// The record must be a JSON array of participant objects, each with a
// non-empty id.
func ParseParticipants(raw []byte) ([]Participant, error) {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, NewCorruptedState("parseParticipants", "participant list", fmt.Errorf("found null"))
	}
	var list []Participant
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, NewCorruptedState("parseParticipants", "participant list", err)
	}
	for i, p := range list {
		if p.ID == "" {
			return nil, NewCorruptedState("parseParticipants", "participant list",
				fmt.Errorf("participants[%d]: id is required", i))
		}
	}
	if list == nil {
		list = []Participant{}
	}
	return list, nil
}

// ParseMessages decodes the stored shared message log.
func ParseMessages(raw []byte) ([]Message, error) {
	var list []Message
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, NewCorruptedState("parseMessages", "message log", err)
	}
	return list, nil
}

// ParseHostUIEvents decodes the stored host UI event log.
func ParseHostUIEvents(raw []byte) ([]HostUIEvent, error) {
	var list []HostUIEvent
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, NewCorruptedState("parseHostUIEvents", "host UI log", err)
	}
	return list, nil
}

// ParseDelta decodes caller-supplied updates (a JSON object).
// Non-string values are INVALID_ARGUMENT; nothing is partially accepted.
func ParseDelta(raw []byte) (SharedState, error) {
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, NewInvalidArgument("parseDelta", "updates must be a JSON object: %v", err)
	}
	obj, ok := generic.(map[string]any)
	if !ok {
		return nil, NewInvalidArgument("parseDelta", "updates must be a JSON object, found %s", jsonKind(generic))
	}
	updates := make(SharedState, len(obj))
	for k, v := range obj {
		s, ok := v.(string)
		if !ok {
			return nil, NewInvalidArgument("parseDelta",
				"value for key %q must be a string, found %s", k, jsonKind(v))
		}
		updates[k] = s
	}
	return updates, nil
}

// ValidateDelta checks a state delta before anything is written.
func ValidateDelta(updates SharedState, removals []string) error {
	for k, v := range updates {
		if k == "" {
			return NewInvalidArgument("submitDelta", "keys must be non-empty")
		}
		if !utf8.ValidString(k) {
			return NewInvalidArgument("submitDelta", "key %q is not valid UTF-8", k)
		}
		if !utf8.ValidString(v) {
			return NewInvalidArgument("submitDelta", "value for key %q must be string data", k)
		}
	}
	for _, k := range removals {
		if k == "" {
			return NewInvalidArgument("submitDelta", "removal keys must be non-empty")
		}
	}
	return nil
}

// ValidateMessageBody checks a message body is string data.
func ValidateMessageBody(body string) error {
	if !utf8.ValidString(body) {
		return NewInvalidArgument("sendMessage", "message body must be string data")
	}
	return nil
}

// jsonKind names the JSON type of a decoded value for error messages.
func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, json.Number:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
