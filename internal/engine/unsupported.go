package engine

import "github.com/roach88/hangup/internal/ir"

// The operations below exist on the emulated host surface but have no
// meaning for a store-backed session. They always return NOT_IMPLEMENTED so
// callers can tell a missing capability from a runtime failure.

// HangoutURL is not implemented.
func (e *Engine) HangoutURL() (string, error) {
	return "", ir.NewNotImplemented("getHangoutUrl")
}

// HangoutID is not implemented.
func (e *Engine) HangoutID() (string, error) {
	return "", ir.NewNotImplemented("getHangoutId")
}

// Locale is not implemented.
func (e *Engine) Locale() (string, error) {
	return "", ir.NewNotImplemented("getLocale")
}

// StartData is not implemented.
func (e *Engine) StartData() (string, error) {
	return "", ir.NewNotImplemented("getStartData")
}

// EnabledParticipants is not implemented.
func (e *Engine) EnabledParticipants() ([]ir.Participant, error) {
	return nil, ir.NewNotImplemented("getEnabledParticipants")
}

// IsPublic is not implemented.
func (e *Engine) IsPublic() (bool, error) {
	return false, ir.NewNotImplemented("isPublic")
}

// StateMetadata is not implemented.
func (e *Engine) StateMetadata() (map[string]ir.StateEntry, error) {
	return nil, ir.NewNotImplemented("getStateMetadata")
}
