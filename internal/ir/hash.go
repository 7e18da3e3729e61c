package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for fingerprints.
// Version suffix enables future algorithm migration.
const (
	DomainParticipants = "hangup/participants/v1"
	DomainState        = "hangup/state/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ParticipantsFingerprint hashes the canonical serialization of a participant
// list. Two lists have the same fingerprint exactly when they serialize
// identically; order matters. A nil list fingerprints like an empty one.
func ParticipantsFingerprint(list []Participant) (string, error) {
	if list == nil {
		list = []Participant{}
	}
	canonical, err := MarshalCanonicalValue(list)
	if err != nil {
		return "", fmt.Errorf("ParticipantsFingerprint: %w", err)
	}
	return hashWithDomain(DomainParticipants, canonical), nil
}

// StateFingerprint hashes the canonical serialization of a shared state.
func StateFingerprint(state SharedState) (string, error) {
	if state == nil {
		state = SharedState{}
	}
	canonical, err := MarshalCanonical(state)
	if err != nil {
		return "", fmt.Errorf("StateFingerprint: %w", err)
	}
	return hashWithDomain(DomainState, canonical), nil
}
