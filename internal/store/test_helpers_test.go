package store

import (
	"path/filepath"
	"testing"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// mustSet writes a value or fails the test.
func mustSet(t *testing.T, p *Partition, key, value string) {
	t.Helper()
	if err := p.Set(t.Context(), key, value); err != nil {
		t.Fatalf("Set(%q) failed: %v", key, err)
	}
}

// mustGet reads a value that must exist.
func mustGet(t *testing.T, p *Partition, key string) string {
	t.Helper()
	v, ok, err := p.Get(t.Context(), key)
	if err != nil {
		t.Fatalf("Get(%q) failed: %v", key, err)
	}
	if !ok {
		t.Fatalf("Get(%q): key not found", key)
	}
	return v
}
