package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s.Close()

	for _, table := range []string{"shared_kv", "session_kv"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found after idempotent opens: %v", table, err)
		}
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open("/nonexistent/dir/test.db")
	if err == nil {
		t.Error("expected error for invalid path, got nil")
	}
}

func TestOpen_Memory(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	defer s.Close()

	mustSet(t, s.Shared(), "k", "v")
	if got := mustGet(t, s.Shared(), "k"); got != "v" {
		t.Errorf("Get() = %q, want %q", got, "v")
	}
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{db: nil}
	if err := s.Close(); err != nil {
		t.Errorf("Close() on nil db should not error: %v", err)
	}
}

func TestPragma_JournalMode(t *testing.T) {
	s := createTestStore(t)
	if err := s.verifyPragma("journal_mode", "wal"); err != nil {
		t.Error(err)
	}
}

func TestPragma_BusyTimeout(t *testing.T) {
	s := createTestStore(t)
	if err := s.verifyPragma("busy_timeout", "5000"); err != nil {
		t.Error(err)
	}
}

func TestSchema_UserVersion(t *testing.T) {
	s := createTestStore(t)
	if err := s.verifyPragma("user_version", "1"); err != nil {
		t.Error(err)
	}
}

func TestPartition_GetMissing(t *testing.T) {
	s := createTestStore(t)

	v, ok, err := s.Shared().Get(t.Context(), "missing")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if ok || v != "" {
		t.Errorf("Get() = (%q, %v), want (\"\", false)", v, ok)
	}
}

func TestPartition_SetOverwrites(t *testing.T) {
	s := createTestStore(t)
	shared := s.Shared()

	mustSet(t, shared, "k", "first")
	mustSet(t, shared, "k", "second")

	if got := mustGet(t, shared, "k"); got != "second" {
		t.Errorf("Get() = %q, want %q", got, "second")
	}
}

func TestPartition_SessionIsolation(t *testing.T) {
	s := createTestStore(t)
	a := s.Session("tab-a")
	b := s.Session("tab-b")

	mustSet(t, a, "participant", "A")

	if _, ok, _ := b.Get(t.Context(), "participant"); ok {
		t.Error("session b can see session a's record")
	}
	if _, ok, _ := s.Shared().Get(t.Context(), "participant"); ok {
		t.Error("shared partition can see session a's record")
	}
	if got := mustGet(t, a, "participant"); got != "A" {
		t.Errorf("Get() = %q, want %q", got, "A")
	}
}

func TestPartition_SharedAcrossConnections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared.db")

	s1, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s1.Close()
	s2, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s2.Close()

	mustSet(t, s1.Shared(), "shared_state", `{"color":"red"}`)

	if got := mustGet(t, s2.Shared(), "shared_state"); got != `{"color":"red"}` {
		t.Errorf("second connection read %q", got)
	}
}

func TestPartition_DeleteAndClear(t *testing.T) {
	s := createTestStore(t)
	sess := s.Session("tab")

	mustSet(t, sess, "a", "1")
	mustSet(t, sess, "b", "2")

	if err := sess.Delete(t.Context(), "a"); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if err := sess.Delete(t.Context(), "never-set"); err != nil {
		t.Fatalf("Delete() of absent key failed: %v", err)
	}
	if _, ok, _ := sess.Get(t.Context(), "a"); ok {
		t.Error("key a still present after Delete")
	}

	if err := sess.Clear(t.Context()); err != nil {
		t.Fatalf("Clear() failed: %v", err)
	}
	if _, ok, _ := sess.Get(t.Context(), "b"); ok {
		t.Error("key b still present after Clear")
	}
}

func TestPartition_Update(t *testing.T) {
	s := createTestStore(t)
	shared := s.Shared()

	err := shared.Update(t.Context(), "counter", func(current string, ok bool) (string, error) {
		if ok {
			t.Errorf("first Update saw existing value %q", current)
		}
		return "1", nil
	})
	if err != nil {
		t.Fatalf("Update() failed: %v", err)
	}

	err = shared.Update(t.Context(), "counter", func(current string, ok bool) (string, error) {
		if !ok || current != "1" {
			t.Errorf("second Update saw (%q, %v)", current, ok)
		}
		return current + "1", nil
	})
	if err != nil {
		t.Fatalf("Update() failed: %v", err)
	}

	if got := mustGet(t, shared, "counter"); got != "11" {
		t.Errorf("Get() = %q, want %q", got, "11")
	}
}

func TestPartition_UpdateAbortsOnError(t *testing.T) {
	s := createTestStore(t)
	shared := s.Shared()
	mustSet(t, shared, "k", "original")

	sentinel := errors.New("rejected")
	err := shared.Update(t.Context(), "k", func(string, bool) (string, error) {
		return "", sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("Update() error = %v, want sentinel", err)
	}

	if got := mustGet(t, shared, "k"); got != "original" {
		t.Errorf("value changed to %q after aborted Update", got)
	}
}

func TestPartition_JSON(t *testing.T) {
	s := createTestStore(t)
	shared := s.Shared()

	type record struct {
		Name string `json:"name"`
		Tags []string `json:"tags"`
	}

	if err := shared.SetJSON(t.Context(), "rec", record{Name: "<b>", Tags: []string{"x"}}); err != nil {
		t.Fatalf("SetJSON() failed: %v", err)
	}

	if got := mustGet(t, shared, "rec"); got != `{"name":"<b>","tags":["x"]}` {
		t.Errorf("stored JSON = %q", got)
	}

	var out record
	ok, err := shared.GetJSON(t.Context(), "rec", &out)
	if err != nil || !ok {
		t.Fatalf("GetJSON() = (%v, %v)", ok, err)
	}
	if out.Name != "<b>" || len(out.Tags) != 1 {
		t.Errorf("GetJSON() decoded %+v", out)
	}

	ok, err = shared.GetJSON(t.Context(), "absent", &out)
	if err != nil || ok {
		t.Errorf("GetJSON(absent) = (%v, %v), want (false, nil)", ok, err)
	}
}

func TestStore_Purge(t *testing.T) {
	s := createTestStore(t)

	mustSet(t, s.Shared(), "participants", "[]")
	mustSet(t, s.Session("mine"), "participant", "me")
	mustSet(t, s.Session("theirs"), "participant", "them")

	if err := s.Purge(t.Context(), "mine"); err != nil {
		t.Fatalf("Purge() failed: %v", err)
	}

	if _, ok, _ := s.Shared().Get(t.Context(), "participants"); ok {
		t.Error("shared record survived Purge")
	}
	if _, ok, _ := s.Session("mine").Get(t.Context(), "participant"); ok {
		t.Error("own session record survived Purge")
	}
	if got := mustGet(t, s.Session("theirs"), "participant"); got != "them" {
		t.Errorf("other session record = %q, want untouched", got)
	}
}

func TestStore_Sessions(t *testing.T) {
	s := createTestStore(t)

	mustSet(t, s.Session("b"), "participant", "x")
	mustSet(t, s.Session("a"), "participant", "y")
	mustSet(t, s.Session("a"), "message_cursor", "{}")

	keys, err := s.Sessions(t.Context())
	if err != nil {
		t.Fatalf("Sessions() failed: %v", err)
	}
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Errorf("Sessions() = %v, want [a b]", keys)
	}
}

func TestScope_String(t *testing.T) {
	if ScopeShared.String() != "shared" || ScopeSession.String() != "session" {
		t.Errorf("unexpected scope names %q %q", ScopeShared, ScopeSession)
	}
}

func TestPartition_SetDefault(t *testing.T) {
	s := createTestStore(t)
	shared := s.Shared()

	wrote, err := shared.SetDefault(t.Context(), "participants", "[]")
	if err != nil {
		t.Fatalf("SetDefault() failed: %v", err)
	}
	if !wrote {
		t.Error("SetDefault() on absent key should write")
	}

	mustSet(t, shared, "participants", `[{"id":"1"}]`)

	wrote, err = shared.SetDefault(t.Context(), "participants", "[]")
	if err != nil {
		t.Fatalf("SetDefault() failed: %v", err)
	}
	if wrote {
		t.Error("SetDefault() overwrote an existing key")
	}
	if got := mustGet(t, shared, "participants"); got != `[{"id":"1"}]` {
		t.Errorf("Get() = %q", got)
	}
}

func TestDSN(t *testing.T) {
	if got := dsn("a.db"); got != "a.db?_txlock=immediate" {
		t.Errorf("dsn(a.db) = %q", got)
	}
	if got := dsn("file:a.db?mode=rwc"); got != "file:a.db?mode=rwc&_txlock=immediate" {
		t.Errorf("dsn(file:...) = %q", got)
	}
}
