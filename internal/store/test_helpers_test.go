package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

// createTestStore creates a temp-file store for testing.
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

// ts renders a deterministic timestamp n seconds past a fixed epoch.
func ts(n int) string {
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return FormatTime(base.Add(time.Duration(n) * time.Second))
}

// seedUser inserts a user, failing the test on error.
func seedUser(t *testing.T, s *Store, uid, name string) {
	t.Helper()
	if err := InsertUser(context.Background(), s.DB(), uid, name, ts(0)); err != nil {
		t.Fatalf("InsertUser(%s) failed: %v", uid, err)
	}
}

// seedScope inserts a scope, failing the test on error.
func seedScope(t *testing.T, s *Store, scopeID string) {
	t.Helper()
	if err := InsertScope(context.Background(), s.DB(), scopeID, "personal", ts(0)); err != nil {
		t.Fatalf("InsertScope(%s) failed: %v", scopeID, err)
	}
}

// seedEvent inserts a minimal event, failing the test on error.
func seedEvent(t *testing.T, s *Store, eventID, uid, scopeID, idemKey string, n int) {
	t.Helper()
	err := InsertEvent(context.Background(), s.DB(), Event{
		EventID:        eventID,
		UID:            uid,
		ScopeID:        scopeID,
		EventType:      "meal.rated",
		EventTS:        ts(n),
		PayloadJSON:    `{"cuisine":"korean"}`,
		IdempotencyKey: idemKey,
	})
	if err != nil {
		t.Fatalf("InsertEvent(%s) failed: %v", eventID, err)
	}
}
