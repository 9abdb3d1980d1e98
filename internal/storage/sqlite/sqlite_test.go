package sqlite

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/jkaninda/ganda/internal/storage"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := Open(Config{Path: filepath.Join(t.TempDir(), "ganda.db")}, logger)
	if err != nil {
		t.Fatalf("opening sqlite: %v", err)
	}
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("migrating: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenRequiresPath(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if _, err := Open(Config{}, logger); err == nil {
		t.Error("expected error for empty path")
	}
}

func TestDriver(t *testing.T) {
	s := testStore(t)
	if got := s.Driver(); got != storage.DriverSQLite {
		t.Errorf("Driver = %q, want %q", got, storage.DriverSQLite)
	}
}

func TestHistoryRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	repo := s.History()

	events := []storage.HistoryEvent{
		{SessionID: "s1", Seq: 1, Timestamp: time.Now(), Command: "mkdir", Args: []string{"projects"}, Success: true},
		{SessionID: "s1", Seq: 2, Timestamp: time.Now(), Command: "cd", Args: []string{"projects"}, Success: true},
		{SessionID: "s1", Seq: 3, Timestamp: time.Now(), Command: "cat", Args: []string{"missing.txt"}, Success: false},
		{SessionID: "s2", Seq: 1, Timestamp: time.Now(), Command: "pwd", Success: true},
	}
	for _, e := range events {
		if err := repo.Append(ctx, e); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	got, err := repo.BySession(ctx, "s1", 0)
	if err != nil {
		t.Fatalf("BySession: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d events for s1, want 3", len(got))
	}
	for i, e := range got {
		if e.Seq != i+1 {
			t.Errorf("event %d has seq %d, want oldest-first ordering", i, e.Seq)
		}
		if e.SessionID != "s1" {
			t.Errorf("event %d leaked from session %q", i, e.SessionID)
		}
	}
	if got[2].Success {
		t.Error("failed command recorded as success")
	}
	if len(got[0].Args) != 1 || got[0].Args[0] != "projects" {
		t.Errorf("args round trip failed: %v", got[0].Args)
	}

	other, err := repo.BySession(ctx, "s2", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(other) != 1 {
		t.Errorf("got %d events for s2, want 1", len(other))
	}
}

func TestHistoryIDsAssigned(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	repo := s.History()

	if err := repo.Append(ctx, storage.HistoryEvent{SessionID: "s1", Seq: 1, Timestamp: time.Now(), Command: "pwd", Success: true}); err != nil {
		t.Fatal(err)
	}
	got, err := repo.BySession(ctx, "s1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d events", len(got))
	}
	if got[0].ID == uuid.Nil {
		t.Error("event ID not assigned on append")
	}
}
