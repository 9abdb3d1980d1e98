//go:build integration

package postgres

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/jkaninda/ganda/internal/storage"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set, skipping integration test")
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := Open(Config{DSN: dsn}, logger)
	if err != nil {
		t.Fatalf("opening postgres: %v", err)
	}
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("migrating: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestHistoryAppendAndQuery(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	repo := s.History()

	sessionID := fmt.Sprintf("test-%s", uuid.New().String()[:8])
	for i := 1; i <= 3; i++ {
		err := repo.Append(ctx, storage.HistoryEvent{
			SessionID: sessionID,
			Seq:       i,
			Timestamp: time.Now().UTC(),
			Command:   "echo",
			Args:      []string{fmt.Sprintf("n%d", i)},
			Success:   true,
		})
		if err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	events, err := repo.BySession(ctx, sessionID, 0)
	if err != nil {
		t.Fatalf("BySession: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	for i, e := range events {
		if e.Seq != i+1 {
			t.Errorf("event %d has seq %d, want oldest-first ordering", i, e.Seq)
		}
	}
	if got := events[0].Args; len(got) != 1 || got[0] != "n1" {
		t.Errorf("args round trip failed: %v", got)
	}
}

func TestHistoryLimit(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	repo := s.History()

	sessionID := fmt.Sprintf("test-%s", uuid.New().String()[:8])
	for i := 1; i <= 5; i++ {
		if err := repo.Append(ctx, storage.HistoryEvent{SessionID: sessionID, Seq: i, Timestamp: time.Now(), Command: "pwd", Success: true}); err != nil {
			t.Fatal(err)
		}
	}

	events, err := repo.BySession(ctx, sessionID, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 {
		t.Errorf("got %d events, want 2", len(events))
	}
}
