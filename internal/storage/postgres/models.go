package postgres

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/jkaninda/ganda/internal/storage"
)

// HistoryEventModel maps to the "history_events" table.
// No UpdatedAt or DeletedAt — command history is append-only and immutable.
// Args are stored as a JSON text column so the model works unchanged under
// both the PostgreSQL and SQLite dialects.
type HistoryEventModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	SessionID string    `gorm:"not null;index:idx_history_session_seq,priority:1"`
	Seq       int       `gorm:"not null;index:idx_history_session_seq,priority:2"`
	Timestamp time.Time `gorm:"not null"`
	Command   string    `gorm:"not null"`
	ArgsJSON  string    `gorm:"type:text;not null;default:'[]'"`
	Success   bool      `gorm:"not null"`
	CreatedAt time.Time `gorm:"index"`
}

func (HistoryEventModel) TableName() string { return "history_events" }

func toHistoryModel(e storage.HistoryEvent) (HistoryEventModel, error) {
	args := e.Args
	if args == nil {
		args = []string{}
	}
	data, err := json.Marshal(args)
	if err != nil {
		return HistoryEventModel{}, err
	}
	id := e.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	return HistoryEventModel{
		ID:        id,
		SessionID: e.SessionID,
		Seq:       e.Seq,
		Timestamp: e.Timestamp.UTC(),
		Command:   e.Command,
		ArgsJSON:  string(data),
		Success:   e.Success,
	}, nil
}

func toHistoryDomain(m *HistoryEventModel) storage.HistoryEvent {
	var args []string
	// A malformed row yields empty args rather than a read failure.
	_ = json.Unmarshal([]byte(m.ArgsJSON), &args)
	return storage.HistoryEvent{
		ID:        m.ID,
		SessionID: m.SessionID,
		Seq:       m.Seq,
		Timestamp: m.Timestamp,
		Command:   m.Command,
		Args:      args,
		Success:   m.Success,
	}
}
