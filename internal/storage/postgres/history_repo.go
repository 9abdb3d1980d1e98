package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/jkaninda/ganda/internal/storage"
)

// HistoryRepository implements storage.HistoryStore with GORM.
// Append-only: no Update or Delete methods exist on this type.
type HistoryRepository struct {
	db *gorm.DB
}

// NewHistoryRepository creates a HistoryRepository.
func NewHistoryRepository(db *gorm.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Append inserts a single history event.
func (r *HistoryRepository) Append(ctx context.Context, event storage.HistoryEvent) error {
	model, err := toHistoryModel(event)
	if err != nil {
		return fmt.Errorf("encoding history event: %w", err)
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("appending history event: %w", err)
	}
	return nil
}

// BySession returns events for a session, oldest first.
// Limit defaults to 100.
func (r *HistoryRepository) BySession(ctx context.Context, sessionID string, limit int) ([]storage.HistoryEvent, error) {
	if limit <= 0 {
		limit = 100
	}

	var models []HistoryEventModel
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("seq ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("querying history events: %w", err)
	}

	events := make([]storage.HistoryEvent, len(models))
	for i := range models {
		events[i] = toHistoryDomain(&models[i])
	}
	return events, nil
}

// compile-time interface check
var _ storage.HistoryStore = (*HistoryRepository)(nil)
