package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"event-booking-backend/internal/model"
)

// ErrSnapshotNotFound is returned by Load when nothing was saved under the key.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Store persists a single serialized booking snapshot under a key.
// Implementations overwrite on Save; the last write wins.
type Store interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// Load fetches the snapshot row for key.
func (s *gormStore) Load(ctx context.Context, key string) ([]byte, error) {
	var snap model.Snapshot
	err := s.db.WithContext(ctx).Where(&model.Snapshot{Key: key}).First(&snap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot %q: %w", key, err)
	}
	return []byte(snap.Data), nil
}

// Save upserts the snapshot row for key.
func (s *gormStore) Save(ctx context.Context, key string, data []byte) error {
	snap := model.Snapshot{
		Key:       key,
		Data:      string(data),
		UpdatedAt: time.Now().UTC(),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(&snap).Error
	if err != nil {
		return fmt.Errorf("failed to save snapshot %q: %w", key, err)
	}
	return nil
}
