package watcher

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pactum-labs/pactum-gateway/pkg/db/models"
)

// CursorStore persists the watcher's resume point between restarts.
type CursorStore interface {
	Load(ctx context.Context, name string) (uint64, error)
	Save(ctx context.Context, name string, block uint64) error
}

type cursorStore struct {
	db *gorm.DB
}

// NewCursorStore builds a CursorStore over the watcher_cursors table.
func NewCursorStore(db *gorm.DB) CursorStore {
	return &cursorStore{db: db}
}

// Load returns the last applied block for the named cursor, or 0 when the
// watcher has never run.
func (s *cursorStore) Load(ctx context.Context, name string) (uint64, error) {
	var cursor models.WatcherCursor
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&cursor).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return cursor.BlockNumber, nil
}

func (s *cursorStore) Save(ctx context.Context, name string, block uint64) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"block_number", "updated_at"}),
	}).Create(&models.WatcherCursor{Name: name, BlockNumber: block}).Error
}
