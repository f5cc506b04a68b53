package models

import "time"

// WatcherCursor persists the chain watcher's resume point so restarts
// replay from the last applied block instead of the chain head.
type WatcherCursor struct {
	Name        string    `gorm:"column:name;type:text;primaryKey"`
	BlockNumber uint64    `gorm:"column:block_number;not null;default:0"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
