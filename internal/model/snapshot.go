package model

import "time"

// Snapshot is a single keyed row holding a JSON encoded BookingState.
type Snapshot struct {
	Key       string    `gorm:"primaryKey;size:128"`
	Data      string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"not null"`
}
