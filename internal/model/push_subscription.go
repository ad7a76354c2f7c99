package model

import "time"

// PushSubscription holds a browser push subscription registered for an email
// address. Its owner is notified when promoted off the waiting list.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	Email     string    `gorm:"index;size:320;not null"`
	CreatedAt time.Time `gorm:"not null"`
}
