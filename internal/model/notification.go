package model

import "time"

// Severity classifies a notification for display.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
	SeverityInfo    Severity = "info"
)

// Notification is a short-lived message describing an operation outcome.
type Notification struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Type      Severity  `json:"type"`
	CreatedAt time.Time `json:"createdAt"`
}
