package api

import (
	"github.com/SherClockHolmes/webpush-go"

	"event-booking-backend/internal/booking"
	"event-booking-backend/internal/notification"
	"event-booking-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	system   *booking.System
	queue    *notification.Queue
	hub      *notification.Hub
	subs     store.SubscriptionStore
	webpush  *webpush.Options
	pageSize int
	title    string
}

// Deps groups what NewHandler needs. Hub, Subscriptions and WebPush are optional.
type Deps struct {
	System        *booking.System
	Queue         *notification.Queue
	Hub           *notification.Hub
	Subscriptions store.SubscriptionStore
	WebPush       *webpush.Options
	PageSize      int
	EventTitle    string
}

// NewHandler creates a new API handler.
func NewHandler(d Deps) *Handler {
	if d.PageSize <= 0 {
		d.PageSize = booking.DefaultPageSize
	}
	if d.EventTitle == "" {
		d.EventTitle = "Event Booking"
	}
	return &Handler{
		system:   d.System,
		queue:    d.Queue,
		hub:      d.Hub,
		subs:     d.Subscriptions,
		webpush:  d.WebPush,
		pageSize: d.PageSize,
		title:    d.EventTitle,
	}
}
