package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"event-booking-backend/internal/model"
)

// ErrSubscriptionNotFound is returned when no subscription matches an endpoint.
var ErrSubscriptionNotFound = errors.New("subscription not found")

// SubscriptionStore manages browser push subscriptions keyed by endpoint.
type SubscriptionStore interface {
	Put(ctx context.Context, sub *model.PushSubscription) error
	Get(ctx context.Context, endpoint string) (*model.PushSubscription, error)
	Delete(ctx context.Context, endpoint string) error
	ForEmail(ctx context.Context, email string) ([]model.PushSubscription, error)
}

type gormSubscriptionStore struct {
	db *gorm.DB
}

// NewGormSubscriptionStore creates a GORM-backed SubscriptionStore.
func NewGormSubscriptionStore(db *gorm.DB) SubscriptionStore {
	return &gormSubscriptionStore{db: db}
}

// Put creates or replaces the subscription for sub.Endpoint.
func (s *gormSubscriptionStore) Put(ctx context.Context, sub *model.PushSubscription) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth", "email"}),
	}).Create(sub).Error
	if err != nil {
		return fmt.Errorf("failed to upsert subscription: %w", err)
	}
	return nil
}

func (s *gormSubscriptionStore) Get(ctx context.Context, endpoint string) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	err := s.db.WithContext(ctx).First(&sub, "endpoint = ?", endpoint).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch subscription: %w", err)
	}
	return &sub, nil
}

func (s *gormSubscriptionStore) Delete(ctx context.Context, endpoint string) error {
	if err := s.db.WithContext(ctx).Delete(&model.PushSubscription{Endpoint: endpoint}).Error; err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}
	return nil
}

// ForEmail lists every subscription registered for email, ignoring case.
func (s *gormSubscriptionStore) ForEmail(ctx context.Context, email string) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	if err := s.db.WithContext(ctx).Where("LOWER(email) = ?", strings.ToLower(email)).Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch subscriptions for %s: %w", email, err)
	}
	return subs, nil
}
