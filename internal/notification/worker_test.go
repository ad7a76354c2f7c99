package notification

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"event-booking-backend/internal/model"
	"event-booking-backend/internal/store"
)

// mockSender is a mock implementation of the NotificationSender interface.
type mockSender struct {
	SendFunc func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

func (m *mockSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return m.SendFunc(payload, sub, options)
}

// mockSubscriptions is an in-memory store.SubscriptionStore.
type mockSubscriptions struct {
	mu      sync.Mutex
	byEmail map[string][]model.PushSubscription
	deleted []string
	err     error
}

func (m *mockSubscriptions) Put(_ context.Context, sub *model.PushSubscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byEmail[sub.Email] = append(m.byEmail[sub.Email], *sub)
	return nil
}

func (m *mockSubscriptions) Get(_ context.Context, endpoint string) (*model.PushSubscription, error) {
	return nil, store.ErrSubscriptionNotFound
}

func (m *mockSubscriptions) Delete(_ context.Context, endpoint string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, endpoint)
	return nil
}

func (m *mockSubscriptions) ForEmail(_ context.Context, email string) ([]model.PushSubscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.byEmail[email], nil
}

func (m *mockSubscriptions) Deleted() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.deleted...)
}

func okResponse(code int) *http.Response {
	return &http.Response{StatusCode: code, Body: io.NopCloser(bytes.NewBufferString(""))}
}

func TestWorkerPool_Dispatch(t *testing.T) {
	wp := NewWorkerPool(1, &mockSubscriptions{}, &webpush.Options{}, zap.NewNop())

	assert.True(t, wp.Dispatch(model.Booking{ID: "b1", Email: "c@x"}))

	select {
	case job := <-wp.jobs:
		assert.Equal(t, "b1", job.ID)
	case <-time.After(1 * time.Second):
		t.Fatal("timed out waiting for job to be dispatched")
	}
}

func TestWorkerPool_DispatchDropsWhenFull(t *testing.T) {
	wp := NewWorkerPool(1, &mockSubscriptions{}, &webpush.Options{}, zap.NewNop())
	for i := 0; i < cap(wp.jobs); i++ {
		assert.True(t, wp.Dispatch(model.Booking{}))
	}
	assert.False(t, wp.Dispatch(model.Booking{}))
}

func TestWorkerPool_WorkerLogic(t *testing.T) {
	subs := &mockSubscriptions{byEmail: map[string][]model.PushSubscription{
		"c@x": {{Endpoint: "https://example.com/push", P256DH: "test_p256dh", Auth: "test_auth", Email: "c@x"}},
		"e@x": {{Endpoint: "https://example.com/expired", P256DH: "k", Auth: "a", Email: "e@x"}},
	}}
	wp := NewWorkerPool(1, subs, &webpush.Options{}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wp.Start(ctx)

	t.Run("sends notification to the promoted email", func(t *testing.T) {
		var wg sync.WaitGroup
		wg.Add(1)

		wp.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				defer wg.Done()
				assert.Equal(t, "https://example.com/push", sub.Endpoint)
				assert.Equal(t, "test_p256dh", sub.Keys.P256dh)
				assert.Equal(t, PromotionMessage("C"), string(payload))
				return okResponse(http.StatusCreated), nil
			},
		}

		wp.Dispatch(model.Booking{ID: "b1", Name: "C", Email: "c@x"})
		wg.Wait()
		assert.Empty(t, subs.Deleted())
	})

	t.Run("deletes expired subscription", func(t *testing.T) {
		wp.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				return okResponse(http.StatusGone), nil
			},
		}

		wp.Dispatch(model.Booking{ID: "b2", Name: "E", Email: "e@x"})
		assert.Eventually(t, func() bool {
			return len(subs.Deleted()) == 1
		}, time.Second, 10*time.Millisecond)
		assert.Equal(t, []string{"https://example.com/expired"}, subs.Deleted())
	})
}

func TestWorkerPool_LookupFailureSendsNothing(t *testing.T) {
	subs := &mockSubscriptions{err: errors.New("db down")}
	wp := NewWorkerPool(1, subs, &webpush.Options{}, zap.NewNop())

	called := false
	wp.sender = &mockSender{
		SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
			called = true
			return okResponse(http.StatusCreated), nil
		},
	}

	wp.sendForPromotion(context.Background(), model.Booking{Email: "c@x"})
	assert.False(t, called)
}
