package notification

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"event-booking-backend/internal/model"
)

// DefaultTTL is how long a notification stays visible unless dismissed.
const DefaultTTL = 5 * time.Second

// EventKind tells subscribers what happened to a notification.
type EventKind string

const (
	EventAdded   EventKind = "added"
	EventRemoved EventKind = "removed"
)

// Event is delivered to subscribers whenever the queue changes.
type Event struct {
	Kind         EventKind          `json:"event"`
	Notification model.Notification `json:"notification"`
}

type entry struct {
	n     model.Notification
	timer *time.Timer
}

// Queue holds the active notifications in insertion order. Each notification
// owns a timer that removes it after the TTL; dismissing it stops the timer.
type Queue struct {
	mu        sync.Mutex
	ttl       time.Duration
	items     []*entry
	listeners map[int]chan Event
	nextSub   int
	closed    bool

	now   func() time.Time
	newID func() string
}

// NewQueue creates a queue. A non-positive ttl falls back to DefaultTTL.
func NewQueue(ttl time.Duration) *Queue {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Queue{
		ttl:       ttl,
		listeners: make(map[int]chan Event),
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Push appends a notification and schedules its removal.
func (q *Queue) Push(message string, severity model.Severity) model.Notification {
	n := model.Notification{
		ID:        q.newID(),
		Message:   message,
		Type:      severity,
		CreatedAt: q.now(),
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return n
	}

	id := n.ID
	q.items = append(q.items, &entry{
		n:     n,
		timer: time.AfterFunc(q.ttl, func() { q.remove(id) }),
	})
	q.emit(Event{Kind: EventAdded, Notification: n})
	return n
}

// Dismiss removes the notification early. It reports whether it was present.
func (q *Queue) Dismiss(id string) bool {
	return q.remove(id)
}

func (q *Queue) remove(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, e := range q.items {
		if e.n.ID != id {
			continue
		}
		e.timer.Stop()
		q.items = append(q.items[:i], q.items[i+1:]...)
		q.emit(Event{Kind: EventRemoved, Notification: e.n})
		return true
	}
	return false
}

// List returns the active notifications, oldest first.
func (q *Queue) List() []model.Notification {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]model.Notification, len(q.items))
	for i, e := range q.items {
		out[i] = e.n
	}
	return out
}

// Len returns the number of active notifications.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Subscribe returns a channel of queue events and a function that stops
// delivery. Events are dropped for subscribers whose buffer is full.
func (q *Queue) Subscribe(buffer int) (<-chan Event, func()) {
	q.mu.Lock()
	defer q.mu.Unlock()

	ch := make(chan Event, buffer)
	if q.closed {
		close(ch)
		return ch, func() {}
	}
	id := q.nextSub
	q.nextSub++
	q.listeners[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			q.mu.Lock()
			defer q.mu.Unlock()
			if l, ok := q.listeners[id]; ok {
				delete(q.listeners, id)
				close(l)
			}
		})
	}
}

// emit must be called with q.mu held.
func (q *Queue) emit(ev Event) {
	for _, ch := range q.listeners {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Close stops every pending timer and closes subscriber channels.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	for _, e := range q.items {
		e.timer.Stop()
	}
	q.items = nil
	for id, ch := range q.listeners {
		delete(q.listeners, id)
		close(ch)
	}
}
