package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"event-booking-backend/internal/model"
	"event-booking-backend/internal/parse"
	"event-booking-backend/internal/store"
)

// Outcome messages shown to the user.
const (
	MsgBooked      = "Booking confirmed!"
	MsgNoSlots     = "No slots available. Try joining the waiting list."
	MsgWaitlisted  = "Added to waiting list!"
	MsgCancelled   = "Booking successfully cancelled."
	MsgReset       = "Booking system has been reset."
	msgPromotedFmt = "%s has been promoted from the waiting list."
)

var (
	// ErrInvalidContact wraps the reason a name/email pair was rejected.
	ErrInvalidContact = errors.New("invalid contact")
	// ErrNotFound is returned by lookups for unknown booking ids.
	ErrNotFound = errors.New("booking not found")
)

// Notifier receives one message per operation outcome.
type Notifier interface {
	Push(message string, severity model.Severity) model.Notification
}

type nopNotifier struct{}

func (nopNotifier) Push(message string, severity model.Severity) model.Notification {
	return model.Notification{Message: message, Type: severity}
}

// Result is returned by Book and JoinWaitingList.
type Result struct {
	Success bool                    `json:"success"`
	Message string                  `json:"message"`
	Booking *model.Booking          `json:"booking,omitempty"`
	Entry   *model.WaitingListEntry `json:"entry,omitempty"`
}

// CancelOutcome describes what CancelBooking did.
type CancelOutcome struct {
	Found    bool
	Promoted *model.Booking
}

// Options configures a System.
type Options struct {
	TotalSlots int
	Store      store.Store
	Key        string
	Notifier   Notifier
	Logger     *zap.Logger

	// Overridable for tests.
	Now   func() time.Time
	NewID func() string
}

// System owns the booking state of one event: slots, bookings and the
// waiting list. Every mutation is flushed to the snapshot store.
type System struct {
	mu         sync.Mutex
	totalSlots int
	key        string
	state      model.BookingState

	store    store.Store
	notifier Notifier
	log      *zap.Logger
	now      func() time.Time
	newID    func() string

	listenersMu sync.RWMutex
	onChange    []func(model.BookingState)
	onPromote   []func(model.Booking)
}

// New creates a System and hydrates it from the snapshot store.
func New(ctx context.Context, opts Options) (*System, error) {
	if opts.TotalSlots < 0 {
		return nil, fmt.Errorf("total slots must not be negative, got %d", opts.TotalSlots)
	}
	if opts.Store == nil {
		opts.Store = store.NewMemoryStore()
	}
	if opts.Key == "" {
		return nil, errors.New("snapshot key is required")
	}
	if opts.Notifier == nil {
		opts.Notifier = nopNotifier{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}

	s := &System{
		totalSlots: opts.TotalSlots,
		key:        opts.Key,
		store:      opts.Store,
		notifier:   opts.Notifier,
		log:        opts.Logger.Named("booking"),
		now:        opts.Now,
		newID:      opts.NewID,
	}

	state, err := s.hydrate(ctx)
	if err != nil {
		return nil, err
	}
	s.state = state
	return s, nil
}

// hydrate reads the snapshot once. Parseable data is taken as is.
func (s *System) hydrate(ctx context.Context) (model.BookingState, error) {
	data, err := s.store.Load(ctx, s.key)
	if errors.Is(err, store.ErrSnapshotNotFound) {
		s.log.Info("no snapshot found, starting empty", zap.Int("total_slots", s.totalSlots))
		return model.InitialState(s.totalSlots), nil
	}
	if err != nil {
		return model.BookingState{}, fmt.Errorf("failed to hydrate booking state: %w", err)
	}

	state, err := DecodeState(data)
	if err != nil {
		s.log.Warn("snapshot is not valid JSON, starting empty", zap.String("key", s.key), zap.Error(err))
		return model.InitialState(s.totalSlots), nil
	}
	s.log.Info("snapshot loaded",
		zap.Int("available_slots", state.AvailableSlots),
		zap.Int("bookings", len(state.Bookings)),
		zap.Int("waiting", len(state.WaitingList)),
	)
	return state, nil
}

// DecodeState parses a snapshot. Missing lists decode as empty lists.
func DecodeState(data []byte) (model.BookingState, error) {
	var state model.BookingState
	if err := json.Unmarshal(data, &state); err != nil {
		return model.BookingState{}, err
	}
	if state.Bookings == nil {
		state.Bookings = []model.Booking{}
	}
	if state.WaitingList == nil {
		state.WaitingList = []model.WaitingListEntry{}
	}
	return state, nil
}

// OnChange registers fn to be called with a copy of the state after every mutation.
func (s *System) OnChange(fn func(model.BookingState)) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	s.onChange = append(s.onChange, fn)
}

// OnPromote registers fn to be called with every booking created by promotion.
func (s *System) OnPromote(fn func(model.Booking)) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	s.onPromote = append(s.onPromote, fn)
}

// TotalSlots returns the configured capacity.
func (s *System) TotalSlots() int {
	return s.totalSlots
}

// State returns a copy of the current state.
func (s *System) State() model.BookingState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Booking looks up a booking by id.
func (s *System) Booking(id string) (model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.state.Bookings {
		if b.ID == id {
			return b, nil
		}
	}
	return model.Booking{}, ErrNotFound
}

// Book reserves a slot when one is available. Running out of slots is not an
// error: the Result reports failure and the state is left untouched.
func (s *System) Book(ctx context.Context, name, email string) (Result, error) {
	contact, err := parse.ParseContact(name, email)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrInvalidContact, err)
	}

	s.mu.Lock()
	if s.state.AvailableSlots <= 0 {
		s.mu.Unlock()
		s.notifier.Push(MsgNoSlots, model.SeverityError)
		return Result{Success: false, Message: MsgNoSlots}, nil
	}

	b := s.newBooking(contact.Name, contact.Email)
	s.state.AvailableSlots--
	s.state.Bookings = append(s.state.Bookings, b)
	snapshot := s.commit(ctx)
	s.mu.Unlock()

	s.log.Info("booking confirmed", zap.String("id", b.ID), zap.Int("available_slots", snapshot.AvailableSlots))
	s.notifier.Push(MsgBooked, model.SeveritySuccess)
	s.changed(snapshot)
	return Result{Success: true, Message: MsgBooked, Booking: &b}, nil
}

// JoinWaitingList appends to the waiting list regardless of free slots.
func (s *System) JoinWaitingList(ctx context.Context, name, email string) (Result, error) {
	contact, err := parse.ParseContact(name, email)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrInvalidContact, err)
	}

	s.mu.Lock()
	entry := model.WaitingListEntry{
		ID:        s.newID(),
		Name:      contact.Name,
		Email:     contact.Email,
		Timestamp: s.now().UnixMilli(),
	}
	s.state.WaitingList = append(s.state.WaitingList, entry)
	snapshot := s.commit(ctx)
	s.mu.Unlock()

	s.log.Info("joined waiting list", zap.String("id", entry.ID), zap.Int("position", len(snapshot.WaitingList)))
	s.notifier.Push(MsgWaitlisted, model.SeveritySuccess)
	s.changed(snapshot)
	return Result{Success: true, Message: MsgWaitlisted, Entry: &entry}, nil
}

// CancelBooking removes the booking and promotes the head of the waiting list
// into the freed slot. Unknown ids are a silent no-op.
func (s *System) CancelBooking(ctx context.Context, id string) CancelOutcome {
	s.mu.Lock()
	idx := -1
	for i, b := range s.state.Bookings {
		if b.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return CancelOutcome{}
	}

	bookings := make([]model.Booking, 0, len(s.state.Bookings))
	bookings = append(bookings, s.state.Bookings[:idx]...)
	bookings = append(bookings, s.state.Bookings[idx+1:]...)
	s.state.Bookings = bookings
	s.state.AvailableSlots++

	var promoted *model.Booking
	if len(s.state.WaitingList) > 0 {
		head := s.state.WaitingList[0]
		s.state.WaitingList = append([]model.WaitingListEntry{}, s.state.WaitingList[1:]...)
		b := s.newBooking(head.Name, head.Email)
		s.state.AvailableSlots--
		s.state.Bookings = append(s.state.Bookings, b)
		promoted = &b
	}
	snapshot := s.commit(ctx)
	s.mu.Unlock()

	if promoted != nil {
		s.log.Info("booking cancelled, promoted from waiting list",
			zap.String("cancelled", id), zap.String("promoted", promoted.ID))
		s.notifier.Push(fmt.Sprintf(msgPromotedFmt, promoted.Name), model.SeverityInfo)
		s.promoted(*promoted)
	} else {
		s.log.Info("booking cancelled", zap.String("id", id))
		s.notifier.Push(MsgCancelled, model.SeveritySuccess)
	}
	s.changed(snapshot)
	return CancelOutcome{Found: true, Promoted: promoted}
}

// Reset restores every slot and empties both lists.
func (s *System) Reset(ctx context.Context) {
	s.mu.Lock()
	s.state = model.InitialState(s.totalSlots)
	snapshot := s.commit(ctx)
	s.mu.Unlock()

	s.log.Info("booking system reset", zap.Int("total_slots", s.totalSlots))
	s.notifier.Push(MsgReset, model.SeverityInfo)
	s.changed(snapshot)
}

// Close writes a final snapshot and detaches every listener. Unlike the
// per-mutation flush, a failed write is returned.
func (s *System) Close(ctx context.Context) error {
	s.listenersMu.Lock()
	s.onChange = nil
	s.onPromote = nil
	s.listenersMu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := json.Marshal(s.state)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := s.store.Save(ctx, s.key, data); err != nil {
		return fmt.Errorf("failed to persist final snapshot: %w", err)
	}
	return nil
}

func (s *System) newBooking(name, email string) model.Booking {
	return model.Booking{
		ID:        s.newID(),
		Name:      name,
		Email:     email,
		Timestamp: s.now().UnixMilli(),
	}
}

// commit writes the snapshot and returns a copy of the state. It must be
// called with s.mu held. Write failures are logged, never returned.
func (s *System) commit(ctx context.Context) model.BookingState {
	snapshot := s.state.Clone()
	data, err := json.Marshal(snapshot)
	if err != nil {
		s.log.Error("failed to encode snapshot", zap.Error(err))
		return snapshot
	}
	if err := s.store.Save(ctx, s.key, data); err != nil {
		s.log.Error("failed to persist snapshot", zap.String("key", s.key), zap.Error(err))
	}
	return snapshot
}

func (s *System) changed(state model.BookingState) {
	s.listenersMu.RLock()
	fns := append([]func(model.BookingState){}, s.onChange...)
	s.listenersMu.RUnlock()
	for _, fn := range fns {
		fn(state.Clone())
	}
}

func (s *System) promoted(b model.Booking) {
	s.listenersMu.RLock()
	fns := append([]func(model.Booking){}, s.onPromote...)
	s.listenersMu.RUnlock()
	for _, fn := range fns {
		fn(b)
	}
}
