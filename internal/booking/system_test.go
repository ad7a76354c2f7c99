package booking

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"event-booking-backend/internal/model"
	"event-booking-backend/internal/parse"
	"event-booking-backend/internal/store"
)

const testKey = "event-booking-system"

// recordingNotifier keeps every pushed notification.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []model.Notification
}

func (r *recordingNotifier) Push(message string, severity model.Severity) model.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := model.Notification{ID: fmt.Sprintf("n%d", len(r.sent)+1), Message: message, Type: severity}
	r.sent = append(r.sent, n)
	return n
}

func (r *recordingNotifier) Last() model.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sent[len(r.sent)-1]
}

func (r *recordingNotifier) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

// failingStore loads nothing and refuses every write.
type failingStore struct{ loadErr error }

func (f failingStore) Load(context.Context, string) ([]byte, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return nil, store.ErrSnapshotNotFound
}

func (f failingStore) Save(context.Context, string, []byte) error {
	return errors.New("disk full")
}

type fixture struct {
	sys      *System
	store    *store.MemoryStore
	notifier *recordingNotifier
}

func newFixture(t *testing.T, totalSlots int) fixture {
	t.Helper()
	mem := store.NewMemoryStore()
	return newFixtureWithStore(t, totalSlots, mem)
}

func newFixtureWithStore(t *testing.T, totalSlots int, mem *store.MemoryStore) fixture {
	t.Helper()
	notifier := &recordingNotifier{}
	var seq int
	clock := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	sys, err := New(context.Background(), Options{
		TotalSlots: totalSlots,
		Store:      mem,
		Key:        testKey,
		Notifier:   notifier,
		Now: func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		},
		NewID: func() string {
			seq++
			return fmt.Sprintf("id-%d", seq)
		},
	})
	require.NoError(t, err)
	return fixture{sys: sys, store: mem, notifier: notifier}
}

func assertSlotInvariant(t *testing.T, sys *System) {
	t.Helper()
	st := sys.State()
	assert.Equal(t, sys.TotalSlots(), st.AvailableSlots+len(st.Bookings), "availableSlots + bookings must equal total slots")
	assert.GreaterOrEqual(t, st.AvailableSlots, 0)
}

func names(bookings []model.Booking) []string {
	out := make([]string, len(bookings))
	for i, b := range bookings {
		out[i] = b.Name
	}
	return out
}

func TestNew_InitialState(t *testing.T) {
	f := newFixture(t, 10)

	st := f.sys.State()
	assert.Equal(t, 10, st.AvailableSlots)
	assert.Empty(t, st.Bookings)
	assert.Empty(t, st.WaitingList)
	assert.Equal(t, 0, f.store.Saves(), "hydration does not write")
}

func TestNew_RejectsBadOptions(t *testing.T) {
	_, err := New(context.Background(), Options{TotalSlots: -1, Key: testKey})
	assert.Error(t, err)

	_, err = New(context.Background(), Options{TotalSlots: 1})
	assert.Error(t, err)

	_, err = New(context.Background(), Options{TotalSlots: 1, Key: testKey, Store: failingStore{loadErr: errors.New("timeout")}})
	assert.ErrorContains(t, err, "timeout")
}

func TestBook_Success(t *testing.T) {
	f := newFixture(t, 10)

	res, err := f.sys.Book(context.Background(), "John Doe", "john@example.com")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, MsgBooked, res.Message)
	require.NotNil(t, res.Booking)
	assert.Equal(t, "id-1", res.Booking.ID)

	st := f.sys.State()
	assert.Equal(t, 9, st.AvailableSlots)
	require.Len(t, st.Bookings, 1)
	assert.Equal(t, "John Doe", st.Bookings[0].Name)
	assert.Equal(t, "john@example.com", st.Bookings[0].Email)
	assert.NotZero(t, st.Bookings[0].Timestamp)

	assert.Equal(t, model.Notification{ID: "n1", Message: MsgBooked, Type: model.SeveritySuccess}, f.notifier.Last())
	assert.Equal(t, 1, f.store.Saves())
}

func TestBook_NoSlotsNeverMutates(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()

	_, err := f.sys.Book(ctx, "A", "a@x")
	require.NoError(t, err)
	before := f.sys.State()
	saves := f.store.Saves()

	for i := 0; i < 3; i++ {
		res, err := f.sys.Book(ctx, "B", "b@x")
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, MsgNoSlots, res.Message)
		assert.Nil(t, res.Booking)
	}

	assert.Equal(t, before, f.sys.State())
	assert.Equal(t, saves, f.store.Saves())
	assert.Equal(t, model.SeverityError, f.notifier.Last().Type)
	assert.Equal(t, MsgNoSlots, f.notifier.Last().Message)
}

func TestBook_ZeroCapacity(t *testing.T) {
	f := newFixture(t, 0)

	res, err := f.sys.Book(context.Background(), "A", "a@x")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assertSlotInvariant(t, f.sys)
}

func TestBook_InvalidContact(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()

	_, err := f.sys.Book(ctx, "", "a@x")
	assert.ErrorIs(t, err, ErrInvalidContact)
	assert.ErrorIs(t, err, parse.ErrMissingName)

	_, err = f.sys.JoinWaitingList(ctx, "A", "  ")
	assert.ErrorIs(t, err, ErrInvalidContact)
	assert.ErrorIs(t, err, parse.ErrMissingEmail)

	assert.Equal(t, model.InitialState(2), f.sys.State())
	assert.Equal(t, 0, f.notifier.Count())
}

func TestJoinWaitingList_AppendsInOrder(t *testing.T) {
	f := newFixture(t, 5) // free slots do not block joining
	ctx := context.Background()

	for _, n := range []string{"first", "second", "third"} {
		res, err := f.sys.JoinWaitingList(ctx, n, n+"@x")
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, MsgWaitlisted, res.Message)
		require.NotNil(t, res.Entry)
	}

	st := f.sys.State()
	require.Len(t, st.WaitingList, 3)
	assert.Equal(t, "first", st.WaitingList[0].Name)
	assert.Equal(t, "third", st.WaitingList[2].Name)
	assert.Equal(t, 5, st.AvailableSlots)
	assert.Equal(t, model.SeveritySuccess, f.notifier.Last().Type)
}

func TestCancelBooking_UnknownIDIsNoop(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()
	_, err := f.sys.Book(ctx, "A", "a@x")
	require.NoError(t, err)

	before := f.sys.State()
	saves, sent := f.store.Saves(), f.notifier.Count()

	outcome := f.sys.CancelBooking(ctx, "does-not-exist")
	assert.False(t, outcome.Found)
	assert.Nil(t, outcome.Promoted)
	assert.Equal(t, before, f.sys.State())
	assert.Equal(t, saves, f.store.Saves())
	assert.Equal(t, sent, f.notifier.Count())
}

func TestCancelBooking_WithoutWaitingList(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	res, err := f.sys.Book(ctx, "John Doe", "john@example.com")
	require.NoError(t, err)

	outcome := f.sys.CancelBooking(ctx, res.Booking.ID)
	assert.True(t, outcome.Found)
	assert.Nil(t, outcome.Promoted)

	st := f.sys.State()
	assert.Equal(t, 10, st.AvailableSlots)
	assert.Empty(t, st.Bookings)
	assert.Equal(t, MsgCancelled, f.notifier.Last().Message)
	assert.Equal(t, model.SeveritySuccess, f.notifier.Last().Type)
}

func TestCancelBooking_PromotesHead(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()

	a, _ := f.sys.Book(ctx, "A", "a@x")
	f.sys.Book(ctx, "B", "b@x")
	f.sys.JoinWaitingList(ctx, "C", "c@x")
	f.sys.JoinWaitingList(ctx, "D", "d@x")

	var promotedViaHook []model.Booking
	f.sys.OnPromote(func(b model.Booking) { promotedViaHook = append(promotedViaHook, b) })

	before := f.sys.State()
	outcome := f.sys.CancelBooking(ctx, a.Booking.ID)
	after := f.sys.State()

	assert.True(t, outcome.Found)
	require.NotNil(t, outcome.Promoted)
	assert.Equal(t, len(before.WaitingList)-1, len(after.WaitingList))
	assert.Equal(t, len(before.Bookings), len(after.Bookings))
	assert.Equal(t, before.AvailableSlots, after.AvailableSlots)

	promoted := after.Bookings[len(after.Bookings)-1]
	assert.Equal(t, before.WaitingList[0].Name, promoted.Name)
	assert.Equal(t, before.WaitingList[0].Email, promoted.Email)
	assert.NotEqual(t, before.WaitingList[0].ID, promoted.ID, "promotion creates a fresh booking id")
	assert.Equal(t, "D", after.WaitingList[0].Name)

	assert.Equal(t, "C has been promoted from the waiting list.", f.notifier.Last().Message)
	assert.Equal(t, model.SeverityInfo, f.notifier.Last().Type)
	require.Len(t, promotedViaHook, 1)
	assert.Equal(t, promoted, promotedViaHook[0])
}

func TestScenario_TwoSlots(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()

	a, err := f.sys.Book(ctx, "A", "a@x")
	require.NoError(t, err)
	_, err = f.sys.Book(ctx, "B", "b@x")
	require.NoError(t, err)

	st := f.sys.State()
	assert.Equal(t, 0, st.AvailableSlots)
	assert.Len(t, st.Bookings, 2)

	res, err := f.sys.Book(ctx, "C", "c@x")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "No slots available. Try joining the waiting list.", res.Message)
	assert.Len(t, f.sys.State().Bookings, 2)

	_, err = f.sys.JoinWaitingList(ctx, "C", "c@x")
	require.NoError(t, err)
	assert.Len(t, f.sys.State().WaitingList, 1)

	f.sys.CancelBooking(ctx, a.Booking.ID)

	st = f.sys.State()
	assert.Equal(t, 0, st.AvailableSlots)
	assert.Equal(t, []string{"B", "C"}, names(st.Bookings))
	assert.Empty(t, st.WaitingList)
}

func TestReset(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()
	f.sys.Book(ctx, "A", "a@x")
	f.sys.JoinWaitingList(ctx, "B", "b@x")

	f.sys.Reset(ctx)
	assert.Equal(t, model.InitialState(3), f.sys.State())
	assert.Equal(t, MsgReset, f.notifier.Last().Message)
	assert.Equal(t, model.SeverityInfo, f.notifier.Last().Type)

	// Reset of an already empty system still yields the same state.
	f.sys.Reset(ctx)
	assert.Equal(t, model.InitialState(3), f.sys.State())
}

func TestPersistence_RoundTrip(t *testing.T) {
	mem := store.NewMemoryStore()
	f := newFixtureWithStore(t, 3, mem)
	ctx := context.Background()
	f.sys.Book(ctx, "A", "a@x")
	f.sys.JoinWaitingList(ctx, "B", "b@x")

	reopened := newFixtureWithStore(t, 3, mem)
	assert.Equal(t, f.sys.State(), reopened.sys.State())

	data, err := mem.Load(ctx, testKey)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"availableSlots":2`)
	assert.Contains(t, string(data), `"waitingList":[`)
}

func TestHydrate_CorruptSnapshot(t *testing.T) {
	ctx := context.Background()

	t.Run("unparsable JSON starts empty", func(t *testing.T) {
		mem := store.NewMemoryStore()
		require.NoError(t, mem.Save(ctx, testKey, []byte("{not json")))
		f := newFixtureWithStore(t, 4, mem)
		assert.Equal(t, model.InitialState(4), f.sys.State())
	})

	t.Run("parseable data is loaded without validation", func(t *testing.T) {
		mem := store.NewMemoryStore()
		require.NoError(t, mem.Save(ctx, testKey, []byte(`{"availableSlots":7}`)))
		f := newFixtureWithStore(t, 4, mem)
		st := f.sys.State()
		assert.Equal(t, 7, st.AvailableSlots)
		assert.NotNil(t, st.Bookings)
		assert.NotNil(t, st.WaitingList)
	})
}

func TestPersistence_WriteFailureIsNotSurfaced(t *testing.T) {
	sys, err := New(context.Background(), Options{TotalSlots: 1, Key: testKey, Store: failingStore{}})
	require.NoError(t, err)

	res, err := sys.Book(context.Background(), "A", "a@x")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 0, sys.State().AvailableSlots)
}

func TestState_ReturnsCopy(t *testing.T) {
	f := newFixture(t, 2)
	f.sys.Book(context.Background(), "A", "a@x")

	st := f.sys.State()
	st.Bookings[0].Name = "mutated"
	st.AvailableSlots = 99

	assert.Equal(t, "A", f.sys.State().Bookings[0].Name)
	assert.Equal(t, 1, f.sys.State().AvailableSlots)
}

func TestBookingLookup(t *testing.T) {
	f := newFixture(t, 2)
	res, _ := f.sys.Book(context.Background(), "A", "a@x")

	b, err := f.sys.Booking(res.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, "A", b.Name)

	_, err = f.sys.Booking("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOnChange_CalledAfterEveryMutation(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()

	var seen []int
	f.sys.OnChange(func(st model.BookingState) { seen = append(seen, st.AvailableSlots) })

	a, _ := f.sys.Book(ctx, "A", "a@x")
	f.sys.Book(ctx, "B", "b@x") // rejected, no change
	f.sys.JoinWaitingList(ctx, "B", "b@x")
	f.sys.CancelBooking(ctx, "unknown")
	f.sys.CancelBooking(ctx, a.Booking.ID)
	f.sys.Reset(ctx)

	assert.Equal(t, []int{0, 0, 0, 1}, seen)
}

func TestClose_FlushesAndDetachesListeners(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()

	calls := 0
	f.sys.OnChange(func(model.BookingState) { calls++ })
	f.sys.Book(ctx, "A", "a@x")
	saves := f.store.Saves()

	require.NoError(t, f.sys.Close(ctx))
	assert.Equal(t, saves+1, f.store.Saves())

	f.sys.Book(ctx, "B", "b@x")
	assert.Equal(t, 1, calls)

	sys, err := New(ctx, Options{TotalSlots: 1, Key: testKey, Store: failingStore{}})
	require.NoError(t, err)
	assert.Error(t, sys.Close(ctx))
}

// Random operation sequences never break the slot invariant or duplicate ids.
func TestInvariant_RandomOperations(t *testing.T) {
	f := newFixture(t, 4)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 500; i++ {
		st := f.sys.State()
		switch rng.Intn(5) {
		case 0, 1:
			f.sys.Book(ctx, fmt.Sprintf("u%d", i), fmt.Sprintf("u%d@x", i))
		case 2:
			f.sys.JoinWaitingList(ctx, fmt.Sprintf("w%d", i), fmt.Sprintf("w%d@x", i))
		case 3:
			if len(st.Bookings) > 0 {
				f.sys.CancelBooking(ctx, st.Bookings[rng.Intn(len(st.Bookings))].ID)
			} else {
				f.sys.CancelBooking(ctx, "missing")
			}
		case 4:
			if rng.Intn(10) == 0 {
				f.sys.Reset(ctx)
			}
		}

		assertSlotInvariant(t, f.sys)
		after := f.sys.State()
		ids := make(map[string]struct{})
		for _, b := range after.Bookings {
			ids[b.ID] = struct{}{}
		}
		for _, w := range after.WaitingList {
			ids[w.ID] = struct{}{}
		}
		require.Len(t, ids, len(after.Bookings)+len(after.WaitingList), "ids must be unique")
	}
}

func TestConcurrentBookingsRespectCapacity(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			f.sys.Book(ctx, fmt.Sprintf("u%d", i), "u@x")
		}(i)
	}
	wg.Wait()

	st := f.sys.State()
	assert.Equal(t, 0, st.AvailableSlots)
	assert.Len(t, st.Bookings, 10)
}
