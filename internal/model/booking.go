package model

// Booking is a confirmed reservation of one slot.
type Booking struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Timestamp int64  `json:"timestamp"` // Unix milliseconds
}

// WaitingListEntry is a queued request for a slot. Same shape as Booking.
type WaitingListEntry struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Timestamp int64  `json:"timestamp"`
}

// BookingState is the whole persisted state of an event.
type BookingState struct {
	AvailableSlots int                `json:"availableSlots"`
	Bookings       []Booking          `json:"bookings"`
	WaitingList    []WaitingListEntry `json:"waitingList"`
}

// InitialState returns an empty event with every slot available.
func InitialState(totalSlots int) BookingState {
	return BookingState{
		AvailableSlots: totalSlots,
		Bookings:       []Booking{},
		WaitingList:    []WaitingListEntry{},
	}
}

// Clone returns a deep copy so callers never share slices with the owner.
func (s BookingState) Clone() BookingState {
	out := BookingState{
		AvailableSlots: s.AvailableSlots,
		Bookings:       make([]Booking, len(s.Bookings)),
		WaitingList:    make([]WaitingListEntry, len(s.WaitingList)),
	}
	copy(out.Bookings, s.Bookings)
	copy(out.WaitingList, s.WaitingList)
	return out
}
