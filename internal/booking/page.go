package booking

import "event-booking-backend/internal/model"

// DefaultPageSize matches the list size the booking widget renders.
const DefaultPageSize = 5

// Page is one window of an ordered list.
type Page[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	PerPage    int `json:"perPage"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// Paginate slices items into 1-based pages. page is clamped into
// [1, TotalPages]; a non-positive perPage uses DefaultPageSize.
func Paginate[T any](items []T, page, perPage int) Page[T] {
	if perPage <= 0 {
		perPage = DefaultPageSize
	}
	total := len(items)
	totalPages := (total + perPage - 1) / perPage

	if page > totalPages {
		page = totalPages
	}
	if page < 1 {
		page = 1
	}

	start := (page - 1) * perPage
	end := start + perPage
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	window := make([]T, end-start)
	copy(window, items[start:end])
	return Page[T]{
		Items:      window,
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	}
}

// Bookings returns one page of the booking list.
func (s *System) Bookings(page, perPage int) Page[model.Booking] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Paginate(s.state.Bookings, page, perPage)
}

// WaitingList returns one page of the waiting list, head first.
func (s *System) WaitingList(page, perPage int) Page[model.WaitingListEntry] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Paginate(s.state.WaitingList, page, perPage)
}
