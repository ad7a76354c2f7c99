package booking

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}

	testCases := []struct {
		name          string
		page, perPage int
		expectedItems []int
		expectedPage  int
		expectedPages int
	}{
		{name: "first page", page: 1, perPage: 5, expectedItems: []int{1, 2, 3, 4, 5}, expectedPage: 1, expectedPages: 3},
		{name: "last partial page", page: 3, perPage: 5, expectedItems: []int{11, 12}, expectedPage: 3, expectedPages: 3},
		{name: "page past the end is clamped", page: 9, perPage: 5, expectedItems: []int{11, 12}, expectedPage: 3, expectedPages: 3},
		{name: "page zero is clamped", page: 0, perPage: 5, expectedItems: []int{1, 2, 3, 4, 5}, expectedPage: 1, expectedPages: 3},
		{name: "default page size", page: 2, perPage: 0, expectedItems: []int{6, 7, 8, 9, 10}, expectedPage: 2, expectedPages: 3},
		{name: "exact fit", page: 2, perPage: 6, expectedItems: []int{7, 8, 9, 10, 11, 12}, expectedPage: 2, expectedPages: 2},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := Paginate(items, tc.page, tc.perPage)
			assert.Equal(t, tc.expectedItems, p.Items)
			assert.Equal(t, tc.expectedPage, p.Page)
			assert.Equal(t, tc.expectedPages, p.TotalPages)
			assert.Equal(t, len(items), p.Total)
		})
	}
}

func TestPaginate_Empty(t *testing.T) {
	p := Paginate([]string{}, 3, 5)
	assert.Empty(t, p.Items)
	assert.NotNil(t, p.Items)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 0, p.TotalPages)
	assert.Equal(t, 0, p.Total)
}

func TestSystem_Pages(t *testing.T) {
	f := newFixture(t, 7)
	ctx := context.Background()
	for i := 0; i < 7; i++ {
		f.sys.Book(ctx, fmt.Sprintf("u%d", i), "u@x")
	}
	for i := 0; i < 3; i++ {
		f.sys.JoinWaitingList(ctx, fmt.Sprintf("w%d", i), "w@x")
	}

	bookings := f.sys.Bookings(2, 5)
	assert.Equal(t, 7, bookings.Total)
	assert.Equal(t, []string{"u5", "u6"}, names(bookings.Items))

	waiting := f.sys.WaitingList(1, 5)
	assert.Equal(t, 3, waiting.Total)
	assert.Equal(t, 1, waiting.TotalPages)
	assert.Equal(t, "w0", waiting.Items[0].Name)
}
