package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"event-booking-backend/internal/booking"
	"event-booking-backend/internal/model"
	"event-booking-backend/internal/mw"
)

type contactRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type stateResponse struct {
	TotalSlots     int                      `json:"totalSlots"`
	AvailableSlots int                      `json:"availableSlots"`
	Bookings       []model.Booking          `json:"bookings"`
	WaitingList    []model.WaitingListEntry `json:"waitingList"`
}

// GetState handles GET /api/state.
func (h *Handler) GetState(c *gin.Context) {
	st := h.system.State()
	c.JSON(http.StatusOK, stateResponse{
		TotalSlots:     h.system.TotalSlots(),
		AvailableSlots: st.AvailableSlots,
		Bookings:       st.Bookings,
		WaitingList:    st.WaitingList,
	})
}

func (h *Handler) pageParams(c *gin.Context) (int, int, bool) {
	page, perPage := 1, h.pageSize
	if raw := c.Query("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid page"})
			return 0, 0, false
		}
		page = n
	}
	if raw := c.Query("per_page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 100 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "per_page must be between 1 and 100"})
			return 0, 0, false
		}
		perPage = n
	}
	return page, perPage, true
}

// ListBookings handles GET /api/bookings.
func (h *Handler) ListBookings(c *gin.Context) {
	page, perPage, ok := h.pageParams(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.system.Bookings(page, perPage))
}

// ListWaitingList handles GET /api/waitlist.
func (h *Handler) ListWaitingList(c *gin.Context) {
	page, perPage, ok := h.pageParams(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.system.WaitingList(page, perPage))
}

// CreateBooking handles POST /api/bookings.
func (h *Handler) CreateBooking(c *gin.Context) {
	var req contactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	res, err := h.system.Book(c.Request.Context(), req.Name, req.Email)
	if err != nil {
		h.contactError(c, err)
		return
	}
	if !res.Success {
		c.JSON(http.StatusConflict, res)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// JoinWaitingList handles POST /api/waitlist.
func (h *Handler) JoinWaitingList(c *gin.Context) {
	var req contactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	res, err := h.system.JoinWaitingList(c.Request.Context(), req.Name, req.Email)
	if err != nil {
		h.contactError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) contactError(c *gin.Context, err error) {
	if errors.Is(err, booking.ErrInvalidContact) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	mw.Logger(c).Error("unexpected booking error", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

// CancelBooking handles DELETE /api/bookings/:id. Unknown ids succeed too.
func (h *Handler) CancelBooking(c *gin.Context) {
	h.system.CancelBooking(c.Request.Context(), c.Param("id"))
	c.Status(http.StatusNoContent)
}

// Reset handles POST /api/reset.
func (h *Handler) Reset(c *gin.Context) {
	h.system.Reset(c.Request.Context())
	c.Status(http.StatusNoContent)
}
