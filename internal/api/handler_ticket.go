package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"event-booking-backend/internal/mw"
	"event-booking-backend/internal/model"
	"event-booking-backend/internal/ticket"
)

func (h *Handler) lookupBooking(c *gin.Context) (model.Booking, bool) {
	b, err := h.system.Booking(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "booking not found"})
		return model.Booking{}, false
	}
	return b, true
}

// GetQRCode handles GET /api/bookings/:id/qrcode.
func (h *Handler) GetQRCode(c *gin.Context) {
	b, ok := h.lookupBooking(c)
	if !ok {
		return
	}
	png, err := ticket.QRCode(b)
	if err != nil {
		mw.Logger(c).Error("qr code generation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate QR code"})
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// GetTicket handles GET /api/bookings/:id/ticket.
func (h *Handler) GetTicket(c *gin.Context) {
	b, ok := h.lookupBooking(c)
	if !ok {
		return
	}
	doc, err := ticket.PDF(h.title, b)
	if err != nil {
		mw.Logger(c).Error("ticket generation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate PDF"})
		return
	}
	c.Header("Content-Disposition", "attachment; filename=ticket-"+b.ID+".pdf")
	c.Data(http.StatusOK, "application/pdf", doc)
}
