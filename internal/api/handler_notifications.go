package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListNotifications handles GET /api/notifications.
func (h *Handler) ListNotifications(c *gin.Context) {
	c.JSON(http.StatusOK, h.queue.List())
}

// DismissNotification handles DELETE /api/notifications/:id.
func (h *Handler) DismissNotification(c *gin.Context) {
	if !h.queue.Dismiss(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

// Stream handles GET /api/ws.
func (h *Handler) Stream(c *gin.Context) {
	if h.hub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "live updates are not enabled"})
		return
	}
	h.hub.ServeHTTP(c.Writer, c.Request)
}
