package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"event-booking-backend/internal/model"
	"event-booking-backend/internal/mw"
)

// RouterOptions tunes the middleware stack.
type RouterOptions struct {
	RateLimitPerSec float64
	RateLimitBurst  int
	CacheTTL        time.Duration
	AllowedOrigins  []string
	Logger          *zap.Logger
}

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler, opts RouterOptions) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.RateLimitPerSec <= 0 {
		opts.RateLimitPerSec = 10
	}
	if opts.RateLimitBurst <= 0 {
		opts.RateLimitBurst = 5
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = time.Minute
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(mw.RequestLogger(opts.Logger.Named("http")))
	r.Use(cors.New(corsConfig(opts.AllowedOrigins)))

	rateLimiter := mw.RateLimiter(rate.Limit(opts.RateLimitPerSec), opts.RateLimitBurst)

	// Cached reads are dropped whenever the booking state changes.
	responseCache := mw.NewResponseCache(opts.CacheTTL)
	h.system.OnChange(func(model.BookingState) { responseCache.Flush() })
	caching := responseCache.Middleware()

	// Long-lived websocket connections stay outside the rate limited group.
	r.GET("/api/ws", h.Stream)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/state", caching, h.GetState)
		api.GET("/bookings", caching, h.ListBookings)
		api.POST("/bookings", h.CreateBooking)
		api.DELETE("/bookings/:id", h.CancelBooking)
		api.GET("/bookings/:id/qrcode", h.GetQRCode)
		api.GET("/bookings/:id/ticket", h.GetTicket)

		api.GET("/waitlist", caching, h.ListWaitingList)
		api.POST("/waitlist", h.JoinWaitingList)

		api.POST("/reset", h.Reset)

		api.GET("/notifications", h.ListNotifications)
		api.DELETE("/notifications/:id", h.DismissNotification)

		api.GET("/subscriptions", h.GetSubscription)
		api.PUT("/subscriptions", h.PutSubscription)
		api.DELETE("/subscriptions", h.DeleteSubscription)
		api.GET("/vapid_public_key", h.GetVAPIDPublicKey)
	}

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type"},
		ExposeHeaders: []string{"Content-Length", "Content-Disposition"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
