package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"event-booking-backend/config"
	"event-booking-backend/internal/api"
	"event-booking-backend/internal/booking"
	"event-booking-backend/internal/db"
	"event-booking-backend/internal/logging"
	"event-booking-backend/internal/model"
	"event-booking-backend/internal/notification"
	"event-booking-backend/internal/store"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	logger.Info("configuration loaded",
		zap.String("path", configPath),
		zap.Int("total_slots", cfg.Booking.TotalSlots),
		zap.String("store", cfg.Store.Driver),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snapshots, gormDB, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open snapshot store", zap.Error(err))
	}

	queue := notification.NewQueue(cfg.Booking.NotificationTTL)
	defer queue.Close()

	system, err := booking.New(ctx, booking.Options{
		TotalSlots: cfg.Booking.TotalSlots,
		Store:      snapshots,
		Key:        cfg.Store.Key,
		Notifier:   queue,
		Logger:     logger,
	})
	if err != nil {
		logger.Fatal("failed to initialize booking system", zap.Error(err))
	}

	hub := notification.NewHub(logger, originChecker(cfg.Server.AllowedOrigins))
	defer hub.Close()
	events, unsubscribe := queue.Subscribe(64)
	defer unsubscribe()
	go hub.Run(ctx, events)
	system.OnChange(hub.BroadcastState)

	deps := api.Deps{
		System:   system,
		Queue:    queue,
		Hub:      hub,
		PageSize: cfg.Booking.PageSize,
	}
	if gormDB != nil {
		deps.Subscriptions = store.NewGormSubscriptionStore(gormDB)
	}
	if cfg.Push.Enabled() && deps.Subscriptions != nil {
		deps.WebPush = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		pool := notification.NewWorkerPool(cfg.WorkerPool.Size, deps.Subscriptions, deps.WebPush, logger)
		pool.Start(ctx)
		system.OnPromote(func(b model.Booking) { pool.Dispatch(b) })
		logger.Info("web push enabled", zap.Int("workers", cfg.WorkerPool.Size))
	} else {
		logger.Info("web push disabled: VAPID keys or a SQL store are missing")
	}

	router := api.NewRouter(api.NewHandler(deps), api.RouterOptions{
		RateLimitPerSec: cfg.Server.RateLimitPerSec,
		RateLimitBurst:  cfg.Server.RateLimitBurst,
		CacheTTL:        time.Duration(cfg.Server.CacheTTLSeconds) * time.Second,
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		Logger:          logger,
	})
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("HTTP server starting", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server ListenAndServe", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("shutdown signal received, stopping services")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	// Websocket connections are hijacked and not tracked by Shutdown.
	hub.Close()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server Shutdown", zap.Error(err))
	}
	if err := system.Close(shutdownCtx); err != nil {
		logger.Error("failed to close booking system", zap.Error(err))
	}
	logger.Info("server gracefully stopped")
}

// openStore returns the snapshot store for the configured driver. The gorm
// handle is nil unless the driver is SQL backed.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (store.Store, *gorm.DB, error) {
	switch cfg.Store.Driver {
	case "memory":
		logger.Warn("using in-memory snapshot store, state is lost on restart")
		return store.NewMemoryStore(), nil, nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Store.RedisAddr,
			Password: cfg.Store.RedisPassword,
			DB:       cfg.Store.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.Store.RedisAddr, err)
		}
		return store.NewRedisStore(client), nil, nil
	default:
		gormDB, err := db.Init(&cfg.Store, &cfg.Database, logger)
		if err != nil {
			return nil, nil, err
		}
		return store.NewGormStore(gormDB), gormDB, nil
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 || slices.Contains(allowed, "*") {
		return nil
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(allowed, origin)
	}
}
