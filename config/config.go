package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultTotalSlots is used when neither the file nor TOTAL_SLOTS provide a usable value.
	DefaultTotalSlots = 10
	// DefaultSnapshotKey matches the storage key the browser widget used.
	DefaultSnapshotKey = "event-booking-system"
	// TotalSlotsEnv names the environment variable that overrides booking.total_slots.
	TotalSlotsEnv = "TOTAL_SLOTS"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Booking    BookingConfig    `yaml:"booking"`
	Store      StoreConfig      `yaml:"store"`
	Database   DatabaseConfig   `yaml:"database"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	Log        LogConfig        `yaml:"log"`
}

// WorkerPoolConfig holds the configuration for the push notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// Enabled reports whether both VAPID keys are configured.
func (p PushConfig) Enabled() bool {
	return p.PublicKey != "" && p.PrivateKey != ""
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int      `yaml:"port"`
	RateLimitPerSec float64  `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int      `yaml:"rate_limit_burst"`
	CacheTTLSeconds int      `yaml:"cache_ttl_seconds"`
	AllowedOrigins  []string `yaml:"allowed_origins"`
}

// BookingConfig controls slot capacity and notification lifetime.
type BookingConfig struct {
	// FileTotalSlots is nil when the file does not set total_slots, so that an
	// explicit 0 survives.
	FileTotalSlots         *int          `yaml:"total_slots"`
	TotalSlots             int           `yaml:"-"`
	NotificationTTLSeconds int           `yaml:"notification_ttl_seconds"`
	NotificationTTL        time.Duration `yaml:"-"`
	PageSize               int           `yaml:"page_size"`
}

// StoreConfig selects where the booking snapshot is kept.
type StoreConfig struct {
	Driver        string `yaml:"driver"` // memory, sqlite, postgres or redis
	DSN           string `yaml:"dsn"`
	Key           string `yaml:"key"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
}

// DatabaseConfig holds the connection pool settings for SQL drivers.
type DatabaseConfig struct {
	MaxOpenConns           int  `yaml:"max_open_conns"`
	MaxIdleConns           int  `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int  `yaml:"conn_max_lifetime_minutes"`
	Debug                  bool `yaml:"debug"`
}

// LogConfig selects the logger flavour.
type LogConfig struct {
	Env   string `yaml:"env"` // development or production
	Level string `yaml:"level"`
}

// Load reads the configuration from the given path. A missing file is not an
// error: defaults and environment overrides still apply.
func Load(path string) (*Config, error) {
	// .env is optional; values already in the environment win.
	_ = godotenv.Load()

	var cfg Config
	f, err := os.Open(path)
	switch {
	case err == nil:
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			return nil, err
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, err
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 60
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"*"}
	}

	cfg.Booking.TotalSlots = DefaultTotalSlots
	if n := cfg.Booking.FileTotalSlots; n != nil && *n >= 0 {
		cfg.Booking.TotalSlots = *n
	}
	cfg.Booking.TotalSlots = TotalSlotsFromEnv(os.Getenv(TotalSlotsEnv), cfg.Booking.TotalSlots)
	if cfg.Booking.NotificationTTLSeconds <= 0 {
		cfg.Booking.NotificationTTLSeconds = 5
	}
	cfg.Booking.NotificationTTL = time.Duration(cfg.Booking.NotificationTTLSeconds) * time.Second
	if cfg.Booking.PageSize <= 0 {
		cfg.Booking.PageSize = 5
	}

	if cfg.Store.Driver == "" {
		cfg.Store.Driver = "sqlite"
	}
	if cfg.Store.DSN == "" && cfg.Store.Driver == "sqlite" {
		cfg.Store.DSN = "booking.db"
	}
	if cfg.Store.Key == "" {
		cfg.Store.Key = DefaultSnapshotKey
	}
	if cfg.Store.RedisAddr == "" {
		cfg.Store.RedisAddr = "localhost:6379"
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}
	if cfg.WorkerPool.Size <= 0 {
		cfg.WorkerPool.Size = 1
	}

	if cfg.Log.Env == "" {
		cfg.Log.Env = "development"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

// TotalSlotsFromEnv parses the TOTAL_SLOTS value. An empty, unparsable or
// negative value yields DefaultTotalSlots, not the fallback from the file.
func TotalSlotsFromEnv(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return DefaultTotalSlots
	}
	return n
}
