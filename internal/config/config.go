// Package config defines service configuration and its loading.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers a YAML file and CHECKERS_* env vars over the defaults.
// - Errors wrap ErrInvalidConfig or ErrLoadConfig.
package config

import (
	"fmt"
	"runtime"
	"sort"
	"time"

	"github.com/sbwgg/Checker-bot/internal/domain/model"
)

// Store backends.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects text or json output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// StoreBackend is one of memory, redis, postgres.
	StoreBackend string `koanf:"store_backend"`
	RedisAddr    string `koanf:"redis_addr"`
	RedisDB      int    `koanf:"redis_db"`
	PostgresURL  string `koanf:"postgres_url"`

	// QueueSize bounds the outbound notice queue.
	QueueSize int `koanf:"queue_size"`
	// WorkerCount sets the number of notifier workers.
	WorkerCount int `koanf:"worker_count"`
	// DedupeSize bounds the settlement claim recorder.
	DedupeSize int `koanf:"dedupe_size"`

	// TeamSize is the number of players per side.
	TeamSize      int `koanf:"team_size"`
	RatingKFactor int `koanf:"rating_k_factor"`
	RatingFloor   int `koanf:"rating_floor"`
	DefaultRating int `koanf:"default_rating"`

	// MapPool maps a map name to its type (Assault, Hybrid, Escort, Control).
	MapPool map[string]string `koanf:"map_pool"`
	// MapCandidates is how many maps each match votes on; 0 skips the map phase.
	MapCandidates int `koanf:"map_candidates"`
	// MapVoteWindowMS decides the map automatically after this long; 0 disables it.
	MapVoteWindowMS int `koanf:"map_vote_window_ms"`

	// WebhookURL, when set, sends notices to a webhook instead of the log.
	WebhookURL       string `koanf:"webhook_url"`
	WebhookTimeoutMS int    `koanf:"webhook_timeout_ms"`

	// MaxLadderLimit caps GET /ladder?limit.
	MaxLadderLimit int `koanf:"max_ladder_limit"`

	ShutdownTimeoutMS int `koanf:"shutdown_timeout_ms"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":9080",
		StoreBackend:      BackendMemory,
		RedisAddr:         "localhost:6379",
		QueueSize:         1024,
		WorkerCount:       runtime.NumCPU(),
		DedupeSize:        10_000,
		TeamSize:          5,
		RatingKFactor:     32,
		RatingFloor:       0,
		DefaultRating:     2000,
		MapPool:           defaultMapPool(),
		MapCandidates:     3,
		WebhookTimeoutMS:  3000,
		MaxLadderLimit:    100,
		ShutdownTimeoutMS: 10_000,
	}
}

func defaultMapPool() map[string]string {
	return map[string]string{
		"Hanamura":         "Assault",
		"Temple of Anubis": "Assault",
		"Numbani":          "Hybrid",
		"King's Row":       "Hybrid",
		"Dorado":           "Escort",
		"Route 66":         "Escort",
		"Ilios":            "Control",
		"Lijiang Tower":    "Control",
	}
}

// Maps returns the map pool sorted by name.
func (c *Config) Maps() ([]model.GameMap, error) {
	maps := make([]model.GameMap, 0, len(c.MapPool))
	for name, typ := range c.MapPool {
		t, ok := model.ParseMapType(typ)
		if !ok {
			return nil, fmt.Errorf("%w: map %q has unknown type %q", ErrInvalidConfig, name, typ)
		}
		maps = append(maps, model.GameMap{Name: name, Type: t})
	}
	sort.Slice(maps, func(i, j int) bool { return maps[i].Name < maps[j].Name })
	return maps, nil
}

// MapVoteWindow returns MapVoteWindowMS as a duration.
func (c *Config) MapVoteWindow() time.Duration {
	return time.Duration(c.MapVoteWindowMS) * time.Millisecond
}

// WebhookTimeout returns WebhookTimeoutMS as a duration.
func (c *Config) WebhookTimeout() time.Duration {
	return time.Duration(c.WebhookTimeoutMS) * time.Millisecond
}

// ShutdownTimeout returns ShutdownTimeoutMS as a duration.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutMS) * time.Millisecond
}

// Validate reports the first problem found.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.TeamSize < 1:
		return fmt.Errorf("%w: team_size must be positive", ErrInvalidConfig)
	case c.QueueSize < 1:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.RatingKFactor < 1:
		return fmt.Errorf("%w: rating_k_factor must be positive", ErrInvalidConfig)
	case c.RatingFloor < 0 || c.DefaultRating < c.RatingFloor:
		return fmt.Errorf("%w: default_rating must not be below rating_floor", ErrInvalidConfig)
	case c.MapCandidates < 0 || c.MapCandidates > len(c.MapPool):
		return fmt.Errorf("%w: map_candidates must be between 0 and the pool size", ErrInvalidConfig)
	case c.MapVoteWindowMS < 0 || c.WebhookTimeoutMS < 0 || c.ShutdownTimeoutMS < 0:
		return fmt.Errorf("%w: durations must not be negative", ErrInvalidConfig)
	}

	switch c.StoreBackend {
	case BackendMemory:
	case BackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("%w: redis_addr is required for the redis backend", ErrInvalidConfig)
		}
	case BackendPostgres:
		if c.PostgresURL == "" {
			return fmt.Errorf("%w: postgres_url is required for the postgres backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store_backend %q", ErrInvalidConfig, c.StoreBackend)
	}

	_, err := c.Maps()
	return err
}
