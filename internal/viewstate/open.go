package viewstate

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Backend names.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config selects and configures a store backend.
type Config struct {
	Backend       string
	RedisURL      string
	RedisPrefix   string
	TTL           time.Duration
	SweepSchedule string
	Logger        *slog.Logger
}

// Open creates the store named by cfg.Backend. An empty backend selects
// the memory store.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case "", BackendMemory:
		return NewMemoryStore(cfg.TTL, cfg.SweepSchedule, WithLogger(cfg.Logger))
	case BackendRedis:
		return NewRedisStore(ctx, cfg.RedisURL, cfg.RedisPrefix, cfg.TTL)
	default:
		return nil, fmt.Errorf("unknown view state backend %q", cfg.Backend)
	}
}
