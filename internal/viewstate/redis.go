package viewstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces view state keys.
const DefaultRedisPrefix = "datatable:view:"

// redisClient is the subset of redis.Cmdable the store uses.
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// RedisStore keeps state in Redis as JSON, so several server instances see
// the same view state.
type RedisStore struct {
	client redisClient
	closer func() error
	prefix string
	ttl    time.Duration
	closed atomic.Bool
}

// NewRedisStore connects to the Redis server at rawURL.
func NewRedisStore(ctx context.Context, rawURL, prefix string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	s := newRedisStore(client, prefix, ttl)
	s.closer = client.Close
	return s, nil
}

func newRedisStore(client redisClient, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (r *RedisStore) key(key string) string { return r.prefix + key }

// Load reads and decodes the state under key and refreshes its TTL.
func (r *RedisStore) Load(ctx context.Context, key string) (*State, error) {
	if r.closed.Load() {
		return nil, ErrClosed
	}
	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get view state: %w", err)
	}

	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode view state: %w", err)
	}
	if r.ttl > 0 {
		if err := r.client.Expire(ctx, r.key(key), r.ttl).Err(); err != nil {
			return nil, fmt.Errorf("refresh view state ttl: %w", err)
		}
	}
	return &s, nil
}

// Save encodes s and stores it with the configured TTL.
func (r *RedisStore) Save(ctx context.Context, key string, s *State) error {
	if r.closed.Load() {
		return ErrClosed
	}
	data, err := json.Marshal(s.Clone())
	if err != nil {
		return fmt.Errorf("encode view state: %w", err)
	}
	if err := r.client.Set(ctx, r.key(key), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("set view state: %w", err)
	}
	return nil
}

// Delete removes key.
func (r *RedisStore) Delete(ctx context.Context, key string) error {
	if r.closed.Load() {
		return ErrClosed
	}
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("delete view state: %w", err)
	}
	return nil
}

// Close closes the client when the store created it.
func (r *RedisStore) Close() error {
	if r.closed.Swap(true) || r.closer == nil {
		return nil
	}
	return r.closer()
}
