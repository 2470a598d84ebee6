package ratelimiter

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// refillScript implements the same token bucket arithmetic as MemoryStore,
// but atomically inside Redis so multiple processes can share one bucket.
// KEYS[1] is the bucket hash key; it stores "tokens" and "refilled_at".
var refillScript = redis.NewScript(`
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local refillRate = tonumber(ARGV[2])
local refillIntervalMs = tonumber(ARGV[3])
local requested = tonumber(ARGV[4])
local nowMs = tonumber(ARGV[5])
local ttlSeconds = tonumber(ARGV[6])

local tokens = capacity
local refilledAt = nowMs

local existing = redis.call("HMGET", key, "tokens", "refilled_at")
if existing[1] then
	tokens = tonumber(existing[1])
	refilledAt = tonumber(existing[2])

	local elapsed = nowMs - refilledAt
	local intervals = math.floor(elapsed / refillIntervalMs)
	if intervals > 0 then
		tokens = math.min(tokens + intervals * refillRate, capacity)
		refilledAt = refilledAt + intervals * refillIntervalMs
	end
end

tokens = tokens - requested

redis.call("HMSET", key, "tokens", tokens, "refilled_at", refilledAt)
redis.call("EXPIRE", key, ttlSeconds)

return {tokens, refilledAt}
`)

// RedisStore implements Store on top of go-redis, so a rate limit can be
// shared by every instance of a horizontally scaled collector.
type RedisStore struct {
	client redis.Cmdable
	prefix string
}

// RedisStoreOption configures a RedisStore.
type RedisStoreOption func(*RedisStore)

// WithRedisKeyPrefix namespaces every bucket key, to share a Redis instance
// across unrelated rate limiters.
func WithRedisKeyPrefix(prefix string) RedisStoreOption {
	return func(s *RedisStore) { s.prefix = prefix }
}

// NewRedisStore wraps an existing go-redis client. The client's lifecycle
// (including Close) remains the caller's responsibility.
func NewRedisStore(client redis.Cmdable, opts ...RedisStoreOption) *RedisStore {
	s := &RedisStore{client: client, prefix: "ratelimit:"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) ConsumeTokens(ctx context.Context, key string, tokens int, config Config) (int, time.Time, error) {
	now := time.Now()
	ttl := config.RefillInterval * time.Duration(config.Capacity/max(config.RefillRate, 1)+2)

	res, err := refillScript.Run(ctx, s.client, []string{s.prefix + key},
		config.Capacity,
		config.RefillRate,
		config.RefillInterval.Milliseconds(),
		tokens,
		now.UnixMilli(),
		int64(ttl.Seconds())+1,
	).Result()
	if err != nil {
		return 0, time.Time{}, ErrStoreUnavailable
	}

	values, ok := res.([]any)
	if !ok || len(values) != 2 {
		return 0, time.Time{}, ErrStoreUnavailable
	}

	remaining := toInt64(values[0])
	refilledAtMs := toInt64(values[1])
	resetAt := time.UnixMilli(refilledAtMs).Add(config.RefillInterval)

	return int(remaining), resetAt, nil
}

func (s *RedisStore) Reset(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key).Err()
}

// toInt64 normalizes the numeric types the redis client returns for Lua
// script results (int64 over most clients, but be defensive).
func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	default:
		return 0
	}
}
