// Package ratelimiter provides token bucket rate limiting with pluggable storage backends.
//
// It is used by core/dumpguard to throttle how often minidumps are written during a crash
// loop, but nothing here is collector-specific: it is a general purpose token bucket with
// in-memory and Redis-backed stores.
//
// # Token Bucket Algorithm
//
// The token bucket algorithm works by:
//  1. Maintaining a bucket with a fixed capacity of tokens
//  2. Adding tokens to the bucket at a constant rate (refill rate)
//  3. Consuming tokens when requests are made
//  4. Allowing requests only when sufficient tokens are available
//  5. Dropping tokens that exceed bucket capacity (burst control)
//
// This algorithm naturally supports burst traffic while maintaining average rate limits.
//
// # Core Types
//
// RateLimiter defines the contract consumers use to gate work:
//   - Allow(ctx, key): consume 1 token
//   - AllowN(ctx, key, n): consume n tokens
//   - Reset(ctx, key): clear a key's bucket state
//
// Bucket implements RateLimiter with:
//   - Configurable capacity and refill parameters
//   - A pluggable Store (MemoryStore or RedisStore)
//
// # Usage
//
//	store := ratelimiter.NewMemoryStore()
//
//	config := ratelimiter.Config{
//		Capacity:       10,
//		RefillRate:     1,
//		RefillInterval: time.Minute,
//	}
//
//	limiter, err := ratelimiter.NewBucket(store, config)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := limiter.Allow(ctx, "dump:"+rootPID.String())
//	if err != nil {
//		log.Printf("rate limiter error: %v", err)
//		return
//	}
//
//	if !result.Allowed() {
//		log.Printf("dump write suppressed, retry after: %v", result.RetryAfter())
//		return
//	}
//
// Bulk consumption, e.g. charging a larger weight for a full-process-tree dump:
//
//	result, err := limiter.AllowN(ctx, "dump:"+rootPID.String(), 3)
//
// # Storage Backends
//
// MemoryStore keeps buckets in a single process. It is the default, fast, with no external
// dependency, but not shared across collector instances and lost on restart.
//
// RedisStore, built on github.com/redis/go-redis/v9, executes the refill-and-consume
// arithmetic as a single Lua script so concurrent collector instances sharing one Redis
// database still see a consistent bucket:
//
//	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	store := ratelimiter.NewRedisStore(client, ratelimiter.WithRedisKeyPrefix("nativecov:"))
//	limiter, err := ratelimiter.NewBucket(store, config)
//
// # Error Handling
//
// The package defines sentinel errors for invalid configuration (ErrInvalidConfig), bad
// arguments (ErrInvalidTokenCount), a cancelled context (ErrContextCancelled), and a failed
// store (ErrStoreUnavailable). Store backend errors that do not map to one of these are
// returned as-is.
package ratelimiter
