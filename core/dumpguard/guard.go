// Package dumpguard throttles minidump writes so a process stuck in a crash
// loop cannot exhaust disk space: each crashing process gets its own token
// bucket, built on pkg/ratelimiter.
package dumpguard

import (
	"context"
	"fmt"
	"time"

	"github.com/nativecov/nativecov/pkg/ratelimiter"
)

// DefaultConfig limits a single process (keyed by pid) to 5 dumps per minute, which
// comfortably covers a flapping crash handler without filling the disk.
var DefaultConfig = ratelimiter.Config{
	Capacity:       5,
	RefillRate:     5,
	RefillInterval: time.Minute,
}

// Guard decides whether a minidump should be captured for a given process.
type Guard struct {
	limiter ratelimiter.RateLimiter
}

// New builds a Guard backed by store, enforcing config per process key.
// Pass ratelimiter.NewMemoryStore() for a single collector instance, or a
// ratelimiter.NewRedisStore to share the guard across a fleet of them.
func New(store ratelimiter.Store, config ratelimiter.Config) (*Guard, error) {
	limiter, err := ratelimiter.NewBucket(store, config)
	if err != nil {
		return nil, fmt.Errorf("dumpguard: %w", err)
	}
	return &Guard{limiter: limiter}, nil
}

// Allow reports whether a dump may be written for pid right now, and how
// long the caller should wait before the next attempt if not.
func (g *Guard) Allow(ctx context.Context, pid uint32) (bool, time.Duration, error) {
	result, err := g.limiter.Allow(ctx, processKey(pid))
	if err != nil {
		return false, 0, fmt.Errorf("dumpguard: %w", err)
	}
	return result.Allowed(), result.RetryAfter(), nil
}

// Reset clears the throttling state for pid, e.g. once its process tree has
// exited and its pid may be legitimately reused.
func (g *Guard) Reset(ctx context.Context, pid uint32) error {
	return g.limiter.Reset(ctx, processKey(pid))
}

func processKey(pid uint32) string {
	return fmt.Sprintf("dump:%d", pid)
}
