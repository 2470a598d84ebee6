package ratelimiter

import "context"

// Bucket implements RateLimiter against a pluggable Store, using the token
// bucket algorithm described in the package doc.
type Bucket struct {
	store  Store
	config Config
}

// NewBucket creates a RateLimiter backed by store, enforcing config on every
// key it sees.
func NewBucket(store Store, config Config) (*Bucket, error) {
	if store == nil {
		return nil, ErrStoreUnavailable
	}
	if !config.Valid() {
		return nil, ErrInvalidConfig
	}
	return &Bucket{store: store, config: config}, nil
}

// Allow consumes a single token for key.
func (b *Bucket) Allow(ctx context.Context, key string) (Result, error) {
	return b.AllowN(ctx, key, 1)
}

// AllowN consumes n tokens for key. n must be positive.
func (b *Bucket) AllowN(ctx context.Context, key string, n int) (Result, error) {
	if n <= 0 {
		return Result{}, ErrInvalidTokenCount
	}

	select {
	case <-ctx.Done():
		return Result{}, ErrContextCancelled
	default:
	}

	remaining, resetAt, err := b.store.ConsumeTokens(ctx, key, n, b.config)
	if err != nil {
		return Result{}, err
	}

	return Result{
		allowed:   remaining >= 0,
		remaining: remaining,
		resetAt:   resetAt,
	}, nil
}

// Status reports a key's current bucket state without consuming any
// tokens.
func (b *Bucket) Status(ctx context.Context, key string) (Result, error) {
	select {
	case <-ctx.Done():
		return Result{}, ErrContextCancelled
	default:
	}

	remaining, resetAt, err := b.store.ConsumeTokens(ctx, key, 0, b.config)
	if err != nil {
		return Result{}, err
	}

	return Result{
		allowed:   remaining >= 0,
		remaining: remaining,
		resetAt:   resetAt,
	}, nil
}

// Reset clears the bucket state for key, as if it had never been consumed.
func (b *Bucket) Reset(ctx context.Context, key string) error {
	return b.store.Reset(ctx, key)
}
