package ratelimiter

import "time"

// Config describes a token bucket: how many tokens it holds, and how fast
// they refill.
type Config struct {
	// Capacity is the maximum number of tokens the bucket can hold.
	Capacity int
	// RefillRate is the number of tokens added per RefillInterval.
	RefillRate int
	// RefillInterval is how often RefillRate tokens are added.
	RefillInterval time.Duration
}

// Valid reports whether the configuration describes a usable bucket.
func (c Config) Valid() bool {
	return c.Capacity > 0 && c.RefillRate > 0 && c.RefillInterval > 0
}
