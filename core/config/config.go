package config

import (
	"fmt"
	"os"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	envFileOnce sync.Once

	cacheMu sync.RWMutex
	cache   = map[reflect.Type]any{}
)

// loadDotEnv loads a .env file from the working directory, if present.
// Missing files are not an error: environment variables set by the process
// supervisor are just as valid a source of configuration.
func loadDotEnv() {
	envFileOnce.Do(func() {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "config: failed to load .env file: %v\n", err)
		}
	})
}

// Load parses environment variables into a new value of type T and caches the
// result for the lifetime of the process. Subsequent calls for the same T
// return the cached value without touching the environment again.
func Load[T any]() (T, error) {
	loadDotEnv()

	t := reflect.TypeFor[T]()

	cacheMu.RLock()
	if v, ok := cache[t]; ok {
		cacheMu.RUnlock()
		return v.(T), nil
	}
	cacheMu.RUnlock()

	cacheMu.Lock()
	defer cacheMu.Unlock()

	// Re-check after acquiring the write lock in case another goroutine
	// populated the cache while we were waiting.
	if v, ok := cache[t]; ok {
		return v.(T), nil
	}

	var cfg T
	if err := env.Parse(&cfg); err != nil {
		var zero T
		return zero, fmt.Errorf("config: failed to parse %s: %w", t, err)
	}

	cache[t] = cfg
	return cfg, nil
}

// MustLoad is like Load but panics if parsing fails. Intended for use during
// process startup, where a misconfigured environment should abort immediately.
func MustLoad[T any]() T {
	cfg, err := Load[T]()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Reset clears the cached value for T, forcing the next Load[T] call to
// re-read the environment. Exists for tests that exercise Load under
// different environment variable sets.
func Reset[T any]() {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	delete(cache, reflect.TypeFor[T]())
}
