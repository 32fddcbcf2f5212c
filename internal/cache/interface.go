package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get for a missing or expired key
var ErrNotFound = errors.New("cache: key not found")

// Cache defines the cache operations interface
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error

	// DeleteByPattern removes every key matching a "prefix*" pattern
	DeleteByPattern(ctx context.Context, pattern string) error

	GetMetrics() *Metrics
	Close() error
}

// Metrics tracks cache performance
type Metrics struct {
	Hits    uint64
	Misses  uint64
	Sets    uint64
	Deletes uint64
	Size    uint64
	Keys    uint64
}
