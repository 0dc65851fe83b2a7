// Package cache stores lookup and suggestion results for a bounded time.
// Values are JSON-encoded so the in-memory and Redis backends behave alike.
package cache

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Cache is a byte-level TTL cache.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Key builds a namespaced cache key. Parts are trimmed and lowercased so
// "Dune " and "dune" share an entry.
func Key(namespace string, parts ...string) string {
	var b strings.Builder
	b.WriteString("nook:")
	b.WriteString(namespace)
	for _, p := range parts {
		b.WriteByte(':')
		b.WriteString(strings.ToLower(strings.TrimSpace(p)))
	}
	return b.String()
}

// Typed wraps a Cache with JSON encoding for values of type T and collapses
// concurrent loads of the same key.
type Typed[T any] struct {
	cache Cache
	ttl   time.Duration
	group singleflight.Group
}

// NewTyped creates a typed view over c. A nil cache disables caching.
func NewTyped[T any](c Cache, ttl time.Duration) *Typed[T] {
	return &Typed[T]{cache: c, ttl: ttl}
}

// Get returns the cached value for key.
func (t *Typed[T]) Get(ctx context.Context, key string) (T, bool) {
	var zero T
	if t.cache == nil {
		return zero, false
	}
	data, err := t.cache.Get(ctx, key)
	if err != nil {
		return zero, false
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return zero, false
	}
	return v, true
}

// Set stores value under key.
func (t *Typed[T]) Set(ctx context.Context, key string, value T) error {
	if t.cache == nil {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache value: %w", err)
	}
	return t.cache.Set(ctx, key, data, t.ttl)
}

// GetOrLoad returns the cached value or calls load, caching the result when
// keep reports true for it. Cache write failures are ignored.
func (t *Typed[T]) GetOrLoad(ctx context.Context, key string, load func(context.Context) (T, error), keep func(T) bool) (T, error) {
	if v, ok := t.Get(ctx, key); ok {
		return v, nil
	}

	res, err, _ := t.group.Do(key, func() (any, error) {
		v, err := load(ctx)
		if err != nil {
			return v, err
		}
		if keep == nil || keep(v) {
			_ = t.Set(ctx, key, v)
		}
		return v, nil
	})
	v, _ := res.(T)
	return v, err
}
