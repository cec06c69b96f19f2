// Package cache is the key/value cache used by the pipeline. Entries expire by
// TTL and can be invalidated explicitly by key or by key prefix.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

type Cache interface {
	// Get decodes the cached value for key into dest.
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	// DeletePrefix drops every entry whose key starts with prefix.
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}

// GetOrLoad returns the cached value for key, calling load and caching its
// result on a miss. Cache read and write failures fall through to load.
func GetOrLoad[T any](ctx context.Context, c Cache, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	var cached T
	if c != nil {
		if err := c.Get(ctx, key, &cached); err == nil {
			return cached, nil
		}
	}

	val, err := load(ctx)
	if err != nil {
		return val, err
	}
	if c != nil {
		_ = c.Set(ctx, key, val, ttl)
	}
	return val, nil
}
