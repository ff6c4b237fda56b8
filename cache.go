package skibbadb

import (
	"context"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Cache is the interface for an optional result cache, attached with
// WithCache and returned by Database.Cache. Collection operations do not
// read or write it. Users implement it against their preferred backend
// (Redis, Memcached, in-memory); values are msgpack-encoded by CacheSet and CacheGet so
// cached entries stay compact and schema-stable across skibbadb versions.
type Cache interface {
	// Get retrieves a value from the cache.
	// Returns nil, nil if the key doesn't exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in the cache with an optional TTL.
	// If ttl is 0, the value should not expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from the cache.
	Delete(ctx context.Context, key string) error

	// DeletePrefix removes all values with the given prefix.
	DeletePrefix(ctx context.Context, prefix string) error

	// Clear removes all values from the cache.
	Clear(ctx context.Context) error
}

// CacheKey generates a cache key for a query.
type CacheKey struct {
	Table      string
	Operation  string
	Predicates string
	OrderBy    string
	Limit      int
	Offset     int
}

// String returns the string representation of the cache key.
func (k CacheKey) String() string {
	return k.Table + ":" + k.Operation + ":" + k.Predicates + ":" + k.OrderBy
}

// CacheSet msgpack-encodes v and stores it under key.
func CacheSet(ctx context.Context, c Cache, key string, v any, ttl time.Duration) error {
	b, err := msgpack.Marshal(v)
	if err != nil {
		return err
	}
	return c.Set(ctx, key, b, ttl)
}

// CacheGet fetches key and msgpack-decodes it into dst. Reports false if
// the key was absent.
func CacheGet(ctx context.Context, c Cache, key string, dst any) (bool, error) {
	b, err := c.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if b == nil {
		return false, nil
	}
	return true, msgpack.Unmarshal(b, dst)
}
