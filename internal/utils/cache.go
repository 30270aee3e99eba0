package utils

import (
	"context"       // Context for Redis operations
	"encoding/json" // JSON encoding/decoding
	"errors"        // Error matching
	"time"          // Time durations

	"github.com/redis/go-redis/v9" // Redis client
)

// Cache is a read-through JSON cache grouped into namespaces.
// Bumping a namespace version orphans every key written under the previous version,
// so invalidation never has to enumerate keys. A nil *Cache is valid and caches nothing.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewCache wraps a redis client; a nil client disables caching
func NewCache(rdb *redis.Client, ttl time.Duration) *Cache {
	if rdb == nil {
		return nil
	}
	return &Cache{rdb: rdb, ttl: ttl}
}

func versionKey(namespace string) string {
	return "yamdb:" + namespace + ":version"
}

// key resolves the versioned key for name within namespace
func (c *Cache) key(ctx context.Context, namespace, name string) (string, error) {
	v, err := c.rdb.Get(ctx, versionKey(namespace)).Result()
	if errors.Is(err, redis.Nil) {
		v = "0"
	} else if err != nil {
		return "", err
	}
	return "yamdb:" + namespace + ":v" + v + ":" + name, nil
}

// Get unmarshals a cached value into dest and reports whether it was found
func (c *Cache) Get(ctx context.Context, namespace, name string, dest any) (bool, error) {
	if c == nil {
		return false, nil
	}
	key, err := c.key(ctx, namespace, name)
	if err != nil {
		return false, err
	}
	val, err := c.rdb.Get(ctx, key).Bytes() // Get value from Redis
	if errors.Is(err, redis.Nil) {
		return false, nil // Key does not exist
	} else if err != nil {
		return false, err // Other Redis error
	}
	return true, json.Unmarshal(val, dest)
}

// Set stores value under name within namespace for the cache TTL
func (c *Cache) Set(ctx context.Context, namespace, name string, value any) error {
	if c == nil {
		return nil
	}
	key, err := c.key(ctx, namespace, name)
	if err != nil {
		return err
	}
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, b, c.ttl).Err()
}

// Invalidate bumps the namespace version
func (c *Cache) Invalidate(ctx context.Context, namespace string) error {
	if c == nil {
		return nil
	}
	return c.rdb.Incr(ctx, versionKey(namespace)).Err()
}
