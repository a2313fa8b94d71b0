package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	cacheVersionKey   = "analytics:version"
	invalidateChannel = "analytics.invalidate"
)

// Cache keeps computed dashboard payloads in Redis. Invalidation bumps a
// shared version counter, so stale keys simply age out under their TTL.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache wraps a Redis client. A nil client disables caching, every
// lookup then falls through to its loader.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) enabled() bool {
	return c != nil && c.client != nil
}

// Version returns the current cache generation, initialising it to 1 when
// missing.
func (c *Cache) Version(ctx context.Context) (int64, error) {
	if !c.enabled() {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, cacheVersionKey).Int64()
	if errors.Is(err, redis.Nil) || (err == nil && ver <= 0) {
		if err := c.client.Set(ctx, cacheVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

// Key joins the parts with the current generation appended.
func (c *Cache) Key(ctx context.Context, parts ...string) (string, error) {
	joined := strings.Join(parts, ":")
	if !c.enabled() {
		return joined, nil
	}
	ver, err := c.Version(ctx)
	if err != nil {
		return "", err
	}
	return joined + ":" + strconv.FormatInt(ver, 10), nil
}

// Fetch loads the cached JSON value under key, or runs the loader and
// stores its result.
func (c *Cache) Fetch(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error {
	if !c.enabled() {
		value, err := loader(ctx)
		if err != nil {
			return err
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return err
		}
		return json.Unmarshal(raw, dest)
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		return json.Unmarshal(payload, dest)
	}
	if !errors.Is(err, redis.Nil) {
		return err
	}
	value, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

// Invalidate moves every reader to a fresh generation and announces the
// bump to other instances.
func (c *Cache) Invalidate(ctx context.Context) error {
	if !c.enabled() {
		return nil
	}
	ver, err := c.client.Incr(ctx, cacheVersionKey).Result()
	if err != nil {
		return err
	}
	return c.client.Publish(ctx, invalidateChannel, strconv.FormatInt(ver, 10)).Err()
}

// ListenForInvalidation follows version bumps published by peers until the
// context ends.
func (c *Cache) ListenForInvalidation(ctx context.Context) {
	if !c.enabled() {
		return
	}
	pubsub := c.client.Subscribe(ctx, invalidateChannel)
	go func() {
		defer func() { _ = pubsub.Close() }()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				if ver, err := strconv.ParseInt(msg.Payload, 10, 64); err == nil {
					_ = c.client.Set(ctx, cacheVersionKey, ver, 0).Err()
				}
			}
		}
	}()
}
