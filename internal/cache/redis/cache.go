// Package redis caches successful page scrapes in Redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/JakeFAU/venue-ingest/internal/hash/sha256"
)

// DefaultTTL is how long a cached page stays valid.
const DefaultTTL = 24 * time.Hour

// DefaultKeyPrefix namespaces page keys.
const DefaultKeyPrefix = "venue-ingest:page:"

const pingTimeout = 5 * time.Second

// ErrEmptyAddress is returned when no Redis address is configured.
var ErrEmptyAddress = errors.New("redis address is required")

// Config holds connection and expiry settings.
type Config struct {
	Addr      string
	Password  string
	DB        int
	TTL       time.Duration
	KeyPrefix string
}

// PageCache implements venue.PageCache.
type PageCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// Open connects to Redis and verifies the connection.
func Open(ctx context.Context, cfg Config) (*PageCache, error) {
	if cfg.Addr == "" {
		return nil, ErrEmptyAddress
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return New(client, cfg), nil
}

// New wraps an existing client.
func New(client *redis.Client, cfg Config) *PageCache {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultKeyPrefix
	}
	return &PageCache{client: client, ttl: cfg.TTL, prefix: cfg.KeyPrefix}
}

// Key returns the Redis key for url. Trailing slashes and case in the scheme
// and host do not produce distinct entries.
func (c *PageCache) Key(url string) string {
	return c.prefix + sha256.String(normalize(url))
}

// Get returns the cached markdown for url.
func (c *PageCache) Get(ctx context.Context, url string) (string, bool, error) {
	md, err := c.client.Get(ctx, c.Key(url)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get: %w", err)
	}
	return md, true, nil
}

// Set stores markdown for url with the configured TTL.
func (c *PageCache) Set(ctx context.Context, url string, markdown string) error {
	if err := c.client.Set(ctx, c.Key(url), markdown, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Ping reports whether Redis is reachable.
func (c *PageCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (c *PageCache) Close() error {
	return c.client.Close()
}

func normalize(url string) string {
	url = strings.TrimRight(strings.TrimSpace(url), "/")
	scheme, rest, ok := strings.Cut(url, "://")
	if !ok {
		return url
	}
	host, path, _ := strings.Cut(rest, "/")
	out := strings.ToLower(scheme) + "://" + strings.ToLower(host)
	if path != "" {
		out += "/" + path
	}
	return out
}
