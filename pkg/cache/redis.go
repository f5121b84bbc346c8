// Package cache keeps serialized list pages in Redis.
package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ListCache caches list responses under a generation counter. Bumping the generation
// makes every key written before it unreachable, so writers never enumerate keys.
type ListCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// Options configures a ListCache
type Options struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
	Prefix   string
}

// New connects to Redis and checks the connection
func New(ctx context.Context, opts Options) (*ListCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", opts.Addr, err)
	}
	return NewWithClient(client, opts.Prefix, opts.TTL), nil
}

// NewWithClient wraps an existing client
func NewWithClient(client *redis.Client, prefix string, ttl time.Duration) *ListCache {
	if prefix == "" {
		prefix = "properlia"
	}
	return &ListCache{client: client, prefix: prefix, ttl: ttl}
}

// Close releases the Redis connection
func (c *ListCache) Close() error {
	return c.client.Close()
}

func (c *ListCache) generationKey(scope string) string {
	return c.prefix + ":" + scope + ":generation"
}

func (c *ListCache) generation(ctx context.Context, scope string) (int64, error) {
	v, err := c.client.Get(ctx, c.generationKey(scope)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(v, 10, 64)
}

// Key builds the cache key of a query within scope at the current generation
func (c *ListCache) Key(ctx context.Context, scope string, params map[string]string) (string, error) {
	gen, err := c.generation(ctx, scope)
	if err != nil {
		return "", err
	}
	return GenerateQueryCacheKey(fmt.Sprintf("%s:%s:%d", c.prefix, scope, gen), params), nil
}

// Get decodes the value under key into dest and reports whether it was present
func (c *ListCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(data, dest)
}

// Set stores value under key with the configured TTL
func (c *ListCache) Set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

// Invalidate bumps the generation of scope
func (c *ListCache) Invalidate(ctx context.Context, scope string) error {
	return c.client.Incr(ctx, c.generationKey(scope)).Err()
}

// GenerateQueryCacheKey hashes the sorted query parameters under prefix
func GenerateQueryCacheKey(prefix string, queryParams map[string]string) string {
	keys := make([]string, 0, len(queryParams))
	for k := range queryParams {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var builder strings.Builder
	for i, k := range keys {
		if i > 0 {
			builder.WriteString(":")
		}
		builder.WriteString(k)
		builder.WriteString("=")
		builder.WriteString(queryParams[k])
	}

	hash := md5.Sum([]byte(builder.String()))
	return prefix + ":" + hex.EncodeToString(hash[:])
}
