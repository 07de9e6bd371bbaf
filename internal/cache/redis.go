package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang-sql/civil"
	"github.com/redis/go-redis/v9"

	"github.com/City-of-Helsinki/hauki-sub000/internal/hours"
)

// DefaultKeyPrefix namespaces the hashes written to Redis.
const DefaultKeyPrefix = "hauki:hours:"

// RedisOptions configures the shared Redis cache.
type RedisOptions struct {
	Addr      string
	Password  string
	DB        int
	TTL       time.Duration
	KeyPrefix string
}

// Redis keeps one hash per resource whose fields are date ranges. The whole
// hash expires TTL after its last write.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// RedisOptionsFromURL parses a redis:// or rediss:// URL such as
// redis://:secret@localhost:6379/2.
func RedisOptionsFromURL(rawURL string, ttl time.Duration) (RedisOptions, error) {
	parsed, err := redis.ParseURL(rawURL)
	if err != nil {
		return RedisOptions{}, fmt.Errorf("cache: parse redis url: %w", err)
	}
	return RedisOptions{
		Addr:     parsed.Addr,
		Password: parsed.Password,
		DB:       parsed.DB,
		TTL:      ttl,
	}, nil
}

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(ctx context.Context, opts RedisOptions) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("cache: ping redis %s: %w", opts.Addr, err)
	}
	return client, nil
}

// NewRedis wraps an existing client.
func NewRedis(client *redis.Client, opts RedisOptions) *Redis {
	prefix := opts.KeyPrefix
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Redis{client: client, ttl: opts.TTL, prefix: prefix}
}

func (r *Redis) key(resourceID string) string {
	return r.prefix + resourceID
}

// Get returns the cached hours of the range.
func (r *Redis) Get(ctx context.Context, resourceID string, start, end civil.Date) (hours.OpeningHours, bool, error) {
	data, err := r.client.HGet(ctx, r.key(resourceID), rangeField(start, end)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache: redis get: %w", err)
	}
	var days hours.OpeningHours
	if err := json.Unmarshal(data, &days); err != nil {
		return nil, false, fmt.Errorf("cache: decode opening hours: %w", err)
	}
	return days, true, nil
}

// Set stores the hours of the range and refreshes the resource's TTL.
func (r *Redis) Set(ctx context.Context, resourceID string, start, end civil.Date, days hours.OpeningHours) error {
	data, err := json.Marshal(days)
	if err != nil {
		return fmt.Errorf("cache: encode opening hours: %w", err)
	}
	key := r.key(resourceID)
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, rangeField(start, end), data)
		if r.ttl > 0 {
			pipe.Expire(ctx, key, r.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("cache: redis set: %w", err)
	}
	return nil
}

// Invalidate drops every cached range of the resource.
func (r *Redis) Invalidate(ctx context.Context, resourceID string) error {
	if err := r.client.Del(ctx, r.key(resourceID)).Err(); err != nil {
		return fmt.Errorf("cache: redis delete: %w", err)
	}
	return nil
}
