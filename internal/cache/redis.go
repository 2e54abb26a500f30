// file: internal/cache/redis.go
// version: 1.0.0
// guid: 1401c47c-da04-44a0-a274-f56764da7cb6

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jdfalk/cpe-resolver/internal/models"
)

// RedisCache shares results between resolver processes
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// OpenRedis connects to addr and verifies the connection
func OpenRedis(addr string, ttl time.Duration) (*RedisCache, error) {
	if addr == "" {
		return nil, errors.New("redis cache requires an address")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return NewRedisCache(client, ttl), nil
}

// NewRedisCache wraps an existing client
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisCache{client: client, ttl: ttl}
}

// Get returns the cached record for key
func (r *RedisCache) Get(ctx context.Context, key string) (*models.OutputRecord, bool, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var rec models.OutputRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, false, fmt.Errorf("decoding cached record: %w", err)
	}
	return &rec, true, nil
}

// Put stores rec under key with the configured TTL
func (r *RedisCache) Put(ctx context.Context, key string, rec models.OutputRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, r.ttl).Err()
}

// Close closes the client
func (r *RedisCache) Close() error {
	return r.client.Close()
}
