package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisOpTimeout bounds each storage call; the Store interface is synchronous.
const redisOpTimeout = 5 * time.Second

// RedisStore keeps the session slots in Redis under
// "sawa:session:<profile>:<slot>", so several hosts can share one login.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to the Redis server at rawURL (redis://...).
func NewRedisStore(rawURL, profile string) (*RedisStore, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("session.NewRedisStore: parse url: %w", err)
	}
	opt.PoolSize = 2
	return NewRedisStoreFromClient(redis.NewClient(opt), profile), nil
}

// NewRedisStoreFromClient wraps an existing Redis client.
func NewRedisStoreFromClient(c *redis.Client, profile string) *RedisStore {
	if profile == "" {
		profile = "default"
	}
	return &RedisStore{client: c, prefix: "sawa:session:" + profile + ":"}
}

// Key returns the Redis key for a slot.
func (s *RedisStore) Key(slot string) string {
	return s.prefix + slot
}

// Ping checks that the server is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Get(key string) (string, bool, error) {
	if err := validateKey(key); err != nil {
		return "", false, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	val, err := s.client.Get(ctx, s.Key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, true, nil
}

func (s *RedisStore) Set(key, value string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if err := s.client.Set(ctx, s.Key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Delete(key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if err := s.client.Del(ctx, s.Key(key)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}
