package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "freshcart:checkout:"

// pendingMarker is stored while a key is reserved but not completed.
var pendingMarker = []byte("\x00pending")

// RedisIdempotencyStore shares idempotency state between instances.
type RedisIdempotencyStore struct {
	client    *redis.Client
	keyPrefix string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisIdempotencyStore connects to Redis and verifies the connection.
func NewRedisIdempotencyStore(ctx context.Context, cfg RedisConfig) (*RedisIdempotencyStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedisIdempotencyStoreWithClient(client, ""), nil
}

func NewRedisIdempotencyStoreWithClient(client *redis.Client, keyPrefix string) *RedisIdempotencyStore {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &RedisIdempotencyStore{client: client, keyPrefix: keyPrefix}
}

func (s *RedisIdempotencyStore) Begin(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.keyPrefix+key, pendingMarker, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to reserve idempotency key: %w", err)
	}
	return ok, nil
}

func (s *RedisIdempotencyStore) Complete(ctx context.Context, key string, result []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.keyPrefix+key, result, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store idempotency result: %w", err)
	}
	return nil
}

func (s *RedisIdempotencyStore) Result(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := s.client.Get(ctx, s.keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read idempotency result: %w", err)
	}
	if bytes.Equal(b, pendingMarker) {
		return nil, false, nil
	}
	return b, true, nil
}

func (s *RedisIdempotencyStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to release idempotency key: %w", err)
	}
	return nil
}

func (s *RedisIdempotencyStore) Close() error {
	return s.client.Close()
}

var _ IdempotencyStore = (*RedisIdempotencyStore)(nil)
