package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "session:"

// RedisStore keeps sessions in Redis so they survive restarts and are shared
// across instances.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed store. A non-positive ttl falls back
// to the default.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Establish(ctx context.Context, identity string) (string, error) {
	token := uuid.NewString()
	if err := s.client.Set(ctx, redisKeyPrefix+token, identity, s.ttl).Err(); err != nil {
		return "", err
	}
	return token, nil
}

func (s *RedisStore) Identity(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrNotAuthenticated
	}
	identity, err := s.client.Get(ctx, redisKeyPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotAuthenticated
	}
	if err != nil {
		return "", err
	}
	if identity == "" {
		return "", ErrNotAuthenticated
	}
	return identity, nil
}

func (s *RedisStore) Terminate(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.client.Del(ctx, redisKeyPrefix+token).Err()
}
