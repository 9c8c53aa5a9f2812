// Package session maps opaque client tokens to authenticated user ids.
// A token lives in a cookie; the mapping itself lives in Redis with a TTL, so
// a session disappears on its own when it expires.
package session

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	redisv9 "github.com/redis/go-redis/v9"
)

type Store interface {
	// Create opens a session for the user and returns its opaque token.
	Create(ctx context.Context, userID uint) (string, error)
	// Resolve returns the user id behind a token. The bool reports whether
	// the token names a live session.
	Resolve(ctx context.Context, token string) (uint, bool, error)
	// Destroy ends the session. Destroying an unknown token is a no-op.
	Destroy(ctx context.Context, token string) error
}

type RedisStore struct {
	client *redisv9.Client
	ttl    time.Duration
}

func NewRedisStore(client *redisv9.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &RedisStore{
		client: client,
		ttl:    ttl,
	}
}

func (s *RedisStore) Create(ctx context.Context, userID uint) (string, error) {
	token := uuid.NewString()
	if err := s.client.Set(ctx, s.key(token), userID, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("redis set session failed: %w", err)
	}
	return token, nil
}

func (s *RedisStore) Resolve(ctx context.Context, token string) (uint, bool, error) {
	raw, err := s.client.Get(ctx, s.key(token)).Result()
	if err == redisv9.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("redis get session failed: %w", err)
	}

	userID, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || userID == 0 {
		return 0, false, nil
	}
	return uint(userID), true, nil
}

func (s *RedisStore) Destroy(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, s.key(token)).Err(); err != nil {
		return fmt.Errorf("redis delete session failed: %w", err)
	}
	return nil
}

func (s *RedisStore) key(token string) string {
	return "session:" + token
}
