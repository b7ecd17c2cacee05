package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/audio-transcribe/client/internal/core/domain"
)

// TokenStore keeps the bearer token in redis so several machines can share
// one login.
// Key format: <credential key>:<origin>. Entries never expire.
type TokenStore struct {
	client *redis.Client
	key    string
}

// NewTokenStore wraps client for the given API origin.
func NewTokenStore(client *redis.Client, origin string) *TokenStore {
	return &TokenStore{client: client, key: tokenKey(origin)}
}

func (s *TokenStore) Save(ctx context.Context, token string) error {
	if token == "" {
		return s.Clear(ctx)
	}
	if err := s.client.Set(ctx, s.key, token, 0).Err(); err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}

func (s *TokenStore) Load(ctx context.Context) (string, error) {
	token, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load credential: %w", err)
	}
	return token, nil
}

func (s *TokenStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("clear credential: %w", err)
	}
	return nil
}

func (s *TokenStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func tokenKey(origin string) string {
	return fmt.Sprintf("%s:%s", domain.CredentialKey, origin)
}
