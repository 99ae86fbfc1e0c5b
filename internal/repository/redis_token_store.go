package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds connection settings for the token store.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// RedisTokenStore implements TokenStore with per-kind TTLs. Tokens arrive
// already hashed; redis expiry replaces the TTL collections the tokens
// used to live in.
type RedisTokenStore struct {
	client *redis.Client
	ttls   map[string]time.Duration
}

// NewRedisTokenStore connects to redis and returns a token store. verifyTTL
// bounds email-verification tokens, resetTTL password-reset tokens.
func NewRedisTokenStore(cfg RedisConfig, verifyTTL, resetTTL time.Duration) (*RedisTokenStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	return &RedisTokenStore{
		client: client,
		ttls: map[string]time.Duration{
			TokenKindVerify: verifyTTL,
			TokenKindReset:  resetTTL,
		},
	}, nil
}

func (s *RedisTokenStore) Save(ctx context.Context, kind, userID, hashedToken string) error {
	return s.client.Set(ctx, s.key(kind, userID), hashedToken, s.ttls[kind]).Err()
}

func (s *RedisTokenStore) Get(ctx context.Context, kind, userID string) (string, error) {
	val, err := s.client.Get(ctx, s.key(kind, userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrTokenNotFound
		}
		return "", err
	}
	return val, nil
}

func (s *RedisTokenStore) Delete(ctx context.Context, kind, userID string) error {
	return s.client.Del(ctx, s.key(kind, userID)).Err()
}

// Close releases the underlying redis connection.
func (s *RedisTokenStore) Close() error {
	return s.client.Close()
}

func (s *RedisTokenStore) key(kind, userID string) string {
	return fmt.Sprintf("token:%s:%s", kind, userID)
}
