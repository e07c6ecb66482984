// Package tokenstore shares Lacework access tokens between processes.
package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Checker-Finance/lacework-go-sdk/pkg/api"
)

const keyPrefix = "lacework:token:"

// RedisStore implements api.TokenStore on Redis. Entries expire with the
// token they hold.
type RedisStore struct {
	redis  *redis.Client
	logger *zap.Logger
	now    func() time.Time
}

var _ api.TokenStore = (*RedisStore)(nil)

// NewRedis connects to addr and verifies the connection.
func NewRedis(ctx context.Context, addr, password string, db int, logger *zap.Logger) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return NewWithClient(rdb, logger), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(rdb *redis.Client, logger *zap.Logger) *RedisStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStore{redis: rdb, logger: logger, now: time.Now}
}

// Load returns the token stored under key.
func (s *RedisStore) Load(ctx context.Context, key string) (api.Token, bool, error) {
	raw, err := s.redis.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return api.Token{}, false, nil
	}
	if err != nil {
		return api.Token{}, false, fmt.Errorf("redis get token: %w", err)
	}

	var tok api.Token
	if err := json.Unmarshal(raw, &tok); err != nil {
		s.logger.Warn("tokenstore.corrupt_entry", zap.String("key", key), zap.Error(err))
		return api.Token{}, false, nil
	}
	return tok, true, nil
}

// Save stores tok until it expires. Already expired tokens are not stored.
func (s *RedisStore) Save(ctx context.Context, key string, tok api.Token) error {
	ttl := tok.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	raw, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, keyPrefix+key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set token: %w", err)
	}
	s.logger.Debug("tokenstore.saved", zap.String("key", key), zap.Duration("ttl", ttl))
	return nil
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.redis.Close()
}
