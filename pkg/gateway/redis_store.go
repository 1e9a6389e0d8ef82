package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisSessionKey = "session"
	redisPendingKey = "pending_verification"
)

// RedisStore is a TokenStore backed by Redis, for server-mediated
// deployments where the session slot must survive process restarts or be
// shared across instances. Keys are namespaced per browser context via the
// prefix (typically a device or cookie identifier).
type RedisStore struct {
	client     redis.UniversalClient
	prefix     string
	sessionTTL time.Duration
	pendingTTL time.Duration
}

// NewRedisStore creates a Redis-backed token store. sessionTTL bounds how
// long an untouched session slot survives; pendingTTL bounds the
// verification hint (zero means no expiry for either).
func NewRedisStore(client redis.UniversalClient, prefix string, sessionTTL, pendingTTL time.Duration) *RedisStore {
	return &RedisStore{
		client:     client,
		prefix:     prefix,
		sessionTTL: sessionTTL,
		pendingTTL: pendingTTL,
	}
}

func (r *RedisStore) key(suffix string) string {
	return r.prefix + ":" + suffix
}

func (r *RedisStore) SetSession(ctx context.Context, session *Session) error {
	if session == nil {
		return ErrNoSession
	}

	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	if err := r.client.Set(ctx, r.key(redisSessionKey), payload, r.sessionTTL).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

func (r *RedisStore) GetSession(ctx context.Context) (*Session, error) {
	payload, err := r.client.Get(ctx, r.key(redisSessionKey)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var session Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &session, nil
}

func (r *RedisStore) ClearSession(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key(redisSessionKey)).Err(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

func (r *RedisStore) SetPendingVerification(ctx context.Context, email string) error {
	if err := r.client.Set(ctx, r.key(redisPendingKey), email, r.pendingTTL).Err(); err != nil {
		return fmt.Errorf("failed to store pending verification: %w", err)
	}
	return nil
}

func (r *RedisStore) PendingVerification(ctx context.Context) (string, error) {
	email, err := r.client.Get(ctx, r.key(redisPendingKey)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read pending verification: %w", err)
	}
	return email, nil
}

func (r *RedisStore) ClearPendingVerification(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key(redisPendingKey)).Err(); err != nil {
		return fmt.Errorf("failed to clear pending verification: %w", err)
	}
	return nil
}

// Compile-time interface assertion
var _ TokenStore = (*RedisStore)(nil)
