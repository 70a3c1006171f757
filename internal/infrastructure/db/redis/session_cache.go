package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/librario/lending-api/internal/core/domain"
	"github.com/librario/lending-api/internal/core/ports"
	"github.com/librario/lending-api/internal/pkg/metrics"
)

const (
	fieldToken = "token"
	fieldEmail = "email"
	fieldRole  = "role"
)

// SessionCache keeps the current session of each user in a hash.
// Key format: session:<user_id>
type SessionCache struct {
	client *redis.Client
}

// NewSessionCache creates a SessionCache wrapping the given Redis client.
func NewSessionCache(client *redis.Client) *SessionCache {
	return &SessionCache{client: client}
}

// Get returns the cached session, or nil when there is none.
func (c *SessionCache) Get(ctx context.Context, userID string) (*ports.CachedSession, error) {
	fields, err := c.client.HGetAll(ctx, c.key(userID)).Result()
	if err != nil {
		metrics.SessionCacheTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("session get: %w", err)
	}
	if fields[fieldToken] == "" {
		metrics.SessionCacheTotal.WithLabelValues("miss").Inc()
		return nil, nil
	}

	metrics.SessionCacheTotal.WithLabelValues("hit").Inc()
	return &ports.CachedSession{
		Token: fields[fieldToken],
		Email: fields[fieldEmail],
		Role:  domain.Role(fields[fieldRole]),
	}, nil
}

// Set replaces the cached session and expires it after ttl.
func (c *SessionCache) Set(ctx context.Context, userID string, session ports.CachedSession, ttl time.Duration) error {
	key := c.key(userID)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key,
			fieldToken, session.Token,
			fieldEmail, session.Email,
			fieldRole, string(session.Role),
		)
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("session set: %w", err)
	}
	return nil
}

// Delete evicts the cached session. Deleting a missing key is not an error.
func (c *SessionCache) Delete(ctx context.Context, userID string) error {
	if err := c.client.Del(ctx, c.key(userID)).Err(); err != nil {
		return fmt.Errorf("session delete: %w", err)
	}
	return nil
}

func (c *SessionCache) key(userID string) string {
	return "session:" + userID
}
