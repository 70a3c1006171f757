package ports

import (
	"context"
	"time"

	"github.com/librario/lending-api/internal/core/domain"
)

// CachedSession mirrors the persisted session of a user.
type CachedSession struct {
	Token string
	Email string
	Role  domain.Role
}

// SessionCache is a read-through cache in front of the credential store.
// Get returns nil, nil on a miss.
type SessionCache interface {
	Get(ctx context.Context, userID string) (*CachedSession, error)
	Set(ctx context.Context, userID string, session CachedSession, ttl time.Duration) error
	Delete(ctx context.Context, userID string) error
}
