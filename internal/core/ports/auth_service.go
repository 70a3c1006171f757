package ports

import (
	"context"
	"time"

	"github.com/librario/lending-api/internal/core/domain"
)

// Session is a freshly issued access token.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
}

// Identity is the authenticated caller resolved from a bearer token.
type Identity struct {
	UserID string
	Email  string
	Role   domain.Role
}

type AuthService interface {
	Register(ctx context.Context, email, password string) (*Session, error)
	Login(ctx context.Context, email, password string) (*Session, error)
	Logout(ctx context.Context, userID string) error
	Authorize(ctx context.Context, token string) (*Identity, error)
	RoleOf(ctx context.Context, userID string) (domain.Role, error)
}
