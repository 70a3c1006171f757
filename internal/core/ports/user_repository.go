package ports

import (
	"context"

	"github.com/librario/lending-api/internal/core/domain"
)

// Borrower is a user together with the books currently lent to them.
type Borrower struct {
	User  *domain.User
	Books []*domain.Book
}

// UserRepository persists user accounts and their session token.
type UserRepository interface {
	// Create stores a new user. Fails with domain.ErrDuplicateEmail when the
	// email is already registered.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	// SetToken overwrites the persisted session token. An empty token clears it.
	SetToken(ctx context.Context, id, token string) error
	Update(ctx context.Context, id string, patch domain.UserPatch) (*domain.User, error)
	SetRole(ctx context.Context, id string, role domain.Role) (*domain.User, error)
	// ListBorrowers returns every user holding at least one book.
	ListBorrowers(ctx context.Context) ([]Borrower, error)
}
