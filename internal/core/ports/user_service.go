package ports

import (
	"context"

	"github.com/librario/lending-api/internal/core/domain"
)

// Profile is the caller's own account view.
type Profile struct {
	User          *domain.User
	BorrowedBooks []*domain.Book
	Penalties     []*domain.Penalty
	ActivePenalty *domain.Penalty
}

type UserService interface {
	Me(ctx context.Context, userID string) (*Profile, error)
	UpdateProfile(ctx context.Context, userID string, patch domain.UserPatch) (*domain.User, error)
	ChangeRole(ctx context.Context, actorID, targetID string, role domain.Role) (*domain.User, error)
}
