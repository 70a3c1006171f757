package ports

import (
	"context"

	"github.com/librario/lending-api/internal/core/domain"
)

// PenaltyRepository reads penalties. They are written only by
// BookRepository.MarkReturned.
type PenaltyRepository interface {
	ListByUser(ctx context.Context, userID string) ([]*domain.Penalty, error)
}
