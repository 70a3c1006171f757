package ports

import (
	"context"

	"github.com/librario/lending-api/internal/core/domain"
)

// CreateBookInput carries the catalogue data of a new book.
type CreateBookInput struct {
	Code   string
	Title  string
	Author string
	Stock  int
}

// ReturnResult is the outcome of a return. Penalty is set for late returns.
type ReturnResult struct {
	Book    *domain.Book
	Penalty *domain.Penalty
}

// BorrowerSummary is one row of the borrowers report.
type BorrowerSummary struct {
	UserID        string
	Email         string
	FirstName     string
	LastName      string
	Books         []*domain.Book
	BooksBorrowed int
}

// LendingService defines the inventory and circulation use cases.
type LendingService interface {
	CreateBook(ctx context.Context, ownerID string, input CreateBookInput) (*domain.Book, error)
	ListAvailable(ctx context.Context, requesterID string) ([]*domain.Book, error)
	ListAll(ctx context.Context) ([]*domain.Book, error)
	GetBook(ctx context.Context, id string) (*domain.Book, error)
	EditBook(ctx context.Context, id string, patch domain.BookPatch) (*domain.Book, error)
	DeleteBook(ctx context.Context, id string) error
	Borrow(ctx context.Context, userID, bookID string) (*domain.Book, error)
	Return(ctx context.Context, userID, bookID string) (*ReturnResult, error)
	ListBorrowers(ctx context.Context) ([]BorrowerSummary, error)
}
