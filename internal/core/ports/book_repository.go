package ports

import (
	"context"
	"time"

	"github.com/librario/lending-api/internal/core/domain"
)

// ListBooksFilter narrows a book listing.
type ListBooksFilter struct {
	AvailableOnly bool
}

// ReturnDecision inspects a book locked for return. It either rejects the
// return or yields the penalty to store with it (nil for an on-time return).
type ReturnDecision func(book *domain.Book) (*domain.Penalty, error)

// BookRepository persists the book inventory. Lending transitions are atomic
// at the store level.
type BookRepository interface {
	Create(ctx context.Context, book *domain.Book) (*domain.Book, error)
	FindByID(ctx context.Context, id string) (*domain.Book, error)
	// List returns books in insertion order.
	List(ctx context.Context, filter ListBooksFilter) ([]*domain.Book, error)
	ListByBorrower(ctx context.Context, userID string) ([]*domain.Book, error)
	Update(ctx context.Context, id string, patch domain.BookPatch) (*domain.Book, error)
	Delete(ctx context.Context, id string) error

	// MarkBorrowed lends the book to userID only if it is available and the
	// user holds fewer than limit books, in a single conditional write. On
	// conflict it fails with domain.ErrBookNotFound, domain.ErrAlreadyBorrowed
	// or domain.ErrBorrowLimitExceeded.
	MarkBorrowed(ctx context.Context, bookID, userID string, at time.Time, limit int) (*domain.Book, error)

	// MarkReturned locks the book, runs decide, then clears the borrower and
	// stores the returned penalty in one transaction.
	MarkReturned(ctx context.Context, bookID string, at time.Time, decide ReturnDecision) (*domain.Book, *domain.Penalty, error)
}
