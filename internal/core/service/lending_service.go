package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/librario/lending-api/internal/core/domain"
	"github.com/librario/lending-api/internal/core/ports"
	"github.com/librario/lending-api/internal/pkg/metrics"
)

const (
	opCreateBook = "create_book"
	opEditBook   = "edit_book"
	opDeleteBook = "delete_book"
	opBorrow     = "borrow"
	opReturn     = "return"
)

// LendingService runs the book inventory and the borrow/return state machine.
type LendingService struct {
	books     ports.BookRepository
	users     ports.UserRepository
	penalties ports.PenaltyRepository
	events    ports.EventPublisher
	log       zerolog.Logger
	now       func() time.Time
}

// NewLendingService wires the lending use cases. events may be nil when no
// audit trail is configured.
func NewLendingService(
	books ports.BookRepository,
	users ports.UserRepository,
	penalties ports.PenaltyRepository,
	events ports.EventPublisher,
	log zerolog.Logger,
) *LendingService {
	return &LendingService{
		books:     books,
		users:     users,
		penalties: penalties,
		events:    events,
		log:       log,
		now:       time.Now,
	}
}

// CreateBook adds an available book to the inventory.
func (s *LendingService) CreateBook(ctx context.Context, ownerID string, input ports.CreateBookInput) (*domain.Book, error) {
	now := s.now().UTC()
	book := &domain.Book{
		Code:      input.Code,
		Title:     input.Title,
		Author:    input.Author,
		Stock:     input.Stock,
		CreatedAt: now,
		UpdatedAt: now,
	}

	created, err := s.books.Create(ctx, book)
	if err != nil {
		s.log.Error().Err(err).Str("code", input.Code).Msg("failed to create book")
		return nil, s.fail(opCreateBook, err)
	}

	s.record(opCreateBook, "ok")
	s.log.Info().Str("book_id", created.ID).Str("code", created.Code).Str("owner_id", ownerID).Msg("book created")
	return created, nil
}

// ListAvailable returns every book that can be borrowed right now.
func (s *LendingService) ListAvailable(ctx context.Context, requesterID string) ([]*domain.Book, error) {
	books, err := withStoreRetry(ctx, func(ctx context.Context) ([]*domain.Book, error) {
		return s.books.List(ctx, ports.ListBooksFilter{AvailableOnly: true})
	})
	if err != nil {
		return nil, err
	}
	s.log.Debug().Str("requester_id", requesterID).Int("count", len(books)).Msg("available books listed")
	return books, nil
}

// ListAll returns the full inventory, borrowed books included.
func (s *LendingService) ListAll(ctx context.Context) ([]*domain.Book, error) {
	return withStoreRetry(ctx, func(ctx context.Context) ([]*domain.Book, error) {
		return s.books.List(ctx, ports.ListBooksFilter{})
	})
}

func (s *LendingService) GetBook(ctx context.Context, id string) (*domain.Book, error) {
	return withStoreRetry(ctx, func(ctx context.Context) (*domain.Book, error) {
		return s.books.FindByID(ctx, id)
	})
}

// EditBook applies the supplied catalogue fields; the rest keep their values.
func (s *LendingService) EditBook(ctx context.Context, id string, patch domain.BookPatch) (*domain.Book, error) {
	book, err := withStoreRetry(ctx, func(ctx context.Context) (*domain.Book, error) {
		return s.books.Update(ctx, id, patch)
	})
	if err != nil {
		return nil, s.fail(opEditBook, err)
	}
	s.record(opEditBook, "ok")
	s.log.Info().Str("book_id", id).Msg("book edited")
	return book, nil
}

func (s *LendingService) DeleteBook(ctx context.Context, id string) error {
	if err := s.books.Delete(ctx, id); err != nil {
		return s.fail(opDeleteBook, err)
	}
	s.record(opDeleteBook, "ok")
	s.log.Info().Str("book_id", id).Msg("book deleted")
	return nil
}

// Borrow lends bookID to userID. The user must exist, hold fewer than
// domain.MaxBorrowedBooks books and have no active penalty. The availability
// check and the transition are a single conditional write in the store, so
// concurrent borrows of one book cannot both succeed.
func (s *LendingService) Borrow(ctx context.Context, userID, bookID string) (*domain.Book, error) {
	now := s.now().UTC()

	user, err := withStoreRetry(ctx, func(ctx context.Context) (*domain.User, error) {
		return s.users.FindByID(ctx, userID)
	})
	if err != nil {
		return nil, s.fail(opBorrow, err)
	}

	held, err := withStoreRetry(ctx, func(ctx context.Context) ([]*domain.Book, error) {
		return s.books.ListByBorrower(ctx, user.ID)
	})
	if err != nil {
		return nil, s.fail(opBorrow, err)
	}
	if len(held) >= domain.MaxBorrowedBooks {
		return nil, s.fail(opBorrow, domain.ErrBorrowLimitExceeded)
	}

	penalties, err := withStoreRetry(ctx, func(ctx context.Context) ([]*domain.Penalty, error) {
		return s.penalties.ListByUser(ctx, user.ID)
	})
	if err != nil {
		return nil, s.fail(opBorrow, err)
	}
	if p := domain.ActivePenalty(penalties, now); p != nil {
		s.log.Info().Str("user_id", user.ID).Time("penalty_ends_at", p.EndDate).Msg("borrow refused: active penalty")
		return nil, s.fail(opBorrow, domain.ErrActivePenalty)
	}

	book, err := s.books.MarkBorrowed(ctx, bookID, user.ID, now, domain.MaxBorrowedBooks)
	if err != nil {
		return nil, s.fail(opBorrow, err)
	}

	s.record(opBorrow, "ok")
	s.publish(domain.CirculationEvent{Type: domain.EventBorrowed, BookID: book.ID, UserID: user.ID, At: now})
	s.log.Info().Str("book_id", book.ID).Str("user_id", user.ID).Msg("book borrowed")
	return book, nil
}

// Return takes bookID back from userID. A return more than
// domain.GracePeriodDays after the borrow stores a penalty in the same
// transaction that frees the book.
func (s *LendingService) Return(ctx context.Context, userID, bookID string) (*ports.ReturnResult, error) {
	now := s.now().UTC()

	book, penalty, err := s.books.MarkReturned(ctx, bookID, now, func(b *domain.Book) (*domain.Penalty, error) {
		if !b.BorrowedBy(userID) {
			return nil, domain.ErrNotBorrowedByUser
		}
		since := b.UpdatedAt
		if b.BorrowedAt != nil {
			since = *b.BorrowedAt
		}
		return domain.LatePenalty(userID, since, now), nil
	})
	if err != nil {
		return nil, s.fail(opReturn, err)
	}

	s.record(opReturn, "ok")
	s.publish(domain.CirculationEvent{Type: domain.EventReturned, BookID: book.ID, UserID: userID, At: now})

	if penalty != nil {
		metrics.PenaltiesCreatedTotal.Inc()
		endsAt := penalty.EndDate
		s.publish(domain.CirculationEvent{
			Type:          domain.EventPenalized,
			BookID:        book.ID,
			UserID:        userID,
			At:            now,
			PenaltyEndsAt: &endsAt,
		})
		s.log.Info().Str("book_id", book.ID).Str("user_id", userID).Time("penalty_ends_at", endsAt).Msg("late return penalized")
	}

	s.log.Info().Str("book_id", book.ID).Str("user_id", userID).Msg("book returned")
	return &ports.ReturnResult{Book: book, Penalty: penalty}, nil
}

// ListBorrowers reports every user currently holding at least one book.
func (s *LendingService) ListBorrowers(ctx context.Context) ([]ports.BorrowerSummary, error) {
	borrowers, err := withStoreRetry(ctx, func(ctx context.Context) ([]ports.Borrower, error) {
		return s.users.ListBorrowers(ctx)
	})
	if err != nil {
		return nil, err
	}

	out := make([]ports.BorrowerSummary, 0, len(borrowers))
	for _, b := range borrowers {
		if len(b.Books) == 0 {
			continue
		}
		out = append(out, ports.BorrowerSummary{
			UserID:        b.User.ID,
			Email:         b.User.Email,
			FirstName:     b.User.FirstName,
			LastName:      b.User.LastName,
			Books:         b.Books,
			BooksBorrowed: len(b.Books),
		})
	}
	return out, nil
}

func (s *LendingService) publish(event domain.CirculationEvent) {
	if s.events != nil {
		s.events.Publish(event)
	}
}

func (s *LendingService) record(op, result string) {
	metrics.LendingOperationsTotal.WithLabelValues(op, result).Inc()
}

// fail counts a failed operation and returns err unchanged.
func (s *LendingService) fail(op string, err error) error {
	reason := failureReason(err)
	if reason == "error" {
		s.log.Error().Err(err).Str("operation", op).Msg("lending operation failed")
	}
	s.record(op, reason)
	return err
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrUserNotFound), errors.Is(err, domain.ErrBookNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrBorrowLimitExceeded):
		return "limit_exceeded"
	case errors.Is(err, domain.ErrActivePenalty):
		return "active_penalty"
	case errors.Is(err, domain.ErrAlreadyBorrowed):
		return "already_borrowed"
	case errors.Is(err, domain.ErrNotBorrowedByUser):
		return "not_borrowed_by_user"
	case errors.Is(err, domain.ErrStoreUnavailable):
		return "store_unavailable"
	default:
		return "error"
	}
}
