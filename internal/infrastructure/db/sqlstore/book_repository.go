package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/librario/lending-api/internal/core/domain"
	"github.com/librario/lending-api/internal/core/ports"
)

// BookRepository implements ports.BookRepository.
type BookRepository struct {
	db *DB
}

func NewBookRepository(db *DB) *BookRepository {
	return &BookRepository{db: db}
}

func (r *BookRepository) Create(ctx context.Context, book *domain.Book) (*domain.Book, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	created := *book
	created.ID = uuid.NewString()
	created.Borrowed = false
	created.BorrowerID = ""
	created.BorrowedAt = nil
	created.CreatedAt = book.CreatedAt.UTC()
	created.UpdatedAt = book.UpdatedAt.UTC()

	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO books (id, code, title, author, stock, borrowed, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		created.ID, created.Code, created.Title, created.Author, created.Stock, false,
		created.CreatedAt, created.UpdatedAt,
	)
	if err != nil {
		return nil, storeErr("create book", err)
	}
	return &created, nil
}

func (r *BookRepository) FindByID(ctx context.Context, id string) (*domain.Book, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	book, err := getBook(ctx, r.db, `WHERE id = ?`, id)
	return book, storeErr("find book", err)
}

func (r *BookRepository) List(ctx context.Context, filter ports.ListBooksFilter) ([]*domain.Book, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	q := `SELECT ` + bookColumns + ` FROM books`
	var args []any
	if filter.AvailableOnly {
		q += ` WHERE borrowed = ?`
		args = append(args, false)
	}
	q += ` ORDER BY seq`

	var rows []bookRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(q), args...); err != nil {
		return nil, storeErr("list books", err)
	}
	return toBooks(rows), nil
}

func (r *BookRepository) ListByBorrower(ctx context.Context, userID string) ([]*domain.Book, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var rows []bookRow
	err := r.db.SelectContext(ctx, &rows, r.db.Rebind(
		`SELECT `+bookColumns+` FROM books WHERE borrower_id = ? ORDER BY borrowed_at, seq`), userID)
	if err != nil {
		return nil, storeErr("list books by borrower", err)
	}
	return toBooks(rows), nil
}

func (r *BookRepository) Update(ctx context.Context, id string, patch domain.BookPatch) (*domain.Book, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var book *domain.Book
	err := r.db.inTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		if book, err = getBook(ctx, tx, `WHERE id = ?`+r.forUpdate(), id); err != nil {
			return err
		}
		patch.Apply(book)
		book.UpdatedAt = time.Now().UTC()

		_, err = tx.ExecContext(ctx, tx.Rebind(`
			UPDATE books SET code = ?, title = ?, author = ?, stock = ?, updated_at = ? WHERE id = ?`),
			book.Code, book.Title, book.Author, book.Stock, book.UpdatedAt, id)
		return err
	})
	if err != nil {
		return nil, storeErr("update book", err)
	}
	return book, nil
}

func (r *BookRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM books WHERE id = ?`), id)
	if err != nil {
		return storeErr("delete book", err)
	}
	return storeErr("delete book", expectRow(res, domain.ErrBookNotFound))
}

// MarkBorrowed applies the availability and limit checks in the UPDATE's
// WHERE clause, so two racing borrows cannot both succeed.
func (r *BookRepository) MarkBorrowed(ctx context.Context, bookID, userID string, at time.Time, limit int) (*domain.Book, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	at = at.UTC()
	var book *domain.Book
	err := r.db.inTx(ctx, func(tx *sqlx.Tx) error {
		if r.db.isPostgres() {
			// Serializes borrows by the same user across different books.
			var id string
			err := tx.GetContext(ctx, &id, tx.Rebind(`SELECT id FROM users WHERE id = ? FOR UPDATE`), userID)
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrUserNotFound
			}
			if err != nil {
				return err
			}
		}

		res, err := tx.ExecContext(ctx, tx.Rebind(`
			UPDATE books SET borrowed = ?, borrower_id = ?, borrowed_at = ?, updated_at = ?
			WHERE id = ? AND borrowed = ?
			  AND (SELECT COUNT(*) FROM books held WHERE held.borrower_id = ?) < ?`),
			true, userID, at, at, bookID, false, userID, limit)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return classifyBorrowConflict(ctx, tx, bookID, userID, limit)
		}

		book, err = getBook(ctx, tx, `WHERE id = ?`, bookID)
		return err
	})
	if err != nil {
		return nil, storeErr("mark borrowed", err)
	}
	return book, nil
}

// classifyBorrowConflict explains why the conditional borrow matched no row.
func classifyBorrowConflict(ctx context.Context, tx *sqlx.Tx, bookID, userID string, limit int) error {
	book, err := getBook(ctx, tx, `WHERE id = ?`, bookID)
	if err != nil {
		return err
	}
	if book.Borrowed {
		return domain.ErrAlreadyBorrowed
	}

	var held int
	if err := tx.GetContext(ctx, &held, tx.Rebind(`SELECT COUNT(*) FROM books WHERE borrower_id = ?`), userID); err != nil {
		return err
	}
	if held >= limit {
		return domain.ErrBorrowLimitExceeded
	}
	return domain.ErrAlreadyBorrowed
}

func (r *BookRepository) MarkReturned(ctx context.Context, bookID string, at time.Time, decide ports.ReturnDecision) (*domain.Book, *domain.Penalty, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	at = at.UTC()
	var (
		book    *domain.Book
		penalty *domain.Penalty
	)
	err := r.db.inTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		if book, err = getBook(ctx, tx, `WHERE id = ?`+r.forUpdate(), bookID); err != nil {
			return err
		}
		borrower := book.BorrowerID

		if penalty, err = decide(book); err != nil {
			return err
		}
		if penalty != nil {
			penalty.ID = uuid.NewString()
			_, err = tx.ExecContext(ctx, tx.Rebind(`
				INSERT INTO penalties (id, user_id, start_date, end_date) VALUES (?, ?, ?, ?)`),
				penalty.ID, penalty.UserID, penalty.StartDate.UTC(), penalty.EndDate.UTC())
			if err != nil {
				return err
			}
		}

		res, err := tx.ExecContext(ctx, tx.Rebind(`
			UPDATE books SET borrowed = ?, borrower_id = NULL, borrowed_at = NULL, updated_at = ?
			WHERE id = ? AND borrower_id = ?`),
			false, at, bookID, borrower)
		if err != nil {
			return err
		}
		if err := expectRow(res, domain.ErrNotBorrowedByUser); err != nil {
			return err
		}
		book.MarkReturned(at)
		return nil
	})
	if err != nil {
		return nil, nil, storeErr("mark returned", err)
	}
	return book, penalty, nil
}

func (r *BookRepository) forUpdate() string {
	if r.db.isPostgres() {
		return ` FOR UPDATE`
	}
	return ""
}

func getBook(ctx context.Context, q queryer, where string, args ...any) (*domain.Book, error) {
	var row bookRow
	err := q.GetContext(ctx, &row, q.Rebind(`SELECT `+bookColumns+` FROM books `+where), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrBookNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}
