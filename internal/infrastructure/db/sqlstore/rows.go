package sqlstore

import (
	"database/sql"
	"time"

	"github.com/librario/lending-api/internal/core/domain"
)

const (
	userColumns    = `id, email, password_hash, first_name, last_name, role, token, created_at, updated_at`
	bookColumns    = `id, code, title, author, stock, borrowed, borrower_id, borrowed_at, created_at, updated_at`
	penaltyColumns = `id, user_id, start_date, end_date`
)

type userRow struct {
	ID           string         `db:"id"`
	Email        string         `db:"email"`
	PasswordHash string         `db:"password_hash"`
	FirstName    string         `db:"first_name"`
	LastName     string         `db:"last_name"`
	Role         string         `db:"role"`
	Token        sql.NullString `db:"token"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

func (r userRow) toDomain() *domain.User {
	return &domain.User{
		ID:           r.ID,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		Role:         domain.Role(r.Role),
		Token:        r.Token.String,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}

type bookRow struct {
	ID         string         `db:"id"`
	Code       string         `db:"code"`
	Title      string         `db:"title"`
	Author     string         `db:"author"`
	Stock      int            `db:"stock"`
	Borrowed   bool           `db:"borrowed"`
	BorrowerID sql.NullString `db:"borrower_id"`
	BorrowedAt sql.NullTime   `db:"borrowed_at"`
	CreatedAt  time.Time      `db:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at"`
}

func (r bookRow) toDomain() *domain.Book {
	b := &domain.Book{
		ID:         r.ID,
		Code:       r.Code,
		Title:      r.Title,
		Author:     r.Author,
		Stock:      r.Stock,
		Borrowed:   r.Borrowed,
		BorrowerID: r.BorrowerID.String,
		CreatedAt:  r.CreatedAt.UTC(),
		UpdatedAt:  r.UpdatedAt.UTC(),
	}
	if r.BorrowedAt.Valid {
		at := r.BorrowedAt.Time.UTC()
		b.BorrowedAt = &at
	}
	return b
}

func toBooks(rows []bookRow) []*domain.Book {
	out := make([]*domain.Book, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out
}

type penaltyRow struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	StartDate time.Time `db:"start_date"`
	EndDate   time.Time `db:"end_date"`
}

func (r penaltyRow) toDomain() *domain.Penalty {
	return &domain.Penalty{
		ID:        r.ID,
		UserID:    r.UserID,
		StartDate: r.StartDate.UTC(),
		EndDate:   r.EndDate.UTC(),
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
