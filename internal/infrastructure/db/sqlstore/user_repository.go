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

// UserRepository implements ports.UserRepository.
type UserRepository struct {
	db *DB
}

func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	created := *user
	created.ID = uuid.NewString()
	created.CreatedAt = user.CreatedAt.UTC()
	created.UpdatedAt = user.UpdatedAt.UTC()

	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO users (id, email, password_hash, first_name, last_name, role, token, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		created.ID, created.Email, created.PasswordHash, created.FirstName, created.LastName,
		string(created.Role), nullString(created.Token), created.CreatedAt, created.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrDuplicateEmail
		}
		return nil, storeErr("create user", err)
	}
	return &created, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	user, err := getUser(ctx, r.db, `WHERE id = ?`, id)
	return user, storeErr("find user by id", err)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	user, err := getUser(ctx, r.db, `WHERE email = ?`, email)
	return user, storeErr("find user by email", err)
}

func (r *UserRepository) SetToken(ctx context.Context, id, token string) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	res, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE users SET token = ?, updated_at = ? WHERE id = ?`),
		nullString(token), time.Now().UTC(), id)
	if err != nil {
		return storeErr("set token", err)
	}
	return storeErr("set token", expectRow(res, domain.ErrUserNotFound))
}

func (r *UserRepository) Update(ctx context.Context, id string, patch domain.UserPatch) (*domain.User, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var user *domain.User
	err := r.db.inTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		if user, err = getUser(ctx, tx, `WHERE id = ?`, id); err != nil {
			return err
		}
		patch.Apply(user)
		user.UpdatedAt = time.Now().UTC()

		_, err = tx.ExecContext(ctx, tx.Rebind(`
			UPDATE users SET email = ?, first_name = ?, last_name = ?, updated_at = ? WHERE id = ?`),
			user.Email, user.FirstName, user.LastName, user.UpdatedAt, id)
		if isUniqueViolation(err) {
			return domain.ErrDuplicateEmail
		}
		return err
	})
	if err != nil {
		return nil, storeErr("update user", err)
	}
	return user, nil
}

func (r *UserRepository) SetRole(ctx context.Context, id string, role domain.Role) (*domain.User, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var user *domain.User
	err := r.db.inTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE users SET role = ?, updated_at = ? WHERE id = ?`),
			string(role), time.Now().UTC(), id)
		if err != nil {
			return err
		}
		if err := expectRow(res, domain.ErrUserNotFound); err != nil {
			return err
		}
		user, err = getUser(ctx, tx, `WHERE id = ?`, id)
		return err
	})
	if err != nil {
		return nil, storeErr("set role", err)
	}
	return user, nil
}

// ListBorrowers returns users holding at least one book, in registration
// order, each with their books in borrow order.
func (r *UserRepository) ListBorrowers(ctx context.Context) ([]ports.Borrower, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var out []ports.Borrower
	err := r.db.inTx(ctx, func(tx *sqlx.Tx) error {
		var users []userRow
		if err := tx.SelectContext(ctx, &users, `
			SELECT `+userColumns+` FROM users u
			WHERE EXISTS (SELECT 1 FROM books b WHERE b.borrower_id = u.id)
			ORDER BY u.seq`); err != nil {
			return err
		}

		var books []bookRow
		if err := tx.SelectContext(ctx, &books, `
			SELECT `+bookColumns+` FROM books
			WHERE borrower_id IS NOT NULL
			ORDER BY borrowed_at, seq`); err != nil {
			return err
		}

		byUser := make(map[string][]*domain.Book, len(users))
		for _, b := range books {
			byUser[b.BorrowerID.String] = append(byUser[b.BorrowerID.String], b.toDomain())
		}
		out = make([]ports.Borrower, 0, len(users))
		for _, u := range users {
			out = append(out, ports.Borrower{User: u.toDomain(), Books: byUser[u.ID]})
		}
		return nil
	})
	if err != nil {
		return nil, storeErr("list borrowers", err)
	}
	return out, nil
}

func getUser(ctx context.Context, q queryer, where string, args ...any) (*domain.User, error) {
	var row userRow
	err := q.GetContext(ctx, &row, q.Rebind(`SELECT `+userColumns+` FROM users `+where), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

// expectRow returns notFound when res reports no affected rows.
func expectRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
