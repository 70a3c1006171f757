package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/librario/lending-api/internal/core/domain"
	"github.com/librario/lending-api/internal/core/ports"
)

// UserService serves the caller's profile and administrative role changes.
type UserService struct {
	users     ports.UserRepository
	books     ports.BookRepository
	penalties ports.PenaltyRepository
	sessions  ports.SessionCache
	log       zerolog.Logger
	now       func() time.Time
}

func NewUserService(
	users ports.UserRepository,
	books ports.BookRepository,
	penalties ports.PenaltyRepository,
	sessions ports.SessionCache,
	log zerolog.Logger,
) *UserService {
	if sessions == nil {
		sessions = noSessionCache{}
	}
	return &UserService{
		users:     users,
		books:     books,
		penalties: penalties,
		sessions:  sessions,
		log:       log,
		now:       time.Now,
	}
}

// Me returns the user with their borrowed books and penalty history.
func (s *UserService) Me(ctx context.Context, userID string) (*ports.Profile, error) {
	user, err := withStoreRetry(ctx, func(ctx context.Context) (*domain.User, error) {
		return s.users.FindByID(ctx, userID)
	})
	if err != nil {
		return nil, err
	}

	books, err := withStoreRetry(ctx, func(ctx context.Context) ([]*domain.Book, error) {
		return s.books.ListByBorrower(ctx, userID)
	})
	if err != nil {
		return nil, err
	}

	penalties, err := withStoreRetry(ctx, func(ctx context.Context) ([]*domain.Penalty, error) {
		return s.penalties.ListByUser(ctx, userID)
	})
	if err != nil {
		return nil, err
	}

	return &ports.Profile{
		User:          user,
		BorrowedBooks: books,
		Penalties:     penalties,
		ActivePenalty: domain.ActivePenalty(penalties, s.now()),
	}, nil
}

// UpdateProfile changes the caller's name or email.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, patch domain.UserPatch) (*domain.User, error) {
	if patch.Email != nil {
		email := normalizeEmail(*patch.Email)
		patch.Email = &email
	}

	user, err := withStoreRetry(ctx, func(ctx context.Context) (*domain.User, error) {
		return s.users.Update(ctx, userID, patch)
	})
	if err != nil {
		if !errors.Is(err, domain.ErrDuplicateEmail) && !errors.Is(err, domain.ErrUserNotFound) {
			s.log.Error().Err(err).Str("user_id", userID).Msg("failed to update profile")
		}
		return nil, err
	}

	if patch.Email != nil {
		s.evict(ctx, userID)
	}
	s.log.Info().Str("user_id", userID).Msg("profile updated")
	return user, nil
}

// ChangeRole sets the role of targetID. Only reachable by administrators.
func (s *UserService) ChangeRole(ctx context.Context, actorID, targetID string, role domain.Role) (*domain.User, error) {
	if !role.Valid() {
		return nil, domain.ErrInvalidRole
	}

	user, err := withStoreRetry(ctx, func(ctx context.Context) (*domain.User, error) {
		return s.users.SetRole(ctx, targetID, role)
	})
	if err != nil {
		return nil, err
	}

	s.evict(ctx, targetID)
	s.log.Info().
		Str("actor_id", actorID).
		Str("user_id", targetID).
		Str("role", string(role)).
		Msg("role changed")
	return user, nil
}

func (s *UserService) evict(ctx context.Context, userID string) {
	if err := s.sessions.Delete(ctx, userID); err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("session cache eviction failed")
	}
}
