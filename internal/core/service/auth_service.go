package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/librario/lending-api/internal/core/domain"
	"github.com/librario/lending-api/internal/core/ports"
)

const defaultTokenTTL = 15 * time.Minute

// sessionClaims binds a token to a user id (sub) and email.
type sessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// AuthService implements registration, sign-in and session verification.
// The latest issued token is persisted on the user, so issuing a new one
// invalidates the previous one.
type AuthService struct {
	users     ports.UserRepository
	sessions  ports.SessionCache
	jwtSecret []byte
	tokenTTL  time.Duration
	log       zerolog.Logger
	now       func() time.Time
}

func NewAuthService(
	users ports.UserRepository,
	sessions ports.SessionCache,
	jwtSecret string,
	tokenTTL time.Duration,
	log zerolog.Logger,
) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = defaultTokenTTL
	}
	if sessions == nil {
		sessions = noSessionCache{}
	}
	return &AuthService{
		users:     users,
		sessions:  sessions,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
		log:       log,
		now:       time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a MEMBER account and signs it in. When the account is
// stored but the session cannot be issued the error wraps
// domain.ErrSessionNotIssued, since repeating the signup would only hit
// ErrDuplicateEmail.
func (s *AuthService) Register(ctx context.Context, email, password string) (*ports.Session, error) {
	created, err := s.CreateAccount(ctx, email, password, domain.RoleMember)
	if err != nil {
		return nil, err
	}
	sess, err := s.issue(ctx, created)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", created.ID).Msg("session not issued after signup")
		return nil, fmt.Errorf("%w: %w", domain.ErrSessionNotIssued, err)
	}
	return sess, nil
}

// CreateAccount stores a new user with the given role without signing it in.
func (s *AuthService) CreateAccount(ctx context.Context, email, password string, role domain.Role) (*domain.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}
	if !role.Valid() {
		return nil, domain.ErrInvalidRole
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	created, err := s.users.Create(ctx, &domain.User{
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		if !errors.Is(err, domain.ErrDuplicateEmail) {
			s.log.Error().Err(err).Msg("failed to create user")
		}
		return nil, err
	}

	s.log.Info().Str("user_id", created.ID).Str("role", string(role)).Msg("user registered")
	return created, nil
}

// Login verifies the credentials and issues a new session. An unknown email
// and a wrong password fail with the same error.
func (s *AuthService) Login(ctx context.Context, email, password string) (*ports.Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := withStoreRetry(ctx, func(ctx context.Context) (*domain.User, error) {
		return s.users.FindByEmail(ctx, email)
	})
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		s.log.Debug().Str("user_id", user.ID).Msg("password mismatch")
		return nil, domain.ErrInvalidCredentials
	}

	return s.issue(ctx, user)
}

// IssueSession signs a new token for userID and persists it as the user's
// only valid session.
func (s *AuthService) IssueSession(ctx context.Context, userID string) (*ports.Session, error) {
	user, err := withStoreRetry(ctx, func(ctx context.Context) (*domain.User, error) {
		return s.users.FindByID(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	return s.issue(ctx, user)
}

func (s *AuthService) issue(ctx context.Context, user *domain.User) (*ports.Session, error) {
	now := s.now()
	expiresAt := now.Add(s.tokenTTL)

	claims := sessionClaims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	_, err = withStoreRetry(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.users.SetToken(ctx, user.ID, token)
	})
	if err != nil {
		return nil, err
	}
	user.Token = token
	s.cache(ctx, user)

	return &ports.Session{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// cache refreshes the cached session. When the write fails the entry is
// dropped so a stale token cannot outlive the store.
func (s *AuthService) cache(ctx context.Context, user *domain.User) {
	sess := ports.CachedSession{Token: user.Token, Email: user.Email, Role: user.Role}
	if err := s.sessions.Set(ctx, user.ID, sess, s.tokenTTL); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("session cache write failed")
		if err := s.sessions.Delete(ctx, user.ID); err != nil {
			s.log.Error().Err(err).Str("user_id", user.ID).Msg("session cache eviction failed")
		}
	}
}

// Logout clears the persisted token. Calling it again is a no-op.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	_, err := withStoreRetry(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.users.SetToken(ctx, userID, "")
	})
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		return err
	}
	if err := s.sessions.Delete(ctx, userID); err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("session cache eviction failed")
	}

	s.log.Info().Str("user_id", userID).Msg("user logged out")
	return nil
}

// RoleOf returns the current role of userID.
func (s *AuthService) RoleOf(ctx context.Context, userID string) (domain.Role, error) {
	user, err := withStoreRetry(ctx, func(ctx context.Context) (*domain.User, error) {
		return s.users.FindByID(ctx, userID)
	})
	if err != nil {
		return "", err
	}
	return user.Role, nil
}

// Authorize resolves a bearer token to the caller's identity. The token must
// be well formed, unexpired and equal to the user's persisted token.
func (s *AuthService) Authorize(ctx context.Context, token string) (*ports.Identity, error) {
	claims, err := s.parse(token)
	if err != nil {
		s.log.Debug().Err(err).Msg("token rejected")
		return nil, domain.ErrUnauthenticated
	}

	sess, err := s.session(ctx, claims.Subject, token)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUnauthenticated
		}
		return nil, err
	}
	if !sameToken(sess.Token, token) {
		return nil, domain.ErrUnauthenticated
	}

	return &ports.Identity{UserID: claims.Subject, Email: sess.Email, Role: sess.Role}, nil
}

func (s *AuthService) parse(token string) (*sessionClaims, error) {
	claims := &sessionClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return s.jwtSecret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// session returns the persisted session of userID, trying the cache first.
// A cached token that differs from presented is re-read from the store in
// case the cache is behind.
func (s *AuthService) session(ctx context.Context, userID, presented string) (*ports.CachedSession, error) {
	cached, err := s.sessions.Get(ctx, userID)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("session cache read failed")
	}
	if cached != nil && sameToken(cached.Token, presented) {
		return cached, nil
	}

	user, err := withStoreRetry(ctx, func(ctx context.Context) (*domain.User, error) {
		return s.users.FindByID(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	if user.Token != "" {
		s.cache(ctx, user)
	}
	return &ports.CachedSession{Token: user.Token, Email: user.Email, Role: user.Role}, nil
}

func sameToken(stored, presented string) bool {
	return stored != "" && subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) == 1
}
