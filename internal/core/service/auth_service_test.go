package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/librario/lending-api/internal/core/domain"
)

func newAuthFixture(t *testing.T) (*AuthService, *stubStore, *stubSessionCache) {
	t.Helper()
	store := newStubStore()
	cache := newStubSessionCache()
	svc := NewAuthService(store.userRepo(), cache, "secret", 15*time.Minute, zerolog.Nop())
	return svc, store, cache
}

func TestAuthService_Register_Success(t *testing.T) {
	svc, store, _ := newAuthFixture(t)

	sess, err := svc.Register(context.Background(), " U1@Example.com ", "pw1")
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if sess.Token == "" {
		t.Fatalf("expected a token")
	}
	if sess.User.Role != domain.RoleMember {
		t.Fatalf("expected default role MEMBER, got %s", sess.User.Role)
	}
	if sess.User.Email != "u1@example.com" {
		t.Fatalf("expected normalized email, got %q", sess.User.Email)
	}

	stored, err := store.userRepo().FindByID(context.Background(), sess.User.ID)
	if err != nil {
		t.Fatalf("user not persisted: %v", err)
	}
	if stored.PasswordHash == "pw1" {
		t.Fatalf("expected password to be hashed")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("pw1")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}
	if stored.Token != sess.Token {
		t.Fatalf("expected the issued token to be persisted")
	}
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	if _, err := svc.Register(context.Background(), "bob@example.com", "pass"); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if _, err := svc.Register(context.Background(), "BOB@example.com", "pass2"); !errors.Is(err, domain.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestAuthService_Register_SessionFailurePointsToSignin(t *testing.T) {
	svc, store, _ := newAuthFixture(t)
	store.fail("users.SetToken", 2)

	_, err := svc.Register(context.Background(), "lena@example.com", "pw")
	if !errors.Is(err, domain.ErrSessionNotIssued) || !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrSessionNotIssued wrapping ErrStoreUnavailable, got %v", err)
	}

	if _, err := svc.Register(context.Background(), "lena@example.com", "pw"); !errors.Is(err, domain.ErrDuplicateEmail) {
		t.Fatalf("expected the account to exist, got %v", err)
	}
	sess, err := svc.Login(context.Background(), "lena@example.com", "pw")
	if err != nil {
		t.Fatalf("signin after a failed signup session: %v", err)
	}
	if _, err := svc.Authorize(context.Background(), sess.Token); err != nil {
		t.Fatalf("Authorize: %v", err)
	}
}

func TestAuthService_CreateAccount_AdminWithoutSession(t *testing.T) {
	svc, _, cache := newAuthFixture(t)

	user, err := svc.CreateAccount(context.Background(), "root@example.com", "pw", domain.RoleAdmin)
	if err != nil {
		t.Fatalf("CreateAccount returned error: %v", err)
	}
	if user.Role != domain.RoleAdmin || user.Token != "" {
		t.Fatalf("expected an ADMIN without a session, got %+v", user)
	}
	if sess, _ := cache.Get(context.Background(), user.ID); sess != nil {
		t.Fatalf("no session should be cached")
	}

	if _, err := svc.CreateAccount(context.Background(), "x@example.com", "pw", domain.Role("OWNER")); !errors.Is(err, domain.ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
}

func TestAuthService_Login_TokenClaims(t *testing.T) {
	svc, _, _ := newAuthFixture(t)
	reg, _ := svc.Register(context.Background(), "carol@example.com", "s3cret")

	sess, err := svc.Login(context.Background(), "carol@example.com", "s3cret")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(sess.Token, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte("secret"), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("token invalid: %v", err)
	}
	if claims["sub"] != reg.User.ID || claims["email"] != "carol@example.com" {
		t.Fatalf("unexpected claims: %v", claims)
	}
	exp, _ := claims.GetExpirationTime()
	iat, _ := claims.GetIssuedAt()
	if exp == nil || iat == nil || exp.Sub(iat.Time) != 15*time.Minute {
		t.Fatalf("expected a 15 minute token, got iat=%v exp=%v", iat, exp)
	}
}

func TestAuthService_Login_FailuresAreIndistinguishable(t *testing.T) {
	svc, _, _ := newAuthFixture(t)
	_, _ = svc.Register(context.Background(), "dave@example.com", "goodpass")

	_, wrongPassword := svc.Login(context.Background(), "dave@example.com", "badpass")
	_, unknownEmail := svc.Login(context.Background(), "ghost@example.com", "goodpass")

	if !errors.Is(wrongPassword, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", wrongPassword)
	}
	if unknownEmail != wrongPassword {
		t.Fatalf("expected identical errors, got %v and %v", unknownEmail, wrongPassword)
	}
}

func TestAuthService_Login_StoreFailureIsNotMaskedAsBadCredentials(t *testing.T) {
	svc, store, _ := newAuthFixture(t)
	store.fail("users.FindByEmail", 2)

	if _, err := svc.Login(context.Background(), "dave@example.com", "pw"); !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestAuthService_Authorize_Success(t *testing.T) {
	svc, store, _ := newAuthFixture(t)
	sess, _ := svc.Register(context.Background(), "erin@example.com", "pw")
	before := store.callCount("users.FindByID")

	id, err := svc.Authorize(context.Background(), sess.Token)
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if id.UserID != sess.User.ID || id.Role != domain.RoleMember || id.Email != "erin@example.com" {
		t.Fatalf("unexpected identity: %+v", id)
	}
	if store.callCount("users.FindByID") != before {
		t.Fatalf("expected a cache hit without a store lookup")
	}
}

func TestAuthService_Authorize_NewSigninInvalidatesPreviousToken(t *testing.T) {
	svc, _, _ := newAuthFixture(t)
	first, _ := svc.Register(context.Background(), "frank@example.com", "pw")

	second, err := svc.Login(context.Background(), "frank@example.com", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if first.Token == second.Token {
		t.Fatalf("expected distinct tokens")
	}

	if _, err := svc.Authorize(context.Background(), first.Token); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected old token to be rejected, got %v", err)
	}
	if _, err := svc.Authorize(context.Background(), second.Token); err != nil {
		t.Fatalf("expected new token to be accepted, got %v", err)
	}
}

func TestAuthService_Authorize_FallsBackToStoreWhenCacheIsBehind(t *testing.T) {
	svc, _, cache := newAuthFixture(t)
	first, _ := svc.Register(context.Background(), "gina@example.com", "pw")

	cache.setErr = errors.New("redis down")
	second, err := svc.Login(context.Background(), "gina@example.com", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	cache.setErr = nil

	if _, err := svc.Authorize(context.Background(), second.Token); err != nil {
		t.Fatalf("expected store fallback to accept the new token, got %v", err)
	}
	if _, err := svc.Authorize(context.Background(), first.Token); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected the old token to be rejected, got %v", err)
	}
}

func TestAuthService_Logout(t *testing.T) {
	svc, store, cache := newAuthFixture(t)
	sess, _ := svc.Register(context.Background(), "hank@example.com", "pw")

	if err := svc.Logout(context.Background(), sess.User.ID); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if err := svc.Logout(context.Background(), sess.User.ID); err != nil {
		t.Fatalf("second Logout should be a no-op, got %v", err)
	}

	stored, _ := store.userRepo().FindByID(context.Background(), sess.User.ID)
	if stored.Token != "" {
		t.Fatalf("expected token to be cleared")
	}
	if s, _ := cache.Get(context.Background(), sess.User.ID); s != nil {
		t.Fatalf("expected cached session to be evicted")
	}
	if _, err := svc.Authorize(context.Background(), sess.Token); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated after logout, got %v", err)
	}
}

func TestAuthService_Authorize_RejectsBadTokens(t *testing.T) {
	svc, _, _ := newAuthFixture(t)
	sess, _ := svc.Register(context.Background(), "ivy@example.com", "pw")

	hs512, _ := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{
		"sub": sess.User.ID,
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	otherKey, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sess.User.ID,
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("other"))
	noExpiry, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sess.User.ID,
	}).SignedString([]byte("secret"))

	for name, token := range map[string]string{
		"garbage":   "not-a-token",
		"other alg": hs512,
		"other key": otherKey,
		"no expiry": noExpiry,
		"empty":     "",
	} {
		if _, err := svc.Authorize(context.Background(), token); !errors.Is(err, domain.ErrUnauthenticated) {
			t.Fatalf("%s: expected ErrUnauthenticated, got %v", name, err)
		}
	}
}

func TestAuthService_Authorize_Expired(t *testing.T) {
	svc, _, _ := newAuthFixture(t)
	sess, _ := svc.Register(context.Background(), "jack@example.com", "pw")

	svc.now = func() time.Time { return time.Now().Add(16 * time.Minute) }

	if _, err := svc.Authorize(context.Background(), sess.Token); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated for an expired token, got %v", err)
	}
}

func TestAuthService_RoleOf(t *testing.T) {
	svc, store, _ := newAuthFixture(t)
	sess, _ := svc.Register(context.Background(), "kim@example.com", "pw")
	_, _ = store.userRepo().SetRole(context.Background(), sess.User.ID, domain.RoleAdmin)

	role, err := svc.RoleOf(context.Background(), sess.User.ID)
	if err != nil || role != domain.RoleAdmin {
		t.Fatalf("expected ADMIN, got %q (%v)", role, err)
	}
	if _, err := svc.RoleOf(context.Background(), "ghost"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
