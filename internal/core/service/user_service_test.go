package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/librario/lending-api/internal/core/domain"
	"github.com/librario/lending-api/internal/core/ports"
)

func newUserFixture(t *testing.T) (*UserService, *stubStore, *stubSessionCache) {
	t.Helper()
	store := newStubStore()
	cache := newStubSessionCache()
	svc := NewUserService(store.userRepo(), store.bookRepo(), store.penaltyRepo(), cache, zerolog.Nop())
	svc.now = func() time.Time { return t0 }
	return svc, store, cache
}

func TestUserService_Me(t *testing.T) {
	svc, store, _ := newUserFixture(t)
	ctx := context.Background()
	u, _ := store.userRepo().Create(ctx, &domain.User{Email: "u1@example.com", FirstName: "Ada", Role: domain.RoleMember})
	b, _ := store.bookRepo().Create(ctx, &domain.Book{Code: "b1"})
	_, _ = store.bookRepo().MarkBorrowed(ctx, b.ID, u.ID, t0, domain.MaxBorrowedBooks)
	store.penalties = append(store.penalties,
		&domain.Penalty{ID: "old", UserID: u.ID, StartDate: t0.Add(-96 * time.Hour), EndDate: t0.Add(-24 * time.Hour)},
		&domain.Penalty{ID: "live", UserID: u.ID, StartDate: t0.Add(-time.Hour), EndDate: t0.Add(time.Hour)},
	)

	p, err := svc.Me(ctx, u.ID)
	if err != nil {
		t.Fatalf("Me: %v", err)
	}
	if p.User.FirstName != "Ada" || len(p.BorrowedBooks) != 1 || len(p.Penalties) != 2 {
		t.Fatalf("unexpected profile: %+v", p)
	}
	if p.ActivePenalty == nil || p.ActivePenalty.ID != "live" {
		t.Fatalf("expected the live penalty to be active, got %+v", p.ActivePenalty)
	}

	if _, err := svc.Me(ctx, "ghost"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserService_UpdateProfile(t *testing.T) {
	svc, store, cache := newUserFixture(t)
	ctx := context.Background()
	u, _ := store.userRepo().Create(ctx, &domain.User{Email: "u1@example.com", LastName: "Lovelace"})
	_, _ = store.userRepo().Create(ctx, &domain.User{Email: "taken@example.com"})
	_ = cache.Set(ctx, u.ID, ports.CachedSession{Token: "t"}, time.Minute)

	first := "Ada"
	got, err := svc.UpdateProfile(ctx, u.ID, domain.UserPatch{FirstName: &first})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if got.FirstName != "Ada" || got.LastName != "Lovelace" {
		t.Fatalf("unexpected user: %+v", got)
	}
	if s, _ := cache.Get(ctx, u.ID); s == nil {
		t.Fatalf("a name change must keep the cached session")
	}

	taken := " Taken@Example.com"
	if _, err := svc.UpdateProfile(ctx, u.ID, domain.UserPatch{Email: &taken}); !errors.Is(err, domain.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}

	fresh := "ada@example.com"
	if _, err := svc.UpdateProfile(ctx, u.ID, domain.UserPatch{Email: &fresh}); err != nil {
		t.Fatalf("email change: %v", err)
	}
	if s, _ := cache.Get(ctx, u.ID); s != nil {
		t.Fatalf("an email change must evict the cached session")
	}
}

func TestUserService_ChangeRole(t *testing.T) {
	svc, store, cache := newUserFixture(t)
	ctx := context.Background()
	u, _ := store.userRepo().Create(ctx, &domain.User{Email: "u1@example.com", Role: domain.RoleMember})
	_ = cache.Set(ctx, u.ID, ports.CachedSession{Token: "t", Role: domain.RoleMember}, time.Minute)

	got, err := svc.ChangeRole(ctx, "admin-1", u.ID, domain.RoleAdmin)
	if err != nil {
		t.Fatalf("ChangeRole: %v", err)
	}
	if got.Role != domain.RoleAdmin {
		t.Fatalf("expected ADMIN, got %s", got.Role)
	}
	if s, _ := cache.Get(ctx, u.ID); s != nil {
		t.Fatalf("expected cached session to be evicted after a role change")
	}

	if _, err := svc.ChangeRole(ctx, "admin-1", u.ID, domain.Role("OWNER")); !errors.Is(err, domain.ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
	if _, err := svc.ChangeRole(ctx, "admin-1", "ghost", domain.RoleAdmin); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
