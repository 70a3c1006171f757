package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/librario/lending-api/internal/core/domain"
	"github.com/librario/lending-api/internal/core/ports"
)

func init() {
	storeRetryBackoff = time.Millisecond
}

// ---------------------------------------------------------------------------
// In-memory stub store shared by the user, book and penalty repositories
// ---------------------------------------------------------------------------

type stubStore struct {
	mu        sync.Mutex
	seq       int
	users     map[string]*domain.User
	userOrder []string
	books     map[string]*domain.Book
	bookOrder []string
	penalties []*domain.Penalty

	faults     map[string]int // method -> upcoming ErrStoreUnavailable failures
	calls      map[string]int
	penaltyErr error // if set, MarkReturned fails when it has a penalty to store
}

func newStubStore() *stubStore {
	return &stubStore{
		users:  make(map[string]*domain.User),
		books:  make(map[string]*domain.Book),
		faults: make(map[string]int),
		calls:  make(map[string]int),
	}
}

func (s *stubStore) enter(method string) error {
	s.calls[method]++
	if s.faults[method] > 0 {
		s.faults[method]--
		return fmt.Errorf("%w: injected fault in %s", domain.ErrStoreUnavailable, method)
	}
	return nil
}

func (s *stubStore) callCount(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

func (s *stubStore) fail(method string, times int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[method] = times
}

func (s *stubStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func (s *stubStore) userRepo() stubUsers { return stubUsers{s} }

func (s *stubStore) bookRepo() stubBooks { return stubBooks{s} }

func (s *stubStore) penaltyRepo() stubPenalties { return stubPenalties{s} }

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

func cloneBook(b *domain.Book) *domain.Book {
	if b == nil {
		return nil
	}
	clone := *b
	if b.BorrowedAt != nil {
		at := *b.BorrowedAt
		clone.BorrowedAt = &at
	}
	return &clone
}

func clonePenalty(p *domain.Penalty) *domain.Penalty {
	clone := *p
	return &clone
}

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

type stubUsers struct{ *stubStore }

func (r stubUsers) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("users.Create"); err != nil {
		return nil, err
	}
	for _, u := range r.users {
		if u.Email == user.Email {
			return nil, domain.ErrDuplicateEmail
		}
	}
	c := cloneUser(user)
	if c.ID == "" {
		c.ID = r.nextID("user")
	}
	r.users[c.ID] = c
	r.userOrder = append(r.userOrder, c.ID)
	return cloneUser(c), nil
}

func (r stubUsers) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("users.FindByID"); err != nil {
		return nil, err
	}
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r stubUsers) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("users.FindByEmail"); err != nil {
		return nil, err
	}
	for _, u := range r.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r stubUsers) SetToken(_ context.Context, id, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("users.SetToken"); err != nil {
		return err
	}
	u, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.Token = token
	return nil
}

func (r stubUsers) Update(_ context.Context, id string, patch domain.UserPatch) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("users.Update"); err != nil {
		return nil, err
	}
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	if patch.Email != nil {
		for _, other := range r.users {
			if other.ID != id && other.Email == *patch.Email {
				return nil, domain.ErrDuplicateEmail
			}
		}
	}
	patch.Apply(u)
	return cloneUser(u), nil
}

func (r stubUsers) SetRole(_ context.Context, id string, role domain.Role) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("users.SetRole"); err != nil {
		return nil, err
	}
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	u.Role = role
	return cloneUser(u), nil
}

func (r stubUsers) ListBorrowers(_ context.Context) ([]ports.Borrower, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("users.ListBorrowers"); err != nil {
		return nil, err
	}
	var out []ports.Borrower
	for _, uid := range r.userOrder {
		var books []*domain.Book
		for _, bid := range r.bookOrder {
			if b := r.books[bid]; b.BorrowedBy(uid) {
				books = append(books, cloneBook(b))
			}
		}
		if len(books) > 0 {
			out = append(out, ports.Borrower{User: cloneUser(r.users[uid]), Books: books})
		}
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Books
// ---------------------------------------------------------------------------

type stubBooks struct{ *stubStore }

func (r stubBooks) Create(_ context.Context, book *domain.Book) (*domain.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("books.Create"); err != nil {
		return nil, err
	}
	c := cloneBook(book)
	if c.ID == "" {
		c.ID = r.nextID("book")
	}
	r.books[c.ID] = c
	r.bookOrder = append(r.bookOrder, c.ID)
	return cloneBook(c), nil
}

func (r stubBooks) FindByID(_ context.Context, id string) (*domain.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("books.FindByID"); err != nil {
		return nil, err
	}
	b, ok := r.books[id]
	if !ok {
		return nil, domain.ErrBookNotFound
	}
	return cloneBook(b), nil
}

func (r stubBooks) List(_ context.Context, filter ports.ListBooksFilter) ([]*domain.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("books.List"); err != nil {
		return nil, err
	}
	out := []*domain.Book{}
	for _, id := range r.bookOrder {
		b := r.books[id]
		if filter.AvailableOnly && b.Borrowed {
			continue
		}
		out = append(out, cloneBook(b))
	}
	return out, nil
}

func (r stubBooks) ListByBorrower(_ context.Context, userID string) ([]*domain.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("books.ListByBorrower"); err != nil {
		return nil, err
	}
	out := []*domain.Book{}
	for _, id := range r.bookOrder {
		if b := r.books[id]; b.BorrowedBy(userID) {
			out = append(out, cloneBook(b))
		}
	}
	return out, nil
}

func (r stubBooks) Update(_ context.Context, id string, patch domain.BookPatch) (*domain.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("books.Update"); err != nil {
		return nil, err
	}
	b, ok := r.books[id]
	if !ok {
		return nil, domain.ErrBookNotFound
	}
	patch.Apply(b)
	return cloneBook(b), nil
}

func (r stubBooks) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("books.Delete"); err != nil {
		return err
	}
	if _, ok := r.books[id]; !ok {
		return domain.ErrBookNotFound
	}
	delete(r.books, id)
	for i, bid := range r.bookOrder {
		if bid == id {
			r.bookOrder = append(r.bookOrder[:i], r.bookOrder[i+1:]...)
			break
		}
	}
	return nil
}

// MarkBorrowed mirrors the conditional update of the SQL store.
func (r stubBooks) MarkBorrowed(_ context.Context, bookID, userID string, at time.Time, limit int) (*domain.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("books.MarkBorrowed"); err != nil {
		return nil, err
	}
	b, ok := r.books[bookID]
	if !ok {
		return nil, domain.ErrBookNotFound
	}
	if b.Borrowed {
		return nil, domain.ErrAlreadyBorrowed
	}
	held := 0
	for _, other := range r.books {
		if other.BorrowedBy(userID) {
			held++
		}
	}
	if held >= limit {
		return nil, domain.ErrBorrowLimitExceeded
	}
	b.MarkBorrowed(userID, at)
	return cloneBook(b), nil
}

func (r stubBooks) MarkReturned(_ context.Context, bookID string, at time.Time, decide ports.ReturnDecision) (*domain.Book, *domain.Penalty, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("books.MarkReturned"); err != nil {
		return nil, nil, err
	}
	b, ok := r.books[bookID]
	if !ok {
		return nil, nil, domain.ErrBookNotFound
	}
	penalty, err := decide(cloneBook(b))
	if err != nil {
		return nil, nil, err
	}
	if penalty != nil {
		if r.penaltyErr != nil {
			return nil, nil, r.penaltyErr
		}
		penalty.ID = r.nextID("penalty")
		r.penalties = append(r.penalties, clonePenalty(penalty))
	}
	b.MarkReturned(at)
	return cloneBook(b), penalty, nil
}

// ---------------------------------------------------------------------------
// Penalties
// ---------------------------------------------------------------------------

type stubPenalties struct{ *stubStore }

func (r stubPenalties) ListByUser(_ context.Context, userID string) ([]*domain.Penalty, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("penalties.ListByUser"); err != nil {
		return nil, err
	}
	out := []*domain.Penalty{}
	for _, p := range r.penalties {
		if p.UserID == userID {
			out = append(out, clonePenalty(p))
		}
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Session cache and event publisher
// ---------------------------------------------------------------------------

type stubSessionCache struct {
	mu       sync.Mutex
	sessions map[string]ports.CachedSession
	setErr   error
}

func newStubSessionCache() *stubSessionCache {
	return &stubSessionCache{sessions: make(map[string]ports.CachedSession)}
}

func (c *stubSessionCache) Get(_ context.Context, userID string) (*ports.CachedSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[userID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (c *stubSessionCache) Set(_ context.Context, userID string, s ports.CachedSession, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	c.sessions[userID] = s
	return nil
}

func (c *stubSessionCache) Delete(_ context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, userID)
	return nil
}

type stubPublisher struct {
	mu     sync.Mutex
	events []domain.CirculationEvent
}

func (p *stubPublisher) Publish(e domain.CirculationEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *stubPublisher) types() []domain.CirculationEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.CirculationEventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}
