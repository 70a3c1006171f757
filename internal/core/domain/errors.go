package domain

import "errors"

var (
	ErrUnauthenticated     = errors.New("authentication required")
	ErrForbidden           = errors.New("insufficient permissions")
	ErrUserNotFound        = errors.New("user not found")
	ErrBookNotFound        = errors.New("book not found")
	ErrDuplicateEmail      = errors.New("email address is already taken")
	ErrInvalidCredentials  = errors.New("credentials incorrect")
	ErrBorrowLimitExceeded = errors.New("borrow limit reached")
	ErrActivePenalty       = errors.New("borrowing suspended by an active penalty")
	ErrAlreadyBorrowed     = errors.New("book is already borrowed")
	ErrNotBorrowedByUser   = errors.New("book is not borrowed by this user")
	ErrStoreUnavailable    = errors.New("store unavailable")
	ErrInvalidRole         = errors.New("unknown role")
	ErrSessionNotIssued    = errors.New("account created but no session was issued, sign in to continue")
)
