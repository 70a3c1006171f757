package handler

import "time"

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Requests ---

type credentialsRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=1"`
}

type createBookRequest struct {
	Code   string `json:"code"   validate:"required"`
	Title  string `json:"title"  validate:"required"`
	Author string `json:"author" validate:"required"`
	Stock  *int   `json:"stock"  validate:"required,gte=0"`
}

// editBookRequest is a partial update: absent fields are left unchanged.
type editBookRequest struct {
	Code   *string `json:"code"   validate:"omitempty,min=1"`
	Title  *string `json:"title"  validate:"omitempty,min=1"`
	Author *string `json:"author" validate:"omitempty,min=1"`
	Stock  *int    `json:"stock"  validate:"omitempty,gte=0"`
}

type updateProfileRequest struct {
	Email     *string `json:"email"      validate:"omitempty,email"`
	FirstName *string `json:"first_name" validate:"omitempty,max=100"`
	LastName  *string `json:"last_name"  validate:"omitempty,max=100"`
}

type changeRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=ADMIN MEMBER"`
}

// --- Responses ---

type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name,omitempty"`
	LastName  string    `json:"last_name,omitempty"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type sessionResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      userResponse `json:"user"`
}

type bookResponse struct {
	ID         string     `json:"id"`
	Code       string     `json:"code"`
	Title      string     `json:"title"`
	Author     string     `json:"author"`
	Stock      int        `json:"stock"`
	State      string     `json:"state"`
	BorrowerID string     `json:"borrower_id,omitempty"`
	BorrowedAt *time.Time `json:"borrowed_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

type penaltyResponse struct {
	ID        string    `json:"id"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

type returnResponse struct {
	Book    bookResponse     `json:"book"`
	Penalty *penaltyResponse `json:"penalty,omitempty"`
}

type borrowerResponse struct {
	UserID        string         `json:"user_id"`
	Email         string         `json:"email"`
	FirstName     string         `json:"first_name,omitempty"`
	LastName      string         `json:"last_name,omitempty"`
	BooksBorrowed int            `json:"books_borrowed"`
	Books         []bookResponse `json:"books"`
}

type profileResponse struct {
	User          userResponse      `json:"user"`
	BorrowedBooks []bookResponse    `json:"borrowed_books"`
	Penalties     []penaltyResponse `json:"penalties"`
	ActivePenalty *penaltyResponse  `json:"active_penalty,omitempty"`
}
