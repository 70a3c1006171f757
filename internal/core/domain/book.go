package domain

import "time"

// BookState is the lending state of a single book.
type BookState string

const (
	BookAvailable BookState = "available"
	BookBorrowed  BookState = "borrowed"
)

// Book is a single lendable item. Stock is catalogue metadata: a book is
// lent as one unit regardless of its stock count.
type Book struct {
	ID         string     `json:"id"`
	Code       string     `json:"code"`
	Title      string     `json:"title"`
	Author     string     `json:"author"`
	Stock      int        `json:"stock"`
	Borrowed   bool       `json:"borrowed"`
	BorrowerID string     `json:"borrower_id,omitempty"`
	BorrowedAt *time.Time `json:"borrowed_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// State derives the lending state from the borrowed flag.
func (b *Book) State() BookState {
	if b.Borrowed {
		return BookBorrowed
	}
	return BookAvailable
}

// BorrowedBy reports whether the book is currently lent to userID.
func (b *Book) BorrowedBy(userID string) bool {
	return b.Borrowed && b.BorrowerID == userID
}

// MarkBorrowed moves the book into the borrowed state. The borrowed flag,
// borrower and timestamp always change together.
func (b *Book) MarkBorrowed(userID string, at time.Time) {
	since := at
	b.Borrowed = true
	b.BorrowerID = userID
	b.BorrowedAt = &since
	b.UpdatedAt = at
}

// MarkReturned clears the borrower back-reference.
func (b *Book) MarkReturned(at time.Time) {
	b.Borrowed = false
	b.BorrowerID = ""
	b.BorrowedAt = nil
	b.UpdatedAt = at
}

// BookPatch carries the catalogue fields of a partial book update.
type BookPatch struct {
	Code   *string
	Title  *string
	Author *string
	Stock  *int
}

// Apply copies every supplied field onto b. Lending state is never touched.
func (p BookPatch) Apply(b *Book) {
	if p.Code != nil {
		b.Code = *p.Code
	}
	if p.Title != nil {
		b.Title = *p.Title
	}
	if p.Author != nil {
		b.Author = *p.Author
	}
	if p.Stock != nil {
		b.Stock = *p.Stock
	}
}
