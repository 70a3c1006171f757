package handler

import (
	"github.com/librario/lending-api/internal/core/domain"
	"github.com/librario/lending-api/internal/core/ports"
)

// --- Request → domain ---

func (r editBookRequest) toPatch() domain.BookPatch {
	return domain.BookPatch{Code: r.Code, Title: r.Title, Author: r.Author, Stock: r.Stock}
}

func (r updateProfileRequest) toPatch() domain.UserPatch {
	return domain.UserPatch{Email: r.Email, FirstName: r.FirstName, LastName: r.LastName}
}

// --- Service result → HTTP response ---

func toUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt.UTC(),
	}
}

func toSessionResponse(s *ports.Session) sessionResponse {
	return sessionResponse{
		Token:     s.Token,
		ExpiresAt: s.ExpiresAt.UTC(),
		User:      toUserResponse(s.User),
	}
}

func toBookResponse(b *domain.Book) bookResponse {
	resp := bookResponse{
		ID:         b.ID,
		Code:       b.Code,
		Title:      b.Title,
		Author:     b.Author,
		Stock:      b.Stock,
		State:      string(b.State()),
		BorrowerID: b.BorrowerID,
		CreatedAt:  b.CreatedAt.UTC(),
		UpdatedAt:  b.UpdatedAt.UTC(),
	}
	if b.BorrowedAt != nil {
		at := b.BorrowedAt.UTC()
		resp.BorrowedAt = &at
	}
	return resp
}

func toBookResponses(books []*domain.Book) []bookResponse {
	out := make([]bookResponse, len(books))
	for i, b := range books {
		out[i] = toBookResponse(b)
	}
	return out
}

func toPenaltyResponse(p *domain.Penalty) *penaltyResponse {
	if p == nil {
		return nil
	}
	return &penaltyResponse{ID: p.ID, StartDate: p.StartDate.UTC(), EndDate: p.EndDate.UTC()}
}

func toReturnResponse(r *ports.ReturnResult) returnResponse {
	return returnResponse{Book: toBookResponse(r.Book), Penalty: toPenaltyResponse(r.Penalty)}
}

func toBorrowerResponses(rows []ports.BorrowerSummary) []borrowerResponse {
	out := make([]borrowerResponse, len(rows))
	for i, r := range rows {
		out[i] = borrowerResponse{
			UserID:        r.UserID,
			Email:         r.Email,
			FirstName:     r.FirstName,
			LastName:      r.LastName,
			BooksBorrowed: r.BooksBorrowed,
			Books:         toBookResponses(r.Books),
		}
	}
	return out
}

func toProfileResponse(p *ports.Profile) profileResponse {
	penalties := make([]penaltyResponse, len(p.Penalties))
	for i, pen := range p.Penalties {
		penalties[i] = *toPenaltyResponse(pen)
	}
	return profileResponse{
		User:          toUserResponse(p.User),
		BorrowedBooks: toBookResponses(p.BorrowedBooks),
		Penalties:     penalties,
		ActivePenalty: toPenaltyResponse(p.ActivePenalty),
	}
}
