package domain

import "time"

const (
	// MaxBorrowedBooks is the number of books a user may hold at once.
	MaxBorrowedBooks = 2
	// GracePeriodDays is how long a book may be kept before a return is late.
	GracePeriodDays = 7
	// PenaltyDuration is the length of the borrowing ban after a late return.
	PenaltyDuration = 3 * 24 * time.Hour
)

const millisPerDay = int64(24 * time.Hour / time.Millisecond)

// ElapsedDays counts the days between since and now, rounding any partial
// day up. Non-positive spans count as zero days.
func ElapsedDays(since, now time.Time) int {
	ms := now.Sub(since).Milliseconds()
	if ms <= 0 {
		return 0
	}
	return int((ms + millisPerDay - 1) / millisPerDay)
}

// LatePenalty returns the penalty owed by userID for a book borrowed at since
// and returned at returnedAt, or nil when the return is within the grace period.
func LatePenalty(userID string, since, returnedAt time.Time) *Penalty {
	if ElapsedDays(since, returnedAt) <= GracePeriodDays {
		return nil
	}
	return &Penalty{
		UserID:    userID,
		StartDate: returnedAt,
		EndDate:   returnedAt.Add(PenaltyDuration),
	}
}
