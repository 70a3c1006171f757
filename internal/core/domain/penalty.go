package domain

import "time"

// Penalty blocks a user from borrowing until EndDate.
type Penalty struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

// ActiveAt reports whether the penalty still applies at now.
func (p *Penalty) ActiveAt(now time.Time) bool {
	return now.Before(p.EndDate)
}

// ActivePenalty returns the active penalty with the latest end date, if any.
func ActivePenalty(penalties []*Penalty, now time.Time) *Penalty {
	var active *Penalty
	for _, p := range penalties {
		if !p.ActiveAt(now) {
			continue
		}
		if active == nil || p.EndDate.After(active.EndDate) {
			active = p
		}
	}
	return active
}
