package domain

import "time"

// CirculationEventType names a change in a book's lending history.
type CirculationEventType string

const (
	EventBorrowed  CirculationEventType = "borrowed"
	EventReturned  CirculationEventType = "returned"
	EventPenalized CirculationEventType = "penalized"
)

// CirculationEvent is one entry of the circulation audit trail.
type CirculationEvent struct {
	Type          CirculationEventType
	BookID        string
	UserID        string
	At            time.Time
	PenaltyEndsAt *time.Time // set for penalized events only
}
