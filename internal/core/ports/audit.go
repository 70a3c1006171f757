package ports

import (
	"context"

	"github.com/librario/lending-api/internal/core/domain"
)

// AuditRepository persists the circulation audit trail.
type AuditRepository interface {
	InsertEvent(ctx context.Context, event *domain.CirculationEvent) error
}

// AuditService records a single circulation event.
type AuditService interface {
	Record(ctx context.Context, event domain.CirculationEvent) error
}

// EventPublisher hands circulation events off for asynchronous recording.
type EventPublisher interface {
	Publish(event domain.CirculationEvent)
}
