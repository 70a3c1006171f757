package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/librario/lending-api/internal/core/domain"
	"github.com/librario/lending-api/internal/core/ports"
	"github.com/librario/lending-api/internal/pkg/metrics"
)

type auditService struct {
	repo ports.AuditRepository
	log  zerolog.Logger
}

// NewAuditService returns an AuditService that writes to repo.
func NewAuditService(repo ports.AuditRepository, log zerolog.Logger) ports.AuditService {
	return &auditService{repo: repo, log: log}
}

// Record persists one circulation event. Failures are reported to the
// caller; they never affect the lending operation that produced the event.
func (s *auditService) Record(ctx context.Context, event domain.CirculationEvent) error {
	if err := s.repo.InsertEvent(ctx, &event); err != nil {
		metrics.AuditEventsTotal.WithLabelValues(string(event.Type), "error").Inc()
		return fmt.Errorf("record %s event: %w", event.Type, err)
	}

	metrics.AuditEventsTotal.WithLabelValues(string(event.Type), "ok").Inc()
	s.log.Debug().
		Str("type", string(event.Type)).
		Str("book_id", event.BookID).
		Str("user_id", event.UserID).
		Msg("circulation event recorded")
	return nil
}
