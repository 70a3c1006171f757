package sqlstore

import (
	"context"

	"github.com/librario/lending-api/internal/core/domain"
)

// PenaltyRepository implements ports.PenaltyRepository.
type PenaltyRepository struct {
	db *DB
}

func NewPenaltyRepository(db *DB) *PenaltyRepository {
	return &PenaltyRepository{db: db}
}

// ListByUser returns the user's penalties, oldest first.
func (r *PenaltyRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Penalty, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var rows []penaltyRow
	err := r.db.SelectContext(ctx, &rows, r.db.Rebind(
		`SELECT `+penaltyColumns+` FROM penalties WHERE user_id = ? ORDER BY start_date, seq`), userID)
	if err != nil {
		return nil, storeErr("list penalties", err)
	}

	out := make([]*domain.Penalty, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}
