package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/librario/lending-api/internal/core/domain"
)

const collectionCirculation = "circulation_events"

// AuditRepository implements ports.AuditRepository on the circulation_events
// collection. Documents are append-only.
type AuditRepository struct {
	col *mongo.Collection
	now func() time.Time
}

func NewAuditRepository(db *mongo.Database) *AuditRepository {
	return &AuditRepository{col: db.Collection(collectionCirculation), now: time.Now}
}

// InsertEvent appends one circulation event.
func (r *AuditRepository) InsertEvent(ctx context.Context, event *domain.CirculationEvent) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.col.InsertOne(ctx, eventDocument(event, r.now())); err != nil {
		return fmt.Errorf("insert circulation event: %w", err)
	}
	return nil
}

// EnsureIndexes creates the lookup indexes on the circulation collection.
func (r *AuditRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "book_id", Value: 1}, {Key: "at", Value: 1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "at", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}

func eventDocument(event *domain.CirculationEvent, recordedAt time.Time) bson.M {
	doc := bson.M{
		"type":        string(event.Type),
		"book_id":     event.BookID,
		"user_id":     event.UserID,
		"at":          event.At.UTC(),
		"recorded_at": recordedAt.UTC(),
	}
	if event.PenaltyEndsAt != nil {
		doc["penalty_ends_at"] = event.PenaltyEndsAt.UTC()
	}
	return doc
}
