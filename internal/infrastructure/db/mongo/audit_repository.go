package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/medcore/hospital-gateway/internal/core/domain"
)

const auditCollection = "audit_events"

// AuditRepository implements ports.AuditSink using MongoDB.
type AuditRepository struct {
	coll *mongo.Collection
}

func NewAuditRepository(db *mongo.Database) *AuditRepository {
	return &AuditRepository{coll: db.Collection(auditCollection)}
}

// InsertAuditEvent persists one event to the audit_events collection.
func (r *AuditRepository) InsertAuditEvent(ctx context.Context, event domain.AuditEvent) error {
	doc := bson.M{
		"event_id":     event.ID,
		"type":         string(event.Type),
		"username":     event.Username,
		"at":           event.At.UTC(),
		"processed_at": time.Now().UTC(),
	}
	if event.Actor != "" {
		doc["actor"] = event.Actor
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}
