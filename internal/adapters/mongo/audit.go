package mongo

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/pet-services-marketplace/internal/domain"
	"github.com/robertarktes/pet-services-marketplace/internal/observability"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type AuditLogger struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewAuditLogger(db *mongo.Database, logger observability.Logger) *AuditLogger {
	return &AuditLogger{
		coll:   db.Collection("audit_logs"),
		logger: logger,
	}
}

// AuditLog is keyed by the outbox event id, so a redelivered event is
// stored once.
type AuditLog struct {
	ID          string    `bson:"_id"`
	Action      string    `bson:"action"`
	AggregateID string    `bson:"aggregate_id"`
	Timestamp   time.Time `bson:"timestamp"`
	Data        bson.M    `bson:"data"`
}

func (a *AuditLogger) LogEvent(ctx context.Context, ev domain.Event) error {
	data := bson.M{}
	if len(ev.Payload) > 0 {
		if err := bson.UnmarshalExtJSON(ev.Payload, false, &data); err != nil {
			return errors.Wrapf(err, "decode payload of event %s", ev.ID)
		}
	}
	log := AuditLog{
		ID:          ev.ID.String(),
		Action:      ev.EventType,
		AggregateID: ev.AggregateID.String(),
		Timestamp:   ev.CreatedAt,
		Data:        data,
	}
	_, err := a.coll.InsertOne(ctx, log)
	if mongo.IsDuplicateKeyError(err) {
		a.logger.WithField("event_id", log.ID).Debug("audit log already recorded")
		return nil
	}
	if err != nil {
		a.logger.Error("failed to insert audit log", err)
		return err
	}
	return nil
}

// History returns the audit trail of one aggregate, oldest first.
func (a *AuditLogger) History(ctx context.Context, aggregateID string) ([]AuditLog, error) {
	cur, err := a.coll.Find(ctx, bson.M{"aggregate_id": aggregateID},
		options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var logs []AuditLog
	if err := cur.All(ctx, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}
