// Package audit consumes published booking events and records them in the
// audit trail.
package audit

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/robertarktes/pet-services-marketplace/internal/domain"
	"github.com/robertarktes/pet-services-marketplace/internal/observability"
)

type Sink interface {
	LogEvent(ctx context.Context, ev domain.Event) error
}

type Worker struct {
	sink   Sink
	logger observability.Logger
}

func NewWorker(sink Sink, logger observability.Logger) *Worker {
	return &Worker{sink: sink, logger: logger}
}

// Run handles deliveries until ctx is done or the channel closes.
func (w *Worker) Run(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed")
			}
			w.handle(ctx, d)
		}
	}
}

func (w *Worker) handle(ctx context.Context, d amqp.Delivery) {
	log := w.logger.WithField("message_id", d.MessageId).WithField("routing_key", d.RoutingKey)

	ev, err := EventFromDelivery(d)
	if err != nil {
		log.WithError(err).Warn("dropping malformed event")
		d.Nack(false, false)
		return
	}
	if err := w.sink.LogEvent(ctx, ev); err != nil {
		log.WithError(err).Error("failed to record audit log")
		d.Nack(false, true)
		return
	}
	d.Ack(false)
}

// EventFromDelivery rebuilds an outbox event from a published message.
func EventFromDelivery(d amqp.Delivery) (domain.Event, error) {
	id, err := uuid.Parse(headerString(d.Headers, "event_id"))
	if err != nil {
		return domain.Event{}, errors.Wrap(err, "event_id header")
	}
	aggregateID, err := uuid.Parse(headerString(d.Headers, "aggregate_id"))
	if err != nil {
		return domain.Event{}, errors.Wrap(err, "aggregate_id header")
	}
	// The AMQP timestamp only has second precision.
	createdAt := d.Timestamp
	if raw := headerString(d.Headers, "created_at"); raw != "" {
		if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			createdAt = ts
		}
	}
	eventType := d.Type
	if eventType == "" {
		eventType = d.RoutingKey
	}
	return domain.Event{
		ID:            id,
		AggregateType: headerString(d.Headers, "aggregate_type"),
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       d.Body,
		DedupeKey:     d.MessageId,
		CreatedAt:     createdAt,
	}, nil
}

func headerString(h amqp.Table, key string) string {
	s, _ := h[key].(string)
	return s
}
