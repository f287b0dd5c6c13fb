// Package outbox relays committed booking events to the message broker.
package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/robertarktes/pet-services-marketplace/internal/domain"
	"github.com/robertarktes/pet-services-marketplace/internal/observability"
)

const (
	batchSize      = 10
	publishRetries = 3
)

type Store interface {
	GetUnpublishedOutbox(ctx context.Context, limit int) ([]domain.Event, error)
	MarkPublished(ctx context.Context, id uuid.UUID, publishedAt time.Time) error
}

type Broker interface {
	Publish(ctx context.Context, key string, msg amqp.Publishing) error
}

type Publisher struct {
	store    Store
	broker   Broker
	logger   observability.Logger
	interval time.Duration
	backoff  time.Duration
	now      func() time.Time
}

func NewPublisher(store Store, broker Broker, logger observability.Logger, interval time.Duration) *Publisher {
	return &Publisher{
		store:    store,
		broker:   broker,
		logger:   logger,
		interval: interval,
		backoff:  200 * time.Millisecond,
		now:      time.Now,
	}
}

func (p *Publisher) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.PublishBatch(ctx); err != nil {
				p.logger.WithError(err).Error("outbox batch failed")
			}
		}
	}
}

// PublishBatch relays up to one batch of pending events and returns how
// many were published. An event that cannot be published stays pending for
// the next batch; delivery is at least once.
func (p *Publisher) PublishBatch(ctx context.Context) (int, error) {
	events, err := p.store.GetUnpublishedOutbox(ctx, batchSize)
	if err != nil {
		return 0, err
	}

	published := 0
	for _, ev := range events {
		observability.OutboxLag.Set(p.now().Sub(ev.CreatedAt).Seconds())
		if err := p.publish(ctx, ev); err != nil {
			p.logger.WithField("event_id", ev.ID).WithError(err).Warn("failed to publish outbox event")
			continue
		}
		if err := p.store.MarkPublished(ctx, ev.ID, p.now()); err != nil {
			return published, err
		}
		published++
	}
	return published, nil
}

func (p *Publisher) publish(ctx context.Context, ev domain.Event) error {
	msg := amqp.Publishing{
		MessageId:    ev.DedupeKey,
		Type:         ev.EventType,
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    ev.CreatedAt,
		Headers: amqp.Table{
			"event_id":       ev.ID.String(),
			"aggregate_type": ev.AggregateType,
			"aggregate_id":   ev.AggregateID.String(),
			"created_at":     ev.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
		Body: ev.Payload,
	}

	var err error
	for attempt := 0; attempt < publishRetries; attempt++ {
		if attempt > 0 {
			observability.RabbitPublishRetries.Inc()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.backoff * time.Duration(attempt)):
			}
		}
		if err = p.broker.Publish(ctx, ev.EventType, msg); err == nil {
			return nil
		}
	}
	return err
}
