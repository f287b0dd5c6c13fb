// Package escrow holds booking payments until the booking is completed
// (release to the provider) or cancelled (refund to the owner). A hold
// leaves the escrowed status exactly once.
package escrow

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/robertarktes/pet-services-marketplace/internal/domain"
	"github.com/robertarktes/pet-services-marketplace/internal/keylock"
	"github.com/robertarktes/pet-services-marketplace/internal/observability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// Store persists payment holds. UpdateHoldStatus must only apply when the
// stored status equals from, returning domain.ErrInvalidState otherwise.
type Store interface {
	CreateHold(ctx context.Context, hold domain.PaymentHold) error
	GetHold(ctx context.Context, id uuid.UUID) (domain.PaymentHold, error)
	UpdateHoldStatus(ctx context.Context, id uuid.UUID, from, to domain.PaymentStatus, at time.Time) error
}

type Coordinator struct {
	store  Store
	locker keylock.Locker
	logger observability.Logger
	now    func() time.Time
}

func NewCoordinator(store Store, locker keylock.Locker, logger observability.Logger) *Coordinator {
	return &Coordinator{store: store, locker: locker, logger: logger, now: time.Now}
}

func (c *Coordinator) Hold(ctx context.Context, bookingID uuid.UUID, amount float64, providerID int64) (id uuid.UUID, err error) {
	ctx, span := otel.Tracer("escrow").Start(ctx, "escrow.Hold")
	defer span.End()
	defer func() { observability.EscrowOperations.WithLabelValues("hold", observability.Result(err)).Inc() }()

	if amount < 0 {
		return uuid.Nil, errors.Wrapf(domain.ErrInvalidInput, "negative escrow amount %v", amount)
	}

	now := c.now()
	hold := domain.PaymentHold{
		ID:         uuid.New(),
		BookingID:  bookingID,
		Amount:     amount,
		ProviderID: providerID,
		Status:     domain.PaymentEscrowed,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	span.SetAttributes(attribute.String("payment.id", hold.ID.String()))

	if err := c.store.CreateHold(ctx, hold); err != nil {
		return uuid.Nil, errors.Wrap(err, "create payment hold")
	}
	c.logger.WithField("payment_id", hold.ID).WithField("booking_id", bookingID).Info("payment escrowed")
	return hold.ID, nil
}

// Release pays the hold out to the provider. bookingID must match the
// booking the hold was taken for.
func (c *Coordinator) Release(ctx context.Context, paymentID, bookingID uuid.UUID) (err error) {
	ctx, span := otel.Tracer("escrow").Start(ctx, "escrow.Release")
	defer span.End()
	defer func() { observability.EscrowOperations.WithLabelValues("release", observability.Result(err)).Inc() }()

	return c.settle(ctx, paymentID, domain.PaymentReleased, func(h domain.PaymentHold) error {
		if h.BookingID != bookingID {
			return errors.Wrapf(domain.ErrMismatch, "payment %s does not belong to booking %s", paymentID, bookingID)
		}
		return nil
	})
}

// Refund returns the hold to the pet owner.
func (c *Coordinator) Refund(ctx context.Context, paymentID uuid.UUID) (err error) {
	ctx, span := otel.Tracer("escrow").Start(ctx, "escrow.Refund")
	defer span.End()
	defer func() { observability.EscrowOperations.WithLabelValues("refund", observability.Result(err)).Inc() }()

	return c.settle(ctx, paymentID, domain.PaymentRefunded, nil)
}

func (c *Coordinator) Get(ctx context.Context, paymentID uuid.UUID) (domain.PaymentHold, error) {
	return c.store.GetHold(ctx, paymentID)
}

func (c *Coordinator) settle(ctx context.Context, paymentID uuid.UUID, to domain.PaymentStatus, check func(domain.PaymentHold) error) error {
	unlock, err := c.locker.Lock(ctx, "payment:"+paymentID.String())
	if err != nil {
		return err
	}
	defer unlock()

	hold, err := c.store.GetHold(ctx, paymentID)
	if err != nil {
		return err
	}
	if check != nil {
		if err := check(hold); err != nil {
			return err
		}
	}
	if hold.Status != domain.PaymentEscrowed {
		return errors.Wrapf(domain.ErrInvalidState, "payment %s is %s, not in escrow", paymentID, hold.Status)
	}
	if err := c.store.UpdateHoldStatus(ctx, paymentID, domain.PaymentEscrowed, to, c.now()); err != nil {
		return err
	}

	c.logger.WithField("payment_id", paymentID).WithField("status", to).Info("payment settled")
	return nil
}
