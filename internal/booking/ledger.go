// Package booking owns the booking lifecycle. Every status change is
// authorized against the booking's captured parties, checked against the
// domain transition table and paired with the matching escrow action inside
// one storage transaction.
package booking

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/robertarktes/pet-services-marketplace/internal/authz"
	"github.com/robertarktes/pet-services-marketplace/internal/domain"
	"github.com/robertarktes/pet-services-marketplace/internal/keylock"
	"github.com/robertarktes/pet-services-marketplace/internal/observability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

type Repository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	CreateBooking(ctx context.Context, b domain.Booking) error
	GetBooking(ctx context.Context, id uuid.UUID) (domain.Booking, error)
	GetBookingForUpdate(ctx context.Context, id uuid.UUID) (domain.Booking, error)
	UpdateBooking(ctx context.Context, b domain.Booking) error
	ListBookings(ctx context.Context, side authz.Side, partyID int64) ([]domain.Booking, error)
	InsertEvent(ctx context.Context, ev domain.Event) error
}

type Escrow interface {
	Hold(ctx context.Context, bookingID uuid.UUID, amount float64, providerID int64) (uuid.UUID, error)
	Release(ctx context.Context, paymentID, bookingID uuid.UUID) error
	Refund(ctx context.Context, paymentID uuid.UUID) error
}

// Directory resolves the pets and services a booking refers to.
type Directory interface {
	FindPet(ctx context.Context, id int64) (domain.Pet, error)
	FindService(ctx context.Context, id int64) (domain.Service, error)
}

type Ledger struct {
	repo      Repository
	escrow    Escrow
	directory Directory
	locker    keylock.Locker
	logger    observability.Logger
	now       func() time.Time
}

func NewLedger(repo Repository, escrow Escrow, directory Directory, locker keylock.Locker, logger observability.Logger) *Ledger {
	return &Ledger{
		repo:      repo,
		escrow:    escrow,
		directory: directory,
		locker:    locker,
		logger:    logger,
		now:       time.Now,
	}
}

type CreateInput struct {
	PetID       int64
	ServiceID   int64
	Notes       string
	ScheduledAt time.Time
}

// Create books a service for one of the actor's pets. The price is escrowed
// before the booking is stored; if the hold fails nothing is stored.
func (l *Ledger) Create(ctx context.Context, actor domain.Actor, in CreateInput) (domain.Booking, error) {
	ctx, span := otel.Tracer("booking").Start(ctx, "booking.Create")
	defer span.End()

	var (
		pet    domain.Pet
		svc    domain.Service
		petErr error
		g      errgroup.Group
	)
	g.Go(func() error {
		pet, petErr = l.directory.FindPet(ctx, in.PetID)
		return errors.Wrapf(petErr, "find pet %d", in.PetID)
	})
	g.Go(func() (err error) {
		svc, err = l.directory.FindService(ctx, in.ServiceID)
		return errors.Wrapf(err, "find service %d", in.ServiceID)
	})
	lookupErr := g.Wait()

	// A missing pet and the ownership check come before a missing service.
	if petErr != nil {
		return domain.Booking{}, errors.Wrapf(petErr, "find pet %d", in.PetID)
	}
	if err := authz.Authorize(authz.CanCreateBooking(actor, pet)); err != nil {
		return domain.Booking{}, errors.Wrap(err, "not authorized to book for this pet")
	}
	if lookupErr != nil {
		return domain.Booking{}, lookupErr
	}

	id := uuid.New()
	span.SetAttributes(attribute.String("booking.id", id.String()))

	var created domain.Booking
	err := l.repo.WithTx(ctx, func(ctx context.Context) error {
		paymentID, err := l.escrow.Hold(ctx, id, svc.Price, svc.ProviderID)
		if err != nil {
			return err
		}
		b := domain.NewBooking(id, pet, svc, paymentID, in.Notes, in.ScheduledAt, l.now())
		if err := l.repo.CreateBooking(ctx, b); err != nil {
			return err
		}
		if err := l.record(ctx, domain.EventBookingCreated, b, actor); err != nil {
			return err
		}
		created = b
		return nil
	})
	observability.BookingTransitions.WithLabelValues("", string(domain.BookingPending), observability.Result(err)).Inc()
	if err != nil {
		return domain.Booking{}, err
	}

	l.logger.WithField("booking_id", created.ID).WithField("payment_id", created.PaymentID).Info("booking created")
	return created, nil
}

// Transition moves a booking to status to. Completing releases the escrowed
// payment and cancelling refunds it; the status only changes once the
// escrow call has succeeded.
func (l *Ledger) Transition(ctx context.Context, actor domain.Actor, id uuid.UUID, to domain.BookingStatus) (domain.Booking, error) {
	ctx, span := otel.Tracer("booking").Start(ctx, "booking.Transition")
	defer span.End()
	span.SetAttributes(attribute.String("booking.id", id.String()), attribute.String("booking.to", string(to)))

	unlock, err := l.locker.Lock(ctx, "booking:"+id.String())
	if err != nil {
		return domain.Booking{}, err
	}
	defer unlock()

	var (
		from    domain.BookingStatus
		updated domain.Booking
	)
	err = l.repo.WithTx(ctx, func(ctx context.Context) error {
		cur, err := l.repo.GetBookingForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := authz.Authorize(authz.CanAct(actor, authz.BookingParties(cur), authz.ActionTransition)); err != nil {
			return errors.Wrap(err, "not authorized to update this booking")
		}
		from = cur.Status
		if !cur.Status.CanTransitionTo(to) {
			return errors.Wrapf(domain.ErrInvalidTransition, "%s -> %s", cur.Status, to)
		}

		switch to {
		case domain.BookingCompleted:
			err = l.escrow.Release(ctx, cur.PaymentID, cur.ID)
		case domain.BookingCancelled:
			err = l.escrow.Refund(ctx, cur.PaymentID)
		}
		if err != nil {
			return errors.Wrapf(err, "escrow for booking %s", cur.ID)
		}

		next := cur
		next.Status = to
		next.UpdatedAt = l.now()
		if err := l.repo.UpdateBooking(ctx, next); err != nil {
			return err
		}
		if err := l.record(ctx, domain.StatusEventType(to), next, actor); err != nil {
			return err
		}
		updated = next
		return nil
	})
	observability.BookingTransitions.WithLabelValues(string(from), string(to), observability.Result(err)).Inc()
	if err != nil {
		return domain.Booking{}, err
	}

	l.logger.WithField("booking_id", id).WithField("from", from).WithField("to", to).Info("booking status changed")
	return updated, nil
}

// AttachReview stores the owner's rating of a completed booking. A booking
// can be reviewed once.
func (l *Ledger) AttachReview(ctx context.Context, actor domain.Actor, id uuid.UUID, rating int, text string) (domain.Booking, error) {
	ctx, span := otel.Tracer("booking").Start(ctx, "booking.AttachReview")
	defer span.End()

	unlock, err := l.locker.Lock(ctx, "booking:"+id.String())
	if err != nil {
		return domain.Booking{}, err
	}
	defer unlock()

	var reviewed domain.Booking
	err = l.repo.WithTx(ctx, func(ctx context.Context) error {
		cur, err := l.repo.GetBookingForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := authz.Authorize(authz.CanAct(actor, authz.BookingParties(cur), authz.ActionReview)); err != nil {
			return errors.Wrap(err, "not authorized to review this booking")
		}
		if cur.Status != domain.BookingCompleted {
			return errors.Wrap(domain.ErrInvalidState, "can only review completed bookings")
		}
		if cur.Reviewed() {
			return errors.Wrap(domain.ErrInvalidState, "booking already reviewed")
		}
		if err := domain.ValidateRating(rating); err != nil {
			return err
		}

		next := cur
		next.Rating = &rating
		next.ReviewText = &text
		next.UpdatedAt = l.now()
		if err := l.repo.UpdateBooking(ctx, next); err != nil {
			return err
		}
		if err := l.record(ctx, domain.EventBookingReviewed, next, actor); err != nil {
			return err
		}
		reviewed = next
		return nil
	})
	if err != nil {
		return domain.Booking{}, err
	}
	return reviewed, nil
}

func (l *Ledger) Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (domain.Booking, error) {
	b, err := l.repo.GetBooking(ctx, id)
	if err != nil {
		return domain.Booking{}, err
	}
	if err := authz.Authorize(authz.CanAct(actor, authz.BookingParties(b), authz.ActionRead)); err != nil {
		return domain.Booking{}, errors.Wrap(err, "not authorized to view this booking")
	}
	return b, nil
}

// List returns the bookings on the actor's side of the marketplace: the
// services they provide for providers, their pets' bookings otherwise.
func (l *Ledger) List(ctx context.Context, actor domain.Actor) ([]domain.Booking, error) {
	return l.repo.ListBookings(ctx, authz.ListSide(actor), actor.ID)
}

func (l *Ledger) record(ctx context.Context, eventType string, b domain.Booking, actor domain.Actor) error {
	ev, err := domain.NewBookingEvent(eventType, b, actor.ID, l.now())
	if err != nil {
		return errors.Wrap(err, "encode booking event")
	}
	return l.repo.InsertEvent(ctx, ev)
}
