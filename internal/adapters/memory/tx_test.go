package memory

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/robertarktes/pet-services-marketplace/internal/domain"
)

var errBoom = errors.New("boom")

func TestWithTx_RollbackRestoresSettledHold(t *testing.T) {
	ctx := context.Background()
	bookings := NewBookings()
	holds := NewPaymentHolds()
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	b := domain.Booking{ID: uuid.New(), PaymentID: uuid.New(), Status: domain.BookingConfirmed, CreatedAt: now}
	if err := bookings.CreateBooking(ctx, b); err != nil {
		t.Fatal(err)
	}
	hold := domain.PaymentHold{ID: b.PaymentID, BookingID: b.ID, Amount: 40, Status: domain.PaymentEscrowed, CreatedAt: now}
	if err := holds.CreateHold(ctx, hold); err != nil {
		t.Fatal(err)
	}

	err := bookings.WithTx(ctx, func(ctx context.Context) error {
		if err := holds.UpdateHoldStatus(ctx, hold.ID, domain.PaymentEscrowed, domain.PaymentReleased, now.Add(time.Hour)); err != nil {
			return err
		}
		completed := b
		completed.Status = domain.BookingCompleted
		if err := bookings.UpdateBooking(ctx, completed); err != nil {
			return err
		}
		if err := bookings.InsertEvent(ctx, domain.Event{ID: uuid.New(), AggregateID: b.ID, EventType: domain.EventBookingCompleted}); err != nil {
			return err
		}
		return errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected the callback error, got %v", err)
	}

	gotHold, err := holds.GetHold(ctx, hold.ID)
	if err != nil {
		t.Fatal(err)
	}
	if gotHold.Status != domain.PaymentEscrowed || !gotHold.UpdatedAt.IsZero() {
		t.Errorf("expected hold to stay escrowed, got %+v", gotHold)
	}
	gotBooking, err := bookings.GetBooking(ctx, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if gotBooking.Status != domain.BookingConfirmed {
		t.Errorf("expected booking to stay confirmed, got %s", gotBooking.Status)
	}
	if evs := bookings.Events(); len(evs) != 0 {
		t.Errorf("expected no outbox events, got %d", len(evs))
	}
}

func TestWithTx_RollbackDiscardsCreatedRecords(t *testing.T) {
	ctx := context.Background()
	bookings := NewBookings()
	holds := NewPaymentHolds()
	b := domain.Booking{ID: uuid.New(), PaymentID: uuid.New(), Status: domain.BookingPending}

	err := bookings.WithTx(ctx, func(ctx context.Context) error {
		if err := holds.CreateHold(ctx, domain.PaymentHold{ID: b.PaymentID, BookingID: b.ID, Status: domain.PaymentEscrowed}); err != nil {
			return err
		}
		// nested calls join the outer journal
		return bookings.WithTx(ctx, func(ctx context.Context) error {
			if err := bookings.CreateBooking(ctx, b); err != nil {
				return err
			}
			return errBoom
		})
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected the callback error, got %v", err)
	}
	if _, err := holds.GetHold(ctx, b.PaymentID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected hold to be discarded, got %v", err)
	}
	if _, err := bookings.GetBooking(ctx, b.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected booking to be discarded, got %v", err)
	}
}

func TestWithTx_CommitKeepsWrites(t *testing.T) {
	ctx := context.Background()
	bookings := NewBookings()
	b := domain.Booking{ID: uuid.New(), Status: domain.BookingPending}

	if err := bookings.WithTx(ctx, func(ctx context.Context) error {
		return bookings.CreateBooking(ctx, b)
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := bookings.GetBooking(ctx, b.ID); err != nil {
		t.Errorf("expected committed booking, got %v", err)
	}
}
