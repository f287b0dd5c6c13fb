package booking_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/robertarktes/pet-services-marketplace/internal/adapters/memory"
	"github.com/robertarktes/pet-services-marketplace/internal/booking"
	"github.com/robertarktes/pet-services-marketplace/internal/domain"
	"github.com/robertarktes/pet-services-marketplace/internal/escrow"
	"github.com/robertarktes/pet-services-marketplace/internal/keylock"
	"github.com/robertarktes/pet-services-marketplace/internal/observability"
)

var (
	owner    = domain.Actor{ID: 7, Role: domain.RoleOwner}
	provider = domain.Actor{ID: 3, Role: domain.RoleProvider}
	stranger = domain.Actor{ID: 99, Role: domain.RoleProvider}
)

// flakyEscrow fails settlement calls while failing is set.
type flakyEscrow struct {
	*escrow.Coordinator
	mu      sync.Mutex
	failing bool
	calls   int
}

var errProcessor = errors.New("payment processor unavailable")

func (f *flakyEscrow) setFailing(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing = v
}

func (f *flakyEscrow) fail() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.failing
}

func (f *flakyEscrow) Hold(ctx context.Context, bookingID uuid.UUID, amount float64, providerID int64) (uuid.UUID, error) {
	if f.fail() {
		return uuid.Nil, errProcessor
	}
	return f.Coordinator.Hold(ctx, bookingID, amount, providerID)
}

func (f *flakyEscrow) Release(ctx context.Context, paymentID, bookingID uuid.UUID) error {
	if f.fail() {
		return errProcessor
	}
	return f.Coordinator.Release(ctx, paymentID, bookingID)
}

func (f *flakyEscrow) Refund(ctx context.Context, paymentID uuid.UUID) error {
	if f.fail() {
		return errProcessor
	}
	return f.Coordinator.Refund(ctx, paymentID)
}

type fixture struct {
	ledger   *booking.Ledger
	bookings *memory.Bookings
	holds    *memory.PaymentHolds
	escrow   *flakyEscrow
	pet      domain.Pet
	service  domain.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	logger := observability.NewDiscardLogger()

	catalog := memory.NewCatalog()
	pet, err := catalog.CreatePet(ctx, domain.Pet{OwnerID: owner.ID, Name: "Rex", Type: "dog"})
	if err != nil {
		t.Fatal(err)
	}
	svc, err := catalog.CreateService(ctx, domain.Service{ProviderID: provider.ID, Title: "Walk", Price: 30})
	if err != nil {
		t.Fatal(err)
	}

	holds := memory.NewPaymentHolds()
	bookings := memory.NewBookings()
	esc := &flakyEscrow{Coordinator: escrow.NewCoordinator(holds, keylock.NewLocal(), logger)}

	return &fixture{
		ledger:   booking.NewLedger(bookings, esc, catalog, keylock.NewLocal(), logger),
		bookings: bookings,
		holds:    holds,
		escrow:   esc,
		pet:      pet,
		service:  svc,
	}
}

func (f *fixture) create(t *testing.T) domain.Booking {
	t.Helper()
	b, err := f.ledger.Create(context.Background(), owner, booking.CreateInput{
		PetID:       f.pet.ID,
		ServiceID:   f.service.ID,
		Notes:       "Rex pulls on the lead",
		ScheduledAt: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}
	return b
}

func (f *fixture) holdStatus(t *testing.T, id uuid.UUID) domain.PaymentStatus {
	t.Helper()
	hold, err := f.holds.GetHold(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	return hold.Status
}

func TestLedger_Lifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Scenario A
	b := f.create(t)
	if b.Status != domain.BookingPending || b.TotalPrice != 30 {
		t.Fatalf("expected pending at 30, got %s at %v", b.Status, b.TotalPrice)
	}
	if b.OwnerID != owner.ID || b.ProviderID != provider.ID {
		t.Fatalf("unexpected parties %d/%d", b.OwnerID, b.ProviderID)
	}
	if got := f.holdStatus(t, b.PaymentID); got != domain.PaymentEscrowed {
		t.Fatalf("expected escrowed hold, got %s", got)
	}

	// Scenario B
	b, err := f.ledger.Transition(ctx, provider, b.ID, domain.BookingConfirmed)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if b.Status != domain.BookingConfirmed {
		t.Fatalf("expected confirmed, got %s", b.Status)
	}

	// Scenario C
	b, err = f.ledger.Transition(ctx, provider, b.ID, domain.BookingCompleted)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if got := f.holdStatus(t, b.PaymentID); got != domain.PaymentReleased {
		t.Fatalf("expected released hold, got %s", got)
	}

	// Scenario D
	b, err = f.ledger.AttachReview(ctx, owner, b.ID, 5, "great walk")
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if b.Rating == nil || *b.Rating != 5 || b.ReviewText == nil || *b.ReviewText != "great walk" {
		t.Fatalf("unexpected review %+v", b)
	}

	// Scenario E
	if _, err := f.ledger.Transition(ctx, provider, b.ID, domain.BookingCancelled); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}

	// Scenario F
	if _, err := f.ledger.Transition(ctx, stranger, b.ID, domain.BookingCancelled); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	var types []string
	for _, ev := range f.bookings.Events() {
		types = append(types, ev.EventType)
	}
	want := []string{domain.EventBookingCreated, domain.EventBookingConfirmed, domain.EventBookingCompleted, domain.EventBookingReviewed}
	if len(types) != len(want) {
		t.Fatalf("expected events %v, got %v", want, types)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("expected events %v, got %v", want, types)
		}
	}
}

func TestLedger_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("non-owner is forbidden", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.ledger.Create(ctx, provider, booking.CreateInput{PetID: f.pet.ID, ServiceID: f.service.ID})
		if !errors.Is(err, domain.ErrForbidden) {
			t.Fatalf("expected forbidden, got %v", err)
		}
	})

	t.Run("unknown service", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.ledger.Create(ctx, owner, booking.CreateInput{PetID: f.pet.ID, ServiceID: 404})
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
	})

	t.Run("unknown pet", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.ledger.Create(ctx, owner, booking.CreateInput{PetID: 404, ServiceID: f.service.ID})
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
	})

	t.Run("non-owner of an unknown service is forbidden", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.ledger.Create(ctx, provider, booking.CreateInput{PetID: f.pet.ID, ServiceID: 404})
		if !errors.Is(err, domain.ErrForbidden) {
			t.Fatalf("expected forbidden before the service lookup error, got %v", err)
		}
	})

	t.Run("unknown pet and service reports the pet", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.ledger.Create(ctx, owner, booking.CreateInput{PetID: 404, ServiceID: 405})
		if !errors.Is(err, domain.ErrNotFound) || !strings.Contains(err.Error(), "find pet 404") {
			t.Fatalf("expected the pet lookup error, got %v", err)
		}
	})

	t.Run("failed hold stores nothing", func(t *testing.T) {
		f := newFixture(t)
		f.escrow.setFailing(true)
		_, err := f.ledger.Create(ctx, owner, booking.CreateInput{PetID: f.pet.ID, ServiceID: f.service.ID})
		if !errors.Is(err, errProcessor) {
			t.Fatalf("expected escrow failure, got %v", err)
		}
		list, err := f.ledger.List(ctx, owner)
		if err != nil {
			t.Fatal(err)
		}
		if len(list) != 0 {
			t.Fatalf("expected no bookings, got %d", len(list))
		}
		if len(f.bookings.Events()) != 0 {
			t.Fatal("expected no events")
		}
	})
}

func TestLedger_Transition(t *testing.T) {
	ctx := context.Background()

	t.Run("owner may confirm", func(t *testing.T) {
		f := newFixture(t)
		b := f.create(t)
		if _, err := f.ledger.Transition(ctx, owner, b.ID, domain.BookingConfirmed); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("cancel refunds", func(t *testing.T) {
		f := newFixture(t)
		b := f.create(t)
		b, err := f.ledger.Transition(ctx, owner, b.ID, domain.BookingCancelled)
		if err != nil {
			t.Fatal(err)
		}
		if got := f.holdStatus(t, b.PaymentID); got != domain.PaymentRefunded {
			t.Fatalf("expected refunded, got %s", got)
		}
		if _, err := f.ledger.Transition(ctx, owner, b.ID, domain.BookingConfirmed); !errors.Is(err, domain.ErrInvalidTransition) {
			t.Fatalf("expected invalid transition out of cancelled, got %v", err)
		}
	})

	t.Run("pending cannot complete", func(t *testing.T) {
		f := newFixture(t)
		b := f.create(t)
		if _, err := f.ledger.Transition(ctx, provider, b.ID, domain.BookingCompleted); !errors.Is(err, domain.ErrInvalidTransition) {
			t.Fatalf("expected invalid transition, got %v", err)
		}
		if got := f.holdStatus(t, b.PaymentID); got != domain.PaymentEscrowed {
			t.Fatalf("expected hold untouched, got %s", got)
		}
	})

	t.Run("unknown booking", func(t *testing.T) {
		f := newFixture(t)
		if _, err := f.ledger.Transition(ctx, owner, uuid.New(), domain.BookingConfirmed); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
	})

	t.Run("stranger is forbidden for every mutation", func(t *testing.T) {
		f := newFixture(t)
		b := f.create(t)
		for _, to := range []domain.BookingStatus{domain.BookingConfirmed, domain.BookingCancelled, domain.BookingCompleted} {
			if _, err := f.ledger.Transition(ctx, stranger, b.ID, to); !errors.Is(err, domain.ErrForbidden) {
				t.Fatalf("%s: expected forbidden, got %v", to, err)
			}
		}
		if _, err := f.ledger.AttachReview(ctx, stranger, b.ID, 5, ""); !errors.Is(err, domain.ErrForbidden) {
			t.Fatalf("review: expected forbidden, got %v", err)
		}
	})

	t.Run("escrow failure keeps prior status", func(t *testing.T) {
		f := newFixture(t)
		b := f.create(t)
		if _, err := f.ledger.Transition(ctx, provider, b.ID, domain.BookingConfirmed); err != nil {
			t.Fatal(err)
		}

		f.escrow.setFailing(true)
		if _, err := f.ledger.Transition(ctx, provider, b.ID, domain.BookingCompleted); !errors.Is(err, errProcessor) {
			t.Fatalf("expected escrow failure, got %v", err)
		}
		got, err := f.ledger.Get(ctx, owner, b.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got.Status != domain.BookingConfirmed {
			t.Fatalf("expected confirmed, got %s", got.Status)
		}
		if s := f.holdStatus(t, b.PaymentID); s != domain.PaymentEscrowed {
			t.Fatalf("expected escrowed, got %s", s)
		}

		f.escrow.setFailing(false)
		if _, err := f.ledger.Transition(ctx, provider, b.ID, domain.BookingCompleted); err != nil {
			t.Fatalf("expected retry by caller to succeed, got %v", err)
		}
	})

	t.Run("concurrent transitions from one state", func(t *testing.T) {
		f := newFixture(t)
		b := f.create(t)
		if _, err := f.ledger.Transition(ctx, provider, b.ID, domain.BookingConfirmed); err != nil {
			t.Fatal(err)
		}

		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			succeeded int
		)
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				to := domain.BookingCompleted
				if i%2 == 1 {
					to = domain.BookingCancelled
				}
				_, err := f.ledger.Transition(ctx, provider, b.ID, to)
				if err == nil {
					mu.Lock()
					succeeded++
					mu.Unlock()
				} else if !errors.Is(err, domain.ErrInvalidTransition) {
					t.Errorf("unexpected error %v", err)
				}
			}(i)
		}
		wg.Wait()

		if succeeded != 1 {
			t.Fatalf("expected exactly one winner, got %d", succeeded)
		}
		final, err := f.ledger.Get(ctx, owner, b.ID)
		if err != nil {
			t.Fatal(err)
		}
		want := domain.PaymentReleased
		if final.Status == domain.BookingCancelled {
			want = domain.PaymentRefunded
		}
		if got := f.holdStatus(t, b.PaymentID); got != want {
			t.Fatalf("booking %s with hold %s", final.Status, got)
		}
	})
}

func TestLedger_AttachReview(t *testing.T) {
	ctx := context.Background()

	completed := func(t *testing.T, f *fixture) domain.Booking {
		b := f.create(t)
		for _, to := range []domain.BookingStatus{domain.BookingConfirmed, domain.BookingCompleted} {
			var err error
			if b, err = f.ledger.Transition(ctx, provider, b.ID, to); err != nil {
				t.Fatal(err)
			}
		}
		return b
	}

	t.Run("not completed", func(t *testing.T) {
		f := newFixture(t)
		b := f.create(t)
		if _, err := f.ledger.AttachReview(ctx, owner, b.ID, 4, "ok"); !errors.Is(err, domain.ErrInvalidState) {
			t.Fatalf("expected invalid state, got %v", err)
		}
	})

	t.Run("provider cannot review", func(t *testing.T) {
		f := newFixture(t)
		b := completed(t, f)
		if _, err := f.ledger.AttachReview(ctx, provider, b.ID, 4, "ok"); !errors.Is(err, domain.ErrForbidden) {
			t.Fatalf("expected forbidden, got %v", err)
		}
	})

	t.Run("second review rejected", func(t *testing.T) {
		f := newFixture(t)
		b := completed(t, f)
		if _, err := f.ledger.AttachReview(ctx, owner, b.ID, 4, "ok"); err != nil {
			t.Fatal(err)
		}
		if _, err := f.ledger.AttachReview(ctx, owner, b.ID, 1, "changed my mind"); !errors.Is(err, domain.ErrInvalidState) {
			t.Fatalf("expected invalid state, got %v", err)
		}
		got, _ := f.ledger.Get(ctx, owner, b.ID)
		if *got.Rating != 4 {
			t.Fatalf("expected first rating kept, got %d", *got.Rating)
		}
	})

	t.Run("rating out of range", func(t *testing.T) {
		f := newFixture(t)
		b := completed(t, f)
		if _, err := f.ledger.AttachReview(ctx, owner, b.ID, 9, ""); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("expected invalid input, got %v", err)
		}
	})
}

func TestLedger_GetAndList(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	b := f.create(t)

	if _, err := f.ledger.Get(ctx, provider, b.ID); err != nil {
		t.Fatalf("provider read: %v", err)
	}
	if _, err := f.ledger.Get(ctx, stranger, b.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	for _, actor := range []domain.Actor{owner, provider} {
		list, err := f.ledger.List(ctx, actor)
		if err != nil {
			t.Fatal(err)
		}
		if len(list) != 1 || list[0].ID != b.ID {
			t.Fatalf("actor %d: expected the booking, got %v", actor.ID, list)
		}
	}
	list, err := f.ledger.List(ctx, stranger)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 0 {
		t.Fatalf("expected nothing for stranger, got %d", len(list))
	}
}
