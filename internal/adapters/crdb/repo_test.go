package crdb_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robertarktes/pet-services-marketplace/internal/adapters/crdb"
	"github.com/robertarktes/pet-services-marketplace/internal/authz"
	"github.com/robertarktes/pet-services-marketplace/internal/domain"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startCockroach(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	crdbContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "cockroachdb/cockroach:v24.1.1",
			Cmd:          []string{"start-single-node", "--insecure"},
			ExposedPorts: []string{"26257/tcp", "8080/tcp"},
			WaitingFor:   wait.ForHTTP("/health?ready=1").WithPort("8080"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { crdbContainer.Terminate(ctx) })

	dsn, err := crdbContainer.Endpoint(ctx, "postgresql")
	if err != nil {
		t.Fatal(err)
	}

	pool, err := pgxpool.New(ctx, dsn+"/defaultdb?sslmode=disable&user=root")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(pool.Close)

	if err := crdb.Migrate(ctx, pool); err != nil {
		t.Fatal(err)
	}
	return pool
}

func newBooking(now time.Time) domain.Booking {
	pet := domain.Pet{ID: 11, OwnerID: 7, Name: "Rex", Type: "dog"}
	svc := domain.Service{ID: 21, ProviderID: 3, Title: "Walk", Price: 25}
	return domain.NewBooking(uuid.New(), pet, svc, uuid.New(), "leash in the hall", now.Add(24*time.Hour), now)
}

func TestRepository_BookingWithHold(t *testing.T) {
	pool := startCockroach(t)
	ctx := context.Background()
	repo := crdb.NewRepository(pool)
	holds := crdb.NewPaymentHolds(pool)
	now := time.Now().UTC().Truncate(time.Microsecond)

	b := newBooking(now)
	hold := domain.PaymentHold{
		ID: b.PaymentID, BookingID: b.ID, Amount: b.TotalPrice, ProviderID: b.ProviderID,
		Status: domain.PaymentEscrowed, CreatedAt: now, UpdatedAt: now,
	}
	err := repo.WithTx(ctx, func(ctx context.Context) error {
		if err := holds.CreateHold(ctx, hold); err != nil {
			return err
		}
		return repo.CreateBooking(ctx, b)
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	fetched, err := repo.GetBooking(ctx, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if fetched.Status != domain.BookingPending || fetched.PaymentID != b.PaymentID || fetched.TotalPrice != 25 {
		t.Errorf("unexpected booking %+v", fetched)
	}

	owned, err := repo.ListBookings(ctx, authz.SideOwner, 7)
	if err != nil {
		t.Fatal(err)
	}
	provided, err := repo.ListBookings(ctx, authz.SideProvider, 7)
	if err != nil {
		t.Fatal(err)
	}
	if len(owned) != 1 || len(provided) != 0 {
		t.Errorf("expected 1 owned and 0 provided, got %d and %d", len(owned), len(provided))
	}
}

func TestRepository_RollbackDiscardsHold(t *testing.T) {
	pool := startCockroach(t)
	ctx := context.Background()
	repo := crdb.NewRepository(pool)
	holds := crdb.NewPaymentHolds(pool)
	now := time.Now().UTC()

	b := newBooking(now)
	boom := errors.New("boom")
	err := repo.WithTx(ctx, func(ctx context.Context) error {
		err := holds.CreateHold(ctx, domain.PaymentHold{
			ID: b.PaymentID, BookingID: b.ID, Amount: 25, ProviderID: 3,
			Status: domain.PaymentEscrowed, CreatedAt: now, UpdatedAt: now,
		})
		if err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if _, err := holds.GetHold(ctx, b.PaymentID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected hold to be rolled back, got %v", err)
	}
}

func TestPaymentHolds_CompareAndSet(t *testing.T) {
	pool := startCockroach(t)
	ctx := context.Background()
	holds := crdb.NewPaymentHolds(pool)
	now := time.Now().UTC()

	id := uuid.New()
	err := holds.CreateHold(ctx, domain.PaymentHold{
		ID: id, BookingID: uuid.New(), Amount: 40, ProviderID: 3,
		Status: domain.PaymentEscrowed, CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := holds.UpdateHoldStatus(ctx, id, domain.PaymentEscrowed, domain.PaymentReleased, now); err != nil {
		t.Fatalf("expected release to succeed, got %v", err)
	}
	err = holds.UpdateHoldStatus(ctx, id, domain.PaymentEscrowed, domain.PaymentRefunded, now)
	if !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("expected invalid state, got %v", err)
	}
	err = holds.UpdateHoldStatus(ctx, uuid.New(), domain.PaymentEscrowed, domain.PaymentRefunded, now)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestRepository_UsersAndOutbox(t *testing.T) {
	pool := startCockroach(t)
	ctx := context.Background()
	repo := crdb.NewRepository(pool)
	now := time.Now().UTC()

	u, err := repo.CreateUser(ctx, domain.User{Email: "ana@example.com", PasswordHash: "x", Role: domain.RoleOwner, CreatedAt: now})
	if err != nil {
		t.Fatal(err)
	}
	if u.ID == 0 {
		t.Error("expected generated user id")
	}
	_, err = repo.CreateUser(ctx, domain.User{Email: "ana@example.com", PasswordHash: "y", Role: domain.RoleOwner, CreatedAt: now})
	if !errors.Is(err, domain.ErrConflict) {
		t.Errorf("expected conflict on duplicate email, got %v", err)
	}

	ev, err := domain.NewBookingEvent(domain.EventBookingCreated, newBooking(now), 7, now)
	if err != nil {
		t.Fatal(err)
	}
	if err := repo.InsertEvent(ctx, ev); err != nil {
		t.Fatal(err)
	}
	pending, err := repo.GetUnpublishedOutbox(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].ID != ev.ID {
		t.Fatalf("expected the inserted event, got %+v", pending)
	}
	if err := repo.MarkPublished(ctx, ev.ID, now); err != nil {
		t.Fatal(err)
	}
	pending, err = repo.GetUnpublishedOutbox(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 0 {
		t.Errorf("expected empty outbox, got %d", len(pending))
	}
}
