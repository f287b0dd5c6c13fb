package crdb

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robertarktes/pet-services-marketplace/internal/domain"
)

// PaymentHolds stores escrow holds. It joins the transaction of any
// Repository sharing its pool.
type PaymentHolds struct {
	pool *pgxpool.Pool
}

func NewPaymentHolds(pool *pgxpool.Pool) *PaymentHolds {
	return &PaymentHolds{pool: pool}
}

func (s *PaymentHolds) CreateHold(ctx context.Context, hold domain.PaymentHold) error {
	_, err := conn(ctx, s.pool).Exec(ctx, `
		INSERT INTO payment_holds (id, booking_id, amount, provider_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, hold.ID, hold.BookingID, hold.Amount, hold.ProviderID, string(hold.Status), hold.CreatedAt, hold.UpdatedAt)
	return mapError(err)
}

func (s *PaymentHolds) GetHold(ctx context.Context, id uuid.UUID) (domain.PaymentHold, error) {
	var (
		h      domain.PaymentHold
		status string
	)
	err := conn(ctx, s.pool).QueryRow(ctx, `
		SELECT id, booking_id, amount, provider_id, status, created_at, updated_at
		FROM payment_holds WHERE id = $1
	`, id).Scan(&h.ID, &h.BookingID, &h.Amount, &h.ProviderID, &status, &h.CreatedAt, &h.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.PaymentHold{}, errors.Wrapf(domain.ErrNotFound, "payment %s", id)
	}
	if err != nil {
		return domain.PaymentHold{}, mapError(err)
	}
	h.Status = domain.PaymentStatus(status)
	return h, nil
}

// UpdateHoldStatus moves a hold from one status to another only if it is
// still in from.
func (s *PaymentHolds) UpdateHoldStatus(ctx context.Context, id uuid.UUID, from, to domain.PaymentStatus, at time.Time) error {
	q := conn(ctx, s.pool)
	result, err := q.Exec(ctx, `
		UPDATE payment_holds SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2
	`, id, string(from), string(to), at)
	if err != nil {
		return mapError(err)
	}
	if result.RowsAffected() == 1 {
		return nil
	}
	if _, err := s.GetHold(ctx, id); err != nil {
		return err
	}
	return errors.Wrapf(domain.ErrInvalidState, "payment %s is not %s", id, from)
}
