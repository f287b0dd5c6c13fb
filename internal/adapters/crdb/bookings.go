package crdb

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/robertarktes/pet-services-marketplace/internal/authz"
	"github.com/robertarktes/pet-services-marketplace/internal/domain"
)

const bookingColumns = `id, pet_id, service_id, owner_id, provider_id, status, total_price, payment_id,
	notes, scheduled_at, rating, review_text, created_at, updated_at`

func scanBooking(row pgx.Row) (domain.Booking, error) {
	var (
		b      domain.Booking
		status string
	)
	err := row.Scan(&b.ID, &b.PetID, &b.ServiceID, &b.OwnerID, &b.ProviderID, &status, &b.TotalPrice, &b.PaymentID,
		&b.Notes, &b.ScheduledAt, &b.Rating, &b.ReviewText, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return domain.Booking{}, err
	}
	b.Status = domain.BookingStatus(status)
	return b, nil
}

func (r *Repository) CreateBooking(ctx context.Context, b domain.Booking) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO bookings (`+bookingColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, b.ID, b.PetID, b.ServiceID, b.OwnerID, b.ProviderID, string(b.Status), b.TotalPrice, b.PaymentID,
		b.Notes, b.ScheduledAt, b.Rating, b.ReviewText, b.CreatedAt, b.UpdatedAt)
	return mapError(err)
}

func (r *Repository) GetBooking(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	return r.getBooking(ctx, id, "")
}

// GetBookingForUpdate locks the row until the surrounding transaction ends.
func (r *Repository) GetBookingForUpdate(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	return r.getBooking(ctx, id, " FOR UPDATE")
}

func (r *Repository) getBooking(ctx context.Context, id uuid.UUID, suffix string) (domain.Booking, error) {
	row := conn(ctx, r.pool).QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`+suffix, id)
	b, err := scanBooking(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Booking{}, errors.Wrapf(domain.ErrNotFound, "booking %s", id)
	}
	return b, mapError(err)
}

func (r *Repository) UpdateBooking(ctx context.Context, b domain.Booking) error {
	result, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE bookings SET status = $2, rating = $3, review_text = $4, updated_at = $5 WHERE id = $1
	`, b.ID, string(b.Status), b.Rating, b.ReviewText, b.UpdatedAt)
	if err != nil {
		return mapError(err)
	}
	if result.RowsAffected() == 0 {
		return errors.Wrapf(domain.ErrNotFound, "booking %s", b.ID)
	}
	return nil
}

func (r *Repository) ListBookings(ctx context.Context, side authz.Side, partyID int64) ([]domain.Booking, error) {
	column := "owner_id"
	if side == authz.SideProvider {
		column = "provider_id"
	}
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT `+bookingColumns+` FROM bookings WHERE `+column+` = $1 ORDER BY created_at ASC
	`, partyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := []domain.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}
