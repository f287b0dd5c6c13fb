package domain

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
)

// bookingTransitions is the booking state machine. Statuses with no
// outbound edges are terminal.
var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingPending:   {BookingConfirmed, BookingCancelled},
	BookingConfirmed: {BookingCompleted, BookingCancelled},
	BookingCompleted: {},
	BookingCancelled: {},
}

func (s BookingStatus) IsValid() bool {
	_, ok := bookingTransitions[s]
	return ok
}

func (s BookingStatus) CanTransitionTo(target BookingStatus) bool {
	for _, next := range bookingTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

func (s BookingStatus) IsTerminal() bool {
	return len(bookingTransitions[s]) == 0
}

func ParseBookingStatus(s string) (BookingStatus, error) {
	status := BookingStatus(s)
	if !status.IsValid() {
		return "", errors.Wrapf(ErrInvalidInput, "unknown booking status %q", s)
	}
	return status, nil
}

type Booking struct {
	ID          uuid.UUID     `json:"id"`
	PetID       int64         `json:"petId"`
	ServiceID   int64         `json:"serviceId"`
	OwnerID     int64         `json:"ownerId"`
	ProviderID  int64         `json:"providerId"`
	Status      BookingStatus `json:"status"`
	TotalPrice  float64       `json:"totalPrice"`
	PaymentID   uuid.UUID     `json:"paymentId"`
	Notes       string        `json:"notes,omitempty"`
	ScheduledAt time.Time     `json:"date"`
	Rating      *int          `json:"rating,omitempty"`
	ReviewText  *string       `json:"reviewText,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// NewBooking captures the parties and price from the pet and service at
// creation time. They are never recomputed afterwards.
func NewBooking(id uuid.UUID, pet Pet, service Service, paymentID uuid.UUID, notes string, scheduledAt time.Time, now time.Time) Booking {
	return Booking{
		ID:          id,
		PetID:       pet.ID,
		ServiceID:   service.ID,
		OwnerID:     pet.OwnerID,
		ProviderID:  service.ProviderID,
		Status:      BookingPending,
		TotalPrice:  service.Price,
		PaymentID:   paymentID,
		Notes:       notes,
		ScheduledAt: scheduledAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (b Booking) Reviewed() bool {
	return b.Rating != nil
}

const (
	MinRating = 1
	MaxRating = 5
)

func ValidateRating(rating int) error {
	if rating < MinRating || rating > MaxRating {
		return errors.Wrapf(ErrInvalidInput, "rating must be between %d and %d", MinRating, MaxRating)
	}
	return nil
}
