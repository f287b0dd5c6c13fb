package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	EventBookingCreated   = "booking.created"
	EventBookingConfirmed = "booking.confirmed"
	EventBookingCompleted = "booking.completed"
	EventBookingCancelled = "booking.cancelled"
	EventBookingReviewed  = "booking.reviewed"
)

// Event is an outbox record describing a committed booking change.
type Event struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   uuid.UUID
	EventType     string
	Payload       []byte
	DedupeKey     string
	CreatedAt     time.Time
	PublishedAt   *time.Time
}

type BookingEventPayload struct {
	BookingID  uuid.UUID     `json:"booking_id"`
	PaymentID  uuid.UUID     `json:"payment_id"`
	OwnerID    int64         `json:"owner_id"`
	ProviderID int64         `json:"provider_id"`
	ActorID    int64         `json:"actor_id"`
	Status     BookingStatus `json:"status"`
	TotalPrice float64       `json:"total_price"`
	Rating     *int          `json:"rating,omitempty"`
}

func StatusEventType(status BookingStatus) string {
	return "booking." + string(status)
}

func NewBookingEvent(eventType string, b Booking, actorID int64, now time.Time) (Event, error) {
	payload, err := json.Marshal(BookingEventPayload{
		BookingID:  b.ID,
		PaymentID:  b.PaymentID,
		OwnerID:    b.OwnerID,
		ProviderID: b.ProviderID,
		ActorID:    actorID,
		Status:     b.Status,
		TotalPrice: b.TotalPrice,
		Rating:     b.Rating,
	})
	if err != nil {
		return Event{}, err
	}
	id := uuid.New()
	return Event{
		ID:            id,
		AggregateType: "booking",
		AggregateID:   b.ID,
		EventType:     eventType,
		Payload:       payload,
		DedupeKey:     id.String(),
		CreatedAt:     now,
	}, nil
}
