package domain

import (
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentEscrowed PaymentStatus = "escrowed"
	PaymentReleased PaymentStatus = "released"
	PaymentRefunded PaymentStatus = "refunded"
)

type PaymentHold struct {
	ID         uuid.UUID     `json:"id"`
	BookingID  uuid.UUID     `json:"bookingId"`
	Amount     float64       `json:"amount"`
	ProviderID int64         `json:"providerId"`
	Status     PaymentStatus `json:"status"`
	CreatedAt  time.Time     `json:"createdAt"`
	UpdatedAt  time.Time     `json:"updatedAt"`
}
