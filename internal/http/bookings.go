package http

import (
	"net/http"
	"time"

	"github.com/robertarktes/pet-services-marketplace/internal/booking"
	"github.com/robertarktes/pet-services-marketplace/internal/domain"
)

func (h *Handlers) ListBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.ledger.List(r.Context(), actor(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bookings)
}

func (h *Handlers) GetBooking(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	b, err := h.ledger.Get(r.Context(), actor(r), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handlers) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PetID     int64     `json:"petId"`
		ServiceID int64     `json:"serviceId"`
		Date      time.Time `json:"date"`
		Notes     string    `json:"notes"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	b, err := h.ledger.Create(r.Context(), actor(r), booking.CreateInput{
		PetID:       req.PetID,
		ServiceID:   req.ServiceID,
		Notes:       req.Notes,
		ScheduledAt: req.Date,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (h *Handlers) UpdateBookingStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	h.transition(w, r, domain.BookingStatus(req.Status))
}

func (h *Handlers) CompleteBooking(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, domain.BookingCompleted)
}

func (h *Handlers) CancelBooking(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, domain.BookingCancelled)
}

func (h *Handlers) transition(w http.ResponseWriter, r *http.Request, to domain.BookingStatus) {
	id, err := uuidParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	b, err := h.ledger.Transition(r.Context(), actor(r), id, to)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handlers) ReviewBooking(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req struct {
		Rating     int    `json:"rating"`
		ReviewText string `json:"reviewText"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	b, err := h.ledger.AttachReview(r.Context(), actor(r), id, req.Rating, req.ReviewText)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}
