// Package memory keeps marketplace state in process memory. Each store owns
// its records and hands out copies, so callers never share mutable state
// with it.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/robertarktes/pet-services-marketplace/internal/authz"
	"github.com/robertarktes/pet-services-marketplace/internal/domain"
)

type Bookings struct {
	mu       sync.RWMutex
	bookings map[uuid.UUID]domain.Booking
	events   []domain.Event
}

func NewBookings() *Bookings {
	return &Bookings{bookings: make(map[uuid.UUID]domain.Booking)}
}

func (s *Bookings) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return WithTx(ctx, fn)
}

func (s *Bookings) CreateBooking(ctx context.Context, b domain.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bookings[b.ID]; ok {
		return errors.Wrapf(domain.ErrConflict, "booking %s already exists", b.ID)
	}
	s.bookings[b.ID] = cloneBooking(b)
	onRollback(ctx, func() {
		s.mu.Lock()
		delete(s.bookings, b.ID)
		s.mu.Unlock()
	})
	return nil
}

func (s *Bookings) GetBooking(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookings[id]
	if !ok {
		return domain.Booking{}, errors.Wrapf(domain.ErrNotFound, "booking %s", id)
	}
	return cloneBooking(b), nil
}

func (s *Bookings) GetBookingForUpdate(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	return s.GetBooking(ctx, id)
}

func (s *Bookings) UpdateBooking(ctx context.Context, b domain.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.bookings[b.ID]
	if !ok {
		return errors.Wrapf(domain.ErrNotFound, "booking %s", b.ID)
	}
	s.bookings[b.ID] = cloneBooking(b)
	onRollback(ctx, func() {
		s.mu.Lock()
		s.bookings[b.ID] = prev
		s.mu.Unlock()
	})
	return nil
}

func (s *Bookings) ListBookings(ctx context.Context, side authz.Side, partyID int64) ([]domain.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.Booking{}
	for _, b := range s.bookings {
		id := b.OwnerID
		if side == authz.SideProvider {
			id = b.ProviderID
		}
		if id == partyID {
			out = append(out, cloneBooking(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Bookings) InsertEvent(ctx context.Context, ev domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	onRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i := range s.events {
			if s.events[i].ID == ev.ID {
				s.events = append(s.events[:i], s.events[i+1:]...)
				return
			}
		}
	})
	return nil
}

func (s *Bookings) GetUnpublishedOutbox(ctx context.Context, limit int) ([]domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Event
	for _, ev := range s.events {
		if ev.PublishedAt != nil {
			continue
		}
		out = append(out, ev)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *Bookings) MarkPublished(ctx context.Context, id uuid.UUID, publishedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.events {
		if s.events[i].ID == id {
			at := publishedAt
			s.events[i].PublishedAt = &at
			return nil
		}
	}
	return errors.Wrapf(domain.ErrNotFound, "outbox event %s", id)
}

// Events returns every recorded event in insertion order.
func (s *Bookings) Events() []domain.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Event(nil), s.events...)
}

func cloneBooking(b domain.Booking) domain.Booking {
	if b.Rating != nil {
		r := *b.Rating
		b.Rating = &r
	}
	if b.ReviewText != nil {
		t := *b.ReviewText
		b.ReviewText = &t
	}
	return b
}
