package memory

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/robertarktes/pet-services-marketplace/internal/domain"
)

// PaymentHolds is the escrow store. It is created once per process and
// passed to the escrow coordinator.
type PaymentHolds struct {
	mu    sync.Mutex
	holds map[uuid.UUID]domain.PaymentHold
}

func NewPaymentHolds() *PaymentHolds {
	return &PaymentHolds{holds: make(map[uuid.UUID]domain.PaymentHold)}
}

func (s *PaymentHolds) CreateHold(ctx context.Context, hold domain.PaymentHold) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.holds[hold.ID]; ok {
		return errors.Wrapf(domain.ErrConflict, "payment %s already exists", hold.ID)
	}
	s.holds[hold.ID] = hold
	onRollback(ctx, func() {
		s.mu.Lock()
		delete(s.holds, hold.ID)
		s.mu.Unlock()
	})
	return nil
}

func (s *PaymentHolds) GetHold(ctx context.Context, id uuid.UUID) (domain.PaymentHold, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hold, ok := s.holds[id]
	if !ok {
		return domain.PaymentHold{}, errors.Wrapf(domain.ErrNotFound, "payment %s", id)
	}
	return hold, nil
}

func (s *PaymentHolds) UpdateHoldStatus(ctx context.Context, id uuid.UUID, from, to domain.PaymentStatus, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	hold, ok := s.holds[id]
	if !ok {
		return errors.Wrapf(domain.ErrNotFound, "payment %s", id)
	}
	if hold.Status != from {
		return errors.Wrapf(domain.ErrInvalidState, "payment %s is %s, not %s", id, hold.Status, from)
	}
	prev := hold
	hold.Status = to
	hold.UpdatedAt = at
	s.holds[id] = hold
	onRollback(ctx, func() {
		s.mu.Lock()
		s.holds[id] = prev
		s.mu.Unlock()
	})
	return nil
}
