package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/pet-services-marketplace/internal/domain"
)

type Catalog struct {
	mu        sync.RWMutex
	nextPetID int64
	nextSvcID int64
	pets      map[int64]domain.Pet
	services  map[int64]domain.Service
}

func NewCatalog() *Catalog {
	return &Catalog{pets: make(map[int64]domain.Pet), services: make(map[int64]domain.Service)}
}

func (c *Catalog) CreatePet(ctx context.Context, p domain.Pet) (domain.Pet, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextPetID++
	p.ID = c.nextPetID
	c.pets[p.ID] = p
	return p, nil
}

func (c *Catalog) FindPet(ctx context.Context, id int64) (domain.Pet, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.pets[id]
	if !ok {
		return domain.Pet{}, errors.Wrapf(domain.ErrNotFound, "pet %d", id)
	}
	return p, nil
}

func (c *Catalog) ListPets(ctx context.Context) ([]domain.Pet, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Pet, 0, len(c.pets))
	for _, p := range c.pets {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (c *Catalog) UpdatePet(ctx context.Context, p domain.Pet) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.pets[p.ID]; !ok {
		return errors.Wrapf(domain.ErrNotFound, "pet %d", p.ID)
	}
	c.pets[p.ID] = p
	return nil
}

func (c *Catalog) DeletePet(ctx context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.pets[id]; !ok {
		return errors.Wrapf(domain.ErrNotFound, "pet %d", id)
	}
	delete(c.pets, id)
	return nil
}

func (c *Catalog) CreateService(ctx context.Context, s domain.Service) (domain.Service, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextSvcID++
	s.ID = c.nextSvcID
	c.services[s.ID] = s
	return s, nil
}

func (c *Catalog) FindService(ctx context.Context, id int64) (domain.Service, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.services[id]
	if !ok {
		return domain.Service{}, errors.Wrapf(domain.ErrNotFound, "service %d", id)
	}
	return s, nil
}

func (c *Catalog) ListServices(ctx context.Context) ([]domain.Service, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Service, 0, len(c.services))
	for _, s := range c.services {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (c *Catalog) UpdateService(ctx context.Context, s domain.Service) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.services[s.ID]; !ok {
		return errors.Wrapf(domain.ErrNotFound, "service %d", s.ID)
	}
	c.services[s.ID] = s
	return nil
}

func (c *Catalog) DeleteService(ctx context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.services[id]; !ok {
		return errors.Wrapf(domain.ErrNotFound, "service %d", id)
	}
	delete(c.services, id)
	return nil
}
