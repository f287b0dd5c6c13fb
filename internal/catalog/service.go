// Package catalog manages the pets and services listed on the marketplace.
package catalog

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/pet-services-marketplace/internal/authz"
	"github.com/robertarktes/pet-services-marketplace/internal/contentfilter"
	"github.com/robertarktes/pet-services-marketplace/internal/domain"
)

type Repository interface {
	CreatePet(ctx context.Context, p domain.Pet) (domain.Pet, error)
	FindPet(ctx context.Context, id int64) (domain.Pet, error)
	ListPets(ctx context.Context) ([]domain.Pet, error)
	UpdatePet(ctx context.Context, p domain.Pet) error
	DeletePet(ctx context.Context, id int64) error

	CreateService(ctx context.Context, s domain.Service) (domain.Service, error)
	FindService(ctx context.Context, id int64) (domain.Service, error)
	ListServices(ctx context.Context) ([]domain.Service, error)
	UpdateService(ctx context.Context, s domain.Service) error
	DeleteService(ctx context.Context, id int64) error
}

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

func (s *Service) CreatePet(ctx context.Context, actor domain.Actor, p domain.Pet) (domain.Pet, error) {
	p.OwnerID = actor.ID
	p.CreatedAt = s.now()
	if err := p.Validate(); err != nil {
		return domain.Pet{}, err
	}
	if err := contentfilter.Check(p.Description); err != nil {
		return domain.Pet{}, err
	}
	return s.repo.CreatePet(ctx, p)
}

func (s *Service) GetPet(ctx context.Context, id int64) (domain.Pet, error) {
	return s.repo.FindPet(ctx, id)
}

func (s *Service) ListPets(ctx context.Context) ([]domain.Pet, error) {
	return s.repo.ListPets(ctx)
}

func (s *Service) UpdatePet(ctx context.Context, actor domain.Actor, id int64, patch domain.PetPatch) (domain.Pet, error) {
	p, err := s.repo.FindPet(ctx, id)
	if err != nil {
		return domain.Pet{}, err
	}
	if err := authz.Authorize(authz.CanModify(actor, p.OwnerID)); err != nil {
		return domain.Pet{}, errors.Wrap(err, "not authorized to update this pet")
	}
	patch.Apply(&p)
	if err := p.Validate(); err != nil {
		return domain.Pet{}, err
	}
	if err := contentfilter.Check(p.Description); err != nil {
		return domain.Pet{}, err
	}
	if err := s.repo.UpdatePet(ctx, p); err != nil {
		return domain.Pet{}, err
	}
	return p, nil
}

func (s *Service) DeletePet(ctx context.Context, actor domain.Actor, id int64) error {
	p, err := s.repo.FindPet(ctx, id)
	if err != nil {
		return err
	}
	if err := authz.Authorize(authz.CanModify(actor, p.OwnerID)); err != nil {
		return errors.Wrap(err, "not authorized to delete this pet")
	}
	return s.repo.DeletePet(ctx, id)
}

func (s *Service) CreateService(ctx context.Context, actor domain.Actor, svc domain.Service) (domain.Service, error) {
	if err := authz.Authorize(authz.HasRole(actor, domain.RoleProvider)); err != nil {
		return domain.Service{}, errors.Wrap(err, "only providers can list services")
	}
	svc.ProviderID = actor.ID
	svc.CreatedAt = s.now()
	if err := svc.Validate(); err != nil {
		return domain.Service{}, err
	}
	if err := contentfilter.Check(svc.Description); err != nil {
		return domain.Service{}, err
	}
	return s.repo.CreateService(ctx, svc)
}

func (s *Service) GetService(ctx context.Context, id int64) (domain.Service, error) {
	return s.repo.FindService(ctx, id)
}

func (s *Service) ListServices(ctx context.Context) ([]domain.Service, error) {
	return s.repo.ListServices(ctx)
}

// UpdateService changes a listing. Bookings already made keep the price
// they were created with.
func (s *Service) UpdateService(ctx context.Context, actor domain.Actor, id int64, patch domain.ServicePatch) (domain.Service, error) {
	svc, err := s.ownedService(ctx, actor, id)
	if err != nil {
		return domain.Service{}, err
	}
	patch.Apply(&svc)
	if err := svc.Validate(); err != nil {
		return domain.Service{}, err
	}
	if err := contentfilter.Check(svc.Description); err != nil {
		return domain.Service{}, err
	}
	if err := s.repo.UpdateService(ctx, svc); err != nil {
		return domain.Service{}, err
	}
	return svc, nil
}

func (s *Service) DeleteService(ctx context.Context, actor domain.Actor, id int64) error {
	if _, err := s.ownedService(ctx, actor, id); err != nil {
		return err
	}
	return s.repo.DeleteService(ctx, id)
}

func (s *Service) ownedService(ctx context.Context, actor domain.Actor, id int64) (domain.Service, error) {
	if err := authz.Authorize(authz.HasRole(actor, domain.RoleProvider)); err != nil {
		return domain.Service{}, errors.Wrap(err, "only providers can manage services")
	}
	svc, err := s.repo.FindService(ctx, id)
	if err != nil {
		return domain.Service{}, err
	}
	if err := authz.Authorize(authz.CanModify(actor, svc.ProviderID)); err != nil {
		return domain.Service{}, errors.Wrap(err, "not authorized to manage this service")
	}
	return svc, nil
}
