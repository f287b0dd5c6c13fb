package domain

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

type Pet struct {
	ID          int64     `json:"id"`
	OwnerID     int64     `json:"ownerId"`
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	Breed       string    `json:"breed,omitempty"`
	Age         int       `json:"age,omitempty"`
	Description string    `json:"description,omitempty"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (p Pet) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.Wrap(ErrInvalidInput, "pet name is required")
	}
	if strings.TrimSpace(p.Type) == "" {
		return errors.Wrap(ErrInvalidInput, "pet type is required")
	}
	if p.Age < 0 {
		return errors.Wrap(ErrInvalidInput, "pet age must not be negative")
	}
	return nil
}

type PetPatch struct {
	Name        *string `json:"name"`
	Type        *string `json:"type"`
	Breed       *string `json:"breed"`
	Age         *int    `json:"age"`
	Description *string `json:"description"`
	ImageURL    *string `json:"imageUrl"`
}

func (p PetPatch) Apply(pet *Pet) {
	if p.Name != nil {
		pet.Name = *p.Name
	}
	if p.Type != nil {
		pet.Type = *p.Type
	}
	if p.Breed != nil {
		pet.Breed = *p.Breed
	}
	if p.Age != nil {
		pet.Age = *p.Age
	}
	if p.Description != nil {
		pet.Description = *p.Description
	}
	if p.ImageURL != nil {
		pet.ImageURL = *p.ImageURL
	}
}

type Service struct {
	ID              int64     `json:"id"`
	ProviderID      int64     `json:"providerId"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	Price           float64   `json:"price"`
	DurationMinutes int       `json:"duration"`
	Type            string    `json:"type"`
	ImageURL        string    `json:"imageUrl,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

func (s Service) Validate() error {
	if strings.TrimSpace(s.Title) == "" {
		return errors.Wrap(ErrInvalidInput, "service title is required")
	}
	if s.Price < 0 {
		return errors.Wrap(ErrInvalidInput, "service price must not be negative")
	}
	if s.DurationMinutes < 0 {
		return errors.Wrap(ErrInvalidInput, "service duration must not be negative")
	}
	return nil
}

type ServicePatch struct {
	Title           *string  `json:"title"`
	Description     *string  `json:"description"`
	Price           *float64 `json:"price"`
	DurationMinutes *int     `json:"duration"`
	Type            *string  `json:"type"`
	ImageURL        *string  `json:"imageUrl"`
}

func (p ServicePatch) Apply(s *Service) {
	if p.Title != nil {
		s.Title = *p.Title
	}
	if p.Description != nil {
		s.Description = *p.Description
	}
	if p.Price != nil {
		s.Price = *p.Price
	}
	if p.DurationMinutes != nil {
		s.DurationMinutes = *p.DurationMinutes
	}
	if p.Type != nil {
		s.Type = *p.Type
	}
	if p.ImageURL != nil {
		s.ImageURL = *p.ImageURL
	}
}
