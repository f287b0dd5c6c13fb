package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/pet-services-marketplace/internal/domain"
)

type Users struct {
	mu      sync.RWMutex
	nextID  int64
	users   map[int64]domain.User
	byEmail map[string]int64
}

func NewUsers() *Users {
	return &Users{users: make(map[int64]domain.User), byEmail: make(map[string]int64)}
}

func (s *Users) CreateUser(ctx context.Context, u domain.User) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := strings.ToLower(u.Email)
	if _, ok := s.byEmail[email]; ok {
		return domain.User{}, errors.Wrap(domain.ErrConflict, "user already exists")
	}
	s.nextID++
	u.ID = s.nextID
	s.users[u.ID] = u
	s.byEmail[email] = u.ID
	return u, nil
}

func (s *Users) GetUser(ctx context.Context, id int64) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return domain.User{}, errors.Wrapf(domain.ErrNotFound, "user %d", id)
	}
	return u, nil
}

func (s *Users) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return domain.User{}, errors.Wrap(domain.ErrNotFound, "user")
	}
	return s.users[id], nil
}

func (s *Users) UpdateUser(ctx context.Context, u domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		return errors.Wrapf(domain.ErrNotFound, "user %d", u.ID)
	}
	s.users[u.ID] = u
	return nil
}
