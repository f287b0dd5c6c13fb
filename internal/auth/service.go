package auth

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/robertarktes/pet-services-marketplace/internal/contentfilter"
	"github.com/robertarktes/pet-services-marketplace/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

type UserStore interface {
	CreateUser(ctx context.Context, u domain.User) (domain.User, error)
	GetUser(ctx context.Context, id int64) (domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)
	UpdateUser(ctx context.Context, u domain.User) error
}

type Service struct {
	users    UserStore
	secret   []byte
	tokenTTL time.Duration
	now      func() time.Time
}

func NewService(users UserStore, secret string, tokenTTL time.Duration) *Service {
	return &Service{users: users, secret: []byte(secret), tokenTTL: tokenTTL, now: time.Now}
}

type claims struct {
	jwt.RegisteredClaims
	UserID int64           `json:"userId"`
	Role   domain.UserRole `json:"role"`
}

type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Role     string
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (domain.User, error) {
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if email == "" || !strings.Contains(email, "@") {
		return domain.User{}, errors.Wrap(domain.ErrInvalidInput, "a valid email is required")
	}
	if len(in.Password) < 8 {
		return domain.User{}, errors.Wrap(domain.ErrInvalidInput, "password must be at least 8 characters")
	}
	role, err := domain.ParseUserRole(in.Role)
	if err != nil {
		return domain.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, errors.Wrap(err, "hash password")
	}
	return s.users.CreateUser(ctx, domain.User{
		Email:        email,
		PasswordHash: string(hash),
		Name:         strings.TrimSpace(in.Name),
		Role:         role,
		CreatedAt:    s.now(),
	})
}

// Login returns a signed token for valid credentials. Unknown emails and
// wrong passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (string, domain.User, error) {
	u, err := s.users.GetUserByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if errors.Is(err, domain.ErrNotFound) {
		return "", domain.User{}, errors.Wrap(domain.ErrUnauthorized, "invalid credentials")
	}
	if err != nil {
		return "", domain.User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", domain.User{}, errors.Wrap(domain.ErrUnauthorized, "invalid credentials")
	}

	token, err := s.IssueToken(u)
	if err != nil {
		return "", domain.User{}, err
	}
	return token, u, nil
}

func (s *Service) IssueToken(u domain.User) (string, error) {
	now := s.now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(u.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
		UserID: u.ID,
		Role:   u.Role,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
}

func (s *Service) ParseToken(token string) (domain.Actor, error) {
	c := &claims{}
	tok, err := jwt.ParseWithClaims(token, c, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return domain.Actor{}, errors.Wrap(domain.ErrUnauthorized, err.Error())
	}
	if !tok.Valid || c.UserID == 0 {
		return domain.Actor{}, errors.Wrap(domain.ErrUnauthorized, "invalid token")
	}
	return domain.Actor{ID: c.UserID, Role: c.Role}, nil
}

func (s *Service) Profile(ctx context.Context, actor domain.Actor) (domain.User, error) {
	return s.users.GetUser(ctx, actor.ID)
}

func (s *Service) UpdateProfile(ctx context.Context, actor domain.Actor, patch domain.ProfilePatch) (domain.User, error) {
	if patch.Bio != nil {
		if err := contentfilter.Check(*patch.Bio); err != nil {
			return domain.User{}, err
		}
	}
	u, err := s.users.GetUser(ctx, actor.ID)
	if err != nil {
		return domain.User{}, err
	}
	patch.Apply(&u)
	if err := s.users.UpdateUser(ctx, u); err != nil {
		return domain.User{}, err
	}
	return u, nil
}
