package domain

import (
	"time"

	"github.com/cockroachdb/errors"
)

type UserRole string

const (
	RoleOwner    UserRole = "owner"
	RoleProvider UserRole = "provider"
)

// ParseUserRole maps an empty role to RoleOwner, the marketplace default.
func ParseUserRole(s string) (UserRole, error) {
	switch UserRole(s) {
	case "", RoleOwner:
		return RoleOwner, nil
	case RoleProvider:
		return RoleProvider, nil
	}
	return "", errors.Wrapf(ErrInvalidInput, "unknown role %q", s)
}

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	Role         UserRole  `json:"role"`
	PhoneNumber  string    `json:"phoneNumber,omitempty"`
	Bio          string    `json:"bio,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Actor is an identity already verified by authentication.
type Actor struct {
	ID   int64
	Role UserRole
}

type ProfilePatch struct {
	Name        *string `json:"name"`
	PhoneNumber *string `json:"phoneNumber"`
	Bio         *string `json:"bio"`
}

func (p ProfilePatch) Apply(u *User) {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.PhoneNumber != nil {
		u.PhoneNumber = *p.PhoneNumber
	}
	if p.Bio != nil {
		u.Bio = *p.Bio
	}
}
