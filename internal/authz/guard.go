// Package authz decides whether an actor may read or mutate marketplace
// resources. Every function is pure; denials collapse into
// domain.ErrForbidden so callers cannot tell a wrong role from a wrong
// identity.
package authz

import (
	"github.com/robertarktes/pet-services-marketplace/internal/domain"
)

type Action int

const (
	ActionRead Action = iota
	ActionTransition
	ActionReview
)

// Parties are the two identities captured on a booking at creation.
type Parties struct {
	OwnerID    int64
	ProviderID int64
}

func BookingParties(b domain.Booking) Parties {
	return Parties{OwnerID: b.OwnerID, ProviderID: b.ProviderID}
}

// Side is the party column a booking is looked up by.
type Side int

const (
	SideOwner Side = iota
	SideProvider
)

// ListSide selects which identity field the actor's role is compared
// against first. It never grants access on its own.
func ListSide(actor domain.Actor) Side {
	if actor.Role == domain.RoleProvider {
		return SideProvider
	}
	return SideOwner
}

func (p Parties) idFor(side Side) int64 {
	if side == SideProvider {
		return p.ProviderID
	}
	return p.OwnerID
}

func other(s Side) Side {
	if s == SideProvider {
		return SideOwner
	}
	return SideProvider
}

func CanAct(actor domain.Actor, parties Parties, action Action) bool {
	if actor.ID == 0 {
		return false
	}
	switch action {
	case ActionRead, ActionTransition:
		primary := ListSide(actor)
		return parties.idFor(primary) == actor.ID || parties.idFor(other(primary)) == actor.ID
	case ActionReview:
		return parties.OwnerID == actor.ID
	}
	return false
}

func CanCreateBooking(actor domain.Actor, pet domain.Pet) bool {
	return CanModify(actor, pet.OwnerID)
}

// CanModify reports whether actor is the registered owner or provider of a
// pet or service.
func CanModify(actor domain.Actor, resourceOwnerID int64) bool {
	return actor.ID != 0 && actor.ID == resourceOwnerID
}

func HasRole(actor domain.Actor, roles ...domain.UserRole) bool {
	for _, r := range roles {
		if actor.Role == r {
			return true
		}
	}
	return false
}

// Authorize turns a decision into the uniform denial error.
func Authorize(ok bool) error {
	if !ok {
		return domain.ErrForbidden
	}
	return nil
}
