package authz

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/pet-services-marketplace/internal/domain"
)

func TestCanAct(t *testing.T) {
	parties := Parties{OwnerID: 7, ProviderID: 3}

	tests := []struct {
		name   string
		actor  domain.Actor
		action Action
		want   bool
	}{
		{"owner reads", domain.Actor{ID: 7, Role: domain.RoleOwner}, ActionRead, true},
		{"provider reads", domain.Actor{ID: 3, Role: domain.RoleProvider}, ActionRead, true},
		{"owner with provider role reads", domain.Actor{ID: 7, Role: domain.RoleProvider}, ActionRead, true},
		{"provider with owner role transitions", domain.Actor{ID: 3, Role: domain.RoleOwner}, ActionTransition, true},
		{"stranger claiming provider", domain.Actor{ID: 99, Role: domain.RoleProvider}, ActionTransition, false},
		{"stranger claiming owner", domain.Actor{ID: 99, Role: domain.RoleOwner}, ActionRead, false},
		{"owner reviews", domain.Actor{ID: 7, Role: domain.RoleOwner}, ActionReview, true},
		{"provider reviews", domain.Actor{ID: 3, Role: domain.RoleProvider}, ActionReview, false},
		{"anonymous", domain.Actor{}, ActionRead, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanAct(tt.actor, parties, tt.action); got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestCanAct_UnsetPartyNeverMatchesAnonymous(t *testing.T) {
	if CanAct(domain.Actor{}, Parties{OwnerID: 0, ProviderID: 3}, ActionTransition) {
		t.Fatal("zero actor must never be a party")
	}
}

func TestCanCreateBooking(t *testing.T) {
	pet := domain.Pet{ID: 1, OwnerID: 7}
	if !CanCreateBooking(domain.Actor{ID: 7}, pet) {
		t.Fatal("pet owner should be allowed to book")
	}
	if CanCreateBooking(domain.Actor{ID: 3, Role: domain.RoleProvider}, pet) {
		t.Fatal("non-owner must not book for the pet")
	}
}

func TestListSide(t *testing.T) {
	if ListSide(domain.Actor{Role: domain.RoleProvider}) != SideProvider {
		t.Fatal("providers list by provider side")
	}
	if ListSide(domain.Actor{Role: domain.RoleOwner}) != SideOwner {
		t.Fatal("owners list by owner side")
	}
	if ListSide(domain.Actor{}) != SideOwner {
		t.Fatal("default role lists by owner side")
	}
}

func TestHasRole(t *testing.T) {
	if !HasRole(domain.Actor{Role: domain.RoleProvider}, domain.RoleProvider) {
		t.Fatal("expected provider role to match")
	}
	if HasRole(domain.Actor{Role: domain.RoleOwner}, domain.RoleProvider) {
		t.Fatal("owner must not pass provider gate")
	}
}

func TestAuthorize(t *testing.T) {
	if err := Authorize(true); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if err := Authorize(false); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}
