package auth

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/pet-services-marketplace/internal/adapters/memory"
	"github.com/robertarktes/pet-services-marketplace/internal/domain"
)

func newTestService() *Service {
	return NewService(memory.NewUsers(), "test-secret", time.Hour)
}

func TestService_RegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	s := newTestService()

	u, err := s.Register(ctx, RegisterInput{Email: "Ann@Example.com", Password: "correct horse", Name: "Ann", Role: "provider"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if u.ID == 0 || u.Role != domain.RoleProvider || u.Email != "ann@example.com" {
		t.Fatalf("unexpected user %+v", u)
	}
	if u.PasswordHash == "correct horse" {
		t.Fatal("password must be hashed")
	}

	token, logged, err := s.Login(ctx, "ann@example.com", "correct horse")
	if err != nil {
		t.Fatalf("expected login to succeed, got %v", err)
	}
	if logged.ID != u.ID {
		t.Fatalf("expected user %d, got %d", u.ID, logged.ID)
	}

	actor, err := s.ParseToken(token)
	if err != nil {
		t.Fatalf("expected valid token, got %v", err)
	}
	if actor.ID != u.ID || actor.Role != domain.RoleProvider {
		t.Fatalf("unexpected actor %+v", actor)
	}
}

func TestService_Register(t *testing.T) {
	ctx := context.Background()
	s := newTestService()

	if _, err := s.Register(ctx, RegisterInput{Email: "bob@example.com", Password: "password1"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Register(ctx, RegisterInput{Email: "BOB@example.com", Password: "password2"}); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if _, err := s.Register(ctx, RegisterInput{Email: "c@example.com", Password: "password1", Role: "admin"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for unknown role, got %v", err)
	}
	if _, err := s.Register(ctx, RegisterInput{Email: "d@example.com", Password: "short"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for short password, got %v", err)
	}

	u, err := s.users.GetUserByEmail(ctx, "bob@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if u.Role != domain.RoleOwner {
		t.Fatalf("expected default owner role, got %s", u.Role)
	}
}

func TestService_LoginFailures(t *testing.T) {
	ctx := context.Background()
	s := newTestService()
	if _, err := s.Register(ctx, RegisterInput{Email: "ann@example.com", Password: "correct horse"}); err != nil {
		t.Fatal(err)
	}

	if _, _, err := s.Login(ctx, "ann@example.com", "wrong horse"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if _, _, err := s.Login(ctx, "nobody@example.com", "correct horse"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestService_ParseToken(t *testing.T) {
	s := newTestService()
	u := domain.User{ID: 7, Role: domain.RoleOwner}

	t.Run("expired", func(t *testing.T) {
		issued := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		s.now = func() time.Time { return issued }
		token, err := s.IssueToken(u)
		if err != nil {
			t.Fatal(err)
		}
		s.now = func() time.Time { return issued.Add(2 * time.Hour) }
		defer func() { s.now = time.Now }()

		if _, err := s.ParseToken(token); !errors.Is(err, domain.ErrUnauthorized) {
			t.Fatalf("expected unauthorized, got %v", err)
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewService(memory.NewUsers(), "other-secret", time.Hour)
		token, err := other.IssueToken(u)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := s.ParseToken(token); !errors.Is(err, domain.ErrUnauthorized) {
			t.Fatalf("expected unauthorized, got %v", err)
		}
	})

	t.Run("garbage", func(t *testing.T) {
		if _, err := s.ParseToken("not-a-token"); !errors.Is(err, domain.ErrUnauthorized) {
			t.Fatalf("expected unauthorized, got %v", err)
		}
	})
}

func TestService_UpdateProfile(t *testing.T) {
	ctx := context.Background()
	s := newTestService()
	u, err := s.Register(ctx, RegisterInput{Email: "ann@example.com", Password: "correct horse", Name: "Ann"})
	if err != nil {
		t.Fatal(err)
	}
	actor := domain.Actor{ID: u.ID, Role: u.Role}

	bio := "I love cats"
	updated, err := s.UpdateProfile(ctx, actor, domain.ProfilePatch{Bio: &bio})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if updated.Name != "Ann" || updated.Bio != bio {
		t.Fatalf("unexpected profile %+v", updated)
	}

	leak := "whatsapp me"
	if _, err := s.UpdateProfile(ctx, actor, domain.ProfilePatch{Bio: &leak}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected content filter rejection, got %v", err)
	}
}
