package contentfilter

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/pet-services-marketplace/internal/domain"
)

func TestCheck(t *testing.T) {
	tests := []struct {
		name    string
		fields  []string
		wantErr bool
	}{
		{"empty", nil, false},
		{"plain notes", []string{"Rex needs two walks and his meds at 3pm"}, false},
		{"phone", []string{"ring 555-123-4567"}, true},
		{"international phone", []string{"+44 207 123 4567"}, true},
		{"email", []string{"write to Rex.Owner@example.com"}, true},
		{"social", []string{"find me on Instagram"}, true},
		{"contact intent", []string{"just text me"}, true},
		{"message me at", []string{"Message me at home"}, true},
		{"url", []string{"see https://pets.example"}, true},
		{"www", []string{"www.example.org"}, true},
		{"second field", []string{"fine", "call me"}, true},
		{"word containing keyword", []string{"recall training and context"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Check(tt.fields...)
			if (err != nil) != tt.wantErr {
				t.Fatalf("expected error=%v, got %v", tt.wantErr, err)
			}
			if err != nil && !errors.Is(err, domain.ErrInvalidInput) {
				t.Fatalf("expected invalid input kind, got %v", err)
			}
		})
	}
}
