// Package contentfilter rejects free text that tries to move a conversation
// off the marketplace.
package contentfilter

import (
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/pet-services-marketplace/internal/domain"
)

var ErrContactInfo = errors.Mark(
	errors.New("messages cannot contain contact information or external links"),
	domain.ErrInvalidInput,
)

var patterns = []*regexp.Regexp{
	// phone numbers
	regexp.MustCompile(`(?:\+\d{1,3}[-.\s]?)?\d{3}[-.\s]?\d{3}[-.\s]?\d{4}`),
	// email addresses
	regexp.MustCompile(`[a-z0-9._%+-]+@[a-z0-9.-]+\.[a-z]{2,}`),
	// social media
	regexp.MustCompile(`\b(?:whatsapp|telegram|signal|facebook|fb|insta|instagram)\b`),
	// contact intent
	regexp.MustCompile(`\b(?:meet|contact|call|text|dm|pm|message me at)\b`),
	// links
	regexp.MustCompile(`(?:https?://|\bhttps?\b|www\.)`),
}

// Check scans the given fields as one lowercased text.
func Check(fields ...string) error {
	content := strings.ToLower(strings.Join(fields, " "))
	if strings.TrimSpace(content) == "" {
		return nil
	}
	for _, p := range patterns {
		if p.MatchString(content) {
			return ErrContactInfo
		}
	}
	return nil
}
