// Package security holds the HTML sanitizer used to render rich-text task fields.
package security

import (
	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer cleans HTML produced by the shell's rich-text editor for
// display. Implementations must be safe for concurrent use.
type Sanitizer interface {
	// Sanitize returns rawHTML with scripts, event handlers and unsafe
	// URLs removed. The empty string maps to itself and the result is
	// stable when sanitized again.
	Sanitize(rawHTML string) string
}

type htmlSanitizer struct {
	policy *bluemonday.Policy
}

// NewSanitizer builds a sanitizer on bluemonday's user-generated-content
// policy. Links always get rel="noopener noreferrer" and open in a new
// window, since the shell must never navigate away from itself.
func NewSanitizer() Sanitizer {
	p := bluemonday.UGCPolicy()
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)
	// The editor marks checklist items and highlighted text with classes.
	p.AllowAttrs("class").Matching(bluemonday.SpaceSeparatedTokens).OnElements("li", "span", "p", "ul")
	return &htmlSanitizer{policy: p}
}

func (s *htmlSanitizer) Sanitize(rawHTML string) string {
	if rawHTML == "" {
		return ""
	}
	return s.policy.Sanitize(rawHTML)
}

// SanitizePtr applies s to an optional field, leaving nil untouched.
func SanitizePtr(s Sanitizer, v *string) *string {
	if v == nil {
		return nil
	}
	clean := s.Sanitize(*v)
	return &clean
}
