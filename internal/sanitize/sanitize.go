// Package sanitize cleans user-generated text before storage. Uses
// bluemonday to strip HTML (script tags, event handlers, javascript:
// URLs) from free-text fields like submission notes and profile names,
// which the dashboard renders as plain text.
package sanitize

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

// policy is the singleton bluemonday strict policy. Initialized once via
// sync.Once for thread-safe lazy initialization.
var (
	policy     *bluemonday.Policy
	policyOnce sync.Once
)

// getPolicy returns the shared sanitization policy, initializing it on first call.
func getPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		// StrictPolicy strips every tag. Free-text fields carry no markup;
		// anything tag-shaped in them is at best noise and at worst an
		// injection attempt.
		policy = bluemonday.StrictPolicy()
	})
	return policy
}

// Text strips all HTML from user-provided free text and unescapes the
// entities bluemonday introduces, so "a < b" survives a round trip.
// Must be called on notes, staff replies, and profile names before they
// are stored.
func Text(input string) string {
	if input == "" {
		return ""
	}
	cleaned := getPolicy().Sanitize(input)
	return strings.TrimSpace(html.UnescapeString(cleaned))
}
