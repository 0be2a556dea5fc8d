// Package validation normalizes untrusted form input and checks signup
// submissions, collecting every problem rather than stopping at the first.
package validation

import "strings"

var escaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#039;",
	`\`, "",
)

// Sanitize HTML-escapes & < > " ', removes backslashes and trims surrounding
// whitespace. It is not idempotent: apply it once, where input enters.
func Sanitize(s string) string {
	return strings.TrimSpace(escaper.Replace(s))
}

// SanitizeValue applies Sanitize to strings and returns anything else as is.
func SanitizeValue(v any) any {
	if s, ok := v.(string); ok {
		return Sanitize(s)
	}
	return v
}

// NormalizeIdentifier prepares an email or username for storage and lookup.
func NormalizeIdentifier(s string) string {
	return Sanitize(strings.ToLower(strings.TrimSpace(s)))
}
