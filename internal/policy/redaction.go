// Package policy keeps customer data out of logs.
package policy

import "regexp"

// MaxLoggedQueryRunes bounds how much of a query LogSafe keeps.
const MaxLoggedQueryRunes = 200

type redactionRule struct {
	pattern     *regexp.Regexp
	replacement string
}

// Order matters: cards before phones so long digit runs are not reported as
// phone numbers, and tracking codes before both.
var redactionRules = []redactionRule{
	{regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`), "[REDACTED_EMAIL]"},
	{regexp.MustCompile(`\b[A-Za-z]{2}\d{9}[A-Za-z]{2}\b`), "[REDACTED_TRACKING]"},
	{regexp.MustCompile(`\b(?:\d[ -]*?){13,19}\b`), "[REDACTED_CARD]"},
	{regexp.MustCompile(`\+?[0-9][0-9\-() ]{7,}[0-9]`), "[REDACTED_PHONE]"},
}

// RedactPII masks emails, parcel tracking codes, card numbers and phone
// numbers.
func RedactPII(input string) (redacted string, changed bool) {
	out := input
	for _, rule := range redactionRules {
		next := rule.pattern.ReplaceAllString(out, rule.replacement)
		changed = changed || next != out
		out = next
	}
	return out, changed
}

// LogSafe redacts a customer query and truncates it for logging.
func LogSafe(query string) string {
	out, _ := RedactPII(query)
	runes := []rune(out)
	if len(runes) > MaxLoggedQueryRunes {
		return string(runes[:MaxLoggedQueryRunes]) + "..."
	}
	return out
}
