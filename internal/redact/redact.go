package redact

import (
	"regexp"
)

const redacted = "[REDACTED]"

// patterns holds single-line secret-detection regexes in priority order.
var patterns = []*regexp.Regexp{
	// Gateway secret and restricted keys (sk_live_..., rk_test_...)
	regexp.MustCompile(`\b(?:sk|rk)_(?:live|test)_[A-Za-z0-9]{10,}`),
	// JWT tokens (three base64url segments); backend API keys are JWTs
	regexp.MustCompile(`eyJ[A-Za-z0-9\-_]+\.[A-Za-z0-9\-_]+\.[A-Za-z0-9\-_]+`),
	// Bearer tokens of at least 20 characters
	regexp.MustCompile(`(?i)Bearer[ \t]+[A-Za-z0-9\-._~+/]{20,}=*`),
	// Card verification codes written next to their label
	regexp.MustCompile(`(?i)\b(?:cvv2?|cvc2?|security code)[ \t]*[:=#]?[ \t]*\d{3,4}\b`),
	// Primary account numbers: 13 to 19 digits, optionally grouped by spaces or dashes
	regexp.MustCompile(`\b\d(?:[ \-]?\d){12,18}\b`),
	// Inline password assignments
	regexp.MustCompile(`(?i)password[ \t]*[:=][ \t]*\S+`),
}

// Redact replaces card numbers, card codes and credentials in input with
// [REDACTED]. Line structure is preserved: the number of newlines in the
// output always equals the number of newlines in the input.
func Redact(input string) string {
	for _, re := range patterns {
		input = re.ReplaceAllString(input, redacted)
	}
	return input
}

// Last4 returns the last four digits of a card number, ignoring separators.
// Inputs with fewer than four digits yield "".
func Last4(number string) string {
	digits := make([]byte, 0, len(number))
	for i := 0; i < len(number); i++ {
		if c := number[i]; c >= '0' && c <= '9' {
			digits = append(digits, c)
		}
	}
	if len(digits) < 4 {
		return ""
	}
	return string(digits[len(digits)-4:])
}
