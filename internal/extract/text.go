package extract

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/jonesrussell/listing-crawler/internal/domain"
)

// DigitsOnly keeps the decimal digits of s. "1,234 homes" becomes "1234".
func DigitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ParseCount extracts an integer count from display text. Text without digits
// is a parse error.
func ParseCount(s string) (int, error) {
	digits := DigitsOnly(s)
	if digits == "" {
		return 0, fmt.Errorf("%w: no digits in %q", domain.ErrParse, s)
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrParse, err)
	}
	return n, nil
}

// CleanBroker strips bullet separators and surrounding punctuation from a broker line.
func CleanBroker(s string) string {
	s = strings.ReplaceAll(s, "•", " ")
	s = strings.ReplaceAll(s, "·", " ")
	s = strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == '-' || r == '|'
	})
	return strings.Join(strings.Fields(s), " ")
}
