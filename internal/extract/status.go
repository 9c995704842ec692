package extract

import (
	"strings"
	"unicode"

	"github.com/jonesrussell/listing-crawler/internal/domain"
)

const (
	soldMarker  = "SOLD"
	dateMarker  = "ON"
	forSale     = "FOR SALE"
	activeToken = "ACTIVE"
)

// ClassifyStatus maps a status banner to a listing state and, for closed
// listings, the closing date. The date is the sentinel when unknown. Markers
// match whole words, so "INACTIVE" is not active.
//
// "SOLD ON MAR 14, 2025" yields (closed, "MAR 14, 2025").
func ClassifyStatus(text string) (domain.ListingStatus, string) {
	upper := strings.ToUpper(strings.TrimSpace(text))
	if upper == "" || upper == domain.Sentinel {
		return domain.StatusUnknown, domain.Sentinel
	}

	tokens := strings.Fields(upper)
	switch {
	case hasWord(tokens, soldMarker):
		return domain.StatusClosed, closedDate(tokens)
	case strings.Contains(strings.Join(words(tokens), " "), forSale), hasWord(tokens, activeToken):
		return domain.StatusActive, domain.Sentinel
	default:
		return domain.StatusUnknown, domain.Sentinel
	}
}

func closedDate(tokens []string) string {
	for i, tok := range tokens {
		if word(tok) == dateMarker {
			return dateText(tokens[i+1:])
		}
	}

	rest := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if word(tok) != soldMarker {
			rest = append(rest, tok)
		}
	}
	return dateText(rest)
}

func dateText(tokens []string) string {
	return orSentinel(strings.TrimLeftFunc(strings.Join(tokens, " "), isPunct))
}

// word strips surrounding punctuation from a token.
func word(tok string) string {
	return strings.TrimFunc(tok, isPunct)
}

func words(tokens []string) []string {
	out := make([]string, len(tokens))
	for i, tok := range tokens {
		out[i] = word(tok)
	}
	return out
}

func hasWord(tokens []string, w string) bool {
	for _, tok := range tokens {
		if word(tok) == w {
			return true
		}
	}
	return false
}

func isPunct(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}
