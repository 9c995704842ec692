package extract

import (
	"errors"
	"strings"

	"github.com/cloudflare/ahocorasick"

	"github.com/jonesrussell/listing-crawler/internal/domain"
)

// ErrNoKeywords is returned when a predicate is built without keywords.
var ErrNoKeywords = errors.New("predicate requires at least one keyword")

// Predicate accepts a record when one of its attributes contains any keyword,
// ignoring case. A missing attribute never satisfies the predicate.
type Predicate struct {
	attribute string
	keywords  []string
	matcher   *ahocorasick.Matcher
}

// NewPredicate builds a predicate over attribute for the given keywords.
func NewPredicate(attribute string, keywords ...string) (*Predicate, error) {
	lowered := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			lowered = append(lowered, kw)
		}
	}
	if len(lowered) == 0 {
		return nil, ErrNoKeywords
	}

	return &Predicate{
		attribute: attribute,
		keywords:  lowered,
		matcher:   ahocorasick.NewStringMatcher(lowered),
	}, nil
}

// Attribute returns the attribute the predicate inspects.
func (p *Predicate) Attribute() string {
	return p.attribute
}

// Keywords returns the lowercased keywords.
func (p *Predicate) Keywords() []string {
	return append([]string(nil), p.keywords...)
}

// Matches reports whether value contains any keyword.
func (p *Predicate) Matches(value string) bool {
	if value == "" || value == domain.Sentinel {
		return false
	}
	return len(p.matcher.Match([]byte(strings.ToLower(value)))) > 0
}

// Accepts applies the predicate to a record's attribute.
func (p *Predicate) Accepts(rec *domain.Record) bool {
	return p.Matches(rec.Attribute(p.attribute))
}
