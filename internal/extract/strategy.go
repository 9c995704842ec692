// Package extract turns a listing's raw detail snapshot into a canonical record.
// Every field is resolved by an ordered chain of strategies; the first non-empty
// value wins and an exhausted chain yields the sentinel.
package extract

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jonesrussell/listing-crawler/internal/domain"
)

// Strategy resolves one field from a snapshot.
type Strategy interface {
	Name() string
	Resolve(snap domain.Snapshot) (string, error)
}

// FieldStrategy reads a named raw field.
type FieldStrategy struct {
	Field string
}

// Name implements Strategy.
func (s FieldStrategy) Name() string {
	return "field:" + s.Field
}

// Resolve implements Strategy.
func (s FieldStrategy) Resolve(snap domain.Snapshot) (string, error) {
	if v := snap.Field(s.Field); v != "" {
		return v, nil
	}
	return "", fmt.Errorf("%s: %w", s.Name(), domain.ErrFieldNotFound)
}

// EntryStrategy scans labeled entries such as "Heating: Oil" for one label.
// "Label:" and "Label :" both match; the comparison ignores case.
type EntryStrategy struct {
	Label string
}

// Name implements Strategy.
func (s EntryStrategy) Name() string {
	return "entry:" + s.Label
}

// Resolve implements Strategy.
func (s EntryStrategy) Resolve(snap domain.Snapshot) (string, error) {
	if len(snap.Entries) == 0 {
		return "", fmt.Errorf("%s: no entries: %w", s.Name(), domain.ErrFieldNotFound)
	}

	for _, entry := range snap.Entries {
		label, value, ok := strings.Cut(entry, ":")
		if !ok || !strings.EqualFold(strings.TrimSpace(label), s.Label) {
			continue
		}
		if value = strings.TrimSpace(value); value != "" {
			return value, nil
		}
	}

	return "", fmt.Errorf("%s: %w", s.Name(), domain.ErrFieldNotFound)
}

// TextLineStrategy scans the visible page text for a line starting with
// "Label:". When the value after the colon is empty, the next non-empty line
// is taken instead.
type TextLineStrategy struct {
	Label string
}

// Name implements Strategy.
func (s TextLineStrategy) Name() string {
	return "text:" + s.Label
}

// Resolve implements Strategy.
func (s TextLineStrategy) Resolve(snap domain.Snapshot) (string, error) {
	lines := strings.Split(snap.Text, "\n")
	for i, line := range lines {
		value, ok := cutLabel(strings.TrimSpace(line), s.Label)
		if !ok {
			continue
		}
		if value != "" {
			return value, nil
		}
		if next := nextNonEmpty(lines[i+1:]); next != "" {
			return next, nil
		}
	}

	return "", fmt.Errorf("%s: %w", s.Name(), domain.ErrFieldNotFound)
}

// cutLabel returns the text after "label:" when line starts with the label.
func cutLabel(line, label string) (string, bool) {
	if len(line) < len(label) || !strings.EqualFold(line[:len(label)], label) {
		return "", false
	}

	rest := strings.TrimLeft(line[len(label):], " \t")
	if !strings.HasPrefix(rest, ":") {
		return "", false
	}

	return strings.TrimSpace(rest[1:]), true
}

func nextNonEmpty(lines []string) string {
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// Chain is an ordered list of strategies for one field.
type Chain []Strategy

// Resolve returns the first non-empty value. When every strategy fails it
// returns the sentinel together with the joined strategy errors.
func (c Chain) Resolve(snap domain.Snapshot) (string, error) {
	errs := make([]error, 0, len(c))
	for _, strategy := range c {
		value, err := strategy.Resolve(snap)
		if err == nil && value != "" {
			return value, nil
		}
		if err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) == 0 {
		errs = append(errs, domain.ErrFieldNotFound)
	}
	return domain.Sentinel, errors.Join(errs...)
}

// Chains holds the strategy chain of every extracted field.
type Chains struct {
	Status       Chain
	Address      Chain
	Price        Chain
	Beds         Chain
	Baths        Chain
	Area         Chain
	PropertyType Chain
	ListingAgent Chain
	Broker       Chain
	Heating      Chain
	Cooling      Chain
}

// DefaultChains returns the chains for the two known detail page layouts.
func DefaultChains() Chains {
	return Chains{
		Status:       Chain{FieldStrategy{domain.FieldStatus}},
		Address:      Chain{FieldStrategy{domain.FieldFullAddress}, FieldStrategy{domain.FieldStreetAddress}},
		Price:        Chain{FieldStrategy{domain.FieldPrice}, FieldStrategy{domain.FieldPriceAlt}},
		Beds:         Chain{FieldStrategy{domain.FieldBeds}, EntryStrategy{"Bedrooms"}},
		Baths:        Chain{FieldStrategy{domain.FieldBaths}, EntryStrategy{"Bathrooms"}},
		Area:         Chain{FieldStrategy{domain.FieldArea}, EntryStrategy{"Sq. Ft."}},
		PropertyType: Chain{FieldStrategy{domain.FieldPropertyType}, EntryStrategy{"Property Type"}, TextLineStrategy{"Property Type"}},
		ListingAgent: Chain{FieldStrategy{domain.FieldListingAgent}, EntryStrategy{"Listing Agent"}},
		Broker:       Chain{FieldStrategy{domain.FieldBroker}},
		Heating:      Chain{EntryStrategy{"Heating"}, TextLineStrategy{"Heating"}},
		Cooling:      Chain{EntryStrategy{"Cooling"}, TextLineStrategy{"Cooling"}},
	}
}
