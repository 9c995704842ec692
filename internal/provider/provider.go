// Package provider drives the listing site: range-filtered search pages,
// pagination and detail pages. One provider session serves a whole crawl and
// its calls never overlap.
package provider

import (
	"context"
	"fmt"

	"github.com/jonesrussell/listing-crawler/internal/domain"
)

// Query selects one result page of a range-filtered search.
type Query struct {
	Range domain.Range
	Page  int
}

// Provider is the page-level view of the listing site the crawl depends on.
type Provider interface {
	// Navigate loads the given search result page.
	Navigate(ctx context.Context, q Query) error
	// CountVisibleResults reports the result count of the loaded search.
	CountVisibleResults(ctx context.Context) (int, error)
	// ListItemIdentifiers returns the listings on the loaded page in display order.
	ListItemIdentifiers(ctx context.Context) ([]domain.Listing, error)
	// HasNextPage reports whether a further result page exists.
	HasNextPage(ctx context.Context) (bool, error)
	// AdvanceToNextPage loads the following result page.
	AdvanceToNextPage(ctx context.Context) error
	// FetchDetailFields loads a listing's detail page.
	FetchDetailFields(ctx context.Context, listing domain.Listing) (domain.Snapshot, error)
}

// NavigationError is a failed page load.
type NavigationError struct {
	URL    string
	Status int
	Err    error
}

func (e *NavigationError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("navigate %s: status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("navigate %s: %v", e.URL, e.Err)
}

// Unwrap lets errors.Is match domain.ErrNavigation as well as the cause.
func (e *NavigationError) Unwrap() []error {
	if e.Err == nil {
		return []error{domain.ErrNavigation}
	}
	return []error{domain.ErrNavigation, e.Err}
}

// CountFunc adapts a Provider to a range counting function: navigate to page 1
// of [low, high] and read the result count.
func CountFunc(p Provider) func(ctx context.Context, low, high int64) (int, error) {
	return func(ctx context.Context, low, high int64) (int, error) {
		if err := p.Navigate(ctx, Query{Range: domain.Range{Low: low, High: high}, Page: domain.FirstPage}); err != nil {
			return 0, err
		}
		return p.CountVisibleResults(ctx)
	}
}
