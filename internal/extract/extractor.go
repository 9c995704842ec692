package extract

import (
	"context"
	"fmt"
	"time"

	"github.com/jonesrussell/listing-crawler/internal/domain"
	"github.com/jonesrussell/listing-crawler/internal/logger"
)

// DetailFetcher loads the raw detail snapshot of a listing.
type DetailFetcher interface {
	FetchDetailFields(ctx context.Context, listing domain.Listing) (domain.Snapshot, error)
}

// Extractor resolves every record field from a detail snapshot and applies the
// acceptance predicate.
type Extractor struct {
	fetcher   DetailFetcher
	predicate *Predicate
	chains    Chains
	logger    logger.Interface
	now       func() time.Time
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithChains replaces the default strategy chains.
func WithChains(chains Chains) Option {
	return func(e *Extractor) {
		e.chains = chains
	}
}

// WithLogger sets the logger.
func WithLogger(log logger.Interface) Option {
	return func(e *Extractor) {
		e.logger = log
	}
}

// WithClock overrides the scrape timestamp source.
func WithClock(now func() time.Time) Option {
	return func(e *Extractor) {
		e.now = now
	}
}

// New creates an Extractor. A nil predicate accepts nothing.
func New(fetcher DetailFetcher, predicate *Predicate, opts ...Option) *Extractor {
	e := &Extractor{
		fetcher:   fetcher,
		predicate: predicate,
		chains:    DefaultChains(),
		logger:    logger.NewNoOp(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.WithComponent("extractor")
	return e
}

// Extract fetches the listing's detail page and normalizes it. Only a fetch
// failure is returned; missing or malformed fields resolve to the sentinel.
func (e *Extractor) Extract(ctx context.Context, listing domain.Listing) (*domain.Record, error) {
	snap, err := e.fetcher.FetchDetailFields(ctx, listing)
	if err != nil {
		return nil, fmt.Errorf("fetch detail %s: %w", listing.ID, err)
	}
	return e.Normalize(listing, snap), nil
}

// Normalize builds a record from an already fetched snapshot.
func (e *Extractor) Normalize(listing domain.Listing, snap domain.Snapshot) *domain.Record {
	url := snap.URL
	if url == "" {
		url = listing.ID
	}

	rec := &domain.Record{
		URL:        url,
		ScrapedAt:  e.now(),
		Attributes: make(map[string]string, 2),
	}

	rec.Status, rec.StatusDate = ClassifyStatus(e.resolve(url, "status", e.chains.Status, snap))

	rec.Address = domain.UnknownAddress()
	if text := e.resolve(url, "address", e.chains.Address, snap); text != domain.Sentinel {
		addr, err := NormalizeAddress(text)
		if err != nil {
			e.logger.Debug("Address only partially parsed", "url", url, "error", err)
		}
		rec.Address = addr
	}

	rec.Price = e.resolve(url, "price", e.chains.Price, snap)
	rec.Beds = e.resolve(url, "beds", e.chains.Beds, snap)
	rec.Baths = e.resolve(url, "baths", e.chains.Baths, snap)
	rec.Area = e.resolve(url, "area", e.chains.Area, snap)
	rec.PropertyType = e.resolve(url, "property_type", e.chains.PropertyType, snap)
	rec.ListingAgent = e.resolve(url, "listing_agent", e.chains.ListingAgent, snap)

	rec.Broker = domain.Sentinel
	if broker := e.resolve(url, "broker", e.chains.Broker, snap); broker != domain.Sentinel {
		rec.Broker = orSentinel(CleanBroker(broker))
	}

	rec.Attributes[domain.AttributeHeating] = e.resolve(url, domain.AttributeHeating, e.chains.Heating, snap)
	rec.Attributes[domain.AttributeCooling] = e.resolve(url, domain.AttributeCooling, e.chains.Cooling, snap)

	if e.predicate != nil {
		rec.Accepted = e.predicate.Accepts(rec)
	}

	return rec
}

func (e *Extractor) resolve(url, field string, chain Chain, snap domain.Snapshot) string {
	value, err := chain.Resolve(snap)
	if err != nil {
		e.logger.Debug("Field resolved to sentinel", "url", url, "field", field, "error", err)
	}
	return value
}
