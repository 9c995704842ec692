package crawl_test

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/jonesrussell/listing-crawler/internal/checkpoint"
	"github.com/jonesrussell/listing-crawler/internal/domain"
	"github.com/jonesrussell/listing-crawler/internal/provider"
)

const idPrefix = "listing-"

// fakeProvider serves an in-memory catalog of listing values. Listing i has
// value values[i]; odd listings are heated with oil.
type fakeProvider struct {
	mu       sync.Mutex
	values   []int64
	pageSize int

	query  provider.Query
	loaded bool

	// failPages maps a page number to the number of navigations to it that fail.
	failPages map[int]int
	// failDetails maps a listing id to the number of fetches that fail.
	failDetails map[string]int
	// failCounts makes every navigation fail while set.
	failCounts bool
	// onFetch is called with the number of detail fetches so far.
	onFetch func(n int)

	navigations []provider.Query
	fetched     []string
}

func newFakeProvider(values []int64, pageSize int) *fakeProvider {
	return &fakeProvider{
		values:      values,
		pageSize:    pageSize,
		failPages:   map[int]int{},
		failDetails: map[string]int{},
	}
}

// uniformValues returns n listings valued 0..n-1.
func uniformValues(n int) []int64 {
	out := make([]int64, n)
	for i := range out {
		out[i] = int64(i)
	}
	return out
}

func listingID(i int) string {
	return idPrefix + strconv.Itoa(i)
}

func listingIndex(id string) int {
	i, _ := strconv.Atoi(strings.TrimPrefix(id, idPrefix))
	return i
}

func (f *fakeProvider) Navigate(_ context.Context, q provider.Query) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.navigations = append(f.navigations, q)
	if f.failCounts {
		return &provider.NavigationError{URL: "fake://search", Status: 503}
	}
	if f.failPages[q.Page] > 0 {
		f.failPages[q.Page]--
		return &provider.NavigationError{URL: fmt.Sprintf("fake://search/page-%d", q.Page), Status: 500}
	}

	f.query = q
	f.loaded = true
	return nil
}

// matching returns the catalog indexes inside the loaded range.
func (f *fakeProvider) matching() []int {
	var out []int
	for i, v := range f.values {
		if f.query.Range.Contains(v) {
			out = append(out, i)
		}
	}
	return out
}

func (f *fakeProvider) CountVisibleResults(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.matching()), nil
}

func (f *fakeProvider) ListItemIdentifiers(_ context.Context) ([]domain.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.loaded {
		return nil, provider.ErrNoPage
	}

	all := f.matching()
	from := (f.query.Page - 1) * f.pageSize
	if from >= len(all) {
		return nil, nil
	}
	to := min(from+f.pageSize, len(all))

	listings := make([]domain.Listing, 0, to-from)
	for pos, idx := range all[from:to] {
		listings = append(listings, domain.Listing{ID: listingID(idx), Position: pos})
	}
	return listings, nil
}

func (f *fakeProvider) HasNextPage(_ context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.query.Page*f.pageSize < len(f.matching()), nil
}

func (f *fakeProvider) AdvanceToNextPage(ctx context.Context) error {
	f.mu.Lock()
	q := provider.Query{Range: f.query.Range, Page: f.query.Page + 1}
	f.mu.Unlock()
	return f.Navigate(ctx, q)
}

func (f *fakeProvider) FetchDetailFields(_ context.Context, listing domain.Listing) (domain.Snapshot, error) {
	f.mu.Lock()
	if f.failDetails[listing.ID] > 0 {
		f.failDetails[listing.ID]--
		f.mu.Unlock()
		return domain.Snapshot{}, &provider.NavigationError{URL: listing.ID, Status: 502}
	}
	f.fetched = append(f.fetched, listing.ID)
	n := len(f.fetched)
	onFetch := f.onFetch
	f.mu.Unlock()

	if onFetch != nil {
		onFetch(n)
	}

	heating := "Gas"
	if listingIndex(listing.ID)%2 == 1 {
		heating = "Oil"
	}
	return domain.Snapshot{
		URL: "https://example.com/home/" + listing.ID,
		Fields: map[string]string{
			domain.FieldFullAddress: listing.ID + " Main St, Springfield, IL 62701",
		},
		Entries: []string{"Heating: " + heating},
	}, nil
}

func (f *fakeProvider) fetchedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.fetched...)
}

// memorySubmitter dedupes on the full address.
type memorySubmitter struct {
	mu   sync.Mutex
	keys map[string]int
	err  error
}

func newMemorySubmitter() *memorySubmitter {
	return &memorySubmitter{keys: map[string]int{}}
}

func (m *memorySubmitter) Submit(_ context.Context, rec *domain.Record) (domain.SubmitOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return domain.Accepted, m.err
	}
	m.keys[rec.Address.Full]++
	if m.keys[rec.Address.Full] > 1 {
		return domain.Duplicate, nil
	}
	return domain.Accepted, nil
}

func (m *memorySubmitter) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.keys)
}

// memoryCheckpoints keeps the last saved state.
type memoryCheckpoints struct {
	mu      sync.Mutex
	state   *domain.CrawlState
	saves   int
	cleared bool
}

func (m *memoryCheckpoints) Load(_ context.Context) (*domain.CrawlState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		return nil, checkpoint.ErrNotFound
	}
	return m.state.Clone(), nil
}

func (m *memoryCheckpoints) Save(_ context.Context, state *domain.CrawlState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state.Clone()
	m.saves++
	m.cleared = false
	return nil
}

func (m *memoryCheckpoints) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = nil
	m.cleared = true
	return nil
}

func (m *memoryCheckpoints) last() *domain.CrawlState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Clone()
}
