package crawl_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/jonesrussell/listing-crawler/internal/crawl"
	"github.com/jonesrussell/listing-crawler/internal/domain"
	"github.com/jonesrussell/listing-crawler/internal/extract"
	"github.com/jonesrussell/listing-crawler/internal/logger"
	"github.com/jonesrussell/listing-crawler/internal/partition"
	"github.com/jonesrussell/listing-crawler/internal/retry"
)

const testPageSize = 10

func manualConfig(low, high int64) crawl.Config {
	return crawl.Config{Mode: crawl.ModeManual, Range: domain.Range{Low: low, High: high}}
}

func autoConfig() crawl.Config {
	return crawl.Config{
		Mode: crawl.ModeAuto,
		Partition: partition.Config{
			DomainMin:     0,
			DomainMax:     999,
			TargetMin:     100,
			TargetMax:     250,
			Step:          1,
			MaxIterations: 20,
		},
	}
}

func newOrchestrator(
	t *testing.T,
	cfg crawl.Config,
	p *fakeProvider,
	sub *memorySubmitter,
	cp *memoryCheckpoints,
	opts ...crawl.Option,
) *crawl.Orchestrator {
	t.Helper()

	predicate, err := extract.NewPredicate(domain.AttributeHeating, "oil")
	require.NoError(t, err)

	cfg.Retry = retry.Config{
		MaxAttempts:  2,
		InitialDelay: time.Millisecond,
		MaxDelay:     time.Millisecond,
		Multiplier:   1,
	}

	opts = append([]crawl.Option{crawl.WithRunIDGenerator(func() string { return "run-test" })}, opts...)
	o, err := crawl.New(cfg, p, extract.New(p, predicate), sub, cp, opts...)
	require.NoError(t, err)
	return o
}

func TestRun_ManualRange(t *testing.T) {
	t.Parallel()

	p := newFakeProvider(uniformValues(25), testPageSize)
	sub := newMemorySubmitter()
	cp := &memoryCheckpoints{}

	summary, err := newOrchestrator(t, manualConfig(0, 24), p, sub, cp).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, crawl.StateDone, summary.State)
	assert.Equal(t, "run-test", summary.RunID)
	assert.Equal(t, 25, summary.Seen)
	assert.Equal(t, 12, summary.Accepted)
	assert.Zero(t, summary.Duplicates)
	assert.Zero(t, summary.Skipped)
	assert.Equal(t, 1, summary.PhasesCompleted)
	assert.False(t, summary.Resumed)

	fetched := p.fetchedIDs()
	require.Len(t, fetched, 25)
	assert.Equal(t, listingID(0), fetched[0])
	assert.Equal(t, listingID(24), fetched[24])

	assert.Equal(t, 12, sub.size())
	assert.True(t, cp.cleared, "checkpoint is cleared when the run completes")
}

func TestRun_LogsOutcomePerListing(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	p := newFakeProvider(uniformValues(4), testPageSize)
	o := newOrchestrator(t, manualConfig(0, 3), p, newMemorySubmitter(), &memoryCheckpoints{},
		crawl.WithLogger(logger.NewFromCore(core)),
	)

	_, err := o.Run(context.Background())
	require.NoError(t, err)

	processed := logs.FilterMessage("Listing processed").All()
	require.Len(t, processed, 4)

	outcomes := make(map[string]any)
	for _, entry := range processed {
		fields := entry.ContextMap()
		outcomes[fields["listing"].(string)] = fields["outcome"]
	}
	assert.Equal(t, "rejected", outcomes[listingID(0)])
	assert.Equal(t, "accepted", outcomes[listingID(1)])
	assert.Equal(t, "rejected", outcomes[listingID(2)])
	assert.Equal(t, "accepted", outcomes[listingID(3)])
}

func TestRun_AutoPartitionVisitsEveryListingOnce(t *testing.T) {
	t.Parallel()

	p := newFakeProvider(uniformValues(1000), 50)
	sub := newMemorySubmitter()

	summary, err := newOrchestrator(t, autoConfig(), p, sub, &memoryCheckpoints{}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, crawl.StateDone, summary.State)
	assert.Equal(t, 1000, summary.Seen)
	assert.Equal(t, 500, summary.Accepted)
	assert.GreaterOrEqual(t, summary.PhasesCompleted, 4)

	seen := make(map[string]int)
	for _, id := range p.fetchedIDs() {
		seen[id]++
	}
	assert.Len(t, seen, 1000)
	for id, n := range seen {
		assert.Equal(t, 1, n, "listing %s fetched more than once", id)
	}
}

func TestRun_AutoPartitionAtInt64Limit(t *testing.T) {
	t.Parallel()

	cfg := autoConfig()
	cfg.Partition.DomainMax = math.MaxInt64 - cfg.Partition.Step
	cfg.Partition.DomainMin = cfg.Partition.DomainMax - 999
	cfg.Partition.MaxIterations = 70

	values := make([]int64, 600)
	for i := range values {
		values[i] = cfg.Partition.DomainMax - int64(len(values)-1-i)
	}
	p := newFakeProvider(values, 50)

	summary, err := newOrchestrator(t, cfg, p, newMemorySubmitter(), &memoryCheckpoints{}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, crawl.StateDone, summary.State)
	assert.Equal(t, 600, summary.Seen)

	seen := make(map[string]int)
	for _, id := range p.fetchedIDs() {
		seen[id]++
	}
	assert.Len(t, seen, 600)
	for id, n := range seen {
		assert.Equal(t, 1, n, "listing %s fetched more than once", id)
	}
	for _, q := range p.navigations {
		assert.True(t, q.Range.Valid(), "navigated to inverted range %s", q.Range)
		assert.LessOrEqual(t, q.Range.High, cfg.Partition.DomainMax)
	}
}

func TestRun_ResumeAfterFinalPhaseDoesNotRecrawl(t *testing.T) {
	t.Parallel()

	cfg := autoConfig()
	cp := &memoryCheckpoints{state: &domain.CrawlState{
		RunID: "run-earlier",
		CompletedPhases: []domain.Phase{
			{Index: 0, Range: domain.Range{Low: 0, High: 499}, ResultCount: 500},
			{Index: 1, Range: domain.Range{Low: 500, High: cfg.Partition.DomainMax}, ResultCount: 500},
		},
		TotalSeen: 1000,
	}}
	p := newFakeProvider(uniformValues(1000), testPageSize)

	summary, err := newOrchestrator(t, cfg, p, newMemorySubmitter(), cp).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, crawl.StateDone, summary.State)
	assert.Empty(t, p.navigations)
	assert.Empty(t, p.fetchedIDs())
	assert.Equal(t, 2, summary.PhasesCompleted)
}

func TestRun_ResumesAtCheckpointPosition(t *testing.T) {
	t.Parallel()

	frozen := domain.Phase{Index: 2, Range: domain.Range{Low: 400, High: 599}, ResultCount: 200}
	cp := &memoryCheckpoints{state: &domain.CrawlState{
		RunID:                "run-earlier",
		CurrentPhaseIndex:    2,
		CurrentPageIndex:     3,
		ItemOffsetWithinPage: 5,
		CompletedPhases: []domain.Phase{
			{Index: 0, Range: domain.Range{Low: 0, High: 199}, ResultCount: 200},
			{Index: 1, Range: domain.Range{Low: 200, High: 399}, ResultCount: 200},
		},
		CurrentPhase: &frozen,
		TotalSeen:    425,
	}}
	p := newFakeProvider(uniformValues(1000), testPageSize)

	summary, err := newOrchestrator(t, autoConfig(), p, newMemorySubmitter(), cp).Run(context.Background())
	require.NoError(t, err)

	fetched := p.fetchedIDs()
	require.NotEmpty(t, fetched)
	assert.Equal(t, listingID(425), fetched[0], "begins at the 6th item of page 3")
	for _, id := range fetched {
		assert.GreaterOrEqual(t, listingIndex(id), 425)
	}
	assert.Len(t, fetched, 575)

	require.NotEmpty(t, p.navigations)
	assert.Equal(t, frozen.Range, p.navigations[0].Range)
	assert.Equal(t, 3, p.navigations[0].Page)
	for _, q := range p.navigations {
		assert.GreaterOrEqual(t, q.Range.Low, int64(400), "completed phases are not recomputed")
	}

	assert.True(t, summary.Resumed)
	assert.Equal(t, "run-earlier", summary.RunID)
	assert.Equal(t, 1000, summary.Seen)
	assert.GreaterOrEqual(t, summary.PhasesCompleted, 3)
}

func TestRun_StartPageAndItem(t *testing.T) {
	t.Parallel()

	cfg := manualConfig(0, 24)
	cfg.StartPage = 2
	cfg.StartItem = 3

	p := newFakeProvider(uniformValues(25), testPageSize)
	summary, err := newOrchestrator(t, cfg, p, newMemorySubmitter(), &memoryCheckpoints{}).Run(context.Background())
	require.NoError(t, err)

	fetched := p.fetchedIDs()
	require.Len(t, fetched, 13)
	assert.Equal(t, listingID(12), fetched[0])
	assert.Equal(t, 13, summary.Seen)
}

func TestRun_StartItemBeyondPageFallsBackToFirstItem(t *testing.T) {
	t.Parallel()

	cfg := manualConfig(0, 24)
	cfg.StartPage = 3
	cfg.StartItem = 9

	p := newFakeProvider(uniformValues(25), testPageSize)
	_, err := newOrchestrator(t, cfg, p, newMemorySubmitter(), &memoryCheckpoints{}).Run(context.Background())
	require.NoError(t, err)

	fetched := p.fetchedIDs()
	require.Len(t, fetched, 5)
	assert.Equal(t, listingID(20), fetched[0])
}

func TestRun_DetailFailures(t *testing.T) {
	t.Parallel()

	p := newFakeProvider(uniformValues(25), testPageSize)
	p.failDetails[listingID(3)] = 5
	p.failDetails[listingID(5)] = 1

	summary, err := newOrchestrator(t, manualConfig(0, 24), p, newMemorySubmitter(), &memoryCheckpoints{}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 25, summary.Seen, "a skipped listing still counts as seen")
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 11, summary.Accepted, "listing 5 succeeds on retry, listing 3 is lost")
	assert.NotContains(t, p.fetchedIDs(), listingID(3))
	assert.Contains(t, p.fetchedIDs(), listingID(5))
}

func TestRun_PageFailureSkipsToNextPage(t *testing.T) {
	t.Parallel()

	p := newFakeProvider(uniformValues(25), testPageSize)
	p.failPages[2] = 5

	summary, err := newOrchestrator(t, manualConfig(0, 24), p, newMemorySubmitter(), &memoryCheckpoints{}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 15, summary.Seen)
	assert.Equal(t, 1, summary.PagesSkipped)
	for _, id := range p.fetchedIDs() {
		idx := listingIndex(id)
		assert.False(t, idx >= 10 && idx < 20, "page 2 listing %s must not be fetched", id)
	}
}

func TestRun_RepeatedPageFailuresEndPhase(t *testing.T) {
	t.Parallel()

	p := newFakeProvider(uniformValues(25), testPageSize)
	p.failPages[2] = 5
	p.failPages[3] = 5

	summary, err := newOrchestrator(t, manualConfig(0, 24), p, newMemorySubmitter(), &memoryCheckpoints{}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, crawl.StateDone, summary.State)
	assert.Equal(t, 10, summary.Seen)
	assert.Equal(t, 2, summary.PagesSkipped)
	assert.Equal(t, 1, summary.PhasesCompleted)
}

func TestRun_PersistenceErrorIsFatal(t *testing.T) {
	t.Parallel()

	p := newFakeProvider(uniformValues(25), testPageSize)
	sub := newMemorySubmitter()
	sub.err = fmt.Errorf("%w: disk full", domain.ErrPersistence)
	cp := &memoryCheckpoints{}

	summary, err := newOrchestrator(t, manualConfig(0, 24), p, sub, cp).Run(context.Background())
	require.ErrorIs(t, err, domain.ErrPersistence)

	assert.Equal(t, crawl.StateFailed, summary.State)
	assert.Equal(t, 1, summary.Seen, "only the rejected listing before the failure is counted")
	assert.Zero(t, summary.Accepted)

	last := cp.last()
	require.NotNil(t, last)
	assert.False(t, cp.cleared)
	assert.Equal(t, 1, last.ItemOffsetWithinPage, "the failed listing is retried on resume")
	assert.Equal(t, 1, last.CurrentPageIndex)
}

func TestRun_CancelThenResume(t *testing.T) {
	t.Parallel()

	p := newFakeProvider(uniformValues(25), testPageSize)
	sub := newMemorySubmitter()
	cp := &memoryCheckpoints{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.onFetch = func(n int) {
		if n == 7 {
			cancel()
		}
	}

	summary, err := newOrchestrator(t, manualConfig(0, 24), p, sub, cp).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, crawl.StateCancelled, summary.State)
	assert.Equal(t, 7, summary.Seen)

	last := cp.last()
	require.NotNil(t, last)
	assert.Equal(t, 7, last.ItemOffsetWithinPage)
	assert.Equal(t, 1, last.CurrentPageIndex)

	p.onFetch = nil
	summary, err = newOrchestrator(t, manualConfig(0, 24), p, sub, cp).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, crawl.StateDone, summary.State)
	assert.True(t, summary.Resumed)
	assert.Equal(t, 25, summary.Seen)

	counts := make(map[string]int)
	for _, id := range p.fetchedIDs() {
		counts[id]++
	}
	assert.Len(t, counts, 25)
	for id, n := range counts {
		assert.Equal(t, 1, n, "listing %s processed twice", id)
	}
}

func TestRun_CountFailureFailsRun(t *testing.T) {
	t.Parallel()

	p := newFakeProvider(uniformValues(100), testPageSize)
	p.failCounts = true

	summary, err := newOrchestrator(t, autoConfig(), p, newMemorySubmitter(), &memoryCheckpoints{}).Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNavigation))
	assert.Equal(t, crawl.StateFailed, summary.State)
	assert.Zero(t, summary.Seen)
}

func TestOrchestrator_StatusDuringExtraction(t *testing.T) {
	t.Parallel()

	p := newFakeProvider(uniformValues(5), testPageSize)
	o := newOrchestrator(t, manualConfig(0, 4), p, newMemorySubmitter(), &memoryCheckpoints{})

	var observed crawl.Status
	p.onFetch = func(n int) {
		if n == 3 {
			observed = o.Status()
		}
	}

	assert.Equal(t, crawl.StateIdle, o.State())
	_, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, crawl.StateExtractingItem, observed.State)
	require.NotNil(t, observed.Crawl)
	require.NotNil(t, observed.Crawl.CurrentPhase)
	assert.Equal(t, 2, observed.Crawl.TotalSeen)
	assert.Equal(t, crawl.StateDone, o.State())
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     crawl.Config
		wantErr bool
	}{
		{name: "manual", cfg: manualConfig(100, 200)},
		{name: "manual single value", cfg: manualConfig(100, 100)},
		{name: "manual inverted", cfg: manualConfig(200, 100), wantErr: true},
		{name: "auto", cfg: autoConfig()},
		{name: "auto bad bounds", cfg: crawl.Config{Mode: crawl.ModeAuto}, wantErr: true},
		{name: "auto domain max at int64 limit", cfg: func() crawl.Config {
			c := autoConfig()
			c.Partition.DomainMax = math.MaxInt64
			return c
		}(), wantErr: true},
		{name: "unknown mode", cfg: crawl.Config{Mode: "sometimes"}, wantErr: true},
		{name: "negative start", cfg: crawl.Config{Mode: crawl.ModeManual, StartPage: -1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.cfg.Validate()
			if tt.wantErr {
				require.ErrorIs(t, err, crawl.ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
		})
	}
}
