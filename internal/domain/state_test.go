package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/listing-crawler/internal/domain"
)

func TestNewCrawlState_ClampsStart(t *testing.T) {
	t.Parallel()

	s := domain.NewCrawlState("run", 0, -3)

	assert.Equal(t, domain.FirstPage, s.CurrentPageIndex)
	assert.Zero(t, s.ItemOffsetWithinPage)
	assert.NotNil(t, s.CompletedPhases)
}

func TestCrawlState_CompletePhase(t *testing.T) {
	t.Parallel()

	s := domain.NewCrawlState("run", 4, 7)
	phase := domain.Phase{Index: 0, Range: domain.Range{Low: 0, High: 100}, ResultCount: 50}
	s.CurrentPhase = &phase

	s.CompletePhase(phase)

	assert.Nil(t, s.CurrentPhase)
	assert.Equal(t, 1, s.CurrentPhaseIndex)
	assert.Equal(t, domain.FirstPage, s.CurrentPageIndex)
	assert.Zero(t, s.ItemOffsetWithinPage)

	last, ok := s.LastCompleted()
	require.True(t, ok)
	assert.Equal(t, phase, last)
}

func TestCrawlState_LastCompletedEmpty(t *testing.T) {
	t.Parallel()

	_, ok := domain.NewCrawlState("run", 1, 0).LastCompleted()
	assert.False(t, ok)
}

func TestCrawlState_CloneIsDeep(t *testing.T) {
	t.Parallel()

	s := domain.NewCrawlState("run", 1, 0)
	phase := domain.Phase{Index: 1, Range: domain.Range{Low: 10, High: 20}}
	s.CurrentPhase = &phase
	s.CompletedPhases = append(s.CompletedPhases, domain.Phase{Index: 0})

	c := s.Clone()
	c.CurrentPhase.Range.High = 99
	c.CompletedPhases[0].Index = 42

	assert.Equal(t, int64(20), s.CurrentPhase.Range.High)
	assert.Equal(t, 0, s.CompletedPhases[0].Index)
	assert.Nil(t, (*domain.CrawlState)(nil).Clone())
}

func TestRange(t *testing.T) {
	t.Parallel()

	r := domain.Range{Low: 100, High: 200}

	assert.True(t, r.Valid())
	assert.Equal(t, int64(100), r.Width())
	assert.True(t, r.Contains(100))
	assert.True(t, r.Contains(200))
	assert.False(t, r.Contains(201))
	assert.False(t, domain.Range{Low: 5, High: 4}.Valid())
	assert.Equal(t, "[100, 200]", r.String())
}

func TestRecord_Row(t *testing.T) {
	t.Parallel()

	rec := &domain.Record{
		URL:        "https://example.com/home/1",
		ScrapedAt:  time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC),
		Status:     domain.StatusClosed,
		StatusDate: "MAR 1, 2024",
		Address:    domain.Address{Street: "1 Main St", City: "Springfield", Full: "1 Main St, Springfield"},
		Price:      "$500,000",
		Attributes: map[string]string{domain.AttributeHeating: "Oil"},
		Accepted:   true,
	}

	row := rec.Row()

	assert.Len(t, row, len(domain.RecordColumns))
	assert.Equal(t, "2024-03-01 09:30:00", row[domain.ColumnScrapeDate])
	assert.Equal(t, "closed", row[domain.ColumnStatus])
	assert.Equal(t, "Oil", row[domain.ColumnHeating])
	assert.Equal(t, domain.Sentinel, row[domain.ColumnCooling])
	assert.Equal(t, domain.Sentinel, row[domain.ColumnRegion])
	assert.Equal(t, domain.Sentinel, row[domain.ColumnBeds])
	assert.Equal(t, "Yes", row[domain.ColumnAccepted])
}

func TestSnapshot_Field(t *testing.T) {
	t.Parallel()

	snap := domain.Snapshot{Fields: map[string]string{domain.FieldPrice: "  $1  "}}

	assert.Equal(t, "$1", snap.Field(domain.FieldPrice))
	assert.Empty(t, snap.Field(domain.FieldBeds))
	assert.Empty(t, domain.Snapshot{}.Field(domain.FieldBeds))
}

func TestSubmitOutcome_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "accepted", domain.Accepted.String())
	assert.Equal(t, "duplicate", domain.Duplicate.String())
}
