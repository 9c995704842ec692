package crawl_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	cmdcrawl "github.com/jonesrussell/listing-crawler/cmd/crawl"
	"github.com/jonesrussell/listing-crawler/internal/crawl"
)

func TestRenderSummary(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	cmdcrawl.RenderSummary(&buf, &crawl.Summary{
		RunID:           "run-42",
		State:           crawl.StateDone,
		Seen:            25,
		Accepted:        12,
		Duplicates:      3,
		PhasesCompleted: 1,
		Duration:        1500 * time.Millisecond,
	})

	out := buf.String()
	assert.Contains(t, out, "run-42")
	assert.Contains(t, out, "done")
	assert.Contains(t, out, "Accepted")
	assert.Contains(t, out, "1.5s")
}
