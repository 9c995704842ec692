package crawl

import (
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/jonesrussell/listing-crawler/internal/crawl"
)

// RenderSummary writes the run outcome as a two-column table.
func RenderSummary(w io.Writer, s *crawl.Summary) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("Crawl summary")
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}})

	t.AppendRows([]table.Row{
		{"Run ID", s.RunID},
		{"State", s.State},
		{"Resumed", s.Resumed},
		{"Listings seen", s.Seen},
		{"Accepted", s.Accepted},
		{"Duplicates", s.Duplicates},
		{"Skipped", s.Skipped},
		{"Pages skipped", s.PagesSkipped},
		{"Phases completed", s.PhasesCompleted},
		{"Duration", s.Duration.Round(time.Millisecond)},
	})
	t.Render()
}
