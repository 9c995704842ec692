// Package plan implements the plan command, which previews the auto-mode
// phases of a domain without crawling any listing.
package plan

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	cmdcommon "github.com/jonesrussell/listing-crawler/cmd/common"
	"github.com/jonesrussell/listing-crawler/internal/domain"
	"github.com/jonesrussell/listing-crawler/internal/logger"
	"github.com/jonesrussell/listing-crawler/internal/partition"
	"github.com/jonesrussell/listing-crawler/internal/provider"
	"github.com/jonesrussell/listing-crawler/internal/retry"
)

// Command returns the plan command for use in the root command.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the auto-mode phase partition without crawling",
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return cmdcommon.BindFlags(cmd, cmdcommon.PartitionBindings())
		},
		RunE: run,
	}
	cmdcommon.AddPartitionFlags(cmd)
	return cmd
}

func run(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := cmdcommon.NewCommandDeps()
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	cfg := deps.Config
	if err := cfg.ValidatePartition(); err != nil {
		return err
	}

	pages, err := provider.NewHTMLProvider(cfg.Provider, deps.Logger)
	if err != nil {
		return fmt.Errorf("create provider: %w", err)
	}

	phases, err := Compute(ctx, cfg.Partition, provider.CountFunc(pages), cfg.Retry, deps.Logger)
	Render(cmd.OutOrStdout(), phases)
	return err
}

// Compute partitions the domain with a retrying count function. Phases found
// before an error are returned with it.
func Compute(
	ctx context.Context,
	cfg partition.Config,
	count partition.CountFunc,
	retryCfg retry.Config,
	log logger.Interface,
) ([]domain.Phase, error) {
	retryCfg = retryCfg.WithDefaults()
	retryCfg.IsRetryable = func(err error) bool {
		return errors.Is(err, domain.ErrNavigation)
	}

	counted := func(ctx context.Context, low, high int64) (int, error) {
		return retry.Do(ctx, retryCfg, func() (int, error) {
			return count(ctx, low, high)
		})
	}

	p, err := partition.New(cfg, counted, partition.WithLogger(log))
	if err != nil {
		return nil, err
	}
	return p.Partition(ctx)
}

// Render writes one row per phase and a footer with the total count.
func Render(w io.Writer, phases []domain.Phase) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Phase", "Low", "High", "Results", "Oversized"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})

	total := 0
	for _, phase := range phases {
		oversized := ""
		if phase.Oversized {
			oversized = "yes"
		}
		t.AppendRow(table.Row{phase.Index, phase.Range.Low, phase.Range.High, phase.ResultCount, oversized})
		total += phase.ResultCount
	}
	t.AppendFooter(table.Row{"", "", "Total", total, ""})
	t.Render()
}
