// Package crawl implements the crawl command.
package crawl

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	cmdcommon "github.com/jonesrussell/listing-crawler/cmd/common"
	"github.com/jonesrussell/listing-crawler/internal/crawl"
)

// Command returns the crawl command for use in the root command.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl listings into the configured table",
		Long: `Crawl walks the search results in one explicit run mode:

  --mode manual --min N --max N
      crawl a single price range as one phase
  --mode auto --domain-min N --domain-max N --target-min N --target-max N
      partition the domain into phases whose result counts fit the target window

Progress is checkpointed after every listing. An interrupted run resumes from
the checkpoint named by --resume.`,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return cmdcommon.BindFlags(cmd, bindings())
		},
		RunE: run,
	}

	fs := cmd.Flags()
	fs.String("mode", "", "run mode: manual or auto")
	fs.Int64("min", 0, "lower bound of a manual range")
	fs.Int64("max", 0, "upper bound of a manual range")
	fs.Int("start-page", 0, "1-based page to start a fresh run on")
	fs.Int("start-item", 0, "1-based item to start a fresh run on")
	fs.String("resume", "", "checkpoint file to resume from and save to")
	fs.String("output", "", "table file to append records to")
	fs.String("status-addr", "", "address to serve /health, /status and /metrics on")
	cmdcommon.AddPartitionFlags(cmd)

	return cmd
}

func bindings() map[string]string {
	b := map[string]string{
		"mode":        cmdcommon.KeyRunMode,
		"min":         cmdcommon.KeyRunMin,
		"max":         cmdcommon.KeyRunMax,
		"start-page":  cmdcommon.KeyStartPage,
		"start-item":  cmdcommon.KeyStartItem,
		"resume":      cmdcommon.KeyCheckpointPath,
		"output":      cmdcommon.KeyStorePath,
		"status-addr": cmdcommon.KeyServerAddress,
	}
	for flag, key := range cmdcommon.PartitionBindings() {
		b[flag] = key
	}
	return b
}

func run(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := cmdcommon.NewCommandDeps()
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	if err := deps.Config.Validate(); err != nil {
		return err
	}

	rt, err := cmdcommon.NewRuntime(ctx, deps)
	if err != nil {
		return fmt.Errorf("failed to construct crawler: %w", err)
	}
	defer func() {
		if closeErr := rt.Close(); closeErr != nil {
			deps.Logger.Warn("Failed to release resources", "error", closeErr)
		}
	}()

	summary, err := rt.Run(ctx)
	if summary != nil {
		RenderSummary(cmd.OutOrStdout(), summary)
	}

	if ctx.Err() != nil && summary != nil && summary.State == crawl.StateCancelled {
		deps.Logger.Info("Crawl interrupted, progress saved", "checkpoint", deps.Config.Checkpoint.Path)
		return nil
	}
	return err
}
