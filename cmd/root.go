// Package cmd implements the listing-crawler command-line interface.
package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jonesrussell/listing-crawler/cmd/common"
	"github.com/jonesrussell/listing-crawler/cmd/crawl"
	"github.com/jonesrussell/listing-crawler/cmd/plan"
	"github.com/jonesrussell/listing-crawler/cmd/version"
)

// envPrefix namespaces the environment variables viper reads.
const envPrefix = "LISTING_CRAWLER"

var (
	// cfgFile holds the path to the configuration file.
	cfgFile string

	// debug enables debug logging for all commands.
	debug bool

	rootCmd = &cobra.Command{
		Use:   "listing-crawler",
		Short: "A resumable property listing crawler",
		Long: `listing-crawler walks a listing search in price phases, extracts every
listing's details and appends accepted, deduplicated records to a table.
Progress is checkpointed after every item so an interrupted run can resume.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
)

// Execute runs the root command.
func Execute() error {
	// Load .env early so environment variables are available to viper.
	_ = godotenv.Load()

	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	// Assigned here rather than in the literal to avoid an initialization
	// cycle (initConfig refers to rootCmd).
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		return initConfig()
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yml or $CONFIG_PATH)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(crawl.Command())
	rootCmd.AddCommand(plan.Command())
	rootCmd.AddCommand(version.Command())
}

// initConfig wires viper to the environment and the persistent flags.
func initConfig() error {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.BindPFlag(common.KeyConfig, rootCmd.PersistentFlags().Lookup("config")); err != nil {
		return fmt.Errorf("failed to bind config flag: %w", err)
	}
	if err := viper.BindPFlag(common.KeyDebug, rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		return fmt.Errorf("failed to bind debug flag: %w", err)
	}
	return nil
}
