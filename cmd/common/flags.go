package common

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jonesrussell/listing-crawler/internal/config"
	"github.com/jonesrussell/listing-crawler/internal/logger"
)

// Viper keys. With the LISTING_CRAWLER prefix, run.mode is read from
// LISTING_CRAWLER_RUN_MODE.
const (
	KeyConfig         = "config"
	KeyDebug          = "app.debug"
	KeyRunMode        = "run.mode"
	KeyRunMin         = "run.min"
	KeyRunMax         = "run.max"
	KeyStartPage      = "run.start_page"
	KeyStartItem      = "run.start_item"
	KeyDomainMin      = "partition.domain_min"
	KeyDomainMax      = "partition.domain_max"
	KeyTargetMin      = "partition.target_min"
	KeyTargetMax      = "partition.target_max"
	KeySearchURL      = "provider.search_url"
	KeyStorePath      = "store.path"
	KeyStoreFormat    = "store.format"
	KeyCheckpointPath = "checkpoint.path"
	KeyServerAddress  = "server.address"
)

// AddPartitionFlags registers the auto-mode bounds.
func AddPartitionFlags(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.Int64("domain-min", 0, "lower bound of the partitioned domain")
	fs.Int64("domain-max", 0, "upper bound of the partitioned domain")
	fs.Int("target-min", 0, "minimum results per phase")
	fs.Int("target-max", 0, "maximum results per phase")
	fs.String("search-url", "", "search URL template with {min} and {max} placeholders")
}

// BindFlags binds each named flag of cmd to its viper key. Call it from the
// running command only, since the last binding of a key wins.
func BindFlags(cmd *cobra.Command, bindings map[string]string) error {
	for flag, key := range bindings {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return fmt.Errorf("failed to bind %s flag: %w", flag, err)
		}
	}
	return nil
}

// PartitionBindings maps the flags of AddPartitionFlags to their keys.
func PartitionBindings() map[string]string {
	return map[string]string{
		"domain-min": KeyDomainMin,
		"domain-max": KeyDomainMax,
		"target-min": KeyTargetMin,
		"target-max": KeyTargetMax,
		"search-url": KeySearchURL,
	}
}

// ApplyOverrides copies every key set through a flag or a LISTING_CRAWLER_*
// variable onto cfg.
func ApplyOverrides(cfg *config.Config) {
	overrideString(KeyRunMode, &cfg.Run.Mode)
	cfg.Run.Mode = strings.ToLower(strings.TrimSpace(cfg.Run.Mode))
	overrideInt64(KeyRunMin, &cfg.Run.Min)
	overrideInt64(KeyRunMax, &cfg.Run.Max)
	overrideInt(KeyStartPage, &cfg.Run.StartPage)
	overrideInt(KeyStartItem, &cfg.Run.StartItem)
	overrideInt64(KeyDomainMin, &cfg.Partition.DomainMin)
	overrideInt64(KeyDomainMax, &cfg.Partition.DomainMax)
	overrideInt(KeyTargetMin, &cfg.Partition.TargetMin)
	overrideInt(KeyTargetMax, &cfg.Partition.TargetMax)
	overrideString(KeySearchURL, &cfg.Provider.SearchURL)
	overrideString(KeyStorePath, &cfg.Store.Path)
	overrideString(KeyStoreFormat, &cfg.Store.Format)
	overrideString(KeyCheckpointPath, &cfg.Checkpoint.Path)
	overrideString(KeyServerAddress, &cfg.Server.Address)

	if viper.GetBool(KeyDebug) {
		cfg.App.Debug = true
		cfg.Logger.Level = logger.DebugLevel
	}
}

func overrideString(key string, dst *string) {
	if viper.IsSet(key) {
		*dst = viper.GetString(key)
	}
}

func overrideInt64(key string, dst *int64) {
	if viper.IsSet(key) {
		*dst = viper.GetInt64(key)
	}
}

func overrideInt(key string, dst *int) {
	if viper.IsSet(key) {
		*dst = viper.GetInt(key)
	}
}
