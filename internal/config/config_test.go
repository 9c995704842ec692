package config_test

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/listing-crawler/internal/config"
	"github.com/jonesrussell/listing-crawler/internal/crawl"
	"github.com/jonesrussell/listing-crawler/internal/domain"
	"github.com/jonesrussell/listing-crawler/internal/logger"
	"github.com/jonesrussell/listing-crawler/internal/store"
)

const sampleYAML = `
app:
  name: test-crawler
run:
  mode: Manual
  min: 100000
  max: 250000
  start_page: 3
  start_item: 5
provider:
  search_url: https://example.com/city/1/filter/min-price={min},max-price={max}
  requests_per_second: 2
store:
  path: out/listings.csv
  key_column: url
checkpoint:
  path: out/state.json
server:
  address: ":9090"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func validConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := &config.Config{
		Run: config.RunConfig{Mode: "manual", Min: 1, Max: 10},
	}
	cfg.Provider.SearchURL = "https://example.com/search/{min}-{max}"
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yml"))
	require.NoError(t, err)

	assert.Equal(t, "listing-crawler", cfg.App.Name)
	assert.Equal(t, logger.InfoLevel, cfg.Logger.Level)
	assert.Equal(t, store.KeyFullAddress, cfg.Store.KeyColumn)
	assert.Equal(t, store.DefaultDropColumns, cfg.Store.DropColumns)
	assert.Equal(t, config.CheckpointFile, cfg.Checkpoint.Backend)
	assert.Equal(t, []string{"oil"}, cfg.Acceptance.Keywords)
	assert.Equal(t, domain.AttributeHeating, cfg.Acceptance.Attribute)
	assert.Positive(t, cfg.Partition.Step)
	assert.Positive(t, cfg.Partition.MaxIterations)
	assert.False(t, cfg.Server.Enabled())
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	t.Setenv("RUN_MAX", "300000")
	t.Setenv("PROVIDER_REQUEST_TIMEOUT", "5s")
	t.Setenv("ACCEPT_KEYWORDS", "oil, propane")

	cfg, err := config.Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "test-crawler", cfg.App.Name)
	assert.Equal(t, "manual", cfg.Run.Mode)
	assert.Equal(t, int64(100000), cfg.Run.Min)
	assert.Equal(t, int64(300000), cfg.Run.Max)
	assert.Equal(t, 5*time.Second, cfg.Provider.RequestTimeout)
	assert.InDelta(t, 2.0, cfg.Provider.RequestsPerSecond, 0.001)
	assert.Equal(t, []string{"oil", "propane"}, cfg.Acceptance.Keywords)
	assert.Equal(t, store.FormatCSV, cfg.Store.ResolvedFormat())
	assert.True(t, cfg.Server.Enabled())

	crawlCfg := cfg.CrawlConfig()
	assert.Equal(t, crawl.ModeManual, crawlCfg.Mode)
	assert.Equal(t, domain.Range{Low: 100000, High: 300000}, crawlCfg.Range)
	assert.Equal(t, 3, crawlCfg.StartPage)
	assert.Equal(t, 5, crawlCfg.StartItem)
	require.NoError(t, crawlCfg.Validate())
}

func TestLoad_InvalidEnvValue(t *testing.T) {
	t.Setenv("RUN_START_PAGE", "three")

	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yml"))

	var parseErr *config.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "RUN_START_PAGE", parseErr.Field)
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := config.Load(writeConfig(t, "run: [unclosed"))

	var loadErr *config.LoadError
	require.ErrorAs(t, err, &loadErr)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*config.Config)
		field  string
	}{
		{name: "valid manual", mutate: func(*config.Config) {}},
		{
			name:   "unknown mode",
			mutate: func(c *config.Config) { c.Run.Mode = "sideways" },
			field:  "run.mode",
		},
		{
			name:   "manual min above max",
			mutate: func(c *config.Config) { c.Run.Min = 11 },
			field:  "run.min",
		},
		{
			name: "auto valid",
			mutate: func(c *config.Config) {
				c.Run.Mode = "auto"
				c.Partition.DomainMin = 0
				c.Partition.DomainMax = 1_000_000
			},
		},
		{
			name: "auto empty domain",
			mutate: func(c *config.Config) {
				c.Run.Mode = "auto"
				c.Partition.DomainMin = 500
				c.Partition.DomainMax = 500
			},
			field: "partition.domain_min",
		},
		{
			name: "auto inverted target",
			mutate: func(c *config.Config) {
				c.Run.Mode = "auto"
				c.Partition.DomainMax = 1000
				c.Partition.TargetMin = 400
				c.Partition.TargetMax = 300
			},
			field: "partition.target_max",
		},
		{
			name: "auto negative step",
			mutate: func(c *config.Config) {
				c.Run.Mode = "auto"
				c.Partition.DomainMax = 1000
				c.Partition.Step = -1
			},
			field: "partition.step",
		},
		{
			name: "auto domain max at int64 limit",
			mutate: func(c *config.Config) {
				c.Run.Mode = "auto"
				c.Partition.DomainMax = math.MaxInt64
			},
			field: "partition.domain_max",
		},
		{
			name: "auto domain max one step below int64 limit",
			mutate: func(c *config.Config) {
				c.Run.Mode = "auto"
				c.Partition.DomainMax = math.MaxInt64 - c.Partition.Step
			},
		},
		{
			name:   "negative start item",
			mutate: func(c *config.Config) { c.Run.StartItem = -1 },
			field:  "run.start_item",
		},
		{
			name:   "missing search url",
			mutate: func(c *config.Config) { c.Provider.SearchURL = "" },
			field:  "provider.search_url",
		},
		{
			name:   "unknown store format",
			mutate: func(c *config.Config) { c.Store.Format = "parquet" },
			field:  "store.format",
		},
		{
			name:   "postgres without dsn",
			mutate: func(c *config.Config) { c.Store.Format = store.FormatPostgres },
			field:  "store.dsn",
		},
		{
			name:   "bad key column",
			mutate: func(c *config.Config) { c.Store.KeyColumn = "price" },
			field:  "store.key_column",
		},
		{
			name:   "unknown checkpoint backend",
			mutate: func(c *config.Config) { c.Checkpoint.Backend = "s3" },
			field:  "checkpoint.backend",
		},
		{
			name:   "no keywords",
			mutate: func(c *config.Config) { c.Acceptance.Keywords = []string{""} },
			field:  "acceptance.keywords",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig(t)
			tt.mutate(cfg)
			err := cfg.Validate()

			if tt.field == "" {
				require.NoError(t, err)
				return
			}

			var verr *config.ValidationError
			require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestStoreConfig_ResolvedFormat(t *testing.T) {
	t.Parallel()

	assert.Equal(t, store.FormatXLSX, config.StoreConfig{Path: "a/B.XLSX"}.ResolvedFormat())
	assert.Equal(t, store.FormatPostgres, config.StoreConfig{Format: "Postgres", Path: "x.csv"}.ResolvedFormat())
	assert.Empty(t, config.StoreConfig{Path: "noext"}.ResolvedFormat())
}
