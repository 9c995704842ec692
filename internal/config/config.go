// Package config loads the crawler configuration from a YAML file, .env files
// and environment variables, in increasing order of precedence.
//
// Environment variables are bound through `env` struct tags. Files are loaded
// in the following priority order (higher priority overrides lower):
//
//  1. Environment variable ENV_FILE (if set, loads only this file)
//  2. .env.local (if exists, overrides .env)
//  3. .env
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonesrussell/listing-crawler/internal/crawl"
	"github.com/jonesrussell/listing-crawler/internal/domain"
	"github.com/jonesrussell/listing-crawler/internal/logger"
	"github.com/jonesrussell/listing-crawler/internal/partition"
	"github.com/jonesrussell/listing-crawler/internal/provider"
	"github.com/jonesrussell/listing-crawler/internal/retry"
	"github.com/jonesrussell/listing-crawler/internal/server"
	"github.com/jonesrussell/listing-crawler/internal/store"
)

// Checkpoint backends.
const (
	CheckpointFile  = "file"
	CheckpointRedis = "redis"
)

// Defaults.
const (
	defaultAppName             = "listing-crawler"
	defaultEnvironment         = "development"
	defaultStorePath           = "listings.xlsx"
	defaultStoreTable          = "listings"
	defaultCheckpointPath      = "checkpoint.json"
	defaultCheckpointName      = "default"
	defaultRedisAddr           = "localhost:6379"
	defaultPartitionStep       = 1000
	defaultPartitionIterations = 20
	defaultTargetMin           = 250
	defaultTargetMax           = 350
	defaultAcceptAttribute     = domain.AttributeHeating
	defaultAcceptKeyword       = "oil"
)

// Config is the complete crawler configuration.
type Config struct {
	App        AppConfig        `yaml:"app"`
	Logger     logger.Config    `yaml:"logger"`
	Run        RunConfig        `yaml:"run"`
	Partition  partition.Config `yaml:"partition"`
	Provider   provider.Config  `yaml:"provider"`
	Retry      retry.Config     `yaml:"retry"`
	Acceptance AcceptanceConfig `yaml:"acceptance"`
	Store      StoreConfig      `yaml:"store"`
	Checkpoint CheckpointConfig `yaml:"checkpoint"`
	Server     server.Config    `yaml:"server"`
}

// AppConfig identifies the deployment.
type AppConfig struct {
	Name        string `yaml:"name" env:"APP_NAME"`
	Environment string `yaml:"environment" env:"APP_ENV"`
	Debug       bool   `yaml:"debug" env:"APP_DEBUG"`
}

// RunConfig selects the run mode and where a fresh run starts.
type RunConfig struct {
	Mode string `yaml:"mode" env:"RUN_MODE"`
	// Min and Max bound the single phase of a manual run.
	Min int64 `yaml:"min" env:"RUN_MIN"`
	Max int64 `yaml:"max" env:"RUN_MAX"`
	// StartPage and StartItem are 1-based and ignored when a checkpoint exists.
	StartPage int `yaml:"start_page" env:"RUN_START_PAGE"`
	StartItem int `yaml:"start_item" env:"RUN_START_ITEM"`
}

// AcceptanceConfig configures the acceptance predicate.
type AcceptanceConfig struct {
	Attribute string   `yaml:"attribute" env:"ACCEPT_ATTRIBUTE"`
	Keywords  []string `yaml:"keywords" env:"ACCEPT_KEYWORDS"`
}

// StoreConfig configures the deduplicating store.
type StoreConfig struct {
	// Format is xlsx, csv or postgres. Empty infers it from Path.
	Format      string   `yaml:"format" env:"STORE_FORMAT"`
	Path        string   `yaml:"path" env:"STORE_PATH"`
	KeyColumn   string   `yaml:"key_column" env:"STORE_KEY_COLUMN"`
	DropColumns []string `yaml:"drop_columns" env:"STORE_DROP_COLUMNS"`
	DSN         string   `yaml:"dsn" env:"STORE_DSN"`
	Table       string   `yaml:"table" env:"STORE_TABLE"`
}

// ResolvedFormat returns Format, or the format implied by the Path extension.
func (c StoreConfig) ResolvedFormat() string {
	if c.Format != "" {
		return strings.ToLower(c.Format)
	}
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(c.Path)), ".")
}

// CheckpointConfig configures where crawl progress is persisted.
type CheckpointConfig struct {
	Backend string      `yaml:"backend" env:"CHECKPOINT_BACKEND"`
	Path    string      `yaml:"path" env:"CHECKPOINT_PATH"`
	Name    string      `yaml:"name" env:"CHECKPOINT_NAME"`
	Redis   RedisConfig `yaml:"redis"`
}

// RedisConfig holds the Redis connection settings of the checkpoint store.
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB"`
}

// Load reads path (a missing file yields defaults), applies environment
// overrides and fills defaults. It does not validate.
func Load(path string) (*Config, error) {
	if err := loadEnvFiles(); err != nil {
		return nil, fmt.Errorf("load environment files: %w", err)
	}

	cfg := &Config{}
	if err := readYAML(path, cfg); err != nil {
		return nil, err
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("apply environment: %w", err)
	}
	cfg.SetDefaults()
	return cfg, nil
}

// SetDefaults fills unset values.
func (c *Config) SetDefaults() {
	if c.App.Name == "" {
		c.App.Name = defaultAppName
	}
	if c.App.Environment == "" {
		c.App.Environment = defaultEnvironment
	}
	if c.App.Debug && c.Logger.Level == "" {
		c.Logger.Level = logger.DebugLevel
	}
	c.Logger.SetDefaults()

	c.Run.Mode = strings.ToLower(strings.TrimSpace(c.Run.Mode))

	if c.Partition.Step == 0 {
		c.Partition.Step = defaultPartitionStep
	}
	if c.Partition.MaxIterations == 0 {
		c.Partition.MaxIterations = defaultPartitionIterations
	}
	if c.Partition.TargetMin == 0 && c.Partition.TargetMax == 0 {
		c.Partition.TargetMin = defaultTargetMin
		c.Partition.TargetMax = defaultTargetMax
	}

	c.Provider.SetDefaults()

	if c.Acceptance.Attribute == "" {
		c.Acceptance.Attribute = defaultAcceptAttribute
	}
	if len(c.Acceptance.Keywords) == 0 {
		c.Acceptance.Keywords = []string{defaultAcceptKeyword}
	}

	if c.Store.Path == "" {
		c.Store.Path = defaultStorePath
	}
	if c.Store.KeyColumn == "" {
		c.Store.KeyColumn = store.KeyFullAddress
	}
	if c.Store.DropColumns == nil {
		c.Store.DropColumns = append([]string(nil), store.DefaultDropColumns...)
	}
	if c.Store.Table == "" {
		c.Store.Table = defaultStoreTable
	}

	if c.Checkpoint.Backend == "" {
		c.Checkpoint.Backend = CheckpointFile
	}
	if c.Checkpoint.Path == "" {
		c.Checkpoint.Path = defaultCheckpointPath
	}
	if c.Checkpoint.Name == "" {
		c.Checkpoint.Name = defaultCheckpointName
	}
	if c.Checkpoint.Redis.Addr == "" {
		c.Checkpoint.Redis.Addr = defaultRedisAddr
	}

	c.Server.SetDefaults()
}

// CrawlConfig returns the orchestrator configuration.
func (c *Config) CrawlConfig() crawl.Config {
	return crawl.Config{
		Mode:      crawl.Mode(c.Run.Mode),
		Range:     domain.Range{Low: c.Run.Min, High: c.Run.Max},
		Partition: c.Partition,
		StartPage: c.Run.StartPage,
		StartItem: c.Run.StartItem,
		Retry:     c.Retry,
	}
}

// GetConfigPath returns the config path from CONFIG_PATH or the default.
func GetConfigPath(defaultPath string) string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}
	return defaultPath
}
