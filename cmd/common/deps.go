// Package common provides shared utilities for command implementations.
package common

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/jonesrussell/listing-crawler/internal/config"
	"github.com/jonesrussell/listing-crawler/internal/logger"
)

const defaultConfigPath = "config.yml"

// CommandDeps holds the dependencies every command needs.
type CommandDeps struct {
	Logger logger.Interface
	Config *config.Config
}

// Validate ensures all required dependencies are present.
func (d CommandDeps) Validate() error {
	if d.Logger == nil {
		return ErrLoggerRequired
	}
	if d.Config == nil {
		return ErrConfigRequired
	}
	return nil
}

// NewCommandDeps loads the configuration, applies flag and LISTING_CRAWLER_*
// overrides and creates the logger. The configuration is not validated.
func NewCommandDeps() (CommandDeps, error) {
	path := viper.GetString(KeyConfig)
	if path == "" {
		path = config.GetConfigPath(defaultConfigPath)
	}

	cfg, err := config.Load(path)
	if err != nil {
		return CommandDeps{}, fmt.Errorf("load config: %w", err)
	}
	ApplyOverrides(cfg)

	log, err := logger.New(&cfg.Logger)
	if err != nil {
		return CommandDeps{}, fmt.Errorf("create logger: %w", err)
	}

	deps := CommandDeps{
		Logger: log.With("app", cfg.App.Name),
		Config: cfg,
	}
	if validateErr := deps.Validate(); validateErr != nil {
		return CommandDeps{}, fmt.Errorf("validate deps: %w", validateErr)
	}
	return deps, nil
}
