package config

import (
	"errors"
	"math"

	"github.com/jonesrussell/listing-crawler/internal/crawl"
	"github.com/jonesrussell/listing-crawler/internal/store"
)

// Validate returns a *ValidationError for the first invalid field.
func (c *Config) Validate() error {
	checks := []func() error{
		c.validateLogger,
		c.validateRun,
		c.validateProvider,
		c.validateAcceptance,
		c.validateStore,
		c.validateCheckpoint,
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

// ValidatePartition checks only the partition bounds. It serves commands that
// plan phases without crawling.
func (c *Config) ValidatePartition() error {
	p := c.Partition
	switch {
	case p.DomainMin >= p.DomainMax:
		return &ValidationError{Field: "partition.domain_min", Value: p.DomainMin, Reason: "must be less than domain_max"}
	case p.TargetMin <= 0:
		return &ValidationError{Field: "partition.target_min", Value: p.TargetMin, Reason: "must be positive"}
	case p.TargetMin > p.TargetMax:
		return &ValidationError{Field: "partition.target_max", Value: p.TargetMax, Reason: "must not be less than target_min"}
	case p.Step <= 0:
		return &ValidationError{Field: "partition.step", Value: p.Step, Reason: "must be positive"}
	case p.MaxIterations <= 0:
		return &ValidationError{Field: "partition.max_iterations", Value: p.MaxIterations, Reason: "must be positive"}
	case p.ExpansionStep < 0:
		return &ValidationError{Field: "partition.expansion_step", Value: p.ExpansionStep, Reason: "must not be negative"}
	case p.DomainMax > math.MaxInt64-p.Step:
		return &ValidationError{Field: "partition.domain_max", Value: p.DomainMax, Reason: "must leave room for one step below the int64 limit"}
	}
	return nil
}

func (c *Config) validateLogger() error {
	if err := c.Logger.Validate(); err != nil {
		return &ValidationError{Field: "logger", Value: c.Logger.Level, Reason: err.Error()}
	}
	return nil
}

func (c *Config) validateRun() error {
	switch crawl.Mode(c.Run.Mode) {
	case crawl.ModeManual:
		if c.Run.Min > c.Run.Max {
			return &ValidationError{Field: "run.min", Value: c.Run.Min, Reason: "must not exceed run.max"}
		}
	case crawl.ModeAuto:
		if err := c.ValidatePartition(); err != nil {
			return err
		}
	default:
		return &ValidationError{Field: "run.mode", Value: c.Run.Mode, Reason: "must be manual or auto"}
	}

	if c.Run.StartPage < 0 {
		return &ValidationError{Field: "run.start_page", Value: c.Run.StartPage, Reason: "must not be negative"}
	}
	if c.Run.StartItem < 0 {
		return &ValidationError{Field: "run.start_item", Value: c.Run.StartItem, Reason: "must not be negative"}
	}
	return nil
}

func (c *Config) validateProvider() error {
	if err := c.Provider.Validate(); err != nil {
		return &ValidationError{Field: "provider.search_url", Value: c.Provider.SearchURL, Reason: err.Error()}
	}
	if c.Provider.RequestsPerSecond <= 0 {
		return &ValidationError{Field: "provider.requests_per_second", Value: c.Provider.RequestsPerSecond, Reason: "must be positive"}
	}
	return nil
}

func (c *Config) validateAcceptance() error {
	for _, kw := range c.Acceptance.Keywords {
		if kw != "" {
			return nil
		}
	}
	return &ValidationError{Field: "acceptance.keywords", Value: c.Acceptance.Keywords, Reason: "at least one keyword is required"}
}

func (c *Config) validateStore() error {
	switch c.Store.ResolvedFormat() {
	case store.FormatXLSX, store.FormatCSV:
		if c.Store.Path == "" {
			return &ValidationError{Field: "store.path", Value: c.Store.Path, Reason: "is required"}
		}
	case store.FormatPostgres:
		if c.Store.DSN == "" {
			return &ValidationError{Field: "store.dsn", Value: "", Reason: "is required for postgres"}
		}
	default:
		return &ValidationError{Field: "store.format", Value: c.Store.ResolvedFormat(), Reason: "must be xlsx, csv or postgres"}
	}

	if _, err := store.NewProjection(c.Store.KeyColumn, c.Store.DropColumns); err != nil {
		reason := err.Error()
		if errors.Is(err, store.ErrInvalidKeyColumn) {
			reason = "must be full_address or url"
		}
		return &ValidationError{Field: "store.key_column", Value: c.Store.KeyColumn, Reason: reason}
	}
	return nil
}

func (c *Config) validateCheckpoint() error {
	switch c.Checkpoint.Backend {
	case CheckpointFile:
		if c.Checkpoint.Path == "" {
			return &ValidationError{Field: "checkpoint.path", Value: "", Reason: "is required"}
		}
	case CheckpointRedis:
		if c.Checkpoint.Redis.Addr == "" {
			return &ValidationError{Field: "checkpoint.redis.addr", Value: "", Reason: "is required"}
		}
	default:
		return &ValidationError{Field: "checkpoint.backend", Value: c.Checkpoint.Backend, Reason: "must be file or redis"}
	}
	return nil
}
