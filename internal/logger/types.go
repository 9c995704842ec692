package logger

import (
	"strings"

	"go.uber.org/zap/zapcore"
)

// Level represents the logging level.
type Level string

const (
	// DebugLevel logs debug messages.
	DebugLevel Level = "debug"
	// InfoLevel logs info messages.
	InfoLevel Level = "info"
	// WarnLevel logs warning messages.
	WarnLevel Level = "warn"
	// ErrorLevel logs error messages.
	ErrorLevel Level = "error"
	// FatalLevel logs fatal messages and exits.
	FatalLevel Level = "fatal"
)

// zapLevel maps a Level to zap. Unknown levels report false.
func (l Level) zapLevel() (zapcore.Level, bool) {
	switch Level(strings.ToLower(string(l))) {
	case DebugLevel:
		return zapcore.DebugLevel, true
	case InfoLevel:
		return zapcore.InfoLevel, true
	case WarnLevel:
		return zapcore.WarnLevel, true
	case ErrorLevel:
		return zapcore.ErrorLevel, true
	case FatalLevel:
		return zapcore.FatalLevel, true
	}
	return zapcore.InfoLevel, false
}

// Config represents the logger configuration.
type Config struct {
	// Level is the minimum logging level.
	Level Level `yaml:"level" env:"LOG_LEVEL"`
	// Development enables development mode.
	Development bool `yaml:"development" env:"LOG_DEVELOPMENT"`
	// Encoding sets the logger's encoding (json or console).
	Encoding string `yaml:"encoding" env:"LOG_FORMAT"`
	// OutputPaths lists "stdout", "stderr" or file paths. Files are rotated.
	OutputPaths []string `yaml:"output_paths" env:"LOG_OUTPUT_PATHS"`
	// MaxSize is the maximum size of a log file in megabytes before rotation.
	MaxSize int `yaml:"max_size" env:"LOG_MAX_SIZE"`
	// MaxBackups is the maximum number of rotated files to keep.
	MaxBackups int `yaml:"max_backups" env:"LOG_MAX_BACKUPS"`
	// MaxAge is the maximum number of days to keep rotated files.
	MaxAge int `yaml:"max_age" env:"LOG_MAX_AGE"`
	// Compress gzips rotated files.
	Compress bool `yaml:"compress" env:"LOG_COMPRESS"`
}

// SetDefaults fills zero values with defaults.
func (c *Config) SetDefaults() {
	if c.Level == "" {
		c.Level = DefaultLevel
	}
	if c.Encoding == "" {
		c.Encoding = DefaultEncoding
	}
	if len(c.OutputPaths) == 0 {
		c.OutputPaths = append([]string(nil), DefaultOutputPaths...)
	}
	if c.MaxSize == 0 {
		c.MaxSize = DefaultMaxSize
	}
	if c.MaxBackups == 0 {
		c.MaxBackups = DefaultMaxBackups
	}
	if c.MaxAge == 0 {
		c.MaxAge = DefaultMaxAge
	}
}

// Validate checks the level and encoding.
func (c *Config) Validate() error {
	if _, ok := c.Level.zapLevel(); !ok {
		return ErrInvalidLevel
	}
	if c.Encoding != "json" && c.Encoding != "console" {
		return ErrInvalidEncoding
	}
	for _, p := range c.OutputPaths {
		if p == "" {
			return ErrInvalidOutputPath
		}
	}
	return nil
}
