// Package retry provides retry utilities with exponential backoff for transient failures.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

var (
	// ErrMaxAttemptsExceeded is returned when max retry attempts are exceeded
	ErrMaxAttemptsExceeded = errors.New("max retry attempts exceeded")
	// ErrContextCancelled is returned when the context is cancelled during retry
	ErrContextCancelled = errors.New("context cancelled during retry")
)

const (
	defaultMaxAttempts  = 3
	defaultInitialDelay = 500 * time.Millisecond
	defaultMaxDelay     = 30 * time.Second
	defaultMultiplier   = 2.0
)

// Config configures retry behavior
type Config struct {
	// MaxAttempts is the maximum number of attempts, including the first one
	MaxAttempts int `yaml:"max_attempts" env:"RETRY_MAX_ATTEMPTS"`
	// InitialDelay is the delay before the first retry
	InitialDelay time.Duration `yaml:"initial_delay" env:"RETRY_INITIAL_DELAY"`
	// MaxDelay caps the exponential backoff
	MaxDelay time.Duration `yaml:"max_delay" env:"RETRY_MAX_DELAY"`
	// Multiplier is the exponential backoff multiplier
	Multiplier float64 `yaml:"multiplier" env:"RETRY_MULTIPLIER"`
	// IsRetryable determines if an error should be retried
	IsRetryable func(error) bool `yaml:"-"`
	// OnRetry is called before each backoff sleep with the failed attempt number
	OnRetry func(attempt int, err error) `yaml:"-"`
}

// DefaultConfig returns a default retry configuration
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  defaultMaxAttempts,
		InitialDelay: defaultInitialDelay,
		MaxDelay:     defaultMaxDelay,
		Multiplier:   defaultMultiplier,
		IsRetryable:  DefaultIsRetryable,
	}
}

// WithDefaults returns a copy of c with zero values replaced by defaults.
func (c Config) WithDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = defaultInitialDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = defaultMaxDelay
	}
	if c.Multiplier <= 0 {
		c.Multiplier = defaultMultiplier
	}
	if c.IsRetryable == nil {
		c.IsRetryable = DefaultIsRetryable
	}
	return c
}

// retryablePatterns are error fragments that indicate a transient network failure.
var retryablePatterns = []string{
	"timeout",
	"deadline exceeded",
	"connection refused",
	"connection reset",
	"no such host",
	"temporary failure",
	"network is unreachable",
	"eof",
}

// DefaultIsRetryable determines if an error is retryable by default.
// Returns true for network errors and timeouts.
func DefaultIsRetryable(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	for _, pattern := range retryablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}

// Backoff returns the delay before retrying after the given failed attempt (1-based).
func (c Config) Backoff(attempt int) time.Duration {
	delay := time.Duration(float64(c.InitialDelay) * math.Pow(c.Multiplier, float64(attempt-1)))
	if delay > c.MaxDelay || delay <= 0 {
		return c.MaxDelay
	}
	return delay
}

// Retry executes a function with retry logic and exponential backoff
func Retry(ctx context.Context, config Config, fn func() error) error {
	config = config.WithDefaults()

	var lastErr error
	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %w", ErrContextCancelled, ctx.Err())
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !config.IsRetryable(err) {
			return err
		}

		// Don't sleep after the last attempt
		if attempt == config.MaxAttempts {
			break
		}

		if config.OnRetry != nil {
			config.OnRetry(attempt, err)
		}

		timer := time.NewTimer(config.Backoff(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%w: %w", ErrContextCancelled, ctx.Err())
		case <-timer.C:
		}
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrMaxAttemptsExceeded, config.MaxAttempts, lastErr)
}

// Do executes fn with retries and returns its value.
func Do[T any](ctx context.Context, config Config, fn func() (T, error)) (T, error) {
	var result T
	err := Retry(ctx, config, func() error {
		value, err := fn()
		if err != nil {
			return err
		}
		result = value
		return nil
	})
	return result, err
}
