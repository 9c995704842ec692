package crawl

import (
	"errors"
	"fmt"
	"time"

	"github.com/jonesrussell/listing-crawler/internal/domain"
	"github.com/jonesrussell/listing-crawler/internal/partition"
	"github.com/jonesrussell/listing-crawler/internal/retry"
)

// State is the orchestrator's position in the crawl state machine.
type State string

// Orchestrator states.
const (
	StateIdle              State = "idle"
	StatePartitioningRange State = "partitioning_range"
	StateListingPage       State = "listing_page"
	StateExtractingItem    State = "extracting_item"
	StatePhaseDone         State = "phase_done"
	StateDone              State = "done"
	StateCancelled         State = "cancelled"
	StateFailed            State = "failed"
)

// Terminal reports whether the state ends a run.
func (s State) Terminal() bool {
	return s == StateDone || s == StateCancelled || s == StateFailed
}

// Mode selects how phases are produced.
type Mode string

// Run modes.
const (
	// ModeManual crawls one configured range as a single phase.
	ModeManual Mode = "manual"
	// ModeAuto partitions the domain into phases as the crawl advances.
	ModeAuto Mode = "auto"
)

// ErrInvalidConfig is returned for an inconsistent run configuration.
var ErrInvalidConfig = errors.New("invalid crawl config")

// Config is the run configuration of an Orchestrator.
type Config struct {
	Mode Mode
	// Range is the single phase of a manual run.
	Range domain.Range
	// Partition bounds an auto run.
	Partition partition.Config
	// StartPage and StartItem (both 1-based) position a fresh run inside its
	// first phase. They are ignored when resuming from a checkpoint.
	StartPage int
	StartItem int
	Retry     retry.Config
}

// Validate checks the mode and its bounds.
func (c Config) Validate() error {
	switch c.Mode {
	case ModeManual:
		if !c.Range.Valid() {
			return fmt.Errorf("%w: manual range %s is empty", ErrInvalidConfig, c.Range)
		}
	case ModeAuto:
		if err := c.Partition.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidConfig, c.Mode)
	}

	if c.StartPage < 0 || c.StartItem < 0 {
		return fmt.Errorf("%w: start page and item must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Summary reports the outcome of a run. It is produced for every run,
// including cancelled and failed ones.
type Summary struct {
	RunID           string        `json:"run_id"`
	State           State         `json:"state"`
	Resumed         bool          `json:"resumed"`
	Seen            int           `json:"seen"`
	Accepted        int           `json:"accepted"`
	Duplicates      int           `json:"duplicates"`
	Skipped         int           `json:"skipped"`
	PagesSkipped    int           `json:"pages_skipped"`
	PhasesCompleted int           `json:"phases_completed"`
	Duration        time.Duration `json:"duration"`
}

// Status is a point-in-time view of a running orchestrator.
type Status struct {
	State State              `json:"state"`
	Crawl *domain.CrawlState `json:"crawl,omitempty"`
}
