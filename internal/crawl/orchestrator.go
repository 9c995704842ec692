// Package crawl drives a resumable crawl: it walks range phases, result pages
// and listings in order, submits accepted records and checkpoints its
// position after every item.
package crawl

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonesrussell/listing-crawler/internal/checkpoint"
	"github.com/jonesrussell/listing-crawler/internal/domain"
	"github.com/jonesrussell/listing-crawler/internal/logger"
	"github.com/jonesrussell/listing-crawler/internal/metrics"
	"github.com/jonesrussell/listing-crawler/internal/partition"
	"github.com/jonesrussell/listing-crawler/internal/provider"
	"github.com/jonesrussell/listing-crawler/internal/retry"
	"github.com/jonesrussell/listing-crawler/internal/store"
)

// Extractor turns a listing into a record. Only navigation failures are returned.
type Extractor interface {
	Extract(ctx context.Context, listing domain.Listing) (*domain.Record, error)
}

// Orchestrator runs one crawl. It is not safe to call Run concurrently; Status
// may be called from any goroutine.
type Orchestrator struct {
	cfg         Config
	provider    provider.Provider
	extractor   Extractor
	store       store.Submitter
	checkpoints checkpoint.Store
	partitioner *partition.Partitioner
	metrics     *metrics.Metrics
	logger      logger.Interface
	now         func() time.Time
	newRunID    func() string

	mu      sync.RWMutex
	state   State
	crawl   *domain.CrawlState
	resumed bool
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(log logger.Interface) Option {
	return func(o *Orchestrator) {
		o.logger = log
	}
}

// WithMetrics mirrors progress into Prometheus collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// WithRunIDGenerator overrides how fresh runs are identified.
func WithRunIDGenerator(fn func() string) Option {
	return func(o *Orchestrator) {
		o.newRunID = fn
	}
}

// New creates an Orchestrator.
func New(
	cfg Config,
	p provider.Provider,
	extractor Extractor,
	submitter store.Submitter,
	checkpoints checkpoint.Store,
	opts ...Option,
) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &Orchestrator{
		cfg:         cfg,
		provider:    p,
		extractor:   extractor,
		store:       submitter,
		checkpoints: checkpoints,
		logger:      logger.NewNoOp(),
		now:         time.Now,
		newRunID:    uuid.NewString,
		state:       StateIdle,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.WithComponent("orchestrator")

	o.cfg.Retry = o.cfg.Retry.WithDefaults()
	o.cfg.Retry.IsRetryable = isNavigationError
	o.cfg.Retry.OnRetry = func(attempt int, err error) {
		o.metrics.RecordRetry()
		o.logger.Debug("Retrying navigation", "attempt", attempt, "error", err)
	}

	if cfg.Mode == ModeAuto {
		partitioner, err := partition.New(cfg.Partition, o.countResults,
			partition.WithLogger(o.logger),
			partition.WithOversizedHandler(func(domain.Phase) {
				o.metrics.RecordOversized()
			}),
		)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		o.partitioner = partitioner
	}

	return o, nil
}

// Status returns the current state and a copy of the crawl progress.
func (o *Orchestrator) Status() Status {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return Status{State: o.state, Crawl: o.crawl.Clone()}
}

// State returns the current state.
func (o *Orchestrator) State() State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

// Run crawls until every phase is done, the context is cancelled or a fatal
// error occurs. The summary is returned in all cases. A cancelled run returns
// the context error and leaves its checkpoint in place.
func (o *Orchestrator) Run(ctx context.Context) (*Summary, error) {
	started := o.now()

	if err := o.restore(ctx); err != nil {
		o.setState(StateFailed)
		return o.summary(started), err
	}

	log := o.logger.WithRunID(o.Status().Crawl.RunID)
	log.Info("Crawl started", "mode", string(o.cfg.Mode), "resumed", o.resumed)

	err := o.run(ctx)
	cancelled := err != nil && ctx.Err() != nil && isCancellation(err)

	switch {
	case err == nil:
		o.setState(StateDone)
		if clearErr := o.checkpoints.Clear(context.WithoutCancel(ctx)); clearErr != nil {
			log.Warn("Failed to clear checkpoint", "error", clearErr)
		}
	case cancelled:
		o.setState(StateCancelled)
		if saveErr := o.save(ctx); saveErr != nil {
			log.Error("Failed to save checkpoint on cancellation", "error", saveErr)
		}
	default:
		o.setState(StateFailed)
		if saveErr := o.save(ctx); saveErr != nil {
			log.Error("Failed to save final checkpoint", "error", saveErr)
		}
	}

	summary := o.summary(started)
	fields := []any{
		"state", string(summary.State),
		"seen", summary.Seen,
		"accepted", summary.Accepted,
		"duplicates", summary.Duplicates,
		"skipped", summary.Skipped,
		"pages_skipped", summary.PagesSkipped,
		"phases_completed", summary.PhasesCompleted,
	}
	if err != nil && !cancelled {
		log.WithDuration(summary.Duration).WithError(err).Error("Crawl failed", fields...)
	} else {
		log.WithDuration(summary.Duration).Info("Crawl finished", fields...)
	}

	return summary, err
}

// restore loads the checkpoint or starts a fresh state.
func (o *Orchestrator) restore(ctx context.Context) error {
	loaded, err := o.checkpoints.Load(ctx)
	switch {
	case err == nil:
		if loaded.RunID == "" {
			loaded.RunID = o.newRunID()
		}
		o.mu.Lock()
		o.crawl = loaded
		o.resumed = true
		o.mu.Unlock()
		o.logger.Info("Resuming from checkpoint",
			"phase", loaded.CurrentPhaseIndex,
			"page", loaded.CurrentPageIndex,
			"offset", loaded.ItemOffsetWithinPage,
			"completed_phases", len(loaded.CompletedPhases),
		)
		return nil
	case errors.Is(err, checkpoint.ErrNotFound):
		startOffset := 0
		if o.cfg.StartItem > 0 {
			startOffset = o.cfg.StartItem - 1
		}
		o.mu.Lock()
		o.crawl = domain.NewCrawlState(o.newRunID(), o.cfg.StartPage, startOffset)
		o.resumed = false
		o.mu.Unlock()
		return nil
	default:
		o.mu.Lock()
		o.crawl = domain.NewCrawlState("", domain.FirstPage, 0)
		o.mu.Unlock()
		return fmt.Errorf("load checkpoint: %w", err)
	}
}

// run is the phase loop.
func (o *Orchestrator) run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		phase, ok, err := o.nextPhase(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		if err := o.crawlPhase(ctx, phase); err != nil {
			return err
		}

		o.setState(StatePhaseDone)
		o.update(func(st *domain.CrawlState) {
			st.CompletePhase(phase)
		})
		o.metrics.RecordPhaseCompleted()
		if err := o.save(ctx); err != nil {
			return err
		}
		o.logger.Info("Phase completed", "phase", phase.Index, "range", phase.Range.String())
	}
}

// nextPhase returns the in-flight phase, or computes and freezes the next one.
func (o *Orchestrator) nextPhase(ctx context.Context) (domain.Phase, bool, error) {
	o.mu.RLock()
	current := o.crawl.CurrentPhase
	completed := len(o.crawl.CompletedPhases)
	last, hasLast := o.crawl.LastCompleted()
	o.mu.RUnlock()

	if current != nil {
		return *current, true, nil
	}

	o.setState(StatePartitioningRange)

	var (
		phase domain.Phase
		ok    bool
		err   error
	)
	switch o.cfg.Mode {
	case ModeManual:
		if completed > 0 {
			return domain.Phase{}, false, nil
		}
		count, countErr := o.countResults(ctx, o.cfg.Range.Low, o.cfg.Range.High)
		if countErr != nil {
			return domain.Phase{}, false, fmt.Errorf("count manual range %s: %w", o.cfg.Range, countErr)
		}
		phase, ok = domain.Phase{Index: 0, Range: o.cfg.Range, ResultCount: count}, true
	default:
		left := o.cfg.Partition.DomainMin
		if hasLast {
			if last.Range.High >= o.cfg.Partition.DomainMax {
				return domain.Phase{}, false, nil
			}
			left = last.Range.High + 1
		}
		phase, ok, err = o.partitioner.Next(ctx, left, completed)
		if err != nil {
			return domain.Phase{}, false, fmt.Errorf("partition from %d: %w", left, err)
		}
	}
	if !ok {
		return domain.Phase{}, false, nil
	}

	o.update(func(st *domain.CrawlState) {
		frozen := phase
		st.CurrentPhase = &frozen
		st.CurrentPhaseIndex = phase.Index
	})
	if err := o.save(ctx); err != nil {
		return domain.Phase{}, false, err
	}

	o.logger.Info("Phase started",
		"phase", phase.Index,
		"range", phase.Range.String(),
		"count", phase.ResultCount,
		"oversized", phase.Oversized,
	)
	return phase, true, nil
}

// countResults counts a range through the provider. Navigation is retried;
// exhaustion fails the run because a phase cannot be skipped.
func (o *Orchestrator) countResults(ctx context.Context, low, high int64) (int, error) {
	count := provider.CountFunc(o.provider)
	return retry.Do(ctx, o.cfg.Retry, func() (int, error) {
		return count(ctx, low, high)
	})
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

// update mutates the crawl state under the lock and stamps it.
func (o *Orchestrator) update(fn func(st *domain.CrawlState)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	fn(o.crawl)
	o.crawl.UpdatedAt = o.now()
}

// save persists a copy of the crawl state. It is not interrupted by cancellation.
func (o *Orchestrator) save(ctx context.Context) error {
	snapshot := o.Status().Crawl
	if err := o.checkpoints.Save(context.WithoutCancel(ctx), snapshot); err != nil {
		if errors.Is(err, domain.ErrPersistence) {
			return err
		}
		return fmt.Errorf("%w: save checkpoint: %w", domain.ErrPersistence, err)
	}
	return nil
}

func (o *Orchestrator) summary(started time.Time) *Summary {
	o.mu.RLock()
	defer o.mu.RUnlock()

	s := &Summary{
		State:    o.state,
		Resumed:  o.resumed,
		Duration: o.now().Sub(started),
	}
	if st := o.crawl; st != nil {
		s.RunID = st.RunID
		s.Seen = st.TotalSeen
		s.Accepted = st.TotalAccepted
		s.Duplicates = st.TotalDuplicates
		s.Skipped = st.TotalSkipped
		s.PagesSkipped = st.PagesSkipped
		s.PhasesCompleted = len(st.CompletedPhases)
	}
	return s
}

func isNavigationError(err error) bool {
	return errors.Is(err, domain.ErrNavigation)
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
