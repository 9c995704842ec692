// Package partition splits an ordered numeric domain into contiguous sub-ranges whose
// result counts fit a target window, working around a search endpoint that caps the
// number of visible results per query.
package partition

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/jonesrussell/listing-crawler/internal/domain"
	"github.com/jonesrussell/listing-crawler/internal/logger"
)

// ErrInvalidConfig is returned when partition bounds are inconsistent.
var ErrInvalidConfig = errors.New("invalid partition config")

// CountFunc reports how many results a query restricted to [low, high] returns.
// It must be non-decreasing in high for a fixed low.
type CountFunc func(ctx context.Context, low, high int64) (int, error)

// OversizedHandler is told about every emitted phase whose count exceeds the
// target maximum.
type OversizedHandler func(phase domain.Phase)

// Config holds the partitioning bounds.
type Config struct {
	DomainMin int64 `yaml:"domain_min" env:"PARTITION_DOMAIN_MIN"`
	DomainMax int64 `yaml:"domain_max" env:"PARTITION_DOMAIN_MAX"`
	TargetMin int   `yaml:"target_min" env:"PARTITION_TARGET_MIN"`
	TargetMax int   `yaml:"target_max" env:"PARTITION_TARGET_MAX"`
	// Step is the quantization step for candidate boundaries.
	Step int64 `yaml:"step" env:"PARTITION_STEP"`
	// MaxIterations bounds the bisection for one boundary.
	MaxIterations int `yaml:"max_iterations" env:"PARTITION_MAX_ITERATIONS"`
	// ExpansionStep is the width of the single widening probe. Zero disables it.
	ExpansionStep int64 `yaml:"expansion_step" env:"PARTITION_EXPANSION_STEP"`
}

// Validate checks that the bounds describe a searchable domain.
func (c Config) Validate() error {
	switch {
	case c.DomainMin > c.DomainMax:
		return fmt.Errorf("%w: domain_min %d > domain_max %d", ErrInvalidConfig, c.DomainMin, c.DomainMax)
	case c.TargetMin <= 0:
		return fmt.Errorf("%w: target_min must be positive", ErrInvalidConfig)
	case c.TargetMin > c.TargetMax:
		return fmt.Errorf("%w: target_min %d > target_max %d", ErrInvalidConfig, c.TargetMin, c.TargetMax)
	case c.Step <= 0:
		return fmt.Errorf("%w: step must be positive", ErrInvalidConfig)
	case c.MaxIterations <= 0:
		return fmt.Errorf("%w: max_iterations must be positive", ErrInvalidConfig)
	case c.ExpansionStep < 0:
		return fmt.Errorf("%w: expansion_step must not be negative", ErrInvalidConfig)
	case c.DomainMax > math.MaxInt64-c.Step:
		return fmt.Errorf("%w: domain_max %d leaves no room for step %d", ErrInvalidConfig, c.DomainMax, c.Step)
	}
	return nil
}

// Partitioner computes phases with a greedy left-to-right walk and a bounded
// bisection for each right boundary.
type Partitioner struct {
	cfg         Config
	count       CountFunc
	logger      logger.Interface
	onOversized OversizedHandler
}

// Option configures a Partitioner.
type Option func(*Partitioner)

// WithLogger sets the logger.
func WithLogger(log logger.Interface) Option {
	return func(p *Partitioner) {
		p.logger = log
	}
}

// WithOversizedHandler registers a callback for oversized phases.
func WithOversizedHandler(fn OversizedHandler) Option {
	return func(p *Partitioner) {
		p.onOversized = fn
	}
}

// New creates a Partitioner.
func New(cfg Config, count CountFunc, opts ...Option) (*Partitioner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if count == nil {
		return nil, fmt.Errorf("%w: count function is required", ErrInvalidConfig)
	}

	p := &Partitioner{
		cfg:    cfg,
		count:  count,
		logger: logger.NewNoOp(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.WithComponent("partitioner")

	return p, nil
}

// Partition walks the whole domain and returns the covering phases. The walk
// stops early when a remaining range reports zero results.
func (p *Partitioner) Partition(ctx context.Context) ([]domain.Phase, error) {
	var phases []domain.Phase

	left := p.cfg.DomainMin
	for left <= p.cfg.DomainMax {
		phase, ok, err := p.Next(ctx, left, len(phases))
		if err != nil {
			return phases, err
		}
		if !ok {
			break
		}

		phases = append(phases, phase)
		if phase.Range.High >= p.cfg.DomainMax {
			break
		}
		left = phase.Range.High + 1
	}

	return phases, nil
}

// Next computes the single phase starting at left. It returns ok=false when the
// remaining domain [left, DomainMax] has no results.
func (p *Partitioner) Next(ctx context.Context, left int64, index int) (domain.Phase, bool, error) {
	if left > p.cfg.DomainMax {
		return domain.Phase{}, false, nil
	}

	total, err := p.count(ctx, left, p.cfg.DomainMax)
	if err != nil {
		return domain.Phase{}, false, fmt.Errorf("count [%d, %d]: %w", left, p.cfg.DomainMax, err)
	}

	if total == 0 {
		p.logger.Info("Domain exhausted", "left", left)
		return domain.Phase{}, false, nil
	}

	// In the window or too sparse to narrow: take the rest of the domain.
	if total <= p.cfg.TargetMax {
		phase := domain.Phase{
			Index:       index,
			Range:       domain.Range{Low: left, High: p.cfg.DomainMax},
			ResultCount: total,
		}
		p.logger.Debug("Accepted remaining domain", "range", phase.Range.String(), "count", total)
		return phase, true, nil
	}

	right, count, err := p.searchBoundary(ctx, left, total)
	if err != nil {
		return domain.Phase{}, false, err
	}

	phase := domain.Phase{
		Index:       index,
		Range:       domain.Range{Low: left, High: right},
		ResultCount: count,
		Oversized:   count > p.cfg.TargetMax,
	}
	if phase.Oversized {
		p.reportOversized(phase)
	}

	p.logger.Debug("Computed phase",
		"index", index,
		"range", phase.Range.String(),
		"count", count,
	)

	return phase, true, nil
}

// candidate is a probed right boundary and its observed count.
type candidate struct {
	right int64
	count int
}

// searchBoundary bisects (left, DomainMax] for the right boundary whose count
// lands in the target window. It falls back to the highest boundary with a count
// at or below TargetMax, or to the boundary with the smallest count.
func (p *Partitioner) searchBoundary(ctx context.Context, left int64, total int) (int64, int, error) {
	lo, hi := left, p.cfg.DomainMax
	smallest := candidate{right: hi, count: total}
	var best *candidate

	for iteration := 0; iteration < p.cfg.MaxIterations; iteration++ {
		right := p.quantize(midpoint(lo, hi), left)
		if right >= hi || right <= lo {
			// The interval cannot be narrowed at this resolution.
			break
		}

		count, err := p.count(ctx, left, right)
		if err != nil {
			return 0, 0, fmt.Errorf("count [%d, %d]: %w", left, right, err)
		}

		if count >= p.cfg.TargetMin && count <= p.cfg.TargetMax {
			return right, count, nil
		}

		if count > p.cfg.TargetMax {
			hi = right
			if count <= smallest.count {
				smallest = candidate{right: right, count: count}
			}
			continue
		}

		lo = right
		if best == nil || right > best.right {
			best = &candidate{right: right, count: count}
		}
	}

	if best == nil {
		return smallest.right, smallest.count, nil
	}

	return p.widen(ctx, left, hi, *best)
}

// widen probes once past the best boundary to absorb discretization error near
// the window edges.
func (p *Partitioner) widen(ctx context.Context, left, hi int64, best candidate) (int64, int, error) {
	if p.cfg.ExpansionStep == 0 {
		return best.right, best.count, nil
	}

	if p.cfg.ExpansionStep >= hi-best.right {
		return best.right, best.count, nil
	}
	probe := best.right + p.cfg.ExpansionStep

	count, err := p.count(ctx, left, probe)
	if err != nil {
		return 0, 0, fmt.Errorf("count [%d, %d]: %w", left, probe, err)
	}
	if count <= p.cfg.TargetMax && count >= best.count {
		return probe, count, nil
	}

	return best.right, best.count, nil
}

// quantize rounds v to the nearest multiple of Step, never returning a value at or
// below left and never past DomainMax.
func (p *Partitioner) quantize(v, left int64) int64 {
	step := p.cfg.Step
	rounded := floorDiv(v+step/2, step) * step
	if rounded <= left {
		rounded = left + step
	}
	if rounded > p.cfg.DomainMax {
		rounded = p.cfg.DomainMax
	}
	return rounded
}

func (p *Partitioner) reportOversized(phase domain.Phase) {
	unsplittable := phase.Range.Width() <= p.cfg.Step
	p.logger.Warn("Phase exceeds target maximum",
		"range", phase.Range.String(),
		"count", phase.ResultCount,
		"target_max", p.cfg.TargetMax,
		"unsplittable", unsplittable,
	)
	if p.onOversized != nil {
		p.onOversized(phase)
	}
}

// midpoint returns the middle of [lo, hi] without overflowing when the
// interval spans more than half of int64.
func midpoint(lo, hi int64) int64 {
	return lo + int64((uint64(hi)-uint64(lo))/2)
}

// floorDiv divides rounding toward negative infinity.
func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
