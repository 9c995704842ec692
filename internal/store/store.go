// Package store persists accepted records without duplicates. File tables are
// merged and rewritten atomically; the Postgres store relies on the database
// for both.
package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/jonesrussell/listing-crawler/internal/domain"
	"github.com/jonesrussell/listing-crawler/internal/logger"
)

// ErrInvalidKeyColumn is returned for a key column other than full_address or url.
var ErrInvalidKeyColumn = errors.New("key column must be full_address or url")

// DefaultDropColumns are projected away before a record is written.
var DefaultDropColumns = []string{
	domain.ColumnURL,
	domain.ColumnScrapeDate,
	domain.ColumnPrice,
	domain.ColumnBeds,
	domain.ColumnBaths,
	domain.ColumnArea,
	domain.ColumnAccepted,
	domain.ColumnListingAgent,
	domain.ColumnBroker,
}

// Submitter accepts records for persistence.
type Submitter interface {
	Submit(ctx context.Context, rec *domain.Record) (domain.SubmitOutcome, error)
}

// Projection selects the persisted columns of a record.
type Projection struct {
	KeyColumn string
	Columns   []string
}

// NewProjection returns the record columns minus drop. The key column is never dropped.
func NewProjection(keyColumn string, drop []string) (Projection, error) {
	if keyColumn != KeyFullAddress && keyColumn != KeyURL {
		return Projection{}, fmt.Errorf("%w: %q", ErrInvalidKeyColumn, keyColumn)
	}

	cols := make([]string, 0, len(domain.RecordColumns))
	for _, c := range domain.RecordColumns {
		if c == keyColumn || !slices.Contains(drop, c) {
			cols = append(cols, c)
		}
	}
	return Projection{KeyColumn: keyColumn, Columns: cols}, nil
}

// Row returns the projected values of rec.
func (p Projection) Row(rec *domain.Record) map[string]string {
	full := rec.Row()
	row := make(map[string]string, len(p.Columns))
	for _, c := range p.Columns {
		row[c] = full[c]
	}
	return row
}

// Deduplicator merges records into a Table keyed on one column, keeping the
// first-seen row. The key index is built on first use and kept in memory.
type Deduplicator struct {
	mu         sync.Mutex
	table      Table
	projection Projection
	logger     logger.Interface
	now        func() time.Time

	sheet *Sheet
	index map[string]struct{}
}

// Option configures a Deduplicator.
type Option func(*Deduplicator)

// WithLogger sets the logger.
func WithLogger(log logger.Interface) Option {
	return func(d *Deduplicator) {
		d.logger = log
	}
}

// WithClock overrides the clock used to name backups.
func WithClock(now func() time.Time) Option {
	return func(d *Deduplicator) {
		d.now = now
	}
}

// NewDeduplicator creates a store over table.
func NewDeduplicator(table Table, projection Projection, opts ...Option) *Deduplicator {
	d := &Deduplicator{
		table:      table,
		projection: projection,
		logger:     logger.NewNoOp(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.WithComponent("store").With("table", table.Location())
	return d
}

// Submit implements Submitter. The table is rewritten only for a new key; a
// failed rewrite leaves the in-memory view unchanged and writes a backup.
func (d *Deduplicator) Submit(ctx context.Context, rec *domain.Record) (domain.SubmitOutcome, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.ensureLoaded(ctx); err != nil {
		return domain.Accepted, err
	}

	row := d.projection.Row(rec)
	key := NormalizeKey(d.projection.KeyColumn, row[d.projection.KeyColumn])
	if key == domain.Sentinel {
		d.logger.Warn("Record has no key value", "key_column", d.projection.KeyColumn, "url", rec.URL)
	}

	if _, seen := d.index[key]; seen {
		d.logger.Debug("Duplicate record skipped", "key", key)
		return domain.Duplicate, nil
	}

	next := d.sheet.Clone()
	next.MergeColumns(d.projection.Columns)
	next.Rows = append(next.Rows, row)

	if err := d.table.Save(ctx, next); err != nil {
		d.backup(ctx, next)
		return domain.Accepted, fmt.Errorf("%w: save %s: %w", domain.ErrPersistence, d.table.Location(), err)
	}

	d.sheet = next
	d.index[key] = struct{}{}
	return domain.Accepted, nil
}

// Len returns the number of persisted rows known to the store.
func (d *Deduplicator) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sheet == nil {
		return 0
	}
	return len(d.sheet.Rows)
}

func (d *Deduplicator) ensureLoaded(ctx context.Context) error {
	if d.sheet != nil {
		return nil
	}

	sheet, err := d.table.Load(ctx)
	if err != nil {
		return fmt.Errorf("%w: load %s: %w", domain.ErrPersistence, d.table.Location(), err)
	}

	deduped, index := dedupe(sheet, d.projection.KeyColumn)
	if dropped := len(sheet.Rows) - len(deduped.Rows); dropped > 0 {
		d.logger.Warn("Existing table held duplicate keys", "dropped", dropped)
	}

	d.sheet = deduped
	d.index = index
	d.logger.Info("Loaded existing table", "rows", len(deduped.Rows))
	return nil
}

func (d *Deduplicator) backup(ctx context.Context, sheet *Sheet) {
	b, ok := d.table.(Backuper)
	if !ok {
		return
	}
	path, err := b.Backup(ctx, sheet, d.now())
	if err != nil {
		d.logger.Error("Backup failed", "error", err)
		return
	}
	d.logger.Warn("Wrote backup after failed save", "backup", path)
}

// dedupe keeps the first row of every key.
func dedupe(sheet *Sheet, keyColumn string) (*Sheet, map[string]struct{}) {
	index := make(map[string]struct{}, len(sheet.Rows))
	out := &Sheet{Columns: slices.Clone(sheet.Columns), Rows: make([]map[string]string, 0, len(sheet.Rows))}

	for _, row := range sheet.Rows {
		key := NormalizeKey(keyColumn, row[keyColumn])
		if _, seen := index[key]; seen {
			continue
		}
		index[key] = struct{}{}
		out.Rows = append(out.Rows, row)
	}

	return out, index
}
