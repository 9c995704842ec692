package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jonesrussell/listing-crawler/internal/domain"
	"github.com/jonesrussell/listing-crawler/internal/logger"
)

const (
	// FormatPostgres selects the Postgres store.
	FormatPostgres = "postgres"

	defaultMaxOpenConns    = 4
	defaultMaxIdleConns    = 2
	defaultConnMaxLifetime = 5 * time.Minute
	defaultPingTimeout     = 5 * time.Second

	dedupKeyColumn = "dedup_key"
)

// ConnectPostgres opens and pings a pooled connection.
func ConnectPostgres(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(defaultMaxOpenConns)
	db.SetMaxIdleConns(defaultMaxIdleConns)
	db.SetConnMaxLifetime(defaultConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()

	if pingErr := db.PingContext(pingCtx); pingErr != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", pingErr)
	}

	return db, nil
}

// PostgresStore inserts projected rows into a table whose primary key is the
// normalized identity key. Conflicting inserts are reported as duplicates.
type PostgresStore struct {
	db         *sqlx.DB
	table      string
	projection Projection
	logger     logger.Interface
	insertSQL  string
}

// NewPostgresStore creates a store writing to table.
func NewPostgresStore(db *sqlx.DB, table string, projection Projection, log logger.Interface) *PostgresStore {
	if log == nil {
		log = logger.NewNoOp()
	}

	s := &PostgresStore{
		db:         db,
		table:      table,
		projection: projection,
		logger:     log.WithComponent("store").With("table", table),
	}
	s.insertSQL = s.buildInsert()
	return s
}

// EnsureSchema creates the table when it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	cols := make([]string, 0, len(s.projection.Columns)+1)
	cols = append(cols, pq.QuoteIdentifier(dedupKeyColumn)+" TEXT PRIMARY KEY")
	for _, c := range s.projection.Columns {
		cols = append(cols, pq.QuoteIdentifier(c)+" TEXT NOT NULL DEFAULT ''")
	}

	query := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", pq.QuoteIdentifier(s.table), strings.Join(cols, ", "))
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("%w: create table %s: %w", domain.ErrPersistence, s.table, err)
	}
	return nil
}

// Submit implements Submitter.
func (s *PostgresStore) Submit(ctx context.Context, rec *domain.Record) (domain.SubmitOutcome, error) {
	row := s.projection.Row(rec)
	key := NormalizeKey(s.projection.KeyColumn, row[s.projection.KeyColumn])
	if key == domain.Sentinel {
		s.logger.Warn("Record has no key value", "key_column", s.projection.KeyColumn, "url", rec.URL)
	}

	args := make([]any, 0, len(s.projection.Columns)+1)
	args = append(args, key)
	for _, c := range s.projection.Columns {
		args = append(args, row[c])
	}

	result, err := s.db.ExecContext(ctx, s.insertSQL, args...)
	if err != nil {
		return domain.Accepted, fmt.Errorf("%w: insert into %s: %w", domain.ErrPersistence, s.table, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return domain.Accepted, fmt.Errorf("%w: rows affected: %w", domain.ErrPersistence, err)
	}
	if affected == 0 {
		s.logger.Debug("Duplicate record skipped", "key", key)
		return domain.Duplicate, nil
	}
	return domain.Accepted, nil
}

func (s *PostgresStore) buildInsert() string {
	cols := make([]string, 0, len(s.projection.Columns)+1)
	cols = append(cols, pq.QuoteIdentifier(dedupKeyColumn))
	for _, c := range s.projection.Columns {
		cols = append(cols, pq.QuoteIdentifier(c))
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO NOTHING",
		pq.QuoteIdentifier(s.table),
		strings.Join(cols, ", "),
		placeholders,
		pq.QuoteIdentifier(dedupKeyColumn),
	)
	return s.db.Rebind(query)
}
