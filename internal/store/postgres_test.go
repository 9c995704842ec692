package store_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/listing-crawler/internal/domain"
	"github.com/jonesrussell/listing-crawler/internal/store"
)

func newPostgresStore(t *testing.T) (*store.PostgresStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	projection, err := store.NewProjection(store.KeyFullAddress, store.DefaultDropColumns)
	require.NoError(t, err)

	return store.NewPostgresStore(sqlx.NewDb(db, "postgres"), "listings", projection, nil), mock
}

func TestPostgresStore_EnsureSchema(t *testing.T) {
	t.Parallel()

	s, mock := newPostgresStore(t)
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS "listings"`).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Submit(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name        string
		setupMock   func(mock sqlmock.Sqlmock)
		wantOutcome domain.SubmitOutcome
		wantErr     error
	}{
		{
			name: "new key is inserted",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO "listings"`).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
			wantOutcome: domain.Accepted,
		},
		{
			name: "conflicting key is a duplicate",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`ON CONFLICT \("dedup_key"\) DO NOTHING`).
					WillReturnResult(sqlmock.NewResult(0, 0))
			},
			wantOutcome: domain.Duplicate,
		},
		{
			name: "database error is a persistence error",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO "listings"`).WillReturnError(sql.ErrConnDone)
			},
			wantErr: domain.ErrPersistence,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			s, mock := newPostgresStore(t)
			tc.setupMock(mock)

			outcome, err := s.Submit(context.Background(), record("1 A St", "u1"))
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tc.wantOutcome, outcome)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
