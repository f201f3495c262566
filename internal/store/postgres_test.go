package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/hotspot-cli/internal/config"
	"github.com/sells-group/hotspot-cli/internal/model"
)

// storeConfig builds a StoreConfig for driver tests.
func storeConfig(driver, path string) config.StoreConfig {
	return config.StoreConfig{Driver: driver, SQLitePath: path}
}

// newMockPostgresStore creates a PostgresStore backed by pgxmock.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return &PostgresStore{pool: mock}, mock
}

func TestPostgres_CreateRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO analysis_runs`).
		WithArgs(pgxmock.AnyArg(), "counties.shp", pgxmock.AnyArg(), "running", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	run, err := s.CreateRun(context.Background(), "counties.shp", testParams())
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusRunning, run.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, source, params, status, diagnostics, error, created_at, updated_at FROM analysis_runs`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetRun(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	params, err := json.Marshal(testParams())
	require.NoError(t, err)
	diag, err := json.Marshal(model.Diagnostics{Islands: 2})
	require.NoError(t, err)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT id, source, params, status, diagnostics, error, created_at, updated_at FROM analysis_runs`).
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "source", "params", "status", "diagnostics", "error", "created_at", "updated_at"}).
			AddRow("run-1", "tracts.shp", params, model.RunStatusComplete, diag, (*string)(nil), now, now))

	run, err := s.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, "tracts.shp", run.Source)
	assert.Equal(t, 2, run.Diagnostics.Islands)
	assert.Equal(t, testParams(), run.Params)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CompleteRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE analysis_runs SET status`).
		WithArgs("complete", pgxmock.AnyArg(), pgxmock.AnyArg(), "run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`INSERT INTO analysis_results`).
		WithArgs("run-1", "06001", 1.7, model.CategoryNone).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.CompleteRun(context.Background(), "run-1", model.Diagnostics{}, []model.Result{
		{ID: "06001", ZScore: model.Float(1.7), Category: model.CategoryNone},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CompleteRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE analysis_runs SET status`).
		WithArgs("complete", pgxmock.AnyArg(), pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.CompleteRun(context.Background(), "missing", model.Diagnostics{}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetResults(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT unit_id, z_score, category FROM analysis_results`).
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows([]string{"unit_id", "z_score", "category"}).
			AddRow("06001", model.Float(2.1), model.CategoryHighCluster).
			AddRow("06003", (*float64)(nil), model.CategoryUndefined))

	results, err := s.GetResults(context.Background(), "run-1")
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.NotNil(t, results[0].ZScore)
	assert.Equal(t, 2.1, *results[0].ZScore)
	assert.Nil(t, results[1].ZScore)
	assert.NoError(t, mock.ExpectationsWereMet())
}
