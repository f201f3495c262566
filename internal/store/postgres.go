package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/hotspot-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it,
// which keeps the store unit-testable without a database.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS analysis_runs (
	id          TEXT PRIMARY KEY,
	source      TEXT NOT NULL,
	params      JSONB NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	diagnostics JSONB,
	error       TEXT,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS analysis_results (
	run_id   TEXT NOT NULL REFERENCES analysis_runs(id),
	unit_id  TEXT NOT NULL,
	z_score  DOUBLE PRECISION,
	category TEXT NOT NULL,
	PRIMARY KEY (run_id, unit_id)
);

CREATE INDEX IF NOT EXISTS idx_analysis_runs_status ON analysis_runs(status);
CREATE INDEX IF NOT EXISTS idx_analysis_results_run_id ON analysis_results(run_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, source string, params model.Params) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal params")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO analysis_runs (id, source, params, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, source, paramsJSON, string(model.RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.Run{
		ID:        id,
		Source:    source,
		Params:    params,
		Status:    model.RunStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, diag model.Diagnostics, results []model.Result) error {
	diagJSON, err := json.Marshal(diag)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal diagnostics")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE analysis_runs SET status = $1, diagnostics = $2, updated_at = $3 WHERE id = $4`,
		string(model.RunStatusComplete), diagJSON, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "id %s", runID)
	}

	for _, r := range results {
		var z any
		if r.ZScore != nil {
			z = *r.ZScore
		}
		if _, err := s.pool.Exec(ctx,
			`INSERT INTO analysis_results (run_id, unit_id, z_score, category) VALUES ($1, $2, $3, $4)
			 ON CONFLICT (run_id, unit_id) DO UPDATE SET z_score = EXCLUDED.z_score, category = EXCLUDED.category`,
			runID, r.ID, z, r.Category,
		); err != nil {
			return eris.Wrapf(err, "postgres: insert result %s/%s", runID, r.ID)
		}
	}

	return nil
}

func (s *PostgresStore) FailRun(ctx context.Context, runID string, cause string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE analysis_runs SET status = $1, error = $2, updated_at = $3 WHERE id = $4`,
		string(model.RunStatusFailed), cause, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "id %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, source, params, status, diagnostics, error, created_at, updated_at FROM analysis_runs WHERE id = $1`,
		runID,
	)
	run, err := scanPgRun(row.Scan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "id %s", runID)
		}
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	return run, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit, offset int) ([]model.Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, source, params, status, diagnostics, error, created_at, updated_at
		 FROM analysis_runs ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		run, err := scanPgRun(rows.Scan)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan run row")
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate run rows")
	}
	return runs, nil
}

func (s *PostgresStore) GetResults(ctx context.Context, runID string) ([]model.Result, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT unit_id, z_score, category FROM analysis_results WHERE run_id = $1 ORDER BY unit_id`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get results %s", runID)
	}
	defer rows.Close()

	var results []model.Result
	for rows.Next() {
		var r model.Result
		if err := rows.Scan(&r.ID, &r.ZScore, &r.Category); err != nil {
			return nil, eris.Wrap(err, "postgres: scan result row")
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate result rows")
	}
	return results, nil
}

// scanPgRun decodes one analysis_runs row through a Scan function.
func scanPgRun(scan func(dest ...any) error) (*model.Run, error) {
	var run model.Run
	var paramsJSON []byte
	var diagJSON []byte
	var errMsg *string
	if err := scan(&run.ID, &run.Source, &paramsJSON, &run.Status, &diagJSON, &errMsg, &run.CreatedAt, &run.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(paramsJSON, &run.Params); err != nil {
		return nil, eris.Wrap(err, "unmarshal params")
	}
	if len(diagJSON) > 0 {
		if err := json.Unmarshal(diagJSON, &run.Diagnostics); err != nil {
			return nil, eris.Wrap(err, "unmarshal diagnostics")
		}
	}
	if errMsg != nil {
		run.Error = *errMsg
	}
	return &run, nil
}
