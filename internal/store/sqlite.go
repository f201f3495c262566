package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/hotspot-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS analysis_runs (
	id          TEXT PRIMARY KEY,
	source      TEXT NOT NULL,
	params      TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	diagnostics TEXT,
	error       TEXT,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS analysis_results (
	run_id   TEXT NOT NULL REFERENCES analysis_runs(id),
	unit_id  TEXT NOT NULL,
	z_score  REAL,
	category TEXT NOT NULL,
	PRIMARY KEY (run_id, unit_id)
);

CREATE INDEX IF NOT EXISTS idx_analysis_runs_status ON analysis_runs(status);
CREATE INDEX IF NOT EXISTS idx_analysis_results_run_id ON analysis_results(run_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, source string, params model.Params) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal params")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO analysis_runs (id, source, params, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, source, string(paramsJSON), string(model.RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
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

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, diag model.Diagnostics, results []model.Result) error {
	diagJSON, err := json.Marshal(diag)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal diagnostics")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE analysis_runs SET status = ?, diagnostics = ?, updated_at = ? WHERE id = ?`,
		string(model.RunStatusComplete), string(diagJSON), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	if err := checkRowsAffected(res, runID); err != nil {
		return err
	}

	for _, r := range results {
		var z any
		if r.ZScore != nil {
			z = *r.ZScore
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO analysis_results (run_id, unit_id, z_score, category) VALUES (?, ?, ?, ?)`,
			runID, r.ID, z, r.Category,
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert result %s/%s", runID, r.ID)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit results")
}

func (s *SQLiteStore) FailRun(ctx context.Context, runID string, cause string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE analysis_runs SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
		string(model.RunStatusFailed), cause, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail run %s", runID)
	}
	return checkRowsAffected(res, runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, source, params, status, diagnostics, error, created_at, updated_at FROM analysis_runs WHERE id = ?`,
		runID,
	)
	run, err := scanRun(row.Scan)
	if err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "id %s", runID)
		}
		return nil, eris.Wrapf(err, "sqlite: get run %s", runID)
	}
	return run, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit, offset int) ([]model.Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, params, status, diagnostics, error, created_at, updated_at
		 FROM analysis_runs ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		run, err := scanRun(rows.Scan)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run row")
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate run rows")
	}
	return runs, nil
}

func (s *SQLiteStore) GetResults(ctx context.Context, runID string) ([]model.Result, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT unit_id, z_score, category FROM analysis_results WHERE run_id = ? ORDER BY unit_id`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get results %s", runID)
	}
	defer rows.Close()

	var results []model.Result
	for rows.Next() {
		var r model.Result
		var z sql.NullFloat64
		if err := rows.Scan(&r.ID, &z, &r.Category); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan result row")
		}
		if z.Valid {
			r.ZScore = &z.Float64
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate result rows")
	}
	return results, nil
}

// scanRun decodes one analysis_runs row through a Scan function.
func scanRun(scan func(dest ...any) error) (*model.Run, error) {
	var run model.Run
	var paramsJSON string
	var diagJSON, errMsg sql.NullString
	if err := scan(&run.ID, &run.Source, &paramsJSON, &run.Status, &diagJSON, &errMsg, &run.CreatedAt, &run.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(paramsJSON), &run.Params); err != nil {
		return nil, eris.Wrap(err, "unmarshal params")
	}
	if diagJSON.Valid && diagJSON.String != "" {
		if err := json.Unmarshal([]byte(diagJSON.String), &run.Diagnostics); err != nil {
			return nil, eris.Wrap(err, "unmarshal diagnostics")
		}
	}
	run.Error = errMsg.String
	return &run, nil
}

// checkRowsAffected maps zero-row updates to ErrNotFound.
func checkRowsAffected(res sql.Result, runID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "id %s", runID)
	}
	return nil
}
