// Package store persists analysis runs and their per-unit results behind a
// driver-selected backend.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/hotspot-cli/internal/config"
	"github.com/sells-group/hotspot-cli/internal/model"
)

// ErrNotFound reports a run id with no stored record.
var ErrNotFound = eris.New("store: run not found")

// Store defines the persistence interface for analysis runs.
type Store interface {
	// CreateRun records a new running analysis and returns it with its id.
	CreateRun(ctx context.Context, source string, params model.Params) (*model.Run, error)
	// CompleteRun marks a run complete and stores its results.
	CompleteRun(ctx context.Context, runID string, diag model.Diagnostics, results []model.Result) error
	// FailRun marks a run failed with a cause.
	FailRun(ctx context.Context, runID string, cause string) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, limit, offset int) ([]model.Run, error)
	GetResults(ctx context.Context, runID string) ([]model.Result, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open creates a Store for the configured driver. An empty driver returns
// nil with no error: persistence is optional.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "":
		return nil, nil
	case "sqlite":
		s, err := NewSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			_ = s.Close()
			return nil, err
		}
		return s, nil
	case "postgres":
		s, err := NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			_ = s.Close()
			return nil, err
		}
		return s, nil
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
