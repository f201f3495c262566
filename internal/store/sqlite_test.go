package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/hotspot-cli/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func testParams() model.Params {
	return model.Params{VertexTolerance: 1e-7, HighThreshold: 2, LowThreshold: -2}
}

func TestSQLite_RunLifecycle(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, "counties.shp", testParams())
	require.NoError(t, err)
	require.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusRunning, run.Status)

	results := []model.Result{
		{ID: "06001", ZScore: model.Float(2.4), Category: model.CategoryHighCluster},
		{ID: "06003", ZScore: nil, Category: model.CategoryUndefined},
		{ID: "06005", ZScore: model.Float(-0.3), Category: model.CategoryNone},
	}
	diag := model.Diagnostics{Islands: 1}
	require.NoError(t, s.CompleteRun(ctx, run.ID, diag, results))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, got.Status)
	assert.Equal(t, diag, got.Diagnostics)
	assert.Equal(t, testParams(), got.Params)

	stored, err := s.GetResults(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, stored, 3)
	// Results come back ordered by unit id.
	assert.Equal(t, "06001", stored[0].ID)
	require.NotNil(t, stored[0].ZScore)
	assert.Equal(t, 2.4, *stored[0].ZScore)
	assert.Nil(t, stored[1].ZScore)
	assert.Equal(t, model.CategoryUndefined, stored[1].Category)
}

func TestSQLite_FailRun(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, "bad.shp", testParams())
	require.NoError(t, err)
	require.NoError(t, s.FailRun(ctx, run.ID, "duplicate unit id"))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, got.Status)
	assert.Equal(t, "duplicate unit id", got.Error)
}

func TestSQLite_GetRun_NotFound(t *testing.T) {
	s := newTestSQLite(t)

	_, err := s.GetRun(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_CompleteRun_NotFound(t *testing.T) {
	s := newTestSQLite(t)

	err := s.CompleteRun(context.Background(), "missing", model.Diagnostics{}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_ListRuns(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	for _, src := range []string{"a.shp", "b.shp", "c.shp"} {
		_, err := s.CreateRun(ctx, src, testParams())
		require.NoError(t, err)
	}

	runs, err := s.ListRuns(ctx, 2, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	all, err := s.ListRuns(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestOpen_Drivers(t *testing.T) {
	ctx := context.Background()

	t.Run("no driver means no store", func(t *testing.T) {
		s, err := Open(ctx, storeConfig("", ""))
		require.NoError(t, err)
		assert.Nil(t, s)
	})

	t.Run("sqlite", func(t *testing.T) {
		s, err := Open(ctx, storeConfig("sqlite", filepath.Join(t.TempDir(), "o.db")))
		require.NoError(t, err)
		require.NotNil(t, s)
		assert.NoError(t, s.Close())
	})

	t.Run("unknown driver", func(t *testing.T) {
		_, err := Open(ctx, storeConfig("mystery", ""))
		require.Error(t, err)
	})
}
