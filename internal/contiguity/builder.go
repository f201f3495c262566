package contiguity

import (
	"context"
	"runtime"

	"github.com/rotisserie/eris"
	"github.com/tidwall/rtree"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/hotspot-cli/internal/geometry"
	"github.com/sells-group/hotspot-cli/internal/model"
)

// ErrDuplicateUnit reports two input records sharing an id. Ambiguous
// identity breaks every downstream join, so this is batch-fatal.
var ErrDuplicateUnit = eris.New("contiguity: duplicate unit id")

// Stats counts what the builder observed.
type Stats struct {
	InvalidGeometries int
	Islands           int
	Edges             int
}

// Option configures a Build call.
type Option func(*builder)

// WithTolerance sets the shared-vertex coordinate tolerance.
func WithTolerance(tolerance float64) Option {
	return func(b *builder) {
		if tolerance > 0 {
			b.tolerance = tolerance
		}
	}
}

// WithWorkers caps the number of concurrent candidate-scan goroutines.
func WithWorkers(n int) Option {
	return func(b *builder) {
		if n > 0 {
			b.workers = n
		}
	}
}

type builder struct {
	tolerance float64
	workers   int
}

// Build derives the queen-contiguity graph for the given units.
//
// Duplicate ids fail the whole batch before any graph work. A unit with an
// invalid boundary is kept as a degree-0 island and counted in Stats rather
// than aborting the batch. Candidate pairs come from an R-tree over unit
// bounding boxes, so only spatially co-located units get the exact
// vertex-set intersection test; the scan is parallelized per unit and merged
// by a single deterministic pass.
func Build(ctx context.Context, units []model.Unit, opts ...Option) (*Graph, *Stats, error) {
	b := &builder{
		tolerance: geometry.DefaultTolerance,
		workers:   runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(b)
	}

	ids := make([]string, len(units))
	seen := make(map[string]struct{}, len(units))
	for i, u := range units {
		if _, dup := seen[u.ID]; dup {
			return nil, nil, eris.Wrapf(ErrDuplicateUnit, "id %q", u.ID)
		}
		seen[u.ID] = struct{}{}
		ids[i] = u.ID
	}

	stats := &Stats{}
	outlines := make([]*geometry.Outline, len(units))
	for i, u := range units {
		o, err := geometry.Extract(u.Geom, b.tolerance)
		if err != nil {
			stats.InvalidGeometries++
			zap.L().Warn("contiguity: invalid geometry, keeping unit as island",
				zap.String("unit_id", u.ID),
				zap.Error(err),
			)
			continue
		}
		outlines[i] = o
	}

	// Bounding-box pre-filter. The tree is built once and only read during
	// the concurrent scan. Boxes are expanded by the tolerance on both the
	// insert and query sides: vertices less than the tolerance apart collapse
	// to one bucket even when the raw boxes are disjoint, and the pre-filter
	// must never reject a pair the exact vertex test would accept.
	var tr rtree.RTreeG[int]
	for i, o := range outlines {
		if o == nil {
			continue
		}
		bb := o.BBox.Expand(b.tolerance)
		tr.Insert(
			[2]float64{bb.MinX, bb.MinY},
			[2]float64{bb.MaxX, bb.MaxY},
			i,
		)
	}

	// Each goroutine writes only found[i], so no locking is needed; the
	// merge below is the single-writer symmetrization pass.
	found := make([][]int, len(units))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)

	for i := range units {
		if outlines[i] == nil {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			o := outlines[i]
			bb := o.BBox.Expand(b.tolerance)
			tr.Search(
				[2]float64{bb.MinX, bb.MinY},
				[2]float64{bb.MaxX, bb.MaxY},
				func(_, _ [2]float64, j int) bool {
					// Each unordered pair is tested once, from its lower index.
					if j <= i {
						return true
					}
					if o.SharesVertex(outlines[j]) {
						found[i] = append(found[i], j)
					}
					return true
				},
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, eris.Wrap(err, "contiguity: candidate scan")
	}

	graph := newGraph(ids)
	for i, nbrs := range found {
		for _, j := range nbrs {
			graph.addEdge(ids[i], ids[j])
		}
	}
	graph.sortNeighbors()

	stats.Edges = graph.EdgeCount()
	stats.Islands = len(graph.Islands())

	zap.L().Debug("contiguity: graph built",
		zap.Int("units", len(units)),
		zap.Int("edges", stats.Edges),
		zap.Int("islands", stats.Islands),
		zap.Int("invalid_geometries", stats.InvalidGeometries),
	)

	return graph, stats, nil
}
