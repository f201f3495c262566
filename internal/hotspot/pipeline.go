// Package hotspot wires the contiguity, weights, and Gi* stages into the
// single synchronous analysis pass exposed to callers.
package hotspot

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/hotspot-cli/internal/contiguity"
	"github.com/sells-group/hotspot-cli/internal/geometry"
	"github.com/sells-group/hotspot-cli/internal/gistar"
	"github.com/sells-group/hotspot-cli/internal/model"
	"github.com/sells-group/hotspot-cli/internal/weights"
)

// Options tunes one Detect invocation.
type Options struct {
	// VertexTolerance is the coordinate-equality tolerance for shared-vertex
	// detection, in the coordinate system's native units. <= 0 means the
	// 1e-7 default.
	VertexTolerance float64
	// HighThreshold and LowThreshold are the z-score classification cutoffs.
	// Nil means the two-tailed ~95% defaults; an explicit pointer may carry
	// any cutoff, zero included.
	HighThreshold *float64
	LowThreshold  *float64
	// Workers caps concurrency in the parallel phases. <= 0 means NumCPU.
	Workers int
}

// DefaultOptions returns the standard tuning: 1e-7 vertex tolerance and the
// two-tailed ~95% confidence cutoffs.
func DefaultOptions() Options {
	return Options{
		VertexTolerance: geometry.DefaultTolerance,
		HighThreshold:   model.Float(gistar.DefaultHighThreshold),
		LowThreshold:    model.Float(gistar.DefaultLowThreshold),
	}
}

// Params converts the options to their persistable form, with defaults
// resolved so the record reflects the cutoffs actually applied.
func (o Options) Params() model.Params {
	p := model.Params{
		VertexTolerance: o.VertexTolerance,
		HighThreshold:   gistar.DefaultHighThreshold,
		LowThreshold:    gistar.DefaultLowThreshold,
	}
	if p.VertexTolerance <= 0 {
		p.VertexTolerance = geometry.DefaultTolerance
	}
	if o.HighThreshold != nil {
		p.HighThreshold = *o.HighThreshold
	}
	if o.LowThreshold != nil {
		p.LowThreshold = *o.LowThreshold
	}
	return p
}

// Detect runs the full pipeline over a snapshot of units: queen-contiguity
// graph, self-included binary weights, Gi* scoring, classification, and
// assembly back onto the input id set in input order.
//
// Structural violations (duplicate ids, mismatched id sets) abort the batch.
// Per-unit degeneracies surface as UNDEFINED results. The call is pure given
// its inputs; concurrent invocations share no state.
func Detect(ctx context.Context, units []model.Unit, opts Options) (*model.Analysis, error) {
	if len(units) == 0 {
		return nil, eris.New("hotspot: no input units")
	}

	graph, stats, err := contiguity.Build(ctx, units,
		contiguity.WithTolerance(opts.VertexTolerance),
		contiguity.WithWorkers(opts.Workers),
	)
	if err != nil {
		return nil, err
	}

	w := weights.Binary(graph).WithSelf()

	values := make(map[string]*float64, len(units))
	for _, u := range units {
		values[u.ID] = u.Value
	}

	results, err := gistar.Compute(ctx, w, values, gistar.Options{
		HighThreshold: opts.HighThreshold,
		LowThreshold:  opts.LowThreshold,
		Workers:       opts.Workers,
	})
	if err != nil {
		return nil, err
	}

	assembled, dropped := Assemble(units, results)
	analysis := &model.Analysis{
		Results: assembled,
		Diagnostics: model.Diagnostics{
			InvalidGeometries: stats.InvalidGeometries,
			Islands:           stats.Islands,
			DroppedUnits:      dropped.Units,
			DroppedResults:    dropped.Results,
		},
	}

	zap.L().Info("hotspot: analysis complete",
		zap.Int("units", len(units)),
		zap.Int("edges", stats.Edges),
		zap.Int("islands", stats.Islands),
		zap.Int("invalid_geometries", stats.InvalidGeometries),
	)

	return analysis, nil
}
