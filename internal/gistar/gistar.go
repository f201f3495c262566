// Package gistar computes the Getis-Ord Gi* local autocorrelation statistic
// over a self-included spatial weights matrix and classifies each unit as a
// high-value cluster, low-value cluster, or neither.
package gistar

import (
	"context"
	"math"
	"runtime"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/hotspot-cli/internal/model"
	"github.com/sells-group/hotspot-cli/internal/weights"
)

// ErrInconsistentInput reports an id-set mismatch between the weights matrix
// and the attribute mapping. The mean/variance baseline would be silently
// wrong otherwise, so this is batch-fatal.
var ErrInconsistentInput = eris.New("gistar: weights matrix and attribute mapping ids do not match")

// Options tunes a Compute call.
type Options struct {
	// HighThreshold and LowThreshold override the default classification
	// cutoffs. Nil means default; a pointer may carry any value, zero
	// included.
	HighThreshold *float64
	LowThreshold  *float64
	// Workers caps scoring concurrency. <= 0 means NumCPU.
	Workers int
}

// baseline is the study-area-wide reduction every per-unit score is measured
// against. It is computed exactly once over all units with a defined value.
type baseline struct {
	n      int
	mean   float64
	stddev float64 // population standard deviation
}

// reduce computes the global baseline over defined attribute values.
func reduce(ids []string, values map[string]*float64) baseline {
	var n int
	var sum float64
	for _, id := range ids {
		if v := values[id]; v != nil {
			n++
			sum += *v
		}
	}
	if n == 0 {
		return baseline{}
	}
	mean := sum / float64(n)

	var ss float64
	for _, id := range ids {
		if v := values[id]; v != nil {
			d := *v - mean
			ss += d * d
		}
	}
	return baseline{n: n, mean: mean, stddev: math.Sqrt(ss / float64(n))}
}

// Compute scores every unit of the weights matrix against the given
// attribute mapping and classifies it.
//
// The matrix must be self-included (the Gi* variant). The id sets of the
// matrix and the mapping must match exactly; a mismatch fails the whole
// batch with ErrInconsistentInput. A nil mapped value marks the attribute as
// missing: missing values propagate UNDEFINED to every unit whose weighted
// sum includes them, without aborting the batch. Results are returned in
// matrix id order.
func Compute(ctx context.Context, m *weights.Matrix, values map[string]*float64, opts Options) ([]model.Result, error) {
	if !m.SelfIncluded() {
		return nil, eris.New("gistar: weights matrix must be self-included")
	}
	if err := checkIDs(m, values); err != nil {
		return nil, err
	}

	high, low := DefaultHighThreshold, DefaultLowThreshold
	if opts.HighThreshold != nil {
		high = *opts.HighThreshold
	}
	if opts.LowThreshold != nil {
		low = *opts.LowThreshold
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	// Reduction barrier: the global baseline must be final before any
	// per-unit score is computed.
	ids := m.IDs()
	base := reduce(ids, values)

	results := make([]model.Result, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, id := range ids {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			z := score(m.Row(id), values, base)
			results[i] = model.Result{
				ID:       id,
				ZScore:   z,
				Category: Classify(z, high, low),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "gistar: scoring")
	}

	var undefined int
	for _, r := range results {
		if r.Category == model.CategoryUndefined {
			undefined++
		}
	}
	zap.L().Debug("gistar: batch scored",
		zap.Int("units", len(results)),
		zap.Int("defined_n", base.n),
		zap.Int("undefined", undefined),
	)

	return results, nil
}

// score computes one unit's Gi* z-score over its self-included weights row.
// Nil means undefined: a missing value in the row, no attribute variance, a
// degenerate denominator, or fewer than two defined units.
func score(row []weights.Entry, values map[string]*float64, base baseline) *float64 {
	if base.n <= 1 || base.stddev == 0 {
		return nil
	}

	var w, w2, weighted float64
	for _, e := range row {
		v := values[e.ID]
		if v == nil {
			// Missing values are never treated as zero.
			return nil
		}
		w += e.Weight
		w2 += e.Weight * e.Weight
		weighted += e.Weight * *v
	}

	n := float64(base.n)
	inner := (n*w2 - w*w) / (n - 1)
	if inner <= 0 {
		return nil
	}
	den := base.stddev * math.Sqrt(inner)
	if den == 0 {
		return nil
	}

	z := (weighted - base.mean*w) / den
	return &z
}

// checkIDs verifies the matrix and the attribute mapping cover the same ids.
func checkIDs(m *weights.Matrix, values map[string]*float64) error {
	ids := m.IDs()
	if len(ids) != len(values) {
		return eris.Wrapf(ErrInconsistentInput, "%d matrix ids vs %d attribute ids", len(ids), len(values))
	}
	for _, id := range ids {
		if _, ok := values[id]; !ok {
			return eris.Wrapf(ErrInconsistentInput, "id %q missing from attribute mapping", id)
		}
	}
	return nil
}
