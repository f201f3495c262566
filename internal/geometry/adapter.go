// Package geometry normalizes polygon boundaries into the quantized vertex
// sets the contiguity rule operates on.
package geometry

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// DefaultTolerance is the coordinate-equality tolerance for shared-vertex
// detection, in the coordinate system's native units.
const DefaultTolerance = 1e-7

// ErrInvalidGeometry reports a boundary with no rings or no vertices.
var ErrInvalidGeometry = eris.New("geometry: invalid geometry")

// Bucket is a vertex coordinate snapped to the tolerance grid. Two vertices
// within tolerance of each other collapse to the same bucket, so bucket
// equality is the shared-vertex test.
type Bucket struct {
	X, Y int64
}

// BBox is an axis-aligned bounding box over a unit's vertices.
type BBox struct {
	MinX, MinY float64
	MaxX, MaxY float64
}

// Expand returns the box grown by d on every side. Candidate pre-filters
// must expand boxes by the tolerance: two vertices can share a bucket while
// sitting in disjoint raw boxes.
func (b BBox) Expand(d float64) BBox {
	return BBox{
		MinX: b.MinX - d, MinY: b.MinY - d,
		MaxX: b.MaxX + d, MaxY: b.MaxY + d,
	}
}

// Outline is the contiguity-relevant summary of one unit's boundary: its
// quantized vertex set and bounding box. Ring topology is deliberately
// discarded; only vertex identity matters for the queen rule.
type Outline struct {
	Buckets map[Bucket]struct{}
	BBox    BBox
}

// SharesVertex reports whether two outlines have at least one common vertex
// bucket. It iterates the smaller set.
func (o *Outline) SharesVertex(other *Outline) bool {
	a, b := o.Buckets, other.Buckets
	if len(b) < len(a) {
		a, b = b, a
	}
	for k := range a {
		if _, ok := b[k]; ok {
			return true
		}
	}
	return false
}

// Extract normalizes a polygonal boundary into an Outline. Multi-part
// geometries contribute the union of all their rings' vertices. A nil
// geometry, an unsupported geometry type, or a polygon with zero vertices
// fails with ErrInvalidGeometry.
func Extract(g geom.T, tolerance float64) (*Outline, error) {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	if g == nil {
		return nil, eris.Wrap(ErrInvalidGeometry, "nil geometry")
	}

	switch g.(type) {
	case *geom.Polygon, *geom.MultiPolygon:
	default:
		return nil, eris.Wrapf(ErrInvalidGeometry, "unsupported geometry type %T", g)
	}

	flat := g.FlatCoords()
	stride := g.Stride()
	if len(flat) == 0 || stride < 2 {
		return nil, eris.Wrap(ErrInvalidGeometry, "no vertices")
	}

	o := &Outline{
		Buckets: make(map[Bucket]struct{}, len(flat)/stride),
		BBox: BBox{
			MinX: math.Inf(1), MinY: math.Inf(1),
			MaxX: math.Inf(-1), MaxY: math.Inf(-1),
		},
	}
	for i := 0; i+1 < len(flat); i += stride {
		x, y := flat[i], flat[i+1]
		o.Buckets[quantize(x, y, tolerance)] = struct{}{}
		o.BBox.MinX = math.Min(o.BBox.MinX, x)
		o.BBox.MinY = math.Min(o.BBox.MinY, y)
		o.BBox.MaxX = math.Max(o.BBox.MaxX, x)
		o.BBox.MaxY = math.Max(o.BBox.MaxY, y)
	}
	return o, nil
}

// quantize snaps a coordinate pair onto the tolerance grid.
func quantize(x, y, tolerance float64) Bucket {
	return Bucket{
		X: int64(math.Round(x / tolerance)),
		Y: int64(math.Round(y / tolerance)),
	}
}
