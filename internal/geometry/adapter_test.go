package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

func square(x, y, size float64) *geom.Polygon {
	return geom.NewPolygonFlat(geom.XY, []float64{
		x, y,
		x + size, y,
		x + size, y + size,
		x, y + size,
		x, y,
	}, []int{10})
}

func TestExtract_Square(t *testing.T) {
	o, err := Extract(square(0, 0, 1), DefaultTolerance)
	require.NoError(t, err)

	// Closing vertex collapses into the opening one.
	assert.Len(t, o.Buckets, 4)
	assert.Equal(t, BBox{MinX: 0, MinY: 0, MaxX: 1, MaxY: 1}, o.BBox)
}

func TestExtract_NearEqualVerticesCollapse(t *testing.T) {
	// Two vertices closer than the tolerance land in the same bucket.
	p := geom.NewPolygonFlat(geom.XY, []float64{
		0, 0,
		1, 0,
		1.00000000004, 0.00000000004,
		0.5, 1,
		0, 0,
	}, []int{10})

	o, err := Extract(p, 1e-7)
	require.NoError(t, err)
	assert.Len(t, o.Buckets, 3)
}

func TestExtract_MultiPolygonUnionsRings(t *testing.T) {
	mp := geom.NewMultiPolygonFlat(geom.XY, []float64{
		0, 0, 1, 0, 1, 1, 0, 1, 0, 0,
		5, 5, 6, 5, 6, 6, 5, 6, 5, 5,
	}, [][]int{{10}, {20}})

	o, err := Extract(mp, DefaultTolerance)
	require.NoError(t, err)
	assert.Len(t, o.Buckets, 8)
	assert.Equal(t, BBox{MinX: 0, MinY: 0, MaxX: 6, MaxY: 6}, o.BBox)
}

func TestExtract_InvalidGeometry(t *testing.T) {
	tests := []struct {
		name string
		geom geom.T
	}{
		{name: "nil geometry", geom: nil},
		{name: "zero rings", geom: geom.NewPolygon(geom.XY)},
		{name: "unsupported type", geom: geom.NewPointFlat(geom.XY, []float64{1, 2})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Extract(tt.geom, DefaultTolerance)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidGeometry)
		})
	}
}

func TestSharesVertex(t *testing.T) {
	a, err := Extract(square(0, 0, 1), DefaultTolerance)
	require.NoError(t, err)
	b, err := Extract(square(1, 0, 1), DefaultTolerance)
	require.NoError(t, err)
	c, err := Extract(square(5, 5, 1), DefaultTolerance)
	require.NoError(t, err)

	assert.True(t, a.SharesVertex(b))
	assert.True(t, b.SharesVertex(a))
	assert.False(t, a.SharesVertex(c))
}

func TestBBoxExpand(t *testing.T) {
	a := BBox{MinX: 0, MinY: -1, MaxX: 1, MaxY: 2}
	e := a.Expand(0.5)
	assert.Equal(t, BBox{MinX: -0.5, MinY: -1.5, MaxX: 1.5, MaxY: 2.5}, e)
	// The receiver is unchanged.
	assert.Equal(t, BBox{MinX: 0, MinY: -1, MaxX: 1, MaxY: 2}, a)
}
