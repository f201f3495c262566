package loader

import (
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShapeToMultiPolygon(t *testing.T) {
	p := &shp.Polygon{
		NumParts: 2,
		Parts:    []int32{0, 5},
		Points: []shp.Point{
			// Outer square.
			{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}, {X: 0, Y: 0},
			// Second part.
			{X: 5, Y: 5}, {X: 6, Y: 5}, {X: 6, Y: 6}, {X: 5, Y: 6}, {X: 5, Y: 5},
		},
	}

	mp := shapeToMultiPolygon(p)
	require.NotNil(t, mp)
	assert.Equal(t, 2, mp.NumPolygons())
	assert.Equal(t, 20, len(mp.FlatCoords()))
}

func TestShapeToMultiPolygon_Degenerate(t *testing.T) {
	assert.Nil(t, shapeToMultiPolygon(nil))
	assert.Nil(t, shapeToMultiPolygon(&shp.Polygon{}))
	assert.Nil(t, shapeToMultiPolygon(&shp.PolyLine{
		NumParts: 1,
		Parts:    []int32{0},
		Points:   []shp.Point{{X: 0, Y: 0}, {X: 1, Y: 1}},
	}))
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want *float64
	}{
		{name: "plain number", raw: "42.5", want: float64Ptr(42.5)},
		{name: "padded", raw: "  7 \x00\x00", want: float64Ptr(7)},
		{name: "empty", raw: "", want: nil},
		{name: "null padded", raw: "\x00\x00", want: nil},
		{name: "non-numeric", raw: "N/A", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseValue(tt.raw)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.want, *got)
		})
	}
}

func float64Ptr(v float64) *float64 { return &v }
