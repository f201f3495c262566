package weights

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/hotspot-cli/internal/contiguity"
	"github.com/sells-group/hotspot-cli/internal/model"
)

func square(x, y float64) *geom.Polygon {
	return geom.NewPolygonFlat(geom.XY, []float64{
		x, y, x + 1, y, x + 1, y + 1, x, y + 1, x, y,
	}, []int{10})
}

// chainGraph builds the contiguity graph for n unit squares in a row plus an
// isolated square far away.
func chainGraph(t *testing.T, n int) *contiguity.Graph {
	t.Helper()
	units := make([]model.Unit, 0, n+1)
	for i := 0; i < n; i++ {
		units = append(units, model.Unit{ID: string(rune('a' + i)), Geom: square(float64(i), 0)})
	}
	units = append(units, model.Unit{ID: "iso", Geom: square(100, 100)})

	g, _, err := contiguity.Build(context.Background(), units)
	require.NoError(t, err)
	return g
}

func TestBinary_RowSumEqualsDegree(t *testing.T) {
	g := chainGraph(t, 5)
	m := Binary(g)

	for _, id := range m.IDs() {
		assert.Equal(t, float64(g.Degree(id)), m.RowSum(id), "row sum for %s", id)
	}
	assert.False(t, m.SelfIncluded())
	assert.Empty(t, m.Row("iso"))
}

func TestWithSelf_RowSumEqualsDegreePlusOne(t *testing.T) {
	g := chainGraph(t, 5)
	m := Binary(g).WithSelf()

	assert.True(t, m.SelfIncluded())
	for _, id := range m.IDs() {
		assert.Equal(t, float64(g.Degree(id))+1, m.RowSum(id), "row sum for %s", id)
	}
}

func TestWithSelf_ExactlyOneSelfEntryPerRow(t *testing.T) {
	g := chainGraph(t, 3)
	m := Binary(g).WithSelf()

	for _, id := range m.IDs() {
		var selfEntries int
		for _, e := range m.Row(id) {
			if e.ID == id {
				selfEntries++
				assert.Equal(t, 1.0, e.Weight)
			}
		}
		assert.Equal(t, 1, selfEntries, "row %s", id)
	}
}

func TestWithSelf_IslandRowIsSelfOnly(t *testing.T) {
	g := chainGraph(t, 2)
	m := Binary(g).WithSelf()

	row := m.Row("iso")
	require.Len(t, row, 1)
	assert.Equal(t, Entry{ID: "iso", Weight: 1}, row[0])
}

func TestWithSelf_LeavesReceiverUntouched(t *testing.T) {
	g := chainGraph(t, 3)
	binary := Binary(g)
	before := len(binary.Row("b"))

	_ = binary.WithSelf()

	assert.False(t, binary.SelfIncluded())
	assert.Len(t, binary.Row("b"), before)
}

func TestWithSelf_Idempotent(t *testing.T) {
	g := chainGraph(t, 3)
	m := Binary(g).WithSelf().WithSelf()

	for _, id := range m.IDs() {
		var selfEntries int
		for _, e := range m.Row(id) {
			if e.ID == id {
				selfEntries++
			}
		}
		assert.Equal(t, 1, selfEntries, "row %s", id)
	}
}
