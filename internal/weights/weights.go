// Package weights materializes sparse spatial weights matrices from a
// contiguity graph.
package weights

import (
	"github.com/sells-group/hotspot-cli/internal/contiguity"
)

// Entry is one weighted neighbor in a matrix row.
type Entry struct {
	ID     string
	Weight float64
}

// Matrix is a sparse spatial weights matrix: one row of (neighbor, weight)
// entries per unit id. Rows for islands are empty in binary mode.
type Matrix struct {
	ids          []string
	rows         map[string][]Entry
	selfIncluded bool
}

// Binary builds the binary (non-row-standardized) weights matrix: weight 1
// for every graph edge, implicitly 0 otherwise.
func Binary(g *contiguity.Graph) *Matrix {
	m := &Matrix{
		ids:  g.IDs(),
		rows: make(map[string][]Entry, len(g.IDs())),
	}
	for _, id := range m.ids {
		nbrs := g.Neighbors(id)
		row := make([]Entry, 0, len(nbrs))
		for _, n := range nbrs {
			row = append(row, Entry{ID: n, Weight: 1})
		}
		m.rows[id] = row
	}
	return m
}

// WithSelf returns a copy of the matrix with a self entry of weight 1 added
// to every row, including degree-0 rows. This is the form the Gi* statistic
// requires; the receiver is left untouched so non-star consumers can keep
// using it. Calling WithSelf on an already self-included matrix returns an
// unchanged copy.
func (m *Matrix) WithSelf() *Matrix {
	out := &Matrix{
		ids:          m.ids,
		rows:         make(map[string][]Entry, len(m.rows)),
		selfIncluded: true,
	}
	for id, row := range m.rows {
		cp := make([]Entry, 0, len(row)+1)
		if !m.selfIncluded {
			cp = append(cp, Entry{ID: id, Weight: 1})
		}
		cp = append(cp, row...)
		out.rows[id] = cp
	}
	return out
}

// IDs returns the unit ids in input order.
func (m *Matrix) IDs() []string {
	return m.ids
}

// Row returns the weight entries for a unit id.
func (m *Matrix) Row(id string) []Entry {
	return m.rows[id]
}

// RowSum returns the sum of weights in a unit's row.
func (m *Matrix) RowSum(id string) float64 {
	var sum float64
	for _, e := range m.rows[id] {
		sum += e.Weight
	}
	return sum
}

// SelfIncluded reports whether every row carries a self entry.
func (m *Matrix) SelfIncluded() bool {
	return m.selfIncluded
}
