// Package contiguity builds queen-contiguity neighbor graphs over areal
// units: two units are neighbors iff their boundaries share at least one
// vertex within the configured tolerance.
package contiguity

import "sort"

// Graph is an undirected neighbor graph over unit ids. It is symmetric by
// construction and contains no self-edges. Units with no neighbors are valid
// degree-0 nodes (islands).
type Graph struct {
	ids []string            // input order
	adj map[string][]string // neighbor ids, sorted
}

func newGraph(ids []string) *Graph {
	adj := make(map[string][]string, len(ids))
	for _, id := range ids {
		adj[id] = nil
	}
	return &Graph{ids: ids, adj: adj}
}

// addEdge records an undirected edge. Callers must not pass i == j.
func (g *Graph) addEdge(i, j string) {
	g.adj[i] = append(g.adj[i], j)
	g.adj[j] = append(g.adj[j], i)
}

// sortNeighbors orders every adjacency list so iteration is deterministic.
func (g *Graph) sortNeighbors() {
	for id := range g.adj {
		sort.Strings(g.adj[id])
	}
}

// IDs returns unit ids in input order.
func (g *Graph) IDs() []string {
	return g.ids
}

// Contains reports whether id is a node of the graph.
func (g *Graph) Contains(id string) bool {
	_, ok := g.adj[id]
	return ok
}

// Neighbors returns the sorted neighbor ids of a unit. Nil for islands and
// unknown ids.
func (g *Graph) Neighbors(id string) []string {
	return g.adj[id]
}

// Degree returns the number of neighbors of a unit.
func (g *Graph) Degree(id string) int {
	return len(g.adj[id])
}

// Islands returns the ids of all degree-0 units, in input order.
func (g *Graph) Islands() []string {
	var islands []string
	for _, id := range g.ids {
		if len(g.adj[id]) == 0 {
			islands = append(islands, id)
		}
	}
	return islands
}

// EdgeCount returns the number of undirected edges.
func (g *Graph) EdgeCount() int {
	var total int
	for _, nbrs := range g.adj {
		total += len(nbrs)
	}
	return total / 2
}
