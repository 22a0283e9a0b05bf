// Package graph builds, persists and partitions the face similarity graph.
package graph

import (
	"cmp"
	"slices"

	"gonum.org/v1/gonum/graph/simple"
)

// Edge is an undirected similarity edge with From < To.
type Edge struct {
	From     int64   `json:"from"`
	To       int64   `json:"to"`
	Distance float64 `json:"distance"`
}

// SimilarityGraph is an undirected, loop-free graph over face ids whose edge
// weights are cosine distances. It is not safe for concurrent mutation; once
// built it is shared read-only.
type SimilarityGraph struct {
	g     *simple.WeightedUndirectedGraph
	edges int
}

// NewSimilarityGraph returns an empty graph.
func NewSimilarityGraph() *SimilarityGraph {
	return &SimilarityGraph{g: simple.NewWeightedUndirectedGraph(0, 0)}
}

// AddNode adds a face id if it is not present yet.
func (s *SimilarityGraph) AddNode(id int64) {
	if s.g.Node(id) == nil {
		s.g.AddNode(simple.Node(id))
	}
}

// HasNode reports whether id is a node of the graph.
func (s *SimilarityGraph) HasNode(id int64) bool {
	return s.g.Node(id) != nil
}

// AddEdge stores the edge a-b keeping the smaller distance when the edge is
// already present. Self edges are ignored. Reports whether the graph changed.
func (s *SimilarityGraph) AddEdge(a, b int64, distance float64) bool {
	if a == b {
		return false
	}
	s.AddNode(a)
	s.AddNode(b)

	if e := s.g.WeightedEdge(a, b); e != nil {
		if e.Weight() <= distance {
			return false
		}
	} else {
		s.edges++
	}
	s.g.SetWeightedEdge(s.g.NewWeightedEdge(simple.Node(a), simple.Node(b), distance))
	return true
}

// Distance returns the cached distance of edge a-b.
func (s *SimilarityGraph) Distance(a, b int64) (float64, bool) {
	e := s.g.WeightedEdge(a, b)
	if e == nil {
		return 0, false
	}
	return e.Weight(), true
}

// NodeCount returns the number of nodes.
func (s *SimilarityGraph) NodeCount() int {
	return s.g.Nodes().Len()
}

// EdgeCount returns the number of edges.
func (s *SimilarityGraph) EdgeCount() int {
	return s.edges
}

// Nodes returns all node ids ascending.
func (s *SimilarityGraph) Nodes() []int64 {
	it := s.g.Nodes()
	ids := make([]int64, 0, it.Len())
	for it.Next() {
		ids = append(ids, it.Node().ID())
	}
	slices.Sort(ids)
	return ids
}

// Edges returns all edges ordered by (From, To).
func (s *SimilarityGraph) Edges() []Edge {
	out := make([]Edge, 0, s.edges)
	it := s.g.WeightedEdges()
	for it.Next() {
		e := it.WeightedEdge()
		from, to := e.From().ID(), e.To().ID()
		if from > to {
			from, to = to, from
		}
		out = append(out, Edge{From: from, To: to, Distance: e.Weight()})
	}
	slices.SortFunc(out, compareEdges)
	return out
}

// Neighbors returns the edges incident to id ordered by distance.
func (s *SimilarityGraph) Neighbors(id int64) []Edge {
	if !s.HasNode(id) {
		return nil
	}
	var out []Edge
	it := s.g.From(id)
	for it.Next() {
		other := it.Node().ID()
		d, _ := s.Distance(id, other)
		out = append(out, Edge{From: id, To: other, Distance: d})
	}
	slices.SortFunc(out, func(a, b Edge) int {
		if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
			return c
		}
		return cmp.Compare(a.To, b.To)
	})
	return out
}

func compareEdges(a, b Edge) int {
	if c := cmp.Compare(a.From, b.From); c != 0 {
		return c
	}
	return cmp.Compare(a.To, b.To)
}
