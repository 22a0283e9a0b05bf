package graph

import (
	"cmp"
	"slices"

	"gonum.org/v1/gonum/graph/simple"
)

// ComponentNeighbor is an adjacent component and the smallest face distance
// between the two.
type ComponentNeighbor struct {
	ComponentID int
	Distance    float64
}

// ComponentGraph connects components that share at least one similarity edge
// within its distance limit.
type ComponentGraph struct {
	g *simple.WeightedUndirectedGraph
}

// BuildComponentGraph derives the component-level graph from the face edges
// at or below maxDistance (all edges when maxDistance <= 0). componentOf maps
// a face to its component; faces without one are skipped.
func BuildComponentGraph(s *SimilarityGraph, componentOf func(faceID int64) (int, bool), maxDistance float64) *ComponentGraph {
	cg := &ComponentGraph{g: simple.NewWeightedUndirectedGraph(0, 0)}
	for _, e := range s.Edges() {
		if maxDistance > 0 && e.Distance > maxDistance {
			continue
		}
		a, okA := componentOf(e.From)
		b, okB := componentOf(e.To)
		if !okA || !okB || a == b {
			continue
		}
		cg.addEdge(int64(a), int64(b), e.Distance)
	}
	return cg
}

func (cg *ComponentGraph) addEdge(a, b int64, distance float64) {
	for _, id := range []int64{a, b} {
		if cg.g.Node(id) == nil {
			cg.g.AddNode(simple.Node(id))
		}
	}
	if e := cg.g.WeightedEdge(a, b); e != nil && e.Weight() <= distance {
		return
	}
	cg.g.SetWeightedEdge(cg.g.NewWeightedEdge(simple.Node(a), simple.Node(b), distance))
}

// Neighbors returns adjacent components ascending by distance, at most limit
// of them when limit > 0.
func (cg *ComponentGraph) Neighbors(componentID, limit int) []ComponentNeighbor {
	id := int64(componentID)
	if cg.g.Node(id) == nil {
		return nil
	}
	var out []ComponentNeighbor
	it := cg.g.From(id)
	for it.Next() {
		other := it.Node().ID()
		out = append(out, ComponentNeighbor{
			ComponentID: int(other),
			Distance:    cg.g.WeightedEdge(id, other).Weight(),
		})
	}
	slices.SortFunc(out, func(a, b ComponentNeighbor) int {
		if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
			return c
		}
		return cmp.Compare(a.ComponentID, b.ComponentID)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
