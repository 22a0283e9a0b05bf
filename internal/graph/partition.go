package graph

import (
	"cmp"
	"iter"
	"math/rand/v2"
	"slices"

	"gonum.org/v1/gonum/graph/community"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/kozaktomas/face-graph/internal/apperror"
)

// Partitioner runs Louvain modularity optimization over a similarity graph.
// Edges are weighted by similarity (1 - distance) so closer faces attract
// more strongly.
type Partitioner struct {
	Resolution float64
	// Seed makes runs reproducible. Zero leaves the run unseeded.
	Seed uint64
}

// Partition splits every node of g into disjoint, non-empty communities.
// Communities are sorted by size descending, then by smallest member; members
// are sorted ascending.
func (p Partitioner) Partition(g *SimilarityGraph) [][]int64 {
	return p.run(g.Nodes(), func(yield func(Edge) bool) {
		for _, e := range g.Edges() {
			if !yield(e) {
				return
			}
		}
	})
}

// PartitionNodes partitions the subgraph induced by nodes. Unknown nodes are
// rejected with a NotFound error.
func (p Partitioner) PartitionNodes(g *SimilarityGraph, nodes []int64) ([][]int64, error) {
	in := make(map[int64]bool, len(nodes))
	for _, id := range nodes {
		if !g.HasNode(id) {
			return nil, apperror.NotFound("face %d is not in the similarity graph", id)
		}
		in[id] = true
	}

	unique := make([]int64, 0, len(in))
	for id := range in {
		unique = append(unique, id)
	}
	slices.Sort(unique)

	return p.run(unique, func(yield func(Edge) bool) {
		for _, id := range unique {
			for _, e := range g.Neighbors(id) {
				if e.To <= id || !in[e.To] {
					continue
				}
				if !yield(e) {
					return
				}
			}
		}
	}), nil
}

func (p Partitioner) run(nodes []int64, edges iter.Seq[Edge]) [][]int64 {
	wg := simple.NewWeightedUndirectedGraph(0, 0)
	for _, id := range nodes {
		wg.AddNode(simple.Node(id))
	}
	edgeCount := 0
	for e := range edges {
		wg.SetWeightedEdge(wg.NewWeightedEdge(simple.Node(e.From), simple.Node(e.To), similarityWeight(e.Distance)))
		edgeCount++
	}

	if edgeCount == 0 {
		return singletons(nodes)
	}

	var src rand.Source
	if p.Seed != 0 {
		src = rand.NewPCG(p.Seed, p.Seed)
	}
	resolution := p.Resolution
	if resolution <= 0 {
		resolution = 1
	}

	reduced := community.Modularize(wg, resolution, src)

	seen := make(map[int64]bool, len(nodes))
	var out [][]int64
	for _, c := range reduced.Communities() {
		if len(c) == 0 {
			continue
		}
		members := make([]int64, 0, len(c))
		for _, n := range c {
			members = append(members, n.ID())
			seen[n.ID()] = true
		}
		out = append(out, members)
	}
	for _, id := range nodes {
		if !seen[id] {
			out = append(out, []int64{id})
		}
	}
	return sortCommunities(out)
}

// similarityWeight keeps every edge weight strictly positive.
func similarityWeight(distance float64) float64 {
	return max(1-distance, 1e-9)
}

func singletons(nodes []int64) [][]int64 {
	out := make([][]int64, len(nodes))
	for i, id := range nodes {
		out[i] = []int64{id}
	}
	return sortCommunities(out)
}

func sortCommunities(cs [][]int64) [][]int64 {
	for _, c := range cs {
		slices.Sort(c)
	}
	slices.SortFunc(cs, func(a, b []int64) int {
		if c := cmp.Compare(len(b), len(a)); c != 0 {
			return c
		}
		return cmp.Compare(a[0], b[0])
	})
	return cs
}
