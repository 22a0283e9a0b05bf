package graph

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/kozaktomas/face-graph/internal/constants"
	"github.com/kozaktomas/face-graph/internal/database"
)

// Builder computes a SimilarityGraph from an embedding table.
type Builder struct {
	// Threshold is the maximum distance of an edge.
	Threshold float64
	// Workers bounds the number of concurrent row scans. Zero uses constants.WorkerPoolSize.
	Workers int
	// OnProgress is called after each scanned row with the number of rows done.
	// It may be called from several goroutines.
	OnProgress func(done int)
}

// NewBuilder returns a builder using the given edge threshold.
func NewBuilder(threshold float64) *Builder {
	return &Builder{Threshold: threshold, Workers: constants.WorkerPoolSize}
}

const buildChunkSize = 256

// Build scans every face against all others. Every face becomes a node,
// faces without a neighbor within the threshold stay isolated.
// Duplicate edges keep the minimum distance.
func (b *Builder) Build(ctx context.Context, table *database.EmbeddingTable) (*SimilarityGraph, error) {
	if b.Threshold <= 0 {
		return nil, fmt.Errorf("invalid edge threshold %v", b.Threshold)
	}

	n := table.Len()
	chunks := (n + buildChunkSize - 1) / buildChunkSize
	found := make([][]Edge, chunks)

	workers := b.Workers
	if workers <= 0 {
		workers = constants.WorkerPoolSize
	}

	var done atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for c := range chunks {
		start := c * buildChunkSize
		end := min(start+buildChunkSize, n)
		g.Go(func() error {
			var edges []Edge
			for row := start; row < end; row++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				edges = append(edges, b.scanRow(table, row)...)
				d := done.Add(1)
				if b.OnProgress != nil {
					b.OnProgress(int(d))
				}
			}
			found[c] = edges
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("building similarity graph: %w", err)
	}

	sg := NewSimilarityGraph()
	for _, id := range table.IDs() {
		sg.AddNode(id)
	}
	for _, edges := range found {
		for _, e := range edges {
			sg.AddEdge(e.From, e.To, e.Distance)
		}
	}
	return sg, nil
}

// scanRow walks the neighbors of row nearest first, stopping at the threshold.
func (b *Builder) scanRow(table *database.EmbeddingTable, row int) []Edge {
	self := table.ID(row)
	var out []Edge
	for _, n := range table.Nearest(row, 0, b.Threshold) {
		if n.Row == row {
			continue
		}
		from, to := self, n.ID
		if from > to {
			from, to = to, from
		}
		out = append(out, Edge{From: from, To: to, Distance: n.Distance})
	}
	return out
}
