// Package clustering implements single-pass incremental face clustering with
// size-gated merges.
package clustering

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/google/renameio"

	"github.com/kozaktomas/face-graph/internal/apperror"
	"github.com/kozaktomas/face-graph/internal/constants"
	"github.com/kozaktomas/face-graph/internal/database"
)

// NeighborSource returns up to k nearest rows to row within maxDistance,
// ascending by distance. The row itself may be included.
type NeighborSource interface {
	Neighbors(row, k int, maxDistance float64) ([]database.Neighbor, error)
}

// Options are the clustering tunables.
type Options struct {
	K                 int     `json:"k"`
	DistanceThreshold float64 `json:"distance_threshold"`
	SizeThreshold     int     `json:"size_threshold"`
}

// DefaultOptions returns the standard policy.
func DefaultOptions() Options {
	return Options{
		K:                 constants.DefaultClusterK,
		DistanceThreshold: constants.DefaultGraphDistanceThreshold,
		SizeThreshold:     constants.DefaultClusterSizeThreshold,
	}
}

// Pair is an unordered face pair stored with A < B.
type Pair struct {
	A int64
	B int64
}

func newPair(a, b int64) Pair {
	if a > b {
		a, b = b, a
	}
	return Pair{A: a, B: b}
}

// MarshalJSON encodes the pair as a two element array.
func (p Pair) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int64{p.A, p.B})
}

// Engine assigns faces to clusters in ascending id order. Cluster ids are the
// id of the face that founded them. A cluster id retired by a merge is never
// reused.
type Engine struct {
	opts   Options
	table  *database.EmbeddingTable
	source NeighborSource

	assignments map[int64]int64
	sizes       map[int64]int
	members     map[int64][]int64
	suspicious  map[Pair]struct{}

	// OnProgress is called after each processed face.
	OnProgress func(done, total int)
}

// NewEngine creates an engine over table. A nil source uses the exact dense scan.
func NewEngine(table *database.EmbeddingTable, source NeighborSource, opts Options) *Engine {
	if source == nil {
		source = table
	}
	return &Engine{
		opts:        opts,
		table:       table,
		source:      source,
		assignments: make(map[int64]int64),
		sizes:       make(map[int64]int),
		members:     make(map[int64][]int64),
		suspicious:  make(map[Pair]struct{}),
	}
}

// Run processes every face of the table.
func (e *Engine) Run(ctx context.Context) error {
	total := e.table.Len()
	for row := range total {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.Process(row); err != nil {
			return err
		}
		if e.OnProgress != nil {
			e.OnProgress(row+1, total)
		}
	}
	return nil
}

// Process visits the face at row: it founds a cluster if the face is new,
// then absorbs unvisited neighbors and tries to merge visited ones.
func (e *Engine) Process(row int) error {
	if row < 0 || row >= e.table.Len() {
		return apperror.BadInput("row %d out of range", row)
	}
	face := e.table.ID(row)
	if _, ok := e.assignments[face]; !ok {
		e.found(face)
	}

	neighbors, err := e.source.Neighbors(row, e.opts.K, e.opts.DistanceThreshold)
	if err != nil {
		return fmt.Errorf("neighbors of face %d: %w", face, err)
	}

	current := e.assignments[face]
	for _, n := range neighbors {
		if n.ID == face {
			continue
		}
		if n.Distance > e.opts.DistanceThreshold {
			break
		}
		cluster, visited := e.assignments[n.ID]
		switch {
		case !visited:
			e.absorb(current, n.ID)
		case cluster != current:
			current, err = e.MergeClusters(face, n.ID)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Engine) found(face int64) {
	e.assignments[face] = face
	e.sizes[face] = 1
	e.members[face] = []int64{face}
}

func (e *Engine) absorb(cluster, face int64) {
	e.assignments[face] = cluster
	e.sizes[cluster]++
	e.members[cluster] = append(e.members[cluster], face)
}

// MergeClusters merges the clusters of faceA and faceB when at least one of
// them is within the size threshold. The larger cluster wins, ties keep
// faceA's cluster. When both clusters are too large the face pair is logged as
// suspicious and nothing changes. Returns the cluster faceA belongs to afterwards.
func (e *Engine) MergeClusters(faceA, faceB int64) (int64, error) {
	a, ok := e.assignments[faceA]
	if !ok {
		return 0, apperror.BadInput("face %d has not been visited", faceA)
	}
	b, ok := e.assignments[faceB]
	if !ok {
		return 0, apperror.BadInput("face %d has not been visited", faceB)
	}
	if a == b {
		return a, nil
	}

	if !e.mergeable(a, b) {
		e.suspicious[newPair(faceA, faceB)] = struct{}{}
		return a, nil
	}

	winner, loser := a, b
	if e.sizes[b] > e.sizes[a] {
		winner, loser = b, a
	}
	for _, f := range e.members[loser] {
		e.assignments[f] = winner
	}
	e.members[winner] = append(e.members[winner], e.members[loser]...)
	e.sizes[winner] += e.sizes[loser]
	delete(e.members, loser)
	delete(e.sizes, loser)
	return winner, nil
}

func (e *Engine) mergeable(a, b int64) bool {
	return e.sizes[a] <= e.opts.SizeThreshold || e.sizes[b] <= e.opts.SizeThreshold
}

// Assignments returns a copy of the face to cluster map.
func (e *Engine) Assignments() map[int64]int64 {
	return maps.Clone(e.assignments)
}

// ClusterSizes returns a copy of the cluster size table.
func (e *Engine) ClusterSizes() map[int64]int {
	return maps.Clone(e.sizes)
}

// SuspiciousPairs returns the logged pairs ordered by (A, B).
func (e *Engine) SuspiciousPairs() []Pair {
	out := slices.Collect(maps.Keys(e.suspicious))
	slices.SortFunc(out, func(x, y Pair) int {
		if c := cmp.Compare(x.A, y.A); c != 0 {
			return c
		}
		return cmp.Compare(x.B, y.B)
	})
	return out
}

// Result is the persisted outcome of a run.
type Result struct {
	Assignments     map[int64]int64 `json:"assignments"`
	ClusterSizes    map[int64]int   `json:"cluster_sizes"`
	SuspiciousPairs []Pair          `json:"suspicious_pairs"`
}

// Result snapshots the engine state.
func (e *Engine) Result() Result {
	pairs := e.SuspiciousPairs()
	if pairs == nil {
		pairs = []Pair{}
	}
	return Result{
		Assignments:     e.Assignments(),
		ClusterSizes:    e.ClusterSizes(),
		SuspiciousPairs: pairs,
	}
}

// Summary returns the number of clusters, the largest cluster size and the
// number of singleton clusters.
func (r Result) Summary() (clusters, largest, singletons int) {
	for _, size := range r.ClusterSizes {
		clusters++
		largest = max(largest, size)
		if size == 1 {
			singletons++
		}
	}
	return clusters, largest, singletons
}

// WriteFile atomically writes the result as JSON.
func (r Result) WriteFile(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling clustering result: %w", err)
	}
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing clustering result: %w", err)
	}
	return nil
}
