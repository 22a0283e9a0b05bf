// Package curation serves the interactive curation workflow: face sampling,
// bucketed similarity search, component inspection, subdivision and identity
// assignment.
package curation

import (
	"context"
	"math/rand/v2"
	"sync"

	"github.com/kozaktomas/face-graph/internal/apperror"
	"github.com/kozaktomas/face-graph/internal/config"
	"github.com/kozaktomas/face-graph/internal/constants"
	"github.com/kozaktomas/face-graph/internal/database"
	"github.com/kozaktomas/face-graph/internal/graph"
	"github.com/kozaktomas/face-graph/internal/imaging"
	"github.com/kozaktomas/face-graph/internal/logger"
	"github.com/kozaktomas/face-graph/internal/registry"
)

// Options tune the query engine.
type Options struct {
	Partitioner            graph.Partitioner
	ComponentNeighborLimit int
	ComponentSampleSize    int
	BucketWidth            float64
	MinDistance            float64
	MaxDistance            float64

	// ComponentDistance bounds the face edges that link two components.
	ComponentDistance float64

	// Seed makes sampling reproducible. Zero seeds from the runtime.
	Seed uint64
}

// DefaultOptions returns the standard tunables.
func DefaultOptions() Options {
	return Options{
		Partitioner:            graph.Partitioner{Resolution: 1},
		ComponentNeighborLimit: 20,
		ComponentDistance:      constants.ComponentDistanceThreshold,
		ComponentSampleSize:    20,
		BucketWidth:            constants.SimilarBucketWidth,
		MinDistance:            constants.SimilarMinDistance,
		MaxDistance:            constants.SimilarMaxDistance,
	}
}

// OptionsFromConfig maps configuration onto engine options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Partitioner: graph.Partitioner{
			Resolution: cfg.Graph.PartitionResolution,
			Seed:       cfg.Graph.PartitionSeed,
		},
		ComponentNeighborLimit: cfg.Graph.ComponentNeighborLimit,
		ComponentDistance:      cfg.Graph.ComponentDistanceThreshold,
		ComponentSampleSize:    cfg.Curation.ComponentSampleSize,
		BucketWidth:            cfg.Curation.BucketWidth,
		MinDistance:            cfg.Curation.MinDistance,
		MaxDistance:            cfg.Curation.MaxDistance,
		Seed:                   cfg.Graph.PartitionSeed,
	}
}

// Deps are the loaded structures the engine reads and writes.
type Deps struct {
	Table    *database.EmbeddingTable
	Store    database.EmbeddingStore
	Graph    *graph.SimilarityGraph
	Registry *registry.Registry
	Crops    *imaging.CropStore
	Log      *logger.Logger
}

// Engine is the curation context object. The embedding table and similarity
// graph are read-only; registry mutations are serialized by the registry.
type Engine struct {
	table    *database.EmbeddingTable
	store    database.EmbeddingStore
	graph    *graph.SimilarityGraph
	registry *registry.Registry
	crops    *imaging.CropStore
	log      *logger.Logger
	opts     Options

	rngMu sync.Mutex
	rng   *rand.Rand

	componentsMu sync.RWMutex
	components   *graph.ComponentGraph
}

// New creates an engine over loaded dependencies.
func New(deps Deps, opts Options) (*Engine, error) {
	if deps.Table == nil || deps.Graph == nil || deps.Registry == nil {
		return nil, apperror.DataIntegrity(nil, "curation engine requires embeddings, graph and components")
	}
	log := deps.Log
	if log == nil {
		log = logger.Discard()
	}

	seed1, seed2 := opts.Seed, opts.Seed
	if opts.Seed == 0 {
		seed1, seed2 = rand.Uint64(), rand.Uint64()
	}

	e := &Engine{
		table:    deps.Table,
		store:    deps.Store,
		graph:    deps.Graph,
		registry: deps.Registry,
		crops:    deps.Crops,
		log:      log,
		opts:     opts,
		rng:      rand.New(rand.NewPCG(seed1, seed2)),
	}
	e.rebuildComponentGraph()
	return e, nil
}

// Load reads every persisted structure named by cfg. Any missing or broken
// file fails with a data integrity error.
func Load(ctx context.Context, cfg *config.Config, store database.EmbeddingStore, log *logger.Logger) (*Engine, error) {
	table, err := database.LoadEmbeddingTable(ctx, store)
	if err != nil {
		return nil, err
	}
	g, err := graph.LoadFile(cfg.GraphPath())
	if err != nil {
		return nil, err
	}
	reg, err := registry.Open(registry.NewFileStore(cfg))
	if err != nil {
		return nil, err
	}

	log.WithField("faces", table.Len()).
		WithField("nodes", g.NodeCount()).
		WithField("edges", g.EdgeCount()).
		WithField("registry", reg.String()).
		Info("curation data loaded")

	return New(Deps{
		Table:    table,
		Store:    store,
		Graph:    g,
		Registry: reg,
		Crops:    imaging.NewCropStore(cfg.FaceCropsDir()),
		Log:      log,
	}, OptionsFromConfig(cfg))
}

// Registry exposes the component and identity registry.
func (e *Engine) Registry() *registry.Registry {
	return e.registry
}

func (e *Engine) rebuildComponentGraph() {
	cg := graph.BuildComponentGraph(e.graph, e.registry.ComponentOf, e.opts.ComponentDistance)
	e.componentsMu.Lock()
	e.components = cg
	e.componentsMu.Unlock()
}

func (e *Engine) componentGraph() *graph.ComponentGraph {
	e.componentsMu.RLock()
	defer e.componentsMu.RUnlock()
	return e.components
}

func (e *Engine) withRand(fn func(r *rand.Rand)) {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	fn(e.rng)
}

// sample returns up to n distinct random elements of items.
func sample[T any](e *Engine, items []T, n int) []T {
	if n >= len(items) {
		n = len(items)
	}
	out := make([]T, 0, n)
	e.withRand(func(r *rand.Rand) {
		for _, i := range r.Perm(len(items))[:n] {
			out = append(out, items[i])
		}
	})
	return out
}

func (e *Engine) randomMember(members []int64) *int64 {
	if len(members) == 0 {
		return nil
	}
	id := members[e.randomIndex(len(members))]
	return &id
}

func (e *Engine) randomIndex(n int) int {
	var i int
	e.withRand(func(r *rand.Rand) { i = r.IntN(n) })
	return i
}

func checkCount(name string, v int) error {
	if v < 1 || v > constants.MaxRequestCount {
		return apperror.BadInput("%s must be between 1 and %d", name, constants.MaxRequestCount)
	}
	return nil
}

// Table exposes the embedding table for background runs over all faces.
func (e *Engine) Table() *database.EmbeddingTable {
	return e.table
}
