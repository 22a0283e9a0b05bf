package database

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/coder/hnsw"
	"github.com/google/renameio"
)

// HNSWIndexMetadata stores metadata for validating cached HNSW indexes.
type HNSWIndexMetadata struct {
	FaceCount int64     `json:"face_count"`
	MaxFaceID int64     `json:"max_face_id"`
	BuildTime time.Time `json:"build_time"`
	Version   int       `json:"version"`
}

const hnswMetadataVersion = 2

// ErrIndexStale is returned by LoadHNSWIndex when the cached index does not
// match the embedding table.
var ErrIndexStale = errors.New("hnsw index is stale")

// HNSWIndex is an approximate nearest-neighbor index over an EmbeddingTable.
// Results are re-scored against the table, so distances are exact.
type HNSWIndex struct {
	graph *hnsw.Graph[int64]
	table *EmbeddingTable
	mu    sync.RWMutex
}

func newGraph() *hnsw.Graph[int64] {
	g := hnsw.NewGraph[int64]()
	g.M = HNSWMaxNeighbors
	g.Ml = 1.0 / float64(HNSWMaxNeighbors)
	g.EfSearch = HNSWEfSearch
	g.Distance = hnsw.CosineDistance
	return g
}

// BuildHNSWIndex indexes every row of the table.
func BuildHNSWIndex(table *EmbeddingTable) *HNSWIndex {
	g := newGraph()
	for row := range table.Len() {
		g.Add(hnsw.MakeNode(table.ID(row), table.Vector(row)))
	}
	return &HNSWIndex{graph: g, table: table}
}

// Len returns the number of indexed faces.
func (h *HNSWIndex) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.graph.Len()
}

// Search finds the k nearest faces to query. Returns face ids and distances
// in ascending distance order.
func (h *HNSWIndex) Search(query []float32, k int) ([]int64, []float64, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.graph == nil || h.graph.Len() == 0 {
		return nil, nil, errors.New("index not initialized")
	}

	nodes := h.graph.Search(query, k)
	found := make([]Neighbor, 0, len(nodes))
	for _, n := range nodes {
		row, ok := h.table.Row(n.Key)
		if !ok {
			continue
		}
		found = append(found, Neighbor{Row: row, ID: n.Key, Distance: UnitDistance(query, h.table.Vector(row))})
	}
	slices.SortStableFunc(found, func(a, b Neighbor) int { return cmp.Compare(a.Distance, b.Distance) })

	ids := make([]int64, len(found))
	distances := make([]float64, len(found))
	for i, n := range found {
		ids[i] = n.ID
		distances[i] = n.Distance
	}
	return ids, distances, nil
}

// Neighbors returns up to k approximate nearest rows to row within maxDistance.
// The row itself is always part of the result.
func (h *HNSWIndex) Neighbors(row, k int, maxDistance float64) ([]Neighbor, error) {
	query := h.table.Vector(row)
	ids, distances, err := h.Search(query, k)
	if err != nil {
		return nil, err
	}

	out := make([]Neighbor, 0, len(ids)+1)
	out = append(out, Neighbor{Row: row, ID: h.table.ID(row), Distance: 0})
	for i, id := range ids {
		if id == h.table.ID(row) {
			continue
		}
		if distances[i] > maxDistance {
			break
		}
		r, _ := h.table.Row(id)
		out = append(out, Neighbor{Row: r, ID: id, Distance: distances[i]})
	}
	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out, nil
}

// Metadata describes the table the index was built from.
func (h *HNSWIndex) Metadata() HNSWIndexMetadata {
	return HNSWIndexMetadata{
		FaceCount: int64(h.table.Len()),
		MaxFaceID: h.table.MaxID(),
		BuildTime: time.Now().UTC(),
		Version:   hnswMetadataVersion,
	}
}

// Save writes the graph to path and its metadata to path+".meta".
// Both files are replaced atomically.
func (h *HNSWIndex) Save(path string) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	f, err := renameio.TempFile("", path)
	if err != nil {
		return fmt.Errorf("creating HNSW index file: %w", err)
	}
	defer f.Cleanup() //nolint:errcheck

	if err := h.graph.Export(f); err != nil {
		return fmt.Errorf("exporting HNSW graph: %w", err)
	}
	if err := f.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("writing HNSW index file: %w", err)
	}

	metaData, err := json.Marshal(h.Metadata())
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}
	if err := renameio.WriteFile(path+".meta", metaData, 0o600); err != nil {
		return fmt.Errorf("writing metadata file: %w", err)
	}
	return nil
}

// LoadHNSWMetadata loads metadata from a separate .meta file.
func LoadHNSWMetadata(path string) (HNSWIndexMetadata, error) {
	var metadata HNSWIndexMetadata

	data, err := os.ReadFile(path + ".meta") //nolint:gosec // path is from trusted config
	if err != nil {
		return metadata, fmt.Errorf("reading metadata file: %w", err)
	}
	if err := json.Unmarshal(data, &metadata); err != nil {
		return metadata, fmt.Errorf("unmarshaling metadata: %w", err)
	}
	return metadata, nil
}

// LoadHNSWIndex loads a cached index for table. It returns ErrIndexStale when
// the cache was built from a different set of faces.
func LoadHNSWIndex(path string, table *EmbeddingTable) (*HNSWIndex, error) {
	meta, err := LoadHNSWMetadata(path)
	if err != nil {
		return nil, err
	}
	if meta.Version != hnswMetadataVersion || meta.FaceCount != int64(table.Len()) || meta.MaxFaceID != table.MaxID() {
		return nil, ErrIndexStale
	}

	saved, err := hnsw.LoadSavedGraph[int64](path)
	if err != nil {
		return nil, fmt.Errorf("loading HNSW index: %w", err)
	}
	saved.EfSearch = HNSWEfSearch
	return &HNSWIndex{graph: saved.Graph, table: table}, nil
}

// LoadOrBuildHNSWIndex returns the cached index when it is fresh, otherwise
// builds a new one and caches it. An empty path disables caching.
func LoadOrBuildHNSWIndex(path string, table *EmbeddingTable) (*HNSWIndex, error) {
	if path != "" {
		idx, err := LoadHNSWIndex(path, table)
		if err == nil {
			return idx, nil
		}
	}

	idx := BuildHNSWIndex(table)
	if path != "" {
		if err := idx.Save(path); err != nil {
			return nil, err
		}
	}
	return idx, nil
}
