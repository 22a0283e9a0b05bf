package database

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/kozaktomas/face-graph/internal/apperror"
)

// Neighbor is one entry of a nearest-neighbor scan.
type Neighbor struct {
	Row      int
	ID       int64
	Distance float64
}

// EmbeddingTable is an immutable in-memory snapshot of all face embeddings,
// ordered by face id. It is safe for concurrent reads.
type EmbeddingTable struct {
	ids     []int64
	vectors [][]float32
	index   map[int64]int
}

// NewEmbeddingTable builds a table from parallel id and vector slices.
// Vectors are normalized to unit length; ids must be unique.
func NewEmbeddingTable(ids []int64, vectors [][]float32) (*EmbeddingTable, error) {
	if len(ids) != len(vectors) {
		return nil, fmt.Errorf("embedding table: %d ids but %d vectors", len(ids), len(vectors))
	}

	order := make([]int, len(ids))
	for i := range order {
		order[i] = i
	}
	slices.SortFunc(order, func(a, b int) int { return cmp.Compare(ids[a], ids[b]) })

	t := &EmbeddingTable{
		ids:     make([]int64, len(ids)),
		vectors: make([][]float32, len(ids)),
		index:   make(map[int64]int, len(ids)),
	}
	dim := -1
	for row, src := range order {
		id := ids[src]
		if _, dup := t.index[id]; dup {
			return nil, fmt.Errorf("embedding table: duplicate face id %d", id)
		}
		if dim == -1 {
			dim = len(vectors[src])
		} else if len(vectors[src]) != dim {
			return nil, fmt.Errorf("embedding table: face %d has dimension %d, expected %d", id, len(vectors[src]), dim)
		}
		t.ids[row] = id
		t.vectors[row] = Normalize(vectors[src])
		t.index[id] = row
	}
	return t, nil
}

// LoadEmbeddingTable reads every embedding from the store.
// Any failure is reported as a data integrity error.
func LoadEmbeddingTable(ctx context.Context, store EmbeddingStore) (*EmbeddingTable, error) {
	ids, vectors, err := store.GetAll(ctx)
	if err != nil {
		return nil, apperror.DataIntegrity(err, "loading embeddings")
	}
	t, err := NewEmbeddingTable(ids, vectors)
	if err != nil {
		return nil, apperror.DataIntegrity(err, "building embedding table")
	}
	return t, nil
}

// Len returns the number of faces.
func (t *EmbeddingTable) Len() int {
	return len(t.ids)
}

// IDs returns face ids in ascending order. The slice must not be modified.
func (t *EmbeddingTable) IDs() []int64 {
	return t.ids
}

// ID returns the face id at row.
func (t *EmbeddingTable) ID(row int) int64 {
	return t.ids[row]
}

// Vector returns the unit vector at row.
func (t *EmbeddingTable) Vector(row int) []float32 {
	return t.vectors[row]
}

// Row returns the row of a face id.
func (t *EmbeddingTable) Row(id int64) (int, bool) {
	row, ok := t.index[id]
	return row, ok
}

// VectorByID returns the unit vector of a face or a NotFound error.
func (t *EmbeddingTable) VectorByID(id int64) ([]float32, error) {
	row, ok := t.index[id]
	if !ok {
		return nil, apperror.NotFound("face %d not found", id)
	}
	return t.vectors[row], nil
}

// MaxID returns the highest face id, or 0 for an empty table.
func (t *EmbeddingTable) MaxID() int64 {
	if len(t.ids) == 0 {
		return 0
	}
	return t.ids[len(t.ids)-1]
}

// Distances computes the cosine distance from query to every row.
func (t *EmbeddingTable) Distances(query []float32) []float64 {
	out := make([]float64, len(t.vectors))
	for i, v := range t.vectors {
		out[i] = UnitDistance(query, v)
	}
	return out
}

// Nearest returns the rows closest to row, ascending by distance, keeping only
// those within maxDistance. The row itself is included. k <= 0 means no limit.
// Equal distances keep id order.
func (t *EmbeddingTable) Nearest(row, k int, maxDistance float64) []Neighbor {
	return t.nearestTo(t.vectors[row], k, maxDistance)
}

// Neighbors implements the clustering neighbor source over the dense scan.
func (t *EmbeddingTable) Neighbors(row, k int, maxDistance float64) ([]Neighbor, error) {
	return t.Nearest(row, k, maxDistance), nil
}

func (t *EmbeddingTable) nearestTo(query []float32, k int, maxDistance float64) []Neighbor {
	var out []Neighbor
	for i, v := range t.vectors {
		d := UnitDistance(query, v)
		if d > maxDistance {
			continue
		}
		out = append(out, Neighbor{Row: i, ID: t.ids[i], Distance: d})
	}
	slices.SortStableFunc(out, func(a, b Neighbor) int { return cmp.Compare(a.Distance, b.Distance) })
	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out
}
