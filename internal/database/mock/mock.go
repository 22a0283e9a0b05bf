// Package mock provides an in-memory embedding store for tests.
package mock

import (
	"context"
	"slices"
	"sync"

	"github.com/kozaktomas/face-graph/internal/apperror"
	"github.com/kozaktomas/face-graph/internal/database"
)

// MockFaceStore is an in-memory implementation of database.FaceWriter.
type MockFaceStore struct {
	mu    sync.RWMutex
	faces map[int64]database.StoredFace

	// Error injection
	GetAllError    error
	GetFaceError   error
	CountError     error
	SaveFacesError error
}

// NewMockFaceStore creates an empty mock store.
func NewMockFaceStore() *MockFaceStore {
	return &MockFaceStore{faces: make(map[int64]database.StoredFace)}
}

// AddFace adds a face to the mock store.
func (m *MockFaceStore) AddFace(face database.StoredFace) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faces[face.ID] = face
}

// AddEmbeddings adds one face per vector with ids 1..n.
func (m *MockFaceStore) AddEmbeddings(vectors ...[]float32) {
	for i, v := range vectors {
		m.AddFace(database.StoredFace{
			ID:        int64(i + 1),
			ImageID:   int64(i + 1),
			ImgWidth:  100,
			ImgHeight: 100,
			BBox:      database.BBox{X: 10, Y: 10, W: 20, H: 20},
			Embedding: v,
		})
	}
}

// GetAll returns ids ascending with normalized embeddings.
func (m *MockFaceStore) GetAll(ctx context.Context) ([]int64, [][]float32, error) {
	if m.GetAllError != nil {
		return nil, nil, m.GetAllError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var ids []int64
	for id, f := range m.faces {
		if len(f.Embedding) > 0 {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)

	vectors := make([][]float32, len(ids))
	for i, id := range ids {
		vectors[i] = database.Normalize(m.faces[id].Embedding)
	}
	return ids, vectors, nil
}

// GetFace returns face metadata by id.
func (m *MockFaceStore) GetFace(ctx context.Context, id int64) (*database.FaceMeta, error) {
	if m.GetFaceError != nil {
		return nil, m.GetFaceError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	f, ok := m.faces[id]
	if !ok {
		return nil, apperror.NotFound("face %d not found", id)
	}
	meta := f.Meta()
	return &meta, nil
}

// Count returns the number of faces with an embedding.
func (m *MockFaceStore) Count(ctx context.Context) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, f := range m.faces {
		if len(f.Embedding) > 0 {
			n++
		}
	}
	return n, nil
}

// SaveFaces upserts faces.
func (m *MockFaceStore) SaveFaces(ctx context.Context, faces []database.StoredFace) error {
	if m.SaveFacesError != nil {
		return m.SaveFacesError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range faces {
		m.faces[f.ID] = f
	}
	return nil
}

var _ database.FaceWriter = (*MockFaceStore)(nil)
