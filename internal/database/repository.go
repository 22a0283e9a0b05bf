package database

import (
	"context"
)

// EmbeddingStore provides read-only access to face embeddings.
type EmbeddingStore interface {
	// GetAll returns all face ids in ascending order together with their
	// L2-normalized embeddings. Faces without an embedding are omitted.
	GetAll(ctx context.Context) ([]int64, [][]float32, error)
	// GetFace returns face metadata by id. Fails with apperror.ErrNotFound for unknown ids.
	GetFace(ctx context.Context, id int64) (*FaceMeta, error)
	// Count returns the number of faces with an embedding.
	Count(ctx context.Context) (int, error)
}

// FaceWriter stores faces produced by the embedding pipeline.
type FaceWriter interface {
	EmbeddingStore

	// SaveFaces upserts faces by id.
	SaveFaces(ctx context.Context, faces []StoredFace) error
}
