package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/kozaktomas/face-graph/internal/apperror"
	"github.com/kozaktomas/face-graph/internal/database"
)

// FaceRepository provides PostgreSQL-backed face storage.
type FaceRepository struct {
	pool *Pool
}

// NewFaceRepository creates a new PostgreSQL face repository.
func NewFaceRepository(pool *Pool) *FaceRepository {
	return &FaceRepository{pool: pool}
}

// GetAll returns ids ascending with normalized embeddings.
func (r *FaceRepository) GetAll(ctx context.Context) ([]int64, [][]float32, error) {
	rows, err := r.pool.Query(ctx, "SELECT id, embedding FROM faces WHERE embedding IS NOT NULL ORDER BY id")
	if err != nil {
		return nil, nil, fmt.Errorf("query embeddings: %w", err)
	}
	defer rows.Close()

	var ids []int64
	var vectors [][]float32
	for rows.Next() {
		var id int64
		var vec pgvector.Vector
		if err := rows.Scan(&id, &vec); err != nil {
			return nil, nil, fmt.Errorf("scan embedding: %w", err)
		}
		ids = append(ids, id)
		vectors = append(vectors, database.Normalize(vec.Slice()))
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate embeddings: %w", err)
	}
	return ids, vectors, nil
}

// GetFace returns face metadata by id.
func (r *FaceRepository) GetFace(ctx context.Context, id int64) (*database.FaceMeta, error) {
	row := r.pool.QueryRow(ctx, "SELECT id, image_id, img_width, img_height, bbox FROM faces WHERE id = $1", id)
	meta, err := scanFaceMeta(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("face %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return meta, nil
}

// Count returns the number of faces with an embedding.
func (r *FaceRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM faces WHERE embedding IS NOT NULL").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count faces: %w", err)
	}
	return count, nil
}

// SaveFaces upserts faces by id in one transaction.
func (r *FaceRepository) SaveFaces(ctx context.Context, faces []database.StoredFace) error {
	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO faces (id, image_id, img_width, img_height, bbox, embedding)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			image_id = EXCLUDED.image_id,
			img_width = EXCLUDED.img_width,
			img_height = EXCLUDED.img_height,
			bbox = EXCLUDED.bbox,
			embedding = EXCLUDED.embedding
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i := range faces {
		face := &faces[i]
		var vec any
		if len(face.Embedding) > 0 {
			vec = pgvector.NewVector(face.Embedding)
		}
		bbox := pq.Array([]int64{int64(face.BBox.X), int64(face.BBox.Y), int64(face.BBox.W), int64(face.BBox.H)})
		if _, err := stmt.ExecContext(ctx, face.ID, face.ImageID, face.ImgWidth, face.ImgHeight, bbox, vec); err != nil {
			return fmt.Errorf("insert face %d: %w", face.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func scanFaceMeta(scanner interface{ Scan(...any) error }) (*database.FaceMeta, error) {
	var meta database.FaceMeta
	var bbox pq.Int64Array
	if err := scanner.Scan(&meta.ID, &meta.ImageID, &meta.ImgWidth, &meta.ImgHeight, &bbox); err != nil {
		return nil, fmt.Errorf("scan face: %w", err)
	}
	if len(bbox) != 4 {
		return nil, fmt.Errorf("face %d has malformed bbox %v", meta.ID, []int64(bbox))
	}
	meta.BBox = database.BBox{X: int(bbox[0]), Y: int(bbox[1]), W: int(bbox[2]), H: int(bbox[3])}
	return &meta, nil
}
