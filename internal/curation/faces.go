package curation

import (
	"context"
	"math"

	"github.com/kozaktomas/face-graph/internal/apperror"
	"github.com/kozaktomas/face-graph/internal/constants"
	"github.com/kozaktomas/face-graph/internal/database"
)

// FaceInfo describes a face together with its curation state.
type FaceInfo struct {
	ID          int64   `json:"id"`
	ComponentID *int    `json:"component_id"`
	PersonName  *string `json:"person_name"`
}

// SimilarFace is a face returned by the bucketed similarity search.
type SimilarFace struct {
	FaceInfo
	Distance float64 `json:"distance"`
}

// SimilarResult is the query face and its sampled neighbors.
type SimilarResult struct {
	Query   FaceInfo      `json:"query"`
	Similar []SimilarFace `json:"similar"`
}

func (e *Engine) faceInfo(id int64) FaceInfo {
	info := FaceInfo{ID: id}
	if c, ok := e.registry.ComponentOf(id); ok {
		info.ComponentID = &c
		if p, ok := e.registry.PersonOf(c); ok {
			info.PersonName = &p.Name
		}
	}
	return info
}

// RandomFaces returns count distinct faces drawn uniformly, or every face if
// fewer exist.
func (e *Engine) RandomFaces(count int) ([]FaceInfo, error) {
	if err := checkCount("count", count); err != nil {
		return nil, err
	}
	ids := sample(e, e.table.IDs(), count)
	out := make([]FaceInfo, 0, len(ids))
	for _, id := range ids {
		out = append(out, e.faceInfo(id))
	}
	return out, nil
}

// bucketIndex maps a distance onto one of constants.SimilarBucketCount
// buckets of the given width. Bucket 0 holds [width, 2*width).
func bucketIndex(distance, width float64) int {
	idx := int(math.Floor(distance/width)) - 1
	return max(0, min(idx, constants.SimilarBucketCount-1))
}

// SimilarFaces samples faces around faceID across distance buckets. Faces
// closer than the minimum distance (the query itself and near duplicates) or
// farther than the maximum are dropped. Buckets are visited nearest first and
// each contributes up to perBucket random faces until count is reached.
func (e *Engine) SimilarFaces(faceID int64, count, perBucket int) (SimilarResult, error) {
	if err := checkCount("count", count); err != nil {
		return SimilarResult{}, err
	}
	if err := checkCount("per_bucket", perBucket); err != nil {
		return SimilarResult{}, err
	}
	query, err := e.table.VectorByID(faceID)
	if err != nil {
		return SimilarResult{}, err
	}

	buckets := make([][]SimilarFace, constants.SimilarBucketCount)
	for row, d := range e.table.Distances(query) {
		if d < e.opts.MinDistance || d > e.opts.MaxDistance {
			continue
		}
		idx := bucketIndex(d, e.opts.BucketWidth)
		buckets[idx] = append(buckets[idx], SimilarFace{
			FaceInfo: FaceInfo{ID: e.table.ID(row)},
			Distance: d,
		})
	}

	similar := make([]SimilarFace, 0, count)
	for _, bucket := range buckets {
		if len(similar) >= count {
			break
		}
		similar = append(similar, sample(e, bucket, perBucket)...)
	}
	if len(similar) > count {
		similar = similar[:count]
	}
	for i := range similar {
		similar[i].FaceInfo = e.faceInfo(similar[i].ID)
	}

	return SimilarResult{Query: e.faceInfo(faceID), Similar: similar}, nil
}

// Face returns the stored metadata of a face.
func (e *Engine) Face(ctx context.Context, faceID int64) (*database.FaceMeta, error) {
	if e.store == nil {
		return nil, apperror.NotFound("face %d", faceID)
	}
	return e.store.GetFace(ctx, faceID)
}

// FaceCrop returns the JPEG crop of a face, scaled to fit size when size > 0.
func (e *Engine) FaceCrop(faceID int64, size int) ([]byte, error) {
	if e.crops == nil {
		return nil, apperror.NotFound("no crop directory configured")
	}
	return e.crops.Load(faceID, size)
}
