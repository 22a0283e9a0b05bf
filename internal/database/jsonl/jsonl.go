// Package jsonl implements the embedding store on top of a faces.jsonl file.
package jsonl

import (
	"bufio"
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"sync"

	"github.com/google/renameio"

	"github.com/kozaktomas/face-graph/internal/apperror"
	"github.com/kozaktomas/face-graph/internal/database"
)

const maxLineSize = 16 * 1024 * 1024

// faceRecord is one line of faces.jsonl.
type faceRecord struct {
	ID        int64     `json:"id"`
	ImageID   int64     `json:"image_id"`
	ImgWidth  int       `json:"img_width"`
	ImgHeight int       `json:"img_height"`
	X         int       `json:"x"`
	Y         int       `json:"y"`
	W         int       `json:"w"`
	H         int       `json:"h"`
	Emb       []float32 `json:"emb"`
}

func (r faceRecord) toFace() database.StoredFace {
	return database.StoredFace{
		ID:        r.ID,
		ImageID:   r.ImageID,
		ImgWidth:  r.ImgWidth,
		ImgHeight: r.ImgHeight,
		BBox:      database.BBox{X: r.X, Y: r.Y, W: r.W, H: r.H},
		Embedding: r.Emb,
	}
}

func fromFace(f database.StoredFace) faceRecord {
	return faceRecord{
		ID:        f.ID,
		ImageID:   f.ImageID,
		ImgWidth:  f.ImgWidth,
		ImgHeight: f.ImgHeight,
		X:         f.BBox.X,
		Y:         f.BBox.Y,
		W:         f.BBox.W,
		H:         f.BBox.H,
		Emb:       f.Embedding,
	}
}

// Store keeps all faces of a jsonl file in memory.
type Store struct {
	path  string
	mu    sync.RWMutex
	faces map[int64]database.StoredFace
}

// Open reads the file at path. A missing file yields an empty store.
func Open(path string) (*Store, error) {
	s := &Store{path: path, faces: make(map[int64]database.StoredFace)}

	f, err := os.Open(path) //nolint:gosec // path is from trusted config
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening faces file: %w", err)
	}
	defer f.Close()

	if err := s.read(f); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return s, nil
}

func (s *Store) read(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	line := 0
	for scanner.Scan() {
		line++
		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 {
			continue
		}
		var rec faceRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		s.faces[rec.ID] = rec.toFace()
	}
	return scanner.Err()
}

// GetAll returns face ids ascending with normalized embeddings.
func (s *Store) GetAll(ctx context.Context) ([]int64, [][]float32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]int64, 0, len(s.faces))
	for id, f := range s.faces {
		if len(f.Embedding) > 0 {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)

	vectors := make([][]float32, len(ids))
	for i, id := range ids {
		vectors[i] = database.Normalize(s.faces[id].Embedding)
	}
	return ids, vectors, nil
}

// GetFace returns face metadata.
func (s *Store) GetFace(ctx context.Context, id int64) (*database.FaceMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.faces[id]
	if !ok {
		return nil, apperror.NotFound("face %d not found", id)
	}
	meta := f.Meta()
	return &meta, nil
}

// Count returns the number of faces with an embedding.
func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, f := range s.faces {
		if len(f.Embedding) > 0 {
			n++
		}
	}
	return n, nil
}

// Faces returns every stored face ordered by id.
func (s *Store) Faces() []database.StoredFace {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]database.StoredFace, 0, len(s.faces))
	for _, f := range s.faces {
		out = append(out, f)
	}
	slices.SortFunc(out, func(a, b database.StoredFace) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// SaveFaces upserts faces and rewrites the file atomically.
func (s *Store) SaveFaces(ctx context.Context, faces []database.StoredFace) error {
	s.mu.Lock()
	for _, f := range faces {
		s.faces[f.ID] = f
	}
	s.mu.Unlock()

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, f := range s.Faces() {
		if err := enc.Encode(fromFace(f)); err != nil {
			return fmt.Errorf("encoding face %d: %w", f.ID, err)
		}
	}
	if err := renameio.WriteFile(s.path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing faces file: %w", err)
	}
	return nil
}
