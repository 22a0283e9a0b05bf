// Package backend opens the configured embedding store.
package backend

import (
	"context"
	"fmt"

	"github.com/kozaktomas/face-graph/internal/config"
	"github.com/kozaktomas/face-graph/internal/database"
	"github.com/kozaktomas/face-graph/internal/database/jsonl"
	"github.com/kozaktomas/face-graph/internal/database/postgres"
)

// Open returns the face store selected by cfg.Embeddings.Backend and a
// function releasing its resources.
func Open(ctx context.Context, cfg *config.Config) (database.FaceWriter, func() error, error) {
	switch cfg.Embeddings.Backend {
	case config.BackendJSONL:
		store, err := jsonl.Open(cfg.Embeddings.FacesFile)
		if err != nil {
			return nil, nil, err
		}
		return store, func() error { return nil }, nil
	case config.BackendPostgres:
		pool, err := postgres.Open(ctx, &cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		return postgres.NewFaceRepository(pool), pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown embedding backend %q", cfg.Embeddings.Backend)
	}
}
