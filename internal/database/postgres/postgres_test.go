//go:build integration

package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kozaktomas/face-graph/internal/apperror"
	"github.com/kozaktomas/face-graph/internal/config"
	"github.com/kozaktomas/face-graph/internal/database"
)

func setupTestContainer(t *testing.T) (*Pool, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "pgvector/pgvector:pg16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil || container == nil {
		t.Skipf("Docker not available, skipping integration test: %v", err)
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	cfg := &config.DatabaseConfig{
		URL:          fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port()),
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}

	pool, err := Open(ctx, cfg)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to open pool: %v", err)
	}

	return pool, func() {
		pool.Close()
		container.Terminate(ctx)
	}
}

func embedding(hot int) []float32 {
	v := make([]float32, 512)
	v[hot] = 2
	return v
}

func TestFaceRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := NewFaceRepository(pool)

	faces := []database.StoredFace{
		{ID: 7, ImageID: 1, ImgWidth: 640, ImgHeight: 480, BBox: database.BBox{X: 1, Y: 2, W: 3, H: 4}, Embedding: embedding(0)},
		{ID: 3, ImageID: 1, ImgWidth: 640, ImgHeight: 480, BBox: database.BBox{X: 5, Y: 6, W: 7, H: 8}, Embedding: embedding(1)},
		{ID: 9, ImageID: 2, BBox: database.BBox{}},
	}
	if err := repo.SaveFaces(ctx, faces); err != nil {
		t.Fatalf("SaveFaces() error = %v", err)
	}

	t.Run("GetAll", func(t *testing.T) {
		ids, vectors, err := repo.GetAll(ctx)
		if err != nil {
			t.Fatalf("GetAll() error = %v", err)
		}
		if len(ids) != 2 || ids[0] != 3 || ids[1] != 7 {
			t.Fatalf("expected ids [3 7], got %v", ids)
		}
		if vectors[0][1] != 1 {
			t.Errorf("expected normalized vector, got %v", vectors[0][:2])
		}
	})

	t.Run("GetFace", func(t *testing.T) {
		meta, err := repo.GetFace(ctx, 7)
		if err != nil {
			t.Fatalf("GetFace() error = %v", err)
		}
		if meta.BBox != (database.BBox{X: 1, Y: 2, W: 3, H: 4}) {
			t.Errorf("unexpected bbox %+v", meta.BBox)
		}
		if _, err := repo.GetFace(ctx, 1000); !errors.Is(err, apperror.ErrNotFound) {
			t.Errorf("expected not found, got %v", err)
		}
	})

	t.Run("Count", func(t *testing.T) {
		n, err := repo.Count(ctx)
		if err != nil {
			t.Fatalf("Count() error = %v", err)
		}
		if n != 2 {
			t.Errorf("expected 2 faces with embeddings, got %d", n)
		}
	})

	t.Run("Upsert", func(t *testing.T) {
		updated := faces[0]
		updated.ImageID = 42
		if err := repo.SaveFaces(ctx, []database.StoredFace{updated}); err != nil {
			t.Fatalf("SaveFaces() error = %v", err)
		}
		meta, err := repo.GetFace(ctx, 7)
		if err != nil {
			t.Fatal(err)
		}
		if meta.ImageID != 42 {
			t.Errorf("expected image id 42, got %d", meta.ImageID)
		}
	})
}

func TestMigrations(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()

	applied, err := pool.MigrationsApplied(ctx)
	if err != nil {
		t.Fatalf("Failed to get applied migrations: %v", err)
	}
	if len(applied) != 1 || applied[0] != "001_faces.sql" {
		t.Errorf("unexpected migrations %v", applied)
	}

	again, err := pool.Migrate(ctx)
	if err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if len(again) != 0 {
		t.Errorf("expected no pending migrations, got %v", again)
	}
}
