package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-graph/internal/database/jsonl"
	"github.com/kozaktomas/face-graph/internal/database/postgres"
)

const importBatchSize = 500

var facesCmd = &cobra.Command{
	Use:   "faces",
	Short: "Embedding store commands",
}

var facesImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Copy faces from a jsonl file into PostgreSQL",
	Long: `Applies pending migrations and upserts every face of a jsonl embedding
file into the PostgreSQL faces table. Requires DATABASE_URL.`,
	RunE: runFacesImport,
}

func init() {
	rootCmd.AddCommand(facesCmd)
	facesCmd.AddCommand(facesImportCmd)

	facesImportCmd.Flags().String("file", "", "jsonl file to import (default FACES_FILE)")
}

func runFacesImport(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}
	file := mustGetString(cmd, "file")
	if file == "" {
		file = cfg.Embeddings.FacesFile
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	src, err := jsonl.Open(file)
	if err != nil {
		return err
	}
	faces := src.Faces()
	if len(faces) == 0 {
		fmt.Printf("No faces in %s\n", file)
		return nil
	}

	pool, err := postgres.NewPool(ctx, &cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	applied, err := pool.Migrate(ctx)
	if err != nil {
		return err
	}
	for _, name := range applied {
		fmt.Printf("Applied migration %s\n", name)
	}

	repo := postgres.NewFaceRepository(pool)
	bar := newProgressBar(len(faces), "Importing faces", "faces", false)
	for start := 0; start < len(faces); start += importBatchSize {
		end := min(start+importBatchSize, len(faces))
		if err := repo.SaveFaces(ctx, faces[start:end]); err != nil {
			finishProgressBar(bar)
			return fmt.Errorf("importing faces %d-%d: %w", faces[start].ID, faces[end-1].ID, err)
		}
		_ = bar.Set(end)
	}
	finishProgressBar(bar)

	count, err := repo.Count(ctx)
	if err != nil {
		return err
	}
	log.WithField("file", file).WithField("imported", len(faces)).Info("faces imported")
	fmt.Printf("Imported %d faces; %d faces with embeddings in the database\n", len(faces), count)
	return nil
}
