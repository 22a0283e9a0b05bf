package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-graph/internal/config"
	"github.com/kozaktomas/face-graph/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "face-graph",
	Short: "Cluster face embeddings and curate identities",
	Long: `Face Graph builds a similarity graph over face embeddings, partitions it
into components with Louvain community detection and serves an HTTP API for
reviewing, splitting and naming those components.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().String("data-root", "", "Directory holding the graph, component and people files (env DATA_ROOT)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error (env LOG_LEVEL)")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}

// loadConfig reads the environment, applies persistent flag overrides and
// validates the result.
func loadConfig(cmd *cobra.Command) (*config.Config, *logger.Logger, error) {
	cfg := config.Load()
	if root, _ := cmd.Flags().GetString("data-root"); root != "" {
		cfg.DataRoot = root
		if os.Getenv("FACES_FILE") == "" {
			cfg.Embeddings.FacesFile = config.DefaultFacesFile(root)
		}
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Log.Level = level
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	log := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	return cfg, log, nil
}

func outputJSON(data any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}
	return nil
}
