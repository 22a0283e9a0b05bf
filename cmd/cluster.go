package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-graph/internal/clustering"
	"github.com/kozaktomas/face-graph/internal/config"
	"github.com/kozaktomas/face-graph/internal/database"
	"github.com/kozaktomas/face-graph/internal/database/backend"
)

var clusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Run incremental clustering over all faces",
	Long: `Visits every face in id order and grows clusters from its nearest
neighbors. Clusters at or above the size threshold only absorb smaller ones;
refused merges are reported as suspicious pairs.

The result (assignments, cluster sizes, suspicious pairs) is written as JSON.`,
	RunE: runCluster,
}

func init() {
	rootCmd.AddCommand(clusterCmd)

	clusterCmd.Flags().Int("k", 0, "Nearest faces inspected per face, self included (default from CLUSTER_K)")
	clusterCmd.Flags().Float64("threshold", 0, "Neighbor distance threshold (default from CLUSTER_DISTANCE_THRESHOLD)")
	clusterCmd.Flags().Int("size-threshold", 0, "Cluster size that stops automatic merges (default from CLUSTER_SIZE_THRESHOLD)")
	clusterCmd.Flags().Bool("hnsw", false, "Use the approximate HNSW index instead of the exact scan")
	clusterCmd.Flags().String("output", "", "Output file (default <data-root>/clustering.json)")
	clusterCmd.Flags().Bool("json", false, "Output summary as JSON")
}

func clusterOptions(cmd *cobra.Command, cfg *config.Config) clustering.Options {
	opts := clustering.Options{
		K:                 cfg.Clustering.K,
		DistanceThreshold: cfg.Clustering.DistanceThreshold,
		SizeThreshold:     cfg.Clustering.SizeThreshold,
	}
	if k := mustGetInt(cmd, "k"); k > 0 {
		opts.K = k
	}
	if t := mustGetFloat64(cmd, "threshold"); t > 0 {
		opts.DistanceThreshold = t
	}
	if s := mustGetInt(cmd, "size-threshold"); s > 0 {
		opts.SizeThreshold = s
	}
	return opts
}

func runCluster(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	opts := clusterOptions(cmd, cfg)
	jsonOutput := mustGetBool(cmd, "json")
	output := mustGetString(cmd, "output")
	if output == "" {
		output = cfg.ClusteringPath()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	store, closeStore, err := backend.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening embedding store: %w", err)
	}
	defer closeStore()

	table, err := database.LoadEmbeddingTable(ctx, store)
	if err != nil {
		return err
	}

	var source clustering.NeighborSource = table
	if mustGetBool(cmd, "hnsw") || cfg.Clustering.NeighborIndex == config.NeighborIndexHNSW {
		var index *database.HNSWIndex
		if cfg.Database.HNSWIndexPath != "" {
			index, err = database.LoadOrBuildHNSWIndex(cfg.Database.HNSWIndexPath, table)
			if err != nil {
				return err
			}
		} else {
			index = database.BuildHNSWIndex(table)
		}
		log.WithField("faces", index.Len()).Info("using HNSW neighbor index")
		source = index
	}

	engine := clustering.NewEngine(table, source, opts)
	bar := newProgressBar(table.Len(), "Clustering", "faces", jsonOutput)
	if bar != nil {
		engine.OnProgress = func(done, total int) { _ = bar.Set(done) }
	}

	err = engine.Run(ctx)
	finishProgressBar(bar)
	if err != nil {
		return err
	}

	result := engine.Result()
	if err := result.WriteFile(output); err != nil {
		return err
	}

	clusters, largest, singletons := result.Summary()
	log.WithField("output", output).WithField("clusters", clusters).Info("clustering written")

	if jsonOutput {
		return outputJSON(map[string]any{
			"faces":            table.Len(),
			"clusters":         clusters,
			"largest_cluster":  largest,
			"singletons":       singletons,
			"suspicious_pairs": len(result.SuspiciousPairs),
			"output":           output,
			"options":          opts,
		})
	}
	fmt.Printf("Faces:            %d\n", table.Len())
	fmt.Printf("Clusters:         %d (largest %d, %d singletons)\n", clusters, largest, singletons)
	fmt.Printf("Suspicious pairs: %d\n", len(result.SuspiciousPairs))
	fmt.Printf("Result written to %s\n", output)
	return nil
}
