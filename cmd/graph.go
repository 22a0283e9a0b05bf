package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-graph/internal/database"
	"github.com/kozaktomas/face-graph/internal/database/backend"
	"github.com/kozaktomas/face-graph/internal/graph"
	"github.com/kozaktomas/face-graph/internal/registry"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Similarity graph commands",
}

var graphBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the similarity graph and partition it into components",
	Long: `Builds the face similarity graph from all stored embeddings and saves it
as GEXF. An existing graph file is reused unless --rebuild is given.

If no component file exists (or --repartition is given) the graph is
partitioned with Louvain community detection and the components are saved.
Repartitioning renumbers the components, so earlier subdivisions and all
component to person assignments are discarded. People are kept.`,
	RunE: runGraphBuild,
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.AddCommand(graphBuildCmd)

	graphBuildCmd.Flags().Bool("rebuild", false, "Rebuild the graph even if the graph file exists")
	graphBuildCmd.Flags().Bool("repartition", false, "Recompute components even if the component file exists")
	graphBuildCmd.Flags().Float64("threshold", 0, "Edge distance threshold (default from GRAPH_DISTANCE_THRESHOLD)")
	graphBuildCmd.Flags().Uint64("seed", 0, "Louvain seed (default from PARTITION_SEED, 0 is unseeded)")
	graphBuildCmd.Flags().Bool("json", false, "Output summary as JSON")
}

// GraphBuildSummary is the outcome of graph build.
type GraphBuildSummary struct {
	Faces              int    `json:"faces"`
	Nodes              int    `json:"nodes"`
	Edges              int    `json:"edges"`
	GraphReused        bool   `json:"graph_reused"`
	GraphPath          string `json:"graph_path"`
	Components         int    `json:"components"`
	LargestSize        int    `json:"largest_component"`
	Singletons         int    `json:"singletons"`
	Repartitioned      bool   `json:"repartitioned"`
	ClearedAssignments int    `json:"cleared_assignments"`
	ComponentsPath     string `json:"components_path"`
}

func runGraphBuild(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	rebuild := mustGetBool(cmd, "rebuild")
	repartition := mustGetBool(cmd, "repartition")
	jsonOutput := mustGetBool(cmd, "json")
	threshold := cfg.Graph.DistanceThreshold
	if t := mustGetFloat64(cmd, "threshold"); t > 0 {
		threshold = t
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
	summary := GraphBuildSummary{Faces: table.Len(), GraphPath: cfg.GraphPath(), ComponentsPath: cfg.ComponentsPath()}

	var g *graph.SimilarityGraph
	if _, statErr := os.Stat(cfg.GraphPath()); statErr == nil && !rebuild {
		if g, err = graph.LoadFile(cfg.GraphPath()); err != nil {
			return err
		}
		summary.GraphReused = true
		log.WithField("path", cfg.GraphPath()).Info("reusing similarity graph")
	} else {
		builder := graph.NewBuilder(threshold)
		bar := newProgressBar(table.Len(), "Scanning faces", "faces", jsonOutput)
		if bar != nil {
			builder.OnProgress = func(done int) { _ = bar.Set(done) }
		}

		start := time.Now()
		g, err = builder.Build(ctx, table)
		finishProgressBar(bar)
		if err != nil {
			return err
		}
		if err := graph.SaveFile(cfg.GraphPath(), g); err != nil {
			return err
		}
		log.WithField("nodes", g.NodeCount()).
			WithField("edges", g.EdgeCount()).
			WithField("threshold", threshold).
			WithField("duration", time.Since(start).String()).
			Info("similarity graph saved")
	}
	summary.Nodes = g.NodeCount()
	summary.Edges = g.EdgeCount()

	regStore := registry.NewFileStore(cfg)
	var reg *registry.Registry
	_, statErr := os.Stat(cfg.ComponentsPath())
	switch {
	case repartition || errors.Is(statErr, os.ErrNotExist):
		p := graph.Partitioner{Resolution: cfg.Graph.PartitionResolution, Seed: cfg.Graph.PartitionSeed}
		if cmd.Flags().Changed("seed") {
			p.Seed = mustGetUint64(cmd, "seed")
		}
		previous, err := regStore.LoadAssignments()
		if err != nil {
			return err
		}
		if reg, err = registry.Create(regStore, p.Partition(g)); err != nil {
			return err
		}
		summary.ClearedAssignments = len(previous)
		if len(previous) > 0 {
			log.WithField("assignments", len(previous)).Warn("repartitioned components, person assignments cleared")
		}
		summary.Repartitioned = true
	default:
		if reg, err = registry.Open(regStore); err != nil {
			return err
		}
	}

	components := reg.Components()
	summary.Components = len(components)
	for _, c := range components {
		summary.LargestSize = max(summary.LargestSize, len(c))
		if len(c) == 1 {
			summary.Singletons++
		}
	}
	log.WithField("registry", reg.String()).Info("components ready")

	if jsonOutput {
		return outputJSON(summary)
	}
	fmt.Printf("Faces:       %d\n", summary.Faces)
	fmt.Printf("Graph:       %d nodes, %d edges (%s)\n", summary.Nodes, summary.Edges, summary.GraphPath)
	fmt.Printf("Components:  %d (largest %d, %d singletons)\n", summary.Components, summary.LargestSize, summary.Singletons)
	if summary.Repartitioned {
		fmt.Printf("Components written to %s\n", summary.ComponentsPath)
		if summary.ClearedAssignments > 0 {
			fmt.Printf("Cleared %d person assignments; reassign people to the new components\n", summary.ClearedAssignments)
		}
	}
	return nil
}
