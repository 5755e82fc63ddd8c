// cmd/code-indexer/index.go
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/randalmurphy/code-index/internal/bind"
	"github.com/randalmurphy/code-index/internal/config"
	"github.com/randalmurphy/code-index/internal/graph"
	"github.com/randalmurphy/code-index/internal/ingest"
	"github.com/randalmurphy/code-index/internal/shard"
	"github.com/randalmurphy/code-index/internal/wiring"
	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index <path>",
	Short: "Full ingestion and index build over a source tree",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndex,
}

var indexReport bool

func init() {
	indexCmd.Flags().BoolVar(&indexReport, "report", false, "Print a dependency-graph summary report after indexing")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	absPath, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	if _, err := os.Stat(absPath); os.IsNotExist(err) {
		return fmt.Errorf("path not found: %s", absPath)
	}

	cfg := config.DefaultConfig()
	shardDir := filepath.Join(absPath, cfg.Index.ShardDir)
	partitionDir := filepath.Join(absPath, cfg.Index.PartitionDir)
	binaryExts := shard.LoadBinaryExtensionSetOrDefault(filepath.Join(absPath, cfg.Index.BinaryExtensionsFile))

	fmt.Printf("Indexing %s...\n", absPath)

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	embedder, semantic := wiring.SemanticCollaborators(cfg, logger)

	result, err := ingest.Run(context.Background(), ingest.Options{
		SourceRoot:   absPath,
		ShardDir:     shardDir,
		PartitionDir: partitionDir,
		BinaryExts:   binaryExts,
		Embedder:     embedder,
		Semantic:     semantic,
		Repo:         filepath.Base(absPath),
		Progress: func(step string, pct int) {
			fmt.Printf("  [%s] %d%%\n", step, pct)
		},
	})
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	fmt.Printf("\nIndexing complete:\n")
	fmt.Printf("  Files parsed:     %d\n", result.FilesParsed)
	fmt.Printf("  Shards created:   %d\n", len(result.Shards.IDToFile))
	fmt.Printf("  Docs upserted:    %d (deleted %d, skipped %d)\n", result.DocsUpdate.Upserted, result.DocsUpdate.Deleted, result.DocsUpdate.Skipped)
	fmt.Printf("  Other upserted:   %d (deleted %d, skipped %d)\n", result.OtherUpdate.Upserted, result.OtherUpdate.Deleted, result.OtherUpdate.Skipped)
	if result.ChunksEmbedded > 0 {
		fmt.Printf("  Chunks embedded:  %d\n", result.ChunksEmbedded)
	}

	if len(result.ParseErrors) > 0 {
		fmt.Printf("  Parse errors: %d\n", len(result.ParseErrors))
		for _, e := range result.ParseErrors {
			fmt.Printf("    - %v\n", e)
		}
	}

	if indexReport {
		fmt.Println()
		fmt.Println(bind.Report(result.Graph))
	}

	if err := persistDependencyGraph(cfg, filepath.Base(absPath), result.Graph, logger); err != nil {
		logger.Warn("dependency graph persistence failed", "error", err)
	}

	return nil
}

// persistDependencyGraph pushes the module dependency graph to Neo4j
// when cfg.Storage.Neo4jURL and NEO4J_PASSWORD are set; it is a no-op
// otherwise, matching the opt-in pattern VOYAGE_API_KEY uses for
// semantic indexing.
func persistDependencyGraph(cfg *config.Config, repo string, g *bind.DependencyGraph, logger *slog.Logger) error {
	if cfg.Storage.Neo4jURL == "" {
		return nil
	}
	neo4jUser := os.Getenv("NEO4J_USER")
	if neo4jUser == "" {
		neo4jUser = "neo4j"
	}
	neo4jPass := os.Getenv("NEO4J_PASSWORD")
	if neo4jPass == "" {
		return nil
	}

	store, err := graph.NewNeo4jStore(cfg.Storage.Neo4jURL, neo4jUser, neo4jPass)
	if err != nil {
		return err
	}
	defer store.Close(context.Background())

	ctx := context.Background()
	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}
	if err := store.PersistGraph(ctx, repo, g); err != nil {
		return err
	}
	logger.Info("persisted dependency graph to Neo4j", "repo", repo, "modules", len(g.Modules()))
	return nil
}

func getGlobalConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".code-index-config.yaml"
	}
	return filepath.Join(homeDir, ".config", "code-index", "config.yaml")
}
