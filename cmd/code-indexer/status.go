// cmd/code-indexer/status.go
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/randalmurphy/code-index/internal/config"
	"github.com/randalmurphy/code-index/internal/graph"
	"github.com/randalmurphy/code-index/internal/index"
	"github.com/randalmurphy/code-index/internal/shard"
	"github.com/randalmurphy/code-index/internal/store"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status [path]",
	Short: "Show index status for a source tree",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	repoPath := "."
	if len(args) == 1 {
		repoPath = args[0]
	}
	absPath, err := filepath.Abs(repoPath)
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}

	cfg := config.DefaultConfig()

	fmt.Printf("Index status for %s:\n", absPath)
	reportShardAndPartitionStatus(cfg, absPath)
	reportGraphStatus(cfg, filepath.Base(absPath))
	reportQdrantStatus(cfg)

	return nil
}

// reportShardAndPartitionStatus prints the state of the primary
// bleve/shard system: the two bleve partitions the Query Planner
// searches and the shard map that backs the docs partition's
// origin-file rewrite.
func reportShardAndPartitionStatus(cfg *config.Config, absPath string) {
	shardDir := filepath.Join(absPath, cfg.Index.ShardDir)
	partitionDir := filepath.Join(absPath, cfg.Index.PartitionDir)

	if _, err := os.Stat(partitionDir); os.IsNotExist(err) {
		fmt.Println("  No index found. Run 'code-indexer index <path>' to create one.")
		return
	}

	fmt.Println("  Partitions:")
	for _, name := range []string{"docs", "other"} {
		part, err := index.OpenPartition(name, filepath.Join(partitionDir, name))
		if err != nil {
			fmt.Printf("    %-6s unavailable (%v)\n", name, err)
			continue
		}
		fmt.Printf("    %-6s %d documents\n", name, part.Index().DocCount())
		part.Close()
	}

	shardMap, err := shard.LoadMap(shardDir)
	if err != nil {
		fmt.Printf("  Shard map: unavailable (%v)\n", err)
		return
	}
	fmt.Printf("  Shard map: %d shards\n", len(shardMap.IDToFile))
}

// reportGraphStatus prints the Neo4j-persisted dependency graph's
// module count when Neo4j is configured, mirroring the optional
// collaborator gating wiring.SemanticCollaborators uses for Voyage/Qdrant.
func reportGraphStatus(cfg *config.Config, repo string) {
	if cfg.Storage.Neo4jURL == "" {
		return
	}
	neo4jUser := os.Getenv("NEO4J_USER")
	if neo4jUser == "" {
		neo4jUser = "neo4j"
	}
	neo4jPass := os.Getenv("NEO4J_PASSWORD")
	if neo4jPass == "" {
		fmt.Println("  Dependency graph: Neo4j URL configured but NEO4J_PASSWORD missing")
		return
	}

	graphStore, err := graph.NewNeo4jStore(cfg.Storage.Neo4jURL, neo4jUser, neo4jPass)
	if err != nil {
		fmt.Printf("  Dependency graph: unavailable (%v)\n", err)
		return
	}
	defer graphStore.Close(context.Background())

	count, err := graphStore.ModuleCount(context.Background(), repo)
	if err != nil {
		fmt.Printf("  Dependency graph: query failed (%v)\n", err)
		return
	}
	fmt.Printf("  Dependency graph: %d modules\n", count)
}

// reportQdrantStatus prints the optional semantic-search collection's
// size when Qdrant is reachable. Semantic search is opt-in
// (VOYAGE_API_KEY), so an unreachable Qdrant is reported, not fatal.
func reportQdrantStatus(cfg *config.Config) {
	qdrantStore, err := store.NewQdrantStore(cfg.Storage.QdrantURL)
	if err != nil {
		fmt.Printf("  Semantic search: unavailable (%v)\n", err)
		return
	}

	info, err := qdrantStore.CollectionInfo(context.Background(), "chunks")
	if err != nil {
		fmt.Println("  Semantic search: no chunks collection yet")
		return
	}
	fmt.Printf("  Semantic search: %d chunks (%d-dim, %s)\n", info.PointsCount, info.VectorSize, info.Status)
}
