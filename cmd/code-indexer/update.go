// cmd/code-indexer/update.go
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/randalmurphy/code-index/internal/config"
	"github.com/randalmurphy/code-index/internal/ingest"
	"github.com/randalmurphy/code-index/internal/shard"
	"github.com/randalmurphy/code-index/internal/wiring"
	"github.com/spf13/cobra"
)

var updateCmd = &cobra.Command{
	Use:   "update <path>",
	Short: "Incrementally update the index for a source tree",
	Long:  `Re-run the ingest pipeline; both partitions skip files whose (mtime, size) signature is unchanged.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runUpdate,
}

func init() {
	rootCmd.AddCommand(updateCmd)
}

func runUpdate(cmd *cobra.Command, args []string) error {
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
	})
	if err != nil {
		return fmt.Errorf("update failed: %w", err)
	}

	fmt.Printf("Update complete: docs +%d/-%d (%d unchanged), other +%d/-%d (%d unchanged)\n",
		result.DocsUpdate.Upserted, result.DocsUpdate.Deleted, result.DocsUpdate.Skipped,
		result.OtherUpdate.Upserted, result.OtherUpdate.Deleted, result.OtherUpdate.Skipped)
	if result.ChunksEmbedded > 0 {
		fmt.Printf("Chunks embedded: %d\n", result.ChunksEmbedded)
	}

	return nil
}
