// cmd/code-indexer/serve.go
package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/randalmurphy/code-index/internal/config"
	"github.com/randalmurphy/code-index/internal/httpapi"
	"github.com/randalmurphy/code-index/internal/metrics"
	"github.com/randalmurphy/code-index/internal/shard"
	"github.com/randalmurphy/code-index/internal/wiring"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve <path>",
	Short: "Start the HTTP Surface over an indexed source tree",
	Args:  cobra.ExactArgs(1),
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Address to listen on")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	absPath, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	if _, err := os.Stat(absPath); os.IsNotExist(err) {
		return fmt.Errorf("path not found: %s", absPath)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	cfg := config.DefaultConfig()
	shardDir := filepath.Join(absPath, cfg.Index.ShardDir)
	partitionDir := filepath.Join(absPath, cfg.Index.PartitionDir)
	binaryExts := shard.LoadBinaryExtensionSetOrDefault(filepath.Join(absPath, cfg.Index.BinaryExtensionsFile))

	built, err := wiring.Build(absPath, shardDir, partitionDir, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to build query planner: %w", err)
	}
	defer built.Close()

	configStore := config.NewStore(&config.Snapshot{Global: cfg})

	var metricsLogger *metrics.Logger
	if homeDir, homeErr := os.UserHomeDir(); homeErr == nil {
		metricsDir := filepath.Join(homeDir, ".local", "share", "code-index")
		if mkErr := os.MkdirAll(metricsDir, 0o755); mkErr == nil {
			if ml, logErr := metrics.NewLogger(filepath.Join(metricsDir, "metrics.jsonl")); logErr == nil {
				metricsLogger = ml
				defer ml.Close()
			}
		}
	}

	srv := &httpapi.Server{
		Planner:      built.Planner,
		Orchestrator: built.Orchestrator,
		ConfigStore:  configStore,
		SourceRoot:   absPath,
		ShardDir:     shardDir,
		PartitionDir: partitionDir,
		BinaryExts:   binaryExts,
		Logger:       logger,
		Metrics:      metricsLogger,
	}

	logger.Info("serving HTTP Surface", "addr", serveAddr, "source", absPath)
	return http.ListenAndServe(serveAddr, srv.Handler())
}
