package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/randalmurphy/code-index/internal/config"
	"github.com/randalmurphy/code-index/internal/shard"
	"github.com/randalmurphy/code-index/internal/sync"
	"github.com/randalmurphy/code-index/internal/wiring"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch repositories and sync on changes",
	Long:  `Run a background daemon that watches repositories for changes and re-runs the full ingest pipeline.`,
	RunE:  runWatch,
}

var (
	watchRepos    string
	watchInterval string
)

func init() {
	watchCmd.Flags().StringVar(&watchRepos, "repos", "", "Comma-separated repo paths to watch")
	watchCmd.Flags().StringVar(&watchInterval, "interval", "60s", "Check interval (e.g., 30s, 5m)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if watchRepos == "" {
		return fmt.Errorf("--repos is required")
	}

	interval, err := time.ParseDuration(watchInterval)
	if err != nil {
		return fmt.Errorf("invalid interval: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg := config.DefaultConfig()

	repoPaths := strings.Split(watchRepos, ",")
	var repos []sync.RepoWatch
	for _, p := range repoPaths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		absPath, err := filepath.Abs(p)
		if err != nil {
			logger.Warn("invalid repo path", "path", p, "error", err)
			continue
		}
		if _, err := os.Stat(absPath); os.IsNotExist(err) {
			logger.Warn("repo path not found", "path", absPath)
			continue
		}

		binaryExtsPath := filepath.Join(absPath, cfg.Index.BinaryExtensionsFile)
		repos = append(repos, sync.RepoWatch{
			Name:         filepath.Base(absPath),
			Path:         absPath,
			ShardDir:     filepath.Join(absPath, cfg.Index.ShardDir),
			PartitionDir: filepath.Join(absPath, cfg.Index.PartitionDir),
			BinaryExts:   shard.LoadBinaryExtensionSetOrDefault(binaryExtsPath),
		})
	}

	if len(repos) == 0 {
		return fmt.Errorf("no valid repos found")
	}

	daemon := sync.NewDaemon(repos, interval, logger)
	daemon.Embedder, daemon.Semantic = wiring.SemanticCollaborators(cfg, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	return daemon.Run(ctx)
}
