// Package sync provides the background resync daemon behind the
// `watch` CLI subcommand.
package sync

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/randalmurphy/code-index/internal/embedding"
	"github.com/randalmurphy/code-index/internal/ingest"
	"github.com/randalmurphy/code-index/internal/shard"
	"github.com/randalmurphy/code-index/internal/store"
)

// RepoWatch names one source tree to watch and the paths its derived
// state lives under.
type RepoWatch struct {
	Name         string
	Path         string
	ShardDir     string
	PartitionDir string
	BinaryExts   *shard.BinaryExtensionSet
}

// Daemon polls each watched repo's git HEAD and re-runs the full
// ingest pipeline (parse -> bind -> shard -> index) whenever it
// changes, generalized from the teacher's embedding-only resync loop.
type Daemon struct {
	repos    []RepoWatch
	interval time.Duration
	logger   *slog.Logger
	headHash map[string]string // repo name -> last known HEAD hash

	// Embedder and Semantic are optional: when both are set, each sync
	// pass also embeds and upserts chunks into Qdrant. Set directly on
	// the returned Daemon; nil by default.
	Embedder *embedding.VoyageClient
	Semantic *store.QdrantStore
}

// NewDaemon creates a new sync daemon.
func NewDaemon(repos []RepoWatch, interval time.Duration, logger *slog.Logger) *Daemon {
	return &Daemon{
		repos:    repos,
		interval: interval,
		logger:   logger,
		headHash: make(map[string]string),
	}
}

// Run starts the daemon, blocking until ctx is canceled.
func (d *Daemon) Run(ctx context.Context) error {
	d.logger.Info("starting sync daemon", "interval", d.interval, "repos", len(d.repos))

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.syncAll(ctx)

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("daemon shutting down")
			return ctx.Err()
		case <-ticker.C:
			d.syncAll(ctx)
		}
	}
}

func (d *Daemon) syncAll(ctx context.Context) {
	for _, repo := range d.repos {
		if err := d.syncRepo(ctx, repo); err != nil {
			d.logger.Error("sync failed", "repo", repo.Name, "error", err)
		}
	}
}

func (d *Daemon) syncRepo(ctx context.Context, repo RepoWatch) error {
	d.logger.Debug("checking repo", "name", repo.Name)

	currentHead, err := d.getGitHead(repo.Path)
	if err != nil {
		return fmt.Errorf("failed to get HEAD: %w", err)
	}

	cachedHead := d.headHash[repo.Name]
	if currentHead == cachedHead {
		d.logger.Debug("repo unchanged", "name", repo.Name)
		return nil
	}

	d.logger.Info("repo changed, syncing", "name", repo.Name, "old_head", truncateHash(cachedHead), "new_head", truncateHash(currentHead))

	result, err := ingest.Run(ctx, ingest.Options{
		SourceRoot:   repo.Path,
		ShardDir:     repo.ShardDir,
		PartitionDir: repo.PartitionDir,
		BinaryExts:   repo.BinaryExts,
		Embedder:     d.Embedder,
		Semantic:     d.Semantic,
		Repo:         repo.Name,
		Progress: func(step string, pct int) {
			d.logger.Debug("sync progress", "repo", repo.Name, "step", step, "percentage", pct)
		},
	})
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	d.logger.Info("sync complete",
		"repo", repo.Name,
		"files_parsed", result.FilesParsed,
		"parse_errors", len(result.ParseErrors),
		"docs_upserted", result.DocsUpdate.Upserted,
		"other_upserted", result.OtherUpdate.Upserted,
	)

	d.headHash[repo.Name] = currentHead

	return nil
}

// getGitHead returns the current HEAD commit hash.
func (d *Daemon) getGitHead(repoPath string) (string, error) {
	cmd := exec.Command("git", "-C", repoPath, "rev-parse", "HEAD")
	output, err := cmd.Output()
	if err == nil {
		return strings.TrimSpace(string(output)), nil
	}

	headPath := filepath.Join(repoPath, ".git", "HEAD")
	headData, err := os.ReadFile(headPath)
	if err != nil {
		return "", err
	}

	content := strings.TrimSpace(string(headData))

	if strings.HasPrefix(content, "ref: ") {
		refPath := strings.TrimPrefix(content, "ref: ")
		refFile := filepath.Join(repoPath, ".git", refPath)
		refData, err := os.ReadFile(refFile)
		if err != nil {
			h := sha256.Sum256([]byte(content))
			return fmt.Sprintf("%x", h[:8]), nil
		}
		return strings.TrimSpace(string(refData)), nil
	}

	return content, nil
}

func truncateHash(hash string) string {
	if len(hash) > 8 {
		return hash[:8]
	}
	return hash
}
