// Package wiring builds the Query Planner and Agent Orchestrator from
// a source root, the way every entrypoint (the MCP server, the HTTP
// Surface, the CLI's one-shot commands) needs them assembled: open
// both bleve partitions, load the shard map, build the filename and
// folder models, wire an optional Redis result cache.
package wiring

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/randalmurphy/code-index/internal/agent"
	"github.com/randalmurphy/code-index/internal/cache"
	"github.com/randalmurphy/code-index/internal/config"
	"github.com/randalmurphy/code-index/internal/embedding"
	"github.com/randalmurphy/code-index/internal/filenameindex"
	"github.com/randalmurphy/code-index/internal/folder"
	"github.com/randalmurphy/code-index/internal/index"
	"github.com/randalmurphy/code-index/internal/query"
	"github.com/randalmurphy/code-index/internal/shard"
	"github.com/randalmurphy/code-index/internal/store"
)

// Built holds everything an entrypoint needs to serve requests against
// one source root.
type Built struct {
	Planner      *query.Planner
	Orchestrator *agent.Orchestrator
	Docs         *index.Partition
	Other        *index.Partition
}

// Close releases the bleve partitions opened by Build.
func (b *Built) Close() {
	if b.Docs != nil {
		b.Docs.Close()
	}
	if b.Other != nil {
		b.Other.Close()
	}
}

// Build opens the partitions rooted at partitionDir, loads the shard
// map from shardDir, and constructs a Planner and Orchestrator over
// root. Non-fatal setup failures (missing shard map, unreachable
// Redis) are logged and degrade gracefully rather than aborting.
func Build(root, shardDir, partitionDir string, cfg *config.Config, logger *slog.Logger) (*Built, error) {
	shardMap, err := shard.LoadMap(shardDir)
	if err != nil {
		logger.Warn("failed to load shard map, starting empty", "error", err)
		shardMap = shard.NewMap()
	}

	docsPart, err := index.OpenPartition("docs", filepath.Join(partitionDir, "docs"))
	if err != nil {
		return nil, fmt.Errorf("open docs partition: %w", err)
	}
	otherPart, err := index.OpenPartition("other", filepath.Join(partitionDir, "other"))
	if err != nil {
		docsPart.Close()
		return nil, fmt.Errorf("open other partition: %w", err)
	}

	filenameIdx, err := filenameindex.Build(root)
	if err != nil {
		logger.Warn("failed to build filename index", "error", err)
	}

	folderModel, err := folder.Build(root, folder.Options{
		NonBinaryOnly: true,
		Sniffer:       folder.DefaultBinarySniffer,
	})
	if err != nil {
		logger.Warn("failed to build folder model", "error", err)
	}

	var resultCache *cache.RedisCache
	if rc, err := cache.NewRedisCache(cfg.Storage.RedisURL); err != nil {
		logger.Warn("result cache disabled, redis unavailable", "error", err)
	} else {
		resultCache = rc
	}

	planner := &query.Planner{
		Docs:        docsPart,
		Other:       otherPart,
		ShardMap:    shardMap,
		FilenameIdx: filenameIdx,
		Classifier:  query.NewClassifier(),
		Synonyms:    query.NewSynonymExpander(),
		Cache:       resultCache,
		SourceRoot:  root,
		Repo:        filepath.Base(root),
	}

	o := agent.New(root, shardDir)
	o.Planner = planner
	o.FilenameIdx = filenameIdx
	o.ShardMap = shardMap
	o.Folder = folderModel

	o.Embedder, o.Semantic = SemanticCollaborators(cfg, logger)

	return &Built{Planner: planner, Orchestrator: o, Docs: docsPart, Other: otherPart}, nil
}

// SemanticCollaborators builds the optional Voyage embedder and Qdrant
// store pair shared by the Orchestrator's SemanticSearch and ingest's
// embed-and-upsert write path. Both are nil unless VOYAGE_API_KEY is
// set and Qdrant is reachable; callers degrade gracefully when so.
func SemanticCollaborators(cfg *config.Config, logger *slog.Logger) (*embedding.VoyageClient, *store.QdrantStore) {
	voyageKey := os.Getenv("VOYAGE_API_KEY")
	if voyageKey == "" {
		return nil, nil
	}
	qs, err := store.NewQdrantStore(cfg.Storage.QdrantURL)
	if err != nil {
		logger.Warn("semantic search disabled, qdrant unavailable", "error", err)
		return nil, nil
	}
	return embedding.NewVoyageClient(voyageKey, cfg.Embedding.Model), qs
}
