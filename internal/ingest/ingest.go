// Package ingest drives the end-to-end pipeline named in SPEC_FULL.md
// §2's data-flow note: walk the tree, populate the per-file model (B),
// bind and graph (C), shard office documents (F), and update both
// inverted-index partitions (G) from current on-disk metadata.
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/randalmurphy/code-index/internal/bind"
	"github.com/randalmurphy/code-index/internal/chunk"
	"github.com/randalmurphy/code-index/internal/embedding"
	"github.com/randalmurphy/code-index/internal/index"
	"github.com/randalmurphy/code-index/internal/parser"
	"github.com/randalmurphy/code-index/internal/resolve"
	"github.com/randalmurphy/code-index/internal/shard"
	"github.com/randalmurphy/code-index/internal/store"
)

// ProgressFunc receives a progress event at most O(files/batch) times
// per pass, per SPEC_FULL.md §9's progress-streaming note.
type ProgressFunc func(step string, percentage int)

// Result summarizes one ingestion pass.
type Result struct {
	FilesParsed    int
	ParseErrors    []error
	Graph          *bind.DependencyGraph
	Shards         *shard.Map
	DocsUpdate     index.UpdateResult
	OtherUpdate    index.UpdateResult
	ChunksEmbedded int // only nonzero when Options.Embedder/Semantic were set
}

// Options configures a Run.
type Options struct {
	SourceRoot   string
	ShardDir     string
	PartitionDir string
	BinaryExts   *shard.BinaryExtensionSet
	Progress     ProgressFunc

	// Embedder and Semantic are optional: when both are set, Run also
	// chunks and embeds each parsed file and upserts the result into
	// the "chunks" Qdrant collection, populating the index that
	// agent.Orchestrator.SemanticSearch reads from. Repo names the
	// collection's repo field (typically the source root's base name).
	Embedder *embedding.VoyageClient
	Semantic *store.QdrantStore
	Repo     string
}

const progressBatch = 25

// Run executes a full ingestion + bind + shard + index pass over
// Options.SourceRoot.
func Run(ctx context.Context, opts Options) (*Result, error) {
	res := &Result{}
	project := bind.NewProject(opts.SourceRoot)

	semanticEnabled := opts.Embedder != nil && opts.Semantic != nil
	var extractor *chunk.Extractor
	if semanticEnabled {
		extractor = chunk.NewExtractor()
		extractor.SetHierarchicalChunking(true)
	}

	var sourceFiles []string
	if err := filepath.Walk(opts.SourceRoot, walkDirFunc(opts, &sourceFiles)); err != nil {
		return nil, fmt.Errorf("walk source tree: %w", err)
	}

	for i, path := range sourceFiles {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		lang, ok := parser.DetectLanguage(path)
		if !ok {
			continue
		}
		source, err := os.ReadFile(path)
		if err != nil {
			res.ParseErrors = append(res.ParseErrors, fmt.Errorf("read %s: %w", path, err))
			continue
		}
		rec, err := parser.ExtractFileRecord(lang, source, path)
		if err != nil {
			res.ParseErrors = append(res.ParseErrors, fmt.Errorf("parse %s: %w", path, err))
			continue
		}
		module, err := resolve.ModuleName(path, opts.SourceRoot)
		if err != nil {
			res.ParseErrors = append(res.ParseErrors, fmt.Errorf("module name %s: %w", path, err))
			continue
		}
		project.AddFile(path, module, rec)
		res.FilesParsed++

		if semanticEnabled {
			if n, embedErr := embedAndUpsertFile(ctx, extractor, opts, source, path, module); embedErr != nil {
				res.ParseErrors = append(res.ParseErrors, fmt.Errorf("embed %s: %w", path, embedErr))
			} else {
				res.ChunksEmbedded += n
			}
		}

		if opts.Progress != nil && (i+1)%progressBatch == 0 {
			opts.Progress("parse", pct(i+1, len(sourceFiles)))
		}
	}

	res.Graph = bind.Bind(project)
	if opts.Progress != nil {
		opts.Progress("bind", 100)
	}

	shardMap, err := shard.ExtractAll(opts.SourceRoot, opts.ShardDir)
	if err != nil {
		return nil, fmt.Errorf("extract shards: %w", err)
	}
	res.Shards = shardMap
	if opts.Progress != nil {
		opts.Progress("shard", 100)
	}

	docsPart, err := index.OpenPartition("docs", filepath.Join(opts.PartitionDir, "docs"))
	if err != nil {
		return nil, fmt.Errorf("open docs partition: %w", err)
	}
	defer docsPart.Close()
	otherPart, err := index.OpenPartition("other", filepath.Join(opts.PartitionDir, "other"))
	if err != nil {
		return nil, fmt.Errorf("open other partition: %w", err)
	}
	defer otherPart.Close()

	docsUpdate, otherUpdate, err := index.BuildOrUpdate(docsPart, otherPart, index.Sources{
		SourceRoot: opts.SourceRoot,
		ShardDir:   opts.ShardDir,
		BinaryExts: opts.BinaryExts,
	})
	if err != nil {
		return nil, fmt.Errorf("update index: %w", err)
	}
	res.DocsUpdate = docsUpdate
	res.OtherUpdate = otherUpdate
	if opts.Progress != nil {
		opts.Progress("index", 100)
	}

	return res, nil
}

// embedAndUpsertFile extracts chunks for one file, embeds their
// content in a single batch call, and upserts the result into the
// "chunks" collection. Returns the number of chunks written.
func embedAndUpsertFile(ctx context.Context, extractor *chunk.Extractor, opts Options, source []byte, path, module string) (int, error) {
	relPath, err := filepath.Rel(opts.SourceRoot, path)
	if err != nil {
		relPath = path
	}
	chunks, err := extractor.Extract(source, relPath, opts.Repo, module)
	if err != nil || len(chunks) == 0 {
		return 0, err
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := opts.Embedder.Embed(ctx, texts)
	if err != nil {
		return 0, err
	}
	for i := range chunks {
		if i < len(vectors) {
			chunks[i].Vector = vectors[i]
		}
	}

	if err := opts.Semantic.UpsertChunks(ctx, "chunks", chunks); err != nil {
		return 0, err
	}
	return len(chunks), nil
}

func walkDirFunc(opts Options, out *[]string) filepath.WalkFunc {
	absShardDir, _ := filepath.Abs(opts.ShardDir)
	return func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			if name := info.Name(); strings.HasPrefix(name, ".") && path != opts.SourceRoot {
				return filepath.SkipDir
			}
			abs, _ := filepath.Abs(path)
			if abs == absShardDir {
				return filepath.SkipDir
			}
			return nil
		}
		if _, ok := parser.DetectLanguage(path); ok {
			*out = append(*out, path)
		}
		return nil
	}
}

func pct(done, total int) int {
	if total == 0 {
		return 100
	}
	p := done * 100 / total
	if p > 100 {
		p = 100
	}
	return p
}
