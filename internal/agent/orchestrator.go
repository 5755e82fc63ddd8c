// Package agent implements the Agent Orchestrator (SPEC_FULL.md
// §4.I): a fixed tool set composing the Path Resolver/Source
// Analyzer/Folder Model/Filename Index/Query Planner components for
// natural-language-driven retrieval, served over MCP.
package agent

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/randalmurphy/code-index/internal/chunk"
	"github.com/randalmurphy/code-index/internal/docs"
	"github.com/randalmurphy/code-index/internal/embedding"
	"github.com/randalmurphy/code-index/internal/filenameindex"
	"github.com/randalmurphy/code-index/internal/folder"
	"github.com/randalmurphy/code-index/internal/parser"
	"github.com/randalmurphy/code-index/internal/pattern"
	"github.com/randalmurphy/code-index/internal/query"
	"github.com/randalmurphy/code-index/internal/security"
	"github.com/randalmurphy/code-index/internal/shard"
	"github.com/randalmurphy/code-index/internal/store"
)

const (
	// tokenTruncationCap is the fixed word-count-based estimate used
	// for FileContentRetrieval truncation accounting, independent of
	// the canonical analyzer (§4.I).
	tokenTruncationCap = 9000
	elisionNotice      = "\n... [content truncated]"
)

// Orchestrator holds every collaborator the tool set needs.
type Orchestrator struct {
	SourceRoot  string
	ShardDir    string
	Planner     *query.Planner
	FilenameIdx *filenameindex.Index
	ShardMap    *shard.Map
	Folder      *folder.Node
	Secrets     *security.SecretDetector

	// Semantic and Embedder are optional: nil disables SemanticSearch,
	// leaving the inverted-index FileContentSearch as the only
	// retrieval path.
	Semantic *store.QdrantStore
	Embedder *embedding.VoyageClient
}

// New constructs an Orchestrator. Any of Planner/FilenameIdx/ShardMap
// may be nil if that collaborator isn't wired for a given deployment;
// the corresponding tools degrade to empty results rather than panic.
func New(sourceRoot, shardDir string) *Orchestrator {
	return &Orchestrator{
		SourceRoot: sourceRoot,
		ShardDir:   shardDir,
		Secrets:    security.NewSecretDetector(),
	}
}

// KeywordSuggestion implements the suggestion-oracle tool.
func (o *Orchestrator) KeywordSuggestion(ctx context.Context, partition, partial string, limit int) []string {
	if o.Planner == nil {
		return nil
	}
	return o.Planner.Suggest(ctx, partition, partial, limit)
}

// FileContentSearchResult is FileContentSearch's tool output.
type FileContentSearchResult struct {
	Hits             []query.Hit           `json:"hits"`
	FilenameFallback []filenameindex.Entry `json:"filename_fallback,omitempty"`
}

// FileContentSearch uses fused retrieval (ranked search with
// suggestion-oracle retry, then filename fallback).
func (o *Orchestrator) FileContentSearch(ctx context.Context, partition, queryString string, limit int) (*FileContentSearchResult, error) {
	if o.Planner == nil {
		return &FileContentSearchResult{}, nil
	}
	hits, fallback, err := o.Planner.FusedRetrieve(ctx, partition, queryString, limit)
	if err != nil {
		return nil, err
	}
	return &FileContentSearchResult{Hits: hits, FilenameFallback: fallback}, nil
}

// FileContentRetrievalResult is FileContentRetrieval's tool output.
type FileContentRetrievalResult struct {
	Path          string `json:"path"`
	Content       string `json:"content"`
	Truncated     bool   `json:"truncated"`
	RedactedCount int    `json:"redacted_count,omitempty"`
}

// FileContentRetrieval resolves relPath against the source root. It
// refuses paths inside the shard directory; for office-family origins
// it returns the concatenation of associated shards in ascending id
// order, for source files the raw UTF-8 content. Secrets are redacted
// and oversized content is truncated with a trailing elision notice.
func (o *Orchestrator) FileContentRetrieval(relPath string) (*FileContentRetrievalResult, error) {
	cleanRel := filepath.Clean(relPath)
	if strings.HasPrefix(cleanRel, "..") {
		return nil, fmt.Errorf("path %q escapes source root", relPath)
	}

	absPath := filepath.Join(o.SourceRoot, cleanRel)
	absShardDir, _ := filepath.Abs(o.ShardDir)
	absTarget, _ := filepath.Abs(absPath)
	if absShardDir != "" && strings.HasPrefix(absTarget, absShardDir+string(filepath.Separator)) {
		return nil, fmt.Errorf("path %q is inside the shard directory; request the origin file instead", relPath)
	}

	var content string
	if shard.IsOfficeDocument(filepath.Ext(absPath)) && o.ShardMap != nil {
		text, err := o.readShardsForOrigin(cleanRel)
		if err != nil {
			return nil, err
		}
		content = text
	} else {
		data, err := os.ReadFile(absPath)
		if err != nil {
			return nil, err
		}
		content = string(data)
	}

	redactedCount := 0
	if o.Secrets != nil {
		secrets := o.Secrets.Detect(content)
		content = o.Secrets.Redact(content, secrets)
		redactedCount = len(secrets)
	}

	truncated := false
	if estimateWordCount(content) > tokenTruncationCap {
		content = truncateToWordCount(content, tokenTruncationCap) + elisionNotice
		truncated = true
	}

	return &FileContentRetrievalResult{
		Path:          cleanRel,
		Content:       content,
		Truncated:     truncated,
		RedactedCount: redactedCount,
	}, nil
}

type idShard struct {
	id   string
	text string
}

func (o *Orchestrator) readShardsForOrigin(relPath string) (string, error) {
	var shards []idShard

	absOrigin := filepath.Join(o.SourceRoot, relPath)
	for id, origin := range o.ShardMap.IDToFile {
		if origin.OriginalFile != absOrigin {
			continue
		}
		data, err := os.ReadFile(filepath.Join(o.ShardDir, id+".txt"))
		if err != nil {
			continue
		}
		shards = append(shards, idShard{id: id, text: string(data)})
	}

	sortShardsByNumericID(shards)

	var b strings.Builder
	for _, s := range shards {
		b.WriteString(s.text)
		b.WriteString("\n")
	}
	return b.String(), nil
}

func sortShardsByNumericID(shards []idShard) {
	for i := 1; i < len(shards); i++ {
		for j := i; j > 0 && lessNumericID(shards[j].id, shards[j-1].id); j-- {
			shards[j], shards[j-1] = shards[j-1], shards[j]
		}
	}
}

func lessNumericID(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}

func estimateWordCount(text string) int {
	return len(strings.Fields(text))
}

func truncateToWordCount(text string, n int) string {
	words := strings.Fields(text)
	if len(words) <= n {
		return text
	}
	return strings.Join(words[:n], " ")
}

// CodeStructureAnalysisResult is CodeStructureAnalysis's tool output.
type CodeStructureAnalysisResult struct {
	Path    string          `json:"path"`
	Symbols []parser.Symbol `json:"symbols"`
}

// CodeStructureAnalysis parses one file and returns its symbol
// summary (per-file Source Analyzer output used for structural
// navigation, distinct from the import/call record used for binding).
func (o *Orchestrator) CodeStructureAnalysis(relPath string) (*CodeStructureAnalysisResult, error) {
	absPath := filepath.Join(o.SourceRoot, relPath)
	lang, ok := parser.DetectLanguage(absPath)
	if !ok {
		return &CodeStructureAnalysisResult{Path: relPath}, nil
	}

	source, err := os.ReadFile(absPath)
	if err != nil {
		return nil, err
	}

	p, err := parser.NewParser(lang)
	if err != nil {
		return nil, err
	}

	symbols, err := p.Parse(source, relPath)
	if err != nil {
		return nil, err
	}

	return &CodeStructureAnalysisResult{Path: relPath, Symbols: symbols}, nil
}

// ProjectOverview renders the folder model as display lines (the
// DirectoryExplorer tool, reusing the same collaborator).
func (o *Orchestrator) ProjectOverview(filter string, maxDepth int) []folder.DisplayLine {
	if o.Folder == nil {
		return nil
	}
	return folder.Render(o.Folder, filter, maxDepth)
}

// FilenameSearch delegates to the Filename Index.
func (o *Orchestrator) FilenameSearch(q string, opts filenameindex.SearchOptions) []filenameindex.Entry {
	if o.FilenameIdx == nil {
		return nil
	}
	return o.FilenameIdx.Search(q, opts)
}

// PatternDetection parses every Python file under dirFilter (source-root-
// relative; empty means the whole tree) and clusters files whose classes
// share a method signature, surfacing repeated structural patterns
// (e.g. a family of Importer subclasses) for architectural navigation.
func (o *Orchestrator) PatternDetection(dirFilter string, cfg pattern.DetectorConfig) ([]pattern.Pattern, error) {
	root := filepath.Join(o.SourceRoot, filepath.Clean(dirFilter))
	var symbols []parser.Symbol

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if name := d.Name(); strings.HasPrefix(name, ".") && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		lang, ok := parser.DetectLanguage(path)
		if !ok {
			return nil
		}
		source, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil
		}
		p, parserErr := parser.NewParser(lang)
		if parserErr != nil {
			return nil
		}
		relPath, relErr := filepath.Rel(o.SourceRoot, path)
		if relErr != nil {
			relPath = path
		}
		fileSymbols, parseErr := p.Parse(source, relPath)
		if parseErr != nil {
			return nil
		}
		symbols = append(symbols, fileSymbols...)
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	return pattern.NewDetector(cfg).Detect(symbols), nil
}

// SemanticSearch embeds queryText and ranks the "chunks" Qdrant
// collection against it, complementing the inverted-index
// FileContentSearch with a vector-similarity retrieval path. Returns
// an error if Semantic/Embedder were not wired.
func (o *Orchestrator) SemanticSearch(ctx context.Context, queryText string, limit int) ([]chunk.Chunk, error) {
	if o.Semantic == nil || o.Embedder == nil {
		return nil, fmt.Errorf("semantic search not configured")
	}
	vectors, err := o.Embedder.Embed(ctx, []string{queryText})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embedding returned no vectors")
	}
	return o.Semantic.Search(ctx, "chunks", vectors[0], limit, nil)
}

// NavigationDocs finds AGENTS.md/CLAUDE.md files under the source root
// and parses their heading/section structure, for a navigation-oriented
// tool distinct from the generic FileContentRetrieval path.
func (o *Orchestrator) NavigationDocs() ([]*docs.AgentsDoc, error) {
	var found []*docs.AgentsDoc

	walkErr := filepath.WalkDir(o.SourceRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if name := d.Name(); strings.HasPrefix(name, ".") && path != o.SourceRoot {
				return filepath.SkipDir
			}
			return nil
		}
		name := d.Name()
		if name != "AGENTS.md" && name != "CLAUDE.md" {
			return nil
		}
		content, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil
		}
		relPath, relErr := filepath.Rel(o.SourceRoot, path)
		if relErr != nil {
			relPath = path
		}
		doc, parseErr := docs.ParseAgentsMD(content, relPath, filepath.Base(o.SourceRoot))
		if parseErr != nil {
			return nil
		}
		found = append(found, doc)
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	return found, nil
}
