// Package query implements the Query Planner (SPEC_FULL.md §4.H):
// ranked multi-field search over an index.Partition, docs-partition
// rewrite via a shard.Map, filename search, fused retrieval with
// retry, the suggestion oracle, and highlighting.
package query

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/blevesearch/bleve/v2"
	bquery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/randalmurphy/code-index/internal/cache"
	"github.com/randalmurphy/code-index/internal/filenameindex"
	"github.com/randalmurphy/code-index/internal/index"
	"github.com/randalmurphy/code-index/internal/shard"
)

// Mode selects AND/OR term combination, shared with filenameindex.Mode.
type Mode string

const (
	ModeAnd Mode = "and"
	ModeOr  Mode = "or"

	highlightExcerptLen = 200
)

// Hit is one ranked content-search result after docs-partition
// rewrite.
type Hit struct {
	Path    string  `json:"path"`
	Score   float64 `json:"score"`
	Page    int     `json:"page,omitempty"`
	Sheet   string  `json:"sheet,omitempty"`
	Excerpt string  `json:"excerpt,omitempty"`
}

// Planner ties one partition pair to a ShardMap and an optional
// result cache.
type Planner struct {
	Docs        *index.Partition
	Other       *index.Partition
	ShardMap    *shard.Map
	FilenameIdx *filenameindex.Index
	Cache       *cache.RedisCache // optional; nil disables caching
	Generation  int               // bumped by the caller on every committed index update
	Classifier  *Classifier       // optional; nil disables query-shape routing
	Synonyms    *SynonymExpander  // optional; nil disables synonym fallback

	// SourceRoot relativizes a rewritten docs hit's absolute
	// ShardMap.IDToFile origin back to the source-root-relative form
	// every Hit.Path uses. Empty leaves the origin path as-is.
	SourceRoot string

	// Repo names this tree in the cache's cross-process index version
	// counter (bumped by the invalidate-file command via
	// cache.RedisCache.IncrIndexVersion). Empty leaves cache keys keyed
	// on Generation alone.
	Repo string
}

// Search runs ranked multi-field content search against one
// partition, field-rewriting docs-partition hits back to their
// origin+label via the ShardMap.
func (p *Planner) Search(ctx context.Context, partition string, queryString string, mode Mode, limit int, highlight bool) ([]Hit, error) {
	if cached, ok := p.readCache(ctx, partition, queryString, mode); ok {
		return cached, nil
	}

	part := p.partitionFor(partition)
	if part == nil {
		return nil, fmt.Errorf("unknown partition %q", partition)
	}

	bq := buildFieldQuery(queryString, mode)
	req := bleve.NewSearchRequest(bq)
	req.Size = limit
	if req.Size <= 0 {
		req.Size = 20
	}
	req.Fields = []string{"path", "content"}

	res, err := part.Index().SearchInContext(ctx, req)
	if err != nil {
		return nil, err
	}

	terms := strings.Fields(strings.ToLower(queryString))

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hit := Hit{Path: h.ID, Score: h.Score}
		if partition == "docs" {
			hit = p.rewriteDocsHit(hit)
		}
		if content, ok := h.Fields["content"].(string); ok {
			hit.Excerpt = excerpt(content, highlightExcerptLen)
			if highlight {
				hit.Excerpt = Highlight(hit.Excerpt, terms)
			}
		}
		hits = append(hits, hit)
	}

	p.writeCache(ctx, partition, queryString, mode, hits)
	return hits, nil
}

// Highlight wraps every substring-matched query term in the excerpt
// with "**...**" markers, surface form preserved, per §4.H's
// Highlight note.
func Highlight(excerptText string, terms []string) string {
	if len(terms) == 0 {
		return excerptText
	}
	lower := strings.ToLower(excerptText)
	var b strings.Builder
	i := 0
	for i < len(excerptText) {
		matched := ""
		for _, term := range terms {
			if term == "" {
				continue
			}
			if i+len(term) <= len(lower) && lower[i:i+len(term)] == term {
				if len(term) > len(matched) {
					matched = term
				}
			}
		}
		if matched != "" {
			b.WriteString("**")
			b.WriteString(excerptText[i : i+len(matched)])
			b.WriteString("**")
			i += len(matched)
			continue
		}
		b.WriteByte(excerptText[i])
		i++
	}
	return b.String()
}

func (p *Planner) partitionFor(name string) *index.Partition {
	switch name {
	case "docs":
		return p.Docs
	case "other":
		return p.Other
	default:
		return nil
	}
}

// rewriteDocsHit rewrites a docs-partition hit's shard path to its
// origin file and attaches the shard's label as page/sheet, per
// §4.H's Result normalization.
func (p *Planner) rewriteDocsHit(hit Hit) Hit {
	if p.ShardMap == nil {
		return hit
	}
	id := strings.TrimSuffix(filepath.Base(hit.Path), filepath.Ext(hit.Path))
	origin, ok := p.ShardMap.IDToFile[id]
	if !ok {
		return hit
	}
	hit.Path = origin.OriginalFile
	if p.SourceRoot != "" {
		if rel, relErr := filepath.Rel(p.SourceRoot, origin.OriginalFile); relErr == nil {
			hit.Path = rel
		}
	}
	hit.Page = origin.Page
	hit.Sheet = origin.Sheet
	return hit
}

// buildFieldQuery plans a match query across "content" and "filename",
// combined with the requested mode's boolean operator. mode=and uses a
// conjunction of per-field disjunctions; mode=or uses one big
// disjunction across fields and terms.
func buildFieldQuery(queryString string, mode Mode) bquery.Query {
	terms := strings.Fields(strings.ToLower(queryString))
	if len(terms) == 0 {
		return bleve.NewMatchNoneQuery()
	}

	var perTerm []bquery.Query
	for _, term := range terms {
		contentQ := bleve.NewMatchQuery(term)
		contentQ.SetField("content")
		filenameQ := bleve.NewMatchQuery(term)
		filenameQ.SetField("filename")
		perTerm = append(perTerm, bleve.NewDisjunctionQuery(contentQ, filenameQ))
	}

	if mode == ModeOr {
		return bleve.NewDisjunctionQuery(perTerm...)
	}
	return bleve.NewConjunctionQuery(perTerm...)
}

// FilenameSearch delegates to the Filename Index (component E).
func (p *Planner) FilenameSearch(q string, opts filenameindex.SearchOptions) []filenameindex.Entry {
	if p.FilenameIdx == nil {
		return nil
	}
	return p.FilenameIdx.Search(q, opts)
}

// FusedRetrieve implements §4.H's "Fused retrieval with retry": try
// ranked content search (mode=OR) on partition; on empty results,
// rewrite the query via the suggestion oracle and retry up to three
// attempts total; if still empty, fall back to filename search over
// the whole tree.
func (p *Planner) FusedRetrieve(ctx context.Context, partition, queryString string, limit int) ([]Hit, []filenameindex.Entry, error) {
	if p.Classifier != nil {
		strategy := p.Classifier.Route(p.Classifier.Classify(queryString))
		if strategy.PreferFilename {
			if entries := p.FilenameSearch(queryString, filenameindex.SearchOptions{Mode: filenameindex.ModeOr, Limit: limit}); len(entries) > 0 {
				return nil, entries, nil
			}
		}
	}

	q := queryString
	for attempt := 0; attempt < 3; attempt++ {
		hits, err := p.Search(ctx, partition, q, ModeOr, limit, false)
		if err != nil {
			return nil, nil, err
		}
		if len(hits) > 0 {
			return hits, nil, nil
		}

		suggestions := p.Suggest(ctx, partition, q, 1)
		if len(suggestions) == 0 {
			break
		}
		q = suggestions[0]
	}

	if p.Synonyms != nil {
		for _, syn := range p.Synonyms.Expand(queryString) {
			hits, err := p.Search(ctx, partition, syn.Term, ModeOr, limit, false)
			if err == nil && len(hits) > 0 {
				return hits, nil, nil
			}
		}
	}

	entries := p.FilenameSearch(queryString, filenameindex.SearchOptions{Mode: filenameindex.ModeOr, Limit: limit})
	return nil, entries, nil
}

// Suggest implements the suggestion oracle: tokenize, hold all but the
// last token as a fixed prefix, and enumerate terms in the content
// lexicon whose lowercase form begins with the last token's lowercase
// form (capped at limit). Single-word input returns the prefix scan
// without the rejoin step.
func (p *Planner) Suggest(ctx context.Context, partition, partial string, limit int) []string {
	part := p.partitionFor(partition)
	if part == nil {
		return nil
	}

	tokens := strings.Fields(partial)
	if len(tokens) == 0 {
		return nil
	}
	last := tokens[len(tokens)-1]
	prefix := strings.Join(tokens[:len(tokens)-1], " ")
	lastLower := strings.ToLower(last)
	lastCapitalized := len(last) > 0 && unicode.IsUpper(rune(last[0]))

	terms := lexiconPrefixScan(part, lastLower, limit)

	var out []string
	for _, term := range terms {
		candidate := term
		if lastCapitalized && len(candidate) > 0 {
			candidate = strings.ToUpper(candidate[:1]) + candidate[1:]
		}
		if prefix == "" {
			out = append(out, candidate)
		} else {
			out = append(out, prefix+" "+candidate)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// lexiconPrefixScan enumerates terms from the "content" field's term
// dictionary beginning with prefix, via bleve's field-terms reader.
func lexiconPrefixScan(part *index.Partition, prefix string, limit int) []string {
	idx, _, err := part.Index().Advanced()
	if err != nil {
		return nil
	}
	reader, err := idx.Reader()
	if err != nil {
		return nil
	}
	defer reader.Close()

	dict, err := reader.FieldDictPrefix("content", []byte(prefix))
	if err != nil {
		return nil
	}
	defer dict.Close()

	var out []string
	for {
		entry, nextErr := dict.Next()
		if nextErr != nil || entry == nil {
			break
		}
		out = append(out, entry.Term)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

func excerpt(content string, length int) string {
	if len(content) <= length {
		return content
	}
	return content[:length] + "..."
}

// cacheKey folds both the in-process Generation counter (bumped on
// every committed index update) and, when a repo is configured, the
// cross-process Redis index version (bumped by the invalidate-file
// command after an out-of-band edit) into the key, so either signal
// busts a stale cache entry.
func (p *Planner) cacheKey(ctx context.Context, partition, queryString string, mode Mode) string {
	version := int64(p.Generation)
	if p.Cache != nil && p.Repo != "" {
		if v, err := p.Cache.GetIndexVersion(ctx, p.Repo); err == nil {
			version += v
		}
	}
	h := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s|%d", partition, queryString, mode, version)))
	return "query:" + hex.EncodeToString(h[:])
}

func (p *Planner) readCache(ctx context.Context, partition, queryString string, mode Mode) ([]Hit, bool) {
	if p.Cache == nil {
		return nil, false
	}
	raw, err := p.Cache.Get(ctx, p.cacheKey(ctx, partition, queryString, mode))
	if err != nil || raw == "" {
		return nil, false
	}
	hits, decodeErr := decodeHits(raw)
	if decodeErr != nil {
		return nil, false
	}
	return hits, true
}

func (p *Planner) writeCache(ctx context.Context, partition, queryString string, mode Mode, hits []Hit) {
	if p.Cache == nil {
		return
	}
	encoded, err := encodeHits(hits)
	if err != nil {
		return
	}
	_ = p.Cache.Set(ctx, p.cacheKey(ctx, partition, queryString, mode), encoded, 10*time.Minute)
}
