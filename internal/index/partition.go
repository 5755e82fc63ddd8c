// Package index implements the incremental inverted-index Index
// Builder (SPEC_FULL.md §4.G): two independent bleve-backed
// partitions, "docs" and "other", sharing one analyzer and one
// incremental-update algorithm.
package index

import (
	"os"
	"path/filepath"

	"github.com/RoaringBitmap/roaring"
	"github.com/blevesearch/bleve/v2"
)

// Document is the schema stored per indexed path: {path, filename,
// content}, per §4.G's Schema note.
type Document struct {
	Path     string `json:"path"`
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

// Candidate is one file eligible for a partition, as discovered by
// the caller's eligibility walk (docs: shard .txt files; other:
// source-root files minus binary extensions, the shard directory and
// dot-directories such as the default .code-index index directory).
type Candidate struct {
	Key      string // unique key == index document id (relative path)
	AbsPath  string
	Filename string
	ModTime  int64 // UnixNano
	Size     int64
}

// Partition wraps one bleve index plus its sidecar metadata table.
type Partition struct {
	Name string
	dir  string
	idx  bleve.Index
}

// OpenPartition opens (or creates, on first use) the bleve index
// rooted at dir/bleve.
func OpenPartition(name, dir string) (*Partition, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	idxPath := filepath.Join(dir, "bleve")

	var bidx bleve.Index
	if _, err := os.Stat(idxPath); err == nil {
		bidx, err = bleve.Open(idxPath)
		if err != nil {
			return nil, err
		}
	} else {
		m, mapErr := buildMapping()
		if mapErr != nil {
			return nil, mapErr
		}
		bidx, err = bleve.New(idxPath, m)
		if err != nil {
			return nil, err
		}
	}

	return &Partition{Name: name, dir: dir, idx: bidx}, nil
}

// Close closes the underlying bleve index.
func (p *Partition) Close() error {
	return p.idx.Close()
}

// Paths returns up to limit indexed document ids (paths), for the
// HTTP Surface's GET /files listing. A limit <= 0 means unbounded.
func (p *Partition) Paths(limit int) ([]string, error) {
	if limit <= 0 {
		limit = int(^uint(0) >> 1) // MaxInt
	}
	req := bleve.NewSearchRequest(bleve.NewMatchAllQuery())
	req.Size = limit
	res, err := p.idx.Search(req)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(res.Hits))
	for _, h := range res.Hits {
		out = append(out, h.ID)
	}
	return out, nil
}

// Index returns the underlying bleve index for query-time use
// (internal/query builds its own query objects against this handle).
func (p *Partition) Index() bleve.Index {
	return p.idx
}

// UpdateResult reports what an incremental update did.
type UpdateResult struct {
	Upserted int
	Deleted  int
	Skipped  int // binary-sniffed or unreadable, left unindexed
}

// ContentReader reads a candidate's indexable text. It returns
// skip=true for content that fails the binary sniff (NUL byte in the
// first kilobyte), per §4.G step 4.
type ContentReader func(c Candidate) (content string, skip bool, err error)

// Update runs the incremental algorithm of §4.G steps 1-5 for this
// partition: load previous metadata, compute the dirty set via a
// roaring bitmap over the current candidate ordinals, delete documents
// for paths no longer present, upsert dirty documents in one batch,
// then commit the batch and persist the new metadata together.
func (p *Partition) Update(candidates []Candidate, read ContentReader) (UpdateResult, error) {
	var result UpdateResult

	prev := loadMetadata(p.dir)
	current := newMetadata()

	dirty := roaring.New()
	seen := make(map[string]bool, len(candidates))

	for ordinal, c := range candidates {
		seen[c.Key] = true
		sig := Signature{ModTimeUnixNano: c.ModTime, Size: c.Size}
		current.Signatures[c.Key] = sig

		if old, ok := prev.Signatures[c.Key]; !ok || old != sig {
			dirty.Add(uint32(ordinal))
		}
	}

	batch := p.idx.NewBatch()

	for key := range prev.Signatures {
		if !seen[key] {
			batch.Delete(key)
			result.Deleted++
		}
	}

	dirty.Iterate(func(ordinal uint32) bool {
		c := candidates[ordinal]
		content, skip, err := read(c)
		if err != nil {
			result.Skipped++
			return true
		}
		if skip {
			result.Skipped++
			delete(current.Signatures, c.Key)
			return true
		}
		doc := Document{Path: c.Key, Filename: c.Filename, Content: content}
		if batchErr := batch.Index(c.Key, doc); batchErr != nil {
			result.Skipped++
			return true
		}
		result.Upserted++
		return true
	})

	if err := p.idx.Batch(batch); err != nil {
		return result, err
	}

	if err := saveMetadata(p.dir, current); err != nil {
		return result, err
	}

	return result, nil
}
