// Package filenameindex implements the Filename Index (SPEC_FULL.md
// §4.E): exact-key and substring filename lookup structures, built
// together by a single pass over the source tree.
package filenameindex

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/RoaringBitmap/roaring"
)

// Entry is one (relative path, lowercase basename) pair in the All
// list.
type Entry struct {
	RelativePath string
	Basename     string
}

// Index is an immutable snapshot of the filename index: the exact-key
// table and the all-files list, per §4.E. Candidate-set intersection
// across exact-key lookups is backed by roaring bitmaps over file
// ordinals for fast AND/OR composition on large trees.
type Index struct {
	files []Entry                    // ordinal -> entry
	exact map[string]*roaring.Bitmap // key -> set of ordinals
}

// Build walks root and constructs the Exact and All structures in one
// pass. Both are treated as an immutable snapshot once returned.
func Build(root string) (*Index, error) {
	idx := &Index{exact: make(map[string]*roaring.Bitmap)}

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		basename := strings.ToLower(filepath.Base(rel))

		ordinal := uint32(len(idx.files))
		idx.files = append(idx.files, Entry{RelativePath: rel, Basename: basename})

		ext := strings.ToLower(filepath.Ext(basename))
		stem := basename
		if ext != "" {
			stem = strings.TrimSuffix(basename, ext)
		}

		idx.addKey(basename, ordinal)
		idx.addKey(stem, ordinal)
		if ext != "" {
			idx.addKey(ext, ordinal)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return idx, nil
}

func (idx *Index) addKey(key string, ordinal uint32) {
	if key == "" {
		return
	}
	bm, ok := idx.exact[key]
	if !ok {
		bm = roaring.New()
		idx.exact[key] = bm
	}
	bm.Add(ordinal)
}

// Mode selects AND/OR combination across multiple query tokens.
type Mode string

const (
	ModeAnd Mode = "and"
	ModeOr  Mode = "or"
)

// SearchOptions bounds and filters a filename search.
type SearchOptions struct {
	Mode         Mode
	FolderPrefix string // optional, lowercase-compared
	Extension    string // optional, lowercase-compared, e.g. ".py"
	Limit        int
}

// Search implements §4.H's Filename search: exact hits via
// intersection/union of Exact[token] across tokens (filtered by
// folder prefix and extension), then substring augmentation from All
// until Limit is reached.
func (idx *Index) Search(query string, opts SearchOptions) []Entry {
	tokens := strings.Fields(strings.ToLower(query))
	if len(tokens) == 0 {
		return nil
	}

	exactSet := idx.exactCandidateSet(tokens, opts.Mode)

	seen := make(map[string]bool)
	var results []Entry

	exactSet.Iterate(func(ordinal uint32) bool {
		e := idx.files[ordinal]
		if idx.passesFilter(e, opts) {
			results = append(results, e)
			seen[e.RelativePath] = true
		}
		return opts.Limit <= 0 || len(results) < opts.Limit
	})

	if opts.Limit > 0 && len(results) >= opts.Limit {
		return results[:opts.Limit]
	}

	for _, e := range idx.files {
		if opts.Limit > 0 && len(results) >= opts.Limit {
			break
		}
		if seen[e.RelativePath] {
			continue
		}
		if !idx.passesFilter(e, opts) {
			continue
		}
		if allSubstrings(tokens, e.Basename) {
			results = append(results, e)
			seen[e.RelativePath] = true
		}
	}

	return results
}

func (idx *Index) exactCandidateSet(tokens []string, mode Mode) *roaring.Bitmap {
	if mode == "" {
		mode = ModeAnd
	}

	var acc *roaring.Bitmap
	for i, tok := range tokens {
		bm, ok := idx.exact[tok]
		if !ok {
			bm = roaring.New()
		}
		if i == 0 {
			acc = bm.Clone()
			continue
		}
		if mode == ModeOr {
			acc.Or(bm)
		} else {
			acc.And(bm)
		}
	}
	if acc == nil {
		return roaring.New()
	}
	return acc
}

func (idx *Index) passesFilter(e Entry, opts SearchOptions) bool {
	if opts.FolderPrefix != "" && !strings.HasPrefix(strings.ToLower(e.RelativePath), strings.ToLower(opts.FolderPrefix)) {
		return false
	}
	if opts.Extension != "" && !strings.HasSuffix(e.Basename, strings.ToLower(opts.Extension)) {
		return false
	}
	return true
}

func allSubstrings(tokens []string, basename string) bool {
	for _, tok := range tokens {
		if !strings.Contains(basename, tok) {
			return false
		}
	}
	return true
}
