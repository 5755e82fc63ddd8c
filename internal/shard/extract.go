// Package shard implements the Office-document shard extractor
// (SPEC_FULL.md §4.F): spreadsheets, PDFs, word-processor documents,
// and presentations are split into per-page/per-sheet/per-slide text
// shards under a shards directory, tracked by a bidirectional
// ShardMap so search hits can be traced back to (origin file, label).
package shard

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var officeExtensions = map[string]bool{
	".xlsx": true, ".xls": true, ".xlsm": true,
	".pdf":  true,
	".docx": true, ".doc": true, ".odt": true,
	".pptx": true, ".ppt": true,
}

// IsOfficeDocument reports whether ext (with leading dot) is handled
// by the shard extractor.
func IsOfficeDocument(ext string) bool {
	return officeExtensions[strings.ToLower(ext)]
}

func readFileAll(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// ExtractAll walks sourceRoot for office documents, extracts one text
// shard per page/sheet/slide into shardsDir, and returns the ShardMap
// describing the result. Shard ids are assigned monotonically
// starting at 1 for this run.
//
// Extraction is staged: shard files are written to shardsDir directly,
// but mapping.json is written only after every document has been
// processed, so a crash mid-run leaves stray numbered .txt files
// rather than a mapping that claims shards that don't exist. A
// trailing reclamation pass removes any .txt file under shardsDir that
// isn't referenced by the freshly built map.
func ExtractAll(sourceRoot, shardsDir string) (*Map, error) {
	if err := os.MkdirAll(shardsDir, 0o755); err != nil {
		return nil, err
	}

	var docs []string
	err := filepath.Walk(sourceRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			return nil
		}
		if IsOfficeDocument(filepath.Ext(path)) {
			docs = append(docs, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(docs)

	m := NewMap()
	nextID := 1

	for _, doc := range docs {
		rel, relErr := filepath.Rel(sourceRoot, doc)
		if relErr != nil {
			rel = doc
		}
		rel = filepath.ToSlash(rel)

		abs, absErr := filepath.Abs(doc)
		if absErr != nil {
			abs = doc
		}

		shards, origins, extractErr := extractDocument(doc, rel, abs)
		if extractErr != nil {
			continue
		}
		for i, text := range shards {
			id := nextID
			nextID++
			if err := writeShard(shardsDir, id, text); err != nil {
				return nil, fmt.Errorf("write shard %d for %s: %w", id, rel, err)
			}
			m.Add(id, origins[i])
		}
	}

	if err := m.Save(shardsDir); err != nil {
		return nil, err
	}
	if err := reclaimOrphans(shardsDir, m); err != nil {
		return nil, err
	}
	return m, nil
}

// extractDocument converts one office document into its per-shard
// text and origin metadata. relPath (slash-normalized, source-root
// relative) is used only for error messages; absPath is what mapping
//.json's original_file field persists, per the external contract.
func extractDocument(path, relPath, absPath string) ([]string, []OriginRef, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".xlsx", ".xls", ".xlsm":
		sheets, err := ConvertExcel(path)
		if err != nil {
			return nil, nil, err
		}
		texts := make([]string, len(sheets))
		origins := make([]OriginRef, len(sheets))
		for i, s := range sheets {
			texts[i] = s.Text
			origins[i] = OriginRef{OriginalFile: absPath, Sheet: s.SheetName}
		}
		return texts, origins, nil

	case ".pdf":
		pages, err := ConvertPDF(path)
		if err != nil {
			return nil, nil, err
		}
		origins := make([]OriginRef, len(pages))
		for i := range pages {
			origins[i] = OriginRef{OriginalFile: absPath, Page: i + 1}
		}
		return pages, origins, nil

	case ".docx", ".doc", ".odt":
		pages, err := ConvertWord(path)
		if err != nil {
			return nil, nil, err
		}
		origins := make([]OriginRef, len(pages))
		for i := range pages {
			origins[i] = OriginRef{OriginalFile: absPath, Page: i + 1}
		}
		return pages, origins, nil

	case ".pptx", ".ppt":
		slides, err := ConvertPresentation(path)
		if err != nil {
			return nil, nil, err
		}
		origins := make([]OriginRef, len(slides))
		for i := range slides {
			origins[i] = OriginRef{OriginalFile: absPath, Page: i + 1}
		}
		return slides, origins, nil
	}
	return nil, nil, fmt.Errorf("unsupported extension %q", ext)
}

func writeShard(shardsDir string, id int, text string) error {
	path := filepath.Join(shardsDir, itoa(id)+".txt")
	return os.WriteFile(path, []byte(text), 0o644)
}

func reclaimOrphans(shardsDir string, m *Map) error {
	entries, err := os.ReadDir(shardsDir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".txt") {
			continue
		}
		if _, ok := m.RelativePathToID[e.Name()]; !ok {
			_ = os.Remove(filepath.Join(shardsDir, e.Name()))
		}
	}
	return nil
}
