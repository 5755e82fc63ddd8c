package shard

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// OriginRef is one entry in ShardMap.id_to_file: the origin file and
// either a page or sheet label.
type OriginRef struct {
	OriginalFile string `json:"original_file"`
	Page         int    `json:"page,omitempty"`
	Sheet        string `json:"sheet,omitempty"`
}

// Map is the bidirectional ShardMap persisted alongside the shards
// (SPEC_FULL.md §3/§6): id -> {origin, label} and
// shard_relative_path -> id.
type Map struct {
	IDToFile         map[string]OriginRef `json:"id_to_file"`
	RelativePathToID map[string]string    `json:"relative_path_to_id"`
}

// NewMap creates an empty ShardMap.
func NewMap() *Map {
	return &Map{
		IDToFile:         make(map[string]OriginRef),
		RelativePathToID: make(map[string]string),
	}
}

// Add records one shard's origin/label and its relative path -> id
// entry.
func (m *Map) Add(id int, origin OriginRef) {
	idStr := itoa(id)
	m.IDToFile[idStr] = origin
	relPath := idStr + ".txt"
	m.RelativePathToID[relPath] = idStr
}

// Label returns the shard's display label ("sheet: X" or "page: N").
func (r OriginRef) Label() string {
	if r.Sheet != "" {
		return "sheet: " + r.Sheet
	}
	return "page: " + itoa(r.Page)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// Save writes mapping.json under dir, 2-space indented, UTF-8,
// non-ASCII preserved (Go's encoding/json never escapes to \uXXXX
// for valid UTF-8 runes when SetEscapeHTML(false) is used).
func (m *Map) Save(dir string) error {
	path := filepath.Join(dir, "mapping.json")
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(m)
}

// LoadMap reads mapping.json from dir. A missing file returns an
// empty, non-nil Map.
func LoadMap(dir string) (*Map, error) {
	path := filepath.Join(dir, "mapping.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewMap(), nil
		}
		return nil, err
	}
	m := NewMap()
	if err := json.Unmarshal(data, m); err != nil {
		return nil, err
	}
	return m, nil
}
