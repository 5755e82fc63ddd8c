package index

import (
	"encoding/gob"
	"os"
	"path/filepath"
	"sort"
)

// Signature is the (mtime, size) change-detection tuple stored per
// indexed path, per SPEC_FULL.md §4.G step 2.
type Signature struct {
	ModTimeUnixNano int64
	Size            int64
}

// Metadata is the sidecar "path -> signature" table persisted
// alongside a partition's committed index, gob-encoded (the closest
// stdlib analog of Python's pickle, see DESIGN.md).
type Metadata struct {
	Signatures map[string]Signature
}

func newMetadata() *Metadata {
	return &Metadata{Signatures: make(map[string]Signature)}
}

func metadataPath(partitionDir string) string {
	return filepath.Join(partitionDir, "file_metadata")
}

// signatureEntry is the on-disk pair form of one Metadata.Signatures
// entry. gob's map encoding walks the map via an unordered MapRange,
// so encoding the map directly would make saveMetadata's output vary
// byte-for-byte across reruns with no underlying change; encoding a
// key-sorted slice instead keeps it deterministic.
type signatureEntry struct {
	Key string
	Sig Signature
}

// loadMetadata reads the sidecar table. A missing or corrupt file is
// treated as empty previous metadata, per step 1's "on parse error...
// treat all previous metadata as empty".
func loadMetadata(partitionDir string) *Metadata {
	f, err := os.Open(metadataPath(partitionDir))
	if err != nil {
		return newMetadata()
	}
	defer f.Close()

	var entries []signatureEntry
	if err := gob.NewDecoder(f).Decode(&entries); err != nil {
		return newMetadata()
	}
	m := newMetadata()
	for _, e := range entries {
		m.Signatures[e.Key] = e.Sig
	}
	return m
}

// saveMetadata writes the sidecar table, to be called in the same
// commit step as the index writer's commit (Invariant 4). The map is
// flattened into a key-sorted slice before encoding so the output is
// bit-identical across reruns with no file-system changes.
func saveMetadata(partitionDir string, m *Metadata) error {
	entries := make([]signatureEntry, 0, len(m.Signatures))
	for k, sig := range m.Signatures {
		entries = append(entries, signatureEntry{Key: k, Sig: sig})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })

	tmp := metadataPath(partitionDir) + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := gob.NewEncoder(f).Encode(entries); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, metadataPath(partitionDir))
}
