package shard

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// BinaryExtensionSet is a case-insensitive set of file-extension
// strings, authoritative for "skip without reading content" (§3).
type BinaryExtensionSet struct {
	exts map[string]bool
}

type binaryExtYAML struct {
	BinaryExtensions []string `yaml:"binary_extensions"`
}

// LoadBinaryExtensionSet reads a YAML file with key
// `binary_extensions: [".ext", ...]`.
func LoadBinaryExtensionSet(path string) (*BinaryExtensionSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc binaryExtYAML
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return NewBinaryExtensionSet(doc.BinaryExtensions), nil
}

// NewBinaryExtensionSet builds a set from a literal extension list.
func NewBinaryExtensionSet(exts []string) *BinaryExtensionSet {
	set := &BinaryExtensionSet{exts: make(map[string]bool, len(exts))}
	for _, e := range exts {
		set.exts[strings.ToLower(e)] = true
	}
	return set
}

// Contains reports whether ext (case-insensitive, with leading dot)
// is in the set.
func (s *BinaryExtensionSet) Contains(ext string) bool {
	if s == nil {
		return false
	}
	return s.exts[strings.ToLower(ext)]
}

// defaultBinaryExtensions is used when no YAML list is configured or
// the configured file doesn't exist yet.
var defaultBinaryExtensions = []string{
	".png", ".jpg", ".jpeg", ".gif", ".ico", ".bmp",
	".zip", ".tar", ".gz", ".7z", ".rar",
	".exe", ".dll", ".so", ".dylib",
	".mp3", ".mp4", ".mov", ".avi",
	".woff", ".woff2", ".ttf", ".eot",
}

// LoadBinaryExtensionSetOrDefault loads the YAML list at path, falling
// back to a built-in default set when the file is missing or invalid.
func LoadBinaryExtensionSetOrDefault(path string) *BinaryExtensionSet {
	set, err := LoadBinaryExtensionSet(path)
	if err != nil {
		return NewBinaryExtensionSet(defaultBinaryExtensions)
	}
	return set
}

// IsBinaryContent sniffs the first kilobyte of a file for a NUL byte.
func IsBinaryContent(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	buf := make([]byte, 1024)
	n, _ := f.Read(buf)
	for i := 0; i < n; i++ {
		if buf[i] == 0 {
			return true
		}
	}
	return false
}
