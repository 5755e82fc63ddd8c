// Package folder implements the Folder Model (SPEC_FULL.md §4.D): a
// hierarchical folder tree annotated with per-extension file counts,
// built with a bounded fan-out at shallow depths.
package folder

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

const (
	// maxFanoutDepth is the depth below which fan-out is eligible (0
	// or 1, per build_folder_tree_json's `current_depth < 2`).
	maxFanoutDepth = 2
	// fanoutThreshold is the minimum number of directory entries
	// before parallel fan-out kicks in.
	fanoutThreshold = 5
	// workerBudget is the fixed worker-pool size for fan-out.
	workerBudget = 10
	// maxBinaryExtLen: extensions longer than this are treated as
	// binary for the non-binary-only variant's display purposes.
	maxBinaryExtLen = 10
)

// Node is a folder tree node with per-extension file counts. A
// child's counts are already included in its parent's counts.
type Node struct {
	Name     string
	Counts   map[string]int
	Children []*Node
}

func newNode(name string) *Node {
	return &Node{Name: name, Counts: make(map[string]int)}
}

func (n *Node) addCounts(other map[string]int) {
	for ext, c := range other {
		n.Counts[ext] += c
	}
}

// BinarySniffer decides whether a file's content looks binary
// (first-kilobyte NUL-byte check), used by the non-binary-only
// variant.
type BinarySniffer func(path string) bool

// DefaultBinarySniffer reads up to 1024 bytes and reports whether
// a NUL byte appears.
func DefaultBinarySniffer(path string) bool {
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

// Options configures a folder-tree build.
type Options struct {
	// NonBinaryOnly skips files whose extension is in BinaryExts, or
	// whose content is sniffed binary, or whose extension exceeds 10
	// characters.
	NonBinaryOnly bool
	BinaryExts    map[string]bool
	Sniffer       BinarySniffer
}

// Build walks root and returns its Node tree. Fan-out is bounded to
// depth < 2 and only engages when a directory has more than 5
// entries; each directory's children are then processed by up to 10
// concurrent workers and merged back into the parent's counts.
func Build(root string, opts Options) (*Node, error) {
	if opts.Sniffer == nil {
		opts.Sniffer = DefaultBinarySniffer
	}
	return buildNode(root, filepath.Base(root), 0, opts)
}

func buildNode(path, name string, depth int, opts Options) (*Node, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}

	node := newNode(name)

	var dirEntries []os.DirEntry
	var fileEntries []os.DirEntry
	for _, e := range entries {
		if e.IsDir() {
			dirEntries = append(dirEntries, e)
		} else {
			fileEntries = append(fileEntries, e)
		}
	}

	for _, e := range fileEntries {
		full := filepath.Join(path, e.Name())
		ext := extensionOf(e.Name())
		if opts.NonBinaryOnly && skipFile(full, ext, opts) {
			continue
		}
		node.Counts[ext]++
	}

	if depth < maxFanoutDepth && len(dirEntries) > fanoutThreshold {
		children := buildChildrenParallel(path, dirEntries, depth, opts)
		node.Children = children
	} else {
		for _, e := range dirEntries {
			child, err := buildNode(filepath.Join(path, e.Name()), e.Name(), depth+1, opts)
			if err != nil {
				continue
			}
			node.Children = append(node.Children, child)
		}
	}

	for _, child := range node.Children {
		node.addCounts(child.Counts)
	}

	return node, nil
}

func buildChildrenParallel(path string, dirEntries []os.DirEntry, depth int, opts Options) []*Node {
	results := make([]*Node, len(dirEntries))
	sem := make(chan struct{}, workerBudget)
	var wg sync.WaitGroup

	for i, e := range dirEntries {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, name string) {
			defer wg.Done()
			defer func() { <-sem }()
			child, err := buildNode(filepath.Join(path, name), name, depth+1, opts)
			if err == nil {
				results[i] = child
			}
		}(i, e.Name())
	}
	wg.Wait()

	out := make([]*Node, 0, len(results))
	for _, n := range results {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}

func skipFile(full, ext string, opts Options) bool {
	if len(ext) > maxBinaryExtLen {
		return true
	}
	if opts.BinaryExts != nil && opts.BinaryExts[strings.ToLower(ext)] {
		return true
	}
	return opts.Sniffer(full)
}

func extensionOf(name string) string {
	ext := filepath.Ext(name)
	if ext == "" {
		return ""
	}
	return strings.ToLower(ext)
}

// Count returns the node's count for a given extension filter, or the
// sum over all extensions when filter is "*".
func (n *Node) Count(filter string) int {
	if filter == "*" {
		total := 0
		for _, c := range n.Counts {
			total += c
		}
		return total
	}
	return n.Counts[filter]
}

// DisplayLine is one rendered line of a folder tree display.
type DisplayLine struct {
	Name  string
	Count int
	Depth int
}

// Render implements §4.D's display algorithm: filter by extension,
// elide zero-count nodes, merge a single same-count child into its
// parent, and collapse subtrees at maxDepth (0 = unlimited) to a
// single aggregated line.
func Render(n *Node, filter string, maxDepth int) []DisplayLine {
	merged := mergeSingleChild(n, filter)
	var lines []DisplayLine
	renderNode(merged, filter, 0, maxDepth, &lines)
	return lines
}

// mergeSingleChild recursively merges a node with its only child when
// their filtered counts are equal, renaming to "parent/child".
func mergeSingleChild(n *Node, filter string) *Node {
	if n == nil {
		return nil
	}
	children := make([]*Node, 0, len(n.Children))
	for _, c := range n.Children {
		if c.Count(filter) > 0 {
			children = append(children, mergeSingleChild(c, filter))
		}
	}

	if len(children) == 1 && children[0].Count(filter) == n.Count(filter) {
		merged := newNode(n.Name + "/" + children[0].Name)
		merged.Counts = children[0].Counts
		merged.Children = children[0].Children
		return merged
	}

	out := newNode(n.Name)
	out.Counts = n.Counts
	out.Children = children
	return out
}

func renderNode(n *Node, filter string, depth, maxDepth int, lines *[]DisplayLine) {
	count := n.Count(filter)
	if count == 0 {
		return
	}

	if maxDepth > 0 && depth == maxDepth {
		*lines = append(*lines, DisplayLine{Name: n.Name, Count: count, Depth: depth})
		return
	}

	*lines = append(*lines, DisplayLine{Name: n.Name, Count: count, Depth: depth})

	sorted := make([]*Node, len(n.Children))
	copy(sorted, n.Children)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	for _, c := range sorted {
		renderNode(c, filter, depth+1, maxDepth, lines)
	}
}
