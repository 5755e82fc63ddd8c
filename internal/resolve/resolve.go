// Package resolve implements the Path Resolver: mapping a symbolic
// import reference (dotted or level-relative) to a concrete file,
// package directory, or namespace package under a source root.
package resolve

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Kind classifies what a resolution landed on.
type Kind string

const (
	KindFile             Kind = "file"
	KindPackage          Kind = "package"
	KindNamespacePackage Kind = "namespace_package"
)

// PackageMarker is the initializer filename whose presence makes a
// directory a package.
const PackageMarker = "__init__.py"

// SourceExt is the source file extension this resolver operates over.
const SourceExt = ".py"

// Result is the outcome of a resolution attempt.
type Result struct {
	Found        bool
	AbsolutePath string
	Kind         Kind
	Reason       string
}

// Ref is a symbolic reference to resolve.
type Ref struct {
	// ModuleName is the dotted (or atomic, or empty) name being
	// imported. Empty only valid when Level > 0 (e.g. "from . import x").
	ModuleName string
	// Level is the relative-import level: 0 for an absolute/plain
	// import, N>0 for N leading dots in a from-import.
	Level int
	// FromFile is the absolute path of the file containing the import.
	FromFile string
}

// Resolve implements SPEC_FULL.md §4.A.
func Resolve(ref Ref) Result {
	fromFile, err := filepath.Abs(ref.FromFile)
	if err != nil {
		return Result{Found: false, Reason: fmt.Sprintf("cannot resolve from_file: %v", err)}
	}
	currentDir := filepath.Dir(fromFile)

	if ref.Level > 0 {
		return resolveRelative(ref.ModuleName, currentDir, ref.Level)
	}
	if strings.Contains(ref.ModuleName, ".") {
		return resolveDotted(ref.ModuleName, currentDir)
	}
	return resolveAtomic(ref.ModuleName, currentDir)
}

// resolveDotted implements rule 2: relative_level==0, dotted name.
// Only the first component is looked up in the current directory;
// intermediate components must be real subdirectories.
func resolveDotted(name string, currentDir string) Result {
	parts := strings.Split(name, ".")
	first := parts[0]
	firstDir := filepath.Join(currentDir, first)

	if !isDir(firstDir) {
		firstFile := filepath.Join(currentDir, first+SourceExt)
		if len(parts) == 1 && isFile(firstFile) {
			return Result{Found: true, AbsolutePath: firstFile, Kind: KindFile}
		}
		return Result{Found: false, Reason: fmt.Sprintf("directory or file %q not found", first)}
	}

	if len(parts) == 1 {
		return terminalForDir(firstDir)
	}

	currentPath := firstDir
	for i, part := range parts[1:] {
		isLast := i == len(parts)-2
		if isLast {
			return terminalStep(currentPath, part)
		}
		subdir := filepath.Join(currentPath, part)
		if !isDir(subdir) {
			return Result{Found: false, Reason: fmt.Sprintf("intermediate path %q not found", part)}
		}
		currentPath = subdir
	}
	return Result{Found: false, Reason: "unexpected resolution error"}
}

// terminalForDir returns the package/namespace-package result for a
// directory that is itself the terminal target (single-component
// dotted/atomic lookup that landed on a directory).
func terminalForDir(dir string) Result {
	initFile := filepath.Join(dir, PackageMarker)
	if isFile(initFile) {
		return Result{Found: true, AbsolutePath: initFile, Kind: KindPackage}
	}
	return Result{Found: true, AbsolutePath: dir, Kind: KindNamespacePackage}
}

// terminalStep resolves the final dotted component under currentPath:
// prefer a file, then a package directory, then a namespace package.
func terminalStep(currentPath, part string) Result {
	filePath := filepath.Join(currentPath, part+SourceExt)
	if isFile(filePath) {
		return Result{Found: true, AbsolutePath: filePath, Kind: KindFile}
	}
	dirPath := filepath.Join(currentPath, part)
	if isDir(dirPath) {
		return terminalForDir(dirPath)
	}
	return Result{Found: false, Reason: fmt.Sprintf("%q not found as file or directory", part)}
}

// resolveAtomic implements rule 3: relative_level==0, atomic name.
// Probes in order: sibling file, sibling package dir, parent-sibling
// file, parent-sibling package dir.
func resolveAtomic(name string, currentDir string) Result {
	if siblingFile := filepath.Join(currentDir, name+SourceExt); isFile(siblingFile) {
		return Result{Found: true, AbsolutePath: siblingFile, Kind: KindFile}
	}

	siblingDir := filepath.Join(currentDir, name)
	if isDir(siblingDir) {
		initFile := filepath.Join(siblingDir, PackageMarker)
		if isFile(initFile) {
			return Result{Found: true, AbsolutePath: initFile, Kind: KindPackage}
		}
		if !strings.Contains(name, ".") {
			return Result{Found: true, AbsolutePath: siblingDir, Kind: KindNamespacePackage}
		}
	}

	parentDir := filepath.Dir(currentDir)
	if parentFile := filepath.Join(parentDir, name+SourceExt); isFile(parentFile) {
		return Result{Found: true, AbsolutePath: parentFile, Kind: KindFile}
	}

	parentPkgDir := filepath.Join(parentDir, name)
	if isDir(parentPkgDir) {
		initFile := filepath.Join(parentPkgDir, PackageMarker)
		if isFile(initFile) {
			return Result{Found: true, AbsolutePath: initFile, Kind: KindPackage}
		}
	}

	return Result{Found: false, Reason: fmt.Sprintf("%q not found via sibling or parent-sibling lookup", name)}
}

// resolveRelative implements rule 1: relative_level>0 (from-import
// with leading dots). Ascends (level-1) parents from currentDir, then
// descends through the dotted module name, if any.
func resolveRelative(name string, currentDir string, level int) Result {
	base := currentDir
	for i := 0; i < level-1; i++ {
		parent := filepath.Dir(base)
		if parent == base {
			return Result{Found: false, Reason: "relative import ascends above filesystem root"}
		}
		base = parent
	}

	if name == "" {
		return terminalForDir(base)
	}

	parts := strings.Split(name, ".")
	currentPath := base
	for i, part := range parts {
		isLast := i == len(parts)-1
		if isLast {
			return terminalStep(currentPath, part)
		}
		subdir := filepath.Join(currentPath, part)
		if !isDir(subdir) {
			return Result{Found: false, Reason: fmt.Sprintf("intermediate path %q not found", part)}
		}
		currentPath = subdir
	}
	return Result{Found: false, Reason: "unexpected resolution error"}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
