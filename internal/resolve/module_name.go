package resolve

import (
	"path/filepath"
	"strings"
)

// ModuleName implements SPEC_FULL.md §4.B's module-naming rule: walk
// from the source root into the file's directory chain, accumulating
// directory names while each contains a package marker, resetting the
// accumulator on any directory that does not. If the file's basename
// is the package marker, the module is the accumulator joined by
// dots; otherwise it is the accumulator plus the file stem.
func ModuleName(filePath, sourceRoot string) (string, error) {
	absFile, err := filepath.Abs(filePath)
	if err != nil {
		return "", err
	}
	absRoot, err := filepath.Abs(sourceRoot)
	if err != nil {
		return "", err
	}

	rel, err := filepath.Rel(absRoot, absFile)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)
	parts := strings.Split(rel, "/")
	filename := parts[len(parts)-1]

	fileBase := filename
	if strings.HasSuffix(filename, SourceExt) {
		fileBase = strings.TrimSuffix(filename, SourceExt)
	}

	dirParts := parts[:len(parts)-1]
	var packageParts []string
	currentDir := absRoot
	for _, part := range dirParts {
		currentDir = filepath.Join(currentDir, part)
		if isFile(filepath.Join(currentDir, PackageMarker)) {
			packageParts = append(packageParts, part)
		} else {
			packageParts = nil
		}
	}

	if fileBase == "__init__" {
		return strings.Join(packageParts, "."), nil
	}
	if len(packageParts) > 0 {
		return strings.Join(append(packageParts, fileBase), "."), nil
	}
	return fileBase, nil
}

// HasPackageMarker reports whether dir contains the package marker
// file directly.
func HasPackageMarker(dir string) bool {
	return isFile(filepath.Join(dir, PackageMarker))
}
