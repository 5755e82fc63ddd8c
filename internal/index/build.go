package index

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/randalmurphy/code-index/internal/shard"
)

// Sources bundles the roots an ingestion pass needs to rebuild both
// partitions: the source tree, the shard directory (produced by
// component F), and the binary-extension set consulted for "other"
// eligibility.
type Sources struct {
	SourceRoot string
	ShardDir   string
	BinaryExts *shard.BinaryExtensionSet
}

// BuildOrUpdate walks Sources and updates the docs and other
// partitions, returning their individual results. Partition commits
// are independent and may run in either order (§5 Ordering
// guarantees).
func BuildOrUpdate(docs, other *Partition, src Sources) (UpdateResult, UpdateResult, error) {
	docCandidates, err := discoverDocs(src.ShardDir)
	if err != nil {
		return UpdateResult{}, UpdateResult{}, err
	}
	otherCandidates, err := discoverOther(src.SourceRoot, src.ShardDir, src.BinaryExts)
	if err != nil {
		return UpdateResult{}, UpdateResult{}, err
	}

	docsResult, err := docs.Update(docCandidates, readPlainFile)
	if err != nil {
		return docsResult, UpdateResult{}, err
	}
	otherResult, err := other.Update(otherCandidates, readPlainFile)
	if err != nil {
		return docsResult, otherResult, err
	}
	return docsResult, otherResult, nil
}

func discoverDocs(shardDir string) ([]Candidate, error) {
	var out []Candidate
	entries, err := os.ReadDir(shardDir)
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return nil, err
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".txt") {
			continue
		}
		info, infoErr := e.Info()
		if infoErr != nil {
			continue
		}
		out = append(out, Candidate{
			Key:      e.Name(),
			AbsPath:  filepath.Join(shardDir, e.Name()),
			Filename: e.Name(),
			ModTime:  info.ModTime().UnixNano(),
			Size:     info.Size(),
		})
	}
	return out, nil
}

func discoverOther(sourceRoot, shardDir string, binaryExts *shard.BinaryExtensionSet) ([]Candidate, error) {
	var out []Candidate
	absShardDir, _ := filepath.Abs(shardDir)

	err := filepath.Walk(sourceRoot, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if info.IsDir() {
			if strings.HasPrefix(info.Name(), ".") && path != sourceRoot {
				return filepath.SkipDir
			}
			return nil
		}
		absPath, _ := filepath.Abs(path)
		if absShardDir != "" && strings.HasPrefix(absPath, absShardDir+string(filepath.Separator)) {
			return nil
		}
		if binaryExts.Contains(filepath.Ext(path)) {
			return nil
		}

		rel, relErr := filepath.Rel(sourceRoot, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		out = append(out, Candidate{
			Key:      rel,
			AbsPath:  path,
			Filename: filepath.Base(rel),
			ModTime:  info.ModTime().UnixNano(),
			Size:     info.Size(),
		})
		return nil
	})
	return out, err
}

// readPlainFile is the shared ContentReader: it skips files whose
// first kilobyte contains a NUL byte, per §4.G step 4.
func readPlainFile(c Candidate) (string, bool, error) {
	if shard.IsBinaryContent(c.AbsPath) {
		return "", true, nil
	}
	data, err := os.ReadFile(c.AbsPath)
	if err != nil {
		return "", false, err
	}
	return string(data), false, nil
}
