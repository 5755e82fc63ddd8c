package index

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/randalmurphy/code-index/internal/shard"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestOtherPartition_IncrementalUpdateSkipsUnchangedFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.py"), "def handler(): pass")

	shardDir := filepath.Join(root, ".shards")
	binaryExts := shard.NewBinaryExtensionSet([]string{".png"})

	partDir := t.TempDir()
	p, err := OpenPartition("other", partDir)
	require.NoError(t, err)
	defer p.Close()

	candidates, err := discoverOther(root, shardDir, binaryExts)
	require.NoError(t, err)
	require.Len(t, candidates, 1)

	result, err := p.Update(candidates, readPlainFile)
	require.NoError(t, err)
	require.Equal(t, 1, result.Upserted)

	candidates2, err := discoverOther(root, shardDir, binaryExts)
	require.NoError(t, err)
	result2, err := p.Update(candidates2, readPlainFile)
	require.NoError(t, err)
	require.Equal(t, 0, result2.Upserted)
	require.Equal(t, 0, result2.Deleted)
}

func TestOtherPartition_DeletesRemovedFiles(t *testing.T) {
	root := t.TempDir()
	filePath := filepath.Join(root, "gone.py")
	writeFile(t, filePath, "x = 1")

	binaryExts := shard.NewBinaryExtensionSet(nil)
	partDir := t.TempDir()
	p, err := OpenPartition("other", partDir)
	require.NoError(t, err)
	defer p.Close()

	candidates, err := discoverOther(root, filepath.Join(root, ".shards"), binaryExts)
	require.NoError(t, err)
	_, err = p.Update(candidates, readPlainFile)
	require.NoError(t, err)

	require.NoError(t, os.Remove(filePath))

	candidates2, err := discoverOther(root, filepath.Join(root, ".shards"), binaryExts)
	require.NoError(t, err)
	require.Len(t, candidates2, 0)

	result, err := p.Update(candidates2, readPlainFile)
	require.NoError(t, err)
	require.Equal(t, 1, result.Deleted)
}

func TestOtherPartition_DetectsContentChangeViaSignature(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "a.py")
	writeFile(t, path, "first")

	binaryExts := shard.NewBinaryExtensionSet(nil)
	partDir := t.TempDir()
	p, err := OpenPartition("other", partDir)
	require.NoError(t, err)
	defer p.Close()

	cands, err := discoverOther(root, filepath.Join(root, ".shards"), binaryExts)
	require.NoError(t, err)
	_, err = p.Update(cands, readPlainFile)
	require.NoError(t, err)

	writeFile(t, path, "second, much longer content than before")

	cands2, err := discoverOther(root, filepath.Join(root, ".shards"), binaryExts)
	require.NoError(t, err)
	result, err := p.Update(cands2, readPlainFile)
	require.NoError(t, err)
	require.Equal(t, 1, result.Upserted)
}

func TestDiscoverOther_ExcludesShardDirectoryAndBinaryExtensions(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "keep.py"), "ok")
	writeFile(t, filepath.Join(root, "image.png"), "binarydata")
	writeFile(t, filepath.Join(root, ".shards", "1.txt"), "shard text")

	binaryExts := shard.NewBinaryExtensionSet([]string{".png"})
	cands, err := discoverOther(root, filepath.Join(root, ".shards"), binaryExts)
	require.NoError(t, err)

	var keys []string
	for _, c := range cands {
		keys = append(keys, c.Key)
	}
	require.ElementsMatch(t, []string{"keep.py"}, keys)
}

func TestDiscoverDocs_OnlyTxtFilesUnderShardDir(t *testing.T) {
	shardDir := t.TempDir()
	writeFile(t, filepath.Join(shardDir, "1.txt"), "sheet text")
	writeFile(t, filepath.Join(shardDir, "mapping.json"), "{}")

	cands, err := discoverDocs(shardDir)
	require.NoError(t, err)
	require.Len(t, cands, 1)
	require.Equal(t, "1.txt", cands[0].Key)
}
