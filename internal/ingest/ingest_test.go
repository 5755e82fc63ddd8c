package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/randalmurphy/code-index/internal/shard"
)

func TestRun_ParsesBindsShardsAndIndexes(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.py"), []byte("import os\n\ndef f():\n    pass\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.py"), []byte("import a\n\ndef g():\n    pass\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("hello needle world"), 0o644))

	shardDir := filepath.Join(root, ".code-index", "shards")
	partitionDir := filepath.Join(root, ".code-index", "partitions")

	var steps []string
	res, err := Run(context.Background(), Options{
		SourceRoot:   root,
		ShardDir:     shardDir,
		PartitionDir: partitionDir,
		BinaryExts:   shard.NewBinaryExtensionSet(nil),
		Progress:     func(step string, pct int) { steps = append(steps, step) },
	})
	require.NoError(t, err)

	require.Equal(t, 2, res.FilesParsed)
	require.Empty(t, res.ParseErrors)
	require.NotNil(t, res.Graph)
	require.NotNil(t, res.Shards)
	require.Equal(t, 3, res.OtherUpdate.Upserted)
}

func TestRun_SkipsShardDirectoryAndDotfiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.py"), []byte("def f(): pass"), 0o644))

	shardDir := filepath.Join(root, ".code-index", "shards")
	partitionDir := filepath.Join(root, ".code-index", "partitions")
	require.NoError(t, os.MkdirAll(shardDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(shardDir, "stray.py"), []byte("def unseen(): pass"), 0o644))

	res, err := Run(context.Background(), Options{
		SourceRoot:   root,
		ShardDir:     shardDir,
		PartitionDir: partitionDir,
		BinaryExts:   shard.NewBinaryExtensionSet(nil),
	})
	require.NoError(t, err)
	require.Equal(t, 1, res.FilesParsed)
}
