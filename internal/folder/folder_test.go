package folder

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestBuild_CountsPropagateToParent(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "a.py"))
	touch(t, filepath.Join(root, "sub", "b.py"))
	touch(t, filepath.Join(root, "sub", "c.py"))
	touch(t, filepath.Join(root, "sub", "deep", "d.py"))

	tree, err := Build(root, Options{})
	require.NoError(t, err)

	require.Equal(t, 4, tree.Count(".py"))
}

func TestRender_DepthCutoffCollapsesSubtree(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "a", "b", "c", "file.py"))

	tree, err := Build(root, Options{})
	require.NoError(t, err)

	lines := Render(tree, ".py", 1)
	for _, l := range lines {
		require.LessOrEqual(t, l.Depth, 1)
	}
}

func TestRender_ElidesZeroCountNodes(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "has_py", "file.py"))
	touch(t, filepath.Join(root, "no_py", "file.txt"))

	tree, err := Build(root, Options{})
	require.NoError(t, err)

	lines := Render(tree, ".py", 0)
	for _, l := range lines {
		require.NotEqual(t, "no_py", l.Name)
	}
}

func TestBuild_FanoutUsedForLargeShallowDirectory(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 8; i++ {
		touch(t, filepath.Join(root, "d"+string(rune('a'+i)), "f.py"))
	}

	tree, err := Build(root, Options{})
	require.NoError(t, err)
	require.Equal(t, 8, tree.Count(".py"))
	require.Len(t, tree.Children, 8)
}
