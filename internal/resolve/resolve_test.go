package resolve

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestResolve_RelativeImportToSibling(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a", "pkg", "__init__.py"), "")
	writeFile(t, filepath.Join(root, "a", "pkg", "m.py"), "from . import helpers")
	writeFile(t, filepath.Join(root, "a", "pkg", "helpers.py"), "")

	res := Resolve(Ref{
		ModuleName: "helpers",
		Level:      1,
		FromFile:   filepath.Join(root, "a", "pkg", "m.py"),
	})

	require.True(t, res.Found)
	require.Equal(t, KindFile, res.Kind)
	require.Equal(t, filepath.Join(root, "a", "pkg", "helpers.py"), res.AbsolutePath)
}

func TestResolve_DottedMiss(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.py"), "import no.such.mod")

	res := Resolve(Ref{
		ModuleName: "no.such.mod",
		Level:      0,
		FromFile:   filepath.Join(root, "a.py"),
	})

	require.False(t, res.Found)
	require.Contains(t, res.Reason, "no")
}

func TestResolve_AtomicSiblingFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "m.py"), "import util")
	writeFile(t, filepath.Join(root, "util.py"), "")

	res := Resolve(Ref{ModuleName: "util", Level: 0, FromFile: filepath.Join(root, "m.py")})

	require.True(t, res.Found)
	require.Equal(t, KindFile, res.Kind)
}

func TestResolve_AtomicNamespacePackage(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "m.py"), "import nspkg")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "nspkg"), 0o755))

	res := Resolve(Ref{ModuleName: "nspkg", Level: 0, FromFile: filepath.Join(root, "m.py")})

	require.True(t, res.Found)
	require.Equal(t, KindNamespacePackage, res.Kind)
}

func TestResolve_AtomicParentSiblingFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "util.py"), "")
	writeFile(t, filepath.Join(root, "sub", "m.py"), "import util")

	res := Resolve(Ref{ModuleName: "util", Level: 0, FromFile: filepath.Join(root, "sub", "m.py")})

	require.True(t, res.Found)
	require.Equal(t, filepath.Join(root, "util.py"), res.AbsolutePath)
}

func TestResolve_DottedMultiComponent(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a", "__init__.py"), "")
	writeFile(t, filepath.Join(root, "a", "b", "__init__.py"), "")
	writeFile(t, filepath.Join(root, "a", "b", "c.py"), "")
	writeFile(t, filepath.Join(root, "m.py"), "import a.b.c")

	res := Resolve(Ref{ModuleName: "a.b.c", Level: 0, FromFile: filepath.Join(root, "m.py")})

	require.True(t, res.Found)
	require.Equal(t, KindFile, res.Kind)
	require.Equal(t, filepath.Join(root, "a", "b", "c.py"), res.AbsolutePath)
}

func TestModuleName_PackageAndPlainFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a", "__init__.py"), "")
	writeFile(t, filepath.Join(root, "a", "pkg", "__init__.py"), "")
	writeFile(t, filepath.Join(root, "a", "pkg", "m.py"), "")
	writeFile(t, filepath.Join(root, "standalone.py"), "")

	name, err := ModuleName(filepath.Join(root, "a", "pkg", "m.py"), root)
	require.NoError(t, err)
	require.Equal(t, "a.pkg.m", name)

	initName, err := ModuleName(filepath.Join(root, "a", "pkg", "__init__.py"), root)
	require.NoError(t, err)
	require.Equal(t, "a.pkg", initName)

	plain, err := ModuleName(filepath.Join(root, "standalone.py"), root)
	require.NoError(t, err)
	require.Equal(t, "standalone", plain)
}

func TestModuleName_ResetsOnNonPackageDir(t *testing.T) {
	root := t.TempDir()
	// "scripts" has no __init__.py, so accumulation resets there.
	writeFile(t, filepath.Join(root, "scripts", "tool.py"), "")

	name, err := ModuleName(filepath.Join(root, "scripts", "tool.py"), root)
	require.NoError(t, err)
	require.Equal(t, "tool", name)
}
