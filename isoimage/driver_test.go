package isoimage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanDirectoryWalksFilesAndDirs(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(src, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "sub", "b.txt"), []byte("yy"), 0o644))

	fs, err := ScanDirectory(src)
	require.NoError(t, err)

	paths := map[string]FileDescriptor{}
	for _, fd := range fs {
		paths[fd.InternalPath] = fd
	}
	require.Contains(t, paths, "/sub")
	assert.True(t, paths["/sub"].Flags.Has(FlagDirectory))
	require.Contains(t, paths, "/a.txt")
	assert.Equal(t, int64(1), paths["/a.txt"].Size)
	require.Contains(t, paths, "/sub/b.txt")
	assert.Equal(t, int64(2), paths["/sub/b.txt"].Size)
}

func TestApplyImportedSessionsMarksMatchingNode(t *testing.T) {
	root, err := BuildFileTree(FileSet{{InternalPath: "/a/b.txt", Size: 5}}, DefaultOptions())
	require.NoError(t, err)

	applyImportedSessions(root, []ImportedMapping{
		{InternalPath: "/a/b.txt", Info: ImportedInfo{ExtentLocation: 99}},
	})

	var node *FileTreeNode
	Traverse(root, func(n *FileTreeNode, _ int) {
		if n.FileName == "b.txt" {
			node = n
		}
	})
	require.NotNil(t, node)
	require.NotNil(t, node.Imported)
	assert.Equal(t, uint32(99), node.Imported.ExtentLocation)
	assert.True(t, node.FileFlags.Has(FlagImported))
}

func TestApplyImportedSessionsNoMatchLeavesNodesAlone(t *testing.T) {
	root, err := BuildFileTree(FileSet{{InternalPath: "/a/b.txt", Size: 5}}, DefaultOptions())
	require.NoError(t, err)

	applyImportedSessions(root, []ImportedMapping{{InternalPath: "/missing.txt"}})

	Traverse(root, func(n *FileTreeNode, _ int) {
		assert.Nil(t, n.Imported)
	})
}

func TestPathMapReturnsFileBackedNodesOnly(t *testing.T) {
	fs := FileSet{
		{InternalPath: "/a.txt", ExternalPath: "/host/a.txt", Size: 1},
		{InternalPath: "/dir", Flags: FlagDirectory},
	}
	root, err := BuildFileTree(fs, DefaultOptions())
	require.NoError(t, err)

	pm := PathMap(root)
	assert.Equal(t, "/host/a.txt", pm["/a.txt"])
	assert.Len(t, pm, 1)
}
