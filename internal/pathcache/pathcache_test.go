package pathcache_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stegfs-go/stegfs/internal/pathcache"
	"github.com/stegfs-go/stegfs/internal/stegerr"
)

func TestAttachFileMaterializesDirectories(t *testing.T) {
	tree := pathcache.NewTree()
	tree.AttachFile("/a/b", &pathcache.File{DirPath: "/a/b", Name: "secret.txt"})

	isDir, ok := tree.IsDir("/a")
	require.True(t, ok)
	require.True(t, isDir)

	isDir, ok = tree.IsDir("/a/b")
	require.True(t, ok)
	require.True(t, isDir)

	f, ok := tree.LookupFile("/a/b", "secret.txt")
	require.True(t, ok)
	require.Equal(t, "secret.txt", f.Name)
}

func TestReaddirReturnsFirstSeenOrder(t *testing.T) {
	tree := pathcache.NewTree()
	tree.AttachFile("/a", &pathcache.File{DirPath: "/a", Name: "z.txt"})
	tree.AttachFile("/a", &pathcache.File{DirPath: "/a", Name: "a.txt"})
	tree.Mkdir("/a/sub")

	names, err := tree.Readdir("/a")
	require.NoError(t, err)
	require.Equal(t, []string{"z.txt", "a.txt", "sub"}, names)

	// Calling Readdir again must not perturb the order.
	names2, err := tree.Readdir("/a")
	require.NoError(t, err)
	require.Equal(t, names, names2)
}

func TestRemoveRejectsNonEmptyDir(t *testing.T) {
	tree := pathcache.NewTree()
	tree.AttachFile("/a", &pathcache.File{DirPath: "/a", Name: "f.txt"})

	err := tree.Remove("/a")
	require.ErrorIs(t, err, stegerr.ErrNotEmpty)

	require.NoError(t, tree.Remove("/a/f.txt"))
	require.NoError(t, tree.Remove("/a"))
}

func TestReaddirOnFileIsNotDir(t *testing.T) {
	tree := pathcache.NewTree()
	tree.AttachFile("/a", &pathcache.File{DirPath: "/a", Name: "f.txt"})

	_, err := tree.Readdir("/a/f.txt")
	require.ErrorIs(t, err, stegerr.ErrNotDir)
}
