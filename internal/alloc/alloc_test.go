package alloc_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stegfs-go/stegfs/internal/alloc"
	"github.com/stegfs-go/stegfs/internal/cfg"
	"github.com/stegfs-go/stegfs/internal/crypto"
	"github.com/stegfs-go/stegfs/internal/stegerr"
	"github.com/stegfs-go/stegfs/internal/tracker"
)

func TestAncestorsExcludesRoot(t *testing.T) {
	got := alloc.Ancestors("/a/b/c")
	require.Equal(t, []string{"/a/b/c", "/a/b", "/a"}, got)

	require.Nil(t, alloc.Ancestors("/"))
}

func TestAllocateAvoidsAncestorCollisions(t *testing.T) {
	c := cfg.Default()
	c.KDFIterations = 2
	suite, err := crypto.NewSuite(c)
	require.NoError(t, err)

	totalBlocks := uint64(32)
	image := make([]byte, totalBlocks*uint64(c.BlockSize))

	// Plant the ancestor's path_tag at every candidate position except
	// one, so Allocate must eventually land on the survivor.
	ancestorTag := suite.Hash([]byte("/docs"))
	survivor := uint64(7)
	for i := uint64(1); i < totalBlocks; i++ {
		if i == survivor {
			continue
		}
		copy(image[i*uint64(c.BlockSize):], ancestorTag[:])
	}

	trk := tracker.New(totalBlocks, false)
	idx, err := alloc.Allocate(image, c, suite, totalBlocks, "/docs/sub", trk)
	require.NoError(t, err)
	require.Equal(t, survivor, idx)
}

func TestAllocateNoSpace(t *testing.T) {
	c := cfg.Default()
	c.KDFIterations = 2
	suite, err := crypto.NewSuite(c)
	require.NoError(t, err)

	totalBlocks := uint64(8)
	image := make([]byte, totalBlocks*uint64(c.BlockSize))

	ancestorTag := suite.Hash([]byte("/docs"))
	for i := uint64(1); i < totalBlocks; i++ {
		copy(image[i*uint64(c.BlockSize):], ancestorTag[:])
	}

	_, err = alloc.Allocate(image, c, suite, totalBlocks, "/docs/sub", nil)
	require.ErrorIs(t, err, stegerr.ErrNoSpace)
}
