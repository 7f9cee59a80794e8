package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stegfs-go/stegfs/internal/cfg"
)

func TestMakeImageDefaultsBlockSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image.stegfs")
	c := cfg.Default()
	c.BlockSize = 0 // exercise the defaulting path
	c.Duplication = 2
	c.KDFIterations = 10

	require.NoError(t, MakeImage(path, 64*int64(cfg.DefaultBlockSize), c))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, int64(64*cfg.DefaultBlockSize), info.Size())
}

func TestMakeImageRejectsTooSmall(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image.stegfs")
	c := smallConfig()
	err := MakeImage(path, int64(c.BlockSize), c) // exactly one block: < 2 total blocks
	require.Error(t, err)
}
