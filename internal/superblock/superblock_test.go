package superblock_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stegfs-go/stegfs/internal/cfg"
	"github.com/stegfs-go/stegfs/internal/stegerr"
	"github.com/stegfs-go/stegfs/internal/superblock"
)

func TestWriteRecognizeRoundTrip(t *testing.T) {
	c := cfg.Default()
	totalBlocks := uint64(128)
	image := make([]byte, totalBlocks*uint64(c.BlockSize))

	require.NoError(t, superblock.Write(image, c, totalBlocks))

	got, n, err := superblock.Recognize(image, c.BlockSize, false, cfg.Config{})
	require.NoError(t, err)
	require.Equal(t, totalBlocks, n)
	require.Equal(t, c.Cipher, got.Cipher)
	require.Equal(t, c.BlockSize, got.BlockSize)
	require.Equal(t, c.Duplication, got.Duplication)
	require.Equal(t, c.KDFIterations, got.KDFIterations)
}

func TestRecognizeRejectsForeignImage(t *testing.T) {
	image := make([]byte, 2048*4)
	_, _, err := superblock.Recognize(image, 2048, false, cfg.Config{})
	require.ErrorIs(t, err, stegerr.ErrNotStegfs)
}

func TestRecognizeParanoidSkipsDisk(t *testing.T) {
	image := make([]byte, 2048*4) // all zero, would fail magic check
	override := cfg.Default()
	got, n, err := superblock.Recognize(image, override.BlockSize, true, override)
	require.NoError(t, err)
	require.Equal(t, uint64(4), n)
	require.Equal(t, override.Cipher, got.Cipher)
}

func TestRecognizeRejectsBlockCountMismatch(t *testing.T) {
	c := cfg.Default()
	totalBlocks := uint64(64)
	image := make([]byte, totalBlocks*uint64(c.BlockSize))
	require.NoError(t, superblock.Write(image, c, totalBlocks+1))

	_, _, err := superblock.Recognize(image, c.BlockSize, false, cfg.Config{})
	require.ErrorIs(t, err, stegerr.ErrCorruptTag)
}
