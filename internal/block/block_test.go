package block_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stegfs-go/stegfs/internal/block"
	"github.com/stegfs-go/stegfs/internal/cfg"
	"github.com/stegfs-go/stegfs/internal/crypto"
)

func testSuite(t *testing.T) (cfg.Config, *crypto.Suite) {
	t.Helper()
	c := cfg.Default()
	c.KDFIterations = 2 // keep tests fast
	suite, err := crypto.NewSuite(c)
	require.NoError(t, err)
	return c, suite
}

func TestWriteReadRoundTrip(t *testing.T) {
	c, suite := testSuite(t)
	totalBlocks := uint64(64)
	image := make([]byte, totalBlocks*uint64(c.BlockSize))

	key := make([]byte, 32)
	iv := make([]byte, 16)
	for i := range key {
		key[i] = byte(i)
	}
	for i := range iv {
		iv[i] = byte(i + 1)
	}

	data := make([]byte, c.DataCapacity())
	copy(data, []byte("hello from a data block"))

	require.NoError(t, block.Write(image, c, suite, 5, totalBlocks, "/dir", key, iv, data, 42))

	got, err := block.Read(image, c, suite, 5, totalBlocks, "/dir", key, iv)
	require.NoError(t, err)
	require.Equal(t, data, got.Data)
	require.Equal(t, uint64(42), got.Next)
}

func TestReadWrongParentIsNotOurs(t *testing.T) {
	c, suite := testSuite(t)
	totalBlocks := uint64(64)
	image := make([]byte, totalBlocks*uint64(c.BlockSize))

	key := make([]byte, 32)
	iv := make([]byte, 16)
	data := make([]byte, c.DataCapacity())

	require.NoError(t, block.Write(image, c, suite, 5, totalBlocks, "/dir", key, iv, data, 0))

	_, err := block.Read(image, c, suite, 5, totalBlocks, "/other", key, iv)
	require.ErrorIs(t, err, block.ErrNotOurs)
}

func TestReadCorruptAfterKeyChange(t *testing.T) {
	c, suite := testSuite(t)
	totalBlocks := uint64(64)
	image := make([]byte, totalBlocks*uint64(c.BlockSize))

	key := make([]byte, 32)
	iv := make([]byte, 16)
	data := make([]byte, c.DataCapacity())

	require.NoError(t, block.Write(image, c, suite, 5, totalBlocks, "/dir", key, iv, data, 0))

	wrongKey := make([]byte, 32)
	wrongKey[0] = 0xff
	_, err := block.Read(image, c, suite, 5, totalBlocks, "/dir", wrongKey, iv)
	require.ErrorIs(t, err, block.ErrCorrupt)
}

func TestNormalizeRejectsSuperblockIndex(t *testing.T) {
	_, err := block.Normalize(0, 64)
	require.ErrorIs(t, err, block.ErrSuperblockIndex)

	idx, err := block.Normalize(64, 64)
	require.ErrorIs(t, err, block.ErrSuperblockIndex)
	require.Zero(t, idx)

	idx, err = block.Normalize(65, 64)
	require.NoError(t, err)
	require.Equal(t, uint64(1), idx)
}

func TestScrubOverwritesBlock(t *testing.T) {
	c, suite := testSuite(t)
	totalBlocks := uint64(64)
	image := make([]byte, totalBlocks*uint64(c.BlockSize))

	key := make([]byte, 32)
	iv := make([]byte, 16)
	data := make([]byte, c.DataCapacity())
	copy(data, []byte("secret"))
	require.NoError(t, block.Write(image, c, suite, 5, totalBlocks, "/dir", key, iv, data, 7))

	require.NoError(t, block.Scrub(image, c, 5, totalBlocks))

	_, err := block.Read(image, c, suite, 5, totalBlocks, "/dir", key, iv)
	require.Error(t, err)
}
