package engine

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/stegfs-go/stegfs/internal/block"
	"github.com/stegfs-go/stegfs/internal/cfg"
	"github.com/stegfs-go/stegfs/internal/clock"
	"github.com/stegfs-go/stegfs/internal/stegerr"
)

// smallConfig keeps images tiny (and iteration counts low) so the test
// suite runs against real mmap'd files without needing megabytes on
// disk or PBKDF2's full iteration count.
func smallConfig() cfg.Config {
	c := cfg.Default()
	c.BlockSize = 256
	c.Duplication = 3
	c.KDFIterations = 10
	c.HeaderOffset = c.HeadCapacity()
	return c
}

func mountFresh(t *testing.T, totalBlocks uint64) *FileSystem {
	t.Helper()
	c := smallConfig()
	path := filepath.Join(t.TempDir(), "image.stegfs")
	require.NoError(t, MakeImage(path, int64(totalBlocks)*int64(c.BlockSize), c))

	fs, err := Mount(path, MountOptions{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = fs.Unmount() })
	return fs
}

func TestWriteStampsMtimeFromInjectedClock(t *testing.T) {
	c := smallConfig()
	path := filepath.Join(t.TempDir(), "image.stegfs")
	require.NoError(t, MakeImage(path, 64*int64(c.BlockSize), c))

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	sc := clock.NewSimulatedClock(start)
	fs, err := Mount(path, MountOptions{Clock: sc})
	require.NoError(t, err)
	defer fs.Unmount()

	h, err := fs.Open("/stamped.txt:pw", true)
	require.NoError(t, err)
	require.NoError(t, h.Write([]byte("x")))
	require.NoError(t, h.Release())

	attr, err := fs.Stat("/stamped.txt:pw")
	require.NoError(t, err)
	require.Equal(t, start.Unix(), attr.Mtime)
}

func TestMountUnmountRoundTrip(t *testing.T) {
	fs := mountFresh(t, 64)
	info := fs.Info()
	require.Equal(t, uint64(64), info.BlockCount)
	require.Equal(t, uint32(256), info.BlockSize)
}

func TestWriteReadRoundTrip_FitsInHead(t *testing.T) {
	fs := mountFresh(t, 64)

	h, err := fs.Open("/small.txt:hunter2", true)
	require.NoError(t, err)
	payload := []byte("a secret too small for a chain")
	require.NoError(t, h.Write(payload))
	require.NoError(t, h.Release())

	h2, err := fs.Open("/small.txt:hunter2", false)
	require.NoError(t, err)
	got, err := h2.Read()
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestWriteReadRoundTrip_SpansChain(t *testing.T) {
	fs := mountFresh(t, 256)

	h, err := fs.Open("/big.bin:correcthorse", true)
	require.NoError(t, err)
	payload := make([]byte, 2000)
	for i := range payload {
		payload[i] = byte(i)
	}
	require.NoError(t, h.Write(payload))
	require.NoError(t, h.Release())

	h2, err := fs.Open("/big.bin:correcthorse", false)
	require.NoError(t, err)
	got, err := h2.Read()
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestWrongPasswordIsNotFound(t *testing.T) {
	fs := mountFresh(t, 64)

	h, err := fs.Open("/secret.txt:rightpass", true)
	require.NoError(t, err)
	require.NoError(t, h.Write([]byte("hello")))
	require.NoError(t, h.Release())

	_, err = fs.Stat("/secret.txt:wrongpass")
	require.ErrorIs(t, err, stegerr.ErrNotFound)
}

func TestRedundancySurvivesCorruption(t *testing.T) {
	// A larger image keeps the deterministic inode candidates from
	// sharing a block, which would let one scrub destroy two copies.
	fs := mountFresh(t, 1024)

	h, err := fs.Open("/r.txt:pw", true)
	require.NoError(t, err)
	payload := []byte("redundant bytes")
	require.NoError(t, h.Write(payload))
	require.NoError(t, h.Release())

	// Scrub every inode candidate but the first: N-1 copies destroyed,
	// one should still survive stat/read.
	for _, raw := range h.file.InodeIndices[1:] {
		require.NoError(t, block.Scrub(fs.img.Bytes(), fs.cfg, raw, fs.totalBlocks))
	}
	h.file.Payload = nil // make the read below go to disk, not the cache

	h2, err := fs.Open("/r.txt:pw", false)
	require.NoError(t, err)
	got, err := h2.Read()
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestTamperedDataBreaksMAC(t *testing.T) {
	fs := mountFresh(t, 256)

	h, err := fs.Open("/tamper.bin:pw", true)
	require.NoError(t, err)
	payload := make([]byte, 1500)
	for i := range payload {
		payload[i] = byte(i % 7)
	}
	require.NoError(t, h.Write(payload))
	require.NoError(t, h.Release())

	// Flip a byte in every copy's first chain block and rewrite it
	// through the codec, so each block's own data_hash stays consistent
	// and stat still accepts every chain, but no copy's plaintext
	// matches the MAC stored in the inode any more.
	for j, chain := range h.file.Chains {
		if len(chain) > 0 {
			cipherKey, iv, _ := fs.copyKeys(h.file.DirPath, h.file.Name, h.file.Pass, j)
			blk, err := block.Read(fs.img.Bytes(), fs.cfg, fs.suite, chain[0], fs.totalBlocks, h.file.DirPath, cipherKey, iv)
			require.NoError(t, err)
			blk.Data[0] ^= 0xff
			require.NoError(t, block.Write(fs.img.Bytes(), fs.cfg, fs.suite, chain[0], fs.totalBlocks, h.file.DirPath, cipherKey, iv, blk.Data, blk.Next))
		}
	}
	h.file.Payload = nil // make the read below go to disk, not the cache

	h2, err := fs.Open("/tamper.bin:pw", false)
	require.NoError(t, err)
	_, err = h2.Read()
	require.ErrorIs(t, err, stegerr.ErrIntegrityFailure)
}

func TestWriteTooLargeFails(t *testing.T) {
	fs := mountFresh(t, 16)

	h, err := fs.Open("/huge.bin:pw", true)
	require.NoError(t, err)
	payload := make([]byte, 1<<20)
	err = h.Write(payload)
	require.Error(t, err)
}

func TestDeleteThenRecreate(t *testing.T) {
	fs := mountFresh(t, 64)

	h, err := fs.Open("/gone.txt:pw", true)
	require.NoError(t, err)
	require.NoError(t, h.Write([]byte("temporary")))
	require.NoError(t, h.Release())

	require.NoError(t, fs.Unlink("/gone.txt:pw"))

	_, err = fs.Stat("/gone.txt:pw")
	require.ErrorIs(t, err, stegerr.ErrNotFound)

	h2, err := fs.Open("/gone.txt:pw", true)
	require.NoError(t, err)
	require.NoError(t, h2.Write([]byte("fresh")))
	require.NoError(t, h2.Release())

	h3, err := fs.Open("/gone.txt:pw", false)
	require.NoError(t, err)
	got, err := h3.Read()
	require.NoError(t, err)
	require.Equal(t, []byte("fresh"), got)
}

func TestMkdirReaddirAndRmdir(t *testing.T) {
	fs := mountFresh(t, 64)

	require.NoError(t, fs.Mkdir("/docs"))
	h, err := fs.Open("/docs/readme.txt:pw", true)
	require.NoError(t, err)
	require.NoError(t, h.Write([]byte("hi")))
	require.NoError(t, h.Release())

	names, err := fs.Readdir("/docs")
	require.NoError(t, err)
	require.Equal(t, []string{"readme.txt"}, names)

	err = fs.Rmdir("/docs")
	require.ErrorIs(t, err, stegerr.ErrNotEmpty)
}

func TestChainAndInodePointersAreStoredUnreduced(t *testing.T) {
	fs := mountFresh(t, 256)

	h, err := fs.Open("/chain.bin:pw", true)
	require.NoError(t, err)
	payload := make([]byte, 2000)
	require.NoError(t, h.Write(payload))
	require.NoError(t, h.Release())
	require.Greater(t, len(h.file.Chains[0]), 1)

	cipherKey, iv, _ := fs.copyKeys(h.file.DirPath, h.file.Name, h.file.Pass, 0)

	inodeBlk, err := block.Read(fs.img.Bytes(), fs.cfg, fs.suite, h.file.InodeIndices[0], fs.totalBlocks, h.file.DirPath, cipherKey, iv)
	require.NoError(t, err)
	starts, _, _ := decodeInodeData(inodeBlk.Data, int(fs.cfg.Duplication))
	normalizedStart, err := block.Normalize(starts[0], fs.totalBlocks)
	require.NoError(t, err)
	require.NotEqual(t, normalizedStart, starts[0], "inode start word must be stored unreduced, not as the bare chain index")

	firstBlk, err := block.Read(fs.img.Bytes(), fs.cfg, fs.suite, h.file.Chains[0][0], fs.totalBlocks, h.file.DirPath, cipherKey, iv)
	require.NoError(t, err)
	normalizedNext, err := block.Normalize(firstBlk.Next, fs.totalBlocks)
	require.NoError(t, err)
	require.NotEqual(t, normalizedNext, firstBlk.Next, "chain next pointer must be stored unreduced, not as the bare successor index")
}

func TestTruncateGrowsWithRandomPadding(t *testing.T) {
	fs := mountFresh(t, 64)

	h, err := fs.Open("/t.bin:pw", true)
	require.NoError(t, err)
	require.NoError(t, h.Write([]byte("abc")))
	require.NoError(t, h.Release())

	require.NoError(t, fs.Truncate("/t.bin:pw", 10))

	h2, err := fs.Open("/t.bin:pw", false)
	require.NoError(t, err)
	got, err := h2.Read()
	require.NoError(t, err)
	require.Len(t, got, 10)
	require.Equal(t, []byte("abc"), got[:3])
}
