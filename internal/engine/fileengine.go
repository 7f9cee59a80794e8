package engine

import (
	"crypto/subtle"
	"encoding/binary"
	"fmt"

	"github.com/stegfs-go/stegfs/internal/alloc"
	"github.com/stegfs-go/stegfs/internal/block"
	"github.com/stegfs-go/stegfs/internal/crypto"
	"github.com/stegfs-go/stegfs/internal/keys"
	"github.com/stegfs-go/stegfs/internal/pathcache"
	"github.com/stegfs-go/stegfs/internal/placer"
	"github.com/stegfs-go/stegfs/internal/stegerr"
)

// chainEndSentinel marks the end of a data-block chain: index 0 can
// never be a legitimate data-block location (spec I6, the superblock is
// never allocated for file data), so it safely doubles as "no next
// block" without an extra on-disk flag.
const chainEndSentinel = 0

func (fs *FileSystem) copyKeys(dirPath, name, pass string, copyIndex int) (cipherKey, iv, macKey []byte) {
	fk := keys.Derive(fs.suite, dirPath, name, pass, keyLenBytes, macKeyLenBytes)
	return fk.CipherKey, fk.IV(copyIndex, ivLenBytes), fk.MACKey
}

const (
	keyLenBytes    = 32
	ivLenBytes     = 16
	macKeyLenBytes = 32
)

// statFile implements spec §4.6 stat(file, quick).
func (fs *FileSystem) statFile(f *pathcache.File, quick bool) (bool, error) {
	n := int(fs.cfg.Duplication)
	candidates, err := placer.Place(fs.suite, f.DirPath, f.Name, n)
	if err != nil {
		return false, err
	}

	var (
		availableInodes int
		corruptCopies   int
		marked          []uint64
		gotPrimary      bool
		size            int64
		mtime           int64
		headPayload     []byte
		mac             []byte
		chains          = make([][]uint64, n)
	)

	owner := joinPath(f.DirPath, f.Name)

	unmarkAll := func() {
		for _, idx := range marked {
			fs.tracker.MarkFree(idx)
		}
	}

	for i := 0; i < n; i++ {
		cipherKey, iv, _ := fs.copyKeys(f.DirPath, f.Name, f.Pass, i)
		blk, err := block.Read(fs.img.Bytes(), fs.cfg, fs.suite, candidates[i], fs.totalBlocks, f.DirPath, cipherKey, iv)
		if err != nil {
			continue
		}

		sizeCandidate := int64(blk.Next)
		if sizeCandidate > fs.img.Size() {
			continue // corrupt inode: implausible size, don't count it
		}

		idxNorm, err := block.Normalize(candidates[i], fs.totalBlocks)
		if err != nil {
			continue
		}
		fs.tracker.MarkUsed(idxNorm, owner)
		marked = append(marked, idxNorm)
		availableInodes++

		starts, headPayloadField, macField := decodeInodeData(blk.Data, n)

		if !gotPrimary {
			gotPrimary = true
			size = sizeCandidate
			mtime = int64(binary.BigEndian.Uint64(blk.Data[0:8]))
			headPayload = headPayloadField
			mac = macField

			for j := 0; j < n; j++ {
				if sizeCandidate <= int64(fs.cfg.HeadCapacity()) {
					chains[j] = nil // whole file fits in the inode head; no data chain
					continue
				}
				chain, err := fs.walkChain(f.DirPath, f.Name, f.Pass, j, starts[j], owner)
				if err != nil {
					corruptCopies++
				}
				chains[j] = chain
			}
		}

		if quick && gotPrimary {
			break
		}
	}

	ok := availableInodes >= 1 && corruptCopies < n
	if !ok {
		unmarkAll()
		return false, nil
	}

	f.Size = size
	f.Mtime = mtime
	f.InodeIndices = candidates
	f.Chains = chains
	f.HeadPayload = headPayload
	f.MAC = mac
	return true, nil
}

// decodeInodeData splits an inode block's plaintext data field into its
// mtime-prefixed layout (spec §3 "Inode-block data layout"): mtime(8) ∥
// starts(n·8) ∥ mac(32) ∥ head payload.
func decodeInodeData(data []byte, n int) (starts []uint64, headPayload, mac []byte) {
	off := 8
	starts = make([]uint64, n)
	for j := 0; j < n; j++ {
		starts[j] = binary.BigEndian.Uint64(data[off : off+8])
		off += 8
	}
	mac = append([]byte(nil), data[off:off+macLenBytes]...)
	off += macLenBytes
	headPayload = append([]byte(nil), data[off:]...)
	return starts, headPayload, mac
}

const macLenBytes = 32

// walkChain follows a data-block chain for one copy, verifying each
// block's path_tag and data_hash via internal/block, and marking every
// visited index in use.
func (fs *FileSystem) walkChain(dirPath, name, pass string, copyIndex int, startRaw uint64, owner string) ([]uint64, error) {
	cipherKey, iv, _ := fs.copyKeys(dirPath, name, pass, copyIndex)

	var chain []uint64
	cur := startRaw
	for step := uint64(0); step < fs.totalBlocks; step++ {
		idxNorm, err := block.Normalize(cur, fs.totalBlocks)
		if err != nil {
			return chain, err
		}
		blk, err := block.Read(fs.img.Bytes(), fs.cfg, fs.suite, cur, fs.totalBlocks, dirPath, cipherKey, iv)
		if err != nil {
			return chain, err
		}
		fs.tracker.MarkUsed(idxNorm, owner)
		chain = append(chain, cur)
		if blk.Next == chainEndSentinel {
			return chain, nil
		}
		cur = blk.Next
	}
	return chain, fmt.Errorf("engine: chain exceeds filesystem block count")
}

// readFile implements spec §4.6 read(file).
func (fs *FileSystem) readFile(f *pathcache.File) ([]byte, error) {
	ok, err := fs.statFile(f, true)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, stegerr.ErrNotFound
	}

	n := int(fs.cfg.Duplication)
	headCap := int64(fs.cfg.HeadCapacity())

	for j := 0; j < n; j++ {
		cipherKey, iv, macKey := fs.copyKeys(f.DirPath, f.Name, f.Pass, j)
		mac := fs.suite.NewMAC(macKey)

		var chainPayload []byte
		broke := false
		for _, raw := range f.Chains[j] {
			blk, err := block.Read(fs.img.Bytes(), fs.cfg, fs.suite, raw, fs.totalBlocks, f.DirPath, cipherKey, iv)
			if err != nil {
				broke = true
				break
			}
			mac.Write(blk.Data)
			chainPayload = append(chainPayload, blk.Data...)
		}
		if broke {
			continue
		}

		computed := mac.Sum(nil)
		if subtle.ConstantTimeCompare(computed, f.MAC) != 1 {
			continue
		}

		out := make([]byte, 0, f.Size)
		if f.Size <= headCap {
			out = append(out, f.HeadPayload[:f.Size]...)
		} else {
			out = append(out, f.HeadPayload...)
			out = append(out, chainPayload...)
			if int64(len(out)) > f.Size {
				out = out[:f.Size]
			}
		}
		f.Payload = out
		return out, nil
	}

	return nil, stegerr.ErrIntegrityFailure
}

// willFit implements spec §4.6 will_fit(file): a cheap pre-flight the
// host layer uses to reject writes early.
func (fs *FileSystem) willFit(size int64) error {
	n := uint64(fs.cfg.Duplication)
	blocksNeeded := blocksNeededFor(size, fs.cfg)

	if blocksNeeded*n > fs.totalBlocks {
		return stegerr.ErrTooLarge
	}
	stats := fs.tracker.Stats()
	if blocksNeeded*n > stats.Free {
		return stegerr.ErrNoSpace
	}
	return nil
}

func blocksNeededFor(size int64, c interface {
	HeadCapacity() uint32
	DataCapacity() uint32
}) uint64 {
	headCap := int64(c.HeadCapacity())
	if size <= headCap {
		return 0
	}
	dataCap := int64(c.DataCapacity())
	remaining := size - headCap
	return uint64((remaining + dataCap - 1) / dataCap)
}

// writeFile implements spec §4.6 write(file, data, size).
func (fs *FileSystem) writeFile(f *pathcache.File, data []byte) error {
	size := int64(len(data))
	n := int(fs.cfg.Duplication)

	if _, err := fs.statFile(f, true); err != nil {
		return err
	}

	blocksNeeded := int(blocksNeededFor(size, fs.cfg))
	stats := fs.tracker.Stats()
	if uint64(blocksNeeded)*uint64(n)+uint64(n) > stats.Free+uint64(countExisting(f)) {
		return stegerr.ErrNoSpace
	}

	candidates, err := placer.Place(fs.suite, f.DirPath, f.Name, n)
	if err != nil {
		return err
	}
	owner := joinPath(f.DirPath, f.Name)
	for _, raw := range candidates {
		idx, err := block.Normalize(raw, fs.totalBlocks)
		if err == nil {
			fs.tracker.MarkUsed(idx, owner)
		}
	}

	var allAllocated []uint64
	rollback := func() {
		for _, idx := range allAllocated {
			fs.tracker.MarkFree(idx)
		}
		for _, raw := range candidates {
			if idx, err := block.Normalize(raw, fs.totalBlocks); err == nil {
				fs.tracker.MarkFree(idx)
			}
		}
	}

	headCap := int64(fs.cfg.HeadCapacity())
	dataCap := int(fs.cfg.DataCapacity())

	// chains holds the normalized block index of each allocated block,
	// used for addressing and tracker bookkeeping; chainsRaw holds the
	// unreduced value actually stored on disk in the preceding block's
	// next field (and in the inode start words below), so an observer
	// never sees a small, low-entropy chain pointer (spec §4.3, §6).
	chains := make([][]uint64, n)
	chainsRaw := make([][]uint64, n)
	for j := 0; j < n; j++ {
		chain := make([]uint64, blocksNeeded)
		chainRaw := make([]uint64, blocksNeeded)
		for b := 0; b < blocksNeeded; b++ {
			idx, err := alloc.Allocate(fs.img.Bytes(), fs.cfg, fs.suite, fs.totalBlocks, f.DirPath, fs.tracker)
			if err != nil {
				rollback()
				return err
			}
			raw, err := alloc.StoreUnreduced(idx, fs.totalBlocks)
			if err != nil {
				rollback()
				return err
			}
			fs.tracker.MarkUsed(idx, owner)
			allAllocated = append(allAllocated, idx)
			chain[b] = idx
			chainRaw[b] = raw
		}
		chains[j] = chain
		chainsRaw[j] = chainRaw
	}

	// chunks holds copy 0's plaintext data fields, random padding
	// included; every later copy reuses them so all copies carry the
	// identical plaintext stream the copy-0 MAC authenticates.
	var mac []byte
	chunks := make([][]byte, blocksNeeded)
	for j := 0; j < n; j++ {
		cipherKey, iv, macKey := fs.copyKeys(f.DirPath, f.Name, f.Pass, j)
		var macCtx = fs.suite.NewMAC(macKey)

		remaining := data
		if size > headCap {
			remaining = data[headCap:]
		} else {
			remaining = nil
		}

		for b, idx := range chains[j] {
			chunk := chunks[b]
			if chunk == nil {
				chunk = make([]byte, dataCap)
				n2 := copy(chunk, remaining)
				if n2 < dataCap {
					if err := fillRandom(chunk[n2:]); err != nil {
						rollback()
						return err
					}
				}
				if n2 < len(remaining) {
					remaining = remaining[n2:]
				} else {
					remaining = nil
				}
				chunks[b] = chunk
			}

			next := uint64(chainEndSentinel)
			if b < len(chains[j])-1 {
				next = chainsRaw[j][b+1]
			}
			if err := block.Write(fs.img.Bytes(), fs.cfg, fs.suite, idx, fs.totalBlocks, f.DirPath, cipherKey, iv, chunk, next); err != nil {
				rollback()
				return err
			}
			if j == 0 {
				macCtx.Write(chunk)
			}
		}
		if j == 0 {
			mac = macCtx.Sum(nil)
		}
	}

	mtime := fs.clk.Now().Unix()
	for j := 0; j < n; j++ {
		if _, err := block.Normalize(candidates[j], fs.totalBlocks); err != nil {
			continue // candidate falls on the superblock (spec I6); statFile skips this copy too
		}
		cipherKey, iv, _ := fs.copyKeys(f.DirPath, f.Name, f.Pass, j)

		inodeData := make([]byte, fs.cfg.DataCapacity())
		off := 0
		binary.BigEndian.PutUint64(inodeData[off:], uint64(mtime))
		off += 8
		for k := 0; k < n; k++ {
			var startRaw uint64
			if blocksNeeded > 0 {
				startRaw = chainsRaw[k][0]
			} else {
				noise, err := crypto.RandomBytes(8)
				if err != nil {
					rollback()
					return err
				}
				startRaw = binary.BigEndian.Uint64(noise)
			}
			binary.BigEndian.PutUint64(inodeData[off:], startRaw)
			off += 8
		}
		copy(inodeData[off:], mac)
		off += macLenBytes
		headPayload := inodeData[off:]
		hn := copy(headPayload, data)
		if hn < len(headPayload) {
			if err := fillRandom(headPayload[hn:]); err != nil {
				rollback()
				return err
			}
		}

		if err := block.Write(fs.img.Bytes(), fs.cfg, fs.suite, candidates[j], fs.totalBlocks, f.DirPath, cipherKey, iv, inodeData, uint64(size)); err != nil {
			rollback()
			return err
		}
	}

	// Shrinking: scrub trailing blocks beyond the new chain length for
	// every copy (spec §4.6 step 8).
	for j := 0; j < n && j < len(f.Chains); j++ {
		for _, old := range f.Chains[j] {
			if !containsRaw(chainsRaw[j], old) {
				if idx, err := block.Normalize(old, fs.totalBlocks); err == nil {
					_ = block.Scrub(fs.img.Bytes(), fs.cfg, old, fs.totalBlocks)
					fs.tracker.MarkFree(idx)
				}
			}
		}
	}

	f.Size = size
	f.Mtime = mtime
	f.InodeIndices = candidates
	// f.Chains holds the unreduced, as-stored-on-disk chain pointers
	// (matching what statFile/walkChain reconstruct from disk), not the
	// normalized addressing indices in chains.
	f.Chains = chainsRaw
	f.HeadPayload = append([]byte(nil), data[:min64(int64(len(data)), headCap)]...)
	f.MAC = mac
	f.Payload = append([]byte(nil), data...)
	return nil
}

func containsRaw(haystack []uint64, needle uint64) bool {
	for _, v := range haystack {
		if v == needle {
			return true
		}
	}
	return false
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func countExisting(f *pathcache.File) int {
	total := 0
	for _, chain := range f.Chains {
		total += len(chain)
	}
	return total
}

func fillRandom(buf []byte) error {
	noise, err := crypto.RandomBytes(len(buf))
	if err != nil {
		return err
	}
	copy(buf, noise)
	return nil
}

// deleteFile implements spec §4.6 delete(file): scrub every inode and
// data block of every copy, then drop the cache entry.
func (fs *FileSystem) deleteFile(f *pathcache.File) error {
	if _, err := fs.statFile(f, false); err != nil {
		return err
	}

	for _, raw := range f.InodeIndices {
		if idx, err := block.Normalize(raw, fs.totalBlocks); err == nil {
			_ = block.Scrub(fs.img.Bytes(), fs.cfg, raw, fs.totalBlocks)
			fs.tracker.MarkFree(idx)
		}
	}
	for _, chain := range f.Chains {
		for _, raw := range chain {
			if idx, err := block.Normalize(raw, fs.totalBlocks); err == nil {
				_ = block.Scrub(fs.img.Bytes(), fs.cfg, raw, fs.totalBlocks)
				fs.tracker.MarkFree(idx)
			}
		}
	}
	return nil
}
