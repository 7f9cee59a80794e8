// Package alloc implements the collision-aware block allocator of spec
// §4.3: given a file's parent directory path, find a block index whose
// raw (still-encrypted) path_tag does not collide with the hash of any
// ancestor directory, so that a later read walking one of those
// ancestors can never mistake this block for its own.
package alloc

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"math/big"
	"strings"

	"github.com/stegfs-go/stegfs/internal/cfg"
	"github.com/stegfs-go/stegfs/internal/crypto"
	"github.com/stegfs-go/stegfs/internal/stegerr"
	"github.com/stegfs-go/stegfs/internal/tracker"
)

// InUse reports whether a block index is already known to be occupied;
// *tracker.Tracker satisfies this.
type InUse interface {
	IsUsed(index uint64) bool
}

// Ancestors returns every ancestor directory of path, including path
// itself, excluding "/" — the set of path_tags a candidate block must
// not collide with (spec §4.3).
func Ancestors(path string) []string {
	path = strings.TrimSuffix(path, "/")
	if path == "" {
		return nil
	}
	var out []string
	for p := path; p != "" && p != "/"; {
		out = append(out, p)
		idx := strings.LastIndex(p, "/")
		if idx <= 0 {
			break
		}
		p = p[:idx]
	}
	return out
}

// Allocate picks a random block index in [0, totalBlocks) such that the
// raw path_tag stored at that index does not equal hash(A) for any
// ancestor A of parentPath, skipping indices the tracker already marks
// used. It tries at most totalBlocks times before giving up with
// stegerr.ErrNoSpace (spec §5 "Allocator retries ... bound themselves by
// trying at most total_blocks random indices").
func Allocate(image []byte, c cfg.Config, suite *crypto.Suite, totalBlocks uint64, parentPath string, inUse InUse) (uint64, error) {
	if totalBlocks < 2 {
		return 0, fmt.Errorf("alloc: %w", stegerr.ErrNoSpace)
	}

	forbidden := make([][]byte, 0, len(Ancestors(parentPath)))
	for _, a := range Ancestors(parentPath) {
		h := suite.Hash([]byte(a))
		tag := make([]byte, len(h))
		copy(tag, h[:])
		forbidden = append(forbidden, tag)
	}

	for attempt := uint64(0); attempt < totalBlocks; attempt++ {
		idx, err := randIndex(totalBlocks)
		if err != nil {
			return 0, err
		}
		if idx == 0 {
			continue // superblock, spec I6
		}
		if inUse != nil && inUse.IsUsed(idx) {
			continue
		}
		if !collides(image, c, idx, forbidden) {
			return idx, nil
		}
	}
	return 0, fmt.Errorf("alloc: %w", stegerr.ErrNoSpace)
}

func collides(image []byte, c cfg.Config, idx uint64, forbidden [][]byte) bool {
	start := int64(idx) * int64(c.BlockSize)
	end := start + int64(cfg.PathTagLen)
	if end > int64(len(image)) {
		return true
	}
	tag := image[start:end]
	for _, f := range forbidden {
		if bytes.Equal(tag, f) {
			return true
		}
	}
	return false
}

func randIndex(totalBlocks uint64) (uint64, error) {
	n, err := rand.Int(rand.Reader, new(big.Int).SetUint64(totalBlocks))
	if err != nil {
		return 0, fmt.Errorf("alloc: generating random index: %w", err)
	}
	return n.Uint64(), nil
}

// StoreUnreduced encodes a block index as an 8-byte big-endian value
// with high bits filled from CSPRNG noise, so the on-disk chain-next and
// inode start-word fields do not leak "lots of small integers" to an
// observer (spec §4.3). The stored value normalizes back to index via
// block.Normalize(v, totalBlocks).
func StoreUnreduced(index, totalBlocks uint64) (uint64, error) {
	noise, err := crypto.RandomBytes(8)
	if err != nil {
		return 0, err
	}
	r := binary.BigEndian.Uint64(noise)
	if totalBlocks == 0 {
		return index, nil
	}
	// Keep the low bits congruent to index mod totalBlocks while letting
	// the rest of the 64-bit value vary.
	base := r - (r % totalBlocks)
	return base + index, nil
}
