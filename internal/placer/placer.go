// Package placer implements the deterministic inode placement of spec
// §4.5: map (dir_path, name) to N candidate inode-block indices, with no
// dependency on the passphrase, so that knowing a file's path and name
// alone never yields decryptable blocks.
package placer

import (
	"encoding/binary"
	"fmt"

	"github.com/stegfs-go/stegfs/internal/crypto"
)

// Place returns n candidate inode-block indices for (dirPath, name),
// each stored unreduced — callers normalize with block.Normalize before
// use. The underlying digest is expanded past one hash's output by
// hashing dirPath ∥ name ∥ counter for successive counters, concatenating
// until at least 8·n bytes are available (spec §4.5: "digest of length
// ≥ 8·N bytes").
func Place(suite *crypto.Suite, dirPath, name string, n int) ([]uint64, error) {
	if n <= 0 {
		return nil, fmt.Errorf("placer: n must be positive, got %d", n)
	}

	need := 8 * n
	digest := make([]byte, 0, need+crypto.HashSize)
	for counter := uint32(0); len(digest) < need; counter++ {
		var ctr [4]byte
		binary.BigEndian.PutUint32(ctr[:], counter)
		h := suite.Hash([]byte(dirPath), []byte(name), ctr[:])
		digest = append(digest, h[:]...)
	}

	candidates := make([]uint64, n)
	for i := 0; i < n; i++ {
		candidates[i] = binary.BigEndian.Uint64(digest[i*8 : i*8+8])
	}
	return candidates, nil
}
