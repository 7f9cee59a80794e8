// Package block implements the fixed-size on-disk block codec of spec
// §4.2/§6: each block is path_tag(32) ∥ ciphertext(blocksize−32), where
// the ciphertext decrypts to data(blocksize−72) ∥ data_hash(32) ∥
// next(8). Reading and writing both operate directly on a byte slice
// view of the mmap'd backing image (internal/image owns the mapping
// itself; this package only knows block-sized offsets into it), in the
// idiom of zchee/go-qcow2's header/cluster codec split.
package block

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/stegfs-go/stegfs/internal/cfg"
	"github.com/stegfs-go/stegfs/internal/crypto"
)

// ErrNotOurs is returned by Read when the block's path_tag does not match
// the expected parent directory hash — no decryption is attempted, since
// the block may belong to someone else's file or simply be free space.
var ErrNotOurs = errors.New("block: path tag does not match parent directory")

// ErrCorrupt is returned by Read when the block decrypts but its
// data_hash does not match the recomputed hash of the plaintext data
// field.
var ErrCorrupt = errors.New("block: data hash mismatch")

// ErrSuperblockIndex is returned when a normalized index lands on block
// 0, which is reserved for the superblock and never holds file data
// (spec I6).
var ErrSuperblockIndex = errors.New("block: index reserved for superblock")

// Block is the decoded, decrypted form of one on-disk block.
type Block struct {
	// Data is the plaintext payload: blocksize − 72 bytes.
	Data []byte
	// Next is the chain-next pointer for a data block, or the file size
	// in bytes for an inode block (spec §3). Stored and returned
	// unreduced — callers normalize with Normalize before using it as an
	// index.
	Next uint64
}

// Normalize reduces a raw (possibly out-of-range) stored index modulo
// the block count, and rejects the superblock's index (spec §4.2
// "index is taken modulo (fs_size / blocksize); index == 0 or
// out-of-range is rejected").
func Normalize(raw, totalBlocks uint64) (uint64, error) {
	if totalBlocks == 0 {
		return 0, fmt.Errorf("block: zero total blocks")
	}
	idx := raw % totalBlocks
	if idx == 0 {
		return 0, ErrSuperblockIndex
	}
	return idx, nil
}

func offset(idx uint64, c cfg.Config) (int64, int64) {
	start := int64(idx) * int64(c.BlockSize)
	return start, start + int64(c.BlockSize)
}

// Read loads the block at rawIndex, verifies its path_tag against
// parentPath, decrypts it under (cipherKey, iv), and verifies its
// data_hash. parentPath == "/" skips the path_tag check entirely (the
// case for every block, inode or data, of a file in the root directory).
func Read(image []byte, c cfg.Config, suite *crypto.Suite, rawIndex uint64, totalBlocks uint64, parentPath string, cipherKey, iv []byte) (*Block, error) {
	idx, err := Normalize(rawIndex, totalBlocks)
	if err != nil {
		return nil, err
	}
	start, end := offset(idx, c)
	if end > int64(len(image)) {
		return nil, fmt.Errorf("block: index %d out of range", idx)
	}
	raw := image[start:end]

	pathTag := raw[:cfg.PathTagLen]
	if parentPath != "/" {
		want := suite.Hash([]byte(parentPath))
		if !bytes.Equal(pathTag, want[:]) {
			return nil, ErrNotOurs
		}
	}

	ciphertext := raw[cfg.PathTagLen:]
	plaintext, err := suite.Decrypt(cipherKey, iv, ciphertext)
	if err != nil {
		return nil, fmt.Errorf("block: decrypt: %w", err)
	}

	dataCap := int(c.DataCapacity())
	data := plaintext[:dataCap]
	storedHash := plaintext[dataCap : dataCap+cfg.DataHashLen]
	nextBytes := plaintext[dataCap+cfg.DataHashLen:]

	computed := suite.Hash(data)
	if !bytes.Equal(computed[:], storedHash) {
		return nil, ErrCorrupt
	}

	return &Block{
		Data: data,
		Next: binary.BigEndian.Uint64(nextBytes),
	}, nil
}

// Write encodes data (exactly DataCapacity bytes) and next into the
// block at rawIndex, computing path_tag and data_hash and encrypting
// the data∥data_hash∥next region under (cipherKey, iv). parentPath ==
// "/" fills path_tag with fresh random bytes rather than a hash (the case
// for every block, inode or data, of a file in the root directory).
func Write(image []byte, c cfg.Config, suite *crypto.Suite, rawIndex uint64, totalBlocks uint64, parentPath string, cipherKey, iv []byte, data []byte, next uint64) error {
	idx, err := Normalize(rawIndex, totalBlocks)
	if err != nil {
		return err
	}
	start, end := offset(idx, c)
	if end > int64(len(image)) {
		return fmt.Errorf("block: index %d out of range", idx)
	}
	if uint32(len(data)) != c.DataCapacity() {
		return fmt.Errorf("block: data length %d, want %d", len(data), c.DataCapacity())
	}
	raw := image[start:end]

	var pathTag []byte
	if parentPath == "/" {
		pathTag, err = crypto.RandomBytes(cfg.PathTagLen)
		if err != nil {
			return err
		}
	} else {
		tag := suite.Hash([]byte(parentPath))
		pathTag = tag[:]
	}

	dataHash := suite.Hash(data)
	var nextBytes [cfg.NextLen]byte
	binary.BigEndian.PutUint64(nextBytes[:], next)

	plaintext := make([]byte, 0, len(data)+cfg.DataHashLen+cfg.NextLen)
	plaintext = append(plaintext, data...)
	plaintext = append(plaintext, dataHash[:]...)
	plaintext = append(plaintext, nextBytes[:]...)

	ciphertext, err := suite.Encrypt(cipherKey, iv, plaintext)
	if err != nil {
		return fmt.Errorf("block: encrypt: %w", err)
	}

	copy(raw[:cfg.PathTagLen], pathTag)
	copy(raw[cfg.PathTagLen:], ciphertext)
	return nil
}

// Scrub overwrites the entire block at rawIndex with CSPRNG output, the
// delete-time reversion to indistinguishable-from-free (spec §3
// "Lifecycle").
func Scrub(image []byte, c cfg.Config, rawIndex uint64, totalBlocks uint64) error {
	idx, err := Normalize(rawIndex, totalBlocks)
	if err != nil {
		return err
	}
	start, end := offset(idx, c)
	if end > int64(len(image)) {
		return fmt.Errorf("block: index %d out of range", idx)
	}
	fresh, err := crypto.RandomBytes(int(c.BlockSize))
	if err != nil {
		return err
	}
	copy(image[start:end], fresh)
	return nil
}
