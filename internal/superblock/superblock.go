// Package superblock recognizes and emits block 0, the filesystem
// header of spec §4.7/§6: five fixed magic words identifying product and
// format generation, a TLV algorithm-parameter record, and a trailing
// total-block-count field. Unlike every other block, the superblock is
// never encrypted — its own existence is not what plausible deniability
// protects (that's what paranoid mode and the magic-word recognition
// rules are for).
package superblock

import (
	"encoding/binary"
	"fmt"
	"strconv"

	"github.com/stegfs-go/stegfs/internal/cfg"
	"github.com/stegfs-go/stegfs/internal/stegerr"
)

const (
	magicOffset      = 0
	generationOffset = 16
	tlvOffset        = 40
)

// tagNames maps the on-disk TLV tag byte to the mapstructure field name
// cfg.FromTags expects.
var tagNames = map[byte]string{
	cfg.TagProduct:     "product",
	cfg.TagVersion:     "version",
	cfg.TagCipher:      "cipher",
	cfg.TagMode:        "mode",
	cfg.TagHash:        "hash",
	cfg.TagMAC:         "mac",
	cfg.TagBlockSize:   "blocksize",
	cfg.TagHeaderSize:  "header_offset",
	cfg.TagDuplication: "duplication",
	cfg.TagKDF:         "kdf",
}

var stringTags = map[byte]bool{
	cfg.TagProduct: true,
	cfg.TagVersion: true,
	cfg.TagCipher:  true,
	cfg.TagMode:    true,
	cfg.TagHash:    true,
	cfg.TagMAC:     true,
}

// Info is the host-facing summary of a mounted filesystem (spec §6
// "info(fs)").
type Info struct {
	Size        int64
	BlockCount  uint64
	BlocksUsed  uint64
	Config      cfg.Config
}

// Recognize reads block 0 of image and returns the Config it describes.
// If paranoid is true, the on-disk record is never consulted (spec §4.7
// "Paranoid mode"): override describes the filesystem instead, the block
// count is the image size divided by the blocksize, and no check of the
// image's contents or size is made.
func Recognize(image []byte, blockSizeHint uint32, paranoid bool, override cfg.Config) (cfg.Config, uint64, error) {
	if paranoid {
		if blockSizeHint == 0 {
			blockSizeHint = override.BlockSize
		}
		totalBlocks := uint64(len(image)) / uint64(blockSizeHint)
		return override, totalBlocks, nil
	}

	if len(image) < tlvOffset+8 {
		return cfg.Config{}, 0, fmt.Errorf("superblock: image too small: %w", stegerr.ErrNotStegfs)
	}

	w0 := binary.BigEndian.Uint64(image[magicOffset : magicOffset+8])
	w1 := binary.BigEndian.Uint64(image[magicOffset+8 : magicOffset+16])
	if w0 != cfg.MagicWord0 || w1 != cfg.MagicWord1 {
		return cfg.Config{}, 0, stegerr.ErrNotStegfs
	}

	g0 := binary.BigEndian.Uint64(image[generationOffset : generationOffset+8])
	g1 := binary.BigEndian.Uint64(image[generationOffset+8 : generationOffset+16])
	g2 := binary.BigEndian.Uint64(image[generationOffset+16 : generationOffset+24])

	switch {
	case g0 == cfg.GenerationWord0 && g2 == cfg.GenerationWord2:
		// current generation, fall through to TLV parse
	case g1 == cfg.GenerationWord1:
		return cfg.Config{}, 0, stegerr.ErrOldStegfs
	default:
		return cfg.Config{}, 0, stegerr.ErrNotStegfs
	}

	blockSize := blockSizeHint
	if blockSize == 0 {
		blockSize = cfg.DefaultBlockSize
	}
	if len(image) < int(blockSize) {
		return cfg.Config{}, 0, fmt.Errorf("superblock: image smaller than one block: %w", stegerr.ErrCorruptTag)
	}

	tags, err := parseTLV(image[tlvOffset : int(blockSize)-8])
	if err != nil {
		return cfg.Config{}, 0, err
	}

	c, err := cfg.FromTags(tags)
	if err != nil {
		return cfg.Config{}, 0, fmt.Errorf("%w: %v", stegerr.ErrInvalidTag, err)
	}
	if err := cfg.Validate(c); err != nil {
		return cfg.Config{}, 0, fmt.Errorf("%w: %v", stegerr.ErrInvalidTag, err)
	}

	// The block count sits in the last 8 bytes of block 0, whose size is
	// only known once the TLV record has been decoded.
	if len(image) < int(c.BlockSize) {
		return cfg.Config{}, 0, fmt.Errorf("superblock: image smaller than one block: %w", stegerr.ErrCorruptTag)
	}
	totalBlocks := binary.BigEndian.Uint64(image[int(c.BlockSize)-8 : int(c.BlockSize)])
	wantTotal := uint64(len(image)) / uint64(c.BlockSize)
	if totalBlocks != wantTotal {
		return cfg.Config{}, 0, fmt.Errorf("superblock: stored block count %d != fs_size/blocksize %d: %w", totalBlocks, wantTotal, stegerr.ErrCorruptTag)
	}

	return c, totalBlocks, nil
}

// Write emits a fresh superblock for Config c describing a filesystem of
// totalBlocks blocks (the mkfs collaborator, spec §6).
func Write(image []byte, c cfg.Config, totalBlocks uint64) error {
	if len(image) < int(c.BlockSize) {
		return fmt.Errorf("superblock: image smaller than one block")
	}

	binary.BigEndian.PutUint64(image[magicOffset:], cfg.MagicWord0)
	binary.BigEndian.PutUint64(image[magicOffset+8:], cfg.MagicWord1)
	binary.BigEndian.PutUint64(image[generationOffset:], cfg.GenerationWord0)
	binary.BigEndian.PutUint64(image[generationOffset+8:], cfg.GenerationWord1)
	binary.BigEndian.PutUint64(image[generationOffset+16:], cfg.GenerationWord2)

	tlv := encodeTLV(c)
	tlvRegion := image[tlvOffset : int(c.BlockSize)-8]
	if len(tlv) > len(tlvRegion) {
		return fmt.Errorf("superblock: TLV region %d bytes exceeds block capacity %d", len(tlv), len(tlvRegion))
	}
	copy(tlvRegion, tlv)

	binary.BigEndian.PutUint64(image[int(c.BlockSize)-8:int(c.BlockSize)], totalBlocks)
	return nil
}

func parseTLV(region []byte) (map[string]string, error) {
	if len(region) < 8 {
		return nil, fmt.Errorf("superblock: TLV region too short: %w", stegerr.ErrCorruptTag)
	}
	count := binary.BigEndian.Uint64(region[:8])
	off := 8
	tags := make(map[string]string, count)
	for i := uint64(0); i < count; i++ {
		if off+3 > len(region) {
			return nil, fmt.Errorf("superblock: TLV record %d truncated: %w", i, stegerr.ErrCorruptTag)
		}
		tag := region[off]
		length := binary.BigEndian.Uint16(region[off+1 : off+3])
		off += 3
		if off+int(length) > len(region) {
			return nil, fmt.Errorf("superblock: TLV record %d value truncated: %w", i, stegerr.ErrCorruptTag)
		}
		value := region[off : off+int(length)]
		off += int(length)

		name, known := tagNames[tag]
		if !known {
			continue // unrecognized tags are ignored, not fatal (future-proofing)
		}
		if stringTags[tag] {
			tags[name] = string(value)
			continue
		}
		switch tag {
		case cfg.TagKDF:
			if len(value) != 8 {
				return nil, fmt.Errorf("superblock: KDF tag wrong length: %w", stegerr.ErrCorruptTag)
			}
			tags[name] = strconv.FormatUint(binary.BigEndian.Uint64(value), 10)
		default:
			if len(value) != 4 {
				return nil, fmt.Errorf("superblock: tag %d wrong length: %w", tag, stegerr.ErrCorruptTag)
			}
			tags[name] = strconv.FormatUint(uint64(binary.BigEndian.Uint32(value)), 10)
		}
	}

	for _, required := range []byte{cfg.TagProduct, cfg.TagVersion, cfg.TagCipher, cfg.TagMode, cfg.TagHash, cfg.TagMAC, cfg.TagBlockSize, cfg.TagDuplication, cfg.TagKDF} {
		if _, ok := tags[tagNames[required]]; !ok {
			return nil, fmt.Errorf("superblock: missing tag %q: %w", tagNames[required], stegerr.ErrMissingTag)
		}
	}
	return tags, nil
}

func encodeTLV(c cfg.Config) []byte {
	type record struct {
		tag   byte
		value []byte
	}
	records := []record{
		{cfg.TagProduct, []byte(c.Product)},
		{cfg.TagVersion, []byte(c.FormatVersion.String())},
		{cfg.TagCipher, []byte(c.Cipher.String())},
		{cfg.TagMode, []byte(c.Mode.String())},
		{cfg.TagHash, []byte(c.Hash.String())},
		{cfg.TagMAC, []byte(c.MAC.String())},
		{cfg.TagBlockSize, u32be(c.BlockSize)},
		{cfg.TagHeaderSize, u32be(c.HeaderOffset)},
		{cfg.TagDuplication, u32be(uint32(c.Duplication))},
		{cfg.TagKDF, u64be(uint64(c.KDFIterations))},
	}

	out := make([]byte, 8, 8+len(records)*8)
	binary.BigEndian.PutUint64(out, uint64(len(records)))
	for _, r := range records {
		out = append(out, r.tag)
		var l [2]byte
		binary.BigEndian.PutUint16(l[:], uint16(len(r.value)))
		out = append(out, l[:]...)
		out = append(out, r.value...)
	}
	return out
}

func u32be(v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return b[:]
}

func u64be(v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return b[:]
}
