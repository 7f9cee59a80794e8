package engine

import (
	"fmt"

	"github.com/stegfs-go/stegfs/internal/cfg"
	"github.com/stegfs-go/stegfs/internal/image"
	"github.com/stegfs-go/stegfs/internal/superblock"
)

// MakeImage is the mkfs collaborator of spec §6: it produces a fresh
// image of sizeBytes filled with CSPRNG output and writes the
// superblock at block 0, grounded on the original mkfs tool's
// size-then-superblock sequencing (original_source/src/mkfs.c).
func MakeImage(path string, sizeBytes int64, c cfg.Config) error {
	if c.BlockSize == 0 {
		c.BlockSize = cfg.DefaultBlockSize
	}
	c.HeaderOffset = c.HeadCapacity()
	if err := cfg.Validate(c); err != nil {
		return fmt.Errorf("engine: mkfs: %w", err)
	}

	img, err := image.Create(path, sizeBytes)
	if err != nil {
		return fmt.Errorf("engine: mkfs: %w", err)
	}
	defer img.Close()

	totalBlocks := uint64(sizeBytes) / uint64(c.BlockSize)
	if totalBlocks < 2 {
		return fmt.Errorf("engine: mkfs: image too small for blocksize %d", c.BlockSize)
	}

	if err := superblock.Write(img.Bytes(), c, totalBlocks); err != nil {
		return fmt.Errorf("engine: mkfs: writing superblock: %w", err)
	}
	return img.Sync()
}
