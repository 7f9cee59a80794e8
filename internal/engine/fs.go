// Package engine is the file engine of spec §4.6 (C6), the center of
// the design: it coordinates the block codec, allocator, key schedule
// and inode placer to implement stat/read/write/delete, maintaining
// N-way redundancy and MAC verification, and exposes the host-facing
// operations of spec §6 (mount/unmount/info/stat/readdir/mkdir/
// rmdir/open/read/write/release/truncate/unlink).
//
// FileSystem's mutable state (the path cache and block tracker) is
// guarded by a jacobsa/syncutil.InvariantMutex, in the idiom gcsfuse's
// fs/inode.FileInode uses for its own guarded mutable state: a
// "Dependencies / Constant data / Mutable state" struct layout and a
// checkInvariants method wired in at construction.
package engine

import (
	"fmt"

	"github.com/jacobsa/syncutil"

	"github.com/stegfs-go/stegfs/internal/cfg"
	"github.com/stegfs-go/stegfs/internal/clock"
	"github.com/stegfs-go/stegfs/internal/crypto"
	"github.com/stegfs-go/stegfs/internal/image"
	"github.com/stegfs-go/stegfs/internal/pathcache"
	"github.com/stegfs-go/stegfs/internal/stegerr"
	"github.com/stegfs-go/stegfs/internal/superblock"
	"github.com/stegfs-go/stegfs/internal/tracker"
)

// FileSystem is one mounted image.
type FileSystem struct {
	// Dependencies.
	img   *image.Image
	suite *crypto.Suite
	clk   clock.Clock

	// Constant data (fixed for the mount's lifetime).
	cfg         cfg.Config
	totalBlocks uint64

	// Mu guards Mutable state below.
	Mu syncutil.InvariantMutex

	// Mutable state. GUARDED_BY(Mu).
	tree    *pathcache.Tree
	tracker *tracker.Tracker
}

func (fs *FileSystem) checkInvariants() {
	if fs.tree == nil || fs.tracker == nil {
		panic("engine: FileSystem mutable state not initialized")
	}
}

// MountOptions mirrors spec §6's mount(image_path, options).
type MountOptions struct {
	Paranoid bool
	Params   cfg.ParanoidParams
	Clock    clock.Clock
}

// Mount opens imagePath, recognizes or rationalizes its Config, and
// returns a ready FileSystem.
func Mount(imagePath string, opts MountOptions) (*FileSystem, error) {
	img, err := image.Open(imagePath)
	if err != nil {
		return nil, fmt.Errorf("engine: mount: %w", err)
	}

	var override cfg.Config
	if opts.Paranoid {
		override = cfg.Rationalize(opts.Params)
	}

	c, totalBlocks, err := superblock.Recognize(img.Bytes(), override.BlockSize, opts.Paranoid, override)
	if err != nil {
		img.Close()
		return nil, err
	}
	c.ShowBloc = opts.Params.ShowBloc

	if uint64(img.Size())/uint64(c.BlockSize) != totalBlocks {
		img.Close()
		return nil, fmt.Errorf("engine: mount: %w", stegerr.ErrCorruptTag)
	}

	suite, err := crypto.NewSuite(c)
	if err != nil {
		img.Close()
		return nil, fmt.Errorf("engine: mount: %w", err)
	}

	clk := opts.Clock
	if clk == nil {
		clk = clock.RealClock{}
	}

	fs := &FileSystem{
		img:         img,
		suite:       suite,
		clk:         clk,
		cfg:         c,
		totalBlocks: totalBlocks,
		tree:        pathcache.NewTree(),
		tracker:     tracker.New(totalBlocks, c.ShowBloc),
	}
	fs.Mu = syncutil.NewInvariantMutex(fs.checkInvariants)
	return fs, nil
}

// Unmount flushes, unmaps, and closes the backing image, and discards
// every in-memory cache (spec §6 "unmount(fs): flush, munmap, close,
// free caches").
func (fs *FileSystem) Unmount() error {
	fs.Mu.Lock()
	fs.tree = nil
	fs.tracker = nil
	fs.Mu.Unlock()

	if err := fs.img.Sync(); err != nil {
		return err
	}
	return fs.img.Close()
}

// Info summarizes the mounted filesystem (spec §6 "info(fs)").
type Info struct {
	Size        int64
	BlockCount  uint64
	BlocksUsed  uint64
	Cipher      cfg.CipherName
	Mode        cfg.ModeName
	Hash        cfg.HashName
	MAC         cfg.MACName
	Duplication cfg.Duplication
	HeadOffset  uint32
	BlockSize   uint32
	Version     cfg.Version
	ShowBloc    bool
}

// Info returns the current summary.
func (fs *FileSystem) Info() Info {
	fs.Mu.Lock()
	defer fs.Mu.Unlock()
	stats := fs.tracker.Stats()
	return Info{
		Size:        fs.img.Size(),
		BlockCount:  fs.totalBlocks,
		BlocksUsed:  stats.Used,
		Cipher:      fs.cfg.Cipher,
		Mode:        fs.cfg.Mode,
		Hash:        fs.cfg.Hash,
		MAC:         fs.cfg.MAC,
		Duplication: fs.cfg.Duplication,
		HeadOffset:  fs.cfg.HeaderOffset,
		BlockSize:   fs.cfg.BlockSize,
		Version:     fs.cfg.FormatVersion,
		ShowBloc:    fs.cfg.ShowBloc,
	}
}
