// Package image owns the backing store: a regular file opened
// read-write, exclusively locked for the mount's lifetime, and
// memory-mapped with read-write shared semantics (spec §6 "Backing
// store"). All block I/O elsewhere in the engine borrows byte slices
// from the mapping this package owns; nothing else opens or closes the
// file descriptor.
//
// The mmap/flock idiom is ported from calvinalkan's slotcache
// (pkg/slotcache, syscall.Mmap/MAP_SHARED) and jeremyhahn's go-luks2
// (golang.org/x/sys/unix ioctl idiom); this package uses
// golang.org/x/sys/unix throughout since it is already a direct
// dependency for mmap/flock/msync on every supported platform.
package image

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/stegfs-go/stegfs/internal/crypto"
)

// Image is the mmap'd backing store for one mounted filesystem.
type Image struct {
	file *os.File
	data []byte
}

// Open opens path read-write, takes an exclusive advisory lock, and
// mmaps the whole file MAP_SHARED so writes are visible to any other
// process holding the same mapping (there should be none, given the
// lock).
func Open(path string) (*Image, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("image: opening %s: %w", path, err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		return nil, fmt.Errorf("image: locking %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("image: stat %s: %w", path, err)
	}
	if info.Size() == 0 {
		f.Close()
		return nil, fmt.Errorf("image: %s is empty", path)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(info.Size()), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("image: mmap %s: %w", path, err)
	}

	return &Image{file: f, data: data}, nil
}

// Bytes returns the mapped region. Callers read and write through it
// directly (internal/block, internal/alloc, internal/superblock all
// take a []byte rather than an *Image, so they stay testable against a
// plain in-memory buffer).
func (img *Image) Bytes() []byte {
	return img.data
}

// Size returns the mapped region's length in bytes.
func (img *Image) Size() int64 {
	return int64(len(img.data))
}

// Sync flushes dirty pages to the backing file. msync is advisory, not
// mandated per-operation (spec §5 "Shared-resource policy") — callers
// invoke it at their own durability checkpoints, typically unmount.
func (img *Image) Sync() error {
	if err := unix.Msync(img.data, unix.MS_SYNC); err != nil {
		return fmt.Errorf("image: msync: %w", err)
	}
	return nil
}

// Close unmaps, unlocks, and closes the backing file.
func (img *Image) Close() error {
	var errs []error
	if err := unix.Munmap(img.data); err != nil {
		errs = append(errs, fmt.Errorf("image: munmap: %w", err))
	}
	if err := unix.Flock(int(img.file.Fd()), unix.LOCK_UN); err != nil {
		errs = append(errs, fmt.Errorf("image: unlock: %w", err))
	}
	if err := img.file.Close(); err != nil {
		errs = append(errs, fmt.Errorf("image: close: %w", err))
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// Create produces a fresh backing file of sizeBytes filled entirely with
// CSPRNG output (spec §6 "mkfs (collaborator)"). The caller writes the
// superblock afterward via internal/superblock.Write against the
// returned *Image (or reopens the path).
func Create(path string, sizeBytes int64) (*Image, error) {
	if sizeBytes <= 0 {
		return nil, fmt.Errorf("image: size must be positive")
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("image: creating %s: %w", path, err)
	}
	if err := f.Truncate(sizeBytes); err != nil {
		f.Close()
		return nil, fmt.Errorf("image: truncating %s: %w", path, err)
	}

	const chunk = 4 << 20 // 4 MiB at a time, to bound peak memory for large images
	var written int64
	for written < sizeBytes {
		n := chunk
		if remaining := sizeBytes - written; remaining < int64(n) {
			n = int(remaining)
		}
		buf, err := crypto.RandomBytes(n)
		if err != nil {
			f.Close()
			return nil, err
		}
		if _, err := f.WriteAt(buf, written); err != nil {
			f.Close()
			return nil, fmt.Errorf("image: filling %s: %w", path, err)
		}
		written += int64(n)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("image: closing after fill %s: %w", path, err)
	}

	return Open(path)
}
