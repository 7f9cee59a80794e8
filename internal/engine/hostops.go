package engine

import (
	"github.com/stegfs-go/stegfs/internal/pathcache"
	"github.com/stegfs-go/stegfs/internal/stegerr"
)

// Attr is returned by Stat (spec §6).
type Attr struct {
	Kind      Kind
	Size      int64
	Mtime     int64
	Nlink     int
	InodeHint uint64
}

// Kind distinguishes a file from a directory in an Attr.
type Kind int

const (
	KindFile Kind = iota
	KindDirectory
)

// Stat resolves path (with its optional :password suffix) to an Attr.
// An uncached path triggers a stat() attempt against disk; on success,
// the directory tree above the file is implicitly materialized (spec
// §4.8).
func (fs *FileSystem) Stat(rawPath string) (Attr, error) {
	path, pass := splitPassword(rawPath)

	fs.Mu.Lock()
	defer fs.Mu.Unlock()

	if isDir, ok := fs.tree.IsDir(path); ok && isDir {
		return Attr{Kind: KindDirectory, Nlink: 1}, nil
	}
	if f, ok := lookupWithPass(fs.tree, path, pass); ok {
		return attrFromFile(f), nil
	}

	dirPath, name := splitDirName(path)
	f := &pathcache.File{DirPath: dirPath, Name: name, Pass: pass}
	ok, err := fs.statFile(f, true)
	if err != nil {
		return Attr{}, err
	}
	if !ok {
		return Attr{}, stegerr.ErrNotFound
	}
	fs.tree.AttachFile(dirPath, f)
	return attrFromFile(f), nil
}

// lookupWithPass resolves a cached file only if it was cached under the
// same passphrase; a path cached under one passphrase must not answer
// for a lookup under another, since the cache only ever holds the one
// genuine (path, name) occupant and a mismatched passphrase is
// indistinguishable from "no such file" (spec §4.6, §7 ErrNotFound).
func lookupWithPass(tree *pathcache.Tree, path, pass string) (*pathcache.File, bool) {
	dirPath, name := splitDirName(path)
	f, ok := tree.LookupFile(dirPath, name)
	if !ok || f.Pass != pass {
		return nil, false
	}
	return f, true
}

func attrFromFile(f *pathcache.File) Attr {
	return Attr{
		Kind:      KindFile,
		Size:      f.Size,
		Mtime:     f.Mtime,
		Nlink:     1,
		InodeHint: f.InodeIndices[0],
	}
}

// Readdir enumerates the cached children of path (spec §6: disk
// contents are never scanned, there is no on-disk directory listing).
func (fs *FileSystem) Readdir(path string) ([]string, error) {
	fs.Mu.Lock()
	defer fs.Mu.Unlock()
	return fs.tree.Readdir(path)
}

// Mkdir inserts a cache-only directory node (spec §6).
func (fs *FileSystem) Mkdir(path string) error {
	fs.Mu.Lock()
	defer fs.Mu.Unlock()
	fs.tree.Mkdir(path)
	return nil
}

// Rmdir removes an empty cache-only directory node.
func (fs *FileSystem) Rmdir(path string) error {
	fs.Mu.Lock()
	defer fs.Mu.Unlock()
	return fs.tree.Remove(path)
}

// Handle is an open file, returned by Open.
type Handle struct {
	fs       *FileSystem
	file     *pathcache.File
	writable bool
}

// Open resolves rawPath to a Handle, creating a fresh zero-length cache
// entry if the file does not already exist on disk (spec §4.6
// "create(path, writable): adds a cache node; no disk I/O").
func (fs *FileSystem) Open(rawPath string, writable bool) (*Handle, error) {
	path, pass := splitPassword(rawPath)
	dirPath, name := splitDirName(path)

	fs.Mu.Lock()
	defer fs.Mu.Unlock()

	f, ok := lookupWithPass(fs.tree, path, pass)
	if !ok {
		f = &pathcache.File{DirPath: dirPath, Name: name, Pass: pass, Writable: writable, Mtime: fs.clk.Now().Unix()}
		if _, err := fs.statFile(f, true); err == nil {
			// whether or not stat succeeded, attach: success populates
			// the file's real state; failure leaves a fresh zero-length
			// file (spec §4.6 create()).
		}
		fs.tree.AttachFile(dirPath, f)
	}
	f.Writable = f.Writable || writable

	return &Handle{fs: fs, file: f, writable: writable}, nil
}

// Read returns the file's bytes, serving from the cached payload buffer
// when present (spec §4.8 "the cache is also the mechanism by which
// reads of a freshly-written file return the exact bytes written").
func (h *Handle) Read() ([]byte, error) {
	h.fs.Mu.Lock()
	defer h.fs.Mu.Unlock()

	if h.file.Payload != nil {
		return h.file.Payload, nil
	}
	if h.file.Size == 0 && len(h.file.InodeIndices) == 0 {
		return nil, nil
	}
	return h.fs.readFile(h.file)
}

// Write replaces the file's contents (spec §4.6 write(file, data,
// size)). Writes on a read-only handle are rejected with ErrDenied.
func (h *Handle) Write(data []byte) error {
	if !h.writable {
		return stegerr.ErrDenied
	}
	h.fs.Mu.Lock()
	defer h.fs.Mu.Unlock()
	if err := h.fs.willFit(int64(len(data))); err != nil {
		return err
	}
	return h.fs.writeFile(h.file, data)
}

// Release closes the handle. The core performs no buffering beyond the
// path cache, so Release is a no-op beyond bookkeeping.
func (h *Handle) Release() error {
	return nil
}

// Truncate resizes the file at path. Growing pads with CSPRNG output
// (the gap is indistinguishable free-space-flavored noise until
// overwritten, consistent with spec I5); shrinking drops the tail.
func (fs *FileSystem) Truncate(rawPath string, size int64) error {
	path, pass := splitPassword(rawPath)
	dirPath, name := splitDirName(path)

	fs.Mu.Lock()
	defer fs.Mu.Unlock()

	f, ok := lookupWithPass(fs.tree, path, pass)
	if !ok {
		f = &pathcache.File{DirPath: dirPath, Name: name, Pass: pass}
		found, err := fs.statFile(f, true)
		if err != nil {
			return err
		}
		if !found {
			return stegerr.ErrNotFound
		}
		fs.tree.AttachFile(dirPath, f)
	}

	var cur []byte
	if f.Payload != nil {
		cur = f.Payload
	} else if f.Size > 0 {
		data, err := fs.readFile(f)
		if err != nil {
			return err
		}
		cur = data
	}

	if err := fs.willFit(size); err != nil {
		return err
	}

	out := make([]byte, size)
	n := copy(out, cur)
	if int64(n) < size {
		if err := fillRandom(out[n:]); err != nil {
			return err
		}
	}
	return fs.writeFile(f, out)
}

// Unlink deletes the file at path (spec §6).
func (fs *FileSystem) Unlink(rawPath string) error {
	path, pass := splitPassword(rawPath)
	dirPath, name := splitDirName(path)

	fs.Mu.Lock()
	defer fs.Mu.Unlock()

	f, ok := lookupWithPass(fs.tree, path, pass)
	if !ok {
		f = &pathcache.File{DirPath: dirPath, Name: name, Pass: pass}
		if ok, err := fs.statFile(f, false); err != nil || !ok {
			if err != nil {
				return err
			}
			return stegerr.ErrNotFound
		}
		fs.tree.AttachFile(dirPath, f)
	}
	if err := fs.deleteFile(f); err != nil {
		return err
	}
	return fs.tree.Remove(joinPath(dirPath, name))
}
