// Package pathcache implements the in-memory directory tree of spec
// §4.8: a client-side fiction mirroring the path hierarchy, since
// nothing on disk carries directory existence. Nodes own their
// children; a node carries a *File attachment only when it represents a
// file rather than a directory.
package pathcache

import (
	"fmt"
	"strings"

	"github.com/stegfs-go/stegfs/internal/stegerr"
)

// File is the in-memory handle spec §4.8 calls stegfs_file: attributes
// plus, once populated, the cached payload buffer that lets a read
// immediately following a write return the exact bytes written without
// re-deriving keys or touching disk.
type File struct {
	DirPath string
	Name    string
	Pass    string

	Size    int64
	Mtime   int64 // unix seconds, spec §3 "mtime"
	Writable bool

	// InodeIndices holds one raw (unreduced) inode-block index per copy.
	InodeIndices []uint64
	// Chains holds one raw data-block-index chain per copy.
	Chains [][]uint64

	// HeadPayload is the payload prefix stored inline in the inode block
	// (spec §3 "Inode-block data layout"), and MAC is the stored tag
	// authenticating copy 0's data-block chain (spec I4). Both are
	// populated by stat and consumed by read.
	HeadPayload []byte
	MAC         []byte

	// Payload is the cached plaintext buffer, nil until a read or write
	// populates it.
	Payload []byte
}

// node is one entry in the tree: a directory if File == nil, a file
// otherwise. order records child names in first-seen order for stable
// Readdir output; a plain slice is all a directory's handful of
// children need, no queue abstraction required.
type node struct {
	name     string
	parent   *node
	children map[string]*node
	order    []string
	file     *File
}

func newNode(name string, parent *node) *node {
	return &node{
		name:     name,
		parent:   parent,
		children: make(map[string]*node),
	}
}

// Tree is the root of the path cache; one Tree per mounted filesystem.
type Tree struct {
	root *node
}

// NewTree returns an empty Tree (a lone, unattached root directory).
func NewTree() *Tree {
	return &Tree{root: newNode("", nil)}
}

func segments(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// EnsureDir walks path, creating any missing intermediate directory
// nodes, and returns the (possibly freshly created) node for path. It
// never creates a node with a File attachment.
func (t *Tree) EnsureDir(path string) *node {
	cur := t.root
	for _, seg := range segments(path) {
		child, ok := cur.children[seg]
		if !ok {
			child = newNode(seg, cur)
			cur.children[seg] = child
			cur.order = append(cur.order, seg)
		}
		cur = child
	}
	return cur
}

// Lookup returns the node for path, if cached.
func (t *Tree) Lookup(path string) (*node, bool) {
	cur := t.root
	for _, seg := range segments(path) {
		child, ok := cur.children[seg]
		if !ok {
			return nil, false
		}
		cur = child
	}
	return cur, true
}

// AttachFile ensures dirPath exists as a directory node and attaches f
// as a child file node named f.Name, materializing the directory
// hierarchy implicitly (spec §4.8 "on success the directory tree above
// the file is materialized implicitly by cache insertion").
func (t *Tree) AttachFile(dirPath string, f *File) {
	dir := t.EnsureDir(dirPath)
	child, ok := dir.children[f.Name]
	if !ok {
		child = newNode(f.Name, dir)
		dir.children[f.Name] = child
		dir.order = append(dir.order, f.Name)
	}
	child.file = f
}

// Lookup File returns the File attachment at dirPath/name, if cached.
func (t *Tree) LookupFile(dirPath, name string) (*File, bool) {
	n, ok := t.Lookup(joinPath(dirPath, name))
	if !ok || n.file == nil {
		return nil, false
	}
	return n.file, true
}

func joinPath(dirPath, name string) string {
	if dirPath == "/" || dirPath == "" {
		return "/" + name
	}
	return strings.TrimSuffix(dirPath, "/") + "/" + name
}

// Readdir returns the child names of path in first-seen order, or
// ErrNotFound if path is not cached.
func (t *Tree) Readdir(path string) ([]string, error) {
	n, ok := t.Lookup(path)
	if !ok {
		return nil, stegerr.ErrNotFound
	}
	if n.file != nil {
		return nil, stegerr.ErrNotDir
	}

	names := make([]string, 0, len(n.children))
	seen := make(map[string]bool, len(n.children))
	for _, name := range n.order {
		if _, present := n.children[name]; present && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names, nil
}

// Remove deletes the node at path from its parent. Removing a directory
// with children is rejected with ErrNotEmpty (spec §6 "rmdir rejects
// non-empty"); removing a file node is always allowed.
func (t *Tree) Remove(path string) error {
	n, ok := t.Lookup(path)
	if !ok {
		return stegerr.ErrNotFound
	}
	if n.parent == nil {
		return fmt.Errorf("pathcache: cannot remove root")
	}
	if n.file == nil && len(n.children) > 0 {
		return stegerr.ErrNotEmpty
	}
	delete(n.parent.children, n.name)
	return nil
}

// Mkdir inserts an empty directory node at path without touching disk
// (spec §4.8 "mkdir /a"); it disappears on unmount unless a file under
// it is later written.
func (t *Tree) Mkdir(path string) *node {
	return t.EnsureDir(path)
}

// IsDir reports whether the cached node at path is a directory.
func (t *Tree) IsDir(path string) (bool, bool) {
	n, ok := t.Lookup(path)
	if !ok {
		return false, false
	}
	return n.file == nil, true
}
