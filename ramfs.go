// Package ramfs implements an in-memory hierarchical filesystem: a tree of
// directory, file, and symbolic-link nodes behind the vfs node contract,
// mountable beneath an outer namespace. Contents live on the heap and
// vanish with the process; there is no backing storage.
package ramfs

import (
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/brettbedarf/ramfs/filesystem"
	"github.com/brettbedarf/ramfs/internal/util"
	"github.com/brettbedarf/ramfs/vfs"
)

// RamFs owns the root directory of one filesystem instance plus the mount
// glue that fixes the root's parent when the instance is attached beneath
// an outer namespace.
type RamFs struct {
	id   uuid.UUID
	root *filesystem.DirNode

	once   sync.Once
	parent vfs.Node // fixed by the first effective Mount
}

var _ vfs.FS = (*RamFs)(nil)

// New returns an empty filesystem whose root has no parent until mounted.
func New() *RamFs {
	return &RamFs{
		id:   uuid.New(),
		root: filesystem.NewDirNode(nil),
	}
}

// ID returns the instance identifier assigned at creation.
func (fs *RamFs) ID() uuid.UUID { return fs.id }

// RootDir returns the root as a concrete directory node.
func (fs *RamFs) RootDir() *filesystem.DirNode { return fs.root }

// Root implements vfs.FS.
func (fs *RamFs) Root() vfs.Node { return fs.root }

// Mount implements vfs.FS. The first call against a mount point that has a
// parent fixes that parent permanently so ".." from the root escapes
// upward; repeat calls re-apply the stored association regardless of the
// mount point passed. A parentless mount point clears the root's parent
// instead.
func (fs *RamFs) Mount(mountPoint vfs.Node) error {
	if mountPoint == nil {
		return vfs.ErrInvalidInput
	}
	if p := mountPoint.Parent(); p != nil {
		fs.once.Do(func() { fs.parent = p })
		fs.root.SetParent(fs.parent)
	} else {
		fs.root.SetParent(nil)
	}
	return nil
}

// Unmount implements vfs.FS, detaching the root from the outer namespace.
// The stored association survives and a later Mount re-applies it.
func (fs *RamFs) Unmount() error {
	fs.root.SetParent(nil)
	return nil
}

// AddDynamicSymlink inserts a symlink at path whose target fn produces on
// every read. Intermediate directories must already exist; the resolved
// parent must be a directory of this filesystem.
func (fs *RamFs) AddDynamicSymlink(path string, fn filesystem.TargetFunc) error {
	if fn == nil {
		return vfs.ErrInvalidInput
	}
	dirPath, name := "", path
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		dirPath, name = path[:i], path[i+1:]
	}
	node, err := fs.root.Lookup(dirPath)
	if err != nil {
		return err
	}
	dir, ok := node.(*filesystem.DirNode)
	if !ok {
		return vfs.ErrNotADirectory
	}
	if err := dir.AddNode(name, filesystem.NewDynamicSymlinkNode(fn)); err != nil {
		return err
	}

	logger := util.GetLogger("RamFs.AddDynamicSymlink")
	logger.Debug().Str("path", path).Msg("dynamic symlink added")
	return nil
}

// MkdirAll creates any missing directories along path and returns the
// final one. Existing directories are tolerated; a non-directory segment
// fails NotADirectory.
func (fs *RamFs) MkdirAll(path string) (vfs.Node, error) {
	var node vfs.Node = fs.root
	for seg := range strings.SplitSeq(path, "/") {
		if seg == "" || seg == "." {
			continue
		}
		next, err := node.Lookup(seg)
		if errors.Is(err, vfs.ErrNotFound) {
			if err := node.Create(seg, vfs.TypeDir); err != nil && !errors.Is(err, vfs.ErrAlreadyExists) {
				return nil, err
			}
			next, err = node.Lookup(seg)
			if err != nil {
				return nil, err
			}
		} else if err != nil {
			return nil, err
		}
		attr, err := next.Attr()
		if err != nil {
			return nil, err
		}
		if !attr.IsDir() {
			return nil, vfs.ErrNotADirectory
		}
		node = next
	}
	return node, nil
}
