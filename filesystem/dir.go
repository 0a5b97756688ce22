// Package filesystem implements the node kinds of the in-memory tree:
// directories, regular files, and symbolic links. Directories own their
// children; every node satisfies the vfs contract.
package filesystem

import (
	"maps"
	"slices"
	"sync"

	"github.com/brettbedarf/ramfs/internal/util"
	"github.com/brettbedarf/ramfs/vfs"
)

// DirSize is the fixed size every directory reports in its attributes.
const DirSize = 4096

// DirNode is a directory. It exclusively owns its children and keeps a
// non-owning reference to its parent; the parent is nil for a root that
// has not been mounted. Each directory carries its own lock, and no
// operation holds two directory locks at once except removal's emptiness
// check, which locks strictly downward.
type DirNode struct {
	vfs.DirDefaults

	pmu    sync.RWMutex // guards parent
	parent vfs.Node

	mu       sync.RWMutex // guards children
	children map[string]vfs.Node
}

var _ vfs.Node = (*DirNode)(nil)

// NewDirNode returns an empty directory under parent. parent may be nil.
func NewDirNode(parent vfs.Node) *DirNode {
	return &DirNode{
		parent:   parent,
		children: make(map[string]vfs.Node),
	}
}

// SetParent rebinds the parent reference. Intended for mount glue; a
// directory created under a parent keeps it for life.
func (d *DirNode) SetParent(parent vfs.Node) {
	d.pmu.Lock()
	d.parent = parent
	d.pmu.Unlock()
}

// Attr implements vfs.Node.
func (d *DirNode) Attr() (vfs.NodeAttr, error) {
	return vfs.NewDirAttr(DirSize, 0), nil
}

// Parent implements vfs.Node.
func (d *DirNode) Parent() vfs.Node {
	d.pmu.RLock()
	defer d.pmu.RUnlock()
	return d.parent
}

// Entries returns the current child names in ascending order.
func (d *DirNode) Entries() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Sorted(maps.Keys(d.children))
}

// Exists reports whether name is a current child.
func (d *DirNode) Exists(name string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.children[name]
	return ok
}

// AddNode inserts an already-built node under name. The check and insert
// run under one writer critical section, so concurrent adds of the same
// name serialize and exactly one wins.
func (d *DirNode) AddNode(name string, node vfs.Node) error {
	if !validName(name) {
		return vfs.ErrInvalidInput
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.children[name]; ok {
		return vfs.ErrAlreadyExists
	}
	d.children[name] = node
	return nil
}

// CreateNode allocates a fresh empty node of the requested type under
// name. Symlinks carry a target and must go through Symlink instead.
func (d *DirNode) CreateNode(name string, ty vfs.NodeType) error {
	if !validName(name) {
		return vfs.ErrInvalidInput
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.children[name]; ok {
		logger := util.GetLogger("DirNode.CreateNode")
		logger.Error().Str("name", name).Msg("already exists")
		return vfs.ErrAlreadyExists
	}
	switch ty {
	case vfs.TypeFile:
		d.children[name] = NewFileNode()
	case vfs.TypeDir:
		d.children[name] = NewDirNode(d)
	case vfs.TypeSymlink:
		return vfs.ErrInvalidInput
	default:
		return vfs.ErrUnsupported
	}
	return nil
}

// CreateSymlink inserts a fixed-target symlink under name. Empty targets
// are rejected.
func (d *DirNode) CreateSymlink(name, target string) error {
	if target == "" || !validName(name) {
		return vfs.ErrInvalidInput
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.children[name]; ok {
		return vfs.ErrAlreadyExists
	}
	d.children[name] = NewSymlinkNode(target)
	return nil
}

// RemoveNode unlinks name. A directory child must be empty; holders of
// references to the removed node keep it alive, but it is no longer
// reachable from the tree.
func (d *DirNode) RemoveNode(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	node, ok := d.children[name]
	if !ok {
		return vfs.ErrNotFound
	}
	if child, ok := node.(*DirNode); ok && !child.empty() {
		return vfs.ErrDirectoryNotEmpty
	}
	delete(d.children, name)
	return nil
}

func (d *DirNode) empty() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.children) == 0
}

// resolve maps a single segment to a node: "" and "." are the directory
// itself, ".." its parent when reachable.
func (d *DirNode) resolve(name string) (vfs.Node, error) {
	switch name {
	case "", ".":
		return d, nil
	case "..":
		if p := d.Parent(); p != nil {
			return p, nil
		}
		return nil, vfs.ErrNotFound
	default:
		d.mu.RLock()
		defer d.mu.RUnlock()
		if node, ok := d.children[name]; ok {
			return node, nil
		}
		return nil, vfs.ErrNotFound
	}
}

// Lookup implements vfs.Node. The directory's lock is released before
// descending into the resolved child.
func (d *DirNode) Lookup(path string) (vfs.Node, error) {
	name, rest, more := splitPath(path)
	node, err := d.resolve(name)
	if err != nil {
		return nil, err
	}
	if more {
		return node.Lookup(rest)
	}
	return node, nil
}

// ReadDir implements vfs.Node. start indexes the conceptual sequence
// [".", "..", children in name order]. Each call snapshots the directory
// once; entries may shift, repeat, or drop across paginated calls that
// race with mutation.
func (d *DirNode) ReadDir(start int, dest []vfs.DirEntry) (int, error) {
	if start < 0 {
		return 0, vfs.ErrInvalidInput
	}
	if len(dest) == 0 {
		return 0, nil
	}

	d.mu.RLock()
	names := slices.Sorted(maps.Keys(d.children))
	types := make([]vfs.NodeType, len(names))
	for i, name := range names {
		attr, err := d.children[name].Attr()
		if err != nil {
			d.mu.RUnlock()
			return 0, err
		}
		types[i] = attr.Type
	}
	d.mu.RUnlock()

	n := 0
	for idx := start; n < len(dest); idx++ {
		switch {
		case idx == 0:
			dest[n] = vfs.DirEntry{Name: ".", Type: vfs.TypeDir}
		case idx == 1:
			dest[n] = vfs.DirEntry{Name: "..", Type: vfs.TypeDir}
		case idx-2 < len(names):
			dest[n] = vfs.DirEntry{Name: names[idx-2], Type: types[idx-2]}
		default:
			return n, nil
		}
		n++
	}
	return n, nil
}

// Create implements vfs.Node. With a remainder the operation delegates to
// the resolved segment; otherwise the final segment is created here.
// Creating "", ".", or ".." succeeds as a no-op.
func (d *DirNode) Create(path string, ty vfs.NodeType) error {
	logger := util.GetLogger("DirNode.Create")
	logger.Debug().Str("path", path).Str("type", ty.String()).Msg("create")

	name, rest, more := splitPath(path)
	if more {
		node, err := d.resolve(name)
		if err != nil {
			return err
		}
		return node.Create(rest, ty)
	}
	switch name {
	case "", ".", "..":
		return nil
	}
	return d.CreateNode(name, ty)
}

// Remove implements vfs.Node. "", ".", and ".." cannot be unlinked.
func (d *DirNode) Remove(path string) error {
	logger := util.GetLogger("DirNode.Remove")
	logger.Debug().Str("path", path).Msg("remove")

	name, rest, more := splitPath(path)
	if more {
		node, err := d.resolve(name)
		if err != nil {
			return err
		}
		return node.Remove(rest)
	}
	switch name {
	case "", ".", "..":
		return vfs.ErrInvalidInput
	}
	return d.RemoveNode(name)
}

// Symlink implements vfs.Node. target must be non-empty; "", ".", and
// ".." cannot name a link.
func (d *DirNode) Symlink(target, path string) error {
	if target == "" {
		return vfs.ErrInvalidInput
	}
	logger := util.GetLogger("DirNode.Symlink")
	logger.Debug().Str("path", path).Str("target", target).Msg("symlink")

	name, rest, more := splitPath(path)
	if more {
		node, err := d.resolve(name)
		if err != nil {
			return err
		}
		return node.Symlink(target, rest)
	}
	switch name {
	case "", ".", "..":
		return vfs.ErrInvalidInput
	}
	return d.CreateSymlink(name, target)
}

// Readlink implements vfs.Node. The final segment's node answers with its
// own readlink; directories and files report InvalidInput.
func (d *DirNode) Readlink(path string, buf []byte) (int, error) {
	name, rest, more := splitPath(path)
	if more {
		node, err := d.resolve(name)
		if err != nil {
			return 0, err
		}
		return node.Readlink(rest, buf)
	}
	switch name {
	case "", ".", "..":
		return 0, vfs.ErrInvalidInput
	}
	node, err := d.resolve(name)
	if err != nil {
		return 0, err
	}
	return node.Readlink("", buf)
}
