package server

import (
	"sync/atomic"

	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/puzpuzpuz/xsync/v4"

	"github.com/brettbedarf/ramfs/vfs"
)

// nodeRegistry assigns stable inode numbers to nodes for the lifetime of the
// mount. Nodes carry no identity of their own, so the kernel-visible inode is
// minted here on first lookup and kept until the kernel forgets the node.
type nodeRegistry struct {
	lastID atomic.Uint64
	byID   *xsync.Map[uint64, vfs.Node]
	byNode *xsync.Map[vfs.Node, uint64]
}

func newNodeRegistry(root vfs.Node) *nodeRegistry {
	r := &nodeRegistry{
		byID:   xsync.NewMap[uint64, vfs.Node](),
		byNode: xsync.NewMap[vfs.Node, uint64](),
	}
	r.lastID.Store(fuse.FUSE_ROOT_ID)
	r.byID.Store(fuse.FUSE_ROOT_ID, root)
	r.byNode.Store(root, fuse.FUSE_ROOT_ID)
	return r
}

// get returns the node registered under id, or nil if the kernel already
// forgot it.
func (r *nodeRegistry) get(id uint64) vfs.Node {
	node, _ := r.byID.Load(id)
	return node
}

// ensureID returns the inode number for node, minting one on first sight.
// Concurrent callers for the same node converge on a single id; a minted id
// that loses the race is abandoned.
func (r *nodeRegistry) ensureID(node vfs.Node) uint64 {
	if id, ok := r.byNode.Load(node); ok {
		return id
	}
	id := r.lastID.Add(1)
	actual, loaded := r.byNode.LoadOrStore(node, id)
	if loaded {
		return actual
	}
	r.byID.Store(id, node)
	return id
}

// forget drops the id mapping once the kernel's lookup count hits zero. The
// root id is pinned for the lifetime of the mount.
func (r *nodeRegistry) forget(id uint64) {
	if id == fuse.FUSE_ROOT_ID {
		return
	}
	node, ok := r.byID.LoadAndDelete(id)
	if !ok {
		return
	}
	r.byNode.Delete(node)
}

// size reports how many nodes the kernel currently knows about.
func (r *nodeRegistry) size() int {
	return r.byID.Size()
}
