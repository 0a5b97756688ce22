// Package server exposes a RamFs tree to the kernel over the raw FUSE wire
// protocol and manages the mount lifecycle.
package server

import (
	"errors"
	"os"
	"syscall"
	"time"

	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/brettbedarf/ramfs"
	"github.com/brettbedarf/ramfs/config"
	"github.com/brettbedarf/ramfs/internal/util"
	"github.com/brettbedarf/ramfs/vfs"
)

const (
	// blkSize is the block size reported in every stat reply.
	blkSize = 4096
	// linkBufSize bounds a symlink target returned to the kernel. Longer
	// targets are silently truncated.
	linkBufSize = 4096
	// readDirBatch is how many directory entries are pulled from a node
	// per page while filling a kernel readdir buffer.
	readDirBatch = 128
)

// FuseRaw implements the low-level FUSE wire protocol against a RamFs tree.
// It serves as protocol adapter between FUSE and the node contract.
// See https://www.man7.org/linux/man-pages/man4/fuse.4.html
type FuseRaw struct {
	fuse.RawFileSystem
	fsys     *ramfs.RamFs
	cfg      *config.Config
	registry *nodeRegistry
	owner    fuse.Owner
	birth    time.Time

	attrTimeout  time.Duration
	entryTimeout time.Duration
}

var _ fuse.RawFileSystem = (*FuseRaw)(nil)

func NewFuseRaw(fsys *ramfs.RamFs, cfg *config.Config) *FuseRaw {
	return &FuseRaw{
		RawFileSystem: fuse.NewDefaultRawFileSystem(),
		fsys:          fsys,
		cfg:           cfg,
		registry:      newNodeRegistry(fsys.Root()),
		owner: fuse.Owner{
			Uid: uint32(os.Getuid()),
			Gid: uint32(os.Getgid()),
		},
		birth:        time.Now(),
		attrTimeout:  time.Duration(cfg.AttrTimeout * float64(time.Second)),
		entryTimeout: time.Duration(cfg.EntryTimeout * float64(time.Second)),
	}
}

func (r *FuseRaw) String() string {
	return r.cfg.FsName
}

func (r *FuseRaw) Init(s *fuse.Server) {
	logger := util.GetLogger("Fuse.Init")
	logger.Debug().Str("fsid", r.fsys.ID().String()).Msg("FUSE initialized")
}

// fillAttr copies a node's attributes into a kernel attr struct. Nodes carry
// no timestamps or ownership, so every entry reports the mount's birth time
// and the serving process's uid/gid.
func (r *FuseRaw) fillAttr(id uint64, node vfs.Node, out *fuse.Attr) error {
	attr, err := node.Attr()
	if err != nil {
		return err
	}
	out.Ino = id
	out.Size = attr.Size
	out.Blocks = attr.Blocks
	out.Mode = attr.Mode()
	out.Nlink = 1
	out.Blksize = blkSize
	out.Owner = r.owner
	sec := uint64(r.birth.Unix())
	nsec := uint32(r.birth.Nanosecond())
	out.Atime, out.Mtime, out.Ctime = sec, sec, sec
	out.Atimensec, out.Mtimensec, out.Ctimensec = nsec, nsec, nsec
	return nil
}

func (r *FuseRaw) fillEntry(node vfs.Node, out *fuse.EntryOut) error {
	id := r.registry.ensureID(node)
	if err := r.fillAttr(id, node, &out.Attr); err != nil {
		return err
	}
	out.NodeId = id
	out.SetEntryTimeout(r.entryTimeout)
	out.SetAttrTimeout(r.attrTimeout)
	return nil
}

// Lookup resolves name inside the directory registered under header.NodeId
// and registers the child so later requests can address it by inode.
func (r *FuseRaw) Lookup(cancel <-chan struct{}, header *fuse.InHeader, name string, out *fuse.EntryOut) fuse.Status {
	logger := util.GetLogger("Fuse.Lookup")
	logger.Trace().Uint64("parent", header.NodeId).Str("name", name).Msg("Lookup called")

	dir := r.registry.get(header.NodeId)
	if dir == nil {
		return fuse.ENOENT
	}
	node, err := dir.Lookup(name)
	if err != nil {
		return errno(err)
	}
	return errno(r.fillEntry(node, out))
}

// Forget is called when the kernel discards an entry from its dentry cache.
// The node itself stays alive as long as its parent references it; only the
// inode mapping is released.
func (r *FuseRaw) Forget(nodeid, nlookup uint64) {
	r.registry.forget(nodeid)
}

func (r *FuseRaw) GetAttr(cancel <-chan struct{}, input *fuse.GetAttrIn, out *fuse.AttrOut) fuse.Status {
	node := r.registry.get(input.NodeId)
	if node == nil {
		return fuse.ENOENT
	}
	if err := r.fillAttr(input.NodeId, node, &out.Attr); err != nil {
		return errno(err)
	}
	out.SetTimeout(r.attrTimeout)
	return fuse.OK
}

// SetAttr honors size changes as truncation. Mode, ownership, and times are
// fixed by the node contract, so those requests succeed without effect and
// the reply reports the real state.
func (r *FuseRaw) SetAttr(cancel <-chan struct{}, input *fuse.SetAttrIn, out *fuse.AttrOut) fuse.Status {
	node := r.registry.get(input.NodeId)
	if node == nil {
		return fuse.ENOENT
	}
	if input.Valid&fuse.FATTR_SIZE != 0 {
		if err := node.Truncate(input.Size); err != nil {
			return errno(err)
		}
	}
	if err := r.fillAttr(input.NodeId, node, &out.Attr); err != nil {
		return errno(err)
	}
	out.SetTimeout(r.attrTimeout)
	return fuse.OK
}

func (r *FuseRaw) Mkdir(cancel <-chan struct{}, input *fuse.MkdirIn, name string, out *fuse.EntryOut) fuse.Status {
	logger := util.GetLogger("Fuse.Mkdir")
	logger.Debug().Uint64("parent", input.NodeId).Str("name", name).Msg("Mkdir called")

	dir := r.registry.get(input.NodeId)
	if dir == nil {
		return fuse.ENOENT
	}
	if err := dir.Create(name, vfs.TypeDir); err != nil {
		return errno(err)
	}
	node, err := dir.Lookup(name)
	if err != nil {
		return errno(err)
	}
	return errno(r.fillEntry(node, out))
}

// Mknod forwards the kernel's requested file type to the node contract,
// which accepts regular files and directories and rejects device, fifo, and
// socket nodes as unsupported.
func (r *FuseRaw) Mknod(cancel <-chan struct{}, input *fuse.MknodIn, name string, out *fuse.EntryOut) fuse.Status {
	logger := util.GetLogger("Fuse.Mknod")
	logger.Debug().Uint64("parent", input.NodeId).Str("name", name).Uint32("mode", input.Mode).Msg("Mknod called")

	dir := r.registry.get(input.NodeId)
	if dir == nil {
		return fuse.ENOENT
	}
	ty := vfs.NodeType((input.Mode & syscall.S_IFMT) >> 12)
	if ty == 0 {
		ty = vfs.TypeFile
	}
	if err := dir.Create(name, ty); err != nil {
		return errno(err)
	}
	node, err := dir.Lookup(name)
	if err != nil {
		return errno(err)
	}
	return errno(r.fillEntry(node, out))
}

func (r *FuseRaw) Create(cancel <-chan struct{}, input *fuse.CreateIn, name string, out *fuse.CreateOut) fuse.Status {
	logger := util.GetLogger("Fuse.Create")
	logger.Debug().Uint64("parent", input.NodeId).Str("name", name).Msg("Create called")

	dir := r.registry.get(input.NodeId)
	if dir == nil {
		return fuse.ENOENT
	}
	err := dir.Create(name, vfs.TypeFile)
	if errors.Is(err, vfs.ErrAlreadyExists) && input.Flags&uint32(syscall.O_EXCL) == 0 {
		err = nil
	}
	if err != nil {
		return errno(err)
	}
	node, err := dir.Lookup(name)
	if err != nil {
		return errno(err)
	}
	if input.Flags&uint32(syscall.O_TRUNC) != 0 {
		if err := node.Truncate(0); err != nil {
			return errno(err)
		}
	}
	if err := r.fillEntry(node, &out.EntryOut); err != nil {
		return errno(err)
	}
	out.OpenFlags = fuse.FOPEN_KEEP_CACHE
	return fuse.OK
}

// Open is stateless. No handle is allocated; reads and writes address the
// node through its inode.
func (r *FuseRaw) Open(cancel <-chan struct{}, input *fuse.OpenIn, out *fuse.OpenOut) fuse.Status {
	node := r.registry.get(input.NodeId)
	if node == nil {
		return fuse.ENOENT
	}
	attr, err := node.Attr()
	if err != nil {
		return errno(err)
	}
	if attr.IsDir() {
		return fuse.EISDIR
	}
	if input.Flags&uint32(syscall.O_TRUNC) != 0 {
		if err := node.Truncate(0); err != nil {
			return errno(err)
		}
	}
	out.OpenFlags = fuse.FOPEN_KEEP_CACHE
	return fuse.OK
}

func (r *FuseRaw) Read(cancel <-chan struct{}, input *fuse.ReadIn, buf []byte) (fuse.ReadResult, fuse.Status) {
	logger := util.GetLogger("Fuse.Read")
	logger.Trace().Uint64("node", input.NodeId).Uint64("offset", input.Offset).Uint32("size", input.Size).Msg("Read called")

	node := r.registry.get(input.NodeId)
	if node == nil {
		return nil, fuse.ENOENT
	}
	n, err := node.ReadAt(buf, int64(input.Offset))
	if err != nil {
		return nil, errno(err)
	}
	return fuse.ReadResultData(buf[:n]), fuse.OK
}

func (r *FuseRaw) Write(cancel <-chan struct{}, input *fuse.WriteIn, data []byte) (uint32, fuse.Status) {
	logger := util.GetLogger("Fuse.Write")
	logger.Trace().Uint64("node", input.NodeId).Uint64("offset", input.Offset).Int("len", len(data)).Msg("Write called")

	node := r.registry.get(input.NodeId)
	if node == nil {
		return 0, fuse.ENOENT
	}
	n, err := node.WriteAt(data, int64(input.Offset))
	if err != nil {
		return 0, errno(err)
	}
	return uint32(n), fuse.OK
}

func (r *FuseRaw) Unlink(cancel <-chan struct{}, header *fuse.InHeader, name string) fuse.Status {
	logger := util.GetLogger("Fuse.Unlink")
	logger.Debug().Uint64("parent", header.NodeId).Str("name", name).Msg("Unlink called")

	dir := r.registry.get(header.NodeId)
	if dir == nil {
		return fuse.ENOENT
	}
	node, err := dir.Lookup(name)
	if err != nil {
		return errno(err)
	}
	attr, err := node.Attr()
	if err != nil {
		return errno(err)
	}
	if attr.IsDir() {
		return fuse.EISDIR
	}
	return errno(dir.Remove(name))
}

func (r *FuseRaw) Rmdir(cancel <-chan struct{}, header *fuse.InHeader, name string) fuse.Status {
	logger := util.GetLogger("Fuse.Rmdir")
	logger.Debug().Uint64("parent", header.NodeId).Str("name", name).Msg("Rmdir called")

	dir := r.registry.get(header.NodeId)
	if dir == nil {
		return fuse.ENOENT
	}
	node, err := dir.Lookup(name)
	if err != nil {
		return errno(err)
	}
	attr, err := node.Attr()
	if err != nil {
		return errno(err)
	}
	if !attr.IsDir() {
		return fuse.ENOTDIR
	}
	return errno(dir.Remove(name))
}

func (r *FuseRaw) Symlink(cancel <-chan struct{}, header *fuse.InHeader, pointedTo string, linkName string, out *fuse.EntryOut) fuse.Status {
	logger := util.GetLogger("Fuse.Symlink")
	logger.Debug().Uint64("parent", header.NodeId).Str("name", linkName).Str("target", pointedTo).Msg("Symlink called")

	dir := r.registry.get(header.NodeId)
	if dir == nil {
		return fuse.ENOENT
	}
	if err := dir.Symlink(pointedTo, linkName); err != nil {
		return errno(err)
	}
	node, err := dir.Lookup(linkName)
	if err != nil {
		return errno(err)
	}
	return errno(r.fillEntry(node, out))
}

func (r *FuseRaw) Readlink(cancel <-chan struct{}, header *fuse.InHeader) ([]byte, fuse.Status) {
	node := r.registry.get(header.NodeId)
	if node == nil {
		return nil, fuse.ENOENT
	}
	if !node.IsSymlink() {
		return nil, fuse.EINVAL
	}
	buf := make([]byte, linkBufSize)
	n, err := node.Readlink("", buf)
	if err != nil {
		return nil, errno(err)
	}
	return buf[:n], fuse.OK
}

func (r *FuseRaw) OpenDir(cancel <-chan struct{}, input *fuse.OpenIn, out *fuse.OpenOut) fuse.Status {
	node := r.registry.get(input.NodeId)
	if node == nil {
		return fuse.ENOENT
	}
	attr, err := node.Attr()
	if err != nil {
		return errno(err)
	}
	if !attr.IsDir() {
		return fuse.ENOTDIR
	}
	return fuse.OK
}

// ReadDir pages entries out of the node, starting at the kernel's offset.
// The "." and ".." entries come from the node contract itself. Inode numbers
// are left unset and the kernel substitutes its placeholder; entries gain a
// real inode on lookup.
func (r *FuseRaw) ReadDir(cancel <-chan struct{}, input *fuse.ReadIn, out *fuse.DirEntryList) fuse.Status {
	logger := util.GetLogger("Fuse.ReadDir")
	logger.Trace().Uint64("node", input.NodeId).Uint64("offset", input.Offset).Msg("ReadDir called")

	dir := r.registry.get(input.NodeId)
	if dir == nil {
		return fuse.ENOENT
	}
	offset := int(input.Offset)
	entries := make([]vfs.DirEntry, readDirBatch)
	for {
		n, err := dir.ReadDir(offset, entries)
		if err != nil {
			return errno(err)
		}
		if n == 0 {
			return fuse.OK
		}
		for _, e := range entries[:n] {
			ok := out.AddDirEntry(fuse.DirEntry{
				Name: e.Name,
				Mode: uint32(e.Type) << 12,
			})
			if !ok {
				// Buffer full; the kernel comes back with a new offset.
				return fuse.OK
			}
			offset++
		}
	}
}

// ReadDirPlus is ReadDir with a lookup folded into each entry. A child
// removed between listing and lookup leaves its entry zeroed, which the
// kernel treats as "do a real Lookup".
func (r *FuseRaw) ReadDirPlus(cancel <-chan struct{}, input *fuse.ReadIn, out *fuse.DirEntryList) fuse.Status {
	dir := r.registry.get(input.NodeId)
	if dir == nil {
		return fuse.ENOENT
	}
	offset := int(input.Offset)
	entries := make([]vfs.DirEntry, readDirBatch)
	for {
		n, err := dir.ReadDir(offset, entries)
		if err != nil {
			return errno(err)
		}
		if n == 0 {
			return fuse.OK
		}
		for _, e := range entries[:n] {
			entryOut := out.AddDirLookupEntry(fuse.DirEntry{
				Name: e.Name,
				Mode: uint32(e.Type) << 12,
			})
			if entryOut == nil {
				return fuse.OK
			}
			*entryOut = fuse.EntryOut{}
			if e.Name != "." && e.Name != ".." {
				if node, err := dir.Lookup(e.Name); err == nil {
					if err := r.fillEntry(node, entryOut); err != nil {
						*entryOut = fuse.EntryOut{}
					}
				}
			}
			offset++
		}
	}
}

// Access reports OK unconditionally. Permission bits are fixed by node type,
// so there is nothing to enforce beyond what the kernel already checks.
func (r *FuseRaw) Access(cancel <-chan struct{}, input *fuse.AccessIn) fuse.Status {
	return fuse.OK
}

// StatFs reports no fixed capacity. The tree lives in process memory, so
// only the live node count is meaningful.
func (r *FuseRaw) StatFs(cancel <-chan struct{}, input *fuse.InHeader, out *fuse.StatfsOut) fuse.Status {
	out.NameLen = 255
	out.Bsize = blkSize
	out.Frsize = blkSize
	out.Files = uint64(r.registry.size())
	return fuse.OK
}

func (r *FuseRaw) Flush(cancel <-chan struct{}, input *fuse.FlushIn) fuse.Status {
	return fuse.OK
}

func (r *FuseRaw) Fsync(cancel <-chan struct{}, input *fuse.FsyncIn) fuse.Status {
	return fuse.OK
}

func (r *FuseRaw) FsyncDir(cancel <-chan struct{}, input *fuse.FsyncIn) fuse.Status {
	return fuse.OK
}
