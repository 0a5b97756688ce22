package vfs

// NodeType is the kind of a tree entry. Values follow the POSIX d_type
// encoding (S_IFMT >> 12), so a type shifted left 12 bits lands on the
// matching stat mode bits.
type NodeType uint8

const (
	TypeFifo        NodeType = 0o1
	TypeCharDevice  NodeType = 0o2
	TypeDir         NodeType = 0o4
	TypeBlockDevice NodeType = 0o6
	TypeFile        NodeType = 0o10
	TypeSymlink     NodeType = 0o12
	TypeSocket      NodeType = 0o14
)

func (t NodeType) String() string {
	switch t {
	case TypeFifo:
		return "fifo"
	case TypeCharDevice:
		return "chardev"
	case TypeDir:
		return "dir"
	case TypeBlockDevice:
		return "blockdev"
	case TypeFile:
		return "file"
	case TypeSymlink:
		return "symlink"
	case TypeSocket:
		return "socket"
	default:
		return "unknown"
	}
}

// NodePerm holds rwx permission bits for owner, group, and other.
type NodePerm uint16

// Fixed default permission bits. Nodes report these; enforcement is the
// caller's concern.
const (
	DefaultDirPerm  NodePerm = 0o755
	DefaultFilePerm NodePerm = 0o644
)

// NodeAttr describes a node for attribute queries.
type NodeAttr struct {
	// Perm is the reported permission bits.
	Perm NodePerm
	// Type is the node kind.
	Type NodeType
	// Size is the total byte size: content length for files, target length
	// for symlinks.
	Size uint64
	// Blocks is the number of 512B blocks allocated.
	Blocks uint64
}

// NewAttr builds an attribute set field by field.
func NewAttr(perm NodePerm, ty NodeType, size, blocks uint64) NodeAttr {
	return NodeAttr{Perm: perm, Type: ty, Size: size, Blocks: blocks}
}

// NewDirAttr returns directory attributes with default permissions.
func NewDirAttr(size, blocks uint64) NodeAttr {
	return NewAttr(DefaultDirPerm, TypeDir, size, blocks)
}

// NewFileAttr returns regular-file attributes with default permissions.
func NewFileAttr(size, blocks uint64) NodeAttr {
	return NewAttr(DefaultFilePerm, TypeFile, size, blocks)
}

// NewSymlinkAttr returns symlink attributes; size is the target's byte
// length at query time.
func NewSymlinkAttr(size uint64) NodeAttr {
	return NewAttr(DefaultFilePerm, TypeSymlink, size, 0)
}

func (a NodeAttr) IsDir() bool     { return a.Type == TypeDir }
func (a NodeAttr) IsFile() bool    { return a.Type == TypeFile }
func (a NodeAttr) IsSymlink() bool { return a.Type == TypeSymlink }

// Mode folds type and permission bits into a stat-compatible mode word.
func (a NodeAttr) Mode() uint32 {
	return uint32(a.Type)<<12 | uint32(a.Perm)
}

// DirEntry is one (name, type) pair produced by directory listing.
type DirEntry struct {
	Name string
	Type NodeType
}
