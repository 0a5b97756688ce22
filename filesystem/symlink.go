package filesystem

import "github.com/brettbedarf/ramfs/vfs"

// TargetFunc produces a symlink target string. Dynamic links invoke it on
// every read; results are never cached, so a function returning different
// strings yields a target that changes between reads.
type TargetFunc func() string

// SymlinkNode is a symbolic link leaf. Its target is either a string fixed
// at creation or the output of a TargetFunc. The generator cannot change
// after creation.
type SymlinkNode struct {
	vfs.LeafDefaults

	target   string
	generate TargetFunc // nil for fixed targets
}

var _ vfs.Node = (*SymlinkNode)(nil)

// NewSymlinkNode returns a link with a fixed target.
func NewSymlinkNode(target string) *SymlinkNode {
	return &SymlinkNode{target: target}
}

// NewDynamicSymlinkNode returns a link whose target fn computes per read.
func NewDynamicSymlinkNode(fn TargetFunc) *SymlinkNode {
	return &SymlinkNode{generate: fn}
}

// Target returns the link's current target.
func (s *SymlinkNode) Target() string {
	if s.generate != nil {
		return s.generate()
	}
	return s.target
}

// Attr implements vfs.Node. Size is the target's byte length at the time
// of the query, so it may differ between queries for dynamic links.
func (s *SymlinkNode) Attr() (vfs.NodeAttr, error) {
	return vfs.NewSymlinkAttr(uint64(len(s.Target()))), nil
}

// IsSymlink implements vfs.Node.
func (s *SymlinkNode) IsSymlink() bool { return true }

// Readlink implements vfs.Node. path is ignored; a link holds no
// children. At most len(buf) bytes of the target are copied, truncating
// silently.
func (s *SymlinkNode) Readlink(path string, buf []byte) (int, error) {
	return copy(buf, s.Target()), nil
}
