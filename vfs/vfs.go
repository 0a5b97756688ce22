// Package vfs defines the node-operation contract for the in-memory
// filesystem: the polymorphic node interface, attribute and directory-entry
// value objects, the shared error vocabulary, and embeddable default
// behavior for node kinds that do not support directory-only or file-only
// operations.
package vfs

// Node is one entry in a filesystem tree. Path-taking operations resolve
// relative to the receiver and recurse into children; leaf kinds reject
// them through LeafDefaults. Implementations must be safe for concurrent
// use.
type Node interface {
	// Attr reports the node's current attributes.
	Attr() (NodeAttr, error)
	// Parent returns the enclosing node, or nil when none is reachable.
	Parent() Node
	// IsSymlink reports whether the node is a symbolic link.
	IsSymlink() bool

	// Lookup resolves path relative to this node and returns the node it
	// names. "" and "." name the receiver, ".." its parent.
	Lookup(path string) (Node, error)
	// Create makes an empty node of the given type at path. Creating "",
	// ".", or ".." succeeds as a no-op: those entries always exist.
	Create(path string, ty NodeType) error
	// Remove unlinks the node at path. Directories must be empty.
	Remove(path string) error
	// ReadDir fills dest with directory entries starting at offset start of
	// the conceptual sequence [".", "..", children in name order] and
	// returns the count filled. Pages are snapshots; consistency across
	// calls under concurrent mutation is not guaranteed.
	ReadDir(start int, dest []DirEntry) (int, error)
	// Symlink creates a symbolic link at path holding the fixed target.
	Symlink(target, path string) error
	// Readlink copies the target of the symlink at path into buf, returning
	// the count copied. Oversized targets are truncated silently.
	Readlink(path string, buf []byte) (int, error)

	// ReadAt copies file bytes at offset off into p, returning the count
	// copied. Reads at or past the end return 0 with no error.
	ReadAt(p []byte, off int64) (int, error)
	// WriteAt copies p into the file at offset off, growing it as needed.
	WriteAt(p []byte, off int64) (int, error)
	// Truncate shrinks or zero-extends the file to size bytes.
	Truncate(size uint64) error
}

// FS is the mount boundary of one filesystem instance. An outer
// filesystem-switch layer composes several instances by rewriting ".."
// resolution at mount points through Mount.
type FS interface {
	// Root returns the instance's root node.
	Root() Node
	// Mount attaches the instance beneath mountPoint so that ".." from the
	// root escapes to the mount point's own parent.
	Mount(mountPoint Node) error
	// Unmount detaches the root from the outer namespace.
	Unmount() error
}

// DirDefaults supplies the file and symlink operations a directory does
// not support. Embed it in directory node implementations.
type DirDefaults struct{}

func (DirDefaults) IsSymlink() bool { return false }

func (DirDefaults) ReadAt(p []byte, off int64) (int, error) {
	return 0, ErrInvalidInput
}

func (DirDefaults) WriteAt(p []byte, off int64) (int, error) {
	return 0, ErrInvalidInput
}

func (DirDefaults) Truncate(size uint64) error {
	return ErrInvalidInput
}

// LeafDefaults supplies the directory operations a leaf does not support
// plus file/symlink fallbacks. Embed it in file and symlink nodes and
// override what the kind actually implements.
type LeafDefaults struct{}

func (LeafDefaults) Parent() Node { return nil }

func (LeafDefaults) IsSymlink() bool { return false }

func (LeafDefaults) Lookup(path string) (Node, error) {
	return nil, ErrNotADirectory
}

func (LeafDefaults) Create(path string, ty NodeType) error {
	return ErrNotADirectory
}

func (LeafDefaults) Remove(path string) error {
	return ErrNotADirectory
}

func (LeafDefaults) ReadDir(start int, dest []DirEntry) (int, error) {
	return 0, ErrNotADirectory
}

func (LeafDefaults) Symlink(target, path string) error {
	return ErrNotADirectory
}

func (LeafDefaults) Readlink(path string, buf []byte) (int, error) {
	return 0, ErrInvalidInput
}

func (LeafDefaults) ReadAt(p []byte, off int64) (int, error) {
	return 0, ErrUnsupported
}

func (LeafDefaults) WriteAt(p []byte, off int64) (int, error) {
	return 0, ErrUnsupported
}

func (LeafDefaults) Truncate(size uint64) error {
	return ErrUnsupported
}
