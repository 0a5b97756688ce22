package filesystem

import (
	"math"
	"sync"

	"github.com/brettbedarf/ramfs/vfs"
)

// MaxFileSize bounds a file's content length. Writes and truncations that
// would grow a file past it fail with ErrInvalidInput before any buffer
// arithmetic, keeping sizes within int range on every platform.
const MaxFileSize = math.MaxInt32

// FileNode is a regular file: a growable byte buffer behind a lock.
type FileNode struct {
	vfs.LeafDefaults

	mu      sync.RWMutex
	content []byte
}

var _ vfs.Node = (*FileNode)(nil)

// NewFileNode returns an empty file.
func NewFileNode() *FileNode {
	return &FileNode{}
}

// Attr implements vfs.Node.
func (f *FileNode) Attr() (vfs.NodeAttr, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return vfs.NewFileAttr(uint64(len(f.content)), 0), nil
}

// ReadAt implements vfs.Node. Reads at or past the end copy nothing and
// report no error.
func (f *FileNode) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, vfs.ErrInvalidInput
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if off >= int64(len(f.content)) {
		return 0, nil
	}
	return copy(p, f.content[off:]), nil
}

// WriteAt implements vfs.Node. Writes past the end zero-fill the gap; writes
// that would end past MaxFileSize fail with ErrInvalidInput.
func (f *FileNode) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 || off > MaxFileSize-int64(len(p)) {
		return 0, vfs.ErrInvalidInput
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if end := off + int64(len(p)); end > int64(len(f.content)) {
		f.content = append(f.content, make([]byte, end-int64(len(f.content)))...)
	}
	return copy(f.content[off:], p), nil
}

// Truncate implements vfs.Node, shrinking or zero-extending to size. Sizes
// past MaxFileSize fail with ErrInvalidInput.
func (f *FileNode) Truncate(size uint64) error {
	if size > MaxFileSize {
		return vfs.ErrInvalidInput
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	switch cur := uint64(len(f.content)); {
	case size < cur:
		f.content = f.content[:size]
	case size > cur:
		f.content = append(f.content, make([]byte, size-cur)...)
	}
	return nil
}
