package filesystem

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brettbedarf/ramfs/vfs"
)

func TestSymlinkNode_FixedTarget(t *testing.T) {
	t.Parallel()

	s := NewSymlinkNode("/a/b")

	assert.True(t, s.IsSymlink())
	assert.Equal(t, "/a/b", s.Target())

	attr, err := s.Attr()
	require.NoError(t, err)
	assert.True(t, attr.IsSymlink())
	assert.Equal(t, uint64(4), attr.Size, "size is the target byte length")
	assert.Equal(t, uint64(0), attr.Blocks)
}

func TestSymlinkNode_Readlink(t *testing.T) {
	t.Parallel()

	s := NewSymlinkNode("/a/b")

	// Roomy buffer: the whole target, no terminator
	buf := make([]byte, 32)
	n, err := s.Readlink("", buf)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, "/a/b", string(buf[:n]))

	// Tight buffer: silent truncation
	small := make([]byte, 2)
	n, err = s.Readlink("", small)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "/a", string(small[:n]))

	// Empty buffer copies nothing
	n, err = s.Readlink("", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSymlinkNode_DynamicTarget(t *testing.T) {
	t.Parallel()

	calls := 0
	s := NewDynamicSymlinkNode(func() string {
		calls++
		return fmt.Sprintf("/gen/%d", calls)
	})

	// Every read invokes the generator; nothing is cached
	buf := make([]byte, 32)
	n, err := s.Readlink("", buf)
	require.NoError(t, err)
	assert.Equal(t, "/gen/1", string(buf[:n]))

	n, err = s.Readlink("", buf)
	require.NoError(t, err)
	assert.Equal(t, "/gen/2", string(buf[:n]))

	assert.Equal(t, 2, calls)
}

func TestSymlinkNode_Attr_TracksDynamicTarget(t *testing.T) {
	t.Parallel()

	target := "/short"
	s := NewDynamicSymlinkNode(func() string { return target })

	attr, err := s.Attr()
	require.NoError(t, err)
	assert.Equal(t, uint64(len("/short")), attr.Size)

	target = "/a/much/longer/target"
	attr, err = s.Attr()
	require.NoError(t, err)
	assert.Equal(t, uint64(len("/a/much/longer/target")), attr.Size)
}

func TestSymlinkNode_DirOpsRejected(t *testing.T) {
	t.Parallel()

	s := NewSymlinkNode("/t")

	_, err := s.Lookup("x")
	assert.ErrorIs(t, err, vfs.ErrNotADirectory)
	assert.ErrorIs(t, s.Create("x", vfs.TypeFile), vfs.ErrNotADirectory)
	assert.ErrorIs(t, s.Remove("x"), vfs.ErrNotADirectory)
	_, err = s.ReadDir(0, make([]vfs.DirEntry, 1))
	assert.ErrorIs(t, err, vfs.ErrNotADirectory)

	// Data plane belongs to files
	_, err = s.ReadAt(make([]byte, 4), 0)
	assert.ErrorIs(t, err, vfs.ErrUnsupported)
	_, err = s.WriteAt([]byte("x"), 0)
	assert.ErrorIs(t, err, vfs.ErrUnsupported)
	assert.ErrorIs(t, s.Truncate(0), vfs.ErrUnsupported)
}
