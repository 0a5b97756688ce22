package ramfs

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brettbedarf/ramfs/filesystem"
	"github.com/brettbedarf/ramfs/vfs"
)

func TestNew(t *testing.T) {
	t.Parallel()

	fsys := New()

	require.NotNil(t, fsys.Root())
	assert.Same(t, fsys.Root(), vfs.Node(fsys.RootDir()))
	assert.Empty(t, fsys.RootDir().Entries())

	// Each instance gets its own identifier
	other := New()
	assert.NotEqual(t, fsys.ID(), other.ID())

	// An unmounted root has no parent
	assert.Nil(t, fsys.Root().Parent())
	_, err := fsys.Root().Lookup("..")
	assert.ErrorIs(t, err, vfs.ErrNotFound)
}

func TestRamFs_DeepTreeLifecycle(t *testing.T) {
	t.Parallel()

	fsys := New()
	root := fsys.RootDir()

	require.NoError(t, root.Create("srv", vfs.TypeDir))
	require.NoError(t, root.Create("srv/www", vfs.TypeDir))
	require.NoError(t, root.Create("srv/www/index.html", vfs.TypeFile))
	require.NoError(t, root.Create("srv/www/assets", vfs.TypeDir))
	require.NoError(t, root.Create("srv/www/assets/app.js", vfs.TypeFile))

	// Populated directories refuse removal at every level
	assert.ErrorIs(t, root.Remove("srv"), vfs.ErrDirectoryNotEmpty)
	assert.ErrorIs(t, root.Remove("srv/www"), vfs.ErrDirectoryNotEmpty)
	assert.ErrorIs(t, root.Remove("srv/www/assets"), vfs.ErrDirectoryNotEmpty)

	// Bottom-up removal drains the tree
	require.NoError(t, root.Remove("srv/www/assets/app.js"))
	require.NoError(t, root.Remove("srv/www/assets"))
	require.NoError(t, root.Remove("srv/www/index.html"))
	require.NoError(t, root.Remove("srv/www"))
	require.NoError(t, root.Remove("srv"))
	assert.Empty(t, root.Entries())
}

func TestRamFs_SymlinkLifecycle(t *testing.T) {
	t.Parallel()

	fsys := New()
	root := fsys.RootDir()

	// Empty targets never make it past validation
	assert.ErrorIs(t, root.Symlink("", "link"), vfs.ErrInvalidInput)

	require.NoError(t, root.Symlink("/a/b", "link"))

	buf := make([]byte, 32)
	n, err := root.Readlink("link", buf)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, "/a/b", string(buf[:n]))

	node, err := root.Lookup("link")
	require.NoError(t, err)
	assert.True(t, node.IsSymlink())
	attr, err := node.Attr()
	require.NoError(t, err)
	assert.Equal(t, uint64(4), attr.Size)

	require.NoError(t, root.Remove("link"))
	_, err = root.Lookup("link")
	assert.ErrorIs(t, err, vfs.ErrNotFound)
}

func TestRamFs_Mount(t *testing.T) {
	t.Parallel()

	t.Run("ParentEscape", func(t *testing.T) {
		t.Parallel()
		outer := filesystem.NewDirNode(nil)
		mnt := filesystem.NewDirNode(outer)

		fsys := New()
		require.NoError(t, fsys.Mount(mnt))

		// ".." from the mounted root lands in the outer namespace
		up, err := fsys.Root().Lookup("..")
		require.NoError(t, err)
		assert.Same(t, vfs.Node(outer), up)
	})

	t.Run("NilMountPoint", func(t *testing.T) {
		t.Parallel()
		fsys := New()
		assert.ErrorIs(t, fsys.Mount(nil), vfs.ErrInvalidInput)
	})

	t.Run("ParentFixedOnce", func(t *testing.T) {
		t.Parallel()
		outer1 := filesystem.NewDirNode(nil)
		mnt1 := filesystem.NewDirNode(outer1)
		outer2 := filesystem.NewDirNode(nil)
		mnt2 := filesystem.NewDirNode(outer2)

		fsys := New()
		require.NoError(t, fsys.Mount(mnt1))
		require.NoError(t, fsys.Mount(mnt2))

		// The second mount re-applies the first association
		up, err := fsys.Root().Lookup("..")
		require.NoError(t, err)
		assert.Same(t, vfs.Node(outer1), up)
	})

	t.Run("ParentlessMountPointClears", func(t *testing.T) {
		t.Parallel()
		outer := filesystem.NewDirNode(nil)
		mnt := filesystem.NewDirNode(outer)
		orphan := filesystem.NewDirNode(nil)

		fsys := New()
		require.NoError(t, fsys.Mount(mnt))
		require.NoError(t, fsys.Mount(orphan))

		_, err := fsys.Root().Lookup("..")
		assert.ErrorIs(t, err, vfs.ErrNotFound)

		// The stored association still survives for the next mount
		require.NoError(t, fsys.Mount(mnt))
		up, err := fsys.Root().Lookup("..")
		require.NoError(t, err)
		assert.Same(t, vfs.Node(outer), up)
	})

	t.Run("UnmountDetaches", func(t *testing.T) {
		t.Parallel()
		outer := filesystem.NewDirNode(nil)
		mnt := filesystem.NewDirNode(outer)

		fsys := New()
		require.NoError(t, fsys.Root().Create("keep", vfs.TypeFile))
		require.NoError(t, fsys.Mount(mnt))
		require.NoError(t, fsys.Unmount())

		_, err := fsys.Root().Lookup("..")
		assert.ErrorIs(t, err, vfs.ErrNotFound)

		// Contents survive across unmount and remount
		require.NoError(t, fsys.Mount(mnt))
		assert.True(t, fsys.RootDir().Exists("keep"))
		up, err := fsys.Root().Lookup("..")
		require.NoError(t, err)
		assert.Same(t, vfs.Node(outer), up)
	})
}

func TestRamFs_AddDynamicSymlink(t *testing.T) {
	t.Parallel()

	fsys := New()
	root := fsys.RootDir()
	require.NoError(t, root.Create("proc", vfs.TypeDir))

	calls := 0
	fn := func() string {
		calls++
		return fmt.Sprintf("/state/%d", calls)
	}

	require.NoError(t, fsys.AddDynamicSymlink("proc/latest", fn))

	// The generator runs on every read
	buf := make([]byte, 32)
	n, err := root.Readlink("proc/latest", buf)
	require.NoError(t, err)
	assert.Equal(t, "/state/1", string(buf[:n]))
	n, err = root.Readlink("proc/latest", buf)
	require.NoError(t, err)
	assert.Equal(t, "/state/2", string(buf[:n]))

	// Root-level links need no directory prefix
	require.NoError(t, fsys.AddDynamicSymlink("top", func() string { return "/t" }))
	n, err = root.Readlink("top", buf)
	require.NoError(t, err)
	assert.Equal(t, "/t", string(buf[:n]))

	// Duplicate names are rejected
	assert.ErrorIs(t, fsys.AddDynamicSymlink("top", fn), vfs.ErrAlreadyExists)

	// The parent must exist and be a directory
	assert.ErrorIs(t, fsys.AddDynamicSymlink("missing/link", fn), vfs.ErrNotFound)
	require.NoError(t, root.Create("file", vfs.TypeFile))
	assert.ErrorIs(t, fsys.AddDynamicSymlink("file/link", fn), vfs.ErrNotADirectory)

	// A nil generator is rejected before any tree mutation
	assert.ErrorIs(t, fsys.AddDynamicSymlink("proc/nil", nil), vfs.ErrInvalidInput)
}

func TestRamFs_MkdirAll(t *testing.T) {
	t.Parallel()

	fsys := New()

	node, err := fsys.MkdirAll("var/log/app")
	require.NoError(t, err)
	attr, err := node.Attr()
	require.NoError(t, err)
	assert.True(t, attr.IsDir())

	got, err := fsys.Root().Lookup("var/log/app")
	require.NoError(t, err)
	assert.Same(t, got, node)

	// Existing directories are tolerated
	again, err := fsys.MkdirAll("/var/log/app/")
	require.NoError(t, err)
	assert.Same(t, node, again)

	// Empty and dot segments resolve to the root itself
	root, err := fsys.MkdirAll("")
	require.NoError(t, err)
	assert.Same(t, fsys.Root(), root)
	root, err = fsys.MkdirAll("./")
	require.NoError(t, err)
	assert.Same(t, fsys.Root(), root)

	// A file along the way stops the walk
	require.NoError(t, fsys.Root().Create("var/log/app/data.bin", vfs.TypeFile))
	_, err = fsys.MkdirAll("var/log/app/data.bin/sub")
	assert.ErrorIs(t, err, vfs.ErrNotADirectory)
}

func TestRamFs_ConcurrentMkdirAll(t *testing.T) {
	fsys := New()

	const numGoroutines = 8

	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	for range numGoroutines {
		go func() {
			defer wg.Done()
			_, err := fsys.MkdirAll("shared/deep/path")
			assert.NoError(t, err)
		}()
	}

	wg.Wait()

	// All goroutines converge on one chain
	node, err := fsys.Root().Lookup("shared/deep/path")
	require.NoError(t, err)
	attr, err := node.Attr()
	require.NoError(t, err)
	assert.True(t, attr.IsDir())
	assert.Equal(t, []string{"shared"}, fsys.RootDir().Entries())
}
