package server

import (
	"errors"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/brettbedarf/ramfs/vfs"
)

// errno translates the node contract's error vocabulary onto FUSE status
// codes. Anything outside the vocabulary surfaces as EIO.
func errno(err error) fuse.Status {
	switch {
	case err == nil:
		return fuse.OK
	case errors.Is(err, vfs.ErrNotFound):
		return fuse.ENOENT
	case errors.Is(err, vfs.ErrAlreadyExists):
		return fuse.Status(syscall.EEXIST)
	case errors.Is(err, vfs.ErrDirectoryNotEmpty):
		return fuse.Status(syscall.ENOTEMPTY)
	case errors.Is(err, vfs.ErrInvalidInput):
		return fuse.EINVAL
	case errors.Is(err, vfs.ErrUnsupported):
		return fuse.ENOSYS
	case errors.Is(err, vfs.ErrNotADirectory):
		return fuse.ENOTDIR
	default:
		return fuse.EIO
	}
}
