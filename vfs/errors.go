package vfs

import "errors"

// Error vocabulary shared by every node implementation. Callers match with
// errors.Is; no operation returns errors outside this set.
var (
	// ErrNotFound reports a path segment or name that does not resolve.
	ErrNotFound = errors.New("entry not found")
	// ErrAlreadyExists reports a create or add colliding with an existing name.
	ErrAlreadyExists = errors.New("entry already exists")
	// ErrDirectoryNotEmpty reports removal of a directory that still has entries.
	ErrDirectoryNotEmpty = errors.New("directory not empty")
	// ErrInvalidInput reports a structurally illegal request, such as an
	// empty symlink target or unlinking ".".
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnsupported reports a request this filesystem cannot satisfy.
	ErrUnsupported = errors.New("operation not supported")
	// ErrNotADirectory reports a directory-only operation on a non-directory.
	ErrNotADirectory = errors.New("not a directory")
)
