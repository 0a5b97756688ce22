package config

import "github.com/brettbedarf/ramfs/internal/util"

// Bytes per MB
const MB = 1024 * 1024

// Default configuration constants. See [Config] for field descriptions.
const (
	// DefaultFsName is the filesystem source reported to the kernel
	DefaultFsName = "ramfs"

	// DefaultName is the filesystem type label reported to the kernel
	DefaultName = "ramfs"

	// DefaultLogLvl applies when no verbosity override is given
	DefaultLogLvl = util.InfoLevel

	// DefaultMaxWrite is the maximum write size per FUSE request
	DefaultMaxWrite = 1 * MB

	// DefaultAttrTimeout is the attribute cache timeout in seconds
	DefaultAttrTimeout = 1.0

	// DefaultEntryTimeout is the directory entry cache timeout in seconds
	DefaultEntryTimeout = 1.0
)

// CLI verbosity bounds; values map onto internal log levels via
// [VerbosityToLevel].
const (
	ErrorVerbose = 1
	WarnVerbose  = 2
	InfoVerbose  = 3
	DebugVerbose = 4
	TraceVerbose = 5
)
