package config

// MountOptions holds high-level mount settings. No go-fuse types leak out
// of this package; the server translates these onto the real mount call.
type MountOptions struct {
	Debug  bool   // kernel-level FUSE debug logs
	FsName string // source reported in /proc/mounts
	Name   string // filesystem type label
}
