package filesystem

import "strings"

// splitPath strips leading slashes and splits off the first segment. more
// reports whether anything followed the first remaining slash; a trailing
// slash yields an empty rest with more true, which resolution treats as
// the "." case.
func splitPath(path string) (name, rest string, more bool) {
	trimmed := strings.TrimLeft(path, "/")
	i := strings.IndexByte(trimmed, '/')
	if i < 0 {
		return trimmed, "", false
	}
	return trimmed[:i], trimmed[i+1:], true
}

// validName reports whether name can be stored as a child entry. "." and
// ".." are synthesized during resolution and never stored.
func validName(name string) bool {
	switch name {
	case "", ".", "..":
		return false
	}
	return !strings.ContainsRune(name, '/')
}
