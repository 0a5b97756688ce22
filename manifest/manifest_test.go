package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brettbedarf/ramfs"
	"github.com/brettbedarf/ramfs/generators"
	"github.com/brettbedarf/ramfs/internal/util"
	"github.com/brettbedarf/ramfs/vfs"
)

const yamlManifest = `nodes:
  - type: dir
    path: etc
  - type: file
    path: etc/motd
    content: "hello\n"
  - type: symlink
    path: etc/localtime
    target: /usr/share/zoneinfo/UTC
`

const jsonManifest = `{
  "nodes": [
    {"type": "dir", "path": "etc"},
    {"type": "file", "path": "etc/motd", "content": "hello\n"},
    {"type": "symlink", "path": "etc/localtime", "target": "/usr/share/zoneinfo/UTC"}
  ]
}`

const tomlManifest = `[[nodes]]
type = "dir"
path = "etc"

[[nodes]]
type = "file"
path = "etc/motd"
content = "hello\n"

[[nodes]]
type = "symlink"
path = "etc/localtime"
target = "/usr/share/zoneinfo/UTC"
`

// writeManifest drops content into a temp file with the given extension and
// returns its path.
func writeManifest(t *testing.T, ext, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "manifest"+ext)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Formats(t *testing.T) {
	t.Parallel()

	want := &Manifest{Nodes: []NodeDef{
		{Type: "dir", Path: "etc"},
		{Type: "file", Path: "etc/motd", Content: util.Pointer("hello\n")},
		{Type: "symlink", Path: "etc/localtime", Target: util.Pointer("/usr/share/zoneinfo/UTC")},
	}}

	tests := []struct {
		ext     string
		content string
	}{
		{".yaml", yamlManifest},
		{".yml", yamlManifest},
		{".json", jsonManifest},
		{".toml", tomlManifest},
	}

	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			t.Parallel()
			m, err := Load(writeManifest(t, tt.ext, tt.content))
			require.NoError(t, err)
			assert.Equal(t, want, m)
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	t.Run("UnknownExtension", func(t *testing.T) {
		t.Parallel()
		_, err := Load(writeManifest(t, ".ini", "nodes = []"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown manifest file extension")
	})

	t.Run("MissingFile", func(t *testing.T) {
		t.Parallel()
		_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		require.Error(t, err)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("Malformed", func(t *testing.T) {
		t.Parallel()
		_, err := Load(writeManifest(t, ".yaml", "nodes: ["))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to unmarshal manifest")
	})
}

func TestManifest_Apply(t *testing.T) {
	generators.RegisterBuiltins()
	fsys := ramfs.New()

	m := &Manifest{Nodes: []NodeDef{
		{Type: "dir", Path: "/etc/"},
		{Type: "file", Path: "etc/motd", Content: util.Pointer("hello\n")},
		{Type: "file", Path: "var/run/app.pid"}, // parents auto-created
		{Type: "symlink", Path: "etc/localtime", Target: util.Pointer("/usr/share/zoneinfo/UTC")},
		{Type: "symlink", Path: "var/seq", Generator: util.Pointer("counter")},
	}}

	require.NoError(t, m.Apply(fsys))
	root := fsys.RootDir()

	// Directory
	node, err := root.Lookup("etc")
	require.NoError(t, err)
	attr, err := node.Attr()
	require.NoError(t, err)
	assert.True(t, attr.IsDir())

	// File with seeded content
	motd, err := root.Lookup("etc/motd")
	require.NoError(t, err)
	buf := make([]byte, 16)
	n, err := motd.ReadAt(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(buf[:n]))

	// File whose parents were created on the way
	pid, err := root.Lookup("var/run/app.pid")
	require.NoError(t, err)
	attr, err = pid.Attr()
	require.NoError(t, err)
	assert.True(t, attr.IsFile())
	assert.Equal(t, uint64(0), attr.Size, "no content leaves the file empty")

	// Fixed symlink
	big := make([]byte, 64)
	n, err = root.Readlink("etc/localtime", big)
	require.NoError(t, err)
	assert.Equal(t, "/usr/share/zoneinfo/UTC", string(big[:n]))

	// Dynamic symlink backed by a generator
	n, err = root.Readlink("var/seq", big)
	require.NoError(t, err)
	assert.Equal(t, "1", string(big[:n]))
	n, err = root.Readlink("var/seq", big)
	require.NoError(t, err)
	assert.Equal(t, "2", string(big[:n]))
}

func TestManifest_Apply_Errors(t *testing.T) {
	generators.RegisterBuiltins()

	tests := []struct {
		name    string
		def     NodeDef
		errText string
	}{
		{"empty_path", NodeDef{Type: "dir", Path: "/"}, "empty path"},
		{"unknown_type", NodeDef{Type: "socket", Path: "s"}, "unknown node type"},
		{"symlink_no_target", NodeDef{Type: "symlink", Path: "l"}, "requires a target or a generator"},
		{
			"symlink_both",
			NodeDef{Type: "symlink", Path: "l", Target: util.Pointer("/t"), Generator: util.Pointer("pid")},
			"mutually exclusive",
		},
		{"unknown_generator", NodeDef{Type: "symlink", Path: "l", Generator: util.Pointer("nope")}, "no generator"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := ramfs.New()
			m := &Manifest{Nodes: []NodeDef{tt.def}}

			err := m.Apply(fsys)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errText)
			assert.Contains(t, err.Error(), "node 0", "failures name the offending definition")
		})
	}
}

func TestManifest_Apply_DuplicateFile(t *testing.T) {
	fsys := ramfs.New()
	m := &Manifest{Nodes: []NodeDef{
		{Type: "file", Path: "dup"},
		{Type: "file", Path: "dup"},
	}}

	err := m.Apply(fsys)

	require.Error(t, err)
	assert.ErrorIs(t, err, vfs.ErrAlreadyExists)
	assert.Contains(t, err.Error(), "node 1")
}
