// Package manifest loads declarative node definitions and applies them to
// a filesystem instance, so a mount can start pre-populated. Definitions
// apply in order; missing parent directories are created along the way.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/brettbedarf/ramfs"
	"github.com/brettbedarf/ramfs/generators"
	"github.com/brettbedarf/ramfs/internal/util"
	"github.com/brettbedarf/ramfs/vfs"
)

// Node types accepted in definitions.
const (
	TypeDir     = "dir"
	TypeFile    = "file"
	TypeSymlink = "symlink"
)

// NodeDef is one declarative entry. Type selects which optional fields
// apply: Content seeds files; Target (fixed) or Generator (dynamic spec,
// see the generators package) configures symlinks, mutually exclusive.
type NodeDef struct {
	Type      string  `yaml:"type" json:"type" toml:"type"`
	Path      string  `yaml:"path" json:"path" toml:"path"`
	Content   *string `yaml:"content,omitempty" json:"content,omitempty" toml:"content,omitempty"`
	Target    *string `yaml:"target,omitempty" json:"target,omitempty" toml:"target,omitempty"`
	Generator *string `yaml:"generator,omitempty" json:"generator,omitempty" toml:"generator,omitempty"`
}

// Manifest is the document shape: a list of node definitions.
type Manifest struct {
	Nodes []NodeDef `yaml:"nodes" json:"nodes" toml:"nodes"`
}

// Load reads a manifest file, choosing the format by extension (.yaml,
// .yml, .json, .toml).
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var m Manifest
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &m)
	case ".json":
		err = json.Unmarshal(data, &m)
	case ".toml":
		err = toml.Unmarshal(data, &m)
	default:
		return nil, fmt.Errorf("unknown manifest file extension: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal manifest: %w", err)
	}
	return &m, nil
}

// Apply creates every definition on fsys in order. The first failure
// aborts and reports the offending definition.
func (m *Manifest) Apply(fsys *ramfs.RamFs) error {
	logger := util.GetLogger("manifest.Apply")

	for i, def := range m.Nodes {
		if err := apply(fsys, def); err != nil {
			return fmt.Errorf("node %d (%s %q): %w", i, def.Type, def.Path, err)
		}
		logger.Debug().Str("type", def.Type).Str("path", def.Path).Msg("node applied")
	}
	return nil
}

func apply(fsys *ramfs.RamFs, def NodeDef) error {
	path := strings.Trim(def.Path, "/")
	if path == "" {
		return fmt.Errorf("empty path")
	}

	switch def.Type {
	case TypeDir:
		_, err := fsys.MkdirAll(path)
		return err

	case TypeFile:
		if err := ensureParent(fsys, path); err != nil {
			return err
		}
		if err := fsys.Root().Create(path, vfs.TypeFile); err != nil {
			return err
		}
		content := util.ValueOrDefault(def.Content, "")
		if content == "" {
			return nil
		}
		node, err := fsys.Root().Lookup(path)
		if err != nil {
			return err
		}
		_, err = node.WriteAt([]byte(content), 0)
		return err

	case TypeSymlink:
		switch {
		case def.Target != nil && def.Generator != nil:
			return fmt.Errorf("target and generator are mutually exclusive")
		case def.Generator != nil:
			fn, err := generators.New(*def.Generator)
			if err != nil {
				return err
			}
			if err := ensureParent(fsys, path); err != nil {
				return err
			}
			return fsys.AddDynamicSymlink(path, fn)
		case def.Target != nil:
			if err := ensureParent(fsys, path); err != nil {
				return err
			}
			return fsys.Root().Symlink(*def.Target, path)
		default:
			return fmt.Errorf("symlink requires a target or a generator")
		}

	default:
		return fmt.Errorf("unknown node type %q", def.Type)
	}
}

func ensureParent(fsys *ramfs.RamFs, path string) error {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		_, err := fsys.MkdirAll(path[:i])
		return err
	}
	return nil
}
