// Package config carries runtime configuration for mounting the in-memory
// filesystem: kernel mount options, FUSE tuning knobs, and log verbosity.
// Defaults live in constants.go; override files supply partial updates.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/brettbedarf/ramfs/internal/util"
)

// Config contains runtime configuration values for a mounted filesystem.
type Config struct {
	MountOptions

	LogLvl       util.LogLevel // Internal log level derived from CLI verbosity (Default info)
	MaxWrite     int           // Maximum write size per FUSE request (Default 1MB)
	AttrTimeout  float64       // Attribute cache timeout in seconds (Default 1.0)
	EntryTimeout float64       // Directory entry cache timeout in seconds (Default 1.0)
}

// ConfigOverride uses pointer fields to distinguish between unset and zero
// values when loading partial configuration. See [Config] for field
// descriptions. LogLvl takes CLI verbosity (1=error .. 5=trace), clamped.
type ConfigOverride struct {
	FsName       *string  `yaml:"fsname,omitempty" json:"fsname,omitempty" toml:"fsname,omitempty"`
	Name         *string  `yaml:"name,omitempty" json:"name,omitempty" toml:"name,omitempty"`
	Debug        *bool    `yaml:"debug,omitempty" json:"debug,omitempty" toml:"debug,omitempty"`
	LogLvl       *int     `yaml:"verbose,omitempty" json:"verbose,omitempty" toml:"verbose,omitempty"`
	MaxWrite     *int     `yaml:"max_write,omitempty" json:"max_write,omitempty" toml:"max_write,omitempty"`
	AttrTimeout  *float64 `yaml:"attr_timeout,omitempty" json:"attr_timeout,omitempty" toml:"attr_timeout,omitempty"`
	EntryTimeout *float64 `yaml:"entry_timeout,omitempty" json:"entry_timeout,omitempty" toml:"entry_timeout,omitempty"`
}

// NewConfig creates a Config from defaults with override applied on top.
// override may be nil.
func NewConfig(override *ConfigOverride) *Config {
	cfg := NewDefaultConfig()
	if override != nil {
		cfg.Merge(override)
	}
	return cfg
}

// NewDefaultConfig creates a new Config with all default values.
func NewDefaultConfig() *Config {
	return &Config{
		MountOptions: MountOptions{
			FsName: DefaultFsName,
			Name:   DefaultName,
		},
		LogLvl:       DefaultLogLvl,
		MaxWrite:     DefaultMaxWrite,
		AttrTimeout:  DefaultAttrTimeout,
		EntryTimeout: DefaultEntryTimeout,
	}
}

// Merge applies non-nil values from override onto this Config, preserving
// existing values for unset fields.
func (c *Config) Merge(override *ConfigOverride) {
	if override.FsName != nil {
		c.FsName = *override.FsName
	}
	if override.Name != nil {
		c.Name = *override.Name
	}
	if override.Debug != nil {
		c.Debug = *override.Debug
	}
	if override.LogLvl != nil {
		c.LogLvl = VerbosityToLevel(*override.LogLvl)
	}
	if override.MaxWrite != nil {
		c.MaxWrite = *override.MaxWrite
	}
	if override.AttrTimeout != nil {
		c.AttrTimeout = *override.AttrTimeout
	}
	if override.EntryTimeout != nil {
		c.EntryTimeout = *override.EntryTimeout
	}
}

// VerbosityToLevel maps CLI verbosity (1=error .. 5=trace) to an internal
// log level, clamping out-of-range values.
func VerbosityToLevel(verbosity int) util.LogLevel {
	if verbosity < ErrorVerbose {
		verbosity = ErrorVerbose
	}
	if verbosity > TraceVerbose {
		verbosity = TraceVerbose
	}
	levels := [...]util.LogLevel{
		util.ErrorLevel,
		util.WarnLevel,
		util.InfoLevel,
		util.DebugLevel,
		util.TraceLevel,
	}
	return levels[verbosity-ErrorVerbose]
}

// LoadConfigOverrideFile loads configuration overrides from a file without
// merging. Supports YAML (.yaml, .yml), JSON (.json), and TOML (.toml).
func LoadConfigOverrideFile(path string) (*ConfigOverride, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var override ConfigOverride

	// Determine format by file extension
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown config file extension: %s", path)
	}

	return &override, nil
}

// NewConfigFromFile creates a new Config by merging file overrides with
// defaults.
func NewConfigFromFile(path string) (*Config, error) {
	override, err := LoadConfigOverrideFile(path)
	if err != nil {
		return nil, err
	}
	return NewConfig(override), nil
}
