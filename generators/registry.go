// Package generators provides named factories for dynamic symlink targets.
// Manifests reference generators by spec string ("name" or "name:arg");
// the TargetFunc a factory builds runs on every read of the link, so the
// reported target tracks live state.
package generators

import (
	"fmt"
	"strings"
	"sync"

	"github.com/brettbedarf/ramfs/filesystem"
)

// Factory builds a TargetFunc from a spec argument (the part after the
// first ':', empty when none was given).
type Factory func(arg string) (filesystem.TargetFunc, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register ties a factory to a generator name and should be called for
// each generator type during app init
func Register(name string, factory Factory) {
	mu.Lock()
	factories[name] = factory
	mu.Unlock()
}

// New builds a TargetFunc from a spec of the form "name" or "name:arg".
// All expected generators should be registered with [Register] before
// calling this function.
func New(spec string) (filesystem.TargetFunc, error) {
	name, arg, _ := strings.Cut(spec, ":")
	mu.RLock()
	f, ok := factories[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no generator for %q", name)
	}
	return f(arg)
}
