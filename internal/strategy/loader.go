package strategy

import (
	"fmt"
	"os"
	"path/filepath"
	"plugin"
	"strings"
)

// Loader discovers strategies outside the built-in set.
type Loader interface {
	Load(dir string) ([]Strategy, error)
}

// PluginLoader loads strategies from Go plugin files. Each .so must export a
// package-level variable named Strategy implementing the Strategy interface.
type PluginLoader struct{}

func (PluginLoader) Load(dir string) ([]Strategy, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read strategy dir: %w", err)
	}

	var out []Strategy
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".so") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		p, err := plugin.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open plugin %s: %w", path, err)
		}
		sym, err := p.Lookup("Strategy")
		if err != nil {
			return nil, fmt.Errorf("plugin %s: %w", path, err)
		}
		s, ok := sym.(*Strategy)
		if !ok || s == nil || *s == nil {
			return nil, fmt.Errorf("plugin %s: Strategy symbol has wrong type", path)
		}
		out = append(out, *s)
	}
	return out, nil
}
