// Package store persists the key-value blob overlay settings are saved into.
package store

import (
	"context"
	"fmt"
)

// Compound is a nested key-value blob, the shape of the host's saved tag data.
type Compound map[string]any

// Store loads and saves a Compound.
type Store interface {
	// Load returns the saved blob, or an empty Compound when nothing was saved yet.
	Load(ctx context.Context) (Compound, error)
	Save(ctx context.Context, blob Compound) error
	Close() error
}

// Section returns the nested compound stored under key.
func (c Compound) Section(key string) (Compound, bool) {
	switch v := c[key].(type) {
	case Compound:
		return v, true
	case map[string]any:
		return Compound(v), true
	default:
		return nil, false
	}
}

// String returns the string stored under key.
func (c Compound) String(key string) (string, error) {
	v, ok := c[key]
	if !ok {
		return "", fmt.Errorf("key %q not present", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("key %q is %T, not a string", key, v)
	}
	return s, nil
}

// Normalize converts nested Compound values to plain maps so encoders that do
// not know the named type see ordinary objects.
func Normalize(c Compound) map[string]any {
	out := make(map[string]any, len(c))
	for k, v := range c {
		switch inner := v.(type) {
		case Compound:
			out[k] = Normalize(inner)
		case map[string]any:
			out[k] = Normalize(Compound(inner))
		default:
			out[k] = v
		}
	}
	return out
}

// Open returns the store for backend ("yaml" or "sqlite") at path.
func Open(backend, path string) (Store, error) {
	switch backend {
	case "", "yaml":
		return NewYAMLFile(path), nil
	case "sqlite":
		return OpenSQLite(path)
	default:
		return nil, fmt.Errorf("unknown store backend: %s", backend)
	}
}
