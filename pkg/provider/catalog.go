package provider

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/harun/lens/pkg/lenserr"
)

// Constructor builds one provider instance.
type Constructor[P any] func() P

// Catalog is the static table of provider kinds known at startup.
type Catalog[P any] []Constructor[P]

// Discover constructs exactly one instance per catalog entry and registers
// each instance into both indices. Instances are registered in qualified-name
// order so iteration never depends on catalog order.
func Discover[P any](catalog Catalog[P]) (*Registry[P], error) {
	type entry struct {
		name     string
		instance P
	}

	entries := make([]entry, 0, len(catalog))
	seen := make(map[Kind]bool, len(catalog))
	for i, construct := range catalog {
		if construct == nil {
			return nil, fmt.Errorf("catalog entry %d has no constructor", i)
		}
		instance := construct()
		kind := reflect.TypeOf(any(instance))
		if kind == nil {
			return nil, fmt.Errorf("catalog entry %d constructed a nil provider", i)
		}
		if seen[kind] {
			return nil, fmt.Errorf("%w: %s", lenserr.ErrDuplicateKind, QualifiedName(kind))
		}
		seen[kind] = true
		entries = append(entries, entry{name: QualifiedName(kind), instance: instance})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].name < entries[j].name
	})

	registry := NewRegistry[P]()
	for _, e := range entries {
		if err := registry.Register(e.instance); err != nil {
			return nil, err
		}
	}
	return registry, nil
}
