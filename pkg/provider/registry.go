package provider

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/harun/lens/pkg/lenserr"
)

// Kind is the type token a provider is indexed under.
type Kind = reflect.Type

// KindOf returns the kind token for T.
func KindOf[T any]() Kind {
	return reflect.TypeFor[T]()
}

// QualifiedName returns the package-qualified type name of a kind, e.g.
// "github.com/harun/lens/pkg/theme.SimpleBoxes". Pointer kinds are named after
// their element type so *SimpleBoxes and SimpleBoxes share a name.
func QualifiedName(kind Kind) string {
	if kind == nil {
		return ""
	}
	kind = baseKind(kind)
	if kind.PkgPath() == "" {
		return kind.String()
	}
	return kind.PkgPath() + "." + kind.Name()
}

// baseKind strips pointers so T and *T index the same provider.
func baseKind(kind Kind) Kind {
	for kind.Kind() == reflect.Pointer {
		kind = kind.Elem()
	}
	return kind
}

// Registry indexes interchangeable provider instances by qualified type name
// and by kind. Both indices always hold the same instance for a given kind,
// and a kind is looked up the same way whether it is named as T or *T.
type Registry[P any] struct {
	mu         sync.RWMutex
	byName     map[string]P
	byKind     map[Kind]P
	current    P
	hasCurrent bool
}

// NewRegistry creates an empty provider registry
func NewRegistry[P any]() *Registry[P] {
	return &Registry[P]{
		byName: make(map[string]P),
		byKind: make(map[Kind]P),
	}
}

// Register stores instance under its qualified name and its concrete kind.
func (r *Registry[P]) Register(instance P) error {
	kind := reflect.TypeOf(any(instance))
	if kind == nil {
		return fmt.Errorf("provider instance cannot be nil")
	}
	kind = baseKind(kind)
	name := QualifiedName(kind)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byKind[kind]; exists {
		return fmt.Errorf("%w: %s", lenserr.ErrDuplicateKind, name)
	}
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("%w: %s", lenserr.ErrDuplicateKind, name)
	}

	r.byName[name] = instance
	r.byKind[kind] = instance
	return nil
}

// GetByName looks a provider up by qualified type name
func (r *Registry[P]) GetByName(name string) (P, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.byName[name]
	if !ok {
		var zero P
		return zero, fmt.Errorf("provider %q: %w", name, lenserr.ErrNotFound)
	}
	return p, nil
}

// GetByKind looks a provider up by kind token
func (r *Registry[P]) GetByKind(kind Kind) (P, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var p P
	ok := false
	if kind != nil {
		p, ok = r.byKind[baseKind(kind)]
	}
	if !ok {
		var zero P
		return zero, fmt.Errorf("provider %q: %w", QualifiedName(kind), lenserr.ErrNotFound)
	}
	return p, nil
}

// Get returns the provider registered for the concrete kind T.
func Get[T any, P any](r *Registry[P]) (P, error) {
	return r.GetByKind(KindOf[T]())
}

// Names returns all registered qualified names in sorted order
func (r *Registry[P]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered kinds
func (r *Registry[P]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byKind)
}

// SetCurrent switches the current pointer to instance. The instance does not
// have to be registered; it is neither copied nor cloned.
func (r *Registry[P]) SetCurrent(instance P) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = instance
	r.hasCurrent = true
}

// SetCurrentByName switches the current pointer to the provider named name.
func (r *Registry[P]) SetCurrentByName(name string) error {
	p, err := r.GetByName(name)
	if err != nil {
		return err
	}
	r.SetCurrent(p)
	return nil
}

// SetCurrentByKind switches the current pointer to the provider of kind.
func (r *Registry[P]) SetCurrentByKind(kind Kind) error {
	p, err := r.GetByKind(kind)
	if err != nil {
		return err
	}
	r.SetCurrent(p)
	return nil
}

// Current returns the current provider and whether one was set.
func (r *Registry[P]) Current() (P, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current, r.hasCurrent
}
