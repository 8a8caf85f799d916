// Package host defines the input-binding and localisation collaborators the
// overlay core consumes from its host application, with in-memory
// implementations used when no engine integration is wired.
package host

import (
	"fmt"
	"sort"
	"sync"
)

// Binding is an opaque, bindable input handle.
type Binding struct {
	Owner      string
	Name       string
	DefaultKey string
}

// ID returns the registrar key of the binding
func (b Binding) ID() string {
	return b.Owner + "/" + b.Name
}

// BindingRegistrar hands out input bindings given a human-readable key.
type BindingRegistrar interface {
	RegisterBinding(owner, name, defaultKey string) (Binding, error)
	UnregisterBinding(owner, name string)
}

// StringRegistrar registers a display string under a key, using def when the
// key has no translation yet.
type StringRegistrar interface {
	GetOrRegister(key string, def func() string) string
}

// Bindings is an in-memory BindingRegistrar.
type Bindings struct {
	mu       sync.RWMutex
	bindings map[string]Binding
}

// NewBindings creates an empty binding table
func NewBindings() *Bindings {
	return &Bindings{bindings: make(map[string]Binding)}
}

// RegisterBinding registers owner/name. Registering the same binding twice is an error.
func (b *Bindings) RegisterBinding(owner, name, defaultKey string) (Binding, error) {
	binding := Binding{Owner: owner, Name: name, DefaultKey: defaultKey}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.bindings[binding.ID()]; exists {
		return Binding{}, fmt.Errorf("binding %s already registered", binding.ID())
	}
	b.bindings[binding.ID()] = binding
	return binding, nil
}

// UnregisterBinding releases owner/name so it can be registered again.
func (b *Bindings) UnregisterBinding(owner, name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.bindings, Binding{Owner: owner, Name: name}.ID())
}

// Get returns a registered binding
func (b *Bindings) Get(id string) (Binding, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	binding, ok := b.bindings[id]
	return binding, ok
}

// IDs returns all binding ids, sorted
func (b *Bindings) IDs() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ids := make([]string, 0, len(b.bindings))
	for id := range b.bindings {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Strings is an in-memory StringRegistrar.
type Strings struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewStrings creates an empty string table
func NewStrings() *Strings {
	return &Strings{entries: make(map[string]string)}
}

// GetOrRegister returns the string for key, registering def() first if absent.
func (s *Strings) GetOrRegister(key string, def func() string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if value, ok := s.entries[key]; ok {
		return value
	}
	value := ""
	if def != nil {
		value = def()
	}
	s.entries[key] = value
	return value
}

// Lookup returns the string registered for key
func (s *Strings) Lookup(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.entries[key]
	return value, ok
}
