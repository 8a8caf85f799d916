package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// YAMLFile keeps the blob in a single YAML document.
type YAMLFile struct {
	path string
	mu   sync.Mutex
}

// NewYAMLFile creates a store backed by the file at path
func NewYAMLFile(path string) *YAMLFile {
	return &YAMLFile{path: path}
}

// Path returns the backing file path
func (f *YAMLFile) Path() string {
	return f.path
}

func (f *YAMLFile) Load(ctx context.Context) (Compound, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return Compound{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", f.path, err)
	}

	var blob map[string]any
	if err := yaml.Unmarshal(data, &blob); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", f.path, err)
	}
	if blob == nil {
		return Compound{}, nil
	}
	return Compound(blob), nil
}

// Save writes the blob atomically by renaming a temp file over the target.
func (f *YAMLFile) Save(ctx context.Context, blob Compound) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := yaml.Marshal(Normalize(blob))
	if err != nil {
		return fmt.Errorf("failed to encode blob: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", f.path, err)
	}
	return nil
}

func (f *YAMLFile) Close() error {
	return nil
}
