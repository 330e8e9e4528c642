// ABOUTME: JSON file backend for the configuration store
// ABOUTME: Reads and rewrites a single pretty-printed settings file atomically

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// JSONFileBackend keeps the mapping in one JSON document keyed by community ID.
type JSONFileBackend struct {
	path string
}

// NewJSONFileBackend returns a backend for path. The file is created on the
// first write; a missing file reads as an empty mapping.
func NewJSONFileBackend(path string) *JSONFileBackend {
	return &JSONFileBackend{path: path}
}

// ReadAll parses the settings file.
func (b *JSONFileBackend) ReadAll(ctx context.Context) (map[string]CommunityConfig, error) {
	data, err := os.ReadFile(b.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]CommunityConfig{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading settings file: %w", err)
	}

	configs := make(map[string]CommunityConfig)
	if len(data) == 0 {
		return configs, nil
	}
	if err := json.Unmarshal(data, &configs); err != nil {
		return nil, fmt.Errorf("parsing settings file: %w", err)
	}
	return configs, nil
}

// WriteAll rewrites the settings file via a temp file and rename.
func (b *JSONFileBackend) WriteAll(ctx context.Context, configs map[string]CommunityConfig) error {
	data, err := json.MarshalIndent(configs, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}

	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating settings directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(b.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp settings file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp settings file: %w", err)
	}
	if err := os.Rename(tmpName, b.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing settings file: %w", err)
	}
	return nil
}

// Close is a no-op; the file is not held open between calls.
func (b *JSONFileBackend) Close() error {
	return nil
}
