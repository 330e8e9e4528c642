// ABOUTME: Backend selection for the configuration store
// ABOUTME: Maps the configured storage driver name to a concrete Backend

package store

import (
	"context"
	"fmt"
)

// Storage drivers accepted by NewBackend.
const (
	DriverJSON   = "json"
	DriverSQLite = "sqlite"
)

// NewBackend opens the backend named by driver at path. An empty driver
// selects the JSON file backend. Only an unknown driver is an error: a
// database that cannot be opened yields a backend whose reads and writes
// report that failure, so the store starts empty instead of aborting.
func NewBackend(driver, path string) (Backend, error) {
	switch driver {
	case "", DriverJSON:
		return NewJSONFileBackend(path), nil
	case DriverSQLite:
		b, err := NewSQLiteBackend(path)
		if err != nil {
			return &unavailableBackend{err: fmt.Errorf("initializing sqlite backend: %w", err)}, nil
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}

// unavailableBackend stands in for a backend that failed to open.
type unavailableBackend struct {
	err error
}

func (b *unavailableBackend) ReadAll(ctx context.Context) (map[string]CommunityConfig, error) {
	return nil, b.err
}

func (b *unavailableBackend) WriteAll(ctx context.Context, configs map[string]CommunityConfig) error {
	return b.err
}

func (b *unavailableBackend) Close() error {
	return nil
}
