// ABOUTME: Mock Backend implementation for testing
// ABOUTME: Allows tests to run without touching disk and to inject read/write failures

package store

import (
	"context"
	"maps"
	"sync"
)

// MockBackend is an in-memory Backend for testing.
type MockBackend struct {
	mu       sync.Mutex
	configs  map[string]CommunityConfig
	readErr  error
	writeErr error
	writes   int
}

// NewMockBackend creates a MockBackend preloaded with configs.
func NewMockBackend(configs map[string]CommunityConfig) *MockBackend {
	if configs == nil {
		configs = make(map[string]CommunityConfig)
	}
	return &MockBackend{configs: maps.Clone(configs)}
}

// SetReadError makes ReadAll fail with err (nil clears it).
func (m *MockBackend) SetReadError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readErr = err
}

// SetWriteError makes WriteAll fail with err (nil clears it).
func (m *MockBackend) SetWriteError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
}

// Writes returns the number of successful WriteAll calls.
func (m *MockBackend) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// Persisted returns a copy of what was last written.
func (m *MockBackend) Persisted() map[string]CommunityConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	return maps.Clone(m.configs)
}

func (m *MockBackend) ReadAll(ctx context.Context) (map[string]CommunityConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.readErr != nil {
		return nil, m.readErr
	}
	return maps.Clone(m.configs), nil
}

func (m *MockBackend) WriteAll(ctx context.Context, configs map[string]CommunityConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.writeErr != nil {
		return m.writeErr
	}
	m.configs = maps.Clone(configs)
	m.writes++
	return nil
}

func (m *MockBackend) Close() error {
	return nil
}
