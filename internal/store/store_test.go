// ABOUTME: Tests for the configuration store over the mock backend
// ABOUTME: Covers load degradation, write-through, persistence warnings, and validation

package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() CommunityConfig {
	return CommunityConfig{
		CategoryID:         "cat-1",
		JoinChannelID:      "join-1",
		InterfaceChannelID: "iface-1",
	}
}

func TestConfigStore_OpenLoadsBackend(t *testing.T) {
	backend := NewMockBackend(map[string]CommunityConfig{"guild-1": validConfig()})

	s := Open(context.Background(), backend, nil)
	defer s.Close()

	cfg, ok := s.Get("guild-1")
	require.True(t, ok)
	assert.Equal(t, validConfig(), cfg)
	assert.True(t, s.IsConfigured("guild-1"))
	assert.False(t, s.IsConfigured("guild-2"))
}

func TestConfigStore_OpenReadFailureStartsEmpty(t *testing.T) {
	backend := NewMockBackend(map[string]CommunityConfig{"guild-1": validConfig()})
	backend.SetReadError(errors.New("disk on fire"))

	s := Open(context.Background(), backend, nil)
	defer s.Close()

	assert.False(t, s.IsConfigured("guild-1"))
	assert.Empty(t, s.snapshot())
}

func TestConfigStore_PutWritesThrough(t *testing.T) {
	backend := NewMockBackend(nil)
	s := Open(context.Background(), backend, nil)

	require.NoError(t, s.Put(context.Background(), "guild-1", validConfig()))

	assert.Equal(t, 1, backend.Writes())
	assert.Equal(t, map[string]CommunityConfig{"guild-1": validConfig()}, backend.Persisted())
}

func TestConfigStore_PutReplacesWholeRecord(t *testing.T) {
	backend := NewMockBackend(nil)
	s := Open(context.Background(), backend, nil)
	ctx := context.Background()

	withMessage := validConfig()
	withMessage.InterfaceMessageID = "msg-1"
	require.NoError(t, s.Put(ctx, "guild-1", withMessage))
	require.NoError(t, s.Put(ctx, "guild-1", validConfig()))

	cfg, _ := s.Get("guild-1")
	assert.Empty(t, cfg.InterfaceMessageID)
}

func TestConfigStore_PutWriteFailureKeepsMemory(t *testing.T) {
	backend := NewMockBackend(nil)
	backend.SetWriteError(errors.New("read-only filesystem"))
	s := Open(context.Background(), backend, nil)

	err := s.Put(context.Background(), "guild-1", validConfig())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPersist)
	assert.Contains(t, err.Error(), "read-only filesystem")

	assert.True(t, s.IsConfigured("guild-1"), "in-memory state survives a failed write")
	assert.Empty(t, backend.Persisted())

	// The next successful write carries the earlier record too.
	backend.SetWriteError(nil)
	other := validConfig()
	other.CategoryID = "cat-2"
	require.NoError(t, s.Put(context.Background(), "guild-2", other))
	assert.Len(t, backend.Persisted(), 2)
}

func TestConfigStore_PutRejectsInvalid(t *testing.T) {
	backend := NewMockBackend(nil)
	s := Open(context.Background(), backend, nil)

	tests := []struct {
		name    string
		guildID string
		cfg     CommunityConfig
	}{
		{"missing guild", "", validConfig()},
		{"missing category", "g", CommunityConfig{JoinChannelID: "j", InterfaceChannelID: "i"}},
		{"missing join", "g", CommunityConfig{CategoryID: "c", InterfaceChannelID: "i"}},
		{"missing interface", "g", CommunityConfig{CategoryID: "c", JoinChannelID: "j"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Put(context.Background(), tt.guildID, tt.cfg)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
	assert.Equal(t, 0, backend.Writes())
}

func TestConfigStore_GuildIDsSorted(t *testing.T) {
	backend := NewMockBackend(map[string]CommunityConfig{
		"guild-b": validConfig(),
		"guild-a": validConfig(),
		"guild-c": validConfig(),
	})
	s := Open(context.Background(), backend, nil)

	assert.Equal(t, []string{"guild-a", "guild-b", "guild-c"}, s.GuildIDs())
}

func TestConfigStore_SnapshotIsCopy(t *testing.T) {
	backend := NewMockBackend(map[string]CommunityConfig{"guild-1": validConfig()})
	s := Open(context.Background(), backend, nil)

	snap := s.snapshot()
	delete(snap, "guild-1")

	assert.True(t, s.IsConfigured("guild-1"))
}

func TestConfigStore_ConcurrentPutsPersistLatestState(t *testing.T) {
	backend := NewMockBackend(nil)
	s := Open(context.Background(), backend, nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cfg := validConfig()
			cfg.CategoryID = "cat"
			_ = s.Put(context.Background(), string(rune('a'+i)), cfg)
		}(i)
	}
	wg.Wait()

	assert.Len(t, backend.Persisted(), 20)
	assert.Equal(t, s.snapshot(), backend.Persisted())
}
