// ABOUTME: Tests for the JSON settings file backend
// ABOUTME: Covers missing files, corrupt files, round-trips, and on-disk layout

package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONFileBackend_MissingFileIsEmpty(t *testing.T) {
	b := NewJSONFileBackend(filepath.Join(t.TempDir(), "settings.json"))

	configs, err := b.ReadAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, configs)
}

func TestJSONFileBackend_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := NewJSONFileBackend(path).ReadAll(context.Background())
	assert.Error(t, err)

	// The store degrades to empty instead of failing.
	s := Open(context.Background(), NewJSONFileBackend(path), nil)
	assert.Empty(t, s.snapshot())
}

func TestJSONFileBackend_RoundTripThroughFreshLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.json")
	ctx := context.Background()

	cfg := CommunityConfig{
		CategoryID:         "cat-1",
		JoinChannelID:      "join-1",
		InterfaceChannelID: "iface-1",
		InterfaceMessageID: "msg-9",
	}

	s := Open(ctx, NewJSONFileBackend(path), nil)
	require.NoError(t, s.Put(ctx, "guild-1", cfg))

	fresh := Open(ctx, NewJSONFileBackend(path), nil)
	got, ok := fresh.Get("guild-1")
	require.True(t, ok)
	assert.Equal(t, cfg, got)
}

func TestJSONFileBackend_FileLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	b := NewJSONFileBackend(path)

	require.NoError(t, b.WriteAll(context.Background(), map[string]CommunityConfig{
		"guild-1": {CategoryID: "c", JoinChannelID: "j", InterfaceChannelID: "i"},
	}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var raw map[string]map[string]string
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, map[string]string{
		"categoryId":         "c",
		"joinChannelId":      "j",
		"interfaceChannelId": "i",
	}, raw["guild-1"])

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
