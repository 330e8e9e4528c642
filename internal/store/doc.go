// Package store keeps per-community provisioning configuration.
//
// # Architecture
//
// ConfigStore holds the canonical mapping in memory and writes the whole
// mapping through a Backend on every Put:
//
//   - JSONFileBackend: one pretty-printed settings file, replaced atomically
//   - SQLiteBackend: a community_configs table rewritten in one transaction
//   - MockBackend: in-memory backend with injectable read/write failures
//
// NewBackend selects a backend from the configured driver name.
//
// # Failure Semantics
//
// A failed load at Open is logged and leaves the store empty. A failed write
// leaves the in-memory update in place and returns an error wrapping
// ErrPersist, so callers may treat it as a warning.
//
// # Data Model
//
// CommunityConfig records the category, the spawner channel, the interface
// channel, and the id of the most recently posted control panel. It is
// serialized with camelCase keys:
//
//	{
//	  "123456789": {
//	    "categoryId": "...",
//	    "joinChannelId": "...",
//	    "interfaceChannelId": "...",
//	    "interfaceMessageId": "..."
//	  }
//	}
package store
