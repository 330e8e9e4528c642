// ABOUTME: SQLite backend for the configuration store using modernc.org/sqlite
// ABOUTME: Rewrites the community_configs table wholesale inside one transaction

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteBackend persists community configs in a SQLite database.
type SQLiteBackend struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteBackend opens (or creates) the database at path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteBackend(path string) (*SQLiteBackend, error) {
	logger := slog.Default().With("component", "sqlite")

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// A single connection keeps :memory: databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	b := &SQLiteBackend{
		db:     db,
		logger: logger,
	}

	if err := b.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite backend initialized", "path", path)
	return b, nil
}

// createSchema creates the database tables if they don't exist
func (b *SQLiteBackend) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS community_configs (
			guild_id             TEXT PRIMARY KEY,
			category_id          TEXT NOT NULL,
			join_channel_id      TEXT NOT NULL,
			interface_channel_id TEXT NOT NULL,
			interface_message_id TEXT,
			updated_at           TEXT NOT NULL
		);
	`
	_, err := b.db.Exec(schema)
	return err
}

// ReadAll loads every row.
func (b *SQLiteBackend) ReadAll(ctx context.Context) (map[string]CommunityConfig, error) {
	rows, err := b.db.QueryContext(ctx, `
		SELECT guild_id, category_id, join_channel_id, interface_channel_id, interface_message_id
		FROM community_configs
	`)
	if err != nil {
		return nil, fmt.Errorf("querying community configs: %w", err)
	}
	defer rows.Close()

	configs := make(map[string]CommunityConfig)
	for rows.Next() {
		var guildID string
		var cfg CommunityConfig
		var messageID sql.NullString
		if err := rows.Scan(&guildID, &cfg.CategoryID, &cfg.JoinChannelID, &cfg.InterfaceChannelID, &messageID); err != nil {
			return nil, fmt.Errorf("scanning community config: %w", err)
		}
		cfg.InterfaceMessageID = messageID.String
		configs[guildID] = cfg
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating community configs: %w", err)
	}
	return configs, nil
}

// WriteAll replaces the table contents with configs.
func (b *SQLiteBackend) WriteAll(ctx context.Context, configs map[string]CommunityConfig) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM community_configs`); err != nil {
		return fmt.Errorf("clearing community configs: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO community_configs
			(guild_id, category_id, join_channel_id, interface_channel_id, interface_message_id, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for guildID, cfg := range configs {
		var messageID sql.NullString
		if cfg.InterfaceMessageID != "" {
			messageID = sql.NullString{String: cfg.InterfaceMessageID, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, guildID, cfg.CategoryID, cfg.JoinChannelID, cfg.InterfaceChannelID, messageID, now); err != nil {
			return fmt.Errorf("inserting config for %s: %w", guildID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing community configs: %w", err)
	}
	return nil
}

// Close closes the database connection
func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}
