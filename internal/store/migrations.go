package store

import (
	"fmt"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "memory_nodes: STEM/BRANCH/LEAF memory tree",
		SQL: `
CREATE TABLE memory_nodes (
    id                  TEXT PRIMARY KEY,
    user_id             TEXT NOT NULL,
    domain              TEXT NOT NULL DEFAULT 'general',
    priority            TEXT NOT NULL CHECK (priority IN ('STEM', 'BRANCH', 'LEAF')),
    node_type           TEXT NOT NULL CHECK (node_type IN ('identity', 'habit', 'emotion', 'event')),
    content             TEXT NOT NULL,

    -- Reinforcement
    confidence          REAL NOT NULL DEFAULT 0.5,
    reinforcement_count INTEGER NOT NULL DEFAULT 0,
    root_alignment      TEXT NOT NULL DEFAULT 'neutral',

    -- Lifecycle
    created_at          INTEGER NOT NULL,
    updated_at          INTEGER NOT NULL,
    last_used_at        INTEGER NOT NULL,
    leaf_since          INTEGER
);

CREATE INDEX idx_nodes_user_priority ON memory_nodes(user_id, priority);
CREATE INDEX idx_nodes_user_domain   ON memory_nodes(user_id, domain);
CREATE INDEX idx_nodes_last_used     ON memory_nodes(last_used_at);
`,
	},
	{
		Version:     2,
		Description: "root_profiles: persona anchor per user",
		SQL: `
CREATE TABLE root_profiles (
    user_id          TEXT PRIMARY KEY,
    persona_summary  TEXT NOT NULL DEFAULT '',
    traits           TEXT NOT NULL DEFAULT '{}',
    core_values      TEXT NOT NULL DEFAULT '[]',
    confidence_score REAL NOT NULL DEFAULT 0.5,
    created_at       INTEGER NOT NULL,
    last_updated_at  INTEGER NOT NULL
);
`,
	},
	{
		Version:     3,
		Description: "exchanges: chat history per user",
		SQL: `
CREATE TABLE exchanges (
    id          INTEGER PRIMARY KEY,
    user_id     TEXT NOT NULL,
    message     TEXT NOT NULL,
    response    TEXT NOT NULL,
    memory_used TEXT NOT NULL DEFAULT '{}',
    created_at  INTEGER NOT NULL
);

CREATE INDEX idx_exchanges_user_created ON exchanges(user_id, created_at DESC);
`,
	},
}

func (db *DB) migrate() error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  INTEGER NOT NULL DEFAULT (strftime('%s', 'now') * 1000)
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM schema_versions WHERE version = ?", m.Version).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_versions (version, description) VALUES (?, ?)",
			m.Version, m.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// SchemaVersion returns the current schema version.
func (db *DB) SchemaVersion() (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_versions").Scan(&version)
	return version, err
}
