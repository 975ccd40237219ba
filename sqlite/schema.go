package sqlite

import (
	"context"
	"fmt"
)

var schemaSQL = []string{
	`CREATE TABLE IF NOT EXISTS flowcharts (
		id              TEXT PRIMARY KEY,
		title           TEXT NOT NULL DEFAULT '',
		description     TEXT NOT NULL DEFAULT '',
		version         TEXT NOT NULL DEFAULT '',
		author          TEXT NOT NULL DEFAULT '',
		tags            TEXT NOT NULL DEFAULT '[]',
		department      TEXT NOT NULL DEFAULT '',
		approval_status TEXT NOT NULL DEFAULT '',
		last_modified   INTEGER NOT NULL,
		created_at      INTEGER NOT NULL DEFAULT (unixepoch())
	)`,
	`CREATE TABLE IF NOT EXISTS flowchart_nodes (
		flowchart_id TEXT NOT NULL REFERENCES flowcharts(id) ON DELETE CASCADE,
		id           TEXT NOT NULL,
		ordinal      INTEGER NOT NULL,
		type         TEXT NOT NULL,
		x            REAL NOT NULL DEFAULT 0,
		y            REAL NOT NULL DEFAULT 0,
		width        REAL NOT NULL DEFAULT 0,
		height       REAL NOT NULL DEFAULT 0,
		data         TEXT NOT NULL DEFAULT '{}',
		PRIMARY KEY (flowchart_id, id)
	)`,
	`CREATE TABLE IF NOT EXISTS flowchart_edges (
		flowchart_id  TEXT NOT NULL,
		id            TEXT NOT NULL,
		ordinal       INTEGER NOT NULL,
		source_id     TEXT NOT NULL,
		target_id     TEXT NOT NULL,
		source_handle TEXT NOT NULL DEFAULT '',
		target_handle TEXT NOT NULL DEFAULT '',
		type          TEXT NOT NULL,
		data          TEXT NOT NULL DEFAULT '{}',
		PRIMARY KEY (flowchart_id, id),
		FOREIGN KEY (flowchart_id, source_id) REFERENCES flowchart_nodes(flowchart_id, id) ON DELETE CASCADE,
		FOREIGN KEY (flowchart_id, target_id) REFERENCES flowchart_nodes(flowchart_id, id) ON DELETE CASCADE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_flowcharts_last_modified ON flowcharts(last_modified DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_flowchart_edges_source ON flowchart_edges(flowchart_id, source_id)`,
	`CREATE INDEX IF NOT EXISTS idx_flowchart_edges_target ON flowchart_edges(flowchart_id, target_id)`,
}

// CreateSchema creates the flowchart tables if they don't exist.
func (s *Store) CreateSchema(ctx context.Context) error {
	for _, stmt := range schemaSQL {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("flowchart: create schema: %w", err)
		}
	}
	return nil
}

// DropSchema drops the flowchart tables.
func (s *Store) DropSchema(ctx context.Context) error {
	for _, table := range []string{"flowchart_edges", "flowchart_nodes", "flowcharts"} {
		if _, err := s.db.ExecContext(ctx, `DROP TABLE IF EXISTS `+table); err != nil {
			return fmt.Errorf("flowchart: drop %s: %w", table, err)
		}
	}
	return nil
}
