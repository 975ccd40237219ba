package postgres

import "context"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS flowcharts (
    id              TEXT PRIMARY KEY,
    title           TEXT NOT NULL DEFAULT '',
    description     TEXT NOT NULL DEFAULT '',
    version         TEXT NOT NULL DEFAULT '',
    author          TEXT NOT NULL DEFAULT '',
    tags            TEXT[] NOT NULL DEFAULT '{}',
    department      TEXT NOT NULL DEFAULT '',
    approval_status TEXT NOT NULL DEFAULT '',
    last_modified   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS flowchart_nodes (
    flowchart_id TEXT NOT NULL REFERENCES flowcharts(id) ON DELETE CASCADE,
    id           TEXT NOT NULL,
    ordinal      INTEGER NOT NULL,
    type         TEXT NOT NULL,
    x            DOUBLE PRECISION NOT NULL DEFAULT 0,
    y            DOUBLE PRECISION NOT NULL DEFAULT 0,
    width        DOUBLE PRECISION NOT NULL DEFAULT 0,
    height       DOUBLE PRECISION NOT NULL DEFAULT 0,
    data         JSONB NOT NULL DEFAULT '{}',
    PRIMARY KEY (flowchart_id, id)
);

CREATE TABLE IF NOT EXISTS flowchart_edges (
    flowchart_id  TEXT NOT NULL,
    id            TEXT NOT NULL,
    ordinal       INTEGER NOT NULL,
    source_id     TEXT NOT NULL,
    target_id     TEXT NOT NULL,
    source_handle TEXT NOT NULL DEFAULT '',
    target_handle TEXT NOT NULL DEFAULT '',
    type          TEXT NOT NULL,
    data          JSONB NOT NULL DEFAULT '{}',
    PRIMARY KEY (flowchart_id, id),
    FOREIGN KEY (flowchart_id, source_id) REFERENCES flowchart_nodes(flowchart_id, id) ON DELETE CASCADE,
    FOREIGN KEY (flowchart_id, target_id) REFERENCES flowchart_nodes(flowchart_id, id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_flowcharts_last_modified ON flowcharts(last_modified DESC);
CREATE INDEX IF NOT EXISTS idx_flowchart_edges_source   ON flowchart_edges(flowchart_id, source_id);
CREATE INDEX IF NOT EXISTS idx_flowchart_edges_target   ON flowchart_edges(flowchart_id, target_id);
`

// CreateSchema creates the flowchart tables if they don't exist.
func (s *PGStore) CreateSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schemaSQL)
	return err
}

// DropSchema drops the flowchart tables.
func (s *PGStore) DropSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `DROP TABLE IF EXISTS flowchart_edges, flowchart_nodes, flowcharts CASCADE;`)
	return err
}
