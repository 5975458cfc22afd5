package postgres

import "context"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS processes (
    id             TEXT PRIMARY KEY,
    name           TEXT NOT NULL,
    description    TEXT NOT NULL DEFAULT '',
    deadline       JSONB,
    deadline_order TEXT NOT NULL DEFAULT '',
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS process_nodes (
    id         TEXT PRIMARY KEY,
    process_id TEXT NOT NULL REFERENCES processes(id) ON DELETE CASCADE,
    seq        INT NOT NULL,
    kind       TEXT NOT NULL,
    pos_x      DOUBLE PRECISION NOT NULL DEFAULT 0,
    pos_y      DOUBLE PRECISION NOT NULL DEFAULT 0,
    attributes JSONB NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS process_edges (
    process_id TEXT NOT NULL REFERENCES processes(id) ON DELETE CASCADE,
    source_id  TEXT NOT NULL REFERENCES process_nodes(id) ON DELETE CASCADE,
    target_id  TEXT NOT NULL REFERENCES process_nodes(id) ON DELETE CASCADE,
    seq        INT NOT NULL,
    PRIMARY KEY (process_id, source_id, target_id)
);

CREATE TABLE IF NOT EXISTS process_tasks (
    process_id   TEXT NOT NULL REFERENCES processes(id) ON DELETE CASCADE,
    id           TEXT NOT NULL,
    seq          INT NOT NULL,
    text         TEXT NOT NULL DEFAULT '',
    due          TEXT NOT NULL DEFAULT '',
    completed    BOOLEAN NOT NULL DEFAULT FALSE,
    completed_by TEXT NOT NULL DEFAULT '',
    completed_at TIMESTAMPTZ,
    node_id      TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (process_id, id)
);

CREATE TABLE IF NOT EXISTS process_submissions (
    process_id   TEXT NOT NULL REFERENCES processes(id) ON DELETE CASCADE,
    node_id      TEXT NOT NULL,
    type         TEXT NOT NULL,
    value        TEXT NOT NULL DEFAULT '',
    file_name    TEXT NOT NULL DEFAULT '',
    completed_by TEXT NOT NULL DEFAULT '',
    completed_at TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (process_id, node_id)
);

CREATE INDEX IF NOT EXISTS idx_process_nodes_process_id ON process_nodes(process_id);
CREATE INDEX IF NOT EXISTS idx_process_tasks_node_id    ON process_tasks(node_id);
`

// CreateSchema creates the process tables if they don't exist.
func (s *PGStore) CreateSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schemaSQL)
	return err
}

// DropSchema drops the process tables.
func (s *PGStore) DropSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx,
		`DROP TABLE IF EXISTS process_submissions, process_tasks, process_edges, process_nodes, processes CASCADE;`)
	return err
}
