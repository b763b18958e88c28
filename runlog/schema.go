package runlog

import "database/sql"

// Schema contains the complete DDL for the run-history tables.
// Call Init(db) to apply it, or use this constant to embed in your own
// schema management.
const Schema = `
-- Ingestion runs
CREATE TABLE IF NOT EXISTS ingestion_runs (
    run_id TEXT PRIMARY KEY,
    started_at INTEGER NOT NULL,
    finished_at INTEGER,
    source_root TEXT NOT NULL,
    dest_root TEXT NOT NULL,
    total_files INTEGER NOT NULL DEFAULT 0,
    accepted INTEGER NOT NULL DEFAULT 0,
    rejected INTEGER NOT NULL DEFAULT 0,
    missing INTEGER NOT NULL DEFAULT 0,
    skipped INTEGER NOT NULL DEFAULT 0,
    parallel INTEGER NOT NULL DEFAULT 0,
    workers INTEGER NOT NULL DEFAULT 1,
    status TEXT NOT NULL,
    error_message TEXT,
    created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
);
CREATE INDEX IF NOT EXISTS idx_runs_started ON ingestion_runs(started_at DESC);
CREATE INDEX IF NOT EXISTS idx_runs_status ON ingestion_runs(status);

-- Per-file audit trail
CREATE TABLE IF NOT EXISTS run_audit (
    entry_id TEXT PRIMARY KEY,
    run_id TEXT NOT NULL,
    timestamp INTEGER NOT NULL,
    source_path TEXT NOT NULL,
    dest_path TEXT,
    outcome TEXT NOT NULL,
    error_message TEXT,
    duration_ms INTEGER,
    created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
);
CREATE INDEX IF NOT EXISTS idx_audit_run ON run_audit(run_id, timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_audit_outcome ON run_audit(outcome);

-- Run metrics timeseries
CREATE TABLE IF NOT EXISTS run_metrics (
    metric_id TEXT PRIMARY KEY DEFAULT ('met_' || hex(randomblob(16))),
    run_id TEXT,
    metric_name TEXT NOT NULL,
    timestamp INTEGER NOT NULL,
    value REAL NOT NULL,
    unit TEXT,
    created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
);
CREATE INDEX IF NOT EXISTS idx_metrics_run ON run_metrics(run_id, metric_name);
CREATE INDEX IF NOT EXISTS idx_metrics_name_time ON run_metrics(metric_name, timestamp DESC);
`

// Init applies the run-history schema to the given database.
func Init(db *sql.DB) error {
	_, err := db.Exec(Schema)
	return err
}
