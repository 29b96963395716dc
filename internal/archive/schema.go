package archive

// Schema contains SQL schema definitions for the archive
const Schema = `
-- Runs table, one row per exporter invocation
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    started_at DATETIME NOT NULL,
    finished_at DATETIME,
    processed INTEGER NOT NULL DEFAULT 0,
    exported INTEGER NOT NULL DEFAULT 0,
    failed INTEGER NOT NULL DEFAULT 0
);

-- Receipts table, keyed by mailbox UID so re-fetched messages overwrite
-- their previous row instead of duplicating it
CREATE TABLE IF NOT EXISTS receipts (
    uid INTEGER PRIMARY KEY,
    run_id TEXT NOT NULL,
    date DATETIME NOT NULL,
    type TEXT NOT NULL,
    order_id TEXT,
    currency TEXT,
    total_amount REAL,
    metadata TEXT,
    status TEXT NOT NULL,
    error TEXT,
    archived_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (run_id) REFERENCES runs(id)
);

-- Create indexes for faster queries
CREATE INDEX IF NOT EXISTS idx_receipts_type ON receipts(type);
CREATE INDEX IF NOT EXISTS idx_receipts_status ON receipts(status);
CREATE INDEX IF NOT EXISTS idx_receipts_date ON receipts(date);
CREATE INDEX IF NOT EXISTS idx_receipts_run_id ON receipts(run_id);
`
