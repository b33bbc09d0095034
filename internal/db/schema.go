package db

import (
	"database/sql"
	"fmt"
)

// SchemaSQL is the complete schema for fresh installs. It reflects the state
// after all migrations.
//
// This is the single source of truth for the local store schema. Repository
// tests create their tables from GetSchemaSQL() rather than hardcoding DDL, so
// a column referenced by code but missing here fails with "no such column".
//
// When adding columns or tables:
//  1. Add a migration in migrations.go
//  2. Update SchemaSQL here
//
// Timestamps are unix milliseconds so range predicates compare exactly.
const SchemaSQL = `
-- Submissions (one row per presenter submission, files embedded as JSON)
CREATE TABLE IF NOT EXISTS submissions (
	id TEXT PRIMARY KEY,
	status TEXT NOT NULL CHECK(status IN (
		'OPEN', 'PROCESSING', 'SUBMITTED', 'QUEUED_FOR_CONVERSION',
		'READY_FOR_FES', 'REJECTED_BY_DOCUMENT_CONVERTER', 'REJECTED_BY_VIRUS_SCAN',
		'SUBMITTED_TO_FES', 'ACCEPTED_BY_FES', 'REJECTED_BY_FES'
	)) DEFAULT 'OPEN',
	confirmation_reference TEXT,
	presenter_email TEXT NOT NULL,
	company_number TEXT NOT NULL,
	company_name TEXT NOT NULL,
	form_type TEXT NOT NULL,
	form_category TEXT,
	same_day INTEGER NOT NULL DEFAULT 0,
	fee_on_submission TEXT,
	payment_reference TEXT,
	barcode TEXT,
	files TEXT NOT NULL DEFAULT '[]',
	created_at INTEGER NOT NULL,
	submitted_at INTEGER,
	last_modified_at INTEGER NOT NULL,
	version INTEGER NOT NULL DEFAULT 1
);

CREATE INDEX IF NOT EXISTS idx_submissions_status ON submissions(status, last_modified_at);
CREATE UNIQUE INDEX IF NOT EXISTS idx_submissions_barcode ON submissions(barcode) WHERE barcode IS NOT NULL;

-- Status history (append-only audit of every transition)
CREATE TABLE IF NOT EXISTS submission_status_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	submission_id TEXT NOT NULL,
	old_status TEXT,
	new_status TEXT NOT NULL,
	actor TEXT NOT NULL DEFAULT 'unknown',
	changed_at INTEGER NOT NULL,
	FOREIGN KEY (submission_id) REFERENCES submissions(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_status_history_submission ON submission_status_history(submission_id, id);

-- Notifications (outbox of dispatched notifications)
CREATE TABLE IF NOT EXISTS notifications (
	id TEXT PRIMARY KEY,
	template TEXT NOT NULL,
	recipient TEXT NOT NULL,
	submission_id TEXT,
	data TEXT NOT NULL DEFAULT '{}',
	created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notifications_template ON notifications(template, created_at);
CREATE INDEX IF NOT EXISTS idx_notifications_submission ON notifications(submission_id);

-- Conversion requests (outbox of files handed to the document converter)
CREATE TABLE IF NOT EXISTS conversion_requests (
	submission_id TEXT NOT NULL,
	file_id TEXT NOT NULL,
	attempts INTEGER NOT NULL DEFAULT 1,
	requested_at INTEGER NOT NULL,
	PRIMARY KEY (submission_id, file_id)
);
`

// InitSchema brings database up to date. A fresh database gets SchemaSQL and
// every migration marked applied; an existing one runs pending migrations.
func InitSchema(database *sql.DB) error {
	var tableCount int
	err := database.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&tableCount)
	if err != nil {
		return err
	}

	if tableCount > 0 {
		return RunMigrations(database)
	}

	if _, err := database.Exec(SchemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	if err := createVersionTable(database); err != nil {
		return err
	}
	for _, m := range migrations {
		if _, err := database.Exec("INSERT INTO schema_version (version) VALUES (?)", m.Version); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
		}
	}
	return nil
}

// GetSchemaSQL returns the complete schema SQL for test setup.
func GetSchemaSQL() string {
	return SchemaSQL
}
