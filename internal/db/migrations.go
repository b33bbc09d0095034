package db

import (
	"database/sql"
	"fmt"
)

// Migration represents a database migration
type Migration struct {
	Version int
	Name    string
	Up      func(*sql.Tx) error
}

// migrations is the list of all migrations in order
var migrations = []Migration{
	{
		Version: 1,
		Name:    "create_submissions",
		Up:      migrationV1,
	},
	{
		Version: 2,
		Name:    "add_submission_status_history",
		Up:      migrationV2,
	},
	{
		Version: 3,
		Name:    "add_notification_outbox",
		Up:      migrationV3,
	},
	{
		Version: 4,
		Name:    "add_conversion_requests",
		Up:      migrationV4,
	},
}

// LatestVersion returns the version of the newest migration.
func LatestVersion() int {
	return migrations[len(migrations)-1].Version
}

// CurrentVersion returns the highest applied migration version.
func CurrentVersion(database *sql.DB) (int, error) {
	var v int
	if err := database.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("failed to get current schema version: %w", err)
	}
	return v, nil
}

// RunMigrations applies every migration newer than the recorded version, each
// in its own transaction.
func RunMigrations(database *sql.DB) error {
	_, err := ApplyPending(database)
	return err
}

// ApplyPending is RunMigrations that also reports how many migrations ran.
func ApplyPending(database *sql.DB) (int, error) {
	if err := createVersionTable(database); err != nil {
		return 0, err
	}

	currentVersion, err := CurrentVersion(database)
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, err := database.Begin()
		if err != nil {
			return applied, fmt.Errorf("failed to begin transaction for migration %d: %w", migration.Version, err)
		}

		if err := migration.Up(tx); err != nil {
			tx.Rollback()
			return applied, fmt.Errorf("migration %d failed: %w", migration.Version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", migration.Version); err != nil {
			tx.Rollback()
			return applied, fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return applied, fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
		applied++
	}

	return applied, nil
}

func createVersionTable(database *sql.DB) error {
	_, err := database.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}
	return nil
}

func migrationV1(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS submissions (
			id TEXT PRIMARY KEY,
			status TEXT NOT NULL DEFAULT 'OPEN',
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
	`)
	return err
}

func migrationV2(tx *sql.Tx) error {
	_, err := tx.Exec(`
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
	`)
	return err
}

func migrationV3(tx *sql.Tx) error {
	_, err := tx.Exec(`
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
	`)
	return err
}

func migrationV4(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS conversion_requests (
			submission_id TEXT NOT NULL,
			file_id TEXT NOT NULL,
			attempts INTEGER NOT NULL DEFAULT 1,
			requested_at INTEGER NOT NULL,
			PRIMARY KEY (submission_id, file_id)
		)
	`)
	return err
}
