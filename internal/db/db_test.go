package db

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func TestOpen_FreshInstallMarksAllMigrationsApplied(t *testing.T) {
	database, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer database.Close()

	v, err := CurrentVersion(database)
	if err != nil {
		t.Fatalf("CurrentVersion() error = %v", err)
	}
	if v != LatestVersion() {
		t.Errorf("CurrentVersion() = %d, want %d", v, LatestVersion())
	}

	for _, table := range []string{"submissions", "submission_status_history", "notifications", "conversion_requests"} {
		var n int
		if err := database.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&n); err != nil {
			t.Fatalf("query table %s: %v", table, err)
		}
		if n != 1 {
			t.Errorf("table %s missing", table)
		}
	}
}

func TestRunMigrations_UpgradesFromVersionOne(t *testing.T) {
	database, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("sql.Open() error = %v", err)
	}
	defer database.Close()
	database.SetMaxOpenConns(1)

	if err := createVersionTable(database); err != nil {
		t.Fatalf("createVersionTable() error = %v", err)
	}
	tx, _ := database.Begin()
	if err := migrationV1(tx); err != nil {
		t.Fatalf("migrationV1() error = %v", err)
	}
	tx.Exec("INSERT INTO schema_version (version) VALUES (1)")
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	applied, err := ApplyPending(database)
	if err != nil {
		t.Fatalf("ApplyPending() error = %v", err)
	}
	if applied != LatestVersion()-1 {
		t.Errorf("ApplyPending() applied %d, want %d", applied, LatestVersion()-1)
	}

	again, err := ApplyPending(database)
	if err != nil {
		t.Fatalf("second ApplyPending() error = %v", err)
	}
	if again != 0 {
		t.Errorf("second ApplyPending() applied %d, want 0", again)
	}
}

func TestOpen_FileDatabaseReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "efiling.db")

	first, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if _, err := first.Exec(`INSERT INTO submissions (id, presenter_email, company_number, company_name, form_type, created_at, last_modified_at)
		VALUES ('SUB-1', 'p@example.com', '00006400', 'ACME', 'AD01', 1, 1)`); err != nil {
		t.Fatalf("insert: %v", err)
	}
	first.Close()

	second, err := Open(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer second.Close()

	var status string
	if err := second.QueryRow("SELECT status FROM submissions WHERE id = 'SUB-1'").Scan(&status); err != nil {
		t.Fatalf("select: %v", err)
	}
	if status != "OPEN" {
		t.Errorf("status = %q, want OPEN", status)
	}
}
