// Package sqlite_test contains integration tests for SQLite repositories.
//
// # Schema Protection
//
// This file is the SINGLE POINT where the database schema is loaded for tests.
// All test setup functions use db.GetSchemaSQL() so tests run against the
// authoritative schema. Do not hardcode CREATE TABLE statements in test files.
package sqlite_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	coresubmission "github.com/example/efiling/internal/core/submission"
	"github.com/example/efiling/internal/db"
	"github.com/example/efiling/internal/ports/secondary"
)

var baseTime = time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

// setupTestDB creates an in-memory database with the authoritative schema.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	testDB, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	// One connection, one in-memory database.
	testDB.SetMaxOpenConns(1)

	if _, err := testDB.Exec(db.GetSchemaSQL()); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	t.Cleanup(func() {
		testDB.Close()
	})

	return testDB
}

// newSubmission returns a submission record with two queued files.
func newSubmission(id string, status coresubmission.Status) *secondary.SubmissionRecord {
	return &secondary.SubmissionRecord{
		ID:             id,
		Status:         status,
		PresenterEmail: "presenter@example.com",
		CompanyNumber:  "00006400",
		CompanyName:    "ACME LIMITED",
		FormType:       "AD01",
		FormCategory:   "change-of-address",
		Files: []secondary.FileRecord{
			{FileID: "F1", FileName: "letter.pdf", ConversionStatus: coresubmission.FileStatusQueued, CoveringLetter: true},
			{FileID: "F2", FileName: "form.pdf", ConversionStatus: coresubmission.FileStatusQueued},
		},
		CreatedAt:      baseTime,
		LastModifiedAt: baseTime,
	}
}

// seedSubmission creates a submission through the repository.
func seedSubmission(t *testing.T, repo secondary.SubmissionRepository, s *secondary.SubmissionRecord) *secondary.SubmissionRecord {
	t.Helper()
	if err := repo.Create(context.Background(), s); err != nil {
		t.Fatalf("failed to seed submission %s: %v", s.ID, err)
	}
	return s
}
