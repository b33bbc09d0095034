// Package secondary defines the secondary ports (driven adapters) for the application.
// These are the interfaces through which the application drives external systems.
package secondary

import (
	"context"
	"errors"
	"time"

	coresubmission "github.com/example/efiling/internal/core/submission"
)

// Store errors. Adapters wrap these so callers can match with errors.Is.
var (
	// ErrNotFound means no document matched the id or barcode.
	ErrNotFound = errors.New("not found")
	// ErrConflict means a conditional write lost: the version or the expected
	// status no longer matched the stored document.
	ErrConflict = errors.New("concurrent modification")
)

// SubmissionRepository defines the secondary port for submission persistence.
// Every mutating call is conditional so concurrent writers cannot lose updates.
type SubmissionRepository interface {
	// Create persists a new submission with Version 1.
	Create(ctx context.Context, submission *SubmissionRecord) error

	// Read retrieves a submission by its ID.
	Read(ctx context.Context, id string) (*SubmissionRecord, error)

	// ReadByBarcode retrieves the submission carrying a barcode.
	ReadByBarcode(ctx context.Context, barcode string) (*SubmissionRecord, error)

	// UpdateSubmission replaces the stored document if its version still equals
	// submission.Version, then bumps submission.Version.
	UpdateSubmission(ctx context.Context, submission *SubmissionRecord) error

	// UpdateSubmissionStatus moves a submission from one status to another.
	// Returns ErrConflict if the stored status is no longer from.
	UpdateSubmissionStatus(ctx context.Context, id string, from, to coresubmission.Status, at time.Time) error

	// UpdateSubmissionStatusByBarcode is UpdateSubmissionStatus keyed by barcode.
	UpdateSubmissionStatusByBarcode(ctx context.Context, barcode string, from, to coresubmission.Status, at time.Time) error

	// UpdateBarcode sets the barcode of a submission that has none yet.
	UpdateBarcode(ctx context.Context, id, barcode string, at time.Time) error

	// FindByStatus returns up to limit submissions in a status, oldest first.
	// A limit <= 0 means no limit.
	FindByStatus(ctx context.Context, status coresubmission.Status, limit int) ([]*SubmissionRecord, error)

	// FindDelayedSubmissions returns submissions in status whose LastModifiedAt
	// is at or before olderThan.
	FindDelayedSubmissions(ctx context.Context, status coresubmission.Status, olderThan time.Time) ([]*SubmissionRecord, error)

	// FindPaidSubmissions returns submissions with a payment reference, in one
	// of statuses, submitted at or after since.
	FindPaidSubmissions(ctx context.Context, statuses []coresubmission.Status, since time.Time) ([]*SubmissionRecord, error)
}

// SubmissionRecord represents a submission as stored in persistence.
type SubmissionRecord struct {
	ID                    string
	Status                coresubmission.Status
	Files                 []FileRecord
	ConfirmationReference string
	PresenterEmail        string
	CompanyNumber         string
	CompanyName           string
	FormType              string
	FormCategory          string
	SameDay               bool
	FeeOnSubmission       string // Decimal string, empty means no fee
	PaymentReference      string
	Barcode               string // Empty means not yet issued
	CreatedAt             time.Time
	SubmittedAt           time.Time // Zero until completed by the presenter
	LastModifiedAt        time.Time
	Version               int64
}

// FileRecord is a file owned by a submission.
type FileRecord struct {
	FileID           string
	FileName         string
	ConversionStatus coresubmission.FileStatus
	ConvertedFileID  string // Set iff ConversionStatus is converted
	CoveringLetter   bool
}

// FileStatuses returns the conversion status of every file in order.
func (r *SubmissionRecord) FileStatuses() []coresubmission.FileStatus {
	out := make([]coresubmission.FileStatus, len(r.Files))
	for i, f := range r.Files {
		out[i] = f.ConversionStatus
	}
	return out
}

// FindFile returns the index of a file, or -1.
func (r *SubmissionRecord) FindFile(fileID string) int {
	for i, f := range r.Files {
		if f.FileID == fileID {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy so callers can mutate without aliasing a cache.
func (r *SubmissionRecord) Clone() *SubmissionRecord {
	c := *r
	c.Files = append([]FileRecord(nil), r.Files...)
	return &c
}

// StatusHistoryRepository records every status change of a submission.
type StatusHistoryRepository interface {
	// Record appends a history entry.
	Record(ctx context.Context, entry *StatusHistoryRecord) error

	// ListBySubmission returns the history of a submission, oldest first.
	ListBySubmission(ctx context.Context, submissionID string) ([]*StatusHistoryRecord, error)
}

// StatusHistoryRecord is one status change.
type StatusHistoryRecord struct {
	ID           int64
	SubmissionID string
	OldStatus    coresubmission.Status
	NewStatus    coresubmission.Status
	Actor        string // Entry point that caused the change, e.g. "sweep:submit-to-fes"
	ChangedAt    time.Time
}
