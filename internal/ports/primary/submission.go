// Package primary defines the primary ports (driving adapters) of the application.
package primary

import (
	"context"
	"time"

	coresubmission "github.com/example/efiling/internal/core/submission"
)

// SubmissionService defines the primary port for presenter-driven operations.
type SubmissionService interface {
	// CreateSubmission opens a new submission.
	CreateSubmission(ctx context.Context, req CreateSubmissionRequest) (*Submission, error)

	// GetSubmission retrieves a submission by ID.
	GetSubmission(ctx context.Context, submissionID string) (*Submission, error)

	// ListSubmissions lists up to limit submissions in a status.
	ListSubmissions(ctx context.Context, status coresubmission.Status, limit int) ([]*Submission, error)

	// CompleteSubmission moves an OPEN submission to PROCESSING.
	CompleteSubmission(ctx context.Context, submissionID, confirmationReference string) (*Submission, error)

	// ConfirmSubmission moves a PROCESSING submission to SUBMITTED once payment
	// (if any) is settled.
	ConfirmSubmission(ctx context.Context, submissionID, paymentReference string) (*Submission, error)

	// RejectByVirusScan moves a submission awaiting conversion to REJECTED_BY_VIRUS_SCAN.
	RejectByVirusScan(ctx context.Context, submissionID, fileID string) (*Submission, error)

	// ListPaidSubmissions lists paid submissions in the given statuses since a date.
	ListPaidSubmissions(ctx context.Context, statuses []coresubmission.Status, since time.Time) ([]*Submission, error)

	// History returns the status changes of a submission.
	History(ctx context.Context, submissionID string) ([]*StatusChange, error)
}

// CreateSubmissionRequest contains parameters for opening a submission.
type CreateSubmissionRequest struct {
	PresenterEmail  string `validate:"required,email"`
	CompanyNumber   string `validate:"required,alphanum,min=6,max=10"`
	CompanyName     string `validate:"required"`
	FormType        string `validate:"required"`
	FormCategory    string
	SameDay         bool
	FeeOnSubmission string       `validate:"omitempty,numeric"`
	Files           []FileUpload `validate:"dive"`
}

// FileUpload is a file attached at creation.
type FileUpload struct {
	FileID         string `validate:"required"`
	FileName       string `validate:"required"`
	CoveringLetter bool
}

// Submission represents a submission at the port boundary.
type Submission struct {
	ID                    string
	Status                coresubmission.Status
	Files                 []File
	ConfirmationReference string
	PresenterEmail        string
	CompanyNumber         string
	CompanyName           string
	FormType              string
	FormCategory          string
	SameDay               bool
	FeeOnSubmission       string
	PaymentReference      string
	Barcode               string
	CreatedAt             time.Time
	SubmittedAt           time.Time
	LastModifiedAt        time.Time
}

// File represents a submission file at the port boundary.
type File struct {
	FileID           string
	FileName         string
	ConversionStatus coresubmission.FileStatus
	ConvertedFileID  string
	CoveringLetter   bool
}

// StatusChange is one entry of a submission's history.
type StatusChange struct {
	OldStatus coresubmission.Status
	NewStatus coresubmission.Status
	Actor     string
	ChangedAt time.Time
}
