package primary

import (
	"context"

	coresubmission "github.com/example/efiling/internal/core/submission"
)

// LifecycleService defines the primary port for event-driven status changes.
type LifecycleService interface {
	// UpdateConversionFileStatus records a converter result for one file and
	// recomputes the submission status.
	UpdateConversionFileStatus(ctx context.Context, req UpdateFileStatusRequest) (*UpdateFileStatusResponse, error)

	// UpdateSubmissionStatusByBarcode records the FES outcome for a barcode.
	UpdateSubmissionStatusByBarcode(ctx context.Context, barcode string, outcome coresubmission.FesStatus) (*Submission, error)

	// HandleDelayedSubmissions reports submissions stuck in PROCESSING.
	// It never changes submission status.
	HandleDelayedSubmissions(ctx context.Context) (*DelayedReport, error)
}

// UpdateFileStatusRequest contains the conversion callback payload.
type UpdateFileStatusRequest struct {
	SubmissionID    string
	FileID          string
	Status          coresubmission.FileStatus
	ConvertedFileID string // Required when Status is converted
}

// UpdateFileStatusResponse reports the aggregate after the update.
type UpdateFileStatusResponse struct {
	SubmissionID   string
	PreviousStatus coresubmission.Status
	Status         coresubmission.Status
}

// DelayedReport summarises a delayed-submission run.
type DelayedReport struct {
	Delayed       []string // Submission ids found delayed
	Notifications int      // Notifications dispatched
}
