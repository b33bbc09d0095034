package submission

import (
	"errors"
	"fmt"
)

// Error taxonomy. Callers match with errors.Is.
var (
	ErrSubmissionNotFound       = errors.New("submission not found")
	ErrFileNotFound             = errors.New("file not found")
	ErrSubmissionIncorrectState = errors.New("submission in incorrect state")
	ErrFileIncorrectState       = errors.New("file in incorrect state")
	ErrInvalidTransition        = errors.New("invalid status transition")
	ErrInvalidFileStatus        = errors.New("invalid file status update")
)

// GuardResult represents the outcome of a guard evaluation.
type GuardResult struct {
	Allowed bool
	Reason  string
	Err     error // Sentinel the reason belongs to
}

// Error converts the guard result to an error if not allowed.
func (r GuardResult) Error() error {
	if r.Allowed {
		return nil
	}
	if r.Err == nil {
		return fmt.Errorf("%s", r.Reason)
	}
	return fmt.Errorf("%w: %s", r.Err, r.Reason)
}

func deny(err error, format string, args ...any) GuardResult {
	return GuardResult{Allowed: false, Reason: fmt.Sprintf(format, args...), Err: err}
}

// FileStatusUpdateContext provides context for conversion callback guards.
type FileStatusUpdateContext struct {
	SubmissionID     string
	SubmissionExists bool
	SubmissionStatus Status
	FileID           string
	FileExists       bool
	FileStatus       FileStatus
	NewFileStatus    FileStatus
	ConvertedFileID  string
}

// CanUpdateFileStatus evaluates whether a conversion result can be recorded.
// Rules:
// - Submission must exist
// - File must belong to the submission
// - Submission must be QUEUED_FOR_CONVERSION
// - File must be queued
// - New status must be converted (with a converted file id) or failed
func CanUpdateFileStatus(ctx FileStatusUpdateContext) GuardResult {
	if !ctx.SubmissionExists {
		return deny(ErrSubmissionNotFound, "submission %s", ctx.SubmissionID)
	}
	if !ctx.FileExists {
		return deny(ErrFileNotFound, "file %s in submission %s", ctx.FileID, ctx.SubmissionID)
	}
	if ctx.SubmissionStatus != StatusQueuedForConversion {
		return deny(ErrSubmissionIncorrectState, "submission %s is %s, expected %s",
			ctx.SubmissionID, ctx.SubmissionStatus, StatusQueuedForConversion)
	}
	if ctx.FileStatus != FileStatusQueued {
		return deny(ErrFileIncorrectState, "file %s is %s, expected %s",
			ctx.FileID, ctx.FileStatus, FileStatusQueued)
	}

	switch ctx.NewFileStatus {
	case FileStatusConverted:
		if ctx.ConvertedFileID == "" {
			return deny(ErrInvalidFileStatus, "converted file %s requires a converted file id", ctx.FileID)
		}
	case FileStatusFailed:
		if ctx.ConvertedFileID != "" {
			return deny(ErrInvalidFileStatus, "failed file %s cannot carry a converted file id", ctx.FileID)
		}
	default:
		return deny(ErrInvalidFileStatus, "file %s cannot be moved to %s", ctx.FileID, ctx.NewFileStatus)
	}

	return GuardResult{Allowed: true}
}

// TransitionContext provides context for a plain status transition.
type TransitionContext struct {
	SubmissionID string
	Exists       bool
	Current      Status
	Target       Status
}

// CanTransitionSubmission evaluates whether a submission may move to Target.
// Rules:
// - Submission must exist
// - Current -> Target must be a legal edge
func CanTransitionSubmission(ctx TransitionContext) GuardResult {
	if !ctx.Exists {
		return deny(ErrSubmissionNotFound, "submission %s", ctx.SubmissionID)
	}
	if !CanTransition(ctx.Current, ctx.Target) {
		return deny(ErrSubmissionIncorrectState, "submission %s cannot move from %s to %s",
			ctx.SubmissionID, ctx.Current, ctx.Target)
	}
	return GuardResult{Allowed: true}
}

// FesOutcomeContext provides context for the FES completion callback.
type FesOutcomeContext struct {
	Barcode string
	Exists  bool
	Current Status
}

// CanRecordFesOutcome evaluates whether an FES outcome can be applied.
// Rules:
// - A submission must carry the barcode
// - Submission must be SUBMITTED_TO_FES
func CanRecordFesOutcome(ctx FesOutcomeContext) GuardResult {
	if !ctx.Exists {
		return deny(ErrSubmissionNotFound, "no submission with barcode %s", ctx.Barcode)
	}
	if ctx.Current != StatusSubmittedToFes {
		return deny(ErrSubmissionIncorrectState, "submission with barcode %s is %s, expected %s",
			ctx.Barcode, ctx.Current, StatusSubmittedToFes)
	}
	return GuardResult{Allowed: true}
}

// CompleteContext provides context for completing an open submission.
type CompleteContext struct {
	SubmissionID string
	Exists       bool
	Current      Status
	FileCount    int
}

// CanCompleteSubmission evaluates whether the presenter can complete a submission.
// Rules:
// - Submission must be OPEN
// - At least one file must be attached
func CanCompleteSubmission(ctx CompleteContext) GuardResult {
	if r := CanTransitionSubmission(TransitionContext{
		SubmissionID: ctx.SubmissionID,
		Exists:       ctx.Exists,
		Current:      ctx.Current,
		Target:       StatusProcessing,
	}); !r.Allowed {
		return r
	}
	if ctx.FileCount == 0 {
		return deny(ErrSubmissionIncorrectState, "submission %s has no files", ctx.SubmissionID)
	}
	return GuardResult{Allowed: true}
}
