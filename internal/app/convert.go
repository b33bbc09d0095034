package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/efiling/internal/core/submission"
	"github.com/example/efiling/internal/ports/primary"
	"github.com/example/efiling/internal/ports/secondary"
)

func recordToSubmission(r *secondary.SubmissionRecord) *primary.Submission {
	files := make([]primary.File, len(r.Files))
	for i, f := range r.Files {
		files[i] = primary.File{
			FileID:           f.FileID,
			FileName:         f.FileName,
			ConversionStatus: f.ConversionStatus,
			ConvertedFileID:  f.ConvertedFileID,
			CoveringLetter:   f.CoveringLetter,
		}
	}
	return &primary.Submission{
		ID:                    r.ID,
		Status:                r.Status,
		Files:                 files,
		ConfirmationReference: r.ConfirmationReference,
		PresenterEmail:        r.PresenterEmail,
		CompanyNumber:         r.CompanyNumber,
		CompanyName:           r.CompanyName,
		FormType:              r.FormType,
		FormCategory:          r.FormCategory,
		SameDay:               r.SameDay,
		FeeOnSubmission:       r.FeeOnSubmission,
		PaymentReference:      r.PaymentReference,
		Barcode:               r.Barcode,
		CreatedAt:             r.CreatedAt,
		SubmittedAt:           r.SubmittedAt,
		LastModifiedAt:        r.LastModifiedAt,
	}
}

func recordsToSubmissions(records []*secondary.SubmissionRecord) []*primary.Submission {
	out := make([]*primary.Submission, len(records))
	for i, r := range records {
		out[i] = recordToSubmission(r)
	}
	return out
}

// readSubmission reads by id and reports whether it exists. Only store
// failures other than not-found are returned as errors.
func readSubmission(ctx context.Context, repo secondary.SubmissionRepository, id string) (*secondary.SubmissionRecord, bool, error) {
	rec, err := repo.Read(ctx, id)
	if errors.Is(err, secondary.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read submission %s: %w", id, err)
	}
	return rec, true, nil
}

// notFound maps a store miss onto the lifecycle sentinel.
func notFound(err error, id string) error {
	if errors.Is(err, secondary.ErrNotFound) {
		return fmt.Errorf("%w: %s", submission.ErrSubmissionNotFound, id)
	}
	return err
}
