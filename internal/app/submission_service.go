package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-playground/validator/v10"

	"github.com/example/efiling/internal/core/submission"
	"github.com/example/efiling/internal/idgen"
	"github.com/example/efiling/internal/ports/primary"
	"github.com/example/efiling/internal/ports/secondary"
)

// SubmissionServiceImpl implements the SubmissionService interface.
type SubmissionServiceImpl struct {
	repo              secondary.SubmissionRepository
	history           secondary.StatusHistoryRepository
	recorder          statusRecorder
	executor          EffectExecutor
	clock             idgen.Clock
	ids               idgen.UUIDGenerator
	validate          *validator.Validate
	internalRecipient string
}

// NewSubmissionService creates a new SubmissionService with injected dependencies.
func NewSubmissionService(
	repo secondary.SubmissionRepository,
	history secondary.StatusHistoryRepository,
	executor EffectExecutor,
	clock idgen.Clock,
	internalRecipient string,
) *SubmissionServiceImpl {
	return &SubmissionServiceImpl{
		repo:              repo,
		history:           history,
		recorder:          statusRecorder{history: history},
		executor:          executor,
		clock:             clock,
		validate:          validator.New(),
		internalRecipient: internalRecipient,
	}
}

// CreateSubmission opens a new submission with its files pending conversion.
func (s *SubmissionServiceImpl) CreateSubmission(ctx context.Context, req primary.CreateSubmissionRequest) (*primary.Submission, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid submission: %w", err)
	}

	now := s.clock.Now()
	record := &secondary.SubmissionRecord{
		ID:              s.ids.NewID(),
		Status:          submission.InitialStatus(),
		PresenterEmail:  req.PresenterEmail,
		CompanyNumber:   req.CompanyNumber,
		CompanyName:     req.CompanyName,
		FormType:        req.FormType,
		FormCategory:    req.FormCategory,
		SameDay:         req.SameDay,
		FeeOnSubmission: req.FeeOnSubmission,
		CreatedAt:       now,
		LastModifiedAt:  now,
	}
	for _, f := range req.Files {
		record.Files = append(record.Files, secondary.FileRecord{
			FileID:           f.FileID,
			FileName:         f.FileName,
			ConversionStatus: submission.FileStatusPending,
			CoveringLetter:   f.CoveringLetter,
		})
	}

	if err := s.repo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to create submission: %w", err)
	}
	s.recorder.record(ctx, record.ID, "", record.Status, now)

	logr.FromContextOrDiscard(ctx).Info("submission created", "submission_id", record.ID, "files", len(record.Files))
	return recordToSubmission(record), nil
}

// GetSubmission retrieves a submission by ID.
func (s *SubmissionServiceImpl) GetSubmission(ctx context.Context, submissionID string) (*primary.Submission, error) {
	rec, err := s.repo.Read(ctx, submissionID)
	if err != nil {
		return nil, notFound(err, submissionID)
	}
	return recordToSubmission(rec), nil
}

// ListSubmissions lists up to limit submissions in a status.
func (s *SubmissionServiceImpl) ListSubmissions(ctx context.Context, status submission.Status, limit int) ([]*primary.Submission, error) {
	records, err := s.repo.FindByStatus(ctx, status, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	return recordsToSubmissions(records), nil
}

// CompleteSubmission moves an OPEN submission with files to PROCESSING and
// stamps SubmittedAt.
func (s *SubmissionServiceImpl) CompleteSubmission(ctx context.Context, submissionID, confirmationReference string) (*primary.Submission, error) {
	rec, exists, err := readSubmission(ctx, s.repo, submissionID)
	if err != nil {
		return nil, err
	}

	guardCtx := submission.CompleteContext{SubmissionID: submissionID, Exists: exists}
	if exists {
		guardCtx.Current = rec.Status
		guardCtx.FileCount = len(rec.Files)
	}
	if result := submission.CanCompleteSubmission(guardCtx); !result.Allowed {
		return nil, result.Error()
	}

	return s.applyTransition(ctx, rec, submission.StatusProcessing, func(r *secondary.SubmissionRecord) {
		r.ConfirmationReference = confirmationReference
	})
}

// ConfirmSubmission moves a PROCESSING submission to SUBMITTED. A submission
// with a fee needs a payment reference.
func (s *SubmissionServiceImpl) ConfirmSubmission(ctx context.Context, submissionID, paymentReference string) (*primary.Submission, error) {
	rec, exists, err := readSubmission(ctx, s.repo, submissionID)
	if err != nil {
		return nil, err
	}

	guardCtx := submission.TransitionContext{SubmissionID: submissionID, Exists: exists, Target: submission.StatusSubmitted}
	if exists {
		guardCtx.Current = rec.Status
	}
	if result := submission.CanTransitionSubmission(guardCtx); !result.Allowed {
		return nil, result.Error()
	}
	if rec.FeeOnSubmission != "" && paymentReference == "" && rec.PaymentReference == "" {
		return nil, fmt.Errorf("%w: submission %s is awaiting payment of %s",
			submission.ErrSubmissionIncorrectState, submissionID, rec.FeeOnSubmission)
	}

	return s.applyTransition(ctx, rec, submission.StatusSubmitted, func(r *secondary.SubmissionRecord) {
		if paymentReference != "" {
			r.PaymentReference = paymentReference
		}
	})
}

// RejectByVirusScan moves a submission awaiting conversion to
// REJECTED_BY_VIRUS_SCAN and notifies the internal recipient.
func (s *SubmissionServiceImpl) RejectByVirusScan(ctx context.Context, submissionID, fileID string) (*primary.Submission, error) {
	rec, exists, err := readSubmission(ctx, s.repo, submissionID)
	if err != nil {
		return nil, err
	}

	guardCtx := submission.TransitionContext{SubmissionID: submissionID, Exists: exists, Target: submission.StatusRejectedByVirusScan}
	if exists {
		guardCtx.Current = rec.Status
	}
	if result := submission.CanTransitionSubmission(guardCtx); !result.Allowed {
		return nil, result.Error()
	}
	if rec.FindFile(fileID) < 0 {
		return nil, fmt.Errorf("%w: file %s in submission %s", submission.ErrFileNotFound, fileID, submissionID)
	}

	updated, err := s.applyTransition(ctx, rec, submission.StatusRejectedByVirusScan, nil)
	if err != nil {
		return nil, err
	}

	effs := submission.PlanVirusScanRejection(submission.VirusScanInput{
		SubmissionID:          rec.ID,
		ConfirmationReference: rec.ConfirmationReference,
		FileID:                fileID,
		InternalRecipient:     s.internalRecipient,
	})
	if err := s.executor.Execute(ctx, effs); err != nil {
		logr.FromContextOrDiscard(ctx).Error(err, "failed to execute virus scan effects", "submission_id", rec.ID)
	}
	return updated, nil
}

// ListPaidSubmissions lists paid submissions in the given statuses since a date.
func (s *SubmissionServiceImpl) ListPaidSubmissions(ctx context.Context, statuses []submission.Status, since time.Time) ([]*primary.Submission, error) {
	records, err := s.repo.FindPaidSubmissions(ctx, statuses, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list paid submissions: %w", err)
	}
	return recordsToSubmissions(records), nil
}

// History returns the status changes of a submission.
func (s *SubmissionServiceImpl) History(ctx context.Context, submissionID string) ([]*primary.StatusChange, error) {
	if _, err := s.repo.Read(ctx, submissionID); err != nil {
		return nil, notFound(err, submissionID)
	}

	entries, err := s.history.ListBySubmission(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}

	changes := make([]*primary.StatusChange, len(entries))
	for i, e := range entries {
		changes[i] = &primary.StatusChange{
			OldStatus: e.OldStatus,
			NewStatus: e.NewStatus,
			Actor:     e.Actor,
			ChangedAt: e.ChangedAt,
		}
	}
	return changes, nil
}

// applyTransition validates the edge, applies mutate and writes the whole
// record conditional on the version read.
func (s *SubmissionServiceImpl) applyTransition(ctx context.Context, rec *secondary.SubmissionRecord, target submission.Status, mutate func(*secondary.SubmissionRecord)) (*primary.Submission, error) {
	now := s.clock.Now()
	result, err := submission.ApplyStatusTransition(rec.Status, target, now)
	if err != nil {
		return nil, err
	}

	updated := rec.Clone()
	if mutate != nil {
		mutate(updated)
	}
	updated.Status = result.NewStatus
	updated.LastModifiedAt = result.LastModifiedAt
	if result.SubmittedAt != nil {
		updated.SubmittedAt = *result.SubmittedAt
	}

	if err := s.repo.UpdateSubmission(ctx, updated); err != nil {
		if errors.Is(err, secondary.ErrConflict) {
			return nil, fmt.Errorf("%w: submission %s changed concurrently", submission.ErrSubmissionIncorrectState, rec.ID)
		}
		return nil, fmt.Errorf("failed to update submission %s: %w", rec.ID, err)
	}

	s.recorder.record(ctx, rec.ID, rec.Status, updated.Status, now)
	logr.FromContextOrDiscard(ctx).Info("submission status changed", "submission_id", rec.ID, "from", rec.Status, "to", updated.Status)
	return recordToSubmission(updated), nil
}

// Ensure SubmissionServiceImpl implements the interface.
var _ primary.SubmissionService = (*SubmissionServiceImpl)(nil)
