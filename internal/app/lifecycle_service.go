package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"

	"github.com/example/efiling/internal/core/submission"
	"github.com/example/efiling/internal/idgen"
	"github.com/example/efiling/internal/logging"
	"github.com/example/efiling/internal/metrics"
	"github.com/example/efiling/internal/ports/primary"
	"github.com/example/efiling/internal/ports/secondary"
)

// LifecycleOptions configures LifecycleServiceImpl.
type LifecycleOptions struct {
	DelayedThreshold  time.Duration
	MaxUpdateAttempts int
	InternalRecipient string
	SupportRecipient  string
	BusinessRecipient string
}

// LifecycleServiceImpl implements the LifecycleService interface.
type LifecycleServiceImpl struct {
	repo     secondary.SubmissionRepository
	recorder statusRecorder
	executor EffectExecutor
	clock    idgen.Clock
	opts     LifecycleOptions
}

// NewLifecycleService creates a new LifecycleService with injected dependencies.
func NewLifecycleService(
	repo secondary.SubmissionRepository,
	history secondary.StatusHistoryRepository,
	executor EffectExecutor,
	clock idgen.Clock,
	opts LifecycleOptions,
) *LifecycleServiceImpl {
	if opts.MaxUpdateAttempts < 1 {
		opts.MaxUpdateAttempts = 1
	}
	return &LifecycleServiceImpl{
		repo:     repo,
		recorder: statusRecorder{history: history},
		executor: executor,
		clock:    clock,
		opts:     opts,
	}
}

// UpdateConversionFileStatus records a converter result for one file and
// recomputes the submission status. The write is conditional on the version
// read; on conflict the submission is re-read and the guards re-evaluated.
func (s *LifecycleServiceImpl) UpdateConversionFileStatus(ctx context.Context, req primary.UpdateFileStatusRequest) (*primary.UpdateFileStatusResponse, error) {
	log := logr.FromContextOrDiscard(ctx).WithValues("submission_id", req.SubmissionID, "file_id", req.FileID)

	for attempt := 1; ; attempt++ {
		rec, exists, err := readSubmission(ctx, s.repo, req.SubmissionID)
		if err != nil {
			return nil, err
		}

		guardCtx := submission.FileStatusUpdateContext{
			SubmissionID:     req.SubmissionID,
			SubmissionExists: exists,
			FileID:           req.FileID,
			NewFileStatus:    req.Status,
			ConvertedFileID:  req.ConvertedFileID,
		}
		idx := -1
		if exists {
			guardCtx.SubmissionStatus = rec.Status
			if idx = rec.FindFile(req.FileID); idx >= 0 {
				guardCtx.FileExists = true
				guardCtx.FileStatus = rec.Files[idx].ConversionStatus
			}
		}
		if result := submission.CanUpdateFileStatus(guardCtx); !result.Allowed {
			return nil, result.Error()
		}

		now := s.clock.Now()
		updated := rec.Clone()
		updated.Files[idx].ConversionStatus = req.Status
		if req.Status == submission.FileStatusConverted {
			updated.Files[idx].ConvertedFileID = req.ConvertedFileID
		}
		updated.LastModifiedAt = now

		next := submission.AggregateStatus(rec.Status, updated.FileStatuses())
		if next != rec.Status {
			transition, err := submission.ApplyStatusTransition(rec.Status, next, now)
			if err != nil {
				return nil, err
			}
			updated.Status = transition.NewStatus
		}

		err = s.repo.UpdateSubmission(ctx, updated)
		if errors.Is(err, secondary.ErrConflict) && attempt < s.opts.MaxUpdateAttempts {
			log.V(logging.DEBUG).Info("concurrent update, retrying", "attempt", attempt)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to update submission %s: %w", req.SubmissionID, err)
		}

		metrics.RecordFileConversionUpdate(string(req.Status))
		log.V(logging.VERBOSE).Info("file conversion status recorded", "status", req.Status, "submission_status", updated.Status)

		if updated.Status != rec.Status {
			s.recorder.record(ctx, rec.ID, rec.Status, updated.Status, now)
			log.Info("submission status changed", "from", rec.Status, "to", updated.Status)

			effs := submission.PlanConversionOutcome(submission.ConversionOutcomeInput{
				SubmissionID:          rec.ID,
				ConfirmationReference: rec.ConfirmationReference,
				CompanyNumber:         rec.CompanyNumber,
				Previous:              rec.Status,
				Next:                  updated.Status,
				FailedFileIDs:         failedFileIDs(updated),
				InternalRecipient:     s.opts.InternalRecipient,
			})
			if err := s.executor.Execute(ctx, effs); err != nil {
				log.Error(err, "failed to execute conversion outcome effects")
			}
		}

		return &primary.UpdateFileStatusResponse{
			SubmissionID:   rec.ID,
			PreviousStatus: rec.Status,
			Status:         updated.Status,
		}, nil
	}
}

// UpdateSubmissionStatusByBarcode records the FES outcome for a barcode.
func (s *LifecycleServiceImpl) UpdateSubmissionStatusByBarcode(ctx context.Context, barcode string, outcome submission.FesStatus) (*primary.Submission, error) {
	log := logr.FromContextOrDiscard(ctx).WithValues("barcode", barcode)

	target, err := submission.StatusForFesOutcome(outcome)
	if err != nil {
		return nil, err
	}

	rec, err := s.repo.ReadByBarcode(ctx, barcode)
	exists := err == nil
	if err != nil && !errors.Is(err, secondary.ErrNotFound) {
		return nil, fmt.Errorf("failed to read submission by barcode %s: %w", barcode, err)
	}

	guardCtx := submission.FesOutcomeContext{Barcode: barcode, Exists: exists}
	if exists {
		guardCtx.Current = rec.Status
	}
	if result := submission.CanRecordFesOutcome(guardCtx); !result.Allowed {
		return nil, result.Error()
	}

	now := s.clock.Now()
	err = s.repo.UpdateSubmissionStatusByBarcode(ctx, barcode, submission.StatusSubmittedToFes, target, now)
	switch {
	case errors.Is(err, secondary.ErrConflict), errors.Is(err, secondary.ErrNotFound):
		return nil, fmt.Errorf("%w: submission with barcode %s changed concurrently", submission.ErrSubmissionIncorrectState, barcode)
	case err != nil:
		return nil, fmt.Errorf("failed to update submission status by barcode %s: %w", barcode, err)
	}

	s.recorder.record(ctx, rec.ID, rec.Status, target, now)
	log.Info("FES outcome recorded", "submission_id", rec.ID, "status", target)

	rec.Status = target
	rec.LastModifiedAt = now
	rec.Version++

	effs := submission.PlanFesOutcome(submission.FesOutcomeInput{
		SubmissionID:          rec.ID,
		ConfirmationReference: rec.ConfirmationReference,
		Barcode:               barcode,
		PresenterEmail:        rec.PresenterEmail,
		Outcome:               target,
	})
	if err := s.executor.Execute(ctx, effs); err != nil {
		log.Error(err, "failed to execute FES outcome effects")
	}

	return recordToSubmission(rec), nil
}

// HandleDelayedSubmissions reports PROCESSING submissions last modified at
// least the configured threshold ago. Submission status is never changed.
func (s *LifecycleServiceImpl) HandleDelayedSubmissions(ctx context.Context) (*primary.DelayedReport, error) {
	log := logr.FromContextOrDiscard(ctx)

	now := s.clock.Now()
	cutoff := submission.DelayedCutoff(now, s.opts.DelayedThreshold)
	records, err := s.repo.FindDelayedSubmissions(ctx, submission.StatusProcessing, cutoff)
	if err != nil {
		metrics.RecordSweepRun(primary.SweepDelayed, metrics.ResultError)
		return nil, fmt.Errorf("failed to find delayed submissions: %w", err)
	}

	report := &primary.DelayedReport{}
	delayed := make([]submission.DelayedSubmission, len(records))
	for i, r := range records {
		report.Delayed = append(report.Delayed, r.ID)
		delayed[i] = submission.DelayedSubmission{
			ID:                    r.ID,
			ConfirmationReference: r.ConfirmationReference,
			CompanyNumber:         r.CompanyNumber,
			SameDay:               r.SameDay,
			LastModifiedAt:        r.LastModifiedAt,
		}
	}

	effs := submission.PlanDelayedNotifications(submission.DelayedInput{
		Now:               now,
		Threshold:         s.opts.DelayedThreshold,
		Submissions:       delayed,
		SupportRecipient:  s.opts.SupportRecipient,
		BusinessRecipient: s.opts.BusinessRecipient,
	})
	if err := s.executor.Execute(ctx, effs); err != nil {
		log.Error(err, "failed to execute delayed submission effects")
	}
	report.Notifications = countNotifications(effs)

	log.Info("delayed submissions checked", "delayed", len(report.Delayed), "notifications", report.Notifications)
	metrics.RecordSweepRun(primary.SweepDelayed, metrics.ResultSuccess)
	return report, nil
}

func failedFileIDs(r *secondary.SubmissionRecord) []string {
	var ids []string
	for _, f := range r.Files {
		if f.ConversionStatus == submission.FileStatusFailed {
			ids = append(ids, f.FileID)
		}
	}
	return ids
}

// Ensure LifecycleServiceImpl implements the interface.
var _ primary.LifecycleService = (*LifecycleServiceImpl)(nil)
