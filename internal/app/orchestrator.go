package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"

	"github.com/example/efiling/internal/core/fesloader"
	"github.com/example/efiling/internal/core/submission"
	"github.com/example/efiling/internal/ctxutil"
	"github.com/example/efiling/internal/idgen"
	"github.com/example/efiling/internal/logging"
	"github.com/example/efiling/internal/metrics"
	"github.com/example/efiling/internal/ports/primary"
	"github.com/example/efiling/internal/ports/secondary"
)

// OrchestratorDeps holds the collaborators of the sweeps.
type OrchestratorDeps struct {
	Repo       secondary.SubmissionRepository
	History    secondary.StatusHistoryRepository
	Converter  secondary.ConversionRequester
	Files      secondary.ConvertedFileStore
	Loader     secondary.FesLoader
	Barcodes   secondary.BarcodeGenerator
	Clock      idgen.Clock
	SweepLimit int
}

// OrchestratorImpl implements the Orchestrator interface.
type OrchestratorImpl struct {
	deps     OrchestratorDeps
	recorder statusRecorder
	runIDs   idgen.UUIDGenerator
}

// NewOrchestrator creates a new Orchestrator with injected dependencies.
func NewOrchestrator(deps OrchestratorDeps) *OrchestratorImpl {
	return &OrchestratorImpl{
		deps:     deps,
		recorder: statusRecorder{history: deps.History},
	}
}

// ProcessFiles dispatches the pending files of SUBMITTED submissions for
// conversion. A submission moves to QUEUED_FOR_CONVERSION once every file is
// queued; one whose dispatch fails stays SUBMITTED for the next sweep.
func (o *OrchestratorImpl) ProcessFiles(ctx context.Context) (*primary.SweepResult, error) {
	return o.sweep(ctx, primary.SweepProcessFiles, submission.StatusSubmitted, o.dispatchFiles)
}

// SubmitToFes loads READY_FOR_FES submissions into the FES staging schema
// and moves each loaded one to SUBMITTED_TO_FES. A failed load leaves the
// submission READY_FOR_FES; its error is a *fesloader.LoaderError.
func (o *OrchestratorImpl) SubmitToFes(ctx context.Context) (*primary.SweepResult, error) {
	return o.sweep(ctx, primary.SweepSubmitToFes, submission.StatusReadyForFes, o.submitToFes)
}

// sweep runs step over every candidate in status. Failures are collected so
// one bad submission does not stop the others.
func (o *OrchestratorImpl) sweep(
	ctx context.Context,
	name string,
	status submission.Status,
	step func(context.Context, *secondary.SubmissionRecord) (bool, error),
) (*primary.SweepResult, error) {
	runID := o.runIDs.NewID()
	ctx = ctxutil.WithRunID(ctxutil.WithActorID(ctx, "sweep:"+name), runID)
	log := logr.FromContextOrDiscard(ctx).WithValues("sweep", name, "run_id", runID)
	ctx = logr.NewContext(ctx, log)

	result := &primary.SweepResult{Sweep: name}
	candidates, err := o.deps.Repo.FindByStatus(ctx, status, o.deps.SweepLimit)
	if err != nil {
		metrics.RecordSweepRun(name, metrics.ResultError)
		return result, fmt.Errorf("failed to find %s submissions: %w", status, err)
	}
	result.Examined = len(candidates)

	var errs []error
	for _, rec := range candidates {
		advanced, err := step(ctx, rec)
		if err != nil {
			result.Failed++
			errs = append(errs, err)
			log.Error(err, "submission not advanced", "submission_id", rec.ID)
			continue
		}
		if advanced {
			result.Advanced++
		}
	}

	outcome := metrics.ResultSuccess
	if len(errs) > 0 {
		outcome = metrics.ResultError
	}
	metrics.RecordSweepRun(name, outcome)
	log.Info("sweep finished", "examined", result.Examined, "advanced", result.Advanced, "failed", result.Failed)

	return result, errors.Join(errs...)
}

func (o *OrchestratorImpl) dispatchFiles(ctx context.Context, rec *secondary.SubmissionRecord) (bool, error) {
	log := logr.FromContextOrDiscard(ctx).WithValues("submission_id", rec.ID)

	for i := range rec.Files {
		if rec.Files[i].ConversionStatus != submission.FileStatusPending {
			continue
		}
		fileID := rec.Files[i].FileID
		if err := o.deps.Converter.RequestConversion(ctx, rec.ID, fileID); err != nil {
			return false, fmt.Errorf("failed to request conversion of file %s of submission %s: %w", fileID, rec.ID, err)
		}

		rec.Files[i].ConversionStatus = submission.FileStatusQueued
		rec.LastModifiedAt = o.deps.Clock.Now()
		if err := o.deps.Repo.UpdateSubmission(ctx, rec); err != nil {
			return false, fmt.Errorf("failed to mark file %s of submission %s queued: %w", fileID, rec.ID, err)
		}
		log.V(logging.DEBUG).Info("file queued for conversion", "file_id", fileID)
	}

	if !submission.AllDispatched(rec.FileStatuses()) {
		return false, nil
	}
	return true, o.transition(ctx, rec, submission.StatusQueuedForConversion)
}

func (o *OrchestratorImpl) submitToFes(ctx context.Context, rec *secondary.SubmissionRecord) (bool, error) {
	log := logr.FromContextOrDiscard(ctx).WithValues("submission_id", rec.ID)

	if err := o.ensureBarcode(ctx, rec); err != nil {
		return false, &fesloader.LoaderError{SubmissionID: rec.ID, Stage: fesloader.StageModel, Err: err}
	}

	exists, err := o.deps.Loader.FormExists(ctx, rec.Barcode)
	if err != nil {
		return false, &fesloader.LoaderError{SubmissionID: rec.ID, Stage: fesloader.StageForm, Err: err}
	}
	if exists {
		log.Info("form already loaded for barcode, not loading again", "barcode", rec.Barcode)
		metrics.RecordFesLoad(metrics.ResultSkipped, 0)
	} else {
		start := time.Now()
		loaded, err := o.load(ctx, rec)
		if err != nil {
			metrics.RecordFesLoad(metrics.ResultError, time.Since(start))
			return false, err
		}
		metrics.RecordFesLoad(metrics.ResultSuccess, time.Since(start))
		log.Info("submission loaded into FES", "barcode", rec.Barcode,
			"batch", loaded.BatchName, "envelope_id", loaded.EnvelopeID, "form_id", loaded.FormID)
	}

	return true, o.transition(ctx, rec, submission.StatusSubmittedToFes)
}

// ensureBarcode issues a barcode to a submission that has none. If another
// sweep issued one first, that barcode is used.
func (o *OrchestratorImpl) ensureBarcode(ctx context.Context, rec *secondary.SubmissionRecord) error {
	if rec.Barcode != "" {
		return nil
	}

	now := o.deps.Clock.Now()
	code, err := o.deps.Barcodes.Generate(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to generate barcode: %w", err)
	}

	err = o.deps.Repo.UpdateBarcode(ctx, rec.ID, code, now)
	if errors.Is(err, secondary.ErrConflict) {
		current, readErr := o.deps.Repo.Read(ctx, rec.ID)
		if readErr != nil {
			return fmt.Errorf("failed to re-read submission %s: %w", rec.ID, readErr)
		}
		if current.Barcode == "" {
			return fmt.Errorf("failed to set barcode %s: %w", code, err)
		}
		rec.Barcode = current.Barcode
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to set barcode: %w", err)
	}
	rec.Barcode = code
	return nil
}

func (o *OrchestratorImpl) load(ctx context.Context, rec *secondary.SubmissionRecord) (*secondary.LoadResult, error) {
	images := make([]fesloader.Image, 0, len(rec.Files))
	for _, f := range rec.Files {
		converted, err := o.deps.Files.Fetch(ctx, f.ConvertedFileID)
		if err != nil {
			return nil, &fesloader.LoaderError{
				SubmissionID: rec.ID,
				Stage:        fesloader.StageModel,
				Err:          fmt.Errorf("failed to fetch converted file %s: %w", f.ConvertedFileID, err),
			}
		}
		images = append(images, fesloader.Image{
			FileID:         f.FileID,
			Data:           converted.Data,
			PageCount:      converted.PageCount,
			CoveringLetter: f.CoveringLetter,
		})
	}

	submittedAt := rec.SubmittedAt
	if submittedAt.IsZero() {
		submittedAt = rec.CreatedAt
	}
	model, err := fesloader.BuildModel(fesloader.ModelInput{
		SubmissionID:  rec.ID,
		Barcode:       rec.Barcode,
		CompanyName:   rec.CompanyName,
		CompanyNumber: rec.CompanyNumber,
		FormType:      rec.FormType,
		SameDay:       rec.SameDay,
		SubmittedAt:   submittedAt,
		Images:        images,
	})
	if err != nil {
		return nil, &fesloader.LoaderError{SubmissionID: rec.ID, Stage: fesloader.StageModel, Err: err}
	}

	return o.deps.Loader.Load(ctx, &model)
}

// transition moves rec to target, conditional on its current status.
func (o *OrchestratorImpl) transition(ctx context.Context, rec *secondary.SubmissionRecord, target submission.Status) error {
	now := o.deps.Clock.Now()
	result, err := submission.ApplyStatusTransition(rec.Status, target, now)
	if err != nil {
		return err
	}
	if err := o.deps.Repo.UpdateSubmissionStatus(ctx, rec.ID, rec.Status, result.NewStatus, result.LastModifiedAt); err != nil {
		return fmt.Errorf("failed to move submission %s to %s: %w", rec.ID, target, err)
	}

	o.recorder.record(ctx, rec.ID, rec.Status, result.NewStatus, now)
	rec.Status = result.NewStatus
	rec.LastModifiedAt = result.LastModifiedAt
	return nil
}

// Ensure OrchestratorImpl implements the interface.
var _ primary.Orchestrator = (*OrchestratorImpl)(nil)
