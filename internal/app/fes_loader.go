package app

import (
	"context"
	"errors"

	"github.com/go-logr/logr"

	"github.com/example/efiling/internal/core/fesloader"
	"github.com/example/efiling/internal/idgen"
	"github.com/example/efiling/internal/logging"
	"github.com/example/efiling/internal/ports/secondary"
)

// StagingDAOs groups the staging writers used by a load.
type StagingDAOs struct {
	Batches         secondary.BatchDAO
	Envelopes       secondary.EnvelopeDAO
	Images          secondary.ImageDAO
	CoveringLetters secondary.CoveringLetterDAO
	Forms           secondary.FormDAO
}

// FesLoaderService implements secondary.FesLoader over the staging DAOs.
// The load is strictly ordered; rows written before a failure are kept.
type FesLoaderService struct {
	daos  StagingDAOs
	namer *idgen.BatchNamer
	clock idgen.Clock
}

// NewFesLoaderService creates a new FesLoaderService.
func NewFesLoaderService(daos StagingDAOs, namer *idgen.BatchNamer, clock idgen.Clock) *FesLoaderService {
	return &FesLoaderService{daos: daos, namer: namer, clock: clock}
}

// Load writes model as batch, envelope, images, covering letters, then the
// form and its attachments in one transaction.
func (l *FesLoaderService) Load(ctx context.Context, model *fesloader.Model) (*secondary.LoadResult, error) {
	log := logr.FromContextOrDiscard(ctx).WithValues("submission_id", model.SubmissionID, "barcode", model.Barcode)
	fail := func(stage fesloader.Stage, err error) error {
		return &fesloader.LoaderError{SubmissionID: model.SubmissionID, Stage: stage, Err: err}
	}

	primaryIdx, ok := fesloader.PrimaryImageIndex(model.Images)
	if !ok {
		return nil, fail(fesloader.StageModel, errors.New("no form image"))
	}

	result := &secondary.LoadResult{}

	// 1. batch
	batchID, err := l.daos.Batches.NextID(ctx)
	if err != nil {
		return nil, fail(fesloader.StageBatch, err)
	}
	result.BatchID = batchID
	result.BatchName = l.namer.Name(batchID)
	if err := l.daos.Batches.Insert(ctx, &secondary.BatchRow{BatchID: batchID, Name: result.BatchName, ScanTime: l.clock.Now()}); err != nil {
		return nil, fail(fesloader.StageBatch, err)
	}

	// 2. envelope
	envelopeID, err := l.daos.Envelopes.NextID(ctx)
	if err != nil {
		return nil, fail(fesloader.StageEnvelope, err)
	}
	if err := l.daos.Envelopes.Insert(ctx, &secondary.EnvelopeRow{EnvelopeID: envelopeID, BatchID: batchID}); err != nil {
		return nil, fail(fesloader.StageEnvelope, err)
	}
	result.EnvelopeID = envelopeID

	// 3. images, in file order, with covering letters
	roles := fesloader.PlanImageRoles(model.Images)
	for i, img := range model.Images {
		imageID, err := l.daos.Images.NextID(ctx)
		if err != nil {
			return nil, fail(fesloader.StageImage, err)
		}
		if err := l.daos.Images.Insert(ctx, &secondary.ImageRow{ImageID: imageID, Data: img.Data}); err != nil {
			return nil, fail(fesloader.StageImage, err)
		}
		result.ImageIDs = append(result.ImageIDs, imageID)

		if roles[i] != fesloader.RoleCoveringLetter {
			continue
		}
		letterID, err := l.daos.CoveringLetters.NextID(ctx)
		if err != nil {
			return nil, fail(fesloader.StageCoveringLetter, err)
		}
		letter := &secondary.CoveringLetterRow{
			CoveringLetterID: letterID,
			EnvelopeID:       envelopeID,
			ImageID:          imageID,
			PageCount:        img.PageCount,
		}
		if err := l.daos.CoveringLetters.Insert(ctx, letter); err != nil {
			return nil, fail(fesloader.StageCoveringLetter, err)
		}
		result.CoveringLetterIDs = append(result.CoveringLetterIDs, letterID)
	}

	// 4+5. form and attachments
	plan := fesloader.BuildFormRow(*model, envelopeID, result.ImageIDs[primaryIdx])
	form := &secondary.FormRow{
		EnvelopeID:       plan.EnvelopeID,
		ImageID:          plan.PrimaryImageID,
		Barcode:          plan.Barcode,
		BarcodeDate:      plan.BarcodeDate,
		CompanyNumber:    plan.CompanyNumber,
		CompanyName:      plan.CompanyName,
		FormType:         plan.FormType,
		OCRCompanyNumber: plan.OCRCompanyNumber,
		OCRCompanyName:   plan.OCRCompanyName,
		OCRFormType:      plan.OCRFormType,
		PageCount:        plan.PageCount,
		SameDay:          plan.SameDay,
	}
	var attachments []*secondary.AttachmentRow
	for i, role := range roles {
		if role == fesloader.RoleAttachment {
			attachments = append(attachments, &secondary.AttachmentRow{ImageID: result.ImageIDs[i]})
		}
	}

	formID, err := l.daos.Forms.Insert(ctx, form, attachments)
	if err != nil {
		stage := fesloader.StageForm
		if errors.Is(err, secondary.ErrAttachmentWrite) {
			stage = fesloader.StageAttachment
		}
		return nil, fail(stage, err)
	}
	result.FormID = formID
	for _, a := range attachments {
		result.AttachmentIDs = append(result.AttachmentIDs, a.AttachmentID)
	}

	log.V(logging.DEBUG).Info("FES load complete",
		"batch_id", result.BatchID, "batch_name", result.BatchName, "envelope_id", envelopeID,
		"form_id", formID, "images", len(result.ImageIDs))
	return result, nil
}

// FormExists reports whether a complete form load exists for barcode.
func (l *FesLoaderService) FormExists(ctx context.Context, barcode string) (bool, error) {
	return l.daos.Forms.ExistsForBarcode(ctx, barcode)
}

// Ensure FesLoaderService implements the interface.
var _ secondary.FesLoader = (*FesLoaderService)(nil)
