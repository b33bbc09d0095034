package staging

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/example/efiling/internal/core/fesloader"
	"github.com/example/efiling/internal/ports/secondary"
)

// Gateway bundles the staging DAOs over one database.
type Gateway struct {
	Batches         *BatchDAO
	Envelopes       *EnvelopeDAO
	Images          *ImageDAO
	CoveringLetters *CoveringLetterDAO
	Forms           *FormDAO
}

// NewGateway creates every DAO on db.
func NewGateway(db *gorm.DB, attachmentTypeID int) *Gateway {
	seq := NewSequenceAllocator(db)
	return &Gateway{
		Batches:         &BatchDAO{db: db, seq: seq},
		Envelopes:       &EnvelopeDAO{db: db, seq: seq},
		Images:          &ImageDAO{db: db, seq: seq},
		CoveringLetters: &CoveringLetterDAO{db: db, seq: seq},
		Forms:           &FormDAO{db: db, attachmentTypeID: attachmentTypeID},
	}
}

// BatchDAO implements secondary.BatchDAO.
type BatchDAO struct {
	db  *gorm.DB
	seq *SequenceAllocator
}

// NextID allocates a batch id.
func (d *BatchDAO) NextID(ctx context.Context) (int64, error) {
	return d.seq.NextID(ctx, fesloader.SequenceBatch)
}

// Insert writes a batch.
func (d *BatchDAO) Insert(ctx context.Context, row *secondary.BatchRow) error {
	batch := &Batch{ID: row.BatchID, Name: row.Name, ScanTime: row.ScanTime}
	if err := d.db.WithContext(ctx).Create(batch).Error; err != nil {
		return fmt.Errorf("failed to insert batch %d: %w", row.BatchID, err)
	}
	return nil
}

// EnvelopeDAO implements secondary.EnvelopeDAO.
type EnvelopeDAO struct {
	db  *gorm.DB
	seq *SequenceAllocator
}

// NextID allocates an envelope id.
func (d *EnvelopeDAO) NextID(ctx context.Context) (int64, error) {
	return d.seq.NextID(ctx, fesloader.SequenceEnvelope)
}

// Insert writes an envelope.
func (d *EnvelopeDAO) Insert(ctx context.Context, row *secondary.EnvelopeRow) error {
	envelope := &Envelope{ID: row.EnvelopeID, BatchID: row.BatchID}
	if err := d.db.WithContext(ctx).Create(envelope).Error; err != nil {
		return fmt.Errorf("failed to insert envelope %d: %w", row.EnvelopeID, err)
	}
	return nil
}

// ImageDAO implements secondary.ImageDAO.
type ImageDAO struct {
	db  *gorm.DB
	seq *SequenceAllocator
}

// NextID allocates an image id.
func (d *ImageDAO) NextID(ctx context.Context) (int64, error) {
	return d.seq.NextID(ctx, fesloader.SequenceImage)
}

// Insert writes an image.
func (d *ImageDAO) Insert(ctx context.Context, row *secondary.ImageRow) error {
	image := &Image{ID: row.ImageID, Data: row.Data}
	if err := d.db.WithContext(ctx).Create(image).Error; err != nil {
		return fmt.Errorf("failed to insert image %d: %w", row.ImageID, err)
	}
	return nil
}

// CoveringLetterDAO implements secondary.CoveringLetterDAO.
type CoveringLetterDAO struct {
	db  *gorm.DB
	seq *SequenceAllocator
}

// NextID allocates a covering letter id.
func (d *CoveringLetterDAO) NextID(ctx context.Context) (int64, error) {
	return d.seq.NextID(ctx, fesloader.SequenceCoveringLetter)
}

// Insert writes a covering letter.
func (d *CoveringLetterDAO) Insert(ctx context.Context, row *secondary.CoveringLetterRow) error {
	letter := &CoveringLetter{
		CoveringLetterID: row.CoveringLetterID,
		EnvelopeID:       row.EnvelopeID,
		ImageID:          row.ImageID,
		PageCount:        row.PageCount,
	}
	if err := d.db.WithContext(ctx).Create(letter).Error; err != nil {
		return fmt.Errorf("failed to insert covering letter %d: %w", row.CoveringLetterID, err)
	}
	return nil
}

// FormDAO implements secondary.FormDAO. A form and its attachments are
// written in one transaction, so an existing form implies its attachments.
type FormDAO struct {
	db               *gorm.DB
	attachmentTypeID int
}

// Insert allocates the form id and writes the form and its attachments.
// Attachments without a TypeID get the configured attachment type.
func (d *FormDAO) Insert(ctx context.Context, row *secondary.FormRow, attachments []*secondary.AttachmentRow) (int64, error) {
	var formID int64
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seq := NewSequenceAllocator(tx)

		id, err := seq.NextID(ctx, fesloader.SequenceForm)
		if err != nil {
			return err
		}

		form := &Form{
			ID:               id,
			EnvelopeID:       row.EnvelopeID,
			ImageID:          row.ImageID,
			Barcode:          row.Barcode,
			BarcodeDate:      row.BarcodeDate,
			CompanyNumber:    row.CompanyNumber,
			CompanyName:      row.CompanyName,
			FormType:         row.FormType,
			OCRCompanyNumber: row.OCRCompanyNumber,
			OCRCompanyName:   row.OCRCompanyName,
			OCRFormType:      row.OCRFormType,
			PageCount:        row.PageCount,
			SameDay:          row.SameDay,
		}
		if err := tx.Create(form).Error; err != nil {
			return fmt.Errorf("failed to insert form %d: %w", id, err)
		}

		writer := &AttachmentDAO{db: tx, seq: seq, defaultTypeID: d.attachmentTypeID}
		for _, a := range attachments {
			a.FormID = id
			if err := writer.Insert(ctx, a); err != nil {
				return fmt.Errorf("%w: %w", secondary.ErrAttachmentWrite, err)
			}
		}

		formID = id
		return nil
	})
	if err != nil {
		return 0, err
	}

	row.FormID = formID
	return formID, nil
}

// ExistsForBarcode reports whether a form was loaded for barcode.
func (d *FormDAO) ExistsForBarcode(ctx context.Context, barcode string) (bool, error) {
	var n int64
	if err := d.db.WithContext(ctx).Model(&Form{}).Where("barcode = ?", barcode).Count(&n).Error; err != nil {
		return false, fmt.Errorf("failed to check form for barcode %s: %w", barcode, err)
	}
	return n > 0, nil
}

// AttachmentDAO implements secondary.AttachmentDAO. FormDAO.Insert runs one
// inside the form transaction.
type AttachmentDAO struct {
	db            *gorm.DB
	seq           *SequenceAllocator
	defaultTypeID int
}

// NextID allocates an attachment id.
func (d *AttachmentDAO) NextID(ctx context.Context) (int64, error) {
	return d.seq.NextID(ctx, fesloader.SequenceAttachment)
}

// Insert writes an attachment, allocating its id when zero. Rows without a
// TypeID get the configured attachment type.
func (d *AttachmentDAO) Insert(ctx context.Context, row *secondary.AttachmentRow) error {
	if row.AttachmentID == 0 {
		id, err := d.NextID(ctx)
		if err != nil {
			return err
		}
		row.AttachmentID = id
	}
	if row.TypeID == 0 {
		row.TypeID = d.defaultTypeID
	}

	attachment := &Attachment{AttachmentID: row.AttachmentID, FormID: row.FormID, TypeID: row.TypeID, ImageID: row.ImageID}
	if err := d.db.WithContext(ctx).Create(attachment).Error; err != nil {
		return fmt.Errorf("failed to insert attachment %d: %w", row.AttachmentID, err)
	}
	return nil
}

// Ensure the DAOs implement the interfaces
var (
	_ secondary.BatchDAO          = (*BatchDAO)(nil)
	_ secondary.EnvelopeDAO       = (*EnvelopeDAO)(nil)
	_ secondary.ImageDAO          = (*ImageDAO)(nil)
	_ secondary.CoveringLetterDAO = (*CoveringLetterDAO)(nil)
	_ secondary.FormDAO           = (*FormDAO)(nil)
	_ secondary.AttachmentDAO     = (*AttachmentDAO)(nil)
)
