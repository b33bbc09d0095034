package secondary

import (
	"context"
	"errors"
	"time"

	"github.com/example/efiling/internal/core/fesloader"
)

// FesLoader writes one submission into the staging schema as a
// batch/envelope/form/image hierarchy.
type FesLoader interface {
	// Load runs the ordered load. Failures are *fesloader.LoaderError.
	Load(ctx context.Context, model *fesloader.Model) (*LoadResult, error)

	// FormExists reports whether a complete form load exists for a barcode.
	FormExists(ctx context.Context, barcode string) (bool, error)
}

// LoadResult lists the identifiers allocated by one load.
type LoadResult struct {
	BatchID           int64
	BatchName         string
	EnvelopeID        int64
	ImageIDs          []int64
	CoveringLetterIDs []int64
	FormID            int64
	AttachmentIDs     []int64
}

// SequenceAllocator hands out unique values from named counters kept in the
// staging database. Values are unique across processes.
type SequenceAllocator interface {
	NextID(ctx context.Context, name string) (int64, error)
}

// BatchDAO writes FES batches.
type BatchDAO interface {
	NextID(ctx context.Context) (int64, error)
	Insert(ctx context.Context, batch *BatchRow) error
}

// BatchRow is one FES batch.
type BatchRow struct {
	BatchID  int64
	Name     string
	ScanTime time.Time
}

// EnvelopeDAO writes FES envelopes.
type EnvelopeDAO interface {
	NextID(ctx context.Context) (int64, error)
	Insert(ctx context.Context, envelope *EnvelopeRow) error
}

// EnvelopeRow is one FES envelope inside a batch.
type EnvelopeRow struct {
	EnvelopeID int64
	BatchID    int64
}

// ImageDAO writes raw image payloads.
type ImageDAO interface {
	NextID(ctx context.Context) (int64, error)
	Insert(ctx context.Context, image *ImageRow) error
}

// ImageRow is one stored image.
type ImageRow struct {
	ImageID int64
	Data    []byte
}

// CoveringLetterDAO writes covering letters.
type CoveringLetterDAO interface {
	NextID(ctx context.Context) (int64, error)
	Insert(ctx context.Context, letter *CoveringLetterRow) error
}

// CoveringLetterRow links a covering letter image to its envelope.
type CoveringLetterRow struct {
	CoveringLetterID int64
	EnvelopeID       int64
	ImageID          int64
	PageCount        int
}

// ErrAttachmentWrite marks a failure writing an attachment inside a form insert.
var ErrAttachmentWrite = errors.New("attachment write failed")

// FormDAO writes FES forms.
type FormDAO interface {
	// Insert allocates the form id and writes the form and its attachments
	// atomically, returning the form id.
	Insert(ctx context.Context, form *FormRow, attachments []*AttachmentRow) (int64, error)

	// ExistsForBarcode reports whether a form was already loaded for a barcode.
	ExistsForBarcode(ctx context.Context, barcode string) (bool, error)
}

// FormRow is the FES form. OCR columns mirror the submitted values.
type FormRow struct {
	FormID           int64 // Set by Insert
	EnvelopeID       int64
	ImageID          int64
	Barcode          string
	BarcodeDate      string // yyyymmdd
	CompanyNumber    string
	CompanyName      string
	FormType         string
	OCRCompanyNumber string
	OCRCompanyName   string
	OCRFormType      string
	PageCount        int
	SameDay          string // "Y" or "N"
}

// AttachmentDAO writes attachments outside a form insert.
type AttachmentDAO interface {
	NextID(ctx context.Context) (int64, error)
	Insert(ctx context.Context, attachment *AttachmentRow) error
}

// AttachmentRow links an additional image to a form.
type AttachmentRow struct {
	AttachmentID int64 // Set by the writer when zero
	FormID       int64 // Set by FormDAO.Insert when written with the form
	TypeID       int
	ImageID      int64
}
