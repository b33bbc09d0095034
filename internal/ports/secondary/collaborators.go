package secondary

import (
	"context"
	"time"
)

// ConversionRequester sends a file to the external document converter. The
// result arrives later through the conversion status callback.
type ConversionRequester interface {
	RequestConversion(ctx context.Context, submissionID, fileID string) error
}

// NotificationSender dispatches a templated notification. Callers log
// failures; they never change submission state.
type NotificationSender interface {
	Send(ctx context.Context, notification *Notification) error
}

// Notification is one templated message.
type Notification struct {
	ID           string
	Template     string
	Recipient    string
	SubmissionID string
	Data         map[string]string
	CreatedAt    time.Time
}

// NotificationOutbox lists notifications recorded by an outbox sender.
type NotificationOutbox interface {
	List(ctx context.Context, filters NotificationFilters) ([]*Notification, error)
}

// NotificationFilters contains filter options for listing notifications.
type NotificationFilters struct {
	Template     string
	SubmissionID string
	Limit        int
}

// ConvertedFileStore fetches converted images from the file-transfer service.
type ConvertedFileStore interface {
	Fetch(ctx context.Context, convertedFileID string) (*ConvertedFile, error)
}

// ConvertedFile is a converted (TIFF) image and its page count.
type ConvertedFile struct {
	Data      []byte
	PageCount int
}

// BarcodeGenerator issues FES barcodes.
type BarcodeGenerator interface {
	Generate(ctx context.Context, date time.Time) (string, error)
}
