package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/efiling/internal/idgen"
	"github.com/example/efiling/internal/ports/secondary"
)

// ConversionOutbox records conversion requests in SQLite for the converter
// relay. Requesting the same file again bumps its attempt count.
type ConversionOutbox struct {
	db    *sql.DB
	clock idgen.Clock
}

// ConversionRequest is one outstanding conversion request.
type ConversionRequest struct {
	SubmissionID string
	FileID       string
	Attempts     int
	RequestedAt  time.Time
}

// NewConversionOutbox creates a new SQLite conversion request outbox.
func NewConversionOutbox(db *sql.DB, clock idgen.Clock) *ConversionOutbox {
	return &ConversionOutbox{db: db, clock: clock}
}

// RequestConversion records a request for one file.
func (o *ConversionOutbox) RequestConversion(ctx context.Context, submissionID, fileID string) error {
	_, err := o.db.ExecContext(ctx,
		`INSERT INTO conversion_requests (submission_id, file_id, attempts, requested_at) VALUES (?, ?, 1, ?)
		ON CONFLICT(submission_id, file_id) DO UPDATE SET attempts = attempts + 1, requested_at = excluded.requested_at`,
		submissionID, fileID, toMillis(o.clock.Now()),
	)
	if err != nil {
		return fmt.Errorf("failed to request conversion of %s/%s: %w", submissionID, fileID, err)
	}
	return nil
}

// List returns the requests for a submission, or every request when
// submissionID is empty.
func (o *ConversionOutbox) List(ctx context.Context, submissionID string) ([]*ConversionRequest, error) {
	query := "SELECT submission_id, file_id, attempts, requested_at FROM conversion_requests"
	var args []any
	if submissionID != "" {
		query += " WHERE submission_id = ?"
		args = append(args, submissionID)
	}
	query += " ORDER BY requested_at ASC, submission_id ASC, file_id ASC"

	rows, err := o.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversion requests: %w", err)
	}
	defer rows.Close()

	var requests []*ConversionRequest
	for rows.Next() {
		var requestedAt int64
		req := &ConversionRequest{}
		if err := rows.Scan(&req.SubmissionID, &req.FileID, &req.Attempts, &requestedAt); err != nil {
			return nil, fmt.Errorf("failed to scan conversion request: %w", err)
		}
		req.RequestedAt = fromMillis(requestedAt)
		requests = append(requests, req)
	}

	return requests, rows.Err()
}

// Ensure ConversionOutbox implements the interface
var _ secondary.ConversionRequester = (*ConversionOutbox)(nil)
