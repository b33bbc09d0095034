// Package sqlite contains SQLite implementations of repository interfaces.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	coresubmission "github.com/example/efiling/internal/core/submission"
	"github.com/example/efiling/internal/ports/secondary"
)

// SubmissionRepository implements secondary.SubmissionRepository with SQLite.
// Writes are conditional on the stored version or status.
type SubmissionRepository struct {
	db *sql.DB
}

// NewSubmissionRepository creates a new SQLite submission repository.
func NewSubmissionRepository(db *sql.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// fileDocument is the JSON shape of one file in the files column.
type fileDocument struct {
	FileID           string `json:"file_id"`
	FileName         string `json:"file_name"`
	ConversionStatus string `json:"conversion_status"`
	ConvertedFileID  string `json:"converted_file_id,omitempty"`
	CoveringLetter   bool   `json:"covering_letter,omitempty"`
}

const submissionColumns = `id, status, confirmation_reference, presenter_email, company_number, company_name,
	form_type, form_category, same_day, fee_on_submission, payment_reference, barcode, files,
	created_at, submitted_at, last_modified_at, version`

// Create persists a new submission with version 1.
func (r *SubmissionRepository) Create(ctx context.Context, s *secondary.SubmissionRecord) error {
	files, err := encodeFiles(s.Files)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO submissions (`+submissionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`,
		s.ID,
		string(s.Status),
		nullString(s.ConfirmationReference),
		s.PresenterEmail,
		s.CompanyNumber,
		s.CompanyName,
		s.FormType,
		nullString(s.FormCategory),
		boolToInt(s.SameDay),
		nullString(s.FeeOnSubmission),
		nullString(s.PaymentReference),
		nullString(s.Barcode),
		files,
		toMillis(s.CreatedAt),
		nullMillis(s.SubmittedAt),
		toMillis(s.LastModifiedAt),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("submission %s: %w", s.ID, secondary.ErrConflict)
		}
		return fmt.Errorf("failed to create submission: %w", err)
	}

	s.Version = 1
	return nil
}

// Read retrieves a submission by its ID.
func (r *SubmissionRepository) Read(ctx context.Context, id string) (*secondary.SubmissionRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE id = ?`, id)
	record, err := scanSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("submission %s: %w", id, secondary.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	return record, nil
}

// ReadByBarcode retrieves the submission carrying a barcode.
func (r *SubmissionRepository) ReadByBarcode(ctx context.Context, barcode string) (*secondary.SubmissionRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE barcode = ?`, barcode)
	record, err := scanSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("barcode %s: %w", barcode, secondary.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get submission by barcode: %w", err)
	}
	return record, nil
}

// UpdateSubmission replaces the stored row if its version is unchanged.
func (r *SubmissionRepository) UpdateSubmission(ctx context.Context, s *secondary.SubmissionRecord) error {
	files, err := encodeFiles(s.Files)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE submissions SET
			status = ?, confirmation_reference = ?, presenter_email = ?, company_number = ?, company_name = ?,
			form_type = ?, form_category = ?, same_day = ?, fee_on_submission = ?, payment_reference = ?,
			barcode = ?, files = ?, submitted_at = ?, last_modified_at = ?, version = version + 1
		WHERE id = ? AND version = ?`,
		string(s.Status),
		nullString(s.ConfirmationReference),
		s.PresenterEmail,
		s.CompanyNumber,
		s.CompanyName,
		s.FormType,
		nullString(s.FormCategory),
		boolToInt(s.SameDay),
		nullString(s.FeeOnSubmission),
		nullString(s.PaymentReference),
		nullString(s.Barcode),
		files,
		nullMillis(s.SubmittedAt),
		toMillis(s.LastModifiedAt),
		s.ID,
		s.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update submission: %w", err)
	}
	if err := r.checkConditionalWrite(ctx, result, "id", s.ID); err != nil {
		return err
	}

	s.Version++
	return nil
}

// UpdateSubmissionStatus moves a submission from one status to another.
func (r *SubmissionRepository) UpdateSubmissionStatus(ctx context.Context, id string, from, to coresubmission.Status, at time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE submissions SET status = ?, last_modified_at = ?, version = version + 1 WHERE id = ? AND status = ?`,
		string(to), toMillis(at), id, string(from),
	)
	if err != nil {
		return fmt.Errorf("failed to update submission status: %w", err)
	}
	return r.checkConditionalWrite(ctx, result, "id", id)
}

// UpdateSubmissionStatusByBarcode moves the submission carrying barcode from one status to another.
func (r *SubmissionRepository) UpdateSubmissionStatusByBarcode(ctx context.Context, barcode string, from, to coresubmission.Status, at time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE submissions SET status = ?, last_modified_at = ?, version = version + 1 WHERE barcode = ? AND status = ?`,
		string(to), toMillis(at), barcode, string(from),
	)
	if err != nil {
		return fmt.Errorf("failed to update submission status by barcode: %w", err)
	}
	return r.checkConditionalWrite(ctx, result, "barcode", barcode)
}

// UpdateBarcode sets the barcode of a submission that has none yet.
func (r *SubmissionRepository) UpdateBarcode(ctx context.Context, id, barcode string, at time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE submissions SET barcode = ?, last_modified_at = ?, version = version + 1
		WHERE id = ? AND (barcode IS NULL OR barcode = '')`,
		barcode, toMillis(at), id,
	)
	if err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("barcode %s already issued: %w", barcode, secondary.ErrConflict)
		}
		return fmt.Errorf("failed to update barcode: %w", err)
	}
	return r.checkConditionalWrite(ctx, result, "id", id)
}

// FindByStatus returns up to limit submissions in a status, oldest first.
func (r *SubmissionRepository) FindByStatus(ctx context.Context, status coresubmission.Status, limit int) ([]*secondary.SubmissionRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	return r.query(ctx, "find submissions by status",
		`SELECT `+submissionColumns+` FROM submissions WHERE status = ? ORDER BY last_modified_at ASC, id ASC LIMIT ?`,
		string(status), limit,
	)
}

// FindDelayedSubmissions returns submissions in status last modified at or before olderThan.
func (r *SubmissionRepository) FindDelayedSubmissions(ctx context.Context, status coresubmission.Status, olderThan time.Time) ([]*secondary.SubmissionRecord, error) {
	return r.query(ctx, "find delayed submissions",
		`SELECT `+submissionColumns+` FROM submissions WHERE status = ? AND last_modified_at <= ? ORDER BY last_modified_at ASC, id ASC`,
		string(status), toMillis(olderThan),
	)
}

// FindPaidSubmissions returns paid submissions in one of statuses submitted at or after since.
func (r *SubmissionRepository) FindPaidSubmissions(ctx context.Context, statuses []coresubmission.Status, since time.Time) ([]*secondary.SubmissionRecord, error) {
	if len(statuses) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(statuses)), ", ")
	args := make([]any, 0, len(statuses)+1)
	for _, s := range statuses {
		args = append(args, string(s))
	}
	args = append(args, toMillis(since))

	return r.query(ctx, "find paid submissions",
		`SELECT `+submissionColumns+` FROM submissions
		WHERE status IN (`+placeholders+`)
			AND payment_reference IS NOT NULL AND payment_reference != ''
			AND submitted_at >= ?
		ORDER BY submitted_at ASC, id ASC`,
		args...,
	)
}

func (r *SubmissionRepository) query(ctx context.Context, what, query string, args ...any) ([]*secondary.SubmissionRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to %s: %w", what, err)
	}
	defer rows.Close()

	var submissions []*secondary.SubmissionRecord
	for rows.Next() {
		record, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		submissions = append(submissions, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to %s: %w", what, err)
	}
	return submissions, nil
}

// checkConditionalWrite turns a zero-row conditional update into ErrNotFound
// or ErrConflict depending on whether the row exists.
func (r *SubmissionRepository) checkConditionalWrite(ctx context.Context, result sql.Result, key, value string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rowsAffected > 0 {
		return nil
	}

	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM submissions WHERE "+key+" = ?", value).Scan(&n); err != nil {
		return fmt.Errorf("failed to check submission: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("submission %s %s: %w", key, value, secondary.ErrNotFound)
	}
	return fmt.Errorf("submission %s %s: %w", key, value, secondary.ErrConflict)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubmission(row rowScanner) (*secondary.SubmissionRecord, error) {
	var (
		status, files                              string
		confirmation, category, fee, payment, code sql.NullString
		sameDay                                    int
		createdAt, lastModifiedAt                  int64
		submittedAt                                sql.NullInt64
	)

	record := &secondary.SubmissionRecord{}
	err := row.Scan(
		&record.ID,
		&status,
		&confirmation,
		&record.PresenterEmail,
		&record.CompanyNumber,
		&record.CompanyName,
		&record.FormType,
		&category,
		&sameDay,
		&fee,
		&payment,
		&code,
		&files,
		&createdAt,
		&submittedAt,
		&lastModifiedAt,
		&record.Version,
	)
	if err != nil {
		return nil, err
	}

	record.Status = coresubmission.Status(status)
	record.ConfirmationReference = confirmation.String
	record.FormCategory = category.String
	record.SameDay = sameDay == 1
	record.FeeOnSubmission = fee.String
	record.PaymentReference = payment.String
	record.Barcode = code.String
	record.CreatedAt = fromMillis(createdAt)
	record.LastModifiedAt = fromMillis(lastModifiedAt)
	if submittedAt.Valid {
		record.SubmittedAt = fromMillis(submittedAt.Int64)
	}

	record.Files, err = decodeFiles(files)
	if err != nil {
		return nil, err
	}
	return record, nil
}

func encodeFiles(files []secondary.FileRecord) (string, error) {
	docs := make([]fileDocument, len(files))
	for i, f := range files {
		docs[i] = fileDocument{
			FileID:           f.FileID,
			FileName:         f.FileName,
			ConversionStatus: string(f.ConversionStatus),
			ConvertedFileID:  f.ConvertedFileID,
			CoveringLetter:   f.CoveringLetter,
		}
	}
	data, err := json.Marshal(docs)
	if err != nil {
		return "", fmt.Errorf("failed to encode files: %w", err)
	}
	return string(data), nil
}

func decodeFiles(data string) ([]secondary.FileRecord, error) {
	var docs []fileDocument
	if err := json.Unmarshal([]byte(data), &docs); err != nil {
		return nil, fmt.Errorf("failed to decode files: %w", err)
	}
	files := make([]secondary.FileRecord, len(docs))
	for i, d := range docs {
		files[i] = secondary.FileRecord{
			FileID:           d.FileID,
			FileName:         d.FileName,
			ConversionStatus: coresubmission.FileStatus(d.ConversionStatus),
			ConvertedFileID:  d.ConvertedFileID,
			CoveringLetter:   d.CoveringLetter,
		}
	}
	return files, nil
}

func isConstraintViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint
}

// Ensure SubmissionRepository implements the interface
var _ secondary.SubmissionRepository = (*SubmissionRepository)(nil)
