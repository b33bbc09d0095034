package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	coresubmission "github.com/example/efiling/internal/core/submission"
	"github.com/example/efiling/internal/ports/secondary"
)

// StatusHistoryRepository implements secondary.StatusHistoryRepository with SQLite.
type StatusHistoryRepository struct {
	db *sql.DB
}

// NewStatusHistoryRepository creates a new SQLite status history repository.
func NewStatusHistoryRepository(db *sql.DB) *StatusHistoryRepository {
	return &StatusHistoryRepository{db: db}
}

// Record appends a history entry and sets its ID.
func (r *StatusHistoryRepository) Record(ctx context.Context, entry *secondary.StatusHistoryRecord) error {
	actor := entry.Actor
	if actor == "" {
		actor = "unknown"
	}

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO submission_status_history (submission_id, old_status, new_status, actor, changed_at) VALUES (?, ?, ?, ?, ?)`,
		entry.SubmissionID,
		nullString(string(entry.OldStatus)),
		string(entry.NewStatus),
		actor,
		toMillis(entry.ChangedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to record status change: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read status change id: %w", err)
	}
	entry.ID = id
	entry.Actor = actor
	return nil
}

// ListBySubmission returns the history of a submission, oldest first.
func (r *StatusHistoryRepository) ListBySubmission(ctx context.Context, submissionID string) ([]*secondary.StatusHistoryRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, submission_id, old_status, new_status, actor, changed_at
		FROM submission_status_history WHERE submission_id = ? ORDER BY id ASC`,
		submissionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list status history: %w", err)
	}
	defer rows.Close()

	var entries []*secondary.StatusHistoryRecord
	for rows.Next() {
		var (
			oldStatus sql.NullString
			newStatus string
			changedAt int64
		)
		entry := &secondary.StatusHistoryRecord{}
		if err := rows.Scan(&entry.ID, &entry.SubmissionID, &oldStatus, &newStatus, &entry.Actor, &changedAt); err != nil {
			return nil, fmt.Errorf("failed to scan status change: %w", err)
		}
		entry.OldStatus = coresubmission.Status(oldStatus.String)
		entry.NewStatus = coresubmission.Status(newStatus)
		entry.ChangedAt = fromMillis(changedAt)
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// Ensure StatusHistoryRepository implements the interface
var _ secondary.StatusHistoryRepository = (*StatusHistoryRepository)(nil)
