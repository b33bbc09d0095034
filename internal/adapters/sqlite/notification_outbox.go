package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/example/efiling/internal/idgen"
	"github.com/example/efiling/internal/ports/secondary"
)

// NotificationOutbox records notifications in SQLite for a downstream mail
// relay. It implements both secondary.NotificationSender and
// secondary.NotificationOutbox.
type NotificationOutbox struct {
	db    *sql.DB
	ids   idgen.UUIDGenerator
	clock idgen.Clock
}

// NewNotificationOutbox creates a new SQLite notification outbox.
func NewNotificationOutbox(db *sql.DB, clock idgen.Clock) *NotificationOutbox {
	return &NotificationOutbox{db: db, clock: clock}
}

// Send persists a notification, assigning its ID and CreatedAt when unset.
func (o *NotificationOutbox) Send(ctx context.Context, n *secondary.Notification) error {
	if n.ID == "" {
		n.ID = o.ids.NewID()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = o.clock.Now()
	}

	data, err := json.Marshal(n.Data)
	if err != nil {
		return fmt.Errorf("failed to encode notification data: %w", err)
	}

	_, err = o.db.ExecContext(ctx,
		"INSERT INTO notifications (id, template, recipient, submission_id, data, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		n.ID, n.Template, n.Recipient, nullString(n.SubmissionID), string(data), toMillis(n.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to record notification: %w", err)
	}

	return nil
}

// List retrieves notifications, newest first.
func (o *NotificationOutbox) List(ctx context.Context, filters secondary.NotificationFilters) ([]*secondary.Notification, error) {
	query := "SELECT id, template, recipient, submission_id, data, created_at FROM notifications WHERE 1=1"
	var args []any

	if filters.Template != "" {
		query += " AND template = ?"
		args = append(args, filters.Template)
	}
	if filters.SubmissionID != "" {
		query += " AND submission_id = ?"
		args = append(args, filters.SubmissionID)
	}

	query += " ORDER BY created_at DESC, id ASC"
	if filters.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filters.Limit)
	}

	rows, err := o.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*secondary.Notification
	for rows.Next() {
		var (
			submissionID sql.NullString
			data         string
			createdAt    int64
		)
		n := &secondary.Notification{}
		if err := rows.Scan(&n.ID, &n.Template, &n.Recipient, &submissionID, &data, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		if err := json.Unmarshal([]byte(data), &n.Data); err != nil {
			return nil, fmt.Errorf("failed to decode notification data: %w", err)
		}
		n.SubmissionID = submissionID.String
		n.CreatedAt = fromMillis(createdAt)
		notifications = append(notifications, n)
	}

	return notifications, rows.Err()
}

// Ensure NotificationOutbox implements the interfaces
var (
	_ secondary.NotificationSender = (*NotificationOutbox)(nil)
	_ secondary.NotificationOutbox = (*NotificationOutbox)(nil)
)
