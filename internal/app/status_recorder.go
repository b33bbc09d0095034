package app

import (
	"context"
	"time"

	"github.com/go-logr/logr"

	"github.com/example/efiling/internal/core/submission"
	"github.com/example/efiling/internal/ctxutil"
	"github.com/example/efiling/internal/metrics"
	"github.com/example/efiling/internal/ports/secondary"
)

// statusRecorder writes the audit trail and metrics of a committed status
// change. A failed history write is logged; the change itself stands.
type statusRecorder struct {
	history secondary.StatusHistoryRepository
}

func (r statusRecorder) record(ctx context.Context, submissionID string, from, to submission.Status, at time.Time) {
	metrics.RecordTransition(string(from), string(to))

	if r.history == nil {
		return
	}
	err := r.history.Record(ctx, &secondary.StatusHistoryRecord{
		SubmissionID: submissionID,
		OldStatus:    from,
		NewStatus:    to,
		Actor:        ctxutil.ActorFromContext(ctx),
		ChangedAt:    at,
	})
	if err != nil {
		logr.FromContextOrDiscard(ctx).Error(err, "failed to record status change",
			"submission_id", submissionID, "from", from, "to", to)
	}
}
