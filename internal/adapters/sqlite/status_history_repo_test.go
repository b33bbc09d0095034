package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/efiling/internal/adapters/sqlite"
	coresubmission "github.com/example/efiling/internal/core/submission"
	"github.com/example/efiling/internal/ports/secondary"
)

func TestStatusHistoryRepository_RecordAndList(t *testing.T) {
	testDB := setupTestDB(t)
	seedSubmission(t, sqlite.NewSubmissionRepository(testDB), newSubmission("SUB-1", coresubmission.StatusOpen))
	repo := sqlite.NewStatusHistoryRepository(testDB)
	ctx := context.Background()

	first := &secondary.StatusHistoryRecord{
		SubmissionID: "SUB-1",
		NewStatus:    coresubmission.StatusOpen,
		Actor:        "presenter",
		ChangedAt:    baseTime,
	}
	require.NoError(t, repo.Record(ctx, first))
	assert.NotZero(t, first.ID)

	second := &secondary.StatusHistoryRecord{
		SubmissionID: "SUB-1",
		OldStatus:    coresubmission.StatusOpen,
		NewStatus:    coresubmission.StatusProcessing,
		ChangedAt:    baseTime.Add(time.Minute),
	}
	require.NoError(t, repo.Record(ctx, second))
	assert.Equal(t, "unknown", second.Actor)

	got, err := repo.ListBySubmission(ctx, "SUB-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, coresubmission.Status(""), got[0].OldStatus)
	assert.Equal(t, coresubmission.StatusProcessing, got[1].NewStatus)
	assert.Equal(t, baseTime.Add(time.Minute), got[1].ChangedAt)

	empty, err := repo.ListBySubmission(ctx, "SUB-2")
	require.NoError(t, err)
	assert.Empty(t, empty)
}
