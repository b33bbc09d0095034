package sqlite_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/efiling/internal/adapters/sqlite"
	coresubmission "github.com/example/efiling/internal/core/submission"
	"github.com/example/efiling/internal/ports/secondary"
)

func TestSubmissionRepository_CreateAndRead(t *testing.T) {
	repo := sqlite.NewSubmissionRepository(setupTestDB(t))
	ctx := context.Background()

	s := newSubmission("SUB-1", coresubmission.StatusQueuedForConversion)
	s.SameDay = true
	s.FeeOnSubmission = "15.00"
	s.SubmittedAt = baseTime.Add(-time.Hour)
	seedSubmission(t, repo, s)
	assert.Equal(t, int64(1), s.Version)

	got, err := repo.Read(ctx, "SUB-1")
	require.NoError(t, err)
	if diff := cmp.Diff(s, got); diff != "" {
		t.Errorf("Read() mismatch (-want +got):\n%s", diff)
	}
}

func TestSubmissionRepository_CreateDuplicate(t *testing.T) {
	repo := sqlite.NewSubmissionRepository(setupTestDB(t))
	seedSubmission(t, repo, newSubmission("SUB-1", coresubmission.StatusOpen))

	err := repo.Create(context.Background(), newSubmission("SUB-1", coresubmission.StatusOpen))
	assert.ErrorIs(t, err, secondary.ErrConflict)
}

func TestSubmissionRepository_ReadNotFound(t *testing.T) {
	repo := sqlite.NewSubmissionRepository(setupTestDB(t))

	_, err := repo.Read(context.Background(), "missing")
	assert.ErrorIs(t, err, secondary.ErrNotFound)

	_, err = repo.ReadByBarcode(context.Background(), "123")
	assert.ErrorIs(t, err, secondary.ErrNotFound)
}

func TestSubmissionRepository_UpdateSubmissionVersionCheck(t *testing.T) {
	repo := sqlite.NewSubmissionRepository(setupTestDB(t))
	ctx := context.Background()
	seedSubmission(t, repo, newSubmission("SUB-1", coresubmission.StatusQueuedForConversion))

	first, err := repo.Read(ctx, "SUB-1")
	require.NoError(t, err)
	stale, err := repo.Read(ctx, "SUB-1")
	require.NoError(t, err)

	first.Files[0].ConversionStatus = coresubmission.FileStatusConverted
	first.Files[0].ConvertedFileID = "CONV-1"
	require.NoError(t, repo.UpdateSubmission(ctx, first))
	assert.Equal(t, int64(2), first.Version)

	stale.Files[1].ConversionStatus = coresubmission.FileStatusFailed
	err = repo.UpdateSubmission(ctx, stale)
	assert.ErrorIs(t, err, secondary.ErrConflict)

	got, err := repo.Read(ctx, "SUB-1")
	require.NoError(t, err)
	assert.Equal(t, coresubmission.FileStatusConverted, got.Files[0].ConversionStatus)
	assert.Equal(t, "CONV-1", got.Files[0].ConvertedFileID)
	assert.Equal(t, coresubmission.FileStatusQueued, got.Files[1].ConversionStatus)

	missing := newSubmission("SUB-X", coresubmission.StatusOpen)
	missing.Version = 1
	assert.ErrorIs(t, repo.UpdateSubmission(ctx, missing), secondary.ErrNotFound)
}

func TestSubmissionRepository_ConcurrentUpdatesOneWins(t *testing.T) {
	repo := sqlite.NewSubmissionRepository(setupTestDB(t))
	ctx := context.Background()
	seedSubmission(t, repo, newSubmission("SUB-1", coresubmission.StatusQueuedForConversion))

	const writers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		wins      int
		conflicts int
	)
	copies := make([]*secondary.SubmissionRecord, writers)
	for i := range copies {
		c, err := repo.Read(ctx, "SUB-1")
		require.NoError(t, err)
		copies[i] = c
	}

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(s *secondary.SubmissionRecord) {
			defer wg.Done()
			s.LastModifiedAt = baseTime.Add(time.Minute)
			err := repo.UpdateSubmission(ctx, s)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins++
			} else {
				conflicts++
			}
		}(copies[i])
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, writers-1, conflicts)
}

func TestSubmissionRepository_UpdateSubmissionStatus(t *testing.T) {
	repo := sqlite.NewSubmissionRepository(setupTestDB(t))
	ctx := context.Background()
	seedSubmission(t, repo, newSubmission("SUB-1", coresubmission.StatusReadyForFes))
	later := baseTime.Add(5 * time.Minute)

	require.NoError(t, repo.UpdateSubmissionStatus(ctx, "SUB-1", coresubmission.StatusReadyForFes, coresubmission.StatusSubmittedToFes, later))

	got, err := repo.Read(ctx, "SUB-1")
	require.NoError(t, err)
	assert.Equal(t, coresubmission.StatusSubmittedToFes, got.Status)
	assert.Equal(t, later, got.LastModifiedAt)
	assert.Equal(t, int64(2), got.Version)

	err = repo.UpdateSubmissionStatus(ctx, "SUB-1", coresubmission.StatusReadyForFes, coresubmission.StatusSubmittedToFes, later)
	assert.ErrorIs(t, err, secondary.ErrConflict)

	err = repo.UpdateSubmissionStatus(ctx, "missing", coresubmission.StatusReadyForFes, coresubmission.StatusSubmittedToFes, later)
	assert.ErrorIs(t, err, secondary.ErrNotFound)
}

func TestSubmissionRepository_BarcodeOperations(t *testing.T) {
	repo := sqlite.NewSubmissionRepository(setupTestDB(t))
	ctx := context.Background()
	seedSubmission(t, repo, newSubmission("SUB-1", coresubmission.StatusReadyForFes))
	seedSubmission(t, repo, newSubmission("SUB-2", coresubmission.StatusReadyForFes))

	require.NoError(t, repo.UpdateBarcode(ctx, "SUB-1", "Y1234567", baseTime))
	assert.ErrorIs(t, repo.UpdateBarcode(ctx, "SUB-1", "Y7654321", baseTime), secondary.ErrConflict, "barcode is set once")
	assert.ErrorIs(t, repo.UpdateBarcode(ctx, "SUB-2", "Y1234567", baseTime), secondary.ErrConflict, "barcodes are unique")

	got, err := repo.ReadByBarcode(ctx, "Y1234567")
	require.NoError(t, err)
	assert.Equal(t, "SUB-1", got.ID)

	require.NoError(t, repo.UpdateSubmissionStatus(ctx, "SUB-1", coresubmission.StatusReadyForFes, coresubmission.StatusSubmittedToFes, baseTime))
	require.NoError(t, repo.UpdateSubmissionStatusByBarcode(ctx, "Y1234567", coresubmission.StatusSubmittedToFes, coresubmission.StatusAcceptedByFes, baseTime))

	err = repo.UpdateSubmissionStatusByBarcode(ctx, "Y1234567", coresubmission.StatusSubmittedToFes, coresubmission.StatusRejectedByFes, baseTime)
	assert.ErrorIs(t, err, secondary.ErrConflict)

	err = repo.UpdateSubmissionStatusByBarcode(ctx, "123", coresubmission.StatusSubmittedToFes, coresubmission.StatusAcceptedByFes, baseTime)
	assert.ErrorIs(t, err, secondary.ErrNotFound)
}

func TestSubmissionRepository_FindByStatus(t *testing.T) {
	repo := sqlite.NewSubmissionRepository(setupTestDB(t))
	ctx := context.Background()

	for i, id := range []string{"SUB-3", "SUB-1", "SUB-2"} {
		s := newSubmission(id, coresubmission.StatusSubmitted)
		s.LastModifiedAt = baseTime.Add(time.Duration(i) * time.Minute)
		seedSubmission(t, repo, s)
	}
	seedSubmission(t, repo, newSubmission("SUB-9", coresubmission.StatusOpen))

	got, err := repo.FindByStatus(ctx, coresubmission.StatusSubmitted, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "SUB-3", got[0].ID)
	assert.Equal(t, "SUB-1", got[1].ID)

	all, err := repo.FindByStatus(ctx, coresubmission.StatusSubmitted, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestSubmissionRepository_FindDelayedSubmissionsBoundary(t *testing.T) {
	repo := sqlite.NewSubmissionRepository(setupTestDB(t))
	ctx := context.Background()
	cutoff := baseTime

	atCutoff := newSubmission("SUB-AT", coresubmission.StatusProcessing)
	atCutoff.LastModifiedAt = cutoff
	seedSubmission(t, repo, atCutoff)

	justAfter := newSubmission("SUB-AFTER", coresubmission.StatusProcessing)
	justAfter.LastModifiedAt = cutoff.Add(time.Millisecond)
	seedSubmission(t, repo, justAfter)

	otherStatus := newSubmission("SUB-OPEN", coresubmission.StatusOpen)
	otherStatus.LastModifiedAt = cutoff.Add(-time.Hour)
	seedSubmission(t, repo, otherStatus)

	got, err := repo.FindDelayedSubmissions(ctx, coresubmission.StatusProcessing, cutoff)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "SUB-AT", got[0].ID)
}

func TestSubmissionRepository_FindPaidSubmissions(t *testing.T) {
	repo := sqlite.NewSubmissionRepository(setupTestDB(t))
	ctx := context.Background()
	since := baseTime

	paid := newSubmission("SUB-PAID", coresubmission.StatusAcceptedByFes)
	paid.PaymentReference = "PAY-1"
	paid.SubmittedAt = since
	seedSubmission(t, repo, paid)

	unpaid := newSubmission("SUB-FREE", coresubmission.StatusAcceptedByFes)
	unpaid.SubmittedAt = since
	seedSubmission(t, repo, unpaid)

	early := newSubmission("SUB-EARLY", coresubmission.StatusAcceptedByFes)
	early.PaymentReference = "PAY-2"
	early.SubmittedAt = since.Add(-time.Millisecond)
	seedSubmission(t, repo, early)

	wrongStatus := newSubmission("SUB-OPEN", coresubmission.StatusOpen)
	wrongStatus.PaymentReference = "PAY-3"
	wrongStatus.SubmittedAt = since
	seedSubmission(t, repo, wrongStatus)

	got, err := repo.FindPaidSubmissions(ctx, []coresubmission.Status{coresubmission.StatusAcceptedByFes, coresubmission.StatusSubmittedToFes}, since)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "SUB-PAID", got[0].ID)

	none, err := repo.FindPaidSubmissions(ctx, nil, since)
	require.NoError(t, err)
	assert.Empty(t, none)
}
