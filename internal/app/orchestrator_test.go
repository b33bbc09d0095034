package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/efiling/internal/core/fesloader"
	"github.com/example/efiling/internal/core/submission"
	"github.com/example/efiling/internal/ctxutil"
	"github.com/example/efiling/internal/idgen"
	"github.com/example/efiling/internal/ports/primary"
	"github.com/example/efiling/internal/ports/secondary"
)

type orchestratorFixture struct {
	orchestrator *OrchestratorImpl
	repo         *mockSubmissionRepository
	history      *mockStatusHistory
	converter    *mockConverter
	files        *mockFileStore
	loader       *mockFesLoader
	barcodes     *mockBarcodeGenerator
}

func newTestOrchestrator() *orchestratorFixture {
	f := &orchestratorFixture{
		repo:      newMockSubmissionRepository(),
		history:   &mockStatusHistory{},
		converter: &mockConverter{failFor: map[string]error{}},
		files: &mockFileStore{files: map[string]*secondary.ConvertedFile{
			"C-F1": {Data: []byte("cover"), PageCount: 1},
			"C-F2": {Data: []byte("form"), PageCount: 3},
		}},
		loader:   newMockFesLoader(),
		barcodes: &mockBarcodeGenerator{},
	}
	f.orchestrator = NewOrchestrator(OrchestratorDeps{
		Repo:       f.repo,
		History:    f.history,
		Converter:  f.converter,
		Files:      f.files,
		Loader:     f.loader,
		Barcodes:   f.barcodes,
		Clock:      idgen.NewFixedClock(testNow),
		SweepLimit: 10,
	})
	return f
}

func submittedSubmission(id string, fileIDs ...string) *secondary.SubmissionRecord {
	rec := queuedSubmission(id, fileIDs...)
	rec.Status = submission.StatusSubmitted
	for i := range rec.Files {
		rec.Files[i].ConversionStatus = submission.FileStatusPending
	}
	return rec
}

// ============================================================================
// ProcessFiles Tests
// ============================================================================

func TestProcessFiles_QueuesEveryFile(t *testing.T) {
	f := newTestOrchestrator()
	f.repo.put(submittedSubmission("S1", "F1", "F2"))

	result, err := f.orchestrator.ProcessFiles(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.Examined != 1 || result.Advanced != 1 || result.Failed != 0 {
		t.Errorf("unexpected result %+v", result)
	}
	if len(f.converter.requested) != 2 {
		t.Errorf("expected 2 conversion requests, got %v", f.converter.requested)
	}

	stored := f.repo.get("S1")
	if stored.Status != submission.StatusQueuedForConversion {
		t.Errorf("expected QUEUED_FOR_CONVERSION, got %s", stored.Status)
	}
	for _, file := range stored.Files {
		if file.ConversionStatus != submission.FileStatusQueued {
			t.Errorf("file %s is %s", file.FileID, file.ConversionStatus)
		}
	}

	entries, _ := f.history.ListBySubmission(context.Background(), "S1")
	if len(entries) != 1 || entries[0].Actor != "sweep:"+primary.SweepProcessFiles {
		t.Errorf("unexpected history %+v", entries)
	}
}

func TestProcessFiles_DispatchFailureLeavesSubmitted(t *testing.T) {
	f := newTestOrchestrator()
	f.repo.put(submittedSubmission("S1", "F1", "F2"))
	f.repo.put(submittedSubmission("S2", "F3"))
	f.converter.failFor["F2"] = errors.New("converter unavailable")

	result, err := f.orchestrator.ProcessFiles(context.Background())
	if err == nil {
		t.Fatal("expected the failure to be reported")
	}
	if result.Examined != 2 || result.Advanced != 1 || result.Failed != 1 {
		t.Errorf("unexpected result %+v", result)
	}

	s1 := f.repo.get("S1")
	if s1.Status != submission.StatusSubmitted {
		t.Errorf("S1 expected SUBMITTED, got %s", s1.Status)
	}
	if s1.Files[0].ConversionStatus != submission.FileStatusQueued || s1.Files[1].ConversionStatus != submission.FileStatusPending {
		t.Errorf("unexpected file states %+v", s1.Files)
	}
	if got := f.repo.get("S2").Status; got != submission.StatusQueuedForConversion {
		t.Errorf("S2 expected QUEUED_FOR_CONVERSION, got %s", got)
	}

	// The next sweep only sends the file that is still pending.
	delete(f.converter.failFor, "F2")
	f.converter.requested = nil
	if _, err := f.orchestrator.ProcessFiles(context.Background()); err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if len(f.converter.requested) != 1 || f.converter.requested[0] != "S1/F2" {
		t.Errorf("expected only S1/F2 to be requested, got %v", f.converter.requested)
	}
	if got := f.repo.get("S1").Status; got != submission.StatusQueuedForConversion {
		t.Errorf("S1 expected QUEUED_FOR_CONVERSION, got %s", got)
	}
}

func TestProcessFiles_StoreError(t *testing.T) {
	f := newTestOrchestrator()
	f.repo.findErr = errors.New("connection refused")

	if _, err := f.orchestrator.ProcessFiles(context.Background()); err == nil {
		t.Error("expected error")
	}
}

func TestProcessFiles_KeepsCallerActorOutOfHistory(t *testing.T) {
	f := newTestOrchestrator()
	f.repo.put(submittedSubmission("S1", "F1"))
	ctx := ctxutil.WithActorID(context.Background(), ctxutil.ActorPresenter)

	if _, err := f.orchestrator.ProcessFiles(ctx); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	entries, _ := f.history.ListBySubmission(ctx, "S1")
	if len(entries) != 1 || entries[0].Actor != "sweep:"+primary.SweepProcessFiles {
		t.Errorf("unexpected history %+v", entries)
	}
}

// ============================================================================
// SubmitToFes Tests
// ============================================================================

func TestSubmitToFes_LoadsAndAdvances(t *testing.T) {
	f := newTestOrchestrator()
	f.repo.put(readySubmission("S1"))

	result, err := f.orchestrator.SubmitToFes(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.Advanced != 1 {
		t.Errorf("unexpected result %+v", result)
	}

	stored := f.repo.get("S1")
	if stored.Status != submission.StatusSubmittedToFes {
		t.Errorf("expected SUBMITTED_TO_FES, got %s", stored.Status)
	}
	if stored.Barcode != "X0000001" {
		t.Errorf("expected generated barcode, got %q", stored.Barcode)
	}

	if len(f.loader.loaded) != 1 {
		t.Fatalf("expected 1 load, got %d", len(f.loader.loaded))
	}
	model := f.loader.loaded[0]
	if model.Barcode != "X0000001" || len(model.Images) != 2 {
		t.Errorf("unexpected model %+v", model)
	}
	if !model.Images[0].CoveringLetter || model.Images[1].PageCount != 3 {
		t.Errorf("images not carried over: %+v", model.Images)
	}
	wantDate := stored.SubmittedAt.UTC().Truncate(24 * time.Hour)
	if !model.BarcodeDate.Equal(wantDate) {
		t.Errorf("BarcodeDate = %v, want %v", model.BarcodeDate, wantDate)
	}
}

func TestSubmitToFes_KeepsExistingBarcode(t *testing.T) {
	f := newTestOrchestrator()
	rec := readySubmission("S1")
	rec.Barcode = "X7777777"
	f.repo.put(rec)

	if _, err := f.orchestrator.SubmitToFes(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if f.barcodes.next != 0 {
		t.Error("expected no barcode to be generated")
	}
	if f.loader.loaded[0].Barcode != "X7777777" {
		t.Errorf("expected existing barcode, got %s", f.loader.loaded[0].Barcode)
	}
}

func TestSubmitToFes_SkipsLoadWhenFormExists(t *testing.T) {
	f := newTestOrchestrator()
	rec := readySubmission("S1")
	rec.Barcode = "X7777777"
	f.repo.put(rec)
	f.loader.forms["X7777777"] = true

	result, err := f.orchestrator.SubmitToFes(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(f.loader.loaded) != 0 {
		t.Errorf("expected no second load, got %d", len(f.loader.loaded))
	}
	if result.Advanced != 1 || f.repo.get("S1").Status != submission.StatusSubmittedToFes {
		t.Errorf("expected the submission to advance, result %+v", result)
	}
}

func TestSubmitToFes_LoadFailureLeavesReady(t *testing.T) {
	f := newTestOrchestrator()
	f.repo.put(readySubmission("S1"))
	f.loader.loadErr = &fesloader.LoaderError{SubmissionID: "S1", Stage: fesloader.StageEnvelope, Err: errors.New("db down")}

	result, err := f.orchestrator.SubmitToFes(context.Background())
	if err == nil {
		t.Fatal("expected load failure")
	}
	if stage, ok := fesloader.StageOf(err); !ok || stage != fesloader.StageEnvelope {
		t.Errorf("expected envelope stage, got %q (%v)", stage, ok)
	}
	if result.Failed != 1 {
		t.Errorf("unexpected result %+v", result)
	}

	stored := f.repo.get("S1")
	if stored.Status != submission.StatusReadyForFes {
		t.Errorf("expected READY_FOR_FES, got %s", stored.Status)
	}
	if stored.Barcode == "" {
		t.Error("expected barcode to be kept for the retry")
	}
}

func TestSubmitToFes_MissingConvertedFile(t *testing.T) {
	f := newTestOrchestrator()
	rec := readySubmission("S1")
	rec.Files[1].ConvertedFileID = "C-missing"
	f.repo.put(rec)

	_, err := f.orchestrator.SubmitToFes(context.Background())
	if stage, ok := fesloader.StageOf(err); !ok || stage != fesloader.StageModel {
		t.Errorf("expected model stage, got %q (%v): %v", stage, ok, err)
	}
	if got := f.repo.get("S1").Status; got != submission.StatusReadyForFes {
		t.Errorf("expected READY_FOR_FES, got %s", got)
	}
}

func TestSubmitToFes_BarcodeGenerationFails(t *testing.T) {
	f := newTestOrchestrator()
	f.repo.put(readySubmission("S1"))
	f.barcodes.err = errors.New("exhausted")

	if _, err := f.orchestrator.SubmitToFes(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if len(f.loader.loaded) != 0 {
		t.Error("expected no load without a barcode")
	}
}

func TestSubmitToFes_RespectsSweepLimit(t *testing.T) {
	f := newTestOrchestrator()
	f.orchestrator.deps.SweepLimit = 1
	f.repo.put(readySubmission("S1"))
	f.repo.put(readySubmission("S2"))

	result, err := f.orchestrator.SubmitToFes(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.Examined != 1 {
		t.Errorf("expected 1 examined, got %d", result.Examined)
	}
}
