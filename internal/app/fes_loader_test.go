package app

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/example/efiling/internal/core/fesloader"
	"github.com/example/efiling/internal/idgen"
	"github.com/example/efiling/internal/ports/secondary"
)

type firstSymbol struct{}

func (firstSymbol) IntN(int) int { return 0 }

func newTestLoader(t *testing.T) (*FesLoaderService, *stagingJournal) {
	t.Helper()
	prefix, err := idgen.NewRandomStringPattern("EW##", "ABCDEFGHJKLMNPQRSTUVWXYZ", firstSymbol{})
	if err != nil {
		t.Fatalf("pattern: %v", err)
	}
	namer, err := idgen.NewBatchNamer(prefix, 4)
	if err != nil {
		t.Fatalf("namer: %v", err)
	}
	journal := newStagingJournal()
	return NewFesLoaderService(journal.daos(), namer, idgen.NewFixedClock(testNow)), journal
}

func testModel(images ...fesloader.Image) *fesloader.Model {
	return &fesloader.Model{
		SubmissionID:  "S1",
		Barcode:       "X0000001",
		CompanyName:   "ACME LTD",
		CompanyNumber: "01234567",
		FormType:      "SH01",
		BarcodeDate:   testNow,
		Images:        images,
	}
}

func TestFesLoader_WritesInOrder(t *testing.T) {
	loader, journal := newTestLoader(t)

	result, err := loader.Load(context.Background(), testModel(
		fesloader.Image{FileID: "F1", Data: []byte("cover"), PageCount: 1, CoveringLetter: true},
		fesloader.Image{FileID: "F2", Data: []byte("form"), PageCount: 3},
	))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	want := []string{"batch", "envelope", "image", "covering-letter", "image", "form"}
	if !reflect.DeepEqual(journal.ops, want) {
		t.Errorf("write order = %v, want %v", journal.ops, want)
	}
	if result.BatchName != "EWAA0001" {
		t.Errorf("BatchName = %q", result.BatchName)
	}
	if len(result.ImageIDs) != 2 || len(result.CoveringLetterIDs) != 1 || len(result.AttachmentIDs) != 0 {
		t.Errorf("unexpected result %+v", result)
	}
	if result.FormID != 1 {
		t.Errorf("FormID = %d", result.FormID)
	}

	exists, err := loader.FormExists(context.Background(), "X0000001")
	if err != nil || !exists {
		t.Errorf("FormExists() = %v, %v", exists, err)
	}
}

func TestFesLoader_ExtraImagesBecomeAttachments(t *testing.T) {
	loader, journal := newTestLoader(t)

	result, err := loader.Load(context.Background(), testModel(
		fesloader.Image{FileID: "F1", Data: []byte("form"), PageCount: 2},
		fesloader.Image{FileID: "F2", Data: []byte("extra"), PageCount: 1},
		fesloader.Image{FileID: "F3", Data: []byte("extra"), PageCount: 1},
	))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	want := []string{"batch", "envelope", "image", "image", "image", "form", "attachment", "attachment"}
	if !reflect.DeepEqual(journal.ops, want) {
		t.Errorf("write order = %v, want %v", journal.ops, want)
	}
	if len(result.AttachmentIDs) != 2 || len(result.CoveringLetterIDs) != 0 {
		t.Errorf("unexpected result %+v", result)
	}
}

func TestFesLoader_FailureStages(t *testing.T) {
	images := []fesloader.Image{
		{FileID: "F1", Data: []byte("cover"), PageCount: 1, CoveringLetter: true},
		{FileID: "F2", Data: []byte("form"), PageCount: 1},
		{FileID: "F3", Data: []byte("extra"), PageCount: 1},
	}
	tests := []struct {
		failAt string
		want   fesloader.Stage
	}{
		{failAt: "batch", want: fesloader.StageBatch},
		{failAt: "envelope", want: fesloader.StageEnvelope},
		{failAt: "image", want: fesloader.StageImage},
		{failAt: "covering-letter", want: fesloader.StageCoveringLetter},
		{failAt: "form", want: fesloader.StageForm},
		{failAt: "attachment", want: fesloader.StageAttachment},
	}

	for _, tt := range tests {
		t.Run(tt.failAt, func(t *testing.T) {
			loader, journal := newTestLoader(t)
			journal.failAt = tt.failAt

			_, err := loader.Load(context.Background(), testModel(images...))
			var loadErr *fesloader.LoaderError
			if !errors.As(err, &loadErr) {
				t.Fatalf("expected *LoaderError, got %v", err)
			}
			if loadErr.Stage != tt.want || loadErr.SubmissionID != "S1" {
				t.Errorf("got stage %s for %s, want %s", loadErr.Stage, loadErr.SubmissionID, tt.want)
			}
		})
	}
}

func TestFesLoader_NoFormImage(t *testing.T) {
	loader, journal := newTestLoader(t)

	_, err := loader.Load(context.Background(), testModel(
		fesloader.Image{FileID: "F1", Data: []byte("cover"), PageCount: 1, CoveringLetter: true},
	))
	if stage, ok := fesloader.StageOf(err); !ok || stage != fesloader.StageModel {
		t.Errorf("expected model stage, got %q (%v)", stage, ok)
	}
	if len(journal.ops) != 0 {
		t.Errorf("expected nothing written, got %v", journal.ops)
	}
}

var _ secondary.FormDAO = (*mockFormDAO)(nil)
