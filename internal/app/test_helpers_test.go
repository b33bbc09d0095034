package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/example/efiling/internal/core/effects"
	"github.com/example/efiling/internal/core/fesloader"
	"github.com/example/efiling/internal/core/submission"
	"github.com/example/efiling/internal/ports/secondary"
)

// ============================================================================
// Mock Implementations
// ============================================================================

// Ensure the mocks implement their interfaces
var (
	_ secondary.SubmissionRepository    = (*mockSubmissionRepository)(nil)
	_ secondary.StatusHistoryRepository = (*mockStatusHistory)(nil)
	_ secondary.NotificationSender      = (*mockNotificationSender)(nil)
	_ secondary.ConversionRequester     = (*mockConverter)(nil)
	_ secondary.ConvertedFileStore      = (*mockFileStore)(nil)
	_ secondary.FesLoader               = (*mockFesLoader)(nil)
	_ secondary.BarcodeGenerator        = (*mockBarcodeGenerator)(nil)
	_ EffectExecutor                    = (*mockEffectExecutor)(nil)
)

// mockSubmissionRepository implements secondary.SubmissionRepository with the
// same conditional-write semantics as the real stores.
type mockSubmissionRepository struct {
	mu          sync.Mutex
	submissions map[string]*secondary.SubmissionRecord
	findErr     error
	updateErr   error
	// conflicts makes the next n UpdateSubmission calls lose the race.
	conflicts int
	updates   int
}

func newMockSubmissionRepository() *mockSubmissionRepository {
	return &mockSubmissionRepository{submissions: make(map[string]*secondary.SubmissionRecord)}
}

func (m *mockSubmissionRepository) put(rec *secondary.SubmissionRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.Version == 0 {
		rec.Version = 1
	}
	m.submissions[rec.ID] = rec.Clone()
}

func (m *mockSubmissionRepository) get(id string) *secondary.SubmissionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.submissions[id]; ok {
		return rec.Clone()
	}
	return nil
}

func (m *mockSubmissionRepository) Create(ctx context.Context, submission *secondary.SubmissionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.submissions[submission.ID]; ok {
		return secondary.ErrConflict
	}
	submission.Version = 1
	m.submissions[submission.ID] = submission.Clone()
	return nil
}

func (m *mockSubmissionRepository) Read(ctx context.Context, id string) (*secondary.SubmissionRecord, error) {
	if rec := m.get(id); rec != nil {
		return rec, nil
	}
	return nil, fmt.Errorf("submission %s: %w", id, secondary.ErrNotFound)
}

func (m *mockSubmissionRepository) ReadByBarcode(ctx context.Context, barcode string) (*secondary.SubmissionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.submissions {
		if barcode != "" && rec.Barcode == barcode {
			return rec.Clone(), nil
		}
	}
	return nil, fmt.Errorf("barcode %s: %w", barcode, secondary.ErrNotFound)
}

func (m *mockSubmissionRepository) UpdateSubmission(ctx context.Context, submission *secondary.SubmissionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	stored, ok := m.submissions[submission.ID]
	if !ok {
		return secondary.ErrNotFound
	}
	if m.conflicts > 0 {
		m.conflicts--
		stored.Version++
	}
	if stored.Version != submission.Version {
		return secondary.ErrConflict
	}
	m.updates++
	submission.Version++
	m.submissions[submission.ID] = submission.Clone()
	return nil
}

func (m *mockSubmissionRepository) UpdateSubmissionStatus(ctx context.Context, id string, from, to submission.Status, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.submissions[id]
	if !ok {
		return secondary.ErrNotFound
	}
	if stored.Status != from {
		return secondary.ErrConflict
	}
	stored.Status = to
	stored.LastModifiedAt = at
	stored.Version++
	return nil
}

func (m *mockSubmissionRepository) UpdateSubmissionStatusByBarcode(ctx context.Context, barcode string, from, to submission.Status, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, stored := range m.submissions {
		if stored.Barcode != barcode {
			continue
		}
		if stored.Status != from {
			return secondary.ErrConflict
		}
		stored.Status = to
		stored.LastModifiedAt = at
		stored.Version++
		return nil
	}
	return secondary.ErrNotFound
}

func (m *mockSubmissionRepository) UpdateBarcode(ctx context.Context, id, barcode string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.submissions[id]
	if !ok {
		return secondary.ErrNotFound
	}
	if stored.Barcode != "" {
		return secondary.ErrConflict
	}
	stored.Barcode = barcode
	stored.LastModifiedAt = at
	stored.Version++
	return nil
}

func (m *mockSubmissionRepository) sorted(keep func(*secondary.SubmissionRecord) bool) []*secondary.SubmissionRecord {
	var out []*secondary.SubmissionRecord
	for _, rec := range m.submissions {
		if keep(rec) {
			out = append(out, rec.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastModifiedAt.Equal(out[j].LastModifiedAt) {
			return out[i].LastModifiedAt.Before(out[j].LastModifiedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (m *mockSubmissionRepository) FindByStatus(ctx context.Context, status submission.Status, limit int) ([]*secondary.SubmissionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	out := m.sorted(func(r *secondary.SubmissionRecord) bool { return r.Status == status })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockSubmissionRepository) FindDelayedSubmissions(ctx context.Context, status submission.Status, olderThan time.Time) ([]*secondary.SubmissionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.sorted(func(r *secondary.SubmissionRecord) bool {
		return r.Status == status && !r.LastModifiedAt.After(olderThan)
	}), nil
}

func (m *mockSubmissionRepository) FindPaidSubmissions(ctx context.Context, statuses []submission.Status, since time.Time) ([]*secondary.SubmissionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sorted(func(r *secondary.SubmissionRecord) bool {
		if r.PaymentReference == "" || r.SubmittedAt.Before(since) {
			return false
		}
		for _, s := range statuses {
			if r.Status == s {
				return true
			}
		}
		return false
	}), nil
}

// mockStatusHistory implements secondary.StatusHistoryRepository for testing.
type mockStatusHistory struct {
	mu        sync.Mutex
	entries   []*secondary.StatusHistoryRecord
	recordErr error
}

func (m *mockStatusHistory) Record(ctx context.Context, entry *secondary.StatusHistoryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.recordErr != nil {
		return m.recordErr
	}
	entry.ID = int64(len(m.entries) + 1)
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockStatusHistory) ListBySubmission(ctx context.Context, submissionID string) ([]*secondary.StatusHistoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*secondary.StatusHistoryRecord
	for _, e := range m.entries {
		if e.SubmissionID == submissionID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockStatusHistory) transitionsTo(status submission.Status) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.entries {
		if e.NewStatus == status {
			n++
		}
	}
	return n
}

// mockEffectExecutor implements EffectExecutor for testing.
type mockEffectExecutor struct {
	mu              sync.Mutex
	executedEffects []effects.Effect
	executeErr      error
}

func newMockEffectExecutor() *mockEffectExecutor {
	return &mockEffectExecutor{executedEffects: []effects.Effect{}}
}

func (m *mockEffectExecutor) Execute(ctx context.Context, effs []effects.Effect) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.executeErr != nil {
		return m.executeErr
	}
	m.executedEffects = append(m.executedEffects, effs...)
	return nil
}

func (m *mockEffectExecutor) notifications() []effects.NotifyEffect {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []effects.NotifyEffect
	for _, eff := range m.executedEffects {
		if n, ok := eff.(effects.NotifyEffect); ok {
			out = append(out, n)
		}
	}
	return out
}

// mockNotificationSender implements secondary.NotificationSender for testing.
type mockNotificationSender struct {
	sent    []*secondary.Notification
	sendErr error
}

func (m *mockNotificationSender) Send(ctx context.Context, notification *secondary.Notification) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, notification)
	return nil
}

// mockConverter implements secondary.ConversionRequester for testing.
type mockConverter struct {
	requested []string
	failFor   map[string]error
}

func (m *mockConverter) RequestConversion(ctx context.Context, submissionID, fileID string) error {
	if err := m.failFor[fileID]; err != nil {
		return err
	}
	m.requested = append(m.requested, submissionID+"/"+fileID)
	return nil
}

// mockFileStore implements secondary.ConvertedFileStore for testing.
type mockFileStore struct {
	files map[string]*secondary.ConvertedFile
}

func (m *mockFileStore) Fetch(ctx context.Context, convertedFileID string) (*secondary.ConvertedFile, error) {
	if f, ok := m.files[convertedFileID]; ok {
		return f, nil
	}
	return nil, fmt.Errorf("converted file %s: %w", convertedFileID, secondary.ErrNotFound)
}

// mockFesLoader implements secondary.FesLoader for testing.
type mockFesLoader struct {
	loaded  []*fesloader.Model
	forms   map[string]bool
	loadErr error
}

func newMockFesLoader() *mockFesLoader {
	return &mockFesLoader{forms: make(map[string]bool)}
}

func (m *mockFesLoader) Load(ctx context.Context, model *fesloader.Model) (*secondary.LoadResult, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	m.loaded = append(m.loaded, model)
	m.forms[model.Barcode] = true
	return &secondary.LoadResult{BatchID: 1, BatchName: "EWAA0001", EnvelopeID: 1, FormID: int64(len(m.loaded))}, nil
}

func (m *mockFesLoader) FormExists(ctx context.Context, barcode string) (bool, error) {
	return m.forms[barcode], nil
}

// mockBarcodeGenerator implements secondary.BarcodeGenerator for testing.
type mockBarcodeGenerator struct {
	next int
	err  error
}

func (m *mockBarcodeGenerator) Generate(ctx context.Context, date time.Time) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.next++
	return fmt.Sprintf("X%07d", m.next), nil
}

// ============================================================================
// Staging DAO mocks
// ============================================================================

// stagingJournal records the order of staging writes across the DAO mocks.
type stagingJournal struct {
	ops    []string
	seq    map[string]int64
	failAt string
	forms  map[string]bool
}

func newStagingJournal() *stagingJournal {
	return &stagingJournal{seq: make(map[string]int64), forms: make(map[string]bool)}
}

func (j *stagingJournal) next(name string) int64 {
	j.seq[name]++
	return j.seq[name]
}

func (j *stagingJournal) write(op string) error {
	if j.failAt == op {
		return errors.New(op + " write failed")
	}
	j.ops = append(j.ops, op)
	return nil
}

func (j *stagingJournal) daos() StagingDAOs {
	return StagingDAOs{
		Batches:         &mockBatchDAO{j},
		Envelopes:       &mockEnvelopeDAO{j},
		Images:          &mockImageDAO{j},
		CoveringLetters: &mockCoveringLetterDAO{j},
		Forms:           &mockFormDAO{j},
	}
}

type mockBatchDAO struct{ j *stagingJournal }

func (m *mockBatchDAO) NextID(ctx context.Context) (int64, error) {
	return m.j.next(fesloader.SequenceBatch), nil
}

func (m *mockBatchDAO) Insert(ctx context.Context, batch *secondary.BatchRow) error {
	return m.j.write("batch")
}

type mockEnvelopeDAO struct{ j *stagingJournal }

func (m *mockEnvelopeDAO) NextID(ctx context.Context) (int64, error) {
	return m.j.next(fesloader.SequenceEnvelope), nil
}

func (m *mockEnvelopeDAO) Insert(ctx context.Context, envelope *secondary.EnvelopeRow) error {
	return m.j.write("envelope")
}

type mockImageDAO struct{ j *stagingJournal }

func (m *mockImageDAO) NextID(ctx context.Context) (int64, error) {
	return m.j.next(fesloader.SequenceImage), nil
}

func (m *mockImageDAO) Insert(ctx context.Context, image *secondary.ImageRow) error {
	return m.j.write("image")
}

type mockCoveringLetterDAO struct{ j *stagingJournal }

func (m *mockCoveringLetterDAO) NextID(ctx context.Context) (int64, error) {
	return m.j.next(fesloader.SequenceCoveringLetter), nil
}

func (m *mockCoveringLetterDAO) Insert(ctx context.Context, letter *secondary.CoveringLetterRow) error {
	return m.j.write("covering-letter")
}

type mockFormDAO struct{ j *stagingJournal }

func (m *mockFormDAO) Insert(ctx context.Context, form *secondary.FormRow, attachments []*secondary.AttachmentRow) (int64, error) {
	if err := m.j.write("form"); err != nil {
		return 0, err
	}
	form.FormID = m.j.next(fesloader.SequenceForm)
	for _, a := range attachments {
		if err := m.j.write("attachment"); err != nil {
			return 0, fmt.Errorf("%w: %w", secondary.ErrAttachmentWrite, err)
		}
		a.AttachmentID = m.j.next(fesloader.SequenceAttachment)
		a.FormID = form.FormID
	}
	m.j.forms[form.Barcode] = true
	return form.FormID, nil
}

func (m *mockFormDAO) ExistsForBarcode(ctx context.Context, barcode string) (bool, error) {
	return m.j.forms[barcode], nil
}

// ============================================================================
// Fixtures
// ============================================================================

var testNow = time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

// queuedSubmission returns a QUEUED_FOR_CONVERSION submission whose files are
// all queued.
func queuedSubmission(id string, fileIDs ...string) *secondary.SubmissionRecord {
	rec := &secondary.SubmissionRecord{
		ID:                    id,
		Status:                submission.StatusQueuedForConversion,
		ConfirmationReference: "REF-" + id,
		PresenterEmail:        "presenter@example.com",
		CompanyNumber:         "01234567",
		CompanyName:           "ACME LTD",
		FormType:              "SH01",
		CreatedAt:             testNow.Add(-2 * time.Hour),
		SubmittedAt:           testNow.Add(-time.Hour),
		LastModifiedAt:        testNow.Add(-time.Hour),
		Version:               1,
	}
	for _, f := range fileIDs {
		rec.Files = append(rec.Files, secondary.FileRecord{
			FileID:           f,
			FileName:         f + ".pdf",
			ConversionStatus: submission.FileStatusQueued,
		})
	}
	return rec
}

// readySubmission returns a READY_FOR_FES submission with converted files.
func readySubmission(id string) *secondary.SubmissionRecord {
	rec := queuedSubmission(id, "F1", "F2")
	rec.Status = submission.StatusReadyForFes
	rec.Files[0].CoveringLetter = true
	for i := range rec.Files {
		rec.Files[i].ConversionStatus = submission.FileStatusConverted
		rec.Files[i].ConvertedFileID = "C-" + rec.Files[i].FileID
	}
	return rec
}
