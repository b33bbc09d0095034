package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordTransition(t *testing.T) {
	Register()

	before := testutil.ToFloat64(submissionTransitions.WithLabelValues("SUBMITTED", "QUEUED_FOR_CONVERSION"))
	RecordTransition("SUBMITTED", "QUEUED_FOR_CONVERSION")
	RecordTransition("SUBMITTED", "QUEUED_FOR_CONVERSION")

	got := testutil.ToFloat64(submissionTransitions.WithLabelValues("SUBMITTED", "QUEUED_FOR_CONVERSION"))
	if got-before != 2 {
		t.Errorf("transitions delta = %v, want 2", got-before)
	}
}

func TestRecordFesLoad_SkippedNotObserved(t *testing.T) {
	Register()

	before := testutil.CollectAndCount(fesLoadDuration)
	RecordFesLoad(ResultSkipped, time.Second)
	RecordFesLoad(ResultSuccess, 20*time.Millisecond)

	if got := testutil.ToFloat64(fesLoads.WithLabelValues(ResultSkipped)); got < 1 {
		t.Errorf("skipped loads = %v, want >= 1", got)
	}
	if got := testutil.CollectAndCount(fesLoadDuration); got != before {
		t.Errorf("histogram series = %d, want %d", got, before)
	}
}

func TestHandler(t *testing.T) {
	RecordSweepRun("process-files", ResultSuccess)
	RecordNotification("submission-accepted", ResultSuccess)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	for _, name := range []string{"efiling_sweep_runs_total", "efiling_notifications_total"} {
		if !strings.Contains(body, name) {
			t.Errorf("metrics output missing %s", name)
		}
	}
}
