package jobmetrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func scrape(t *testing.T, reg *prometheus.Registry) string {
	t.Helper()
	rr := httptest.NewRecorder()
	promhttp.HandlerFor(reg, promhttp.HandlerOpts{}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	return rr.Body.String()
}

func TestTrackerRecordsOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	if err := m.Track("analytics:export").End(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	boom := errors.New("boom")
	if err := m.Track("analytics:export").End(boom); !errors.Is(err, boom) {
		t.Fatalf("expected error to pass through, got %v", err)
	}

	body := scrape(t, reg)
	for _, want := range []string{
		`odyssey_export_tasks_total{outcome="ready",task="analytics:export"} 1`,
		`odyssey_export_tasks_total{outcome="retry",task="analytics:export"} 1`,
		`odyssey_export_task_failures_total{task="analytics:export"} 1`,
		`odyssey_export_task_duration_seconds_count{task="analytics:export"} 2`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in metrics, got: %s", want, body)
		}
	}
}

func TestAbandonedExportsCounted(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.Abandoned("analytics:export")
	m.Abandoned("")

	body := scrape(t, reg)
	if want := `odyssey_exports_abandoned_total{task="analytics:export"} 1`; !strings.Contains(body, want) {
		t.Fatalf("expected %q in metrics, got: %s", want, body)
	}
}

func TestNilMetricsRecordNothing(t *testing.T) {
	var m *Metrics
	if err := m.Track("noop").End(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m.Abandoned("noop")
}
