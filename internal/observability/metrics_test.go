package observability

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/healthz", "200", time.Millisecond)
	m.ObserveEvaluation(true, "extracted", "exact")
	m.ObserveProviderDraw("static", "ok", time.Millisecond)
	m.IncTranscription("ok")
	m.ObserveOperation("round.answer", "ok")
	m.APIInflightInc()
	m.APIInflightDec()

	rec := httptest.NewRecorder()
	m.WriteHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("nil metrics status=%d", rec.Code)
	}
}

func TestMetricsExposition(t *testing.T) {
	m := NewMetrics()
	m.ObserveEvaluation(true, "authoritative", "substring")
	m.ObserveEvaluation(true, "authoritative", "substring")
	m.ObserveEvaluation(false, "", "")
	m.ObserveAPI("POST", "/api/evaluate", "200", 30*time.Millisecond)

	if got := m.evaluations.Value("true", "authoritative", "substring"); got != 2 {
		t.Fatalf("evaluations=%v", got)
	}

	var buf bytes.Buffer
	if err := m.WritePrometheus(&buf); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"# TYPE tossup_evaluations_total counter",
		`tossup_evaluations_total{correct="true",tier="authoritative",rule="substring"} 2`,
		`tossup_evaluations_total{correct="false",tier="none",rule="none"} 1`,
		`tossup_api_request_duration_seconds_bucket{method="POST",route="/api/evaluate",status="200",le="0.05"} 1`,
		`tossup_api_request_duration_seconds_bucket{method="POST",route="/api/evaluate",status="200",le="0.025"} 0`,
		`tossup_api_request_duration_seconds_count{method="POST",route="/api/evaluate",status="200"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestLabelString(t *testing.T) {
	if got := labelString([]string{"a", "b"}, []string{`x"y`}); got != `{a="x\"y",b="unknown"}` {
		t.Fatalf("labelString=%s", got)
	}
	if got := withLe("", "1"); got != `{le="1"}` {
		t.Fatalf("withLe=%s", got)
	}
}
