package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/tossup-backend/internal/observability"
)

func TestMetricsLabelsRoutesAndOperations(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := observability.NewMetrics()

	r := gin.New()
	r.Use(Metrics(m))
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/api/sessions/:id/rounds/:round_id/answer", func(c *gin.Context) {
		if c.Param("round_id") == "gone" {
			c.Status(http.StatusConflict)
			return
		}
		c.Status(http.StatusOK)
	})

	for _, path := range []string{
		"/api/sessions/s1/rounds/r1/answer",
		"/api/sessions/s2/rounds/gone/answer",
		"/nowhere",
		"/healthz",
	} {
		method := http.MethodPost
		if path == "/healthz" {
			method = http.MethodGet
		}
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(method, path, nil))
	}

	var buf bytes.Buffer
	if err := m.WritePrometheus(&buf); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`tossup_api_requests_total{method="POST",route="/api/sessions/:id/rounds/:round_id/answer",status="200"} 1`,
		`tossup_api_requests_total{method="POST",route="/api/sessions/:id/rounds/:round_id/answer",status="409"} 1`,
		`tossup_api_requests_total{method="POST",route="unmatched",status="404"} 1`,
		`tossup_api_operations_total{operation="round.answer",outcome="ok"} 1`,
		`tossup_api_operations_total{operation="round.answer",outcome="client_error"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
	for _, unwanted := range []string{"s1", "route=\"/healthz\""} {
		if strings.Contains(out, unwanted) {
			t.Fatalf("unexpected %q in:\n%s", unwanted, out)
		}
	}
}

func TestOutcomeClass(t *testing.T) {
	cases := map[int]string{200: "ok", 201: "ok", 404: "client_error", 413: "client_error", 502: "server_error"}
	for status, want := range cases {
		if got := outcomeClass(status); got != want {
			t.Fatalf("outcomeClass(%d)=%q want %q", status, got, want)
		}
	}
}
