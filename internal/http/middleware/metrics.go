package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/tossup-backend/internal/observability"
)

// Probe and scrape routes are not metered.
var unmeteredRoutes = map[string]struct{}{
	"/metrics": {},
	"/healthz": {},
	"/readyz":  {},
}

// Game operations keyed by "METHOD route template".
var routeOperations = map[string]string{
	"POST /api/evaluate":                             "evaluate",
	"POST /api/evaluate/batch":                       "evaluate.batch",
	"POST /api/candidates":                           "candidates",
	"POST /api/sessions":                             "session.start",
	"GET /api/sessions/:id":                          "session.get",
	"POST /api/sessions/:id/reset":                   "session.reset",
	"POST /api/sessions/:id/rounds":                  "round.next",
	"GET /api/sessions/:id/rounds":                   "round.history",
	"POST /api/sessions/:id/rounds/:round_id/answer": "round.answer",
	"POST /api/sessions/:id/rounds/:round_id/audio":  "round.audio",
}

// Metrics records request counts, latency and per-operation outcomes. Routes
// are labelled by template so session ids never become label values.
func Metrics(m *observability.Metrics) gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		route := c.FullPath()
		if _, skip := unmeteredRoutes[route]; skip {
			c.Next()
			return
		}

		start := time.Now()
		m.APIInflightInc()
		defer m.APIInflightDec()

		c.Next()

		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		m.ObserveAPI(c.Request.Method, route, strconv.Itoa(status), time.Since(start))
		m.ObserveOperation(routeOperations[c.Request.Method+" "+route], outcomeClass(status))
	}
}

func outcomeClass(status int) string {
	switch {
	case status >= http.StatusInternalServerError:
		return "server_error"
	case status >= http.StatusBadRequest:
		return "client_error"
	default:
		return "ok"
	}
}
