package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/tossup-backend/internal/http/response"
)

type HealthHandler struct {
	ready func(ctx context.Context) error
}

// NewHealthHandler reports ready when ready returns nil. A nil ready is
// always ready.
func NewHealthHandler(ready func(ctx context.Context) error) *HealthHandler {
	return &HealthHandler{ready: ready}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

func (h *HealthHandler) ReadyCheck(c *gin.Context) {
	if h.ready != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.ready(ctx); err != nil {
			response.RespondError(c, http.StatusServiceUnavailable, "not_ready", err)
			return
		}
	}
	c.String(http.StatusOK, "ok")
}
