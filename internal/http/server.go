package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/tossup-backend/internal/config"
)

type Server struct {
	Engine *gin.Engine
	srv    *http.Server
}

func NewServer(cfg config.HTTPConfig, rc RouterConfig) *Server {
	engine := NewRouter(rc)
	return &Server{
		Engine: engine,
		srv: &http.Server{
			Addr:              cfg.Addr,
			Handler:           engine,
			ReadHeaderTimeout: orDefault(cfg.ReadHeaderTimeout.Duration, 10*time.Second),
			IdleTimeout:       orDefault(cfg.IdleTimeout.Duration, 60*time.Second),
		},
	}
}

func (s *Server) Addr() string { return s.srv.Addr }

// Run serves until Shutdown. A clean shutdown returns nil.
func (s *Server) Run() error {
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
