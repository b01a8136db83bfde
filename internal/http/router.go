package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/tossup-backend/internal/http/handlers"
	httpMW "github.com/yungbote/tossup-backend/internal/http/middleware"
	"github.com/yungbote/tossup-backend/internal/observability"
	"github.com/yungbote/tossup-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	Metrics     *observability.Metrics
	ServiceName string
	CORSOrigins []string

	MaxRequestBytes int64
	MaxAudioBytes   int64

	HealthHandler  *httpH.HealthHandler
	AnswerHandler  *httpH.AnswerHandler
	SessionHandler *httpH.SessionHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.ReadyCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	api := r.Group("/api")
	jsonAPI := api.Group("/", httpMW.BodyLimit(cfg.MaxRequestBytes))
	{
		// Stateless answer checking
		if cfg.AnswerHandler != nil {
			jsonAPI.GET("/categories", cfg.AnswerHandler.Categories)
			jsonAPI.POST("/evaluate", cfg.AnswerHandler.Evaluate)
			jsonAPI.POST("/evaluate/batch", cfg.AnswerHandler.EvaluateBatch)
			jsonAPI.POST("/candidates", cfg.AnswerHandler.Candidates)
		}

		// Sessions
		if cfg.SessionHandler != nil {
			jsonAPI.POST("/sessions", cfg.SessionHandler.Start)
			jsonAPI.GET("/sessions/:id", cfg.SessionHandler.Get)
			jsonAPI.POST("/sessions/:id/rounds", cfg.SessionHandler.NextRound)
			jsonAPI.GET("/sessions/:id/rounds", cfg.SessionHandler.Rounds)
			jsonAPI.POST("/sessions/:id/rounds/:round_id/answer", cfg.SessionHandler.Answer)
			jsonAPI.POST("/sessions/:id/reset", cfg.SessionHandler.Reset)
		}
	}
	if cfg.SessionHandler != nil {
		api.POST("/sessions/:id/rounds/:round_id/audio", httpMW.BodyLimit(cfg.MaxAudioBytes), cfg.SessionHandler.Audio)
	}

	return r
}
