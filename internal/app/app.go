package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/tossup-backend/internal/answer"
	"github.com/yungbote/tossup-backend/internal/config"
	"github.com/yungbote/tossup-backend/internal/data/db"
	gamerepo "github.com/yungbote/tossup-backend/internal/data/repos/game"
	"github.com/yungbote/tossup-backend/internal/data/seen"
	httpapi "github.com/yungbote/tossup-backend/internal/http"
	httpH "github.com/yungbote/tossup-backend/internal/http/handlers"
	"github.com/yungbote/tossup-backend/internal/observability"
	"github.com/yungbote/tossup-backend/internal/platform/gcp"
	"github.com/yungbote/tossup-backend/internal/platform/logger"
	"github.com/yungbote/tossup-backend/internal/session"
)

type App struct {
	Log      *logger.Logger
	Config   *config.Config
	Engine   *answer.Engine
	Sessions session.Service

	server   *httpapi.Server
	closers  []io.Closer
	shutdown func(context.Context) error
}

// New loads configuration from the environment and wires the server.
func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	a, err := NewWithConfig(ctx, cfg, log)
	if err != nil {
		log.Sync()
		return nil, err
	}
	return a, nil
}

func NewWithConfig(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	a := &App{Log: log, Config: cfg}
	a.shutdown = observability.InitOTel(ctx, log, cfg.Env, cfg.Telemetry)

	var metrics *observability.Metrics
	if cfg.Telemetry.MetricsEnabled {
		metrics = observability.NewMetrics()
	}

	store, err := db.Open(cfg.Store, log)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	a.closers = append(a.closers, store)

	seenStore, err := newSeenStore(cfg.Seen, log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init seen store: %w", err)
	}
	if c, ok := seenStore.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}

	prov, err := NewProvider(cfg.Provider)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init provider: %w", err)
	}

	engine, err := NewEngine(cfg.Matching)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init matching: %w", err)
	}
	a.Engine = engine

	var transcriber session.Transcriber
	if cfg.Speech.Enabled {
		sp, err := gcp.NewSpeech(ctx, cfg.Speech, log)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("init speech: %w", err)
		}
		a.closers = append(a.closers, sp)
		transcriber = sp
	}

	theDB := store.DB()
	sessions, err := session.NewService(session.Deps{
		DB:               theDB,
		Log:              log,
		Sessions:         gamerepo.NewSessionRepo(theDB, log),
		Rounds:           gamerepo.NewRoundRepo(theDB, log),
		Seen:             seenStore,
		Provider:         prov,
		Engine:           engine,
		Transcriber:      transcriber,
		Metrics:          metrics,
		PointsPerCorrect: cfg.Scoring.PointsPerCorrect,
		MaxFetchAttempts: cfg.Provider.MaxFetchAttempts,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Sessions = sessions

	serviceName := ""
	if a.shutdown != nil {
		serviceName = cfg.Telemetry.ServiceName
	}
	a.server = httpapi.NewServer(cfg.HTTP, httpapi.RouterConfig{
		Log:             log,
		Metrics:         metrics,
		ServiceName:     serviceName,
		CORSOrigins:     cfg.HTTP.CORSOrigins,
		MaxRequestBytes: cfg.HTTP.MaxRequestBytes,
		MaxAudioBytes:   cfg.HTTP.MaxAudioBytes,
		HealthHandler:   httpH.NewHealthHandler(store.Ping),
		AnswerHandler:   httpH.NewAnswerHandler(engine, metrics),
		SessionHandler:  httpH.NewSessionHandler(sessions),
	})

	log.Info("app wired",
		"provider", prov.Name(),
		"store", cfg.Store.Driver,
		"redis_seen", cfg.Seen.RedisAddr != "",
		"speech", cfg.Speech.Enabled,
		"metrics", metrics != nil,
	)
	return a, nil
}

func newSeenStore(cfg config.SeenConfig, log *logger.Logger) (seen.Store, error) {
	if cfg.RedisAddr == "" {
		return seen.NewMemory(), nil
	}
	return seen.NewRedis(cfg, log)
}

// Run serves HTTP until ctx is done, then drains in-flight requests.
func (a *App) Run(ctx context.Context) error {
	defer a.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.Log.Info("http server listening", "addr", a.server.Addr())
		return a.server.Run()
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.HTTP.ShutdownTimeout.Duration)
		defer cancel()
		a.Log.Info("shutting down")
		err := a.server.Shutdown(shutdownCtx)
		if a.shutdown != nil {
			err = errors.Join(err, a.shutdown(shutdownCtx))
		}
		return err
	})
	return g.Wait()
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.Log.Warn("close failed", "error", err)
		}
	}
	a.closers = nil
	a.Log.Sync()
}
