package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/yungbote/tossup-backend/internal/config"
	"github.com/yungbote/tossup-backend/internal/platform/logger"
	"github.com/yungbote/tossup-backend/internal/provider"
)

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(config.ProviderConfig{Type: config.ProviderStatic})
	if err != nil {
		t.Fatalf("static: %v", err)
	}
	if p.Name() != config.ProviderStatic {
		t.Fatalf("name=%q", p.Name())
	}
	q, err := p.RandomTossup(context.Background(), provider.Filter{Category: "history"})
	if err != nil || q.Category != "history" {
		t.Fatalf("q=%+v err=%v", q, err)
	}

	if _, err := NewProvider(config.ProviderConfig{Type: "trivia"}); err == nil {
		t.Fatalf("expected error for unknown provider type")
	}
}

func TestNewEngineAliasFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "aliases.yaml")
	body := "aliases:\n  - canonical: Ursa Major\n    aliases: [Big Dipper]\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	e, err := NewEngine(config.MatchingConfig{AliasesPath: path})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if !e.Aliases().Accepts("ursa major", "big dipper") {
		t.Fatalf("alias from file not loaded")
	}

	if _, err := NewEngine(config.MatchingConfig{AliasesPath: filepath.Join(dir, "missing.yaml")}); err == nil {
		t.Fatalf("expected error for missing alias file")
	}
}

func TestNewWithConfig(t *testing.T) {
	cfg := &config.Config{
		Env:      "test",
		HTTP:     config.HTTPConfig{Addr: "127.0.0.1:0"},
		Provider: config.ProviderConfig{Type: config.ProviderStatic, MaxFetchAttempts: 3},
		Store:    config.StoreConfig{Driver: config.DriverSQLite, DSN: "file:app_test?mode=memory&cache=shared"},
		Scoring:  config.ScoringConfig{PointsPerCorrect: 10},
		Telemetry: config.TelemetryConfig{
			ServiceName:    "tossup",
			MetricsEnabled: true,
		},
	}
	a, err := NewWithConfig(context.Background(), cfg, logger.Nop())
	if err != nil {
		t.Fatalf("NewWithConfig: %v", err)
	}
	defer a.Close()

	if a.Engine == nil || a.Sessions == nil || a.server == nil {
		t.Fatalf("app not fully wired: %+v", a)
	}
	s, err := a.Sessions.Start(context.Background(), provider.Filter{Category: "science"})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if s.Category != "science" {
		t.Fatalf("category=%q", s.Category)
	}
}
