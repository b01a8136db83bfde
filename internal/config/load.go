package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/tossup-backend/internal/platform/envutil"
)

func (d *Duration) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" || s == "null" {
		d.Duration = 0
		return nil
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		u, err := strconv.Unquote(s)
		if err != nil {
			return err
		}
		if strings.TrimSpace(u) == "" {
			d.Duration = 0
			return nil
		}
		dd, err := time.ParseDuration(u)
		if err != nil {
			return err
		}
		d.Duration = dd
		return nil
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("duration must be a JSON string like \"5s\" or an int nanoseconds: %w", err)
	}
	d.Duration = time.Duration(n)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Duration.String())
}

const (
	ProviderQBReader = "qbreader"
	ProviderStatic   = "static"

	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

func defaultConfig() *Config {
	return &Config{
		Env: "development",
		HTTP: HTTPConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: Duration{Duration: 5 * time.Second},
			IdleTimeout:       Duration{Duration: 2 * time.Minute},
			ShutdownTimeout:   Duration{Duration: 15 * time.Second},
			MaxRequestBytes:   1 << 20,
			MaxAudioBytes:     10 << 20,
		},
		Provider: ProviderConfig{
			Type:             ProviderQBReader,
			BaseURL:          "https://www.qbreader.org",
			UserAgent:        "tossup-backend/1.0",
			Timeout:          Duration{Duration: 10 * time.Second},
			MaxFetchAttempts: 5,
		},
		Store: StoreConfig{
			Driver: DriverSQLite,
			DSN:    "file:tossup.db?_foreign_keys=on",
		},
		Seen: SeenConfig{
			KeyPrefix: "tossup:seen:",
			TTL:       Duration{Duration: 24 * time.Hour},
		},
		Scoring: ScoringConfig{PointsPerCorrect: 10},
		Speech: SpeechConfig{
			LanguageCode:    "en-US",
			MaxAlternatives: 5,
			Timeout:         Duration{Duration: 30 * time.Second},
		},
		Telemetry: TelemetryConfig{ServiceName: "tossup"},
	}
}

// Load reads TOSSUP_CONFIG_PATH (or ./config/config.json when present) over
// the defaults, then applies environment overrides and validates.
func Load() (*Config, error) {
	cfgPath := strings.TrimSpace(os.Getenv("TOSSUP_CONFIG_PATH"))
	if cfgPath == "" {
		if wd, err := os.Getwd(); err == nil {
			p := filepath.Join(wd, "config", "config.json")
			if _, err := os.Stat(p); err == nil {
				cfgPath = p
			}
		}
	}
	return load(cfgPath)
}

func load(cfgPath string) (*Config, error) {
	cfg := defaultConfig()

	if cfgPath != "" {
		b, err := os.ReadFile(cfgPath)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", cfgPath, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := envutil.String("LOG_MODE", ""); v != "" {
		cfg.Env = v
	}
	if v := envutil.String("PORT", ""); v != "" {
		cfg.HTTP.Addr = ":" + strings.TrimPrefix(v, ":")
	}
	if v := envutil.String("TOSSUP_HTTP_ADDR", ""); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := envutil.String("TOSSUP_PROVIDER", ""); v != "" {
		cfg.Provider.Type = v
	}
	if v := envutil.String("QBREADER_BASE_URL", ""); v != "" {
		cfg.Provider.BaseURL = v
	}
	if v := envutil.String("TOSSUP_DB_DRIVER", ""); v != "" {
		cfg.Store.Driver = v
	}
	if v := envutil.String("DATABASE_URL", ""); v != "" {
		cfg.Store.DSN = v
		if cfg.Store.Driver == DriverSQLite && (strings.HasPrefix(v, "postgres://") || strings.HasPrefix(v, "postgresql://")) {
			cfg.Store.Driver = DriverPostgres
		}
	}
	if v := envutil.String("REDIS_ADDR", ""); v != "" {
		cfg.Seen.RedisAddr = v
	}
	if v := envutil.String("TOSSUP_ALIASES_PATH", ""); v != "" {
		cfg.Matching.AliasesPath = v
	}
	if v := envutil.String("TOSSUP_SPEECH_ENABLED", ""); v != "" {
		cfg.Speech.Enabled = envutil.ParseBool(v)
	}
	if v := envutil.String("TOSSUP_SPEECH_ENDPOINT", ""); v != "" {
		cfg.Speech.Endpoint = v
	}
	if v := envutil.String("TOSSUP_STRICT_AUTHORITATIVE", ""); v != "" {
		cfg.Matching.StrictAuthoritative = envutil.ParseBool(v)
	}
	if v := envutil.String("METRICS_ENABLED", ""); v != "" {
		cfg.Telemetry.MetricsEnabled = envutil.ParseBool(v)
	}
}

func (cfg *Config) normalize() error {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "development"
	}
	if strings.TrimSpace(cfg.HTTP.Addr) == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.HTTP.MaxRequestBytes <= 0 {
		cfg.HTTP.MaxRequestBytes = 1 << 20
	}
	if cfg.HTTP.MaxAudioBytes <= 0 {
		cfg.HTTP.MaxAudioBytes = 10 << 20
	}
	if cfg.HTTP.ShutdownTimeout.Duration <= 0 {
		cfg.HTTP.ShutdownTimeout = Duration{Duration: 15 * time.Second}
	}

	p := &cfg.Provider
	p.Type = strings.ToLower(strings.TrimSpace(p.Type))
	p.BaseURL = strings.TrimRight(strings.TrimSpace(p.BaseURL), "/")
	switch p.Type {
	case ProviderQBReader:
		if p.BaseURL == "" {
			return fmt.Errorf("provider qbreader missing base_url")
		}
	case ProviderStatic:
	default:
		return fmt.Errorf("invalid provider.type=%q", p.Type)
	}
	if p.Timeout.Duration <= 0 {
		p.Timeout = Duration{Duration: 10 * time.Second}
	}
	if p.MaxFetchAttempts < 0 {
		return fmt.Errorf("invalid provider.max_fetch_attempts")
	}
	if p.MaxFetchAttempts == 0 {
		p.MaxFetchAttempts = 5
	}
	if strings.TrimSpace(p.UserAgent) == "" {
		p.UserAgent = "tossup-backend/1.0"
	}

	s := &cfg.Store
	s.Driver = strings.ToLower(strings.TrimSpace(s.Driver))
	switch s.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("invalid store.driver=%q", s.Driver)
	}
	if strings.TrimSpace(s.DSN) == "" {
		return fmt.Errorf("store %s missing dsn", s.Driver)
	}

	if strings.TrimSpace(cfg.Seen.KeyPrefix) == "" {
		cfg.Seen.KeyPrefix = "tossup:seen:"
	}
	if cfg.Seen.TTL.Duration < 0 {
		return fmt.Errorf("invalid seen.ttl")
	}

	m := &cfg.Matching
	if m.ExtractedOverlap < 0 || m.ExtractedOverlap > 1 {
		return fmt.Errorf("invalid matching.extracted_overlap=%v", m.ExtractedOverlap)
	}
	if m.WeakOverlap < 0 || m.WeakOverlap > 1 {
		return fmt.Errorf("invalid matching.weak_overlap=%v", m.WeakOverlap)
	}

	if cfg.Scoring.PointsPerCorrect < 0 {
		return fmt.Errorf("invalid scoring.points_per_correct")
	}

	if strings.TrimSpace(cfg.Speech.LanguageCode) == "" {
		cfg.Speech.LanguageCode = "en-US"
	}
	if cfg.Speech.MaxAlternatives <= 0 {
		cfg.Speech.MaxAlternatives = 1
	}
	if cfg.Speech.Timeout.Duration <= 0 {
		cfg.Speech.Timeout = Duration{Duration: 30 * time.Second}
	}

	if strings.TrimSpace(cfg.Telemetry.ServiceName) == "" {
		cfg.Telemetry.ServiceName = "tossup"
	}
	return nil
}
