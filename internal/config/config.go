package config

import "time"

type Duration struct {
	Duration time.Duration
}

type HTTPConfig struct {
	Addr              string   `json:"addr"`
	ReadHeaderTimeout Duration `json:"read_header_timeout"`
	IdleTimeout       Duration `json:"idle_timeout"`
	ShutdownTimeout   Duration `json:"shutdown_timeout"`
	MaxRequestBytes   int64    `json:"max_request_bytes"`

	// MaxAudioBytes caps uploads to the audio answer endpoint.
	MaxAudioBytes int64 `json:"max_audio_bytes"`

	CORSOrigins []string `json:"cors_origins,omitempty"`
}

type ProviderConfig struct {
	// Type selects the question source: "qbreader" or "static".
	Type string `json:"type"`

	BaseURL   string   `json:"base_url,omitempty"`
	UserAgent string   `json:"user_agent,omitempty"`
	Timeout   Duration `json:"timeout,omitempty"`

	// MaxFetchAttempts bounds retries when the upstream returns a question
	// the session has already seen.
	MaxFetchAttempts int `json:"max_fetch_attempts,omitempty"`

	// SeedPath replaces the built-in question seed for the static provider.
	SeedPath string `json:"seed_path,omitempty"`
}

type StoreConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver string `json:"driver"`
	DSN    string `json:"dsn"`
}

type SeenConfig struct {
	// RedisAddr enables the redis-backed asked-question store; empty keeps
	// history in process memory.
	RedisAddr string   `json:"redis_addr,omitempty"`
	KeyPrefix string   `json:"key_prefix,omitempty"`
	TTL       Duration `json:"ttl,omitempty"`
}

type MatchingConfig struct {
	AliasesPath         string  `json:"aliases_path,omitempty"`
	ExtractedOverlap    float64 `json:"extracted_overlap,omitempty"`
	WeakOverlap         float64 `json:"weak_overlap,omitempty"`
	StrictAuthoritative bool    `json:"strict_authoritative,omitempty"`
}

type ScoringConfig struct {
	PointsPerCorrect int `json:"points_per_correct"`
}

type SpeechConfig struct {
	Enabled         bool     `json:"enabled"`
	LanguageCode    string   `json:"language_code,omitempty"`
	Model           string   `json:"model,omitempty"`
	MaxAlternatives int      `json:"max_alternatives,omitempty"`
	Timeout         Duration `json:"timeout,omitempty"`

	// CredentialsFile overrides GOOGLE_APPLICATION_CREDENTIALS for the speech
	// client only. Endpoint selects a regional recognizer such as
	// "eu-speech.googleapis.com:443".
	CredentialsFile string `json:"credentials_file,omitempty"`
	Endpoint        string `json:"endpoint,omitempty"`
}

type TelemetryConfig struct {
	ServiceName string `json:"service_name,omitempty"`
	Version     string `json:"version,omitempty"`

	// MetricsEnabled exposes GET /metrics in Prometheus text format.
	MetricsEnabled bool `json:"metrics_enabled,omitempty"`
}

type Config struct {
	Env       string          `json:"env"`
	HTTP      HTTPConfig      `json:"http"`
	Provider  ProviderConfig  `json:"provider"`
	Store     StoreConfig     `json:"store"`
	Seen      SeenConfig      `json:"seen"`
	Matching  MatchingConfig  `json:"matching"`
	Scoring   ScoringConfig   `json:"scoring"`
	Speech    SpeechConfig    `json:"speech"`
	Telemetry TelemetryConfig `json:"telemetry"`
}
