package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Upstream UpstreamConfig `yaml:"upstream"`
	History  HistoryConfig  `yaml:"history"`
	Overview OverviewConfig `yaml:"overview"`
	Auth     AuthConfig     `yaml:"auth"`
	Postgres PostgresConfig `yaml:"postgres"`
	Valkey   ValkeyConfig   `yaml:"valkey"`
	Export   ExportConfig   `yaml:"export"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address         string          `yaml:"address"`
	ReadTimeout     time.Duration   `yaml:"readTimeout"`
	WriteTimeout    time.Duration   `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration   `yaml:"shutdownTimeout"`
	AllowedOrigins  []string        `yaml:"allowedOrigins"`
	RateLimit       RateLimitConfig `yaml:"rateLimit"`
}

// RateLimitConfig drives the per-client token bucket middleware.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
	Burst             int  `yaml:"burst"`
}

// UpstreamConfig points at the DTC REST API.
type UpstreamConfig struct {
	BaseURL string        `yaml:"baseUrl"`
	APIKey  string        `yaml:"apiKey"`
	Timeout time.Duration `yaml:"timeout"`
	Retry   RetryConfig   `yaml:"retry"`
}

// RetryConfig configures best-effort retries for idempotent upstream reads.
type RetryConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxAttempts int           `yaml:"maxAttempts"`
	BaseBackoff time.Duration `yaml:"baseBackoff"`
}

// HistoryConfig tunes the history view.
type HistoryConfig struct {
	PageSize         int           `yaml:"pageSize"`
	DefaultRangeDays int           `yaml:"defaultRangeDays"`
	MaxRangeDays     int           `yaml:"maxRangeDays"`
	Timezone         string        `yaml:"timezone"`
	ViewIdleTTL      time.Duration `yaml:"viewIdleTtl"`
}

// OverviewConfig tunes the fleet overview listing.
type OverviewConfig struct {
	Days  int `yaml:"days"`
	Limit int `yaml:"limit"`
}

// AuthConfig holds token signing and Google sign-in settings.
type AuthConfig struct {
	Secret          string        `yaml:"secret"`
	TokenTTL        time.Duration `yaml:"tokenTtl"`
	RefreshTokenTTL time.Duration `yaml:"refreshTokenTtl"`
	Google          GoogleConfig  `yaml:"google"`
}

// GoogleConfig is empty unless Google sign-in is offered.
type GoogleConfig struct {
	ClientID             string `yaml:"clientId"`
	ClientSecret         string `yaml:"clientSecret"`
	RedirectURL          string `yaml:"redirectUrl"`
	TokenEncryptionKey   string `yaml:"tokenEncryptionKey"`
	PostLoginRedirectURL string `yaml:"postLoginRedirectUrl"`
	AllowedDomain        string `yaml:"allowedDomain"`
}

// PostgresConfig contains DSN and pooling settings.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"maxConns"`
	MinConns int32  `yaml:"minConns"`
}

// ValkeyConfig enables the shared revoked-token store.
type ValkeyConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Prefix  string `yaml:"prefix"`
}

// ExportConfig controls archival of generated CSV files.
type ExportConfig struct {
	Archive ArchiveConfig `yaml:"archive"`
}

// ArchiveConfig describes an S3 compatible bucket (Cloudflare R2, MinIO).
type ArchiveConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Prefix    string `yaml:"prefix"`
	UseSSL    bool   `yaml:"useSsl"`
}

// MetricsConfig exposes the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Load reads configuration from a YAML file and environment variables.
func Load() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat("configs/config.yaml"); err == nil {
		if err := hydrateFromFile(cfg, "configs/config.yaml"); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	setString(&cfg.HTTP.Address, "HTTP_ADDRESS")
	setDuration(&cfg.HTTP.ShutdownTimeout, "HTTP_SHUTDOWN_TIMEOUT")
	if v := os.Getenv("HTTP_ALLOWED_ORIGINS"); v != "" {
		cfg.HTTP.AllowedOrigins = splitList(v)
	}
	setBool(&cfg.HTTP.RateLimit.Enabled, "HTTP_RATE_LIMIT_ENABLED")
	setInt(&cfg.HTTP.RateLimit.RequestsPerMinute, "HTTP_RATE_LIMIT_RPM")
	setInt(&cfg.HTTP.RateLimit.Burst, "HTTP_RATE_LIMIT_BURST")

	setString(&cfg.Upstream.BaseURL, "DTC_API_BASE_URL")
	setString(&cfg.Upstream.APIKey, "DTC_API_KEY")
	setDuration(&cfg.Upstream.Timeout, "DTC_API_TIMEOUT")
	setBool(&cfg.Upstream.Retry.Enabled, "DTC_API_RETRY_ENABLED")
	setInt(&cfg.Upstream.Retry.MaxAttempts, "DTC_API_RETRY_MAX_ATTEMPTS")
	setDuration(&cfg.Upstream.Retry.BaseBackoff, "DTC_API_RETRY_BASE_BACKOFF")

	setInt(&cfg.History.PageSize, "HISTORY_PAGE_SIZE")
	setInt(&cfg.History.DefaultRangeDays, "HISTORY_DEFAULT_RANGE_DAYS")
	setInt(&cfg.History.MaxRangeDays, "HISTORY_MAX_RANGE_DAYS")
	setString(&cfg.History.Timezone, "HISTORY_TIMEZONE")
	setDuration(&cfg.History.ViewIdleTTL, "HISTORY_VIEW_IDLE_TTL")

	setInt(&cfg.Overview.Days, "OVERVIEW_DAYS")
	setInt(&cfg.Overview.Limit, "OVERVIEW_LIMIT")

	setString(&cfg.Auth.Secret, "AUTH_SECRET")
	setDuration(&cfg.Auth.TokenTTL, "AUTH_TOKEN_TTL")
	setDuration(&cfg.Auth.RefreshTokenTTL, "AUTH_REFRESH_TOKEN_TTL")
	setString(&cfg.Auth.Google.ClientID, "GOOGLE_CLIENT_ID")
	setString(&cfg.Auth.Google.ClientSecret, "GOOGLE_CLIENT_SECRET")
	setString(&cfg.Auth.Google.RedirectURL, "GOOGLE_REDIRECT_URL")
	setString(&cfg.Auth.Google.TokenEncryptionKey, "GOOGLE_TOKEN_ENCRYPTION_KEY")
	setString(&cfg.Auth.Google.PostLoginRedirectURL, "GOOGLE_POST_LOGIN_REDIRECT_URL")
	setString(&cfg.Auth.Google.AllowedDomain, "GOOGLE_ALLOWED_DOMAIN")

	setString(&cfg.Postgres.DSN, "POSTGRES_DSN")
	if v := os.Getenv("POSTGRES_MAX_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.MaxConns = int32(parsed)
		}
	}
	if v := os.Getenv("POSTGRES_MIN_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.MinConns = int32(parsed)
		}
	}

	setBool(&cfg.Valkey.Enabled, "VALKEY_ENABLED")
	setString(&cfg.Valkey.Addr, "VALKEY_ADDR")
	setString(&cfg.Valkey.Prefix, "VALKEY_PREFIX")

	setBool(&cfg.Export.Archive.Enabled, "EXPORT_ARCHIVE_ENABLED")
	setString(&cfg.Export.Archive.Endpoint, "EXPORT_ARCHIVE_ENDPOINT")
	setString(&cfg.Export.Archive.AccessKey, "EXPORT_ARCHIVE_ACCESS_KEY")
	setString(&cfg.Export.Archive.SecretKey, "EXPORT_ARCHIVE_SECRET_KEY")
	setString(&cfg.Export.Archive.Bucket, "EXPORT_ARCHIVE_BUCKET")
	setString(&cfg.Export.Archive.Region, "EXPORT_ARCHIVE_REGION")
	setString(&cfg.Export.Archive.Prefix, "EXPORT_ARCHIVE_PREFIX")
	setBool(&cfg.Export.Archive.UseSSL, "EXPORT_ARCHIVE_USE_SSL")

	setBool(&cfg.Metrics.Enabled, "METRICS_ENABLED")
	setString(&cfg.Metrics.Path, "METRICS_PATH")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			*dst = parsed
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v == "1" || strings.EqualFold(v, "true")
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			*dst = parsed
		}
	}
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:         ":8080",
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			AllowedOrigins:  []string{"http://localhost:5173"},
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 120,
				Burst:             30,
			},
		},
		Upstream: UpstreamConfig{
			BaseURL: "http://localhost:8000",
			Timeout: 10 * time.Second,
			Retry: RetryConfig{
				Enabled:     true,
				MaxAttempts: 3,
				BaseBackoff: 150 * time.Millisecond,
			},
		},
		History: HistoryConfig{
			PageSize:         25,
			DefaultRangeDays: 7,
			MaxRangeDays:     731,
			Timezone:         "America/Sao_Paulo",
			ViewIdleTTL:      30 * time.Minute,
		},
		Overview: OverviewConfig{
			Days:  30,
			Limit: 500,
		},
		Auth: AuthConfig{
			TokenTTL:        time.Hour,
			RefreshTokenTTL: 7 * 24 * time.Hour,
		},
		Postgres: PostgresConfig{
			MaxConns: 4,
		},
		Valkey: ValkeyConfig{
			Prefix: "dtc",
		},
		Export: ExportConfig{
			Archive: ArchiveConfig{
				Prefix: "exports",
				UseSSL: true,
			},
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Validate ensures the configuration is safe to use.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	if c.HTTP.RateLimit.Enabled {
		if c.HTTP.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("http.rateLimit.requestsPerMinute must be positive")
		}
		if c.HTTP.RateLimit.Burst <= 0 {
			return errors.New("http.rateLimit.burst must be positive")
		}
	}
	if strings.TrimSpace(c.Upstream.BaseURL) == "" {
		return errors.New("upstream.baseUrl cannot be empty")
	}
	if c.Upstream.Timeout <= 0 {
		return errors.New("upstream.timeout must be positive")
	}
	if c.Upstream.Retry.Enabled {
		if c.Upstream.Retry.MaxAttempts <= 0 {
			return errors.New("upstream.retry.maxAttempts must be positive")
		}
		if c.Upstream.Retry.BaseBackoff <= 0 {
			return errors.New("upstream.retry.baseBackoff must be positive")
		}
	}
	if c.History.PageSize <= 0 {
		return errors.New("history.pageSize must be positive")
	}
	if c.History.DefaultRangeDays <= 0 {
		return errors.New("history.defaultRangeDays must be positive")
	}
	if c.History.MaxRangeDays < c.History.DefaultRangeDays {
		return errors.New("history.maxRangeDays cannot be below history.defaultRangeDays")
	}
	if c.History.ViewIdleTTL < 0 {
		return errors.New("history.viewIdleTtl cannot be negative")
	}
	if c.Overview.Days <= 0 || c.Overview.Limit <= 0 {
		return errors.New("overview.days and overview.limit must be positive")
	}
	if strings.TrimSpace(c.Auth.Secret) == "" {
		return errors.New("auth.secret cannot be empty")
	}
	if c.Auth.TokenTTL <= 0 || c.Auth.RefreshTokenTTL <= 0 {
		return errors.New("auth token ttls must be positive")
	}
	if c.Valkey.Enabled && strings.TrimSpace(c.Valkey.Addr) == "" {
		return errors.New("valkey.addr cannot be empty when valkey is enabled")
	}
	if a := c.Export.Archive; a.Enabled {
		if a.Endpoint == "" || a.Bucket == "" || a.AccessKey == "" || a.SecretKey == "" {
			return errors.New("export.archive requires endpoint, bucket and credentials when enabled")
		}
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return errors.New("metrics.path must start with /")
	}
	return nil
}
