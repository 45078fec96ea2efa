package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadAppliesFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
upstream:
  baseUrl: "http://dtc-api:8000"
history:
  pageSize: 50
auth:
  secret: "from-file"
`), 0o600))

	t.Setenv("CONFIG_PATH", path)
	t.Setenv("HISTORY_TIMEZONE", "UTC")
	t.Setenv("DTC_API_TIMEOUT", "3s")
	t.Setenv("HTTP_SHUTDOWN_TIMEOUT", "15s")
	t.Setenv("HISTORY_MAX_RANGE_DAYS", "90")
	t.Setenv("HTTP_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "http://dtc-api:8000", cfg.Upstream.BaseURL)
	require.Equal(t, 50, cfg.History.PageSize)
	require.Equal(t, 7, cfg.History.DefaultRangeDays)
	require.Equal(t, "UTC", cfg.History.Timezone)
	require.Equal(t, 3*time.Second, cfg.Upstream.Timeout)
	require.Equal(t, 15*time.Second, cfg.HTTP.ShutdownTimeout)
	require.Equal(t, 90, cfg.History.MaxRangeDays)
	require.Equal(t, 30*time.Second, cfg.HTTP.WriteTimeout)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.AllowedOrigins)
}

func TestValidateRejectsMissingSecret(t *testing.T) {
	cfg := defaultConfig()
	require.EqualError(t, cfg.Validate(), "auth.secret cannot be empty")

	cfg.Auth.Secret = "s"
	require.NoError(t, cfg.Validate())
}

func TestValidateArchiveNeedsCredentials(t *testing.T) {
	cfg := defaultConfig()
	cfg.Auth.Secret = "s"
	cfg.Export.Archive.Enabled = true
	cfg.Export.Archive.Endpoint = "r2.example"
	require.Error(t, cfg.Validate())

	cfg.Export.Archive.Bucket = "b"
	cfg.Export.Archive.AccessKey = "k"
	cfg.Export.Archive.SecretKey = "s"
	require.NoError(t, cfg.Validate())
}

func TestValidateHistoryBounds(t *testing.T) {
	cfg := defaultConfig()
	cfg.Auth.Secret = "s"
	cfg.History.PageSize = 0
	require.EqualError(t, cfg.Validate(), "history.pageSize must be positive")

	cfg = defaultConfig()
	cfg.Auth.Secret = "s"
	require.Equal(t, 731, cfg.History.MaxRangeDays)
	cfg.History.MaxRangeDays = 3
	require.EqualError(t, cfg.Validate(), "history.maxRangeDays cannot be below history.defaultRangeDays")
}
