package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	require.Equal(t, "localhost:8000", c.SocketAddress)
	require.Equal(t, int64(10485760), c.MaxUploadSize)
	require.Equal(t, 25, c.PageSize)
	require.Equal(t, "X-User-ID", c.UserIDHeader)
	require.Equal(t, 15*time.Second, c.Outreach.Timeout)
	require.Equal(t, "host=localhost port=5432 user=postgres dbname=lead_intake password=postgres sslmode=disable", c.Database.ConnectionString())
	require.Equal(t, c.Database.ConnectionString(), c.Database.ReadConnectionString())
	require.Equal(t, logrus.InfoLevel, c.Logger().GetLevel())
}

func TestLoad_EnvFileAndOverrides(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("DB_READ_HOST=replica\nPORT=9100\nLOG_LEVEL=debug\n"), 0o600))

	t.Setenv("GO_APP_ENV", Production)
	t.Setenv("PORT", "9200")
	t.Setenv("REDIS_DISABLED", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example.com,http://localhost:3000")
	t.Cleanup(func() {
		os.Unsetenv("DB_READ_HOST")
		os.Unsetenv("LOG_LEVEL")
	})

	c, err := Load(envFile, filepath.Join(dir, ".env.local"))
	require.NoError(t, err)

	// variables already in the environment win over the file
	require.Equal(t, ":9200", c.SocketAddress)
	require.True(t, c.Redis.Disabled)
	require.Equal(t, []string{"https://app.example.com", "http://localhost:3000"}, c.AllowedOrigins)
	require.Equal(t, logrus.DebugLevel, c.LogrusLogLevel())
	require.Contains(t, c.Database.ReadConnectionString(), "host=replica")
	require.IsType(t, &logrus.JSONFormatter{}, c.Logger().Formatter)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("PAGE_SIZE", "500")
	_, err := Load()
	require.ErrorContains(t, err, "PAGE_SIZE")
}

func TestLoad_ProductionNeedsCallbackSecret(t *testing.T) {
	t.Setenv("GO_APP_ENV", Production)
	t.Setenv("OUTREACH_WEBHOOK_URL", "https://automation.example.com/hook")
	_, err := Load()
	require.ErrorContains(t, err, "OUTREACH_CALLBACK_SECRET")
}
