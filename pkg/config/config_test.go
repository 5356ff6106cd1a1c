package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("MILLOPS_POSTGRES_URL", "postgres://localhost/millops")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "9090", cfg.Server.HealthPort)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "filesystem", cfg.Documents.Backend)
	assert.Equal(t, 12*time.Hour, cfg.Identity.SessionTTL)
	assert.Equal(t, 90*24*time.Hour, cfg.Maintenance.AuditRetention)
	assert.True(t, cfg.Observability.MetricsEnabled)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("MILLOPS_POSTGRES_URL", "postgres://localhost/millops")
	t.Setenv("MILLOPS_PORT", "9999")
	t.Setenv("MILLOPS_SESSION_TTL", "1h")
	t.Setenv("MILLOPS_LOG_LEVEL", "debug")
	t.Setenv("MILLOPS_DOCUMENTS_BACKEND", "s3")
	t.Setenv("MILLOPS_S3_BUCKET", "millops-docs")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9999", cfg.Server.Port)
	assert.Equal(t, time.Hour, cfg.Identity.SessionTTL)
	assert.Equal(t, "s3", cfg.Documents.Backend)
	assert.Equal(t, "millops-docs", cfg.Documents.S3.Bucket)
}

func TestLoadConfig_MissingPostgresURL(t *testing.T) {
	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfig_InvalidDocumentsBackend(t *testing.T) {
	t.Setenv("MILLOPS_POSTGRES_URL", "postgres://localhost/millops")
	t.Setenv("MILLOPS_DOCUMENTS_BACKEND", "tape")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfig_S3RequiresBucket(t *testing.T) {
	t.Setenv("MILLOPS_POSTGRES_URL", "postgres://localhost/millops")
	t.Setenv("MILLOPS_DOCUMENTS_BACKEND", "s3")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfig_PortClash(t *testing.T) {
	t.Setenv("MILLOPS_POSTGRES_URL", "postgres://localhost/millops")
	t.Setenv("MILLOPS_PORT", "8080")
	t.Setenv("MILLOPS_HEALTH_PORT", "8080")

	_, err := LoadConfig()
	assert.Error(t, err)
}
