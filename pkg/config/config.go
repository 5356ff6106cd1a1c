// Package config loads application configuration from MILLOPS_* environment
// variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/easternmills/millops/pkg/documents"
	"github.com/easternmills/millops/pkg/observability"
	"github.com/easternmills/millops/pkg/storage"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Storage       storage.Config
	Redis         RedisConfig
	Identity      IdentityConfig
	Documents     DocumentsConfig
	Observability ObservabilityConfig
	Maintenance   MaintenanceConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// RedisConfig holds Redis connection settings for sessions and rate limits.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// IdentityConfig holds identity provider and session settings.
type IdentityConfig struct {
	// ProvidersFile is the YAML file listing identity providers. It is
	// watched for changes at runtime.
	ProvidersFile string
	// BaseURL is the externally visible URL used to build SAML callback
	// endpoints.
	BaseURL    string
	SessionTTL time.Duration
}

// DocumentsConfig selects and configures the attachment blob backend.
type DocumentsConfig struct {
	// Backend is "filesystem" or "s3".
	Backend        string
	FilesystemRoot string
	S3             documents.S3Config
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool

	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool
}

// MaintenanceConfig holds the background maintenance schedule.
type MaintenanceConfig struct {
	// AuditPruneSchedule is a cron expression for the audit prune job.
	AuditPruneSchedule string
	// AuditRetention is how long audit events are kept.
	AuditRetention time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Storage:       loadStorageConfig(),
		Redis:         loadRedisConfig(),
		Identity:      loadIdentityConfig(),
		Documents:     loadDocumentsConfig(),
		Observability: loadObservabilityConfig(),
		Maintenance:   loadMaintenanceConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("MILLOPS_HOST", "0.0.0.0"),
		Port:            getEnv("MILLOPS_PORT", "8080"),
		ReadTimeout:     getEnvDuration("MILLOPS_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("MILLOPS_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("MILLOPS_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("MILLOPS_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("MILLOPS_HEALTH_PORT", "9090"),
	}
}

func loadStorageConfig() storage.Config {
	cfg := storage.DefaultConfig()
	cfg.PostgresURL = getEnv("MILLOPS_POSTGRES_URL", "")
	if maxConns := getEnvInt("MILLOPS_POSTGRES_MAX_CONNS", 0); maxConns > 0 {
		cfg.PostgresMaxConns = maxConns
	}
	if minConns := getEnvInt("MILLOPS_POSTGRES_MIN_CONNS", 0); minConns > 0 {
		cfg.PostgresMinConns = minConns
	}
	if timeout := getEnvDuration("MILLOPS_POSTGRES_TIMEOUT", 0); timeout > 0 {
		cfg.PostgresTimeout = timeout
	}
	return cfg
}

func loadRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:     getEnv("MILLOPS_REDIS_ADDR", "localhost:6379"),
		Password: getEnv("MILLOPS_REDIS_PASSWORD", ""),
		DB:       getEnvInt("MILLOPS_REDIS_DB", 0),
	}
}

func loadIdentityConfig() IdentityConfig {
	return IdentityConfig{
		ProvidersFile: getEnv("MILLOPS_IDENTITY_PROVIDERS_FILE", "providers.yaml"),
		BaseURL:       getEnv("MILLOPS_BASE_URL", "http://localhost:8080"),
		SessionTTL:    getEnvDuration("MILLOPS_SESSION_TTL", 12*time.Hour),
	}
}

func loadDocumentsConfig() DocumentsConfig {
	return DocumentsConfig{
		Backend:        getEnv("MILLOPS_DOCUMENTS_BACKEND", "filesystem"),
		FilesystemRoot: getEnv("MILLOPS_DOCUMENTS_ROOT", "/var/lib/millops/documents"),
		S3: documents.S3Config{
			Bucket:       getEnv("MILLOPS_S3_BUCKET", ""),
			Region:       getEnv("MILLOPS_S3_REGION", "us-east-1"),
			Endpoint:     getEnv("MILLOPS_S3_ENDPOINT", ""),
			AccessKey:    getEnv("MILLOPS_S3_ACCESS_KEY", ""),
			SecretKey:    getEnv("MILLOPS_S3_SECRET_KEY", ""),
			UsePathStyle: getEnvBool("MILLOPS_S3_USE_PATH_STYLE", false),
			KeyPrefix:    getEnv("MILLOPS_S3_KEY_PREFIX", "documents"),
		},
	}
}

func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           parseLogLevel(getEnv("MILLOPS_LOG_LEVEL", "info")),
		MetricsEnabled:     getEnvBool("MILLOPS_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("MILLOPS_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("MILLOPS_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("MILLOPS_OTEL_SERVICE_NAME", "millops"),
		OTelServiceVersion: getEnv("MILLOPS_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("MILLOPS_OTEL_INSECURE", true),
	}
}

func loadMaintenanceConfig() MaintenanceConfig {
	return MaintenanceConfig{
		AuditPruneSchedule: getEnv("MILLOPS_AUDIT_PRUNE_SCHEDULE", "0 3 * * *"),
		AuditRetention:     getEnvDuration("MILLOPS_AUDIT_RETENTION", 90*24*time.Hour),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Storage.PostgresURL == "" {
		return fmt.Errorf("postgres URL is required")
	}

	switch c.Documents.Backend {
	case "filesystem":
		if c.Documents.FilesystemRoot == "" {
			return fmt.Errorf("documents root is required for filesystem backend")
		}
	case "s3":
		if c.Documents.S3.Bucket == "" {
			return fmt.Errorf("S3 bucket is required for s3 backend")
		}
	default:
		return fmt.Errorf("invalid documents backend: %s (must be filesystem or s3)", c.Documents.Backend)
	}

	if c.Identity.ProvidersFile == "" {
		return fmt.Errorf("identity providers file is required")
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
