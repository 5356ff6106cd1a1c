package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/easternmills/millops/pkg/access"
	"github.com/easternmills/millops/pkg/api"
	"github.com/easternmills/millops/pkg/audit"
	"github.com/easternmills/millops/pkg/config"
	"github.com/easternmills/millops/pkg/documents"
	"github.com/easternmills/millops/pkg/identity"
	"github.com/easternmills/millops/pkg/observability"
	"github.com/easternmills/millops/pkg/storage/postgres"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "millops: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.WithField("version", observability.Version).Info("Starting millops")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database and migrations.
	store, err := postgres.Connect(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer store.Close()
	logger.Info("Connected to PostgreSQL")

	// Redis backs sessions and rate limits.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}
	logger.Info("Connected to Redis")

	// Identity providers, reloaded when the config file changes.
	identityLogger := logrus.StandardLogger()
	providers, err := identity.NewRegistry(ctx, cfg.Identity.ProvidersFile, cfg.Identity.BaseURL, identityLogger)
	if err != nil {
		return fmt.Errorf("failed to load identity providers: %w", err)
	}
	if err := providers.Watch(ctx, cfg.Identity.ProvidersFile); err != nil {
		logger.WithError(err).Warn("identity config watcher unavailable, reloads disabled")
	}
	sessions := identity.NewManager(identity.NewRedisSessionStore(redisClient, "session"), cfg.Identity.SessionTTL)

	// Document blobs.
	blobs, documentsCheck, err := buildBlobStore(ctx, cfg.Documents)
	if err != nil {
		return err
	}
	logger.Infof("Document storage backend: %s", cfg.Documents.Backend)

	// Metrics and tracing.
	registry := prometheus.NewRegistry()
	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(registry)
	}

	otelProviders, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	var resolverMetrics *access.ResolverMetrics
	if metrics != nil {
		resolverMetrics = metrics.ResolverMetrics()
	}
	resolver := access.NewResolver(store.Users, identityLogger, resolverMetrics)
	auditor := audit.NewRecorder(store.DB())

	server := api.NewServer(api.Options{
		Users:       store.Users,
		Samples:     store.Samples,
		Orders:      store.Orders,
		Inspections: store.Inspections,
		Documents:   store.Documents,
		Blobs:       blobs,
		Providers:   providers,
		Sessions:    sessions,
		Resolver:    resolver,
		Auditor:     auditor,
		Logger:      logger,
		Metrics:     metrics,
		Redis:       redisClient,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      server.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Health and metrics on a separate port for probes.
	healthMux := http.NewServeMux()
	checker := observability.NewHealthChecker(store.DB(), redisClient, documentsCheck)
	observability.RegisterHealthRoutes(healthMux, checker)
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(healthMux, registry)
	}
	healthServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: healthMux,
	}

	// Background maintenance.
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Maintenance.AuditPruneSchedule, func() {
		pruned, err := auditor.Prune(context.Background(), cfg.Maintenance.AuditRetention)
		if err != nil {
			logger.WithError(err).Error("audit prune failed")
			return
		}
		logger.Infof("Pruned %d audit events", pruned)
	}); err != nil {
		return fmt.Errorf("invalid audit prune schedule: %w", err)
	}
	scheduler.Start()

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Infof("API server listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		logger.Infof("Health server listening on %s", healthServer.Addr)
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		shutdown := observability.NewShutdownManager(logger, httpServer, cfg.Server.ShutdownTimeout)
		shutdown.RegisterShutdownFunc("health server", func(shutdownCtx context.Context) error {
			return healthServer.Shutdown(shutdownCtx)
		})
		shutdown.RegisterShutdownFunc("cron scheduler", func(shutdownCtx context.Context) error {
			stopCtx := scheduler.Stop()
			select {
			case <-stopCtx.Done():
			case <-shutdownCtx.Done():
			}
			return nil
		})
		shutdown.RegisterShutdownFunc("tracing", func(shutdownCtx context.Context) error {
			return observability.ShutdownOTel(shutdownCtx, otelProviders, logger)
		})
		err := shutdown.WaitForShutdown()
		cancel()
		return err
	})

	<-groupCtx.Done()
	return group.Wait()
}

// buildBlobStore constructs the configured document backend and its health
// probe. The filesystem backend needs no probe.
func buildBlobStore(ctx context.Context, cfg config.DocumentsConfig) (documents.BlobStore, func(context.Context) error, error) {
	switch cfg.Backend {
	case "s3":
		store, err := documents.NewS3Store(ctx, cfg.S3)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize S3 document storage: %w", err)
		}
		return store, store.HealthCheck, nil
	default:
		store, err := documents.NewFileSystemStore(cfg.FilesystemRoot)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize document storage: %w", err)
		}
		return store, nil, nil
	}
}
