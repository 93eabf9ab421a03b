package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/robfig/cron/v3"

	"github.com/MannuMourya/Learner-API/pkg/api"
	"github.com/MannuMourya/Learner-API/pkg/async"
	"github.com/MannuMourya/Learner-API/pkg/auth"
	"github.com/MannuMourya/Learner-API/pkg/config"
	"github.com/MannuMourya/Learner-API/pkg/middleware"
	"github.com/MannuMourya/Learner-API/pkg/observability"
	"github.com/MannuMourya/Learner-API/pkg/storage/sqlstore"
)

var version = "dev"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.Level(), os.Stdout).
		WithField("service", cfg.AppName).
		WithField("version", version)

	if err := run(context.Background(), cfg, logger); err != nil {
		logger.WithError(err).Error("Server exited with error")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *observability.Logger) error {
	if cfg.Auth.SecretGenerated {
		logger.Warn("No secret key configured; tokens will not survive a restart")
	}

	otelProviders, err := observability.InitOTel(ctx, cfg.Observability.OTel(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	// Database
	db, dialect, err := sqlstore.Open(ctx, connectionConfig(cfg.Database))
	if err != nil {
		return err
	}
	if cfg.Database.AutoMigrate {
		if err := sqlstore.Migrate(ctx, db, dialect); err != nil {
			db.Close()
			return err
		}
		logger.WithField("driver", string(dialect)).Info("Database migrations applied")
	}
	store := sqlstore.New(db, dialect)

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(registry)

	// Identity
	tokens, err := auth.NewTokenService([]byte(cfg.Auth.SecretKey), cfg.Auth.AccessTokenTTL())
	if err != nil {
		store.Close()
		return err
	}
	hasher := auth.NewHasher(cfg.Auth.BcryptCost, cfg.Auth.HashConcurrency, auth.WithHasherLogger(logger))
	accounts := auth.NewAccountService(store, hasher, tokens, auth.NewAPIKeyIssuer(), logger, metrics)

	if cfg.Auth.AdminEmail != "" && cfg.Auth.AdminPassword != "" {
		admin, created, err := accounts.Provision(ctx, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword, auth.RoleAdmin)
		if err != nil {
			store.Close()
			return fmt.Errorf("failed to provision admin account: %w", err)
		}
		logger.WithFields(map[string]interface{}{
			"user_id": admin.ID,
			"created": created,
		}).Info("Admin account ready")
	}

	resolver := auth.NewResolver(store, tokens)

	// Admission
	limiter := middleware.NewAdmissionLimiter(middleware.AdmissionConfig{
		MaxRequests:        cfg.RateLimit.Requests,
		Window:             cfg.RateLimit.Window(),
		MaxClientsPerShard: cfg.RateLimit.MaxClientsPerShard,
	})

	scheduler := cron.New()
	sweepSpec := fmt.Sprintf("@every %s", cfg.RateLimit.Window())
	if _, err := scheduler.AddFunc(sweepSpec, func() {
		defer observability.RecoverPanic(logger, "admission sweep")
		removed := limiter.Sweep(time.Now())
		metrics.AdmissionSweptTotal.Add(float64(removed))
		metrics.AdmissionTrackedClients.Set(float64(limiter.Len()))
		if removed > 0 {
			logger.WithField("removed", removed).Debug("Swept expired admission windows")
		}
	}); err != nil {
		store.Close()
		return fmt.Errorf("failed to schedule admission sweep: %w", err)
	}
	scheduler.Start()

	// Background tasks
	pool := async.NewWorkerPool(ctx, async.PoolConfig{
		Name:      "tasks",
		Workers:   cfg.Tasks.Workers,
		QueueSize: cfg.Tasks.QueueSize,
	}, logger, metrics)
	async.SafeGo(ctx, logger, 0, "task error drain", func(ctx context.Context) error {
		return async.DrainErrors(ctx, pool, logger)
	})

	// Log level follows the config file while running
	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	if path := config.ConfigFilePath(); path != "" {
		async.SafeGo(watchCtx, logger, 0, "config watcher", func(ctx context.Context) error {
			return config.WatchFile(ctx, path, logger, func(next *config.Config) {
				level := next.Observability.Level()
				if level != logger.Level() {
					logger.SetLevel(level)
					logger.WithField("log_level", level.String()).Info("Log level changed")
				}
			})
		})
	}

	health := observability.NewHealthChecker(version, map[string]observability.Pinger{
		"database": store,
	})

	server := api.NewServer(api.Deps{
		Accounts: accounts,
		Resolver: resolver,
		Limiter:  limiter,
		Tasks:    pool,
		Health:   health,
		Logger:   logger,
		Metrics:  metrics,
		Registry: metricsRegistry(cfg, registry),
	}, api.Options{
		AllowedOrigins:    cfg.Server.AllowedOrigins,
		TrustProxyHeaders: cfg.Server.TrustProxyHeaders,
		Tracing:           otelProviders != nil,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := observability.NewShutdownManager(logger, httpServer, cfg.Server.ShutdownTimeout)
	shutdown.RegisterShutdownFunc("cron", func(ctx context.Context) error {
		select {
		case <-scheduler.Stop().Done():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	shutdown.RegisterShutdownFunc("tasks", func(ctx context.Context) error {
		return pool.Shutdown(remaining(ctx, cfg.Server.ShutdownTimeout))
	})
	shutdown.RegisterShutdownFunc("config watcher", func(context.Context) error {
		stopWatch()
		return nil
	})
	shutdown.RegisterShutdownFunc("otel", func(ctx context.Context) error {
		return observability.ShutdownOTel(ctx, otelProviders, logger)
	})

	serverErr := make(chan error, 1)
	go func() {
		logger.WithField("addr", httpServer.Addr).Info("Learner API listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		if err, ok := <-serverErr; ok && err != nil {
			logger.WithError(err).Error("HTTP server failed")
			cancel()
		}
	}()

	shutdownErr := shutdown.WaitForShutdown(waitCtx)

	// The store outlives every other component.
	if err := store.Close(); err != nil {
		logger.WithError(err).Error("Failed to close database")
		shutdownErr = errors.Join(shutdownErr, err)
	}
	logger.Info("Learner API stopped")
	return shutdownErr
}

func connectionConfig(db config.DatabaseConfig) sqlstore.ConnectionConfig {
	return sqlstore.ConnectionConfig{
		Driver:      db.Driver,
		URL:         db.URL,
		MaxConns:    db.MaxOpenConns,
		MinConns:    db.MaxIdleConns,
		MaxLifetime: db.ConnMaxLifetime,
		MaxIdleTime: db.ConnMaxIdleTime,
	}
}

func metricsRegistry(cfg *config.Config, registry *prometheus.Registry) *prometheus.Registry {
	if !cfg.Observability.MetricsEnabled {
		return nil
	}
	return registry
}

// remaining is the time left before ctx expires, or fallback when it has no
// deadline
func remaining(ctx context.Context, fallback time.Duration) time.Duration {
	if deadline, ok := ctx.Deadline(); ok {
		return time.Until(deadline)
	}
	return fallback
}
