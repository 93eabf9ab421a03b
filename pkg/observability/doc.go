// Package observability provides structured logging, Prometheus metrics,
// OpenTelemetry tracing, health probes and graceful shutdown.
//
// # Structured Logging
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("port", 8000).Info("Server started")
//
// Request scoped logging picks up the request ID, client address and trace
// IDs from the context:
//
//	logger.ForRequest(r.Context()).WithError(err).Error("Login failed")
//
// # Prometheus Metrics
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	metrics.AdmissionDecisionsTotal.WithLabelValues("rejected").Inc()
//	router.Handle("/metrics", observability.MetricsHandler(registry))
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(version, map[string]observability.Pinger{
//		"database": store,
//	})
//	router.HandleFunc("/health", checker.Liveness)
//	router.HandleFunc("/ready", checker.Readiness)
//
// # OpenTelemetry
//
//	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
//		Enabled:     true,
//		Endpoint:    "otel-collector:4317",
//		ServiceName: "learner-api",
//	}, logger)
//	defer observability.ShutdownOTel(ctx, providers, logger)
//
// Spans are created with observability.Tracer().
//
// # Related Packages
//
//   - pkg/config: observability configuration
//   - pkg/httputil: request logging and recovery middleware
package observability
