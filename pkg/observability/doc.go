// Package observability provides structured logging, Prometheus metrics, health
// checks and OpenTelemetry tracing for the entity registry.
//
// # Structured Logging
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("aspect", name).Info("Aspect loaded")
//
// Loggers travel in contexts with WithLogger and FromContext.
//
// # Prometheus Metrics
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	metrics.ValidationFailuresTotal.WithLabelValues("duplicate_name").Inc()
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(version)
//	checker.Register("store", true, store.Ping)
//
// # OpenTelemetry
//
//	providers, err := observability.InitOTel(ctx, cfg, logger)
//	defer providers.Shutdown(ctx)
package observability
