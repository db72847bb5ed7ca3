package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/sta4152/datahub/pkg/api"
	"github.com/sta4152/datahub/pkg/config"
	"github.com/sta4152/datahub/pkg/observability"
	"github.com/sta4152/datahub/pkg/registry"
	"github.com/sta4152/datahub/pkg/storage"
	"github.com/sta4152/datahub/pkg/storage/cache"
	"github.com/sta4152/datahub/pkg/storage/sqlstore"
)

var version = "dev"

func main() {
	configPath := flag.String("config", os.Getenv("DATAHUB_CONFIG"), "Path to a JSON config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg.LogLevel(), os.Stdout).WithField("service", "entity-registry")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	otelCfg := cfg.OTel()
	otelCfg.ServiceVersion = version
	providers, err := observability.InitOTel(ctx, otelCfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	var (
		promRegistry *prometheus.Registry
		metrics      *observability.Metrics
	)
	if cfg.Observability.MetricsEnabled {
		promRegistry = prometheus.NewRegistry()
		promRegistry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics = observability.NewMetrics(promRegistry)
	}

	health := observability.NewHealthChecker(version)
	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	shutdown := observability.NewShutdownManager(logger, server, cfg.Server.ShutdownTimeout)
	shutdown.RegisterShutdownFunc("otel", providers.Shutdown)

	var store storage.SpecStore
	if storeCfg, ok, err := cfg.SQLStore(); err != nil {
		return err
	} else if ok {
		s, err := sqlstore.Open(ctx, storeCfg, metrics)
		if err != nil {
			return err
		}
		store = s
		health.Register("store", false, s.Ping)
		shutdown.RegisterShutdownFunc("store", func(context.Context) error { return s.Close() })
		logger.WithField("dialect", storeCfg.Dialect.String()).Info("Snapshot store ready")
	}

	var specCache storage.SpecCache = cache.NewMemoryCache(cfg.Cache.MaxEntries, cfg.Cache.TTL, metrics)
	if redisCfg, ok := cfg.Redis(); ok {
		shared, err := cache.NewRedisCache(ctx, redisCfg, metrics)
		if err != nil {
			return err
		}
		specCache = cache.NewTiered(specCache, shared)
		health.Register("redis", false, shared.Ping)
		logger.Info("Shared spec cache ready")
	}
	shutdown.RegisterShutdownFunc("cache", func(context.Context) error { return specCache.Close() })

	var source registry.Source
	switch cfg.Source.Type {
	case "s3":
		source, err = registry.NewS3Source(ctx, cfg.S3())
		if err != nil {
			return err
		}
	default:
		source = registry.NewDirSource(cfg.Source.Dir)
	}

	reg, err := registry.New(registry.Options{
		Source:      source,
		Cache:       specCache,
		Store:       store,
		Metrics:     metrics,
		Logger:      logger,
		Concurrency: cfg.Refresh.Concurrency,
	})
	if err != nil {
		return err
	}
	health.Register("registry", true, reg.Ready)

	if restored, err := reg.Restore(ctx); err != nil {
		logger.WithError(err).Warn("Failed to restore snapshot from store")
	} else if restored {
		logger.WithField("snapshot_id", reg.Snapshot().ID).Info("Restored last snapshot from store")
	}
	if _, err := reg.Load(ctx, registry.TriggerStartup); err != nil {
		if reg.Snapshot() == nil {
			return fmt.Errorf("initial load failed: %w", err)
		}
		logger.WithError(err).Warn("Initial load failed, serving restored snapshot")
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Refresh.Watch {
		watcher, err := registry.NewWatcher(cfg.Source.Dir, reg.Reloader(), cfg.Refresh.Debounce, logger)
		if err != nil {
			return err
		}
		shutdown.RegisterShutdownFunc("watcher", func(context.Context) error { return watcher.Close() })
		g.Go(func() error { return watcher.Run(gctx) })
	}
	if cfg.Refresh.Schedule != "" {
		scheduler, err := registry.NewScheduler(gctx, cfg.Refresh.Schedule, reg.Reloader(), logger)
		if err != nil {
			return err
		}
		scheduler.Start()
		logger.Infof("Reloading schemas on schedule %q", cfg.Refresh.Schedule)
		shutdown.RegisterShutdownFunc("scheduler", scheduler.Stop)
	}

	server.Handler = api.NewServer(reg, api.Options{
		Store:           store,
		Metrics:         metrics,
		MetricsRegistry: promRegistry,
		Health:          health,
		Logger:          logger,
		MaxBodyBytes:    cfg.Server.MaxBodyBytes,
	})

	g.Go(func() error {
		logger.WithField("addr", server.Addr).Info("Starting entity registry")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error { return shutdown.Wait(gctx) })

	return g.Wait()
}
