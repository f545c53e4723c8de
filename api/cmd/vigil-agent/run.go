package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/irgordon/vigil/api/internal/adapters"
	"github.com/irgordon/vigil/api/internal/api/handlers"
	"github.com/irgordon/vigil/api/internal/api/middleware"
	"github.com/irgordon/vigil/api/internal/api/router"
	"github.com/irgordon/vigil/api/internal/config"
	"github.com/irgordon/vigil/api/internal/core/services"
	"github.com/irgordon/vigil/api/internal/metrics"
	"github.com/irgordon/vigil/api/internal/server"
	"github.com/irgordon/vigil/api/internal/telemetry"
)

func run(parent context.Context, cfg *config.Config) error {
	// --- 1. Core Telemetry ---
	// Every log line also lands in the hub that backs /api/logs.
	logHub := telemetry.NewHub(cfg.LogBufferSize)
	jsonHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})
	logger := slog.New(telemetry.NewTeeHandler(jsonHandler, logHub))
	slog.SetDefault(logger)
	logger.Info("Booting Vigil agent",
		slog.String("env", cfg.Environment),
		slog.Int("api_port", cfg.APIPort),
		slog.Int("orchestrator_port", cfg.OrchestratorPort),
	)

	registry := metrics.New()

	// --- 2. Shared System Snapshot ---
	snapshots := services.NewSnapshotService(adapters.NewHostProbe(cfg.DiskPath), registry, logger)
	if _, err := snapshots.Refresh(parent); err != nil {
		logger.Warn("Initial snapshot incomplete", slog.String("error", err.Error()))
	}

	// --- 3. Dependency Injection ---
	saveLimiter := middleware.NewRateLimiter(cfg.SaveRateLimit, cfg.SaveBurst)
	defer saveLimiter.Stop()

	apiRouter := router.NewRouter(router.RouterConfig{
		AllowedOrigins:   cfg.AllowedOrigins,
		RequestTimeout:   cfg.RequestTimeout,
		HealthHandler:    handlers.NewHealthHandler(router.ListenerAPI, logger),
		MetricsHandler:   handlers.NewMetricsHandler(registry.Gatherer(), logger),
		DashboardHandler: handlers.NewDashboardHandler(snapshots, registry, logger),
		SysInfoHandler:   handlers.NewSysInfoHandler(snapshots),
		LogHandler:       handlers.NewLogHandler(logHub, registry, cfg.AllowedOrigins, logger),
		SaveLimiter:      saveLimiter,
		Observer:         registry,
		Logger:           logger,
	})

	orchestratorRouter := router.NewOrchestratorRouter(router.OrchestratorConfig{
		HealthHandler: handlers.NewHealthHandler(router.ListenerOrchestrator, logger),
		Observer:      registry,
		Logger:        logger,
	})

	// --- 4. Listeners: both bind or the process exits before serving ---
	supervisor := server.New(logger, server.Options{ShutdownTimeout: cfg.ShutdownTimeout},
		server.Listener{Name: router.ListenerAPI, Addr: cfg.APIAddr(), Handler: apiRouter},
		server.Listener{Name: router.ListenerOrchestrator, Addr: cfg.OrchestratorAddr(), Handler: orchestratorRouter},
	)
	if err := supervisor.Bind(); err != nil {
		logger.Error("FATAL: listener bind failed", slog.String("error", err.Error()))
		return err
	}

	// --- 5. Background Workers & Graceful Exit ---
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go snapshots.StartAutoRefresh(ctx, cfg.RefreshInterval)

	start := time.Now()
	if err := supervisor.Run(ctx); err != nil {
		logger.Error("CRITICAL: listener failed", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Vigil agent shutdown complete", slog.Duration("uptime", time.Since(start)))
	return nil
}
