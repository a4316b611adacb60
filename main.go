package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/xiaot623/gogo/dashboard/internal/config"
	"github.com/xiaot623/gogo/dashboard/internal/hub"
	"github.com/xiaot623/gogo/dashboard/internal/metrics"
	"github.com/xiaot623/gogo/dashboard/internal/pathguard"
	"github.com/xiaot623/gogo/dashboard/internal/repository"
	"github.com/xiaot623/gogo/dashboard/internal/service"
	handler "github.com/xiaot623/gogo/dashboard/internal/transport/http"
	"github.com/xiaot623/gogo/dashboard/internal/transport/ws"
	"github.com/xiaot623/gogo/dashboard/policy"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	logger.Info("starting dashboard",
		"http_port", cfg.HTTPPort,
		"data_path", cfg.DataPath,
		"static_path", cfg.StaticPath,
		"log_backend", cfg.LogBackend,
		"control_hub_url", cfg.ControlHubURL,
	)

	if err := os.MkdirAll(cfg.DataPath, 0o755); err != nil {
		logger.Error("failed to create data path", "data_path", cfg.DataPath, "error", err)
		os.Exit(1)
	}

	// Initialize store
	opts := []store.Option{
		store.WithLogger(logger),
		store.WithListConcurrency(cfg.ListConcurrency),
	}
	if cfg.LogBackend == config.LogBackendSQLite {
		logDB, err := store.NewSQLiteLog(cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to initialize sqlite log", "database", cfg.DatabaseURL, "error", err)
			os.Exit(1)
		}
		opts = append(opts, store.WithLog(logDB))
	}
	db, err := store.NewFSStore(cfg.DataPath, opts...)
	if err != nil {
		logger.Error("failed to initialize store", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Initialize path guard
	guard, err := pathguard.New(cfg.DataPath)
	if err != nil {
		logger.Error("failed to initialize path guard", "error", err)
		os.Exit(1)
	}

	// Initialize policy engine
	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	policyEngine, err := policy.NewEngineFromFile(ctx, cfg.PolicyFile)
	if err != nil {
		logger.Error("failed to initialize policy engine", "error", err)
		os.Exit(1)
	}

	// Start live feed hub
	h := hub.NewHub(logger)
	go h.Run(ctx)

	// Initialize service
	m := metrics.New()
	svc := service.New(db, guard, policyEngine, h, m, cfg, logger)

	// Create Echo server
	server := handler.NewServer(cfg, svc, ws.NewServer(cfg, h, svc, logger), m, logger)

	// Start server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	logger.Info("dashboard API started", "port", cfg.HTTPPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down dashboard")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown server gracefully", "error", err)
	}
	stop()

	logger.Info("dashboard stopped")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
