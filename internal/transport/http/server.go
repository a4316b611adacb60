// Package http provides the HTTP server implementation for the dashboard.
package http

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/xiaot623/gogo/dashboard/internal/config"
	"github.com/xiaot623/gogo/dashboard/internal/metrics"
	"github.com/xiaot623/gogo/dashboard/internal/service"
	v1 "github.com/xiaot623/gogo/dashboard/internal/transport/http/v1"
	"github.com/xiaot623/gogo/dashboard/internal/transport/ws"
)

// NewServer creates and configures the dashboard HTTP server.
// It serves the API, the live event feed, metrics and the static UI.
func NewServer(cfg *config.Config, svc *service.Service, wsServer *ws.Server, m *metrics.Metrics, logger *slog.Logger) *echo.Echo {
	if logger == nil {
		logger = slog.Default()
	}
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Handlers
	v1Handler := v1.NewHandler(svc, logger)

	// Register Routes
	v1Handler.RegisterRoutes(e)
	e.GET("/api/runs/:run_id/events/ws", wsServer.HandleRunEvents)
	if m != nil {
		e.GET("/metrics", echo.WrapHandler(m.Handler()))
	}

	e.GET("/", func(c echo.Context) error {
		return c.Redirect(http.StatusTemporaryRedirect, "/ui/")
	})
	if info, err := os.Stat(cfg.StaticPath); err == nil && info.IsDir() {
		e.Static("/ui", cfg.StaticPath)
		logger.Info("mounted static UI", "path", cfg.StaticPath)
	} else {
		logger.Warn("static path not found, UI will not be available", "path", cfg.StaticPath)
	}

	return e
}
