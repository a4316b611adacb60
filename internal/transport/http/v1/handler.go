// Package v1 provides the HTTP handlers of the dashboard API.
package v1

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/gogo/dashboard/internal/domain"
	"github.com/xiaot623/gogo/dashboard/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
	logger  *slog.Logger
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers the API routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)

	api := e.Group("/api")
	api.GET("/info", h.Info)
	api.GET("/config", h.ClientConfig)
	api.GET("/stats", h.Stats)

	// Runs
	api.POST("/runs", h.CreateRun)
	api.GET("/runs", h.ListRuns)
	api.GET("/runs/:run_id", h.GetRun)
	api.PATCH("/runs/:run_id", h.UpdateRun)
	api.DELETE("/runs/:run_id", h.DeleteRun)

	// Events
	api.POST("/runs/:run_id/events", h.PushEvent)
	api.GET("/runs/:run_id/events", h.GetEvents)

	// Request logs
	api.POST("/runs/:run_id/requests", h.PushRequest)
	api.GET("/runs/:run_id/requests", h.GetRequests)
	api.GET("/runs/:run_id/requests/summary", h.RequestSummary)

	// Timing
	api.POST("/runs/:run_id/timing", h.PushTiming)
	api.GET("/runs/:run_id/timing", h.GetTiming)

	// File browsing
	api.GET("/files", h.ListFiles)
	api.GET("/files/*", h.GetFile)
}

// Health returns health status.
// GET /health
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, h.service.GetHealth(c.Request().Context()))
}

// Info returns service metadata.
// GET /api/info
func (h *Handler) Info(c echo.Context) error {
	return c.JSON(http.StatusOK, h.service.GetInfo())
}

// ClientConfig returns deployment settings for the UI.
// GET /api/config
func (h *Handler) ClientConfig(c echo.Context) error {
	return c.JSON(http.StatusOK, h.service.GetClientConfig())
}

// Stats returns run totals.
// GET /api/stats
func (h *Handler) Stats(c echo.Context) error {
	stats, err := h.service.GetStats(c.Request().Context())
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}

// respondError maps domain errors to status codes. Internal errors are logged
// and reported without detail.
func (h *Handler) respondError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return c.JSON(http.StatusNotFound, domain.ErrorResponse{Error: "not_found", Detail: err.Error()})
	case errors.Is(err, domain.ErrPathViolation):
		return c.JSON(http.StatusForbidden, domain.ErrorResponse{Error: "forbidden", Detail: err.Error()})
	case errors.Is(err, domain.ErrBinaryFile):
		return c.JSON(http.StatusBadRequest, domain.ErrorResponse{Error: "binary_file", Detail: err.Error()})
	case errors.Is(err, domain.ErrInvalidInput):
		return c.JSON(http.StatusBadRequest, domain.ErrorResponse{Error: "invalid_request", Detail: err.Error()})
	}

	h.logger.Error("request failed",
		"method", c.Request().Method,
		"path", c.Request().URL.Path,
		"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
		"error", err,
	)
	return c.JSON(http.StatusInternalServerError, domain.ErrorResponse{Error: "internal_error", Detail: "internal server error"})
}

// invalidBody reports a body that could not be decoded.
func invalidBody(c echo.Context, err error) error {
	return c.JSON(http.StatusBadRequest, domain.ErrorResponse{Error: "invalid_request", Detail: "invalid request body: " + err.Error()})
}
