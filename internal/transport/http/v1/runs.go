package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/gogo/dashboard/internal/domain"
)

// CreateRun creates a new pipeline run.
// POST /api/runs
func (h *Handler) CreateRun(c echo.Context) error {
	ctx := c.Request().Context()

	var req domain.CreateRunRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody(c, err)
	}

	resp, err := h.service.CreateRun(ctx, req)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusCreated, resp)
}

// ListRuns lists all runs, newest first.
// GET /api/runs
func (h *Handler) ListRuns(c echo.Context) error {
	runs, err := h.service.ListRuns(c.Request().Context())
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, runs)
}

// GetRun returns a run with its derived counts.
// GET /api/runs/:run_id
func (h *Handler) GetRun(c echo.Context) error {
	detail, err := h.service.GetRun(c.Request().Context(), c.Param("run_id"))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, detail)
}

// UpdateRun updates a run's status.
// PATCH /api/runs/:run_id
func (h *Handler) UpdateRun(c echo.Context) error {
	ctx := c.Request().Context()

	var req domain.UpdateRunRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody(c, err)
	}

	detail, err := h.service.UpdateRun(ctx, c.Param("run_id"), req)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, detail)
}

// DeleteRun removes a run.
// DELETE /api/runs/:run_id
func (h *Handler) DeleteRun(c echo.Context) error {
	if err := h.service.DeleteRun(c.Request().Context(), c.Param("run_id")); err != nil {
		return h.respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
