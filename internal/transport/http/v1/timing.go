package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/gogo/dashboard/internal/domain"
)

// PushTiming appends a batch of timing entries.
// POST /api/runs/:run_id/timing
func (h *Handler) PushTiming(c echo.Context) error {
	ctx := c.Request().Context()

	var entries []domain.TimingEntry
	if err := (&echo.DefaultBinder{}).BindBody(c, &entries); err != nil {
		return invalidBody(c, err)
	}

	resp, err := h.service.PushTiming(ctx, c.Param("run_id"), entries)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusCreated, resp)
}

// GetTiming returns a run's timing entries.
// GET /api/runs/:run_id/timing
func (h *Handler) GetTiming(c echo.Context) error {
	entries, err := h.service.GetTiming(c.Request().Context(), c.Param("run_id"))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, entries)
}
