package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/gogo/dashboard/internal/domain"
)

// PushEvent appends an event to the run's event stream.
// POST /api/runs/:run_id/events
func (h *Handler) PushEvent(c echo.Context) error {
	ctx := c.Request().Context()

	var event domain.Event
	if err := c.Bind(&event); err != nil {
		return invalidBody(c, err)
	}
	// Sequence is assigned by the store.
	event.Sequence = 0

	resp, err := h.service.AppendEvent(ctx, c.Param("run_id"), &event)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusCreated, resp)
}

// GetEvents returns all events of a run.
// GET /api/runs/:run_id/events
func (h *Handler) GetEvents(c echo.Context) error {
	events, err := h.service.GetEvents(c.Request().Context(), c.Param("run_id"))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, events)
}
