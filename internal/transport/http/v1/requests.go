package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/gogo/dashboard/internal/domain"
)

// PushRequest appends a request log entry.
// POST /api/runs/:run_id/requests
func (h *Handler) PushRequest(c echo.Context) error {
	ctx := c.Request().Context()

	var req domain.RequestLog
	if err := c.Bind(&req); err != nil {
		return invalidBody(c, err)
	}
	req.Sequence = 0

	resp, err := h.service.AppendRequest(ctx, c.Param("run_id"), &req)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusCreated, resp)
}

// GetRequests returns a run's request logs.
// GET /api/runs/:run_id/requests?service=&endpoint=&test=&status=&errors_only=&q=
func (h *Handler) GetRequests(c echo.Context) error {
	filter := domain.RequestFilter{
		Service:     c.QueryParam("service"),
		Endpoint:    c.QueryParam("endpoint"),
		TestPattern: c.QueryParam("test"),
		Keyword:     c.QueryParam("q"),
	}
	if v := c.QueryParam("status"); v != "" {
		status, err := strconv.Atoi(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, domain.ErrorResponse{Error: "invalid_request", Detail: "status must be an integer"})
		}
		filter.Status = &status
	}
	if v := c.QueryParam("errors_only"); v != "" {
		errorsOnly, err := strconv.ParseBool(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, domain.ErrorResponse{Error: "invalid_request", Detail: "errors_only must be a boolean"})
		}
		filter.ErrorsOnly = errorsOnly
	}

	logs, err := h.service.GetRequests(c.Request().Context(), c.Param("run_id"), filter)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, logs)
}

// RequestSummary returns per-test request totals.
// GET /api/runs/:run_id/requests/summary
func (h *Handler) RequestSummary(c echo.Context) error {
	summary, err := h.service.SummarizeRequests(c.Request().Context(), c.Param("run_id"))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, summary)
}
