package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ListFiles lists the data volume root.
// GET /api/files
func (h *Handler) ListFiles(c echo.Context) error {
	result, err := h.service.Browse(c.Request().Context(), "")
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// GetFile reads a file or lists a subdirectory of the data volume.
// GET /api/files/*
func (h *Handler) GetFile(c echo.Context) error {
	result, err := h.service.Browse(c.Request().Context(), c.Param("*"))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}
