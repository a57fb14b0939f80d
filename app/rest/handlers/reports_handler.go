package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"publish-service/app/domain"
	"publish-service/app/port"
)

// reportFilterParams are the query parameters forwarded to the report store.
// Anything else on the query string is ignored.
var reportFilterParams = []string{
	"id", "year", "month", "title", "user", "lang", "sourcetitle", "result", "select",
}

// ReportsHandler serves the publish_reports listing and admin delete.
type ReportsHandler struct {
	usecase port.ReportsUsecase
	logger  *slog.Logger
}

func NewReportsHandler(usecase port.ReportsUsecase, logger *slog.Logger) *ReportsHandler {
	return &ReportsHandler{usecase: usecase, logger: logger}
}

// List returns report rows matching the query parameters, newest first.
func (h *ReportsHandler) List(c echo.Context) error {
	filters := domain.ReportFilters{}
	for _, name := range reportFilterParams {
		if value := c.QueryParam(name); value != "" {
			filters[name] = value
		}
	}

	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return c.JSON(http.StatusBadRequest, map[string]any{
				"error": "limit must be a non-negative integer",
			})
		}
		limit = parsed
	}

	records, err := h.usecase.Query(c.Request().Context(), filters, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]any{
			"error": "report query failed",
		})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"results": records,
		"count":   len(records),
	})
}

// Delete removes one report row by id.
func (h *ReportsHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, map[string]any{
			"error": "id must be a positive integer",
		})
	}

	if err := h.usecase.Delete(c.Request().Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]any{"error": "report not found"})
		}
		h.logger.Error("report delete failed", "id", id, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]any{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
