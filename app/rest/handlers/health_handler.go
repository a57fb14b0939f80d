package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler answers liveness and readiness probes.
type HealthHandler struct {
	db     Pinger
	logger *slog.Logger
}

func NewHealthHandler(db Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{db: db, logger: logger}
}

// HealthCheck reports service liveness plus database reachability.
func (h *HealthHandler) HealthCheck(c echo.Context) error {
	response := map[string]any{
		"status":    "healthy",
		"service":   "publish-service",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if h.db != nil {
		if err := h.db.HealthCheck(c.Request().Context()); err != nil {
			h.logger.Warn("database health check failed", "error", err)
			response["status"] = "degraded"
			response["database"] = "unreachable"
			return c.JSON(http.StatusServiceUnavailable, response)
		}
		response["database"] = "connected"
	}
	return c.JSON(http.StatusOK, response)
}
