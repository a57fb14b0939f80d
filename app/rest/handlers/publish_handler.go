package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"publish-service/app/domain"
	"publish-service/app/port"
	"publish-service/app/utils/validator"
)

// PublishHandler serves the publish and cxtoken endpoints consumed by the
// translation tool.
type PublishHandler struct {
	usecase   port.PublishUsecase
	validator *validator.Validator
	logger    *slog.Logger
}

func NewPublishHandler(usecase port.PublishUsecase, v *validator.Validator, logger *slog.Logger) *PublishHandler {
	return &PublishHandler{usecase: usecase, validator: v, logger: logger}
}

// Publish runs the publish pipeline for one article. Wiki-side failures
// still return 200 with the classified payload; only missing credentials
// turn into 403.
func (h *PublishHandler) Publish(c echo.Context) error {
	var req domain.PublishRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{
			"error": "invalid request body",
		})
	}
	if err := h.validator.Validate(&req); err != nil {
		var validationErr validator.ValidationError
		if errors.As(err, &validationErr) {
			return c.JSON(http.StatusBadRequest, validationErr)
		}
		return c.JSON(http.StatusBadRequest, map[string]any{"error": err.Error()})
	}

	op, err := h.usecase.Publish(c.Request().Context(), &req)
	if err != nil {
		h.logger.Error("publish pipeline failed", "title", req.Title, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]any{
			"error": "internal error",
		})
	}

	status := http.StatusOK
	if op.Result == domain.ResultNoAccess {
		status = http.StatusForbidden
	}
	return c.JSON(status, op.ResultToCX)
}

// CXToken issues a Content Translation token for wiki+user. Missing params
// yield "no data", a missing credential yields "no access".
func (h *PublishHandler) CXToken(c echo.Context) error {
	wiki := c.QueryParam("wiki")
	user := c.QueryParam("user")
	if wiki == "" || user == "" {
		return c.JSON(http.StatusBadRequest, map[string]any{
			"error": map[string]any{"code": "no data", "info": "wiki and user are required"},
		})
	}

	result, err := h.usecase.CXToken(c.Request().Context(), wiki, user)
	if err != nil {
		h.logger.Error("cxtoken failed", "wiki", wiki, "user", user, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]any{
			"error": "internal error",
		})
	}

	response := result.Response
	if result.AccessDeleted {
		merged := make(map[string]any, len(response)+1)
		for key, value := range response {
			merged[key] = value
		}
		merged["del_access"] = true
		response = merged
	}

	if errBody, ok := response["error"].(map[string]any); ok && errBody["code"] == "no access" {
		return c.JSON(http.StatusForbidden, response)
	}
	return c.JSON(http.StatusOK, response)
}
