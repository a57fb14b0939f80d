package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// CORSGate admits only requests whose Origin or Referer mentions one of the
// allowed domains. Matching is by containment, so subdomains and full URLs
// of an allowed domain pass without enumeration.
type CORSGate struct {
	allowedDomains []string
	logger         *slog.Logger
}

func NewCORSGate(allowedDomains []string, logger *slog.Logger) *CORSGate {
	return &CORSGate{allowedDomains: allowedDomains, logger: logger}
}

// match returns the first allowed domain contained in the request's Origin
// or Referer, or empty when neither header qualifies.
func (g *CORSGate) match(c echo.Context) string {
	origin := c.Request().Header.Get(echo.HeaderOrigin)
	referer := c.Request().Header.Get("Referer")

	for _, domain := range g.allowedDomains {
		if domain == "" {
			continue
		}
		if strings.Contains(origin, domain) || strings.Contains(referer, domain) {
			return domain
		}
	}
	return ""
}

// Gate rejects unrecognized origins with 403 and answers preflights for
// recognized ones directly.
func (g *CORSGate) Gate() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			domain := g.match(c)
			if domain == "" {
				g.logger.Warn("request from unrecognized origin",
					"origin", c.Request().Header.Get(echo.HeaderOrigin),
					"referer", c.Request().Header.Get("Referer"),
					"path", c.Request().URL.Path)
				return c.JSON(http.StatusForbidden, map[string]any{
					"error": "origin not allowed",
				})
			}

			header := c.Response().Header()
			header.Set(echo.HeaderAccessControlAllowOrigin, "https://"+domain)
			header.Set(echo.HeaderAccessControlAllowMethods, "GET, POST, OPTIONS")
			header.Set(echo.HeaderAccessControlAllowHeaders, "Content-Type, Authorization")
			header.Set(echo.HeaderAccessControlAllowCredentials, "true")

			if c.Request().Method == http.MethodOptions {
				return c.NoContent(http.StatusOK)
			}
			return next(c)
		}
	}
}
