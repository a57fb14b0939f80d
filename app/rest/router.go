package rest

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"publish-service/app/port"
	"publish-service/app/rest/handlers"
	custommw "publish-service/app/rest/middleware"
	"publish-service/app/utils/validator"
)

// RouterConfig holds router configuration
type RouterConfig struct {
	Logger          *slog.Logger
	PublishUsecase  port.PublishUsecase
	ReportsUsecase  port.ReportsUsecase
	Validator       *validator.Validator
	DB              handlers.Pinger
	AllowedDomains  []string
	EnableMetrics   bool
	MetricsGatherer prometheus.Gatherer
}

// NewRouter creates and configures the Echo router
func NewRouter(config RouterConfig) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	publishHandler := handlers.NewPublishHandler(config.PublishUsecase, config.Validator, config.Logger)
	reportsHandler := handlers.NewReportsHandler(config.ReportsUsecase, config.Logger)
	healthHandler := handlers.NewHealthHandler(config.DB, config.Logger)

	corsGate := custommw.NewCORSGate(config.AllowedDomains, config.Logger)
	rateLimiter := custommw.NewRateLimiter()

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "method=${method}, uri=${uri}, status=${status}, latency=${latency_human}, error=${error}\n",
	}))
	e.Use(rateLimiter.RateLimit())

	// Probes and metrics bypass the CORS gate: they are called by
	// infrastructure, not browsers.
	e.GET("/health", healthHandler.HealthCheck)
	if config.EnableMetrics && config.MetricsGatherer != nil {
		e.GET("/metrics", echo.WrapHandler(
			promhttp.HandlerFor(config.MetricsGatherer, promhttp.HandlerOpts{})))
	}

	gated := e.Group("", corsGate.Gate())
	gated.POST("/", publishHandler.Publish)
	gated.GET("/", publishHandler.CXToken)
	gated.OPTIONS("/", preflightOK)
	gated.GET("/publish_reports", reportsHandler.List)
	gated.OPTIONS("/publish_reports", preflightOK)
	gated.DELETE("/publish_reports/:id", reportsHandler.Delete)

	return e
}

// preflightOK exists so OPTIONS routes are registered; the CORS gate
// answers the preflight before this runs.
func preflightOK(c echo.Context) error {
	return nil
}
