package di

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	"publish-service/app/config"
	"publish-service/app/domain"
	"publish-service/app/driver/mediawiki"
	"publish-service/app/driver/mysql"
	"publish-service/app/driver/revids"
	"publish-service/app/gateway"
	"publish-service/app/port"
	"publish-service/app/rest"
	"publish-service/app/usecase"
	"publish-service/app/utils/auditlog"
	"publish-service/app/utils/crypto"
	"publish-service/app/utils/metrics"
	"publish-service/app/utils/validator"
	"publish-service/app/utils/words"
)

const wikidataAPIURL = "https://www.wikidata.org/w/api.php"

// Container holds all dependencies for the application
type Container struct {
	Config *config.Config
	Logger *slog.Logger

	// Drivers
	DB         *mysql.Client
	WikiClient *mediawiki.Client

	// Usecases
	PublishUsecase port.PublishUsecase
	ReportsUsecase port.ReportsUsecase

	Registry *prometheus.Registry
}

// NewContainer creates and initializes a new dependency injection container
func NewContainer(cfg *config.Config, logger *slog.Logger) (*Container, error) {
	container := &Container{
		Config:   cfg,
		Logger:   logger,
		Registry: prometheus.NewRegistry(),
	}

	m := metrics.New(container.Registry)

	var err error
	container.DB, err = mysql.NewClient(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	cipher, err := crypto.NewTokenCipher(cfg.OAuthEncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token cipher: %w", err)
	}

	container.WikiClient = mediawiki.NewClient(
		cfg.OAuthConsumerKey, cfg.OAuthConsumerSecret, cfg.UserAgent, logger, m)

	credentialRepo := mysql.NewCredentialRepository(container.DB, cipher, logger)
	reportRepo := mysql.NewReportRepository(container.DB, logger)
	pageRepo := mysql.NewPageRepository(container.DB, logger)
	qidRepo := mysql.NewQidRepository(container.DB)
	categoryRepo := mysql.NewCategoryRepository(container.DB)

	if err := ensureSchemas(credentialRepo, reportRepo, pageRepo, qidRepo); err != nil {
		return nil, err
	}

	wordIndex, err := words.Load(cfg.WordsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load word counts: %w", err)
	}

	resolver, err := revids.NewResolver(cfg.RevidsFile, cfg.RevidsAPIURL, cfg.UserAgent, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize revision resolver: %w", err)
	}

	audit, err := auditlog.New(cfg.LogDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audit log: %w", err)
	}

	wikidata := gateway.NewWikidataGateway(container.WikiClient, qidRepo, wikidataAPIURL, logger)

	formatter := domain.NewFormatter(cfg.SpecialUsers, cfg.NoHashtagUsers, cfg.Hashtag)

	container.PublishUsecase = usecase.NewPublishUsecase(usecase.PublishDeps{
		Credentials:  credentialRepo,
		Wiki:         container.WikiClient,
		Wikidata:     wikidata,
		Revisions:    resolver,
		Reports:      reportRepo,
		Pages:        pageRepo,
		Categories:   categoryRepo,
		Words:        wordIndex,
		Audit:        audit,
		Formatter:    formatter,
		Metrics:      m,
		Logger:       logger,
		FallbackUser: cfg.FallbackUser,
	})
	container.ReportsUsecase = usecase.NewReportsUsecase(reportRepo, logger)

	logger.Info("Container initialized with full dependency stack")
	return container, nil
}

type schemaEnsurer interface {
	EnsureSchema(ctx context.Context) error
}

func ensureSchemas(ensurers ...schemaEnsurer) error {
	ctx := context.Background()
	for _, e := range ensurers {
		if err := e.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}

// CreateRouter creates and returns a fully configured Echo router
func (c *Container) CreateRouter() *echo.Echo {
	return rest.NewRouter(rest.RouterConfig{
		Logger:          c.Logger,
		PublishUsecase:  c.PublishUsecase,
		ReportsUsecase:  c.ReportsUsecase,
		Validator:       validator.New(),
		DB:              c.DB,
		AllowedDomains:  c.Config.CORSAllowedDomains,
		EnableMetrics:   c.Config.EnableMetrics,
		MetricsGatherer: c.Registry,
	})
}

// Close releases held resources.
func (c *Container) Close() {
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			c.Logger.Warn("database close failed", "error", err)
		}
	}
}
