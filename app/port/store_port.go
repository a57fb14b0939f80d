package port

import (
	"context"
	"time"

	"publish-service/app/domain"
)

// CredentialStore defines OAuth credential data access interface
type CredentialStore interface {
	EnsureSchema(ctx context.Context) error
	Upsert(ctx context.Context, userID int64, username string, accessKey, accessSecret string) error
	Get(ctx context.Context, userID int64) (*domain.CredentialBundle, error)
	GetByUsername(ctx context.Context, username string) (*domain.CredentialBundle, error)
	Decrypted(ctx context.Context, username string) (domain.Credentials, error)
	Delete(ctx context.Context, userID int64) error
	DeleteByUsername(ctx context.Context, username string) error
}

// ReportStore defines publish report data access interface
type ReportStore interface {
	Insert(ctx context.Context, now time.Time, title, user, lang, sourceTitle, result string, data any) error
	QueryWithFilters(ctx context.Context, filters domain.ReportFilters, limit int) ([]domain.ReportRecord, error)
	Delete(ctx context.Context, id int64) error
}

// PageStore defines page target data access interface
type PageStore interface {
	InsertPageTarget(ctx context.Context, page *domain.PageTarget, wikidataResult map[string]any) (*domain.PageTargetResult, error)
}

// QidStore defines Wikidata item id data access interface
type QidStore interface {
	GetQidByTitle(ctx context.Context, title string) (string, error)
	Add(ctx context.Context, title, qid string) error
}

// CategoryStore defines campaign category data access interface
type CategoryStore interface {
	CategoryForCampaign(ctx context.Context, campaign string) (string, error)
	Invalidate()
}
