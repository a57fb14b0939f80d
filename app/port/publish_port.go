package port

import (
	"context"

	"publish-service/app/domain"
)

// PublishUsecase defines publish pipeline business logic interface
type PublishUsecase interface {
	Publish(ctx context.Context, req *domain.PublishRequest) (*domain.PublishOperation, error)
	CXToken(ctx context.Context, wiki, username string) (*domain.CXTokenResult, error)
}

// ReportsUsecase defines report query business logic interface
type ReportsUsecase interface {
	Query(ctx context.Context, filters domain.ReportFilters, limit int) ([]domain.ReportRecord, error)
	Delete(ctx context.Context, id int64) error
}

// WikiClient defines the signed MediaWiki API interface. Every method takes
// the target wiki's api.php URL so one client serves all language editions
// plus Wikidata.
type WikiClient interface {
	CSRFToken(ctx context.Context, apiURL string, creds domain.Credentials) (string, map[string]any, error)
	Post(ctx context.Context, apiURL string, creds domain.Credentials, params map[string]string) (map[string]any, error)
	Edit(ctx context.Context, apiURL string, creds domain.Credentials, params map[string]string) (map[string]any, error)
	CXToken(ctx context.Context, apiURL string, creds domain.Credentials) (map[string]any, error)
}

// WikidataLinker defines the sitelink update interface
type WikidataLinker interface {
	LinkToWikidata(ctx context.Context, creds domain.Credentials, sourceTitle, targetTitle, lang string) map[string]any
}

// RevisionResolver defines the mdwiki revision lookup interface
type RevisionResolver interface {
	Resolve(ctx context.Context, title, requestRevID string) (revid string, empty bool)
}

// TextTransformer defines pre-publish wikitext rewriting
type TextTransformer interface {
	FixRefs(ctx context.Context, title, text string) (string, bool)
}

// AuditLog defines the daily JSON-lines audit sink
type AuditLog interface {
	Append(status string, extra map[string]any) error
}

// WordCounter defines source-title word count lookup
type WordCounter interface {
	Count(title string) int
}
