package mysql

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"publish-service/app/domain"
)

// PageRepository records translated page targets. Rows normally land in the
// pages table; publishes into user space or ones tripped up by the sitelink
// abuse filter go to pages_users instead.
type PageRepository struct {
	client *Client
	logger *slog.Logger
}

func NewPageRepository(client *Client, logger *slog.Logger) *PageRepository {
	return &PageRepository{client: client, logger: logger}
}

// abuseFilterUserPages is the filter that rejects sitelinks pointing at user
// pages. Its presence in the wikidata result reroutes the row.
const abuseFilterUserPages = "abusefilter-warning-39"

func pageTargetSchema(table string) string {
	return fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
    id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
    title VARCHAR(255) NOT NULL,
    word INT NOT NULL DEFAULT 0,
    translate_type VARCHAR(50) NOT NULL DEFAULT '',
    cat VARCHAR(255) NOT NULL DEFAULT '',
    lang VARCHAR(25) NOT NULL,
    user VARCHAR(255) NOT NULL,
    target VARCHAR(255) NOT NULL DEFAULT '',
    date TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    pupdate TIMESTAMP NULL DEFAULT NULL,
    mdwiki_revid VARCHAR(25) NOT NULL DEFAULT '',
    deleted TINYINT(1) NOT NULL DEFAULT 0,
    PRIMARY KEY (id),
    UNIQUE KEY uq_%s_title_lang_user (title, lang, user)
)`, table, table)
}

// EnsureSchema creates both page target tables when missing.
func (r *PageRepository) EnsureSchema(ctx context.Context) error {
	for _, table := range []string{"pages", "pages_users"} {
		if _, err := r.client.Execute(ctx, pageTargetSchema(table)); err != nil {
			return fmt.Errorf("ensure %s schema: %w", table, err)
		}
	}
	return nil
}

// InsertPageTarget upserts the bookkeeping row for a published translation.
// An existing (title, lang, user) row is never duplicated: its target is
// filled in when empty and the result reports already_in either way.
func (r *PageRepository) InsertPageTarget(ctx context.Context, page *domain.PageTarget, wikidataResult map[string]any) (*domain.PageTargetResult, error) {
	result := &domain.PageTargetResult{}

	// Wiki titles arrive in either underscore or space form; the tables key
	// on the space form.
	page.Title = strings.ReplaceAll(page.Title, "_", " ")
	page.Target = strings.ReplaceAll(page.Target, "_", " ")
	page.User = strings.ReplaceAll(page.User, "_", " ")

	if empty := emptyField(page); empty != "" {
		result.OneEmpty = map[string]string{empty: ""}
		return result, nil
	}

	result.ToUsersTable = routeToUsersTable(page, wikidataResult)
	table := "pages"
	if result.ToUsersTable {
		table = "pages_users"
		result.UseUserTable = true
	}

	query := fmt.Sprintf(
		"SELECT id, target FROM %s WHERE title = ? AND lang = ? AND user = ? AND deleted = 0", table)
	rows, err := r.client.Fetch(ctx, query, page.Title, page.Lang, page.User)
	if err != nil {
		return nil, fmt.Errorf("look up page target: %w", err)
	}

	if len(rows) > 0 {
		result.Exists = "already_in"
		existingTarget, _ := rows[0]["target"].(string)
		if existingTarget == "" && page.Target != "" {
			update := fmt.Sprintf(
				"UPDATE %s SET target = ?, pupdate = NOW() WHERE title = ? AND lang = ? AND user = ? AND target = ''", table)
			// Best effort: the row exists either way.
			r.client.ExecuteSafe(ctx, update,
				page.Target, page.Title, page.Lang, page.User)
		}
		return result, nil
	}

	insert := fmt.Sprintf(`INSERT INTO %s
    (title, word, translate_type, cat, lang, user, target, mdwiki_revid)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, table)
	if _, err := r.client.Execute(ctx, insert,
		page.Title, page.Word, page.TranslateType, page.Category,
		page.Lang, page.User, page.Target, page.MdwikiRevID); err != nil {
		return nil, fmt.Errorf("insert page target: %w", err)
	}

	result.Inserted = true
	r.logger.Info("page target recorded",
		"table", table,
		"title", page.Title,
		"lang", page.Lang,
		"user", page.User)
	return result, nil
}

func emptyField(page *domain.PageTarget) string {
	switch {
	case page.Title == "":
		return "title"
	case page.Lang == "":
		return "lang"
	case page.User == "":
		return "user"
	}
	return ""
}

// routeToUsersTable decides whether the row belongs to pages_users: either
// the sitelink update hit the user-pages abuse filter, or the publish target
// itself is the publishing user's own page.
func routeToUsersTable(page *domain.PageTarget, wikidataResult map[string]any) bool {
	if domain.ContainsToken(wikidataResult, abuseFilterUserPages) {
		return true
	}

	target := page.Target
	target = strings.TrimPrefix(target, "User:")
	target = strings.TrimPrefix(target, "user:")
	return strings.Contains(target, page.User)
}
