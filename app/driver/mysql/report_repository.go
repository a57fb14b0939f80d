package mysql

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"publish-service/app/domain"
)

// Execution cap for report queries. Selects carrying heavy filters get
// killed server-side instead of pinning the shared session.
const reportQueryTimeout = 5 * time.Minute

// Limits applied to the publish_reports listing.
const (
	defaultReportLimit = 500
	maxReportLimit     = 5000
)

// filterColumns maps recognized query parameters to SQL expressions. Only
// names in this table ever reach the WHERE clause.
var filterColumns = map[string]string{
	"id":          "id",
	"title":       "title",
	"user":        "user",
	"lang":        "lang",
	"sourcetitle": "sourcetitle",
	"result":      "result",
	"year":        "YEAR(date)",
	"month":       "MONTH(date)",
}

// selectColumns is the allow-list for the select parameter. id is always
// returned whether requested or not.
var selectColumns = map[string]bool{
	"id":          true,
	"date":        true,
	"title":       true,
	"user":        true,
	"lang":        true,
	"sourcetitle": true,
	"result":      true,
	"data":        true,
}

var allReportColumns = []string{"id", "date", "title", "user", "lang", "sourcetitle", "result", "data"}

// ReportRepository persists publish outcomes in the publish_reports table.
type ReportRepository struct {
	client *Client
	logger *slog.Logger
}

func NewReportRepository(client *Client, logger *slog.Logger) *ReportRepository {
	return &ReportRepository{client: client, logger: logger}
}

const publishReportsSchema = `
CREATE TABLE IF NOT EXISTS publish_reports (
    id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
    date DATETIME NOT NULL,
    title VARCHAR(255) NOT NULL,
    user VARCHAR(255) NOT NULL,
    lang VARCHAR(25) NOT NULL,
    sourcetitle VARCHAR(255) NOT NULL,
    result VARCHAR(255) NOT NULL,
    data MEDIUMTEXT,
    PRIMARY KEY (id),
    KEY idx_publish_reports_user (user),
    KEY idx_publish_reports_lang (lang),
    KEY idx_publish_reports_date (date)
)`

// EnsureSchema creates the publish_reports table when missing.
func (r *ReportRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.client.Execute(ctx, publishReportsSchema); err != nil {
		return fmt.Errorf("ensure publish_reports schema: %w", err)
	}
	return nil
}

// Insert appends one report row. A legacy ".json" suffix on the result token
// is stripped, and data is serialized as JSON.
func (r *ReportRepository) Insert(ctx context.Context, now time.Time, title, user, lang, sourceTitle, result string, data any) error {
	result = strings.TrimSuffix(result, ".json")

	encoded, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal report data: %w", err)
	}

	query := `INSERT INTO publish_reports (date, title, user, lang, sourcetitle, result, data)
VALUES (?, ?, ?, ?, ?, ?, ?)`
	if _, err := r.client.Execute(ctx, query,
		now, title, user, lang, sourceTitle, result, string(encoded)); err != nil {
		return fmt.Errorf("insert publish report: %w", err)
	}
	return nil
}

// QueryWithFilters lists report rows newest-first. Filters are matched
// against the allow-list; unknown names are dropped. Values may be literals
// or one of the sentinels:
//
//	not_empty, not_mt  column is a non-empty string
//	empty, mt          column is the empty string
//	>0                 column is a positive number
//	all                no constraint (parameter ignored)
//
// The special filter "select" takes a comma-separated list of columns to
// return; unrecognized names are dropped and id is always included.
func (r *ReportRepository) QueryWithFilters(ctx context.Context, filters domain.ReportFilters, limit int) ([]domain.ReportRecord, error) {
	if limit <= 0 {
		limit = defaultReportLimit
	}
	if limit > maxReportLimit {
		limit = maxReportLimit
	}

	columns := selectedColumns(filters["select"])

	names := make([]string, 0, len(filters))
	for name := range filters {
		if name == "select" {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	var conditions []string
	var args []any
	for _, name := range names {
		column, ok := filterColumns[name]
		if !ok {
			continue
		}
		switch value := filters[name]; value {
		case "all", "":
			continue
		case "not_empty", "not_mt":
			conditions = append(conditions, column+" IS NOT NULL AND "+column+" != ''")
		case "empty", "mt":
			conditions = append(conditions, "("+column+" IS NULL OR "+column+" = '')")
		case ">0":
			conditions = append(conditions, column+" > 0")
		default:
			conditions = append(conditions, column+" = ?")
			args = append(args, value)
		}
	}

	query := "SELECT " + strings.Join(columns, ", ") + " FROM publish_reports"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows := r.client.FetchSafe(ctx, reportQueryTimeout, query, args...)

	records := make([]domain.ReportRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, reportFromRow(row))
	}
	return records, nil
}

// Delete removes a report row by id. Administrative use only.
func (r *ReportRepository) Delete(ctx context.Context, id int64) error {
	affected, err := r.client.Execute(ctx, "DELETE FROM publish_reports WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete publish report %d: %w", id, err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	r.logger.Info("publish report deleted", "id", id)
	return nil
}

// selectedColumns resolves the select parameter against the allow-list. id
// is forced into the projection so every row stays addressable.
func selectedColumns(selectParam string) []string {
	if selectParam == "" {
		return allReportColumns
	}

	columns := []string{"id"}
	for _, name := range strings.Split(selectParam, ",") {
		name = strings.TrimSpace(name)
		if name == "id" || !selectColumns[name] {
			continue
		}
		columns = append(columns, name)
	}
	return columns
}

func reportFromRow(row map[string]any) domain.ReportRecord {
	record := domain.ReportRecord{}
	switch id := row["id"].(type) {
	case int64:
		record.ID = id
	case uint64:
		record.ID = int64(id)
	}
	if date, ok := row["date"].(time.Time); ok {
		record.Date = date
	}
	record.Title, _ = row["title"].(string)
	record.User, _ = row["user"].(string)
	record.Lang, _ = row["lang"].(string)
	record.SourceTitle, _ = row["sourcetitle"].(string)
	record.Result, _ = row["result"].(string)
	record.Data, _ = row["data"].(string)
	return record
}
