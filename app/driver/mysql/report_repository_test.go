package mysql

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	gomysql "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"publish-service/app/domain"
)

func newReportRepo(t *testing.T) (*ReportRepository, sqlmock.Sqlmock) {
	t.Helper()
	client, mock := newTestClient(t)
	return NewReportRepository(client, slog.New(slog.NewTextHandler(os.Stderr, nil))), mock
}

func TestReportInsert(t *testing.T) {
	repo, mock := newReportRepo(t)

	now := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	mock.ExpectExec("INSERT INTO publish_reports").
		WithArgs(now, "Aspirin (ar)", "TestUser", "ar", "Aspirin", "success",
			`{"edit":{"result":"Success"}}`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Insert(context.Background(), now,
		"Aspirin (ar)", "TestUser", "ar", "Aspirin", "success",
		map[string]any{"edit": map[string]any{"result": "Success"}})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportInsertStripsJSONSuffix(t *testing.T) {
	repo, mock := newReportRepo(t)

	now := time.Now()
	mock.ExpectExec("INSERT INTO publish_reports").
		WithArgs(now, "T", "U", "ar", "S", "captcha", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Insert(context.Background(), now, "T", "U", "ar", "S", "captcha.json", nil)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func reportRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "date", "title", "user", "lang", "sourcetitle", "result", "data",
	}).AddRow(int64(2), time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
		[]byte("Aspirin (ar)"), []byte("TestUser"), []byte("ar"),
		[]byte("Aspirin"), []byte("success"), []byte("{}")).
		AddRow(int64(1), time.Date(2025, 3, 13, 0, 0, 0, 0, time.UTC),
			[]byte("Ibuprofen (fr)"), []byte("Other"), []byte("fr"),
			[]byte("Ibuprofen"), []byte("errors"), []byte("{}"))
}

func expectCappedQuery(mock sqlmock.Sqlmock, pattern string, rows *sqlmock.Rows) {
	mock.ExpectExec("SET SESSION MAX_EXECUTION_TIME=300000").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(pattern).WillReturnRows(rows)
	mock.ExpectExec("SET SESSION MAX_EXECUTION_TIME=0").
		WillReturnResult(sqlmock.NewResult(0, 0))
}

func TestReportQueryWithFilters(t *testing.T) {
	repo, mock := newReportRepo(t)

	expectCappedQuery(mock,
		`SELECT id, date, title, user, lang, sourcetitle, result, data FROM publish_reports WHERE lang = \? AND user = \? ORDER BY id DESC LIMIT \?`,
		reportRows())

	records, err := repo.QueryWithFilters(context.Background(),
		domain.ReportFilters{"lang": "ar", "user": "TestUser"}, 100)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, int64(2), records[0].ID)
	assert.Equal(t, "Aspirin (ar)", records[0].Title)
	assert.Equal(t, "success", records[0].Result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportQuerySwallowsDatabaseFailure(t *testing.T) {
	repo, mock := newReportRepo(t)

	mock.ExpectExec("SET SESSION MAX_EXECUTION_TIME=300000").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("FROM publish_reports").
		WillReturnError(&gomysql.MySQLError{Number: 1146, Message: "table missing"})
	mock.ExpectExec("SET SESSION MAX_EXECUTION_TIME=0").
		WillReturnResult(sqlmock.NewResult(0, 0))

	records, err := repo.QueryWithFilters(context.Background(), domain.ReportFilters{}, 10)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportQuerySentinels(t *testing.T) {
	repo, mock := newReportRepo(t)

	expectCappedQuery(mock,
		`FROM publish_reports WHERE result IS NOT NULL AND result != '' AND \(sourcetitle IS NULL OR sourcetitle = ''\) AND YEAR\(date\) = \? ORDER BY id DESC LIMIT \?`,
		reportRows())

	_, err := repo.QueryWithFilters(context.Background(), domain.ReportFilters{
		"result":      "not_empty",
		"sourcetitle": "empty",
		"year":        "2025",
	}, 10)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportQueryIgnoresUnknownAndAll(t *testing.T) {
	repo, mock := newReportRepo(t)

	expectCappedQuery(mock,
		`FROM publish_reports ORDER BY id DESC LIMIT \?`,
		reportRows())

	_, err := repo.QueryWithFilters(context.Background(), domain.ReportFilters{
		"result":              "all",
		"data; DROP TABLE x;": "1",
	}, 10)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportQuerySelectProjection(t *testing.T) {
	repo, mock := newReportRepo(t)

	expectCappedQuery(mock,
		`SELECT id, title, result FROM publish_reports ORDER BY id DESC LIMIT \?`,
		sqlmock.NewRows([]string{"id", "title", "result"}).
			AddRow(int64(1), []byte("Aspirin (ar)"), []byte("success")))

	records, err := repo.QueryWithFilters(context.Background(), domain.ReportFilters{
		"select": "title, result, data; DROP TABLE x",
	}, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	// id is forced into the projection even though the caller skipped it.
	assert.Equal(t, int64(1), records[0].ID)
	assert.Equal(t, "Aspirin (ar)", records[0].Title)
	assert.Empty(t, records[0].Data)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportQueryCapsLimit(t *testing.T) {
	repo, mock := newReportRepo(t)

	mock.ExpectExec("SET SESSION MAX_EXECUTION_TIME=300000").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`FROM publish_reports ORDER BY id DESC LIMIT \?`).
		WithArgs(maxReportLimit).
		WillReturnRows(reportRows())
	mock.ExpectExec("SET SESSION MAX_EXECUTION_TIME=0").
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := repo.QueryWithFilters(context.Background(), nil, 1_000_000)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportDelete(t *testing.T) {
	repo, mock := newReportRepo(t)

	mock.ExpectExec("DELETE FROM publish_reports WHERE id").
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), 7))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportDeleteMissing(t *testing.T) {
	repo, mock := newReportRepo(t)

	mock.ExpectExec("DELETE FROM publish_reports WHERE id").
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), 7)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
