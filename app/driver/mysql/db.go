package mysql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net"
	"os"
	"strings"
	"time"

	gomysql "github.com/go-sql-driver/mysql"

	"publish-service/app/config"
)

// Retry policy for transient server-side failures.
const (
	maxAttempts  = 3
	baseBackoff  = 200 * time.Millisecond
	jitterWindow = 100 * time.Millisecond
)

// MySQL server error numbers treated as transient.
var retryableErrNumbers = map[uint16]bool{
	1053: true, // server shutdown in progress
	1205: true, // lock wait timeout
	1213: true, // deadlock
	2006: true, // server has gone away
	2013: true, // lost connection during query
}

// errMaxUserConnections is the server error meaning the account's connection
// quota is spent. Retrying only makes it worse.
const errMaxUserConnections = 1203

// ResourceExhaustedError marks a connection-quota failure. Callers treat it
// as fatal for the current operation instead of retrying.
type ResourceExhaustedError struct {
	Err error
}

func (e *ResourceExhaustedError) Error() string {
	return fmt.Sprintf("database connection quota exhausted: %v", e.Err)
}

func (e *ResourceExhaustedError) Unwrap() error { return e.Err }

// Client wraps a single-connection MySQL session with bounded retries.
// MaxOpenConns is pinned to 1 so SET SESSION statements bind to the same
// session the following query runs on.
type Client struct {
	db     *sql.DB
	logger *slog.Logger
	sleep  func(time.Duration)
}

// NewClient opens a connection per cfg, reading credentials from the
// connect file when one is configured.
func NewClient(cfg *config.Config, logger *slog.Logger) (*Client, error) {
	user, password := cfg.DatabaseUser, cfg.DatabasePassword
	if cfg.DatabaseConnectFile != "" {
		fileUser, filePassword, err := readConnectFile(cfg.DatabaseConnectFile)
		if err != nil {
			return nil, err
		}
		if user == "" {
			user = fileUser
		}
		if password == "" {
			password = filePassword
		}
	}

	dsnConfig := gomysql.NewConfig()
	dsnConfig.User = user
	dsnConfig.Passwd = password
	dsnConfig.Net = "tcp"
	dsnConfig.Addr = cfg.DatabaseHost
	dsnConfig.DBName = cfg.DatabaseName
	dsnConfig.ParseTime = true
	dsnConfig.Loc = time.UTC

	db, err := sql.Open("mysql", dsnConfig.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxIdleTime(5 * time.Minute)

	logger.Info("database client configured",
		"host", cfg.DatabaseHost,
		"database", cfg.DatabaseName)

	return &Client{db: db, logger: logger, sleep: time.Sleep}, nil
}

// NewClientWithDB wraps an existing handle. Used by repositories under test.
func NewClientWithDB(db *sql.DB, logger *slog.Logger) *Client {
	db.SetMaxOpenConns(1)
	return &Client{db: db, logger: logger, sleep: time.Sleep}
}

// Close releases the underlying handle.
func (c *Client) Close() error {
	return c.db.Close()
}

// HealthCheck pings the server.
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return c.db.PingContext(ctx)
}

// Execute runs a statement with retries and returns the affected row count.
func (c *Client) Execute(ctx context.Context, query string, args ...any) (int64, error) {
	var affected int64
	err := c.withRetry(ctx, "execute", func() error {
		result, err := c.db.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		affected, err = result.RowsAffected()
		return err
	})
	return affected, err
}

// Fetch runs a query with retries and materializes every row as a map keyed
// by column name.
func (c *Client) Fetch(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	var results []map[string]any
	err := c.withRetry(ctx, "fetch", func() error {
		rows, err := c.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		results, err = scanAll(rows)
		return err
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// ExecuteSafe runs a statement and swallows any failure: the error is
// logged and 0 comes back. For best-effort writes whose failure must not
// stop the caller.
func (c *Client) ExecuteSafe(ctx context.Context, query string, args ...any) int64 {
	affected, err := c.Execute(ctx, query, args...)
	if err != nil {
		c.logger.Error("execute failed, continuing", "error", err)
		return 0
	}
	return affected
}

// FetchSafe runs a capped query and swallows any failure: the error is
// logged and an empty result comes back.
func (c *Client) FetchSafe(ctx context.Context, timeout time.Duration, query string, args ...any) []map[string]any {
	rows, err := c.FetchCapped(ctx, timeout, query, args...)
	if err != nil {
		c.logger.Error("fetch failed, continuing", "error", err)
		return nil
	}
	return rows
}

// FetchCapped runs a query under a server-side execution cap. The cap is set
// on the session before the query and reset afterwards; with one connection
// in the pool both statements hit the same session.
func (c *Client) FetchCapped(ctx context.Context, timeout time.Duration, query string, args ...any) ([]map[string]any, error) {
	var results []map[string]any
	err := c.withRetry(ctx, "fetch_capped", func() error {
		conn, err := c.db.Conn(ctx)
		if err != nil {
			return err
		}
		defer conn.Close()

		millis := timeout.Milliseconds()
		if _, err := conn.ExecContext(ctx, fmt.Sprintf("SET SESSION MAX_EXECUTION_TIME=%d", millis)); err != nil {
			return err
		}
		defer conn.ExecContext(ctx, "SET SESSION MAX_EXECUTION_TIME=0") //nolint:errcheck

		rows, err := conn.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		results, err = scanAll(rows)
		return err
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// ExecuteMany runs one statement per parameter row inside a transaction.
// When a chunk fails it is bisected and each half retried, so a single bad
// row costs log(n) extra round trips instead of the whole batch.
func (c *Client) ExecuteMany(ctx context.Context, query string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	affected, err := c.executeBatch(ctx, query, rows)
	if err == nil {
		return affected, nil
	}
	var exhausted *ResourceExhaustedError
	if errors.As(err, &exhausted) || len(rows) == 1 {
		return affected, err
	}

	c.logger.Warn("batch failed, bisecting",
		"rows", len(rows),
		"error", err)

	mid := (len(rows) + 1) / 2
	left, leftErr := c.ExecuteMany(ctx, query, rows[:mid])
	right, rightErr := c.ExecuteMany(ctx, query, rows[mid:])
	return left + right, errors.Join(leftErr, rightErr)
}

func (c *Client) executeBatch(ctx context.Context, query string, rows [][]any) (int64, error) {
	var affected int64
	err := c.withRetry(ctx, "execute_many", func() error {
		tx, err := c.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}

		var batchAffected int64
		for _, args := range rows {
			result, err := tx.ExecContext(ctx, query, args...)
			if err != nil {
				tx.Rollback() //nolint:errcheck
				return err
			}
			n, err := result.RowsAffected()
			if err != nil {
				tx.Rollback() //nolint:errcheck
				return err
			}
			batchAffected += n
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		affected = batchAffected
		return nil
	})
	return affected, err
}

// withRetry runs op up to maxAttempts times, backing off exponentially with
// jitter between attempts. Quota exhaustion aborts immediately.
func (c *Client) withRetry(ctx context.Context, label string, op func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := op()
		if err == nil {
			return nil
		}

		var mysqlErr *gomysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == errMaxUserConnections {
			c.logger.Error("connection quota exhausted", "operation", label)
			return &ResourceExhaustedError{Err: err}
		}
		if !isRetryable(err) {
			return err
		}

		lastErr = err
		if attempt == maxAttempts {
			break
		}

		backoff := baseBackoff * time.Duration(1<<(attempt-1))
		backoff += time.Duration(rand.Int63n(int64(jitterWindow)))
		c.logger.Warn("retrying database operation",
			"operation", label,
			"attempt", attempt,
			"backoff", backoff,
			"error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		c.sleep(backoff)
	}
	return fmt.Errorf("database operation %s failed after %d attempts: %w", label, maxAttempts, lastErr)
}

func isRetryable(err error) bool {
	var mysqlErr *gomysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return retryableErrNumbers[mysqlErr.Number]
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, gomysql.ErrInvalidConn) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// scanAll materializes rows into maps keyed by column name. []byte values
// are converted to strings so the maps serialize cleanly as JSON.
func scanAll(rows *sql.Rows) ([]map[string]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var results []map[string]any
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, err
		}

		row := make(map[string]any, len(columns))
		for i, column := range columns {
			if b, ok := values[i].([]byte); ok {
				row[column] = string(b)
				continue
			}
			row[column] = values[i]
		}
		results = append(results, row)
	}
	return results, rows.Err()
}

// timePtr extracts a nullable timestamp from a scanned row value.
func timePtr(value any) *time.Time {
	if t, ok := value.(time.Time); ok {
		return &t
	}
	return nil
}

// readConnectFile parses a MySQL option file of the replica.my.cnf shape:
// a [client] section with user= and password= lines.
func readConnectFile(path string) (user, password string, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("read connect file: %w", err)
	}

	inClient := false
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") {
			inClient = strings.EqualFold(line, "[client]")
			continue
		}
		if !inClient {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		value = strings.Trim(strings.TrimSpace(value), `'"`)
		switch strings.TrimSpace(key) {
		case "user":
			user = value
		case "password":
			password = value
		}
	}
	if user == "" {
		return "", "", fmt.Errorf("connect file %s has no [client] user", path)
	}
	return user, password, nil
}
