package mediawiki

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dghubble/oauth1"

	"publish-service/app/domain"
	"publish-service/app/utils/metrics"
)

// API call timeouts. Edits carry full article wikitext and get the longer
// budget.
const (
	getTimeout  = 30 * time.Second
	postTimeout = 60 * time.Second
)

// Client issues OAuth1-signed MediaWiki API calls on behalf of a user. The
// consumer pair is the service's own registration; each call is additionally
// signed with the user's access pair.
type Client struct {
	consumer  *oauth1.Config
	userAgent string
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

func NewClient(consumerKey, consumerSecret, userAgent string, logger *slog.Logger, m *metrics.Metrics) *Client {
	return &Client{
		consumer:  oauth1.NewConfig(consumerKey, consumerSecret),
		userAgent: userAgent,
		logger:    logger,
		metrics:   m,
	}
}

// httpClient builds a signing client for one user's access pair.
func (c *Client) httpClient(ctx context.Context, creds domain.Credentials, timeout time.Duration) *http.Client {
	token := oauth1.NewToken(creds.AccessKey, creds.AccessSecret)
	client := c.consumer.Client(ctx, token)
	client.Timeout = timeout
	return client
}

// Get issues a signed GET and decodes the JSON response.
func (c *Client) Get(ctx context.Context, apiURL string, creds domain.Credentials, params map[string]string) (map[string]any, error) {
	values := apiValues(params)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL+"?"+values.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build api request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	return c.do(ctx, req, creds, getTimeout, params["action"])
}

// PostForm issues a signed POST with form-encoded params and decodes the
// JSON response.
func (c *Client) PostForm(ctx context.Context, apiURL string, creds domain.Credentials, params map[string]string) (map[string]any, error) {
	values := apiValues(params)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL,
		strings.NewReader(values.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build api request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.userAgent)

	return c.do(ctx, req, creds, postTimeout, params["action"])
}

func (c *Client) do(ctx context.Context, req *http.Request, creds domain.Credentials, timeout time.Duration, action string) (map[string]any, error) {
	start := time.Now()
	resp, err := c.httpClient(ctx, creds, timeout).Do(req)
	c.metrics.ObserveWikiCall(action, time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("api call %s: %w", action, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("read api response: %w", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("decode api response (status %d): %w", resp.StatusCode, err)
	}
	return decoded, nil
}

// CSRFToken fetches an edit token. The raw response is returned alongside so
// failures can be recorded verbatim in reports.
func (c *Client) CSRFToken(ctx context.Context, apiURL string, creds domain.Credentials) (string, map[string]any, error) {
	data, err := c.Get(ctx, apiURL, creds, map[string]string{
		"action": "query",
		"meta":   "tokens",
		"type":   "csrf",
	})
	if err != nil {
		return "", nil, err
	}

	query, _ := data["query"].(map[string]any)
	tokens, _ := query["tokens"].(map[string]any)
	token, _ := tokens["csrftoken"].(string)
	if token == "" {
		return "", data, fmt.Errorf("no csrf token in response")
	}
	return token, data, nil
}

// Post runs a token-protected API action: it fetches a CSRF token, then
// issues the signed POST with the token attached. A failed token fetch does
// not error out; it yields the marker payload the pipeline classifies on.
func (c *Client) Post(ctx context.Context, apiURL string, creds domain.Credentials, params map[string]string) (map[string]any, error) {
	token, tokenData, err := c.CSRFToken(ctx, apiURL, creds)
	if err != nil {
		c.logger.Warn("csrf token fetch failed", "url", apiURL, "error", err)
		return map[string]any{
			"error":          domain.ErrCSRFTokenFailed,
			"csrftoken_data": tokenData,
		}, nil
	}

	merged := make(map[string]string, len(params)+1)
	for key, value := range params {
		merged[key] = value
	}
	merged["token"] = token

	return c.PostForm(ctx, apiURL, creds, merged)
}

// Edit saves a page through action=edit.
func (c *Client) Edit(ctx context.Context, apiURL string, creds domain.Credentials, params map[string]string) (map[string]any, error) {
	merged := make(map[string]string, len(params)+1)
	for key, value := range params {
		merged[key] = value
	}
	merged["action"] = "edit"

	return c.Post(ctx, apiURL, creds, merged)
}

// CXToken obtains a Content Translation token for the user.
func (c *Client) CXToken(ctx context.Context, apiURL string, creds domain.Credentials) (map[string]any, error) {
	return c.Post(ctx, apiURL, creds, map[string]string{
		"action": "cxtoken",
	})
}

func apiValues(params map[string]string) url.Values {
	values := url.Values{}
	for key, value := range params {
		values.Set(key, value)
	}
	values.Set("format", "json")
	return values
}
