package revids

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"sync"
	"time"
)

// Resolver finds the mdwiki revision id behind a source title. Lookup order:
// the local snapshot file, then the remote revids API, then whatever revid
// the publish request itself carried.
type Resolver struct {
	apiURL    string
	userAgent string
	logger    *slog.Logger
	client    *http.Client

	mu    sync.RWMutex
	local map[string]string
}

func NewResolver(snapshotPath, apiURL, userAgent string, logger *slog.Logger) (*Resolver, error) {
	local, err := loadSnapshot(snapshotPath)
	if err != nil {
		return nil, err
	}

	return &Resolver{
		apiURL:    apiURL,
		userAgent: userAgent,
		logger:    logger,
		client:    &http.Client{Timeout: 15 * time.Second},
		local:     local,
	}, nil
}

// loadSnapshot reads a JSON object of title -> revid. Revids appear both as
// numbers and strings in historical snapshots; both are accepted. A missing
// file yields an empty snapshot.
func loadSnapshot(path string) (map[string]string, error) {
	if path == "" {
		return map[string]string{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("read revids snapshot: %w", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse revids snapshot: %w", err)
	}

	local := make(map[string]string, len(raw))
	for title, value := range raw {
		if revid := revidString(value); revid != "" {
			local[title] = revid
		}
	}
	return local, nil
}

// Resolve returns the revision id for title. When every source comes up
// empty it reports empty=true so the caller can record the miss.
func (r *Resolver) Resolve(ctx context.Context, title, requestRevID string) (string, bool) {
	r.mu.RLock()
	revid, ok := r.local[title]
	r.mu.RUnlock()
	if ok && revid != "" {
		return revid, false
	}

	if revid := r.remote(ctx, title); revid != "" {
		r.mu.Lock()
		r.local[title] = revid
		r.mu.Unlock()
		return revid, false
	}

	if requestRevID != "" && requestRevID != "0" {
		return requestRevID, false
	}
	return "", true
}

// remote queries the revids API for one title. Failures are logged and
// treated as a miss; the request revid still backstops the lookup.
func (r *Resolver) remote(ctx context.Context, title string) string {
	if r.apiURL == "" {
		return ""
	}

	endpoint := fmt.Sprintf("%s?get=revids&title=%s", r.apiURL, url.QueryEscape(title))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		r.logger.Warn("revids request build failed", "title", title, "error", err)
		return ""
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Warn("revids api call failed", "title", title, "error", err)
		return ""
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		r.logger.Warn("revids api read failed", "title", title, "error", err)
		return ""
	}

	var decoded struct {
		Revids map[string]any `json:"revids"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		r.logger.Warn("revids api decode failed", "title", title, "error", err)
		return ""
	}
	return revidString(decoded.Revids[title])
}

func revidString(value any) string {
	switch v := value.(type) {
	case string:
		if v == "0" {
			return ""
		}
		return v
	case float64:
		if v <= 0 {
			return ""
		}
		return strconv.FormatInt(int64(v), 10)
	}
	return ""
}
