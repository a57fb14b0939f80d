package mediawiki

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"publish-service/app/domain"
	"publish-service/app/utils/metrics"
)

func testClient(t *testing.T) *Client {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	m := metrics.New(prometheus.NewRegistry())
	return NewClient("consumer-key", "consumer-secret", "publish-service test", logger, m)
}

func testCreds() domain.Credentials {
	return domain.Credentials{AccessKey: "access-key", AccessSecret: "access-secret"}
}

func writeJSON(t *testing.T, w http.ResponseWriter, body map[string]any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(body))
}

func TestGetSignsAndDecodes(t *testing.T) {
	var gotAuth, gotAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAgent = r.Header.Get("User-Agent")
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		writeJSON(t, w, map[string]any{"query": map[string]any{"pages": []any{}}})
	}))
	defer server.Close()

	client := testClient(t)
	data, err := client.Get(context.Background(), server.URL, testCreds(),
		map[string]string{"action": "query"})
	require.NoError(t, err)

	assert.Contains(t, gotAuth, "OAuth")
	assert.Contains(t, gotAuth, `oauth_consumer_key="consumer-key"`)
	assert.Contains(t, gotAuth, `oauth_token="access-key"`)
	assert.Equal(t, "publish-service test", gotAgent)
	assert.Contains(t, data, "query")
}

func TestCSRFToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{
			"query": map[string]any{
				"tokens": map[string]any{"csrftoken": "abc123+\\"},
			},
		})
	}))
	defer server.Close()

	client := testClient(t)
	token, data, err := client.CSRFToken(context.Background(), server.URL, testCreds())
	require.NoError(t, err)
	assert.Equal(t, "abc123+\\", token)
	assert.Contains(t, data, "query")
}

func TestCSRFTokenMissing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"error": map[string]any{"code": "mwoauth-invalid-authorization"}})
	}))
	defer server.Close()

	client := testClient(t)
	_, data, err := client.CSRFToken(context.Background(), server.URL, testCreds())
	require.Error(t, err)
	assert.Contains(t, data, "error")
}

func TestPostAttachesToken(t *testing.T) {
	var postedToken, postedAction string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			writeJSON(t, w, map[string]any{
				"query": map[string]any{"tokens": map[string]any{"csrftoken": "tok"}},
			})
			return
		}
		require.NoError(t, r.ParseForm())
		postedToken = r.PostForm.Get("token")
		postedAction = r.PostForm.Get("action")
		writeJSON(t, w, map[string]any{"edit": map[string]any{"result": "Success"}})
	}))
	defer server.Close()

	client := testClient(t)
	data, err := client.Edit(context.Background(), server.URL, testCreds(),
		map[string]string{"title": "Aspirin", "text": "..."})
	require.NoError(t, err)

	assert.Equal(t, "tok", postedToken)
	assert.Equal(t, "edit", postedAction)
	edit, _ := data["edit"].(map[string]any)
	assert.Equal(t, "Success", edit["result"])
}

func TestPostTokenFetchFailureYieldsMarkerPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			writeJSON(t, w, map[string]any{"error": map[string]any{"code": "readapidenied"}})
			return
		}
		t.Fatal("no POST expected when token fetch fails")
	}))
	defer server.Close()

	client := testClient(t)
	data, err := client.Post(context.Background(), server.URL, testCreds(),
		map[string]string{"action": "edit"})
	require.NoError(t, err)

	assert.Equal(t, domain.ErrCSRFTokenFailed, data["error"])
	assert.Contains(t, data, "csrftoken_data")
}

func TestCXToken(t *testing.T) {
	var postedAction string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			writeJSON(t, w, map[string]any{
				"query": map[string]any{"tokens": map[string]any{"csrftoken": "tok"}},
			})
			return
		}
		require.NoError(t, r.ParseForm())
		postedAction = r.PostForm.Get("action")
		writeJSON(t, w, map[string]any{"jwt": "header.payload.signature"})
	}))
	defer server.Close()

	client := testClient(t)
	data, err := client.CXToken(context.Background(), server.URL, testCreds())
	require.NoError(t, err)
	assert.Equal(t, "cxtoken", postedAction)
	assert.Contains(t, data, "jwt")
}

func TestGetMalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		if _, err := w.Write([]byte("<html>bad gateway</html>")); err != nil {
			t.Error(err)
		}
	}))
	defer server.Close()

	client := testClient(t)
	_, err := client.Get(context.Background(), server.URL, testCreds(), map[string]string{"action": "query"})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "decode api response"))
}
