package revids

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSnapshot(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "revids.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

func TestResolveFromSnapshot(t *testing.T) {
	path := writeSnapshot(t, `{"Aspirin": 12345, "Ibuprofen": "67890"}`)

	resolver, err := NewResolver(path, "", "test-agent", testLogger())
	require.NoError(t, err)

	revid, empty := resolver.Resolve(context.Background(), "Aspirin", "")
	assert.Equal(t, "12345", revid)
	assert.False(t, empty)

	revid, empty = resolver.Resolve(context.Background(), "Ibuprofen", "")
	assert.Equal(t, "67890", revid)
	assert.False(t, empty)
}

func TestResolveFromRemote(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "revids", r.URL.Query().Get("get"))
		assert.Equal(t, "Aspirin", r.URL.Query().Get("title"))
		require.NoError(t, json.NewEncoder(w).Encode(map[string]any{
			"revids": map[string]any{"Aspirin": 12345},
		}))
	}))
	defer server.Close()

	resolver, err := NewResolver("", server.URL, "test-agent", testLogger())
	require.NoError(t, err)

	revid, empty := resolver.Resolve(context.Background(), "Aspirin", "")
	assert.Equal(t, "12345", revid)
	assert.False(t, empty)

	// Remote hits are cached: a second lookup stays local.
	revid, _ = resolver.Resolve(context.Background(), "Aspirin", "")
	assert.Equal(t, "12345", revid)
	assert.Equal(t, 1, calls)
}

func TestResolveFallsBackToRequestRevid(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewEncoder(w).Encode(map[string]any{"revids": map[string]any{}}))
	}))
	defer server.Close()

	resolver, err := NewResolver("", server.URL, "test-agent", testLogger())
	require.NoError(t, err)

	revid, empty := resolver.Resolve(context.Background(), "Unknown", "777")
	assert.Equal(t, "777", revid)
	assert.False(t, empty)
}

func TestResolveMiss(t *testing.T) {
	resolver, err := NewResolver("", "", "test-agent", testLogger())
	require.NoError(t, err)

	revid, empty := resolver.Resolve(context.Background(), "Unknown", "")
	assert.Empty(t, revid)
	assert.True(t, empty)

	// A zero request revid is still a miss.
	_, empty = resolver.Resolve(context.Background(), "Unknown", "0")
	assert.True(t, empty)
}

func TestNewResolverMissingSnapshot(t *testing.T) {
	resolver, err := NewResolver(filepath.Join(t.TempDir(), "nope.json"), "", "a", testLogger())
	require.NoError(t, err)

	_, empty := resolver.Resolve(context.Background(), "Aspirin", "")
	assert.True(t, empty)
}

func TestNewResolverBadSnapshot(t *testing.T) {
	path := writeSnapshot(t, `[1,2,3]`)

	_, err := NewResolver(path, "", "a", testLogger())
	assert.Error(t, err)
}
