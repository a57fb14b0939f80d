package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"publish-service/app/domain"
)

func TestCXToken(t *testing.T) {
	f := newPipeline(t)
	f.wiki.editResponse = map[string]any{"jwt": "header.payload.sig"}

	result, err := f.usecase.CXToken(context.Background(), "ar", "TestUser")
	require.NoError(t, err)

	assert.Equal(t, "https://ar.wikipedia.org/w/api.php", f.wiki.lastURL)
	assert.Contains(t, result.Response, "jwt")
	assert.False(t, result.AccessDeleted)
}

func TestCXTokenFullHostWiki(t *testing.T) {
	f := newPipeline(t)
	f.wiki.editResponse = map[string]any{"jwt": "x"}

	_, err := f.usecase.CXToken(context.Background(), "www.wikidata.org", "TestUser")
	require.NoError(t, err)
	assert.Equal(t, "https://www.wikidata.org/w/api.php", f.wiki.lastURL)
}

func TestCXTokenNoAccess(t *testing.T) {
	f := newPipeline(t)

	result, err := f.usecase.CXToken(context.Background(), "ar", "UnknownUser")
	require.NoError(t, err)

	errBody, _ := result.Response["error"].(map[string]any)
	require.NotNil(t, errBody)
	assert.Equal(t, "no access", errBody["code"])
}

func TestCXTokenNormalizesUsername(t *testing.T) {
	f := newPipeline(t)
	f.creds.creds["Test User"] = domain.Credentials{AccessKey: "k", AccessSecret: "s"}
	f.wiki.editResponse = map[string]any{"jwt": "x"}

	result, err := f.usecase.CXToken(context.Background(), "ar", "Test_User")
	require.NoError(t, err)
	assert.Contains(t, result.Response, "jwt")
}

func TestCXTokenRevokedAuthorizationDeletesCredential(t *testing.T) {
	f := newPipeline(t)
	f.wiki.editResponse = map[string]any{
		"error": map[string]any{"code": domain.ErrInvalidAuthorization},
	}

	result, err := f.usecase.CXToken(context.Background(), "ar", "TestUser")
	require.NoError(t, err)

	assert.True(t, result.AccessDeleted)
	assert.Equal(t, []string{"TestUser"}, f.creds.deleted)
}

func TestCXTokenTransportError(t *testing.T) {
	f := newPipeline(t)
	f.wiki.editErr = context.DeadlineExceeded

	result, err := f.usecase.CXToken(context.Background(), "ar", "TestUser")
	require.NoError(t, err)

	errBody, _ := result.Response["error"].(map[string]any)
	require.NotNil(t, errBody)
	assert.Equal(t, "cxtoken_failed", errBody["code"])
}
