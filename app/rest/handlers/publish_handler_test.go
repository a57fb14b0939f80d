package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"publish-service/app/domain"
	"publish-service/app/utils/validator"
)

type stubPublishUsecase struct {
	op          *domain.PublishOperation
	cxResult    *domain.CXTokenResult
	lastRequest *domain.PublishRequest
	lastWiki    string
	lastUser    string
}

func (s *stubPublishUsecase) Publish(ctx context.Context, req *domain.PublishRequest) (*domain.PublishOperation, error) {
	s.lastRequest = req
	return s.op, nil
}

func (s *stubPublishUsecase) CXToken(ctx context.Context, wiki, username string) (*domain.CXTokenResult, error) {
	s.lastWiki = wiki
	s.lastUser = username
	return s.cxResult, nil
}

func newPublishHandler(stub *stubPublishUsecase) *PublishHandler {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	return NewPublishHandler(stub, validator.New(), logger)
}

func postPublish(t *testing.T, handler *PublishHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	require.NoError(t, handler.Publish(e.NewContext(req, rec)))
	return rec
}

func TestPublishHandlerSuccess(t *testing.T) {
	stub := &stubPublishUsecase{op: &domain.PublishOperation{
		Result: domain.ResultSuccess,
		ResultToCX: map[string]any{
			"edit": map[string]any{"result": "Success"},
		},
	}}
	handler := newPublishHandler(stub)

	rec := postPublish(t, handler,
		`{"user":"TestUser","title":"Test Page","target":"ar","sourcetitle":"Source Page","text":"content"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body, "edit")
	assert.Equal(t, "TestUser", stub.lastRequest.User)
}

func TestPublishHandlerNoAccess(t *testing.T) {
	stub := &stubPublishUsecase{op: &domain.PublishOperation{
		Result: domain.ResultNoAccess,
		ResultToCX: map[string]any{
			"error":    map[string]any{"code": "noaccess", "info": "noaccess"},
			"username": "TestUser",
		},
	}}
	handler := newPublishHandler(stub)

	rec := postPublish(t, handler,
		`{"user":"TestUser","title":"Test Page","target":"ar","sourcetitle":"Source Page"}`)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "noaccess")
}

func TestPublishHandlerValidation(t *testing.T) {
	handler := newPublishHandler(&stubPublishUsecase{})

	tests := []struct {
		name string
		body string
	}{
		{name: "missing user", body: `{"title":"T","target":"ar","sourcetitle":"S"}`},
		{name: "missing target", body: `{"user":"U","title":"T","sourcetitle":"S"}`},
		{name: "bad langcode", body: `{"user":"U","title":"T","target":"AR!","sourcetitle":"S"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postPublish(t, handler, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), "errors")
		})
	}
}

func TestPublishHandlerMalformedBody(t *testing.T) {
	handler := newPublishHandler(&stubPublishUsecase{})

	rec := postPublish(t, handler, `{"user": `)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func getCXToken(t *testing.T, handler *PublishHandler, query string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?"+query, nil)
	rec := httptest.NewRecorder()
	require.NoError(t, handler.CXToken(e.NewContext(req, rec)))
	return rec
}

func TestCXTokenHandler(t *testing.T) {
	stub := &stubPublishUsecase{cxResult: &domain.CXTokenResult{
		Response: map[string]any{"jwt": "header.payload.sig"},
	}}
	handler := newPublishHandler(stub)

	rec := getCXToken(t, handler, "wiki=ar&user=TestUser")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "jwt")
	assert.Equal(t, "ar", stub.lastWiki)
	assert.Equal(t, "TestUser", stub.lastUser)
}

func TestCXTokenHandlerMissingParams(t *testing.T) {
	handler := newPublishHandler(&stubPublishUsecase{})

	rec := getCXToken(t, handler, "wiki=ar")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "no data")
}

func TestCXTokenHandlerNoAccess(t *testing.T) {
	stub := &stubPublishUsecase{cxResult: &domain.CXTokenResult{
		Response: map[string]any{
			"error": map[string]any{"code": "no access", "info": "no access"},
		},
	}}
	handler := newPublishHandler(stub)

	rec := getCXToken(t, handler, "wiki=ar&user=TestUser")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCXTokenHandlerAccessDeleted(t *testing.T) {
	stub := &stubPublishUsecase{cxResult: &domain.CXTokenResult{
		Response: map[string]any{
			"error": map[string]any{"code": domain.ErrInvalidAuthorization},
		},
		AccessDeleted: true,
	}}
	handler := newPublishHandler(stub)

	rec := getCXToken(t, handler, "wiki=ar&user=TestUser")

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["del_access"])
}
