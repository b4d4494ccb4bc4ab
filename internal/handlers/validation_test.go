package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridline/design-review-service/internal/auth"
	"github.com/gridline/design-review-service/internal/prompt"
	"github.com/gridline/design-review-service/internal/reasoning"
	"github.com/gridline/design-review-service/internal/repository"
	"github.com/gridline/design-review-service/internal/review"
)

func TestWriteErrorStatusMapping(t *testing.T) {
	h := &ValidationHandler{}

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"no input", prompt.ErrNoInput, http.StatusBadRequest},
		{"schema violation", &review.SchemaError{Reason: "missing key"}, http.StatusBadGateway},
		{"upstream failure", &reasoning.UpstreamError{Cause: context.DeadlineExceeded}, http.StatusBadGateway},
		{"record not found", repository.ErrNotFound, http.StatusNotFound},
		{"not owner", repository.ErrNotOwner, http.StatusForbidden},
		{"unclassified", context.Canceled, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.writeError(rec, tt.err)
			assert.Equal(t, tt.want, rec.Code)
			assert.Contains(t, rec.Body.String(), "error")
		})
	}
}

func TestWithAuthRejectsMissingToken(t *testing.T) {
	verifier := auth.NewStaticVerifier("tok-a:alice")
	handler := WithAuth(verifier, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run for unauthenticated requests")
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/design/history", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWithAuthRejectsUnknownToken(t *testing.T) {
	verifier := auth.NewStaticVerifier("tok-a:alice")
	handler := WithAuth(verifier, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run for unknown tokens")
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/design/history", nil)
	req.Header.Set("Authorization", "Bearer tok-wrong")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWithAuthInjectsPrincipal(t *testing.T) {
	verifier := auth.NewStaticVerifier("tok-a:alice")

	var seen string
	handler := WithAuth(verifier, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = PrincipalFrom(r.Context())
	}))

	req := httptest.NewRequest(http.MethodPost, "/v1/design/validate", strings.NewReader("{}"))
	req.Header.Set("Authorization", "Bearer tok-a")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", seen)
}

func TestWithAuthCaseInsensitiveScheme(t *testing.T) {
	verifier := auth.NewStaticVerifier("tok-a:alice")

	called := false
	handler := WithAuth(verifier, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/logs", nil)
	req.Header.Set("Authorization", "bearer tok-a")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.True(t, called)
}

func TestPrincipalFromEmptyContext(t *testing.T) {
	assert.Empty(t, PrincipalFrom(context.Background()))
}
