package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/kasane/internal/auth"
	"github.com/ashita-ai/kasane/internal/ctxutil"
	"github.com/ashita-ai/kasane/internal/model"
	"github.com/ashita-ai/kasane/internal/ratelimit"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestGenerationRateLimitPerCaller(t *testing.T) {
	// Burst 2 allows the first two rapid requests, then rejects until refill.
	limiter := ratelimit.NewMemoryLimiter(0.2, 2)
	defer func() { _ = limiter.Close() }()

	handler := ratelimit.Middleware(limiter, generationKeyFunc, nil, testLogger())(okHandler())

	send := func(c ctxutil.Caller) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/outputs/notes", nil)
		handler.ServeHTTP(rec, req.WithContext(ctxutil.WithCaller(req.Context(), c)))
		return rec
	}

	alice := ctxutil.Caller{ID: "alice", Tier: model.TierStandard, Authenticated: true}
	for i := range 2 {
		assert.Equal(t, http.StatusOK, send(alice).Code, "request %d within burst", i+1)
	}
	rec := send(alice)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// Separate bucket per caller.
	bob := ctxutil.Caller{ID: "bob", Tier: model.TierFree, Authenticated: true}
	assert.Equal(t, http.StatusOK, send(bob).Code)
}

func TestGenerationRateLimitSkipsUnlimitedTier(t *testing.T) {
	limiter := ratelimit.NewMemoryLimiter(0.2, 1)
	defer func() { _ = limiter.Close() }()

	handler := ratelimit.Middleware(limiter, generationKeyFunc, nil, testLogger())(okHandler())
	pro := ctxutil.Caller{ID: "pro", Tier: model.TierPro, Authenticated: true}

	for i := range 5 {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/outputs/podcast", nil)
		handler.ServeHTTP(rec, req.WithContext(ctxutil.WithCaller(req.Context(), pro)))
		assert.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)
	}
}

func TestGenerationKeyFunc(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/v1/outputs/notes", nil)
	assert.Empty(t, generationKeyFunc(req), "no caller resolved")

	req = req.WithContext(ctxutil.WithCaller(req.Context(), ctxutil.Anonymous(model.TierFree)))
	assert.Equal(t, "caller:anonymous", generationKeyFunc(req))
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	handler := requestIDMiddleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = ctxutil.RequestIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "given-id")
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "given-id", seen)
}

func TestAuthMiddlewareDisabledUsesDefaultTier(t *testing.T) {
	var got ctxutil.Caller
	handler := authMiddleware(nil, false, model.TierStandard, http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got, _ = ctxutil.CallerFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/readiness", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ctxutil.Anonymous(model.TierStandard), got)
}

func TestAuthMiddlewareEnabled(t *testing.T) {
	mgr, err := auth.NewJWTManager("", "", time.Hour)
	require.NoError(t, err)
	token, _, err := mgr.IssueToken(model.TierPro)
	require.NoError(t, err)

	var got ctxutil.Caller
	handler := authMiddleware(mgr, true, model.TierFree, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = ctxutil.CallerFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	cases := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"health is open", "/health", "", http.StatusOK},
		{"token endpoint is open", "/auth/token", "", http.StatusOK},
		{"missing header", "/v1/readiness", "", http.StatusUnauthorized},
		{"wrong scheme", "/v1/readiness", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "/v1/readiness", "Bearer nope", http.StatusUnauthorized},
		{"valid token", "/v1/readiness", "Bearer " + token, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}

	assert.Equal(t, model.TierPro, got.Tier)
	assert.True(t, got.Authenticated)
}

func TestRecoveryMiddleware(t *testing.T) {
	handler := recoveryMiddleware(testLogger(), http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var body model.APIError
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, model.ErrCodeInternalError, body.Error.Code)
}

func TestLoggingSeesCallerFromAuth(t *testing.T) {
	var sw *statusWriter
	inner := authMiddleware(nil, false, model.TierFree, okHandler())
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw = &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}
		inner.ServeHTTP(sw, r)
	})

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotNil(t, sw.caller)
	assert.Equal(t, "anonymous", sw.caller.ID)
}
