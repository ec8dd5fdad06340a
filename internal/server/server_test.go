package server_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/kasane/internal/auth"
	kasanemcp "github.com/ashita-ai/kasane/internal/mcp"
	"github.com/ashita-ai/kasane/internal/model"
	"github.com/ashita-ai/kasane/internal/ratelimit"
	"github.com/ashita-ai/kasane/internal/server"
	"github.com/ashita-ai/kasane/internal/studio"
	"github.com/ashita-ai/kasane/internal/testutil"
)

type testEnv struct {
	srv    *httptest.Server
	studio *studio.Service
	jwt    *auth.JWTManager
}

type envOption func(*server.ServerConfig, *studio.Config)

func withAuth(adminKey string) envOption {
	return func(sc *server.ServerConfig, _ *studio.Config) {
		sc.AuthEnabled = true
		key, err := auth.NewAdminKey(adminKey)
		if err != nil {
			panic(err)
		}
		sc.AdminKey = key
	}
}

func withDevMode() envOption {
	return func(_ *server.ServerConfig, c *studio.Config) { c.DevMode = true }
}

func withLimiter(l ratelimit.Limiter) envOption {
	return func(sc *server.ServerConfig, _ *studio.Config) { sc.Limiter = l }
}

func withEnvironment(env studio.Environment) envOption {
	return func(_ *server.ServerConfig, c *studio.Config) { c.Environment = env }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	jwtMgr, err := auth.NewJWTManager("", "", time.Hour)
	require.NoError(t, err)

	sc := server.ServerConfig{
		Logger:              testutil.TestLogger(),
		DefaultTier:         model.TierFree,
		JWTMgr:              jwtMgr,
		Broker:              server.NewBroker(testutil.TestLogger()),
		Version:             "test",
		MaxRequestBodyBytes: 1 << 20,
	}
	stc := studio.Config{DefaultTier: model.TierFree}
	for _, o := range opts {
		o(&sc, &stc)
	}
	svc := testutil.NewStudio(t, stc)
	sc.Studio = svc
	sc.MCPServer = kasanemcp.New(svc, testutil.TestLogger(), "test").MCPServer()

	srv := httptest.NewServer(server.New(sc).Handler())
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, studio: svc, jwt: jwtMgr}
}

type envelope struct {
	Data  json.RawMessage   `json:"data"`
	Error model.ErrorDetail `json:"error"`
	Meta  model.ResponseMeta
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) (*http.Response, envelope) {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, rdr)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var env envelope
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &env), "body: %s", raw)
	}
	return resp, env
}

func (e *testEnv) ingestPaste(t *testing.T, token string) {
	t.Helper()
	resp, _ := e.do(t, http.MethodPost, "/v1/ingest", token, model.IngestRequest{
		SourceType: "paste",
		InputValue: testutil.LongSource,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t)
	resp, env := e.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	var h model.HealthResponse
	require.NoError(t, json.Unmarshal(env.Data, &h))
	assert.Equal(t, "healthy", h.Status)
	assert.Equal(t, "test", h.Version)
	assert.Equal(t, "memory", h.Vault)
	assert.Equal(t, model.ReadinessIncomplete, h.Readiness)
	assert.Equal(t, resp.Header.Get("X-Request-ID"), env.Meta.RequestID)
}

func TestHealthDegradedWhenBlocked(t *testing.T) {
	e := newTestEnv(t, withEnvironment(studio.Environment{MissingVars: []string{"KASANE_TEXT_URL"}}))
	_, env := e.do(t, http.MethodGet, "/health", "", nil)
	var h model.HealthResponse
	require.NoError(t, json.Unmarshal(env.Data, &h))
	assert.Equal(t, "degraded", h.Status)
	assert.Equal(t, model.ReadinessBlocked, h.Readiness)

	resp, env := e.do(t, http.MethodPost, "/v1/ingest", "", model.IngestRequest{SourceType: "paste", InputValue: "x"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, model.ErrCodeNotReady, env.Error.Code)
}

func TestIngestAndReadiness(t *testing.T) {
	e := newTestEnv(t)

	resp, env := e.do(t, http.MethodPost, "/v1/ingest", "", model.IngestRequest{
		SourceType: "paste",
		InputValue: testutil.LongSource,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var b model.Baseline
	require.NoError(t, json.Unmarshal(env.Data, &b))
	assert.Equal(t, model.BaselineOK, b.Status)
	assert.NotEmpty(t, b.Summary)

	_, env = e.do(t, http.MethodGet, "/v1/readiness", "", nil)
	var snap model.ReadinessSnapshot
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	assert.Equal(t, model.ReadinessReady, snap.State)

	resp, _ = e.do(t, http.MethodGet, "/v1/baseline", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestIngestValidation(t *testing.T) {
	e := newTestEnv(t)

	cases := []struct {
		name string
		body any
		want int
	}{
		{"unknown source type", model.IngestRequest{SourceType: "fax", InputValue: "x"}, http.StatusBadRequest},
		{"empty value", model.IngestRequest{SourceType: "paste", InputValue: "   "}, http.StatusBadRequest},
		{"non-text url", model.IngestRequest{SourceType: "url", InputValue: "https://www.youtube.com/watch?v=1"}, http.StatusBadRequest},
		{"unknown field", map[string]string{"source_type": "paste", "bogus": "1"}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, env := e.do(t, http.MethodPost, "/v1/ingest", "", tc.body)
			assert.Equal(t, tc.want, resp.StatusCode)
			assert.Equal(t, model.ErrCodeInvalidInput, env.Error.Code)
		})
	}
}

func TestBaselineMissing(t *testing.T) {
	e := newTestEnv(t)
	resp, env := e.do(t, http.MethodGet, "/v1/baseline", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, model.ErrCodeNotFound, env.Error.Code)
}

func TestPreviewConfirmAndDiscard(t *testing.T) {
	e := newTestEnv(t)

	resp, _ := e.do(t, http.MethodPost, "/v1/preview/confirm", "", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, env := e.do(t, http.MethodPost, "/v1/preview", "", model.PreviewRequest{URL: "https://example.com/article"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var p model.Preview
	require.NoError(t, json.Unmarshal(env.Data, &p))
	assert.Equal(t, "https://example.com/article", p.URL)

	resp, _ = e.do(t, http.MethodGet, "/v1/preview", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = e.do(t, http.MethodPost, "/v1/preview/confirm", "", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = e.do(t, http.MethodGet, "/v1/preview", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	_, _ = e.do(t, http.MethodPost, "/v1/preview", "", model.PreviewRequest{URL: "https://example.com/other"})
	resp, _ = e.do(t, http.MethodDelete, "/v1/preview", "", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = e.do(t, http.MethodDelete, "/v1/preview", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGenerateBeforeBaseline(t *testing.T) {
	e := newTestEnv(t)
	resp, env := e.do(t, http.MethodPost, "/v1/outputs/notes", "", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, model.ErrCodeNotReady, env.Error.Code)
	assert.Equal(t, "System initializing. Please wait.", env.Error.Message)
}

func TestGenerateUnknownType(t *testing.T) {
	e := newTestEnv(t)
	resp, env := e.do(t, http.MethodPost, "/v1/outputs/haiku", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, model.ErrCodeInvalidInput, env.Error.Code)
}

func TestGenerateNotesAndExport(t *testing.T) {
	e := newTestEnv(t)
	e.ingestPaste(t, "")

	resp, env := e.do(t, http.MethodPost, "/v1/outputs/notes", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var gen model.GenerateResponse
	require.NoError(t, json.Unmarshal(env.Data, &gen))
	assert.Equal(t, model.ExecutionCompleted, gen.Status.State)
	require.NotNil(t, gen.Output)
	assert.Equal(t, model.OutputNotes, gen.Output.Type)

	_, env = e.do(t, http.MethodGet, "/v1/outputs/status", "", nil)
	var table []model.ExecutionStatus
	require.NoError(t, json.Unmarshal(env.Data, &table))
	assert.NotEmpty(t, table)

	resp, env = e.do(t, http.MethodGet, "/v1/outputs/notes", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var notes model.NotesResult
	require.NoError(t, json.Unmarshal(env.Data, &notes))
	assert.Equal(t, []string{"Solar is cheaper", "Storage is standard"}, notes.BulletNotes)

	resp, _ = e.do(t, http.MethodGet, "/v1/outputs/report", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	_, env = e.do(t, http.MethodGet, "/v1/vault", "", nil)
	var items []model.GeneratedOutput
	require.NoError(t, json.Unmarshal(env.Data, &items))
	require.Len(t, items, 1)
	assert.Equal(t, gen.Output.ID, items[0].ID)

	resp, _ = e.do(t, http.MethodGet, "/v1/vault/"+gen.Output.ID, "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	exp, err := http.Get(e.srv.URL + "/v1/vault/" + gen.Output.ID + "/export")
	require.NoError(t, err)
	defer func() { _ = exp.Body.Close() }()
	require.Equal(t, http.StatusOK, exp.StatusCode)
	assert.Equal(t, "text/markdown; charset=utf-8", exp.Header.Get("Content-Type"))
	assert.Contains(t, exp.Header.Get("Content-Disposition"), `filename="kasane_notes_`)
	body, _ := io.ReadAll(exp.Body)
	assert.True(t, strings.HasPrefix(string(body), "# "))

	resp, env = e.do(t, http.MethodGet, "/v1/vault/missing/export", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, model.ErrCodeNotFound, env.Error.Code)
}

func TestVaultLimit(t *testing.T) {
	e := newTestEnv(t)
	e.ingestPaste(t, "")
	for range 3 {
		resp, _ := e.do(t, http.MethodPost, "/v1/outputs/notes", "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	_, env := e.do(t, http.MethodGet, "/v1/vault?limit=2", "", nil)
	var items []model.GeneratedOutput
	require.NoError(t, json.Unmarshal(env.Data, &items))
	assert.Len(t, items, 2)
}

func TestGenerateDeniedByTier(t *testing.T) {
	e := newTestEnv(t)
	e.ingestPaste(t, "")

	resp, env := e.do(t, http.MethodPost, "/v1/outputs/podcast", "", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, model.ErrCodeForbidden, env.Error.Code)
	assert.Contains(t, env.Error.Message, "PRO")

	details, ok := env.Error.Details.(map[string]any)
	require.True(t, ok, "details should carry the execution status")
	assert.Equal(t, string(model.ExecutionFailed), details["state"])
}

func TestEligibilityForDefaultTier(t *testing.T) {
	e := newTestEnv(t)
	e.ingestPaste(t, "")

	_, env := e.do(t, http.MethodGet, "/v1/eligibility", "", nil)
	var list []model.OutputEligibility
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list, len(model.OutputTypes))
	for _, el := range list {
		switch el.Type {
		case model.OutputNotes, model.OutputReport:
			assert.True(t, el.Eligible, el.Type)
		default:
			assert.False(t, el.Eligible, el.Type)
			assert.NotEmpty(t, el.RequiredTier, el.Type)
		}
	}
}

func TestResetRequiresDevMode(t *testing.T) {
	e := newTestEnv(t)
	resp, env := e.do(t, http.MethodPost, "/v1/outputs/notes/reset", "", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, model.ErrCodeForbidden, env.Error.Code)

	dev := newTestEnv(t, withDevMode())
	dev.ingestPaste(t, "")
	_, _ = dev.do(t, http.MethodPost, "/v1/outputs/notes", "", nil)
	resp, env = dev.do(t, http.MethodPost, "/v1/outputs/notes/reset", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var st model.ExecutionStatus
	require.NoError(t, json.Unmarshal(env.Data, &st))
	assert.Equal(t, model.ExecutionIdle, st.State)

	resp, _ = dev.do(t, http.MethodGet, "/v1/outputs/notes", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDiagnostics(t *testing.T) {
	e := newTestEnv(t)
	e.ingestPaste(t, "")

	_, env := e.do(t, http.MethodGet, "/v1/diagnostics", "", nil)
	var diags []model.Diagnostic
	require.NoError(t, json.Unmarshal(env.Data, &diags))
	assert.NotEmpty(t, diags)

	resp, _ := e.do(t, http.MethodDelete, "/v1/diagnostics", "", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	_, env = e.do(t, http.MethodGet, "/v1/diagnostics", "", nil)
	require.NoError(t, json.Unmarshal(env.Data, &diags))
	assert.Empty(t, diags)
}

func TestGenerationRateLimited(t *testing.T) {
	limiter := ratelimit.NewMemoryLimiter(0.001, 1)
	t.Cleanup(func() { _ = limiter.Close() })
	e := newTestEnv(t, withLimiter(limiter))
	e.ingestPaste(t, "")

	resp, _ := e.do(t, http.MethodPost, "/v1/outputs/notes", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, env := e.do(t, http.MethodPost, "/v1/outputs/notes", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, model.ErrCodeRateLimited, env.Error.Code)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))

	// Reads are not limited.
	resp, _ = e.do(t, http.MethodGet, "/v1/outputs/status", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuthTokenFlow(t *testing.T) {
	limiter := ratelimit.NewMemoryLimiter(0.001, 1)
	t.Cleanup(func() { _ = limiter.Close() })
	e := newTestEnv(t, withAuth("admin-secret"), withLimiter(limiter))

	resp, env := e.do(t, http.MethodGet, "/v1/readiness", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, model.ErrCodeUnauthorized, env.Error.Code)

	resp, _ = e.do(t, http.MethodPost, "/auth/token", "", model.AuthTokenRequest{APIKey: "wrong", Tier: model.TierPro})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = e.do(t, http.MethodPost, "/auth/token", "", model.AuthTokenRequest{APIKey: "admin-secret", Tier: "GOLD"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	token := func(tier model.Tier) string {
		resp, env := e.do(t, http.MethodPost, "/auth/token", "", model.AuthTokenRequest{APIKey: "admin-secret", Tier: tier})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var tok model.AuthTokenResponse
		require.NoError(t, json.Unmarshal(env.Data, &tok))
		assert.Equal(t, tier, tok.Tier)
		return tok.Token
	}
	free, pro := token(model.TierFree), token(model.TierPro)

	e.ingestPaste(t, free)

	resp, _ = e.do(t, http.MethodPost, "/v1/outputs/podcast", free, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// PRO bypasses the generation limit.
	resp, env = e.do(t, http.MethodPost, "/v1/outputs/report", pro, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, "error: %+v", env.Error)
	for range 2 {
		resp, env = e.do(t, http.MethodPost, "/v1/outputs/podcast", pro, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode, "error: %+v", env.Error)
	}
}

func TestAuthTokenNotConfigured(t *testing.T) {
	e := newTestEnv(t)
	resp, env := e.do(t, http.MethodPost, "/auth/token", "", model.AuthTokenRequest{APIKey: "k", Tier: model.TierPro})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, model.ErrCodeNotFound, env.Error.Code)
}

func TestRequestBodyTooLarge(t *testing.T) {
	e := newTestEnv(t)
	huge := strings.Repeat("a", 2<<20)
	resp, env := e.do(t, http.MethodPost, "/v1/ingest", "", model.IngestRequest{SourceType: "paste", InputValue: huge})
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	assert.Equal(t, model.ErrCodeInvalidInput, env.Error.Code)
}
