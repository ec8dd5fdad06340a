package mcp

import (
	"context"
	"encoding/json"
	"testing"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/kasane/internal/ctxutil"
	"github.com/ashita-ai/kasane/internal/model"
	"github.com/ashita-ai/kasane/internal/studio"
	"github.com/ashita-ai/kasane/internal/testutil"
)

func newTestServer(t *testing.T, cfg studio.Config) *Server {
	t.Helper()
	svc := testutil.NewStudio(t, cfg)
	return New(svc, testutil.TestLogger(), "test")
}

func callTool(t *testing.T, ctx context.Context, fn func(context.Context, mcplib.CallToolRequest) (*mcplib.CallToolResult, error), name string, args map[string]any) *mcplib.CallToolResult {
	t.Helper()
	result, err := fn(ctx, mcplib.CallToolRequest{
		Params: mcplib.CallToolParams{Name: name, Arguments: args},
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

// parseToolText extracts the text of the content item at index i.
func parseToolText(t *testing.T, result *mcplib.CallToolResult, i int) string {
	t.Helper()
	require.Greater(t, len(result.Content), i)
	tc, ok := result.Content[i].(mcplib.TextContent)
	require.True(t, ok, "expected TextContent")
	return tc.Text
}

func ingest(t *testing.T, s *Server) {
	t.Helper()
	result := callTool(t, context.Background(), s.handleIngest, "kasane_ingest", map[string]any{
		"source_type": "Paste",
		"value":       testutil.LongSource,
	})
	require.False(t, result.IsError, parseToolText(t, result, 0))
}

func withCaller(id string, tier model.Tier) context.Context {
	return ctxutil.WithCaller(context.Background(), ctxutil.Caller{ID: id, Tier: tier, Authenticated: true})
}

func TestNew_RegistersCapabilities(t *testing.T) {
	s := newTestServer(t, studio.Config{})
	require.NotNil(t, s.MCPServer())
	assert.NotNil(t, s.tracker)
}

func TestHandleIngest(t *testing.T) {
	s := newTestServer(t, studio.Config{})

	result := callTool(t, context.Background(), s.handleIngest, "kasane_ingest", map[string]any{
		"source_type": "paste",
		"value":       testutil.LongSource,
		"purpose":     "briefing",
	})
	require.False(t, result.IsError)

	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(parseToolText(t, result, 0)), &body))
	assert.Equal(t, string(model.ReadinessReady), body["readiness"])
	assert.EqualValues(t, len([]rune(testutil.LongSource)), body["length"])
}

func TestHandleIngest_Validation(t *testing.T) {
	s := newTestServer(t, studio.Config{})

	cases := []struct {
		name string
		args map[string]any
		want string
	}{
		{"missing type", map[string]any{"value": "x"}, "source_type is required"},
		{"unknown type", map[string]any{"source_type": "fax", "value": "x"}, "unknown source_type"},
		{"blank value", map[string]any{"source_type": "Paste", "value": "   "}, "value is required"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := callTool(t, context.Background(), s.handleIngest, "kasane_ingest", tc.args)
			assert.True(t, result.IsError)
			assert.Contains(t, parseToolText(t, result, 0), tc.want)
		})
	}
}

func TestHandleReadiness(t *testing.T) {
	s := newTestServer(t, studio.Config{})

	result := callTool(t, context.Background(), s.handleReadiness, "kasane_readiness", nil)
	var snap model.ReadinessSnapshot
	require.NoError(t, json.Unmarshal([]byte(parseToolText(t, result, 0)), &snap))
	assert.Equal(t, model.ReadinessIncomplete, snap.State)

	ingest(t, s)
	result = callTool(t, context.Background(), s.handleReadiness, "kasane_readiness", nil)
	require.NoError(t, json.Unmarshal([]byte(parseToolText(t, result, 0)), &snap))
	assert.Equal(t, model.ReadinessReady, snap.State)
}

func TestHandleEligibility_UsesCallerTier(t *testing.T) {
	s := newTestServer(t, studio.Config{})
	ingest(t, s)

	result := callTool(t, withCaller("pro-agent", model.TierPro), s.handleEligibility, "kasane_eligibility", nil)
	var body struct {
		Tier        model.Tier                `json:"tier"`
		Eligibility []model.OutputEligibility `json:"eligibility"`
	}
	require.NoError(t, json.Unmarshal([]byte(parseToolText(t, result, 0)), &body))
	assert.Equal(t, model.TierPro, body.Tier)
	require.Len(t, body.Eligibility, len(model.OutputTypes))
	for _, e := range body.Eligibility {
		assert.True(t, e.Eligible, "%s should be eligible for PRO", e.Type)
	}

	assert.True(t, s.tracker.WasChecked("pro-agent", model.OutputPodcast))
	assert.False(t, s.tracker.WasChecked("someone-else", model.OutputPodcast))
}

func TestHandleGenerate_NotesWithNudge(t *testing.T) {
	s := newTestServer(t, studio.Config{})
	ingest(t, s)

	result := callTool(t, context.Background(), s.handleGenerate, "kasane_generate", map[string]any{"output_type": "notes"})
	require.False(t, result.IsError, parseToolText(t, result, 0))

	var resp model.GenerateResponse
	require.NoError(t, json.Unmarshal([]byte(parseToolText(t, result, 0)), &resp))
	assert.Equal(t, model.ExecutionCompleted, resp.Status.State)
	require.NotNil(t, resp.Output)
	assert.Equal(t, model.OutputNotes, resp.Output.Type)

	require.Len(t, result.Content, 2, "unchecked generation carries a nudge")
	assert.Contains(t, parseToolText(t, result, 1), "kasane_eligibility")
}

func TestHandleGenerate_NoNudgeAfterCheck(t *testing.T) {
	s := newTestServer(t, studio.Config{})
	ingest(t, s)
	ctx := withCaller("agent-1", model.TierFree)

	callTool(t, ctx, s.handleEligibility, "kasane_eligibility", nil)
	result := callTool(t, ctx, s.handleGenerate, "kasane_generate", map[string]any{"output_type": "report"})
	require.False(t, result.IsError, parseToolText(t, result, 0))
	assert.Len(t, result.Content, 1)
}

func TestHandleGenerate_TierDenied(t *testing.T) {
	s := newTestServer(t, studio.Config{})
	ingest(t, s)

	result := callTool(t, withCaller("free", model.TierFree), s.handleGenerate, "kasane_generate", map[string]any{"output_type": "podcast"})
	assert.True(t, result.IsError)
	text := parseToolText(t, result, 0)
	assert.Contains(t, text, "Podcast is not available")
	assert.Contains(t, text, "PRO")
}

func TestHandleGenerate_Errors(t *testing.T) {
	s := newTestServer(t, studio.Config{})

	result := callTool(t, context.Background(), s.handleGenerate, "kasane_generate", map[string]any{})
	assert.True(t, result.IsError)
	assert.Contains(t, parseToolText(t, result, 0), "output_type is required")

	result = callTool(t, context.Background(), s.handleGenerate, "kasane_generate", map[string]any{"output_type": "poem"})
	assert.True(t, result.IsError)
	assert.Contains(t, parseToolText(t, result, 0), "unknown output type")

	// No baseline yet.
	result = callTool(t, context.Background(), s.handleGenerate, "kasane_generate", map[string]any{"output_type": "notes"})
	assert.True(t, result.IsError)
}

func TestHandleStatus(t *testing.T) {
	s := newTestServer(t, studio.Config{})

	result := callTool(t, context.Background(), s.handleStatus, "kasane_status", nil)
	var statuses []model.ExecutionStatus
	require.NoError(t, json.Unmarshal([]byte(parseToolText(t, result, 0)), &statuses))
	assert.Len(t, statuses, len(model.OutputTypes))
	for _, st := range statuses {
		assert.Equal(t, model.ExecutionIdle, st.State)
	}
}

func TestHandleReset_RequiresDevMode(t *testing.T) {
	s := newTestServer(t, studio.Config{})
	result := callTool(t, context.Background(), s.handleReset, "kasane_reset", map[string]any{"output_type": "notes"})
	assert.True(t, result.IsError)

	dev := newTestServer(t, studio.Config{DevMode: true})
	result = callTool(t, context.Background(), dev.handleReset, "kasane_reset", map[string]any{"output_type": "notes"})
	require.False(t, result.IsError, parseToolText(t, result, 0))
	var st model.ExecutionStatus
	require.NoError(t, json.Unmarshal([]byte(parseToolText(t, result, 0)), &st))
	assert.Equal(t, model.ExecutionIdle, st.State)
}

func TestHandleVault_FilterAndLimit(t *testing.T) {
	s := newTestServer(t, studio.Config{})
	ingest(t, s)
	for _, ot := range []string{"notes", "report", "notes"} {
		result := callTool(t, context.Background(), s.handleGenerate, "kasane_generate", map[string]any{"output_type": ot})
		require.False(t, result.IsError, parseToolText(t, result, 0))
	}

	var body struct {
		Backend string       `json:"backend"`
		Outputs []vaultEntry `json:"outputs"`
		Total   int          `json:"total"`
	}
	result := callTool(t, context.Background(), s.handleVault, "kasane_vault", map[string]any{"output_type": "notes"})
	require.NoError(t, json.Unmarshal([]byte(parseToolText(t, result, 0)), &body))
	assert.Equal(t, "memory", body.Backend)
	assert.Equal(t, 2, body.Total)
	for _, o := range body.Outputs {
		assert.Equal(t, model.OutputNotes, o.Type)
	}

	result = callTool(t, context.Background(), s.handleVault, "kasane_vault", map[string]any{"limit": float64(1)})
	require.NoError(t, json.Unmarshal([]byte(parseToolText(t, result, 0)), &body))
	require.Len(t, body.Outputs, 1)
	assert.Equal(t, model.OutputNotes, body.Outputs[0].Type, "limit keeps the newest")
}

func TestHandleDiagnostics_Limit(t *testing.T) {
	s := newTestServer(t, studio.Config{})
	ingest(t, s)

	result := callTool(t, context.Background(), s.handleDiagnostics, "kasane_diagnostics", map[string]any{"limit": float64(2)})
	var entries []model.Diagnostic
	require.NoError(t, json.Unmarshal([]byte(parseToolText(t, result, 0)), &entries))
	assert.Len(t, entries, 2)
}

func TestNewVaultEntry_TruncatesContent(t *testing.T) {
	long := make([]rune, vaultPreviewRunes+50)
	for i := range long {
		long[i] = 'a'
	}
	e := newVaultEntry(model.GeneratedOutput{ID: "n-1", Type: model.OutputNotes, Content: string(long)})
	assert.Len(t, []rune(e.Preview), vaultPreviewRunes+3)

	e = newVaultEntry(model.GeneratedOutput{ID: "n-2", Type: model.OutputNotes, Content: "short"})
	assert.Equal(t, "short", e.Preview)
}
