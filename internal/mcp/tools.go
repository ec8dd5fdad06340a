package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/ashita-ai/kasane/internal/genfail"
	"github.com/ashita-ai/kasane/internal/model"
	"github.com/ashita-ai/kasane/internal/studio"
)

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcplib.NewTool("kasane_ingest",
			mcplib.WithDescription(`Submit a source and make it the active baseline.

WHEN TO USE: before any generation. Every output is built from the baseline,
and submitting a new source replaces the previous one.

source_type is one of paste, youtube, manual or url. For URL sources prefer
the HTTP preview flow when you want to inspect the extracted text first.`),
			mcplib.WithDestructiveHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(true),
			mcplib.WithString("source_type",
				mcplib.Description("Source kind: paste, youtube, manual or url"),
				mcplib.Required(),
			),
			mcplib.WithString("value",
				mcplib.Description("The pasted text, manual notes, YouTube link or URL"),
				mcplib.Required(),
			),
			mcplib.WithString("purpose",
				mcplib.Description("Optional note on what the outputs are for"),
			),
		),
		s.handleIngest,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("kasane_readiness",
			mcplib.WithDescription(`Report the studio's readiness state and the next action to take.

States: BLOCKED (configuration missing), UNINITIALIZED (no baseline),
INCOMPLETE (baseline present but vault unavailable) and READY.`),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
		),
		s.handleReadiness,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("kasane_eligibility",
			mcplib.WithDescription(`List which output types the caller can generate right now, with a reason for each.

WHEN TO USE: before kasane_generate. Eligibility combines baseline length,
readiness and the caller's tier.`),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
		),
		s.handleEligibility,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("kasane_generate",
			mcplib.WithDescription(`Generate one output from the current baseline.

output_type is one of notes, report, audio_report, infographic, slidedeck or
podcast. Audio reports, infographics, slide decks and podcasts are derived
from the report, so generate the report first. The call blocks until the
output is stored in the vault or the generation fails.`),
			mcplib.WithDestructiveHintAnnotation(false),
			mcplib.WithIdempotentHintAnnotation(false),
			mcplib.WithOpenWorldHintAnnotation(true),
			mcplib.WithString("output_type",
				mcplib.Description("Output to generate"),
				mcplib.Required(),
			),
		),
		s.handleGenerate,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("kasane_status",
			mcplib.WithDescription("Show the execution state of every output type."),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
		),
		s.handleStatus,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("kasane_reset",
			mcplib.WithDescription("Reset one output type back to IDLE. Only available in dev mode."),
			mcplib.WithDestructiveHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithString("output_type",
				mcplib.Description("Output type to reset"),
				mcplib.Required(),
			),
		),
		s.handleReset,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("kasane_vault",
			mcplib.WithDescription("List outputs stored in the evidence vault, newest last."),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithString("output_type",
				mcplib.Description("Only return outputs of this type"),
			),
			mcplib.WithNumber("limit",
				mcplib.Description("Maximum number of outputs to return"),
				mcplib.Min(1),
				mcplib.Max(100),
				mcplib.DefaultNumber(10),
			),
		),
		s.handleVault,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("kasane_diagnostics",
			mcplib.WithDescription("Return the most recent diagnostic entries recorded by the studio."),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithNumber("limit",
				mcplib.Description("Maximum number of entries to return"),
				mcplib.Min(1),
				mcplib.Max(200),
				mcplib.DefaultNumber(20),
			),
		),
		s.handleDiagnostics,
	)
}

func jsonResult(v any) *mcplib.CallToolResult {
	data, _ := json.MarshalIndent(v, "", "  ")
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: string(data)},
		},
	}
}

func (s *Server) handleIngest(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	rawType := request.GetString("source_type", "")
	if rawType == "" {
		return errorResult("source_type is required"), nil
	}
	st, ok := model.ParseSourceType(rawType)
	if !ok {
		return errorResult(fmt.Sprintf("unknown source_type %q: use paste, youtube, manual or url", rawType)), nil
	}
	value := request.GetString("value", "")
	if strings.TrimSpace(value) == "" {
		return errorResult("value is required"), nil
	}

	b, err := s.studio.Ingest(ctx, studio.IngestInput{
		SourceType: st,
		Value:      value,
		Purpose:    request.GetString("purpose", ""),
	})
	if err != nil {
		return errorResult(fmt.Sprintf("ingest failed: %s", genfail.Message(err))), nil
	}

	s.logger.Info("mcp: source ingested", "source_type", st, "length", len([]rune(b.Content)))
	return jsonResult(map[string]any{
		"status":     b.Status,
		"summary":    b.Summary,
		"key_points": b.KeyPoints,
		"length":     len([]rune(b.Content)),
		"readiness":  s.studio.Readiness().State,
	}), nil
}

func (s *Server) handleReadiness(_ context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	return jsonResult(s.studio.Readiness()), nil
}

func (s *Server) handleEligibility(ctx context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	c := s.caller(ctx)
	s.tracker.RecordAll(c.ID)
	return jsonResult(map[string]any{
		"tier":        c.Tier,
		"eligibility": s.studio.Eligibility(c.Tier),
	}), nil
}

func (s *Server) handleGenerate(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	rawType := request.GetString("output_type", "")
	if rawType == "" {
		return errorResult("output_type is required"), nil
	}
	t, err := model.ParseOutputType(rawType)
	if err != nil {
		return errorResult(err.Error()), nil
	}

	c := s.caller(ctx)
	checked := s.tracker.WasChecked(c.ID, t)

	resp, err := s.studio.Generate(ctx, t, c.Tier)
	if err != nil {
		var inel *studio.IneligibleError
		if errors.As(err, &inel) {
			return errorResult(fmt.Sprintf("%s is not available: %s", t.DisplayName(), inel.Eligibility.Reason)), nil
		}
		return errorResult(fmt.Sprintf("%s generation failed: %s", t.DisplayName(), genfail.Message(err))), nil
	}

	result := jsonResult(resp)
	if !checked {
		result.Content = append(result.Content, mcplib.TextContent{
			Type: "text",
			Text: "NOTE: call kasane_eligibility before kasane_generate to see which outputs your tier and baseline allow.",
		})
	}
	return result, nil
}

func (s *Server) handleStatus(_ context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	return jsonResult(s.studio.Status()), nil
}

func (s *Server) handleReset(_ context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	t, err := model.ParseOutputType(request.GetString("output_type", ""))
	if err != nil {
		return errorResult(err.Error()), nil
	}
	st, err := s.studio.DevReset(t)
	if err != nil {
		return errorResult(fmt.Sprintf("reset failed: %v", err)), nil
	}
	return jsonResult(st), nil
}

func (s *Server) handleVault(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	var filter model.OutputType
	if raw := request.GetString("output_type", ""); raw != "" {
		t, err := model.ParseOutputType(raw)
		if err != nil {
			return errorResult(err.Error()), nil
		}
		filter = t
	}
	limit := request.GetInt("limit", 10)

	items, err := s.studio.Vault(ctx)
	if err != nil {
		return errorResult(fmt.Sprintf("vault unavailable: %v", err)), nil
	}
	out := make([]vaultEntry, 0, len(items))
	for _, it := range items {
		if filter != "" && it.Type != filter {
			continue
		}
		out = append(out, newVaultEntry(it))
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return jsonResult(map[string]any{
		"backend": s.studio.VaultBackend(),
		"outputs": out,
		"total":   len(out),
	}), nil
}

func (s *Server) handleDiagnostics(_ context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	limit := request.GetInt("limit", 20)
	entries := s.studio.Diagnostics()
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return jsonResult(entries), nil
}

// vaultEntry is the compact vault listing shape. Content is truncated so
// a listing stays small enough for an agent's context window.
type vaultEntry struct {
	ID        string           `json:"id"`
	Type      model.OutputType `json:"type"`
	Title     string           `json:"title"`
	Preview   string           `json:"preview"`
	AudioURL  string           `json:"audio_url,omitempty"`
	ImageURL  string           `json:"image_url,omitempty"`
	Timestamp string           `json:"timestamp"`
}

const vaultPreviewRunes = 280

func newVaultEntry(o model.GeneratedOutput) vaultEntry {
	preview := o.Content
	if r := []rune(preview); len(r) > vaultPreviewRunes {
		preview = string(r[:vaultPreviewRunes]) + "..."
	}
	return vaultEntry{
		ID:        o.ID,
		Type:      o.Type,
		Title:     o.Title,
		Preview:   preview,
		AudioURL:  o.AudioURL,
		ImageURL:  o.ImageURL,
		Timestamp: o.Timestamp.UTC().Format("2006-01-02T15:04:05Z"),
	}
}
