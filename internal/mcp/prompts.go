package mcp

import (
	"context"
	"fmt"
	"strings"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/ashita-ai/kasane/internal/model"
)

func (s *Server) registerPrompts() {
	// generate-output walks the agent through readiness, eligibility and generation.
	s.mcpServer.AddPrompt(
		mcplib.NewPrompt("generate-output",
			mcplib.WithPromptDescription("Step-by-step workflow for producing one studio output"),
			mcplib.WithArgument("output_type",
				mcplib.ArgumentDescription("Output to produce: notes, report, audio_report, infographic, slidedeck or podcast"),
				mcplib.RequiredArgument(),
			),
		),
		s.handleGenerateOutputPrompt,
	)

	// studio-setup explains the ingest, check, generate loop.
	s.mcpServer.AddPrompt(
		mcplib.NewPrompt("studio-setup",
			mcplib.WithPromptDescription("System prompt snippet explaining how to drive the kasane studio"),
		),
		s.handleStudioSetupPrompt,
	)
}

func (s *Server) handleGenerateOutputPrompt(_ context.Context, request mcplib.GetPromptRequest) (*mcplib.GetPromptResult, error) {
	raw := request.Params.Arguments["output_type"]
	if raw == "" {
		return nil, fmt.Errorf("output_type argument is required")
	}
	t, err := model.ParseOutputType(raw)
	if err != nil {
		return nil, err
	}

	name := strings.ToLower(string(t))
	prereq := ""
	if t.DerivedFromReport() {
		prereq = fmt.Sprintf("\n   %s is derived from the report. If no report exists yet, call kasane_generate with output_type=\"report\" first.", t.DisplayName())
	}

	return &mcplib.GetPromptResult{
		Description: fmt.Sprintf("Produce a %s", t.DisplayName()),
		Messages: []mcplib.PromptMessage{
			{
				Role: mcplib.RoleUser,
				Content: mcplib.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`To produce a %s:

1. CALL kasane_readiness. If the state is BLOCKED, stop and report the
   action guidance. If it is UNINITIALIZED, ingest a source with kasane_ingest.

2. CALL kasane_eligibility and find the entry for %s.
   If it is not eligible, report the reason instead of generating.%s

3. CALL kasane_generate with output_type="%s" and wait for the result.

4. If generation fails, CALL kasane_diagnostics to see which stage failed.`,
						t.DisplayName(), name, prereq, name),
				},
			},
		},
	}, nil
}

func (s *Server) handleStudioSetupPrompt(_ context.Context, _ mcplib.GetPromptRequest) (*mcplib.GetPromptResult, error) {
	return &mcplib.GetPromptResult{
		Description: "How to drive the kasane studio",
		Messages: []mcplib.PromptMessage{
			{
				Role: mcplib.RoleUser,
				Content: mcplib.TextContent{
					Type: "text",
					Text: `You have access to kasane, a research studio that turns one source into
notes, reports, audio, infographics, slide decks and podcasts.

Every output comes from the current baseline. Ingest a source first with
kasane_ingest, then check kasane_eligibility before each kasane_generate.
Generated outputs are kept in the evidence vault (kasane_vault).

Outputs other than notes and the report are built from the report, so
generate the report before them. Only one generation runs per output type
at a time.`,
				},
			},
		},
	}, nil
}
