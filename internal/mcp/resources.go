package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	mcplib "github.com/mark3labs/mcp-go/mcp"
)

const recentVaultItems = 20

func (s *Server) registerResources() {
	// kasane://vault/recent: the most recent outputs in the evidence vault.
	s.mcpServer.AddResource(
		mcplib.NewResource(
			"kasane://vault/recent",
			"Recent Outputs",
			mcplib.WithResourceDescription("The most recent generated outputs in the evidence vault"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleVaultRecent,
	)

	// kasane://readiness: current readiness snapshot.
	s.mcpServer.AddResource(
		mcplib.NewResource(
			"kasane://readiness",
			"Readiness",
			mcplib.WithResourceDescription("Current readiness state, baseline presence and next action"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleReadinessResource,
	)
}

func (s *Server) handleVaultRecent(ctx context.Context, request mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	items, err := s.studio.Vault(ctx)
	if err != nil {
		return nil, fmt.Errorf("mcp: read vault: %w", err)
	}
	if len(items) > recentVaultItems {
		items = items[len(items)-recentVaultItems:]
	}
	entries := make([]vaultEntry, 0, len(items))
	for _, it := range items {
		entries = append(entries, newVaultEntry(it))
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mcp: marshal vault: %w", err)
	}
	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleReadinessResource(_ context.Context, request mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	data, err := json.MarshalIndent(s.studio.Readiness(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mcp: marshal readiness: %w", err)
	}
	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
