// Package app assembles the studio and its collaborators from config. The
// server binary and the operator CLI share it so both run the same wiring.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ashita-ai/kasane/internal/config"
	"github.com/ashita-ai/kasane/internal/longform"
	"github.com/ashita-ai/kasane/internal/resilient"
	"github.com/ashita-ai/kasane/internal/service/httpcall"
	"github.com/ashita-ai/kasane/internal/service/ingest"
	"github.com/ashita-ai/kasane/internal/service/media"
	"github.com/ashita-ai/kasane/internal/service/textgen"
	"github.com/ashita-ai/kasane/internal/storage"
	"github.com/ashita-ai/kasane/internal/studio"
)

// Components is a wired studio plus the resources it owns.
type Components struct {
	Studio  *studio.Service
	Vault   storage.Vault
	Profile longform.Profile
	// MissingVars lists required variables that were unset at startup.
	MissingVars []string
}

// Close releases the vault.
func (c *Components) Close() error {
	if c.Vault == nil {
		return nil
	}
	return c.Vault.Close()
}

// Build wires the text, media and ingestion clients, opens the vault and
// constructs the studio. Missing collaborator URLs are not an error: the
// studio starts BLOCKED and reports them.
func Build(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Components, error) {
	profile, err := longform.LoadProfile(cfg.ProfilePath)
	if err != nil {
		return nil, fmt.Errorf("app: profile: %w", err)
	}

	httpClient := httpcall.NewClient()
	policy := cfg.RetryPolicy()
	timeouts := cfg.Timeouts()

	engine := longform.NewEngine(longform.Config{
		Clients:         textgen.Clients(cfg.TextURL, httpClient),
		DefaultProvider: cfg.Provider(),
		Policy:          policy,
		Timeout:         timeouts.Longform,
		Profile:         profile,
		Logger:          logger,
	})
	mediaClient := media.New(media.Config{
		BaseURL:      cfg.MediaURL,
		HTTPClient:   httpClient,
		Policy:       policy,
		SlidesPolicy: resilient.SlidesPolicy(),
		Timeouts:     timeouts,
		Logger:       logger,
	})
	ingestClient := ingest.New(ingest.Config{
		BaseURL:    cfg.IngestURL,
		HTTPClient: httpClient,
		Policy:     policy,
		Timeout:    timeouts.Default,
		Logger:     logger,
	})

	vault, err := storage.Open(ctx, storage.Options{
		DatabaseURL: cfg.DatabaseURL,
		SQLitePath:  cfg.VaultPath,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("app: vault: %w", err)
	}

	missing := cfg.MissingRequired()
	if len(missing) > 0 {
		logger.Warn("required configuration missing, studio is BLOCKED", "missing", missing)
	}

	svc, err := studio.New(ctx, studio.Config{
		Ingester:            ingestClient,
		Media:               mediaClient,
		Writer:              engine,
		Vault:               vault,
		Environment:         studio.Environment{Ready: len(missing) == 0, MissingVars: missing},
		DefaultTier:         cfg.Tier(),
		DevMode:             cfg.DevMode,
		ForceShortPreviewOK: cfg.ForceShortPreviewOK,
		DefaultProvider:     cfg.Provider(),
		Hosts:               profile.Hosts,
		DiagnosticsCap:      cfg.DiagnosticsCap,
		Logger:              logger,
	})
	if err != nil {
		_ = vault.Close()
		return nil, fmt.Errorf("app: studio: %w", err)
	}

	return &Components{Studio: svc, Vault: vault, Profile: profile, MissingVars: missing}, nil
}
