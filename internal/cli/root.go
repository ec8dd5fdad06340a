// Package cli implements kasanectl, the operator CLI. It runs the studio
// in-process against the configured collaborators and vault.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ashita-ai/kasane/internal/app"
	"github.com/ashita-ai/kasane/internal/config"
)

// Deps are the hooks commands use to reach configuration and the studio.
type Deps struct {
	LoadConfig func() (config.Config, error)
	Build      func(ctx context.Context, cfg config.Config) (*app.Components, error)
}

// DefaultDeps reads .env and KASANE_* variables and wires the real
// collaborators. Logs go to stderr so stdout stays machine-readable.
func DefaultDeps() Deps {
	return Deps{
		LoadConfig: func() (config.Config, error) {
			_ = godotenv.Load()
			return config.Load()
		},
		Build: func(ctx context.Context, cfg config.Config) (*app.Components, error) {
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
			return app.Build(ctx, cfg, logger)
		},
	}
}

// NewRootCmd builds the kasanectl command tree.
func NewRootCmd(version string, deps Deps) *cobra.Command {
	root := &cobra.Command{
		Use:   "kasanectl",
		Short: "kasanectl - operate the kasane research studio",
		Long: `kasanectl drives the kasane studio from the command line.

Studio state (baseline, execution table) lives in memory, so commands that
generate take the source inline. Generated outputs persist in the vault.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(ingestCmd(deps))
	root.AddCommand(readinessCmd(deps))
	root.AddCommand(generateCmd(deps))
	root.AddCommand(statusCmd(deps))
	root.AddCommand(vaultCmd(deps))
	root.AddCommand(exportCmd(deps))
	root.AddCommand(tokenCmd(deps))
	root.AddCommand(keygenCmd())

	return root
}

// Execute runs kasanectl with the default dependencies.
func Execute(version string) error {
	root := NewRootCmd(version, DefaultDeps())
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

// withStudio loads config, builds the studio, runs fn and releases the vault.
func withStudio(cmd *cobra.Command, deps Deps, fn func(cfg config.Config, c *app.Components) error) error {
	cfg, err := deps.LoadConfig()
	if err != nil {
		return err
	}
	c, err := deps.Build(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()
	return fn(cfg, c)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
