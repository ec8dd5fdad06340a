package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ashita-ai/kasane/internal/app"
	"github.com/ashita-ai/kasane/internal/config"
	"github.com/ashita-ai/kasane/internal/eligibility"
	"github.com/ashita-ai/kasane/internal/model"
	"github.com/ashita-ai/kasane/internal/studio"
)

func ingestCmd(deps Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest [value]",
		Short: "Ingest a source and print the resulting baseline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sourceType, _ := cmd.Flags().GetString("type")
			purpose, _ := cmd.Flags().GetString("purpose")
			st, ok := model.ParseSourceType(sourceType)
			if !ok {
				return fmt.Errorf("unknown --type %q (paste, youtube, manual, url)", sourceType)
			}
			return withStudio(cmd, deps, func(_ config.Config, c *app.Components) error {
				b, err := c.Studio.Ingest(cmd.Context(), studio.IngestInput{
					SourceType: st,
					Value:      args[0],
					Purpose:    purpose,
				})
				if err != nil {
					return fmt.Errorf("ingest: %w", err)
				}
				return printJSON(cmd.OutOrStdout(), b)
			})
		},
	}
	cmd.Flags().StringP("type", "t", "paste", "Source type (paste, youtube, manual, url)")
	cmd.Flags().StringP("purpose", "p", "", "What the outputs are for (manual entries)")
	return cmd
}

func readinessCmd(deps Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "readiness",
		Short: "Print the readiness snapshot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStudio(cmd, deps, func(_ config.Config, c *app.Components) error {
				return printJSON(cmd.OutOrStdout(), c.Studio.Readiness())
			})
		},
	}
}

func generateCmd(deps Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate [type]",
		Short: "Ingest a source and generate one output from it",
		Long: `Generate ingests --source first, then generates the requested output.
Types derived from the report (audio_report, infographic, slidedeck,
podcast) generate the report first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := model.ParseOutputType(args[0])
			if err != nil {
				return err
			}
			source, _ := cmd.Flags().GetString("source")
			sourceType, _ := cmd.Flags().GetString("source-type")
			rawTier, _ := cmd.Flags().GetString("tier")
			if strings.TrimSpace(source) == "" {
				return fmt.Errorf("--source is required")
			}
			st, ok := model.ParseSourceType(sourceType)
			if !ok {
				return fmt.Errorf("unknown --source-type %q (paste, youtube, manual, url)", sourceType)
			}

			return withStudio(cmd, deps, func(cfg config.Config, c *app.Components) error {
				tier := cfg.Tier()
				if rawTier != "" {
					parsed, ok := model.ParseTier(rawTier)
					if !ok {
						return fmt.Errorf("unknown --tier %q (free, standard, pro)", rawTier)
					}
					tier = parsed
				}

				if _, err := c.Studio.Ingest(cmd.Context(), studio.IngestInput{SourceType: st, Value: source}); err != nil {
					return fmt.Errorf("ingest: %w", err)
				}
				if t.DerivedFromReport() {
					fmt.Fprintln(cmd.ErrOrStderr(), "generating report first")
					if _, err := c.Studio.Generate(cmd.Context(), model.OutputReport, tier); err != nil {
						return fmt.Errorf("generate report: %w", err)
					}
				}
				resp, err := c.Studio.Generate(cmd.Context(), t, tier)
				if err != nil {
					if resp.Status.Type != "" {
						_ = printJSON(cmd.ErrOrStderr(), resp.Status)
					}
					return fmt.Errorf("generate %s: %w", strings.ToLower(string(t)), err)
				}
				return printJSON(cmd.OutOrStdout(), resp)
			})
		},
	}
	cmd.Flags().StringP("source", "s", "", "Source value to ingest before generating")
	cmd.Flags().String("source-type", "paste", "Source type (paste, youtube, manual, url)")
	cmd.Flags().String("tier", "", "Entitlement tier (default: KASANE_USER_TIER)")
	return cmd
}

func statusCmd(deps Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show studio configuration, vault and eligibility",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStudio(cmd, deps, func(cfg config.Config, c *app.Components) error {
				w := cmd.OutOrStdout()
				snap := c.Studio.Readiness()
				items, err := c.Studio.Vault(cmd.Context())
				if err != nil {
					return fmt.Errorf("vault: %w", err)
				}

				fmt.Fprintln(w, "kasane status")
				fmt.Fprintln(w, strings.Repeat("=", 40))
				fmt.Fprintf(w, "  Readiness:  %s\n", snap.State)
				if snap.ActionGuidance != "" {
					fmt.Fprintf(w, "  Action:     %s\n", snap.ActionGuidance)
				}
				if len(c.MissingVars) > 0 {
					fmt.Fprintf(w, "  Missing:    %s\n", strings.Join(c.MissingVars, ", "))
				}
				fmt.Fprintf(w, "  Provider:   %s\n", cfg.Provider())
				fmt.Fprintf(w, "  Tier:       %s\n", c.Studio.DefaultTier())
				fmt.Fprintf(w, "  Dev mode:   %t\n", c.Studio.DevMode())
				fmt.Fprintf(w, "  Vault:      %s (%d items)\n", c.Studio.VaultBackend(), len(items))

				fmt.Fprintln(w, "\nEntitlements:")
				for _, t := range model.OutputTypes {
					e := eligibility.Entitlement(t, c.Studio.DefaultTier(), c.Studio.DevMode())
					fmt.Fprintf(w, "  %-14s %s\n", t.DisplayName()+":", entitlementLine(e))
				}
				return nil
			})
		},
	}
}

func entitlementLine(e model.OutputEligibility) string {
	if !e.Eligible {
		return "requires " + string(e.RequiredTier)
	}
	return "included"
}

func vaultCmd(deps Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vault",
		Short: "List outputs stored in the vault",
		RunE: func(cmd *cobra.Command, _ []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			rawType, _ := cmd.Flags().GetString("type")
			asJSON, _ := cmd.Flags().GetBool("json")
			var filter model.OutputType
			if rawType != "" {
				t, err := model.ParseOutputType(rawType)
				if err != nil {
					return err
				}
				filter = t
			}

			return withStudio(cmd, deps, func(_ config.Config, c *app.Components) error {
				items, err := c.Studio.Vault(cmd.Context())
				if err != nil {
					return fmt.Errorf("vault: %w", err)
				}
				kept := make([]model.GeneratedOutput, 0, len(items))
				for _, it := range items {
					if filter == "" || it.Type == filter {
						kept = append(kept, it)
					}
				}
				if limit > 0 && len(kept) > limit {
					kept = kept[len(kept)-limit:]
				}
				if asJSON {
					return printJSON(cmd.OutOrStdout(), kept)
				}

				w := cmd.OutOrStdout()
				if len(kept) == 0 {
					fmt.Fprintln(w, "Vault is empty.")
					return nil
				}
				fmt.Fprintf(w, "Vault (%d):\n\n", len(kept))
				for _, it := range kept {
					fmt.Fprintf(w, "  %-40s %-13s %s  %s\n",
						it.ID, it.Type.DisplayName(), it.Timestamp.Format("2006-01-02 15:04"), it.Title)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntP("limit", "n", 20, "Number of outputs to show (0 for all)")
	cmd.Flags().StringP("type", "t", "", "Only show this output type")
	cmd.Flags().BoolP("json", "j", false, "Output as JSON")
	return cmd
}

func exportCmd(deps Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export [id]",
		Short: "Render a vault item as markdown or HTML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("out")
			return withStudio(cmd, deps, func(_ config.Config, c *app.Components) error {
				exp, err := c.Studio.ExportOutput(cmd.Context(), args[0])
				if err != nil {
					return fmt.Errorf("export %s: %w", args[0], err)
				}
				switch out {
				case "":
					_, err = cmd.OutOrStdout().Write(exp.Body)
					return err
				case ".":
					out = exp.Filename
				}
				if err := os.WriteFile(out, exp.Body, 0o600); err != nil {
					return fmt.Errorf("export: write %s: %w", out, err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", out)
				return nil
			})
		},
	}
	cmd.Flags().StringP("out", "o", "", `Write to this file ("." uses the suggested filename)`)
	return cmd
}
