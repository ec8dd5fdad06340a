package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ashita-ai/kasane/internal/auth"
	"github.com/ashita-ai/kasane/internal/model"
)

func tokenCmd(deps Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for a tier",
		Long: `Token signs a bearer token with the configured JWT key pair. The admin
key must match KASANE_ADMIN_API_KEY. Ephemeral keys are refused because a
token signed by this process would not verify against the server.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rawTier, _ := cmd.Flags().GetString("tier")
			apiKey, _ := cmd.Flags().GetString("api-key")
			if apiKey == "" {
				apiKey = os.Getenv("KASANE_ADMIN_API_KEY")
			}
			tier, ok := model.ParseTier(rawTier)
			if !ok {
				return fmt.Errorf("unknown --tier %q (free, standard, pro)", rawTier)
			}

			cfg, err := deps.LoadConfig()
			if err != nil {
				return err
			}
			if cfg.JWTPrivateKeyPath == "" || cfg.JWTPublicKeyPath == "" {
				return fmt.Errorf("token: KASANE_JWT_PRIVATE_KEY and KASANE_JWT_PUBLIC_KEY are required")
			}
			if cfg.AdminAPIKey == "" {
				return fmt.Errorf("token: KASANE_ADMIN_API_KEY is not configured")
			}
			admin, err := auth.NewAdminKey(cfg.AdminAPIKey)
			if err != nil {
				return fmt.Errorf("token: %w", err)
			}
			if !admin.Verify(apiKey) {
				return fmt.Errorf("token: invalid admin key")
			}

			mgr, err := auth.NewJWTManager(cfg.JWTPrivateKeyPath, cfg.JWTPublicKeyPath, cfg.JWTExpiration)
			if err != nil {
				return err
			}
			token, exp, err := mgr.IssueToken(tier)
			if err != nil {
				return fmt.Errorf("token: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), model.AuthTokenResponse{Token: token, Tier: tier, ExpiresAt: exp})
		},
	}
	cmd.Flags().String("tier", string(model.TierFree), "Tier to grant (free, standard, pro)")
	cmd.Flags().String("api-key", "", "Admin API key (default: $KASANE_ADMIN_API_KEY)")
	return cmd
}
