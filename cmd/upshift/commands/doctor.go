package commands

import (
	"github.com/spf13/cobra"
	"github.com/systmms/upshift/internal/config"
	"github.com/systmms/upshift/internal/credentials"
)

func NewDoctorCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, credentials, and control plane connectivity",
		Long: `Verify that upshift is ready to run upgrades.

This command checks:
- Configuration file validity
- Credential resolution (config, environment, keyring, AWS)
- Control plane reachability and authentication`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg.Logger.Info("Checking upshift configuration...")
			if err := cfg.Load(); err != nil {
				cfg.Logger.Error("Configuration error: %v", err)
				return err
			}
			cfg.Logger.Info("Configuration loaded from %s", cfg.Path)

			creds, err := credentials.Resolve(ctx, cfg.Definition, cfg.Logger)
			if err != nil {
				cfg.Logger.Error("Credential resolution failed: %v", err)
				return err
			}
			cfg.Logger.Info("Credentials resolved (access key %s)", creds.AccessKey)

			client, err := buildClient(ctx, cfg)
			if err != nil {
				return err
			}
			defer client.Close()

			if err := client.Ping(ctx); err != nil {
				cfg.Logger.Error("Control plane unreachable: %v", err)
				return err
			}
			cfg.Logger.Info("Control plane reachable at %s", cfg.Definition.Endpoint)

			return nil
		},
	}

	return cmd
}
