package commands

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/systmms/upshift/internal/config"
	"github.com/systmms/upshift/internal/credentials"
	uperrors "github.com/systmms/upshift/internal/errors"
)

func NewLoginCommand(cfg *config.Config) *cobra.Command {
	var (
		accessKey string
		secretKey string
		clear     bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store control plane credentials in the OS keyring",
		Long: `Store the control plane API key pair in the OS keyring so upshift.yaml does
not have to carry credentials. The keys are stored per endpoint, so key pairs
for different control planes coexist.

Examples:
  # Store a key pair
  upshift login --access-key <key> --secret-key <secret>

  # Read the key pair from the environment instead of flags
  UPSHIFT_ACCESS_KEY=... UPSHIFT_SECRET_KEY=... upshift login

  # Remove the stored key pair for the configured endpoint
  upshift login --clear`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Load(); err != nil {
				return err
			}
			endpoint := cfg.Definition.Endpoint

			if clear {
				if err := credentials.Delete(endpoint); err != nil {
					return err
				}
				cfg.Logger.Info("Removed stored credentials for %s", endpoint)
				return nil
			}

			if accessKey == "" {
				accessKey = os.Getenv("UPSHIFT_ACCESS_KEY")
			}
			if secretKey == "" {
				secretKey = os.Getenv("UPSHIFT_SECRET_KEY")
			}

			if accessKey == "" || secretKey == "" {
				return uperrors.UserError{
					Message:    "Both an access key and a secret key are required",
					Suggestion: "Pass --access-key and --secret-key, or set UPSHIFT_ACCESS_KEY and UPSHIFT_SECRET_KEY",
				}
			}

			if err := credentials.Store(endpoint, credentials.Credentials{
				AccessKey: accessKey,
				SecretKey: secretKey,
			}); err != nil {
				return err
			}

			cfg.Logger.Info("Stored credentials for %s in the OS keyring", endpoint)
			return nil
		},
	}

	cmd.Flags().StringVar(&accessKey, "access-key", "", "Control plane API access key")
	cmd.Flags().StringVar(&secretKey, "secret-key", "", "Control plane API secret key")
	cmd.Flags().BoolVar(&clear, "clear", false, "Remove the stored key pair for the configured endpoint")

	return cmd
}
