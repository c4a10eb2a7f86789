package commands

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/systmms/upshift/internal/config"
	uperrors "github.com/systmms/upshift/internal/errors"
)

func NewStatusCommand(cfg *config.Config) *cobra.Command {
	var serviceName string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current state of a service",
		Long: `Fetch a service from the control plane and print its state, image, and the
actions currently legal for it.

Examples:
  upshift status --service web`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if serviceName == "" {
				return uperrors.UserError{
					Message:    "Service name is required",
					Suggestion: "Specify the service with --service <name>",
				}
			}

			if err := cfg.Load(); err != nil {
				return err
			}

			ctx := cmd.Context()
			client, err := buildClient(ctx, cfg)
			if err != nil {
				return err
			}
			defer client.Close()

			svc, err := client.FindService(ctx, serviceName)
			if err != nil {
				return err
			}

			image := ""
			if v, ok := svc.LaunchConfig["imageUuid"].(string); ok {
				image = v
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "Name:\t%s\n", svc.Name)
			fmt.Fprintf(w, "ID:\t%s\n", svc.ID)
			fmt.Fprintf(w, "State:\t%s\n", svc.State)
			fmt.Fprintf(w, "Image:\t%s\n", image)
			fmt.Fprintf(w, "Actions:\t%s\n", strings.Join(sortedActionNames(svc), ", "))
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&serviceName, "service", "", "Service name (required)")
	_ = cmd.MarkFlagRequired("service")

	return cmd
}
