package commands

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/systmms/upshift/internal/config"
	uperrors "github.com/systmms/upshift/internal/errors"
	"github.com/systmms/upshift/internal/upgrade"
)

func NewUpgradeCommand(cfg *config.Config) *cobra.Command {
	var (
		serviceName    string
		image          string
		tag            string
		envPairs       []string
		batchSize      int64
		intervalMillis int64
		startFirst     bool
		metricsPort    int
	)

	cmd := &cobra.Command{
		Use:   "upgrade",
		Short: "Perform a rolling in-service upgrade of a service",
		Long: `Perform a rolling in-service upgrade: submit the new image, wait for the
control plane to replace instances batch by batch, finalize the upgrade, and
wait for the service to return to the active state.

The session either ends with the service active on the new image or fails
with a single error; there is no automatic rollback.

Examples:
  # Upgrade to a tagged image
  upshift upgrade --service web --image org/app --tag v2

  # Slow the rollout down and stop old instances first
  upshift upgrade --service web --image org/app --tag v2 \
    --batch-size 1 --interval 60000 --start-first=false

  # Override environment variables for the new instances
  upshift upgrade --service web --image org/app --tag v2 \
    --env FEATURE_FLAG=on --env LOG_LEVEL=debug`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if serviceName == "" {
				return uperrors.UserError{
					Message:    "Service name is required",
					Suggestion: "Specify the service with --service <name>",
				}
			}
			if image == "" {
				return uperrors.UserError{
					Message:    "Image repository is required",
					Suggestion: "Specify the image with --image <repo>",
				}
			}

			env, err := parseEnvVars(envPairs)
			if err != nil {
				return err
			}

			if err := cfg.Load(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			client, err := buildClient(ctx, cfg)
			if err != nil {
				return err
			}
			defer client.Close()

			if metricsPort > 0 {
				serverCfg := upgrade.DefaultMetricsServerConfig()
				serverCfg.Enabled = true
				serverCfg.Port = metricsPort

				metricsServer := upgrade.NewMetricsServer(serverCfg, cfg.Logger)
				if err := metricsServer.Start(); err != nil {
					return err
				}
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = metricsServer.Stop(shutdownCtx)
				}()
			}

			upgrader := upgrade.New(client, cfg.Logger, upgrade.Options{
				PollInterval:    cfg.Definition.Timeouts.StatusCheckFrequency(),
				UpgradedTimeout: cfg.Definition.Timeouts.ServiceUpgradedTimeout(),
				ActiveTimeout:   cfg.Definition.Timeouts.ServiceActiveTimeout(),
			})

			req := upgrade.Request{
				Service:        serviceName,
				Image:          image,
				Tag:            tag,
				Env:            env,
				BatchSize:      batchSize,
				IntervalMillis: intervalMillis,
				StartFirst:     &startFirst,
			}

			svc, err := upgrader.Run(ctx, req)
			if err != nil {
				return err
			}

			cfg.Logger.Info("service '%s' upgraded successfully (state: %s)", svc.Name, svc.State)
			return nil
		},
	}

	cmd.Flags().StringVar(&serviceName, "service", "", "Service name to upgrade (required)")
	cmd.Flags().StringVar(&image, "image", "", "Image repository, e.g. org/app (required)")
	cmd.Flags().StringVar(&tag, "tag", "", "Image tag (optional)")
	cmd.Flags().StringArrayVar(&envPairs, "env", nil, "Environment override KEY=VALUE (repeatable)")
	cmd.Flags().Int64Var(&batchSize, "batch-size", 1, "Instances replaced per rollout step")
	cmd.Flags().Int64Var(&intervalMillis, "interval", 30000, "Delay between rollout steps in milliseconds")
	cmd.Flags().BoolVar(&startFirst, "start-first", true, "Start replacement instances before stopping old ones")
	cmd.Flags().IntVar(&metricsPort, "metrics-port", 0, "Serve Prometheus metrics on this port during the upgrade")

	_ = cmd.MarkFlagRequired("service")
	_ = cmd.MarkFlagRequired("image")

	return cmd
}
