package commands

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/systmms/upshift/internal/config"
	"github.com/systmms/upshift/internal/credentials"
	uperrors "github.com/systmms/upshift/internal/errors"
	"github.com/systmms/upshift/internal/rancher"
)

// buildClient loads credentials and constructs a control plane client from
// the loaded configuration.
func buildClient(ctx context.Context, cfg *config.Config) (*rancher.Client, error) {
	def := cfg.Definition

	creds, err := credentials.Resolve(ctx, def, cfg.Logger)
	if err != nil {
		return nil, err
	}

	return rancher.NewClient(rancher.ClientConfig{
		Endpoint:           def.Endpoint,
		AccessKey:          creds.AccessKey,
		SecretKey:          creds.SecretKey,
		Timeout:            def.Timeouts.RequestTimeout(),
		CACert:             def.TLS.CACert,
		InsecureSkipVerify: def.TLS.InsecureSkipVerify,
	})
}

// parseEnvVars parses repeated KEY=VALUE flags into a map.
func parseEnvVars(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	env := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, uperrors.UserError{
				Message:    fmt.Sprintf("Invalid environment override '%s'", pair),
				Suggestion: "Use --env KEY=VALUE",
			}
		}
		env[key] = value
	}
	return env, nil
}

// sortedActionNames returns the action names of a service in stable order.
func sortedActionNames(svc *rancher.Service) []string {
	names := make([]string, 0, len(svc.Actions))
	for name := range svc.Actions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
