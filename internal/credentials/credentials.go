// Package credentials resolves the control plane API key pair from the
// configured sources: static config, environment variables, the OS keyring,
// or AWS Secrets Manager.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/systmms/upshift/internal/config"
	uperrors "github.com/systmms/upshift/internal/errors"
	"github.com/systmms/upshift/internal/logging"
)

// ErrNoCredentials is returned by a Source that has nothing to offer; the
// resolution chain skips it and tries the next source.
var ErrNoCredentials = errors.New("no credentials found")

// Credentials is a control plane API key pair.
type Credentials struct {
	AccessKey string
	SecretKey string
}

// Source yields credentials from one backing store.
type Source interface {
	Name() string
	Resolve(ctx context.Context) (Credentials, error)
}

// ConfigSource reads static credentials from upshift.yaml.
type ConfigSource struct {
	def *config.Definition
}

// NewConfigSource creates a source backed by the static config fields.
func NewConfigSource(def *config.Definition) *ConfigSource {
	return &ConfigSource{def: def}
}

func (s *ConfigSource) Name() string { return "config" }

func (s *ConfigSource) Resolve(ctx context.Context) (Credentials, error) {
	if s.def.AccessKey == "" || s.def.SecretKey == "" {
		return Credentials{}, ErrNoCredentials
	}
	return Credentials{AccessKey: s.def.AccessKey, SecretKey: s.def.SecretKey}, nil
}

// EnvSource reads credentials from the environment. UPSHIFT_* takes
// precedence; CATTLE_* is accepted for compatibility with other control
// plane tooling.
type EnvSource struct{}

func (s EnvSource) Name() string { return "env" }

func (s EnvSource) Resolve(ctx context.Context) (Credentials, error) {
	access := firstEnv("UPSHIFT_ACCESS_KEY", "CATTLE_ACCESS_KEY")
	secret := firstEnv("UPSHIFT_SECRET_KEY", "CATTLE_SECRET_KEY")
	if access == "" || secret == "" {
		return Credentials{}, ErrNoCredentials
	}
	return Credentials{AccessKey: access, SecretKey: secret}, nil
}

func firstEnv(names ...string) string {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// Resolve walks the configured sources and returns the first key pair found.
// With CredentialSource set, only that source is consulted.
func Resolve(ctx context.Context, def *config.Definition, logger *logging.Logger) (Credentials, error) {
	sources, err := buildSources(ctx, def)
	if err != nil {
		return Credentials{}, err
	}

	for _, source := range sources {
		creds, err := source.Resolve(ctx)
		if errors.Is(err, ErrNoCredentials) {
			logger.Debug("no credentials in source '%s'", source.Name())
			continue
		}
		if err != nil {
			return Credentials{}, fmt.Errorf("credential source '%s': %w", source.Name(), err)
		}

		logger.Debug("using credentials from source '%s' (access key %s, secret %s)",
			source.Name(), creds.AccessKey, logging.Secret(creds.SecretKey))
		return creds, nil
	}

	return Credentials{}, uperrors.UserError{
		Message:    "No control plane credentials found",
		Suggestion: "Run 'upshift login', set UPSHIFT_ACCESS_KEY/UPSHIFT_SECRET_KEY, or add accessKey/secretKey to upshift.yaml",
		Details:    "Tried sources: config, env, keyring, aws",
	}
}

func buildSources(ctx context.Context, def *config.Definition) ([]Source, error) {
	switch def.CredentialSource {
	case "config":
		return []Source{NewConfigSource(def)}, nil
	case "env":
		return []Source{EnvSource{}}, nil
	case "keyring":
		return []Source{NewKeyringSource(def.Endpoint)}, nil
	case "aws":
		if def.AWS == nil {
			return nil, uperrors.ConfigError{
				Field:      "aws",
				Message:    "credentialSource is 'aws' but no aws block is configured",
				Suggestion: "Add an 'aws' section with at least 'secretId'",
			}
		}
		awsSource, err := NewAWSSource(ctx, def.AWS)
		if err != nil {
			return nil, err
		}
		return []Source{awsSource}, nil
	case "":
		sources := []Source{
			NewConfigSource(def),
			EnvSource{},
			NewKeyringSource(def.Endpoint),
		}
		if def.AWS != nil {
			awsSource, err := NewAWSSource(ctx, def.AWS)
			if err != nil {
				return nil, err
			}
			sources = append(sources, awsSource)
		}
		return sources, nil
	default:
		return nil, uperrors.ConfigError{
			Field:      "credentialSource",
			Value:      def.CredentialSource,
			Message:    "unknown credential source",
			Suggestion: "Valid values are: config, env, keyring, aws",
		}
	}
}
