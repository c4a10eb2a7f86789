package config

import (
	"os"
	"time"

	uperrors "github.com/systmms/upshift/internal/errors"
	"github.com/systmms/upshift/internal/logging"
	"gopkg.in/yaml.v3"
)

// Default timing budgets, in milliseconds, matching the control plane's
// recommended polling cadence.
const (
	DefaultStatusCheckFrequencyMs   = 20000
	DefaultServiceUpgradedTimeoutMs = 180000
	DefaultServiceActiveTimeoutMs   = 180000
	DefaultRequestTimeoutMs         = 30000
)

// Config holds the runtime configuration
type Config struct {
	Path           string
	Logger         *logging.Logger
	NonInteractive bool
	Definition     *Definition
}

// Definition represents the upshift.yaml structure
type Definition struct {
	Version  int    `yaml:"version"`
	Endpoint string `yaml:"endpoint"`

	// Static credentials. Usually omitted in favor of the environment, the
	// OS keyring, or AWS Secrets Manager (see internal/credentials).
	AccessKey string `yaml:"accessKey,omitempty"`
	SecretKey string `yaml:"secretKey,omitempty"`

	// CredentialSource pins credential resolution to one source:
	// "config", "env", "keyring", or "aws". Empty means try them in order.
	CredentialSource string `yaml:"credentialSource,omitempty"`

	AWS      *AWSCredentialConfig `yaml:"aws,omitempty"`
	TLS      TLSConfig            `yaml:"tls,omitempty"`
	Timeouts Timeouts             `yaml:"timeouts,omitempty"`
}

// AWSCredentialConfig locates the API key pair in AWS Secrets Manager.
type AWSCredentialConfig struct {
	SecretID string `yaml:"secretId"`
	Region   string `yaml:"region,omitempty"`
	Profile  string `yaml:"profile,omitempty"`

	// Static AWS credentials, for environments without a shared config.
	AccessKeyID     string `yaml:"accessKeyId,omitempty"`
	SecretAccessKey string `yaml:"secretAccessKey,omitempty"`
}

// TLSConfig holds transport security overrides for the control plane client.
type TLSConfig struct {
	CACert             string `yaml:"caCert,omitempty"`
	InsecureSkipVerify bool   `yaml:"insecureSkipVerify,omitempty"`
}

// Timeouts holds the timing budgets of an upgrade session, in milliseconds.
type Timeouts struct {
	StatusCheckFrequencyMs   int64 `yaml:"statusCheckFrequencyMs,omitempty"`
	ServiceUpgradedTimeoutMs int64 `yaml:"serviceUpgradedTimeoutMs,omitempty"`
	ServiceActiveTimeoutMs   int64 `yaml:"serviceActiveTimeoutMs,omitempty"`
	RequestTimeoutMs         int64 `yaml:"requestTimeoutMs,omitempty"`
}

// StatusCheckFrequency returns the poll interval for both wait phases.
func (t Timeouts) StatusCheckFrequency() time.Duration {
	return msOrDefault(t.StatusCheckFrequencyMs, DefaultStatusCheckFrequencyMs)
}

// ServiceUpgradedTimeout returns the budget of the upgrading→upgraded wait.
func (t Timeouts) ServiceUpgradedTimeout() time.Duration {
	return msOrDefault(t.ServiceUpgradedTimeoutMs, DefaultServiceUpgradedTimeoutMs)
}

// ServiceActiveTimeout returns the budget of the wait for the active state.
func (t Timeouts) ServiceActiveTimeout() time.Duration {
	return msOrDefault(t.ServiceActiveTimeoutMs, DefaultServiceActiveTimeoutMs)
}

// RequestTimeout returns the per-request HTTP timeout.
func (t Timeouts) RequestTimeout() time.Duration {
	return msOrDefault(t.RequestTimeoutMs, DefaultRequestTimeoutMs)
}

func msOrDefault(ms, def int64) time.Duration {
	if ms <= 0 {
		ms = def
	}
	return time.Duration(ms) * time.Millisecond
}

// Load reads, schema-validates, and parses the upshift.yaml file
func (c *Config) Load() error {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return uperrors.ConfigError{
				Field:      "path",
				Value:      c.Path,
				Message:    "configuration file not found",
				Suggestion: "Create an upshift.yaml with at least the 'endpoint' field",
			}
		}
		return uperrors.UserError{
			Message:    "Failed to read configuration file",
			Details:    err.Error(),
			Suggestion: "Check file permissions and path",
			Err:        err,
		}
	}

	if err := validateSchema(data); err != nil {
		return err
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return uperrors.ConfigError{
			Field:      "yaml",
			Message:    "invalid YAML syntax: " + err.Error(),
			Suggestion: "Check for indentation errors and missing quotes",
		}
	}

	if def.Endpoint == "" {
		return uperrors.ConfigError{
			Field:      "endpoint",
			Message:    "control plane endpoint is required",
			Suggestion: "Set 'endpoint' to the project API URL, e.g. https://rancher.example.com/v1/projects/1a5",
		}
	}

	c.Definition = &def
	return nil
}
