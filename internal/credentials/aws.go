package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	smtypes "github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/systmms/upshift/internal/config"
)

// SecretsManagerAPI is the subset of the AWS Secrets Manager client the
// source needs. It allows mocking in tests.
type SecretsManagerAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// AWSSource reads the API key pair from an AWS Secrets Manager secret whose
// value is a JSON document: {"accessKey": "...", "secretKey": "..."}.
type AWSSource struct {
	client   SecretsManagerAPI
	secretID string
}

// AWSSourceOption configures an AWSSource.
type AWSSourceOption func(*AWSSource)

// WithSecretsManagerClient sets a custom Secrets Manager client (for testing).
func WithSecretsManagerClient(client SecretsManagerAPI) AWSSourceOption {
	return func(s *AWSSource) {
		s.client = client
	}
}

// NewAWSSource creates a Secrets Manager backed source.
func NewAWSSource(ctx context.Context, cfg *config.AWSCredentialConfig, opts ...AWSSourceOption) (*AWSSource, error) {
	s := &AWSSource{secretID: cfg.SecretID}

	for _, opt := range opts {
		opt(s)
	}

	if s.client == nil {
		var configOpts []func(*awsconfig.LoadOptions) error
		if cfg.Region != "" {
			configOpts = append(configOpts, awsconfig.WithRegion(cfg.Region))
		}
		if cfg.Profile != "" {
			configOpts = append(configOpts, awsconfig.WithSharedConfigProfile(cfg.Profile))
		}
		if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
			configOpts = append(configOpts, awsconfig.WithCredentialsProvider(
				awscreds.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
			))
		}

		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, configOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		s.client = secretsmanager.NewFromConfig(awsCfg)
	}

	return s, nil
}

func (s *AWSSource) Name() string { return "aws" }

func (s *AWSSource) Resolve(ctx context.Context) (Credentials, error) {
	out, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: &s.secretID,
	})
	if err != nil {
		var notFound *smtypes.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return Credentials{}, ErrNoCredentials
		}
		return Credentials{}, fmt.Errorf("secrets manager: %w", err)
	}

	if out.SecretString == nil {
		return Credentials{}, fmt.Errorf("secret '%s' has no string value", s.secretID)
	}

	var payload struct {
		AccessKey string `json:"accessKey"`
		SecretKey string `json:"secretKey"`
	}
	if err := json.Unmarshal([]byte(*out.SecretString), &payload); err != nil {
		return Credentials{}, fmt.Errorf("secret '%s' is not valid JSON: %w", s.secretID, err)
	}

	if payload.AccessKey == "" || payload.SecretKey == "" {
		return Credentials{}, fmt.Errorf("secret '%s' must contain accessKey and secretKey fields", s.secretID)
	}

	return Credentials{AccessKey: payload.AccessKey, SecretKey: payload.SecretKey}, nil
}
