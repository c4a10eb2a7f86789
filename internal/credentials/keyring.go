package credentials

import (
	"context"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// keyringService namespaces upshift entries in the OS keyring. The endpoint
// is the account, so key pairs for different control planes coexist.
const keyringService = "upshift"

// KeyringSource reads credentials stored by 'upshift login' from the OS
// keyring (Secret Service on Linux, Keychain on macOS, WinCred on Windows).
type KeyringSource struct {
	endpoint string
}

// NewKeyringSource creates a keyring-backed source for the given endpoint.
func NewKeyringSource(endpoint string) *KeyringSource {
	return &KeyringSource{endpoint: endpoint}
}

func (s *KeyringSource) Name() string { return "keyring" }

func (s *KeyringSource) Resolve(ctx context.Context) (Credentials, error) {
	access, err := keyring.Get(keyringService, s.endpoint+"/access")
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return Credentials{}, ErrNoCredentials
		}
		return Credentials{}, fmt.Errorf("keyring access key lookup: %w", err)
	}

	secret, err := keyring.Get(keyringService, s.endpoint+"/secret")
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return Credentials{}, ErrNoCredentials
		}
		return Credentials{}, fmt.Errorf("keyring secret key lookup: %w", err)
	}

	return Credentials{AccessKey: access, SecretKey: secret}, nil
}

// Store saves a key pair in the OS keyring for the given endpoint.
func Store(endpoint string, creds Credentials) error {
	if err := keyring.Set(keyringService, endpoint+"/access", creds.AccessKey); err != nil {
		return fmt.Errorf("failed to store access key: %w", err)
	}
	if err := keyring.Set(keyringService, endpoint+"/secret", creds.SecretKey); err != nil {
		return fmt.Errorf("failed to store secret key: %w", err)
	}
	return nil
}

// Delete removes a stored key pair for the given endpoint. Missing entries
// are not an error.
func Delete(endpoint string) error {
	for _, account := range []string{endpoint + "/access", endpoint + "/secret"} {
		if err := keyring.Delete(keyringService, account); err != nil && !errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("failed to delete keyring entry: %w", err)
		}
	}
	return nil
}
