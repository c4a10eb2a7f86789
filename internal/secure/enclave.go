// Package secure provides memory-safe handling of control plane credentials.
//
// It wraps the memguard library so the API secret key is encrypted at rest in
// process memory, protected from swapping via mlock, and wiped on destruction.
// For complete cleanup of all memguard data at application exit, call
// memguard.Purge() in a defer statement in main().
package secure

import (
	"errors"
	"sync"

	"github.com/awnumar/memguard"
)

// SecureBuffer stores a secret in an encrypted memguard enclave.
type SecureBuffer struct {
	enclave *memguard.Enclave
	mu      sync.RWMutex
	// destroyed allows idempotent Destroy() calls and prevents use after destroy
	destroyed bool
}

// NewSecureBuffer creates a protected buffer from secret bytes. The input is
// copied into an encrypted enclave; the caller should zero the original.
// Empty input is rejected: memguard cannot seal a zero-length payload.
func NewSecureBuffer(data []byte) (*SecureBuffer, error) {
	if len(data) == 0 {
		return nil, errors.New("secret must not be empty")
	}
	return &SecureBuffer{
		enclave: memguard.NewEnclave(data),
	}, nil
}

// NewSecureBufferFromString creates a protected buffer from a secret string.
func NewSecureBufferFromString(s string) (*SecureBuffer, error) {
	return NewSecureBuffer([]byte(s))
}

// Open decrypts and returns the protected data in a locked buffer. The caller
// MUST call Destroy() on the returned LockedBuffer when done.
func (s *SecureBuffer) Open() (*memguard.LockedBuffer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.destroyed {
		return memguard.NewBufferFromBytes([]byte{}), nil
	}

	return s.enclave.Open()
}

// WithBytes decrypts the secret, invokes fn with the plaintext, and wipes the
// plaintext again before returning. The slice must not escape fn.
func (s *SecureBuffer) WithBytes(fn func([]byte) error) error {
	locked, err := s.Open()
	if err != nil {
		return err
	}
	defer locked.Destroy()
	return fn(locked.Bytes())
}

// Destroy marks this SecureBuffer as destroyed and prevents further use.
// It is idempotent; after Destroy(), Open() returns an empty buffer.
func (s *SecureBuffer) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroyed {
		return
	}

	s.enclave = nil
	s.destroyed = true
}
