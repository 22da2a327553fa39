// Package secure keeps credential material encrypted in memory.
//
// Connection strings carry passwords, application keys and bearer tokens.
// Once parsed, auth strategies hold those values in a SecureBuffer so the
// plaintext only exists while a request is being signed. Call
// memguard.Purge at process exit to wipe every enclave.
package secure

import (
	"sync"

	"github.com/awnumar/memguard"
)

// SecureBuffer wraps a memguard.Enclave. The zero-length secret is allowed
// and opens to an empty buffer.
type SecureBuffer struct {
	enclave   *memguard.Enclave
	mu        sync.RWMutex
	destroyed bool
}

// NewSecureBuffer copies data into an encrypted enclave. memguard wipes the
// source slice.
func NewSecureBuffer(data []byte) (*SecureBuffer, error) {
	// NewEnclave returns nil for empty input
	return &SecureBuffer{enclave: memguard.NewEnclave(data)}, nil
}

// NewSecureString is NewSecureBuffer for a string value.
func NewSecureString(s string) (*SecureBuffer, error) {
	return NewSecureBuffer([]byte(s))
}

// Open decrypts the enclave into a locked buffer. The caller must Destroy it.
//
//	locked, err := buf.Open()
//	if err != nil {
//	    return err
//	}
//	defer locked.Destroy()
//	secret := locked.Bytes()
func (s *SecureBuffer) Open() (*memguard.LockedBuffer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.destroyed || s.enclave == nil {
		return memguard.NewBufferFromBytes([]byte{}), nil
	}
	return s.enclave.Open()
}

// Reveal returns a plaintext copy. Use it only at the point the value leaves
// the process, e.g. when building an Authorization header.
func (s *SecureBuffer) Reveal() (string, error) {
	locked, err := s.Open()
	if err != nil {
		return "", err
	}
	defer locked.Destroy()
	return string(locked.Bytes()), nil
}

// Empty reports whether the buffer holds no secret.
func (s *SecureBuffer) Empty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.destroyed || s.enclave == nil
}

// String keeps the buffer safe to print.
func (s *SecureBuffer) String() string {
	return "[REDACTED]"
}

// Destroy drops the enclave. It is idempotent; Open afterwards yields an
// empty buffer.
func (s *SecureBuffer) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroyed {
		return
	}
	s.enclave = nil
	s.destroyed = true
}
