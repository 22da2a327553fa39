package providers

import (
	"errors"
	"fmt"
)

// KeychainError wraps OS keychain errors with context
type KeychainError struct {
	Op      string // "query" or "validate"
	Service string
	Account string
	Err     error
}

func (e *KeychainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("keychain %s error for %s/%s: %v", e.Op, e.Service, e.Account, e.Err)
	}
	return fmt.Sprintf("keychain %s error for %s/%s", e.Op, e.Service, e.Account)
}

func (e *KeychainError) Unwrap() error {
	return e.Err
}

// Keychain sentinel errors
var (
	ErrKeychainItemNotFound        = errors.New("keychain item not found")
	ErrKeychainAccessDenied        = errors.New("keychain access denied")
	ErrKeychainUnsupportedPlatform = errors.New("keychain not supported on this platform")
	ErrKeychainHeadless            = errors.New("keychain requires GUI environment for authentication")
)
