//go:build darwin

package providers

import (
	"errors"
	"os"

	"github.com/zalando/go-keyring"

	"github.com/systmms/kustoconn/internal/providers/contracts"
)

// darwinKeychainClient reads generic passwords from the login keychain
type darwinKeychainClient struct{}

func newPlatformKeychainClient() contracts.KeychainClient {
	return &darwinKeychainClient{}
}

func (c *darwinKeychainClient) Query(service, account string) ([]byte, error) {
	secret, err := keyring.Get(service, account)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, ErrKeychainItemNotFound
		}
		if isKeychainAccessDeniedError(err) {
			return nil, ErrKeychainAccessDenied
		}
		return nil, err
	}
	return []byte(secret), nil
}

func (c *darwinKeychainClient) Validate() error {
	return nil
}

func (c *darwinKeychainClient) IsAvailable() bool {
	return true
}

func (c *darwinKeychainClient) IsHeadless() bool {
	return os.Getenv("SSH_TTY") != "" || os.Getenv("CI") != ""
}

var _ contracts.KeychainClient = (*darwinKeychainClient)(nil)
