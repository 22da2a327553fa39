//go:build !darwin && !linux

package providers

import (
	"github.com/systmms/kustoconn/internal/providers/contracts"
)

type unsupportedKeychainClient struct{}

func newPlatformKeychainClient() contracts.KeychainClient {
	return &unsupportedKeychainClient{}
}

func (c *unsupportedKeychainClient) Query(service, account string) ([]byte, error) {
	return nil, ErrKeychainUnsupportedPlatform
}

func (c *unsupportedKeychainClient) Validate() error {
	return ErrKeychainUnsupportedPlatform
}

func (c *unsupportedKeychainClient) IsAvailable() bool {
	return false
}

func (c *unsupportedKeychainClient) IsHeadless() bool {
	return false
}

var _ contracts.KeychainClient = (*unsupportedKeychainClient)(nil)
