//go:build linux

package providers

import (
	"errors"
	"os"

	"github.com/zalando/go-keyring"

	"github.com/systmms/kustoconn/internal/providers/contracts"
)

// linuxKeychainClient talks to the Secret Service over D-Bus
type linuxKeychainClient struct{}

func newPlatformKeychainClient() contracts.KeychainClient {
	return &linuxKeychainClient{}
}

func (c *linuxKeychainClient) Query(service, account string) ([]byte, error) {
	secret, err := keyring.Get(service, account)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, ErrKeychainItemNotFound
		}
		return nil, err
	}
	return []byte(secret), nil
}

// Validate is a no-op; a missing Secret Service surfaces on the first Query.
func (c *linuxKeychainClient) Validate() error {
	return nil
}

func (c *linuxKeychainClient) IsAvailable() bool {
	return os.Getenv("DISPLAY") != "" || os.Getenv("WAYLAND_DISPLAY") != "" || os.Getenv("DBUS_SESSION_BUS_ADDRESS") != ""
}

func (c *linuxKeychainClient) IsHeadless() bool {
	if os.Getenv("SSH_TTY") != "" || os.Getenv("CI") != "" {
		return true
	}
	return os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == ""
}

var _ contracts.KeychainClient = (*linuxKeychainClient)(nil)
