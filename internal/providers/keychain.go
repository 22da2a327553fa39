package providers

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/systmms/kustoconn/internal/providers/contracts"
	"github.com/systmms/kustoconn/pkg/provider"
)

// KeychainProvider reads secrets from the OS keychain (macOS Keychain or
// Linux Secret Service). Keys have the form service/account.
type KeychainProvider struct {
	name          string
	servicePrefix string
	client        contracts.KeychainClient
}

// NewKeychainProvider creates a keychain provider backed by the platform
// keychain. Recognized config: service_prefix.
func NewKeychainProvider(name string, config map[string]interface{}) *KeychainProvider {
	return NewKeychainProviderWithClient(name, config, newPlatformKeychainClient())
}

// NewKeychainProviderWithClient creates a keychain provider with a custom
// client, used by tests to replace the OS keychain.
func NewKeychainProviderWithClient(name string, config map[string]interface{}, client contracts.KeychainClient) *KeychainProvider {
	kc := &KeychainProvider{name: name, client: client}
	if prefix, ok := config["service_prefix"].(string); ok {
		kc.servicePrefix = prefix
	}
	return kc
}

// Name returns the provider name
func (kc *KeychainProvider) Name() string {
	return kc.name
}

// Platform returns the current platform
func (kc *KeychainProvider) Platform() string {
	return runtime.GOOS
}

// Resolve retrieves a secret from the OS keychain
func (kc *KeychainProvider) Resolve(ctx context.Context, ref provider.Reference) (provider.SecretValue, error) {
	if err := ctx.Err(); err != nil {
		return provider.SecretValue{}, err
	}
	kcRef, err := ParseKeychainReference(ref.Key)
	if err != nil {
		return provider.SecretValue{}, fmt.Errorf("invalid keychain reference '%s': %w", ref.Key, err)
	}
	service := kc.applyServicePrefix(kcRef.Service)

	value, err := kc.client.Query(service, kcRef.Account)
	if err != nil {
		switch {
		case isKeychainNotFoundError(err):
			return provider.SecretValue{}, provider.NotFoundError{Provider: kc.name, Key: ref.Key}
		case isKeychainAccessDeniedError(err):
			err = ErrKeychainAccessDenied
		}
		return provider.SecretValue{}, &KeychainError{Op: "query", Service: service, Account: kcRef.Account, Err: err}
	}

	return provider.SecretValue{
		Value: string(value),
		Metadata: map[string]string{
			"provider": kc.name,
			"service":  service,
			"account":  kcRef.Account,
		},
	}, nil
}

// Describe reports whether the keychain item exists
func (kc *KeychainProvider) Describe(ctx context.Context, ref provider.Reference) (provider.Metadata, error) {
	kcRef, err := ParseKeychainReference(ref.Key)
	if err != nil {
		return provider.Metadata{}, fmt.Errorf("invalid keychain reference '%s': %w", ref.Key, err)
	}
	service := kc.applyServicePrefix(kcRef.Service)

	if _, err := kc.client.Query(service, kcRef.Account); err != nil {
		if isKeychainNotFoundError(err) {
			return provider.Metadata{Exists: false}, nil
		}
		return provider.Metadata{}, fmt.Errorf("failed to describe keychain item: %w", err)
	}
	return provider.Metadata{
		Exists: true,
		Type:   "password",
		Tags:   map[string]string{"service": service, "account": kcRef.Account},
	}, nil
}

// Capabilities returns the provider's supported features
func (kc *KeychainProvider) Capabilities() provider.Capabilities {
	return provider.Capabilities{
		SupportsMetadata: true,
		AuthMethods:      []string{"os"},
	}
}

// Validate checks if the keychain is accessible
func (kc *KeychainProvider) Validate(ctx context.Context) error {
	if !kc.client.IsAvailable() {
		return ErrKeychainUnsupportedPlatform
	}
	if kc.client.IsHeadless() {
		return fmt.Errorf("%w (headless environment detected); use the env or azure.keyvault provider in CI", ErrKeychainHeadless)
	}
	if err := kc.client.Validate(); err != nil {
		return &KeychainError{Op: "validate", Err: err}
	}
	return nil
}

func (kc *KeychainProvider) applyServicePrefix(service string) string {
	if kc.servicePrefix == "" || strings.HasPrefix(service, kc.servicePrefix) {
		return service
	}
	return kc.servicePrefix + "." + service
}

// ParseKeychainReference parses a service/account reference
func ParseKeychainReference(key string) (*contracts.KeychainReference, error) {
	parts := strings.SplitN(key, "/", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("keychain reference must be service/account format, got: %s", key)
	}
	service := strings.TrimSpace(parts[0])
	account := strings.TrimSpace(parts[1])
	if service == "" {
		return nil, errors.New("keychain reference service cannot be empty")
	}
	if account == "" {
		return nil, errors.New("keychain reference account cannot be empty")
	}
	return &contracts.KeychainReference{Service: service, Account: account}, nil
}

func isKeychainNotFoundError(err error) bool {
	if errors.Is(err, ErrKeychainItemNotFound) {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "not found") || strings.Contains(errStr, "itemNotFound")
}

func isKeychainAccessDeniedError(err error) bool {
	if errors.Is(err, ErrKeychainAccessDenied) {
		return true
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "access denied") ||
		strings.Contains(errStr, "accessdenied") ||
		strings.Contains(errStr, "user denied") ||
		strings.Contains(errStr, "canceled")
}
