package providers

import (
	"fmt"
	"sort"

	"github.com/systmms/kustoconn/internal/config"
	"github.com/systmms/kustoconn/pkg/provider"
)

// Registry maps provider types from kustoconn.yaml to factories
type Registry struct {
	factories map[string]ProviderFactory
}

// ProviderFactory creates a provider instance from configuration
type ProviderFactory func(name string, config map[string]interface{}) (provider.Provider, error)

// NewRegistry creates a registry with the built-in providers
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]ProviderFactory)}
	r.RegisterFactory("literal", NewLiteralProviderFactory)
	r.RegisterFactory("env", NewEnvProviderFactory)
	r.RegisterFactory("keychain", NewKeychainProviderFactory)
	r.RegisterFactory("azure.keyvault", NewAzureKeyVaultProviderFactory)
	r.RegisterFactory("aws.secretsmanager", NewAWSSecretsManagerProviderFactory)
	r.RegisterFactory("gcp.secretmanager", NewGCPSecretManagerProviderFactory)
	return r
}

// RegisterFactory registers a factory for a provider type
func (r *Registry) RegisterFactory(providerType string, factory ProviderFactory) {
	r.factories[providerType] = factory
}

// CreateProvider creates a provider instance from configuration
func (r *Registry) CreateProvider(name string, cfg config.ProviderConfig) (provider.Provider, error) {
	factory, ok := r.factories[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("unknown provider type: %s", cfg.Type)
	}
	return factory(name, cfg.Config)
}

// GetSupportedTypes returns the registered provider types, sorted
func (r *Registry) GetSupportedTypes() []string {
	types := make([]string, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// IsSupported checks if a provider type is registered
func (r *Registry) IsSupported(providerType string) bool {
	_, ok := r.factories[providerType]
	return ok
}

// NewLiteralProviderFactory builds a literal provider from its values map
func NewLiteralProviderFactory(name string, config map[string]interface{}) (provider.Provider, error) {
	values := make(map[string]string)
	if configMap, ok := config["values"].(map[string]interface{}); ok {
		for k, v := range configMap {
			str, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("literal provider %s: value for %q must be a string", name, k)
			}
			values[k] = str
		}
	}
	return NewLiteralProvider(name, values), nil
}

// NewEnvProviderFactory builds an env provider
func NewEnvProviderFactory(name string, config map[string]interface{}) (provider.Provider, error) {
	return NewEnvProvider(name, config), nil
}

// NewKeychainProviderFactory builds a keychain provider
func NewKeychainProviderFactory(name string, config map[string]interface{}) (provider.Provider, error) {
	return NewKeychainProvider(name, config), nil
}

// NewAzureKeyVaultProviderFactory builds an Azure Key Vault provider
func NewAzureKeyVaultProviderFactory(name string, config map[string]interface{}) (provider.Provider, error) {
	p, err := NewAzureKeyVaultProvider(name, config)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// NewAWSSecretsManagerProviderFactory builds an AWS Secrets Manager provider
func NewAWSSecretsManagerProviderFactory(name string, config map[string]interface{}) (provider.Provider, error) {
	p, err := NewAWSSecretsManagerProvider(name, config)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// NewGCPSecretManagerProviderFactory builds a GCP Secret Manager provider
func NewGCPSecretManagerProviderFactory(name string, config map[string]interface{}) (provider.Provider, error) {
	p, err := NewGCPSecretManagerProvider(name, config)
	if err != nil {
		return nil, err
	}
	return p, nil
}
