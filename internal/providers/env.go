package providers

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/systmms/kustoconn/pkg/provider"
)

// EnvProvider reads secrets from environment variables. The key is the
// variable name, optionally prefixed by the configured prefix.
type EnvProvider struct {
	name   string
	prefix string
	lookup func(string) (string, bool)
}

// NewEnvProvider creates an env provider. Recognized config: prefix.
func NewEnvProvider(name string, config map[string]interface{}) *EnvProvider {
	p := &EnvProvider{name: name, lookup: os.LookupEnv}
	if prefix, ok := config["prefix"].(string); ok {
		p.prefix = prefix
	}
	return p
}

// NewEnvProviderWithLookup creates an env provider reading from lookup
// instead of the process environment.
func NewEnvProviderWithLookup(name, prefix string, lookup func(string) (string, bool)) *EnvProvider {
	return &EnvProvider{name: name, prefix: prefix, lookup: lookup}
}

// Name returns the provider name
func (e *EnvProvider) Name() string {
	return e.name
}

func (e *EnvProvider) variable(key string) string {
	if e.prefix == "" || strings.HasPrefix(key, e.prefix) {
		return key
	}
	return e.prefix + key
}

// Resolve reads the variable named by ref.Key
func (e *EnvProvider) Resolve(ctx context.Context, ref provider.Reference) (provider.SecretValue, error) {
	if strings.TrimSpace(ref.Key) == "" {
		return provider.SecretValue{}, fmt.Errorf("env reference must name a variable")
	}
	name := e.variable(ref.Key)
	value, ok := e.lookup(name)
	if !ok {
		return provider.SecretValue{}, provider.NotFoundError{Provider: e.name, Key: name}
	}
	return provider.SecretValue{
		Value:    value,
		Metadata: map[string]string{"provider": e.name, "variable": name},
	}, nil
}

// Describe reports whether the variable is set
func (e *EnvProvider) Describe(ctx context.Context, ref provider.Reference) (provider.Metadata, error) {
	value, ok := e.lookup(e.variable(ref.Key))
	if !ok {
		return provider.Metadata{Exists: false}, nil
	}
	return provider.Metadata{Exists: true, Size: len(value), Type: "string"}, nil
}

// Capabilities returns the provider's capabilities
func (e *EnvProvider) Capabilities() provider.Capabilities {
	return provider.Capabilities{SupportsMetadata: true}
}

// Validate always succeeds
func (e *EnvProvider) Validate(ctx context.Context) error {
	return nil
}
