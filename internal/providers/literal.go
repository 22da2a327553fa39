package providers

import (
	"context"
	"sync"

	"github.com/systmms/kustoconn/pkg/provider"
)

// LiteralProvider serves values written directly in kustoconn.yaml. It is
// meant for local clusters and tests; real credentials belong in a store.
type LiteralProvider struct {
	name   string
	mu     sync.RWMutex
	values map[string]string
}

// NewLiteralProvider creates a literal provider with predefined values
func NewLiteralProvider(name string, values map[string]string) *LiteralProvider {
	copied := make(map[string]string, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return &LiteralProvider{name: name, values: copied}
}

// Name returns the provider's name
func (l *LiteralProvider) Name() string {
	return l.name
}

// Resolve returns the configured value for ref.Key
func (l *LiteralProvider) Resolve(ctx context.Context, ref provider.Reference) (provider.SecretValue, error) {
	if err := ctx.Err(); err != nil {
		return provider.SecretValue{}, err
	}
	l.mu.RLock()
	value, ok := l.values[ref.Key]
	l.mu.RUnlock()
	if !ok {
		return provider.SecretValue{}, provider.NotFoundError{Provider: l.name, Key: ref.Key}
	}
	return provider.SecretValue{
		Value:   value,
		Version: "1",
		Metadata: map[string]string{
			"provider": l.name,
			"type":     "literal",
		},
	}, nil
}

// Describe reports whether ref.Key is configured
func (l *LiteralProvider) Describe(ctx context.Context, ref provider.Reference) (provider.Metadata, error) {
	l.mu.RLock()
	value, ok := l.values[ref.Key]
	l.mu.RUnlock()
	if !ok {
		return provider.Metadata{Exists: false}, nil
	}
	return provider.Metadata{
		Exists:  true,
		Version: "1",
		Size:    len(value),
		Type:    "string",
	}, nil
}

// Capabilities returns the provider's capabilities
func (l *LiteralProvider) Capabilities() provider.Capabilities {
	return provider.Capabilities{SupportsMetadata: true}
}

// Validate always succeeds
func (l *LiteralProvider) Validate(ctx context.Context) error {
	return nil
}

// SetValue sets a literal value
func (l *LiteralProvider) SetValue(key, value string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.values[key] = value
}
