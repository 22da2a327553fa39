package providers_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/kustoconn/internal/config"
	"github.com/systmms/kustoconn/internal/providers"
	"github.com/systmms/kustoconn/pkg/provider"
)

func TestRegistry_SupportedTypes(t *testing.T) {
	t.Parallel()

	r := providers.NewRegistry()
	assert.Equal(t, []string{"aws.secretsmanager", "azure.keyvault", "env", "gcp.secretmanager", "keychain", "literal"}, r.GetSupportedTypes())
	assert.True(t, r.IsSupported("keychain"))
	assert.True(t, r.IsSupported("gcp.secretmanager"))
	assert.False(t, r.IsSupported("hashicorp.vault"))
	assert.False(t, r.IsSupported(""))
}

func TestRegistry_CreateProvider(t *testing.T) {
	t.Parallel()

	r := providers.NewRegistry()

	tests := []struct {
		name    string
		cfg     config.ProviderConfig
		wantErr string
	}{
		{name: "literal", cfg: config.ProviderConfig{Type: "literal", Config: map[string]interface{}{
			"values": map[string]interface{}{"k": "v"},
		}}},
		{name: "literal non string", cfg: config.ProviderConfig{Type: "literal", Config: map[string]interface{}{
			"values": map[string]interface{}{"k": 1},
		}}, wantErr: "must be a string"},
		{name: "env", cfg: config.ProviderConfig{Type: "env"}},
		{name: "keychain", cfg: config.ProviderConfig{Type: "keychain", Config: map[string]interface{}{"service_prefix": "kustoconn"}}},
		{name: "azure missing url", cfg: config.ProviderConfig{Type: "azure.keyvault"}, wantErr: "vault_url"},
		{name: "aws half static keys", cfg: config.ProviderConfig{Type: "aws.secretsmanager", Config: map[string]interface{}{
			"access_key_id": "AKIA",
		}}, wantErr: "must be set together"},
		{name: "unknown", cfg: config.ProviderConfig{Type: "vault"}, wantErr: "unknown provider type"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p, err := r.CreateProvider("p-"+tt.name, tt.cfg)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Nil(t, p)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "p-"+tt.name, p.Name())
		})
	}
}

func TestRegistry_RegisterFactory(t *testing.T) {
	t.Parallel()

	r := providers.NewRegistry()
	r.RegisterFactory("static", func(name string, _ map[string]interface{}) (provider.Provider, error) {
		return providers.NewLiteralProvider(name, map[string]string{"k": "v"}), nil
	})
	p, err := r.CreateProvider("s", config.ProviderConfig{Type: "static"})
	require.NoError(t, err)
	assert.Equal(t, "s", p.Name())
}
