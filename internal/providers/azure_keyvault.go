package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
	json "github.com/goccy/go-json"

	dserrors "github.com/systmms/kustoconn/internal/errors"
	"github.com/systmms/kustoconn/internal/logging"
	"github.com/systmms/kustoconn/pkg/provider"
)

// AzureKeyVaultClientAPI is the subset of azsecrets.Client the provider uses
type AzureKeyVaultClientAPI interface {
	GetSecret(ctx context.Context, name string, version string, options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error)
}

// AzureKeyVaultProvider resolves secrets from Azure Key Vault. Keys have the
// form name[/version][#.json.path].
type AzureKeyVaultProvider struct {
	name     string
	client   AzureKeyVaultClientAPI
	logger   *logging.Logger
	config   AzureKeyVaultConfig
	vaultURL string
}

// AzureKeyVaultConfig holds the vault location and how to authenticate to it
type AzureKeyVaultConfig struct {
	VaultURL           string
	TenantID           string
	ClientID           string
	ClientSecret       string
	UseManagedIdentity bool
	UserAssignedID     string
}

// AzureProviderOption configures NewAzureKeyVaultProvider
type AzureProviderOption func(*AzureKeyVaultProvider)

// WithAzureKeyVaultClient replaces the azsecrets client
func WithAzureKeyVaultClient(client AzureKeyVaultClientAPI) AzureProviderOption {
	return func(p *AzureKeyVaultProvider) {
		p.client = client
	}
}

// WithAzureLogger sets the provider logger
func WithAzureLogger(l *logging.Logger) AzureProviderOption {
	return func(p *AzureKeyVaultProvider) {
		p.logger = l
	}
}

// ParseAzureKeyVaultConfig reads provider settings from kustoconn.yaml
func ParseAzureKeyVaultConfig(configMap map[string]interface{}) (AzureKeyVaultConfig, error) {
	var cfg AzureKeyVaultConfig
	if v, ok := configMap["vault_url"].(string); ok {
		cfg.VaultURL = v
	}
	if v, ok := configMap["tenant_id"].(string); ok {
		cfg.TenantID = v
	}
	if v, ok := configMap["client_id"].(string); ok {
		cfg.ClientID = v
	}
	if v, ok := configMap["client_secret"].(string); ok {
		cfg.ClientSecret = v
	}
	if v, ok := configMap["use_managed_identity"].(bool); ok {
		cfg.UseManagedIdentity = v
	}
	if v, ok := configMap["user_assigned_identity_id"].(string); ok {
		cfg.UserAssignedID = v
	}

	if cfg.VaultURL == "" {
		return cfg, dserrors.ConfigError{
			Field:      "vault_url",
			Message:    "vault_url is required for Azure Key Vault",
			Suggestion: "Provide the Key Vault URL (e.g., https://my-vault.vault.azure.net/)",
		}
	}
	if u, err := url.Parse(cfg.VaultURL); err != nil || u.Scheme != "https" || u.Host == "" {
		return cfg, dserrors.ConfigError{
			Field:      "vault_url",
			Value:      cfg.VaultURL,
			Message:    "invalid vault_url",
			Suggestion: "Use format: https://vault-name.vault.azure.net/",
		}
	}
	if cfg.ClientSecret != "" && (cfg.TenantID == "" || cfg.ClientID == "") {
		return cfg, dserrors.ConfigError{
			Field:      "client_secret",
			Message:    "client_secret requires tenant_id and client_id",
			Suggestion: "Add tenant_id and client_id, or remove client_secret to use DefaultAzureCredential",
		}
	}
	return cfg, nil
}

// NewAzureKeyVaultProvider creates a Key Vault provider
func NewAzureKeyVaultProvider(name string, configMap map[string]interface{}, opts ...AzureProviderOption) (*AzureKeyVaultProvider, error) {
	cfg, err := ParseAzureKeyVaultConfig(configMap)
	if err != nil {
		return nil, err
	}

	p := &AzureKeyVaultProvider{
		name:     name,
		logger:   logging.Discard(),
		config:   cfg,
		vaultURL: cfg.VaultURL,
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.client == nil {
		client, err := newAzureKeyVaultClient(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create Azure Key Vault client: %w", err)
		}
		p.client = client
	}
	return p, nil
}

func azureKeyVaultCredential(cfg AzureKeyVaultConfig) (azcore.TokenCredential, error) {
	switch {
	case cfg.ClientSecret != "":
		return azidentity.NewClientSecretCredential(cfg.TenantID, cfg.ClientID, cfg.ClientSecret, nil)
	case cfg.UseManagedIdentity && cfg.UserAssignedID != "":
		return azidentity.NewManagedIdentityCredential(&azidentity.ManagedIdentityCredentialOptions{
			ID: azidentity.ClientID(cfg.UserAssignedID),
		})
	case cfg.UseManagedIdentity:
		return azidentity.NewManagedIdentityCredential(nil)
	default:
		return azidentity.NewDefaultAzureCredential(&azidentity.DefaultAzureCredentialOptions{TenantID: cfg.TenantID})
	}
}

func newAzureKeyVaultClient(cfg AzureKeyVaultConfig) (*azsecrets.Client, error) {
	cred, err := azureKeyVaultCredential(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure credential: %w", err)
	}
	return azsecrets.NewClient(cfg.VaultURL, cred, nil)
}

// Name returns the provider name
func (p *AzureKeyVaultProvider) Name() string {
	return p.name
}

// Resolve fetches a secret from Azure Key Vault
func (p *AzureKeyVaultProvider) Resolve(ctx context.Context, ref provider.Reference) (provider.SecretValue, error) {
	secretName, version, jsonPath := parseAzureReference(ref.Key)
	if ref.Version != "" {
		version = ref.Version
	}
	if secretName == "" {
		return provider.SecretValue{}, fmt.Errorf("azure key vault reference %q has no secret name", ref.Key)
	}

	p.logger.Debug("Reading Key Vault secret %s from %s", secretName, p.vaultURL)
	resp, err := p.client.GetSecret(ctx, secretName, version, nil)
	if err != nil {
		if isAzureNotFound(err) {
			return provider.SecretValue{}, provider.NotFoundError{Provider: p.name, Key: ref.Key}
		}
		return provider.SecretValue{}, dserrors.ProviderError("azure.keyvault", "resolve", err)
	}
	if resp.Value == nil {
		return provider.SecretValue{}, fmt.Errorf("secret %s has no value", secretName)
	}

	value := *resp.Value
	if jsonPath != "" {
		if value, err = extractJSONPath(value, jsonPath); err != nil {
			return provider.SecretValue{}, dserrors.UserError{
				Message:    fmt.Sprintf("Failed to extract JSON path %s from secret %s", jsonPath, secretName),
				Details:    err.Error(),
				Suggestion: "Check that the secret contains valid JSON and the path exists",
			}
		}
	}

	sv := provider.SecretValue{
		Value:    value,
		Metadata: map[string]string{"source": "azure-kv:" + secretName, "vault_url": p.vaultURL},
	}
	if resp.ID != nil {
		sv.Version = resp.ID.Version()
	}
	if resp.Attributes != nil && resp.Attributes.Updated != nil {
		sv.UpdatedAt = *resp.Attributes.Updated
		sv.Metadata["updated_at"] = resp.Attributes.Updated.Format(time.RFC3339)
	}
	return sv, nil
}

// Describe reports whether the secret exists
func (p *AzureKeyVaultProvider) Describe(ctx context.Context, ref provider.Reference) (provider.Metadata, error) {
	secretName, version, _ := parseAzureReference(ref.Key)
	resp, err := p.client.GetSecret(ctx, secretName, version, nil)
	if err != nil {
		if isAzureNotFound(err) {
			return provider.Metadata{Exists: false}, nil
		}
		return provider.Metadata{}, dserrors.ProviderError("azure.keyvault", "describe", err)
	}

	md := provider.Metadata{
		Exists: true,
		Type:   "azure-secret",
		Tags:   map[string]string{"vault_url": p.vaultURL},
	}
	if resp.ID != nil {
		md.Version = resp.ID.Version()
	}
	if resp.Attributes != nil && resp.Attributes.Updated != nil {
		md.UpdatedAt = *resp.Attributes.Updated
	}
	if resp.ContentType != nil {
		md.Tags["content_type"] = *resp.ContentType
	}
	return md, nil
}

// Capabilities returns the provider's capabilities
func (p *AzureKeyVaultProvider) Capabilities() provider.Capabilities {
	return provider.Capabilities{
		SupportsVersioning: true,
		SupportsMetadata:   true,
		RequiresAuth:       true,
		AuthMethods:        []string{"managed_identity", "service_principal", "default_credential"},
	}
}

// Validate lists one page of secrets when talking to a real vault
func (p *AzureKeyVaultProvider) Validate(ctx context.Context) error {
	realClient, ok := p.client.(*azsecrets.Client)
	if !ok {
		return nil
	}
	pager := realClient.NewListSecretPropertiesPager(nil)
	if _, err := pager.NextPage(ctx); err != nil {
		return dserrors.ProviderError("azure.keyvault", "validate", err)
	}
	return nil
}

func parseAzureReference(ref string) (secretName, version, jsonPath string) {
	if i := strings.Index(ref, "#"); i >= 0 {
		ref, jsonPath = ref[:i], ref[i+1:]
	}
	secretName, version, _ = strings.Cut(ref, "/")
	return secretName, version, jsonPath
}

func isAzureNotFound(err error) bool {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		return respErr.StatusCode == http.StatusNotFound
	}
	return false
}

// extractJSONPath walks a dotted path such as .app.key or .keys.0 through
// a JSON secret. Objects and arrays at the end are returned as JSON text.
func extractJSONPath(jsonStr, path string) (string, error) {
	var current interface{}
	if err := json.Unmarshal([]byte(jsonStr), &current); err != nil {
		return "", fmt.Errorf("invalid JSON: %w", err)
	}

	for _, part := range strings.Split(strings.TrimPrefix(path, "."), ".") {
		if part == "" {
			continue
		}
		switch v := current.(type) {
		case map[string]interface{}:
			next, ok := v[part]
			if !ok {
				return "", fmt.Errorf("path not found: %s", part)
			}
			current = next
		case []interface{}:
			index, err := strconv.Atoi(part)
			if err != nil || index < 0 || index >= len(v) {
				return "", fmt.Errorf("invalid array index: %s", part)
			}
			current = v[index]
		default:
			return "", fmt.Errorf("cannot traverse path at: %s", part)
		}
	}

	switch v := current.(type) {
	case string:
		return v, nil
	case nil:
		return "", nil
	default:
		out, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("failed to marshal result: %w", err)
		}
		return string(out), nil
	}
}
