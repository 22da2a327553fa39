package providers

import (
	"context"
	"fmt"
	"os"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/impersonate"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	dserrors "github.com/systmms/kustoconn/internal/errors"
	"github.com/systmms/kustoconn/internal/logging"
	"github.com/systmms/kustoconn/pkg/provider"
)

// GCPSecretManagerClientAPI is the subset of secretmanager.Client the provider uses
type GCPSecretManagerClientAPI interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
	GetSecret(ctx context.Context, req *secretmanagerpb.GetSecretRequest, opts ...gax.CallOption) (*secretmanagerpb.Secret, error)
}

// GCPSecretManagerProvider resolves secrets from Google Cloud Secret Manager.
// Keys are a secret name or full resource name, optionally followed by
// @version and #.json.path.
type GCPSecretManagerProvider struct {
	name      string
	projectID string
	client    GCPSecretManagerClientAPI
	logger    *logging.Logger
}

// GCPProviderOption configures NewGCPSecretManagerProvider
type GCPProviderOption func(*GCPSecretManagerProvider)

// WithGCPSecretManagerClient replaces the Secret Manager client
func WithGCPSecretManagerClient(client GCPSecretManagerClientAPI) GCPProviderOption {
	return func(p *GCPSecretManagerProvider) {
		p.client = client
	}
}

// NewGCPSecretManagerProvider builds a provider from kustoconn.yaml settings:
// project_id (falls back to GOOGLE_CLOUD_PROJECT), credentials_file and
// impersonate_service_account.
func NewGCPSecretManagerProvider(name string, configMap map[string]interface{}, opts ...GCPProviderOption) (*GCPSecretManagerProvider, error) {
	p := &GCPSecretManagerProvider{
		name:      name,
		projectID: stringSetting(configMap, "project_id"),
		logger:    logging.Discard(),
	}
	if p.projectID == "" {
		p.projectID = os.Getenv("GOOGLE_CLOUD_PROJECT")
	}
	if p.projectID == "" {
		return nil, dserrors.ConfigError{
			Field:      "providers." + name + ".project_id",
			Message:    "project_id is required for gcp.secretmanager",
			Suggestion: "Set project_id or export GOOGLE_CLOUD_PROJECT",
		}
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.client != nil {
		return p, nil
	}

	ctx := context.Background()
	var clientOpts []option.ClientOption
	if file := stringSetting(configMap, "credentials_file"); file != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(file))
	}
	if target := stringSetting(configMap, "impersonate_service_account"); target != "" {
		ts, err := impersonate.CredentialsTokenSource(ctx, impersonate.CredentialsConfig{
			TargetPrincipal: target,
			Scopes:          []string{"https://www.googleapis.com/auth/cloud-platform"},
		}, clientOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to impersonate %s: %w", target, err)
		}
		clientOpts = []option.ClientOption{option.WithTokenSource(ts)}
	}
	client, err := secretmanager.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCP Secret Manager client: %w", err)
	}
	p.client = client
	return p, nil
}

// Name returns the provider name
func (p *GCPSecretManagerProvider) Name() string {
	return p.name
}

// Resolve fetches a secret version
func (p *GCPSecretManagerProvider) Resolve(ctx context.Context, ref provider.Reference) (provider.SecretValue, error) {
	secret, version, jsonPath := parseGCPReference(ref.Key)
	if ref.Version != "" {
		version = ref.Version
	}
	if secret == "" {
		return provider.SecretValue{}, fmt.Errorf("gcp secret manager reference %q has no secret name", ref.Key)
	}
	name := p.secretResource(secret) + "/versions/" + version

	p.logger.Debug("Reading Secret Manager version %s", name)
	resp, err := p.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		return provider.SecretValue{}, p.handleError(err, ref.Key, "resolve")
	}
	if resp.GetPayload() == nil {
		return provider.SecretValue{}, fmt.Errorf("secret %s has no payload", secret)
	}

	value := string(resp.GetPayload().GetData())
	if jsonPath != "" {
		if value, err = extractJSONPath(value, jsonPath); err != nil {
			return provider.SecretValue{}, dserrors.UserError{
				Message:    fmt.Sprintf("Failed to extract JSON path %s from secret %s", jsonPath, secret),
				Details:    err.Error(),
				Suggestion: "Check that the secret contains valid JSON and the path exists",
			}
		}
	}

	sv := provider.SecretValue{
		Value:    value,
		Metadata: map[string]string{"source": "gcp-sm:" + name, "project_id": p.projectID},
	}
	if full := resp.GetName(); full != "" {
		sv.Version = full[strings.LastIndex(full, "/")+1:]
	}
	return sv, nil
}

// Describe reports whether the secret exists and its labels
func (p *GCPSecretManagerProvider) Describe(ctx context.Context, ref provider.Reference) (provider.Metadata, error) {
	secret, _, _ := parseGCPReference(ref.Key)
	s, err := p.client.GetSecret(ctx, &secretmanagerpb.GetSecretRequest{Name: p.secretResource(secret)})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return provider.Metadata{Exists: false}, nil
		}
		return provider.Metadata{}, p.handleError(err, ref.Key, "describe")
	}

	md := provider.Metadata{Exists: true, Type: "gcp-secret", Tags: map[string]string{}}
	if s.GetCreateTime() != nil {
		md.UpdatedAt = s.GetCreateTime().AsTime()
	}
	for k, v := range s.GetLabels() {
		md.Tags["label."+k] = v
	}
	return md, nil
}

// Capabilities returns provider capabilities
func (p *GCPSecretManagerProvider) Capabilities() provider.Capabilities {
	return provider.Capabilities{
		SupportsVersioning: true,
		SupportsMetadata:   true,
		RequiresAuth:       true,
		AuthMethods:        []string{"application-default", "credentials-file", "impersonation"},
	}
}

// Validate lists one secret in the project. Injected clients skip the check.
func (p *GCPSecretManagerProvider) Validate(ctx context.Context) error {
	client, ok := p.client.(*secretmanager.Client)
	if !ok {
		return nil
	}
	it := client.ListSecrets(ctx, &secretmanagerpb.ListSecretsRequest{
		Parent:   "projects/" + p.projectID,
		PageSize: 1,
	})
	if _, err := it.Next(); err != nil && err != iterator.Done {
		return p.handleError(err, "", "validate")
	}
	return nil
}

func (p *GCPSecretManagerProvider) secretResource(secret string) string {
	if strings.HasPrefix(secret, "projects/") {
		return secret
	}
	return "projects/" + p.projectID + "/secrets/" + secret
}

func (p *GCPSecretManagerProvider) handleError(err error, key, op string) error {
	switch status.Code(err) {
	case codes.NotFound:
		return provider.NotFoundError{Provider: p.name, Key: key}
	case codes.Unauthenticated, codes.PermissionDenied:
		return provider.AuthError{Provider: p.name, Message: status.Convert(err).Message()}
	}
	return dserrors.ProviderError("gcp.secretmanager", op, err)
}

// parseGCPReference splits name[@version][#.json.path]. A full resource name
// that already carries /versions/<v> keeps that version.
func parseGCPReference(ref string) (secret, version, jsonPath string) {
	secret, jsonPath = splitJSONPath(ref)
	version = "latest"
	if i := strings.Index(secret, "/versions/"); i >= 0 {
		return secret[:i], secret[i+len("/versions/"):], jsonPath
	}
	if i := strings.LastIndex(secret, "@"); i >= 0 {
		secret, version = secret[:i], secret[i+1:]
	}
	return secret, version, jsonPath
}
