package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/aws/smithy-go"

	dserrors "github.com/systmms/kustoconn/internal/errors"
	"github.com/systmms/kustoconn/internal/logging"
	"github.com/systmms/kustoconn/pkg/provider"
)

// SecretsManagerClientAPI is the subset of secretsmanager.Client the provider uses
type SecretsManagerClientAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
	DescribeSecret(ctx context.Context, params *secretsmanager.DescribeSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.DescribeSecretOutput, error)
	ListSecrets(ctx context.Context, params *secretsmanager.ListSecretsInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.ListSecretsOutput, error)
}

// AWSSecretsManagerProvider resolves secrets from AWS Secrets Manager. Keys
// have the form secret-id[#.json.path]; Reference.Version is a version id
// (a UUID) or a staging label such as AWSPREVIOUS.
type AWSSecretsManagerProvider struct {
	name   string
	region string
	client SecretsManagerClientAPI
	logger *logging.Logger
}

// AWSProviderOption configures NewAWSSecretsManagerProvider
type AWSProviderOption func(*AWSSecretsManagerProvider)

// WithSecretsManagerClient replaces the Secrets Manager client
func WithSecretsManagerClient(client SecretsManagerClientAPI) AWSProviderOption {
	return func(p *AWSSecretsManagerProvider) {
		p.client = client
	}
}

// NewAWSSecretsManagerProvider builds a provider from kustoconn.yaml settings:
// region (default us-east-1), endpoint, and access_key_id/secret_access_key
// for static credentials. Without static credentials the default AWS chain is
// used.
func NewAWSSecretsManagerProvider(name string, configMap map[string]interface{}, opts ...AWSProviderOption) (*AWSSecretsManagerProvider, error) {
	region := stringSetting(configMap, "region")
	if region == "" {
		region = "us-east-1"
	}
	p := &AWSSecretsManagerProvider{name: name, region: region, logger: logging.Discard()}
	for _, opt := range opts {
		opt(p)
	}
	if p.client != nil {
		return p, nil
	}

	accessKey, secretKey := stringSetting(configMap, "access_key_id"), stringSetting(configMap, "secret_access_key")
	if (accessKey == "") != (secretKey == "") {
		return nil, dserrors.ConfigError{
			Field:      "providers." + name,
			Message:    "access_key_id and secret_access_key must be set together",
			Suggestion: "Set both, or neither to use the default AWS credential chain",
		}
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if accessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		))
	}
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var clientOpts []func(*secretsmanager.Options)
	if endpoint := stringSetting(configMap, "endpoint"); endpoint != "" {
		clientOpts = append(clientOpts, func(o *secretsmanager.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
	}
	p.client = secretsmanager.NewFromConfig(cfg, clientOpts...)
	return p, nil
}

// Name returns the provider name
func (p *AWSSecretsManagerProvider) Name() string {
	return p.name
}

// Resolve fetches a secret value
func (p *AWSSecretsManagerProvider) Resolve(ctx context.Context, ref provider.Reference) (provider.SecretValue, error) {
	secretID, jsonPath := splitJSONPath(ref.Key)
	if secretID == "" {
		return provider.SecretValue{}, fmt.Errorf("aws secrets manager reference %q has no secret id", ref.Key)
	}

	input := &secretsmanager.GetSecretValueInput{SecretId: aws.String(secretID)}
	switch {
	case ref.Version == "" || ref.Version == "latest":
	case isAWSVersionID(ref.Version):
		input.VersionId = aws.String(ref.Version)
	default:
		input.VersionStage = aws.String(ref.Version)
	}

	p.logger.Debug("Reading Secrets Manager secret %s in %s", secretID, p.region)
	out, err := p.client.GetSecretValue(ctx, input)
	if err != nil {
		return provider.SecretValue{}, p.handleError(err, ref.Key, "resolve")
	}

	var value string
	switch {
	case out.SecretString != nil:
		value = *out.SecretString
	case out.SecretBinary != nil:
		value = string(out.SecretBinary)
	default:
		return provider.SecretValue{}, fmt.Errorf("secret %s has no value", secretID)
	}

	if jsonPath != "" {
		if value, err = extractJSONPath(value, jsonPath); err != nil {
			return provider.SecretValue{}, dserrors.UserError{
				Message:    fmt.Sprintf("Failed to extract JSON path %s from secret %s", jsonPath, secretID),
				Details:    err.Error(),
				Suggestion: "Check that the secret contains valid JSON and the path exists",
			}
		}
	}

	sv := provider.SecretValue{
		Value:    value,
		Version:  aws.ToString(out.VersionId),
		Metadata: map[string]string{"source": "aws-sm:" + secretID, "region": p.region},
	}
	if len(out.VersionStages) > 0 {
		sv.Metadata["version_stage"] = out.VersionStages[0]
	}
	if out.CreatedDate != nil {
		sv.UpdatedAt = *out.CreatedDate
	}
	return sv, nil
}

// Describe reports whether the secret exists and its current version
func (p *AWSSecretsManagerProvider) Describe(ctx context.Context, ref provider.Reference) (provider.Metadata, error) {
	secretID, _ := splitJSONPath(ref.Key)
	out, err := p.client.DescribeSecret(ctx, &secretsmanager.DescribeSecretInput{SecretId: aws.String(secretID)})
	if err != nil {
		if isAWSNotFound(err) {
			return provider.Metadata{Exists: false}, nil
		}
		return provider.Metadata{}, p.handleError(err, ref.Key, "describe")
	}

	md := provider.Metadata{Exists: true, Type: "aws-secret", Tags: map[string]string{}}
	for id, stages := range out.VersionIdsToStages {
		for _, stage := range stages {
			if stage == "AWSCURRENT" {
				md.Version = id
			}
		}
	}
	if out.LastChangedDate != nil {
		md.UpdatedAt = *out.LastChangedDate
	}
	for _, tag := range out.Tags {
		md.Tags[aws.ToString(tag.Key)] = aws.ToString(tag.Value)
	}
	return md, nil
}

// Capabilities returns provider capabilities
func (p *AWSSecretsManagerProvider) Capabilities() provider.Capabilities {
	return provider.Capabilities{
		SupportsVersioning: true,
		SupportsMetadata:   true,
		RequiresAuth:       true,
		AuthMethods:        []string{"static-keys", "aws-default-chain"},
	}
}

// Validate lists one secret to prove the credentials work
func (p *AWSSecretsManagerProvider) Validate(ctx context.Context) error {
	if _, err := p.client.ListSecrets(ctx, &secretsmanager.ListSecretsInput{MaxResults: aws.Int32(1)}); err != nil {
		return provider.AuthError{Provider: p.name, Message: err.Error()}
	}
	return nil
}

func (p *AWSSecretsManagerProvider) handleError(err error, key, op string) error {
	if isAWSNotFound(err) {
		return provider.NotFoundError{Provider: p.name, Key: key}
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDeniedException", "UnrecognizedClientException", "ExpiredTokenException":
			return provider.AuthError{Provider: p.name, Message: apiErr.ErrorMessage()}
		}
	}
	return dserrors.ProviderError("aws.secretsmanager", op, err)
}

func isAWSNotFound(err error) bool {
	var nf *types.ResourceNotFoundException
	return errors.As(err, &nf)
}

// version ids are UUIDs; anything else is a staging label
func isAWSVersionID(v string) bool {
	return len(v) == 36 && strings.Count(v, "-") == 4
}

// splitJSONPath splits key#.json.path
func splitJSONPath(key string) (name, jsonPath string) {
	if i := strings.Index(key, "#"); i >= 0 {
		return key[:i], key[i+1:]
	}
	return key, ""
}

func stringSetting(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}
