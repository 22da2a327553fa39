package providers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dserrors "github.com/systmms/kustoconn/internal/errors"
	"github.com/systmms/kustoconn/pkg/provider"
)

type fakeSecretsManager struct {
	secrets map[string]string
	err     error
	inputs  []*secretsmanager.GetSecretValueInput
}

func (f *fakeSecretsManager) GetSecretValue(_ context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	v, ok := f.secrets[aws.ToString(in.SecretId)]
	if !ok {
		return nil, &types.ResourceNotFoundException{Message: aws.String("not found")}
	}
	created := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	return &secretsmanager.GetSecretValueOutput{
		SecretString:  aws.String(v),
		VersionId:     aws.String("11111111-2222-3333-4444-555555555555"),
		VersionStages: []string{"AWSCURRENT"},
		CreatedDate:   &created,
	}, nil
}

func (f *fakeSecretsManager) DescribeSecret(_ context.Context, in *secretsmanager.DescribeSecretInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.DescribeSecretOutput, error) {
	if _, ok := f.secrets[aws.ToString(in.SecretId)]; !ok {
		return nil, &types.ResourceNotFoundException{Message: aws.String("not found")}
	}
	return &secretsmanager.DescribeSecretOutput{
		VersionIdsToStages: map[string][]string{
			"old": {"AWSPREVIOUS"},
			"new": {"AWSCURRENT"},
		},
		Tags: []types.Tag{{Key: aws.String("team"), Value: aws.String("data")}},
	}, nil
}

func (f *fakeSecretsManager) ListSecrets(context.Context, *secretsmanager.ListSecretsInput, ...func(*secretsmanager.Options)) (*secretsmanager.ListSecretsOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &secretsmanager.ListSecretsOutput{}, nil
}

func newTestSecretsManager(t *testing.T, fake *fakeSecretsManager) *AWSSecretsManagerProvider {
	t.Helper()
	p, err := NewAWSSecretsManagerProvider("aws", map[string]interface{}{"region": "eu-west-1"}, WithSecretsManagerClient(fake))
	require.NoError(t, err)
	return p
}

func TestAWSSecretsManager_Resolve(t *testing.T) {
	t.Parallel()

	fake := &fakeSecretsManager{secrets: map[string]string{
		"kusto/app":  `{"client":{"key":"k3y"}}`,
		"kusto/pass": "hunter2",
	}}
	p := newTestSecretsManager(t, fake)

	sv, err := p.Resolve(context.Background(), provider.Reference{Key: "kusto/pass"})
	require.NoError(t, err)
	assert.Equal(t, "hunter2", sv.Value)
	assert.Equal(t, "11111111-2222-3333-4444-555555555555", sv.Version)
	assert.Equal(t, "eu-west-1", sv.Metadata["region"])
	assert.Equal(t, "AWSCURRENT", sv.Metadata["version_stage"])

	sv, err = p.Resolve(context.Background(), provider.Reference{Key: "kusto/app#.client.key"})
	require.NoError(t, err)
	assert.Equal(t, "k3y", sv.Value)

	_, err = p.Resolve(context.Background(), provider.Reference{Key: "kusto/app#.client.missing"})
	var ue dserrors.UserError
	assert.ErrorAs(t, err, &ue)
}

func TestAWSSecretsManager_Versions(t *testing.T) {
	t.Parallel()

	fake := &fakeSecretsManager{secrets: map[string]string{"s": "v"}}
	p := newTestSecretsManager(t, fake)

	for _, version := range []string{"", "latest", "AWSPREVIOUS", "aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee"} {
		_, err := p.Resolve(context.Background(), provider.Reference{Key: "s", Version: version})
		require.NoError(t, err)
	}
	require.Len(t, fake.inputs, 4)
	assert.Nil(t, fake.inputs[0].VersionStage)
	assert.Nil(t, fake.inputs[1].VersionId)
	assert.Equal(t, "AWSPREVIOUS", aws.ToString(fake.inputs[2].VersionStage))
	assert.Equal(t, "aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee", aws.ToString(fake.inputs[3].VersionId))
}

func TestAWSSecretsManager_Errors(t *testing.T) {
	t.Parallel()

	p := newTestSecretsManager(t, &fakeSecretsManager{secrets: map[string]string{}})
	_, err := p.Resolve(context.Background(), provider.Reference{Key: "missing"})
	var nf provider.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "missing", nf.Key)

	_, err = p.Resolve(context.Background(), provider.Reference{Key: "#.x"})
	assert.Error(t, err)

	denied := &smithy.GenericAPIError{Code: "AccessDeniedException", Message: "not allowed"}
	p = newTestSecretsManager(t, &fakeSecretsManager{err: denied})
	_, err = p.Resolve(context.Background(), provider.Reference{Key: "s"})
	var ae provider.AuthError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "not allowed", ae.Message)
	assert.Error(t, p.Validate(context.Background()))

	boom := errors.New("boom")
	p = newTestSecretsManager(t, &fakeSecretsManager{err: boom})
	_, err = p.Resolve(context.Background(), provider.Reference{Key: "s"})
	assert.ErrorIs(t, err, boom)
}

func TestAWSSecretsManager_Describe(t *testing.T) {
	t.Parallel()

	p := newTestSecretsManager(t, &fakeSecretsManager{secrets: map[string]string{"s": "v"}})
	md, err := p.Describe(context.Background(), provider.Reference{Key: "s#.field"})
	require.NoError(t, err)
	assert.True(t, md.Exists)
	assert.Equal(t, "new", md.Version)
	assert.Equal(t, "data", md.Tags["team"])

	md, err = p.Describe(context.Background(), provider.Reference{Key: "other"})
	require.NoError(t, err)
	assert.False(t, md.Exists)

	assert.NoError(t, p.Validate(context.Background()))
}
