package providers

import (
	"context"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/systmms/kustoconn/pkg/provider"
)

type fakeGCPSecrets struct {
	// keyed by projects/<p>/secrets/<name>
	secrets map[string]string
	err     error
	names   []string
}

func (f *fakeGCPSecrets) AccessSecretVersion(_ context.Context, req *secretmanagerpb.AccessSecretVersionRequest, _ ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	f.names = append(f.names, req.GetName())
	if f.err != nil {
		return nil, f.err
	}
	secret := req.GetName()[:strings.Index(req.GetName(), "/versions/")]
	v, ok := f.secrets[secret]
	if !ok {
		return nil, status.Error(codes.NotFound, "secret not found")
	}
	return &secretmanagerpb.AccessSecretVersionResponse{
		Name:    secret + "/versions/7",
		Payload: &secretmanagerpb.SecretPayload{Data: []byte(v)},
	}, nil
}

func (f *fakeGCPSecrets) GetSecret(_ context.Context, req *secretmanagerpb.GetSecretRequest, _ ...gax.CallOption) (*secretmanagerpb.Secret, error) {
	if _, ok := f.secrets[req.GetName()]; !ok {
		return nil, status.Error(codes.NotFound, "secret not found")
	}
	return &secretmanagerpb.Secret{
		Name:       req.GetName(),
		CreateTime: timestamppb.New(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)),
		Labels:     map[string]string{"env": "prod"},
	}, nil
}

func newTestGCP(t *testing.T, fake *fakeGCPSecrets) *GCPSecretManagerProvider {
	t.Helper()
	p, err := NewGCPSecretManagerProvider("gcp", map[string]interface{}{"project_id": "proj"}, WithGCPSecretManagerClient(fake))
	require.NoError(t, err)
	return p
}

func TestParseGCPReference(t *testing.T) {
	t.Parallel()

	tests := []struct {
		ref, secret, version, path string
	}{
		{ref: "app-key", secret: "app-key", version: "latest"},
		{ref: "app-key@3", secret: "app-key", version: "3"},
		{ref: "creds@2#.kusto.key", secret: "creds", version: "2", path: ".kusto.key"},
		{ref: "projects/other/secrets/x/versions/5", secret: "projects/other/secrets/x", version: "5"},
		{ref: "projects/other/secrets/x#.a", secret: "projects/other/secrets/x", version: "latest", path: ".a"},
	}
	for _, tt := range tests {
		secret, version, path := parseGCPReference(tt.ref)
		assert.Equal(t, tt.secret, secret, tt.ref)
		assert.Equal(t, tt.version, version, tt.ref)
		assert.Equal(t, tt.path, path, tt.ref)
	}
}

func TestGCPSecretManager_Resolve(t *testing.T) {
	t.Parallel()

	fake := &fakeGCPSecrets{secrets: map[string]string{
		"projects/proj/secrets/app-key": "s3cret",
		"projects/other/secrets/creds":  `{"kusto":{"key":"nested"}}`,
	}}
	p := newTestGCP(t, fake)

	sv, err := p.Resolve(context.Background(), provider.Reference{Key: "app-key"})
	require.NoError(t, err)
	assert.Equal(t, "s3cret", sv.Value)
	assert.Equal(t, "7", sv.Version)

	sv, err = p.Resolve(context.Background(), provider.Reference{Key: "projects/other/secrets/creds#.kusto.key", Version: "2"})
	require.NoError(t, err)
	assert.Equal(t, "nested", sv.Value)

	assert.Equal(t, []string{
		"projects/proj/secrets/app-key/versions/latest",
		"projects/other/secrets/creds/versions/2",
	}, fake.names)
}

func TestGCPSecretManager_Errors(t *testing.T) {
	t.Parallel()

	p := newTestGCP(t, &fakeGCPSecrets{})
	_, err := p.Resolve(context.Background(), provider.Reference{Key: "missing"})
	var nf provider.NotFoundError
	assert.ErrorAs(t, err, &nf)

	p = newTestGCP(t, &fakeGCPSecrets{err: status.Error(codes.PermissionDenied, "no access")})
	_, err = p.Resolve(context.Background(), provider.Reference{Key: "x"})
	var ae provider.AuthError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "no access", ae.Message)

	p = newTestGCP(t, &fakeGCPSecrets{err: status.Error(codes.Unavailable, "down")})
	_, err = p.Resolve(context.Background(), provider.Reference{Key: "x"})
	assert.Equal(t, codes.Unavailable, status.Code(err))
}

func TestGCPSecretManager_Describe(t *testing.T) {
	t.Parallel()

	p := newTestGCP(t, &fakeGCPSecrets{secrets: map[string]string{"projects/proj/secrets/app-key": "v"}})
	md, err := p.Describe(context.Background(), provider.Reference{Key: "app-key@4"})
	require.NoError(t, err)
	assert.True(t, md.Exists)
	assert.Equal(t, "prod", md.Tags["label.env"])
	assert.Equal(t, 2024, md.UpdatedAt.Year())

	md, err = p.Describe(context.Background(), provider.Reference{Key: "nope"})
	require.NoError(t, err)
	assert.False(t, md.Exists)

	assert.NoError(t, p.Validate(context.Background()))
}

func TestGCPSecretManager_RequiresProject(t *testing.T) {
	t.Setenv("GOOGLE_CLOUD_PROJECT", "")

	_, err := NewGCPSecretManagerProvider("gcp", map[string]interface{}{}, WithGCPSecretManagerClient(&fakeGCPSecrets{}))
	assert.ErrorContains(t, err, "project_id")

	t.Setenv("GOOGLE_CLOUD_PROJECT", "from-env")
	p, err := NewGCPSecretManagerProvider("gcp", map[string]interface{}{}, WithGCPSecretManagerClient(&fakeGCPSecrets{}))
	require.NoError(t, err)
	assert.Equal(t, "projects/from-env/secrets/a", p.secretResource("a"))
}
