package auth_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/kustoconn/internal/auth"
	"github.com/systmms/kustoconn/pkg/connstring"
)

const tenant = "72f988bf-86f1-41af-91ab-2d7cd011db47"

func TestSelect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    auth.Strategy
		wantErr error
	}{
		{"anonymous", "Data Source=https://x.kusto.windows.net", auth.StrategyAnonymous, nil},
		{"federated default", "Data Source=https://x.kusto.windows.net;Fed=true", auth.StrategyDefault, nil},
		{"user password", "Data Source=https://x;User ID=u@contoso.com;Password=p;Authority Id=" + tenant, auth.StrategyUserPassword, nil},
		{"application key", "Data Source=https://x;AppClientId=c;AppKey=k;Authority Id=" + tenant, auth.StrategyApplicationKey, nil},
		{"certificate", "Data Source=https://x;AppClientId=c;AppCert=AB12;Authority Id=" + tenant, auth.StrategyApplicationCertificate, nil},
		{"user token", "Data Source=https://x;Fed=true;UsrToken=t", auth.StrategyUserToken, nil},
		{"application token", "Data Source=https://x;AppToken=t", auth.StrategyApplicationToken, nil},
		{"invalid", "Data Source=https://x;AppKey=k;UsrToken=t", auth.StrategyAnonymous, connstring.ErrConflictingCredentials},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := auth.Select(connstring.MustParse(tt.input))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewCredential_Types(t *testing.T) {
	t.Parallel()

	cred, err := auth.NewCredential(connstring.MustParse("Data Source=https://x.kusto.windows.net"), nil)
	require.NoError(t, err)
	assert.Nil(t, cred)

	cred, err = auth.NewCredential(connstring.MustParse("Data Source=https://x;AppClientId=c;AppKey=k;Authority Id="+tenant), nil)
	require.NoError(t, err)
	assert.IsType(t, &azidentity.ClientSecretCredential{}, cred)

	cred, err = auth.NewCredential(connstring.MustParse("Data Source=https://x;User ID=u@contoso.com;Password=p;Authority Id="+tenant), nil)
	require.NoError(t, err)
	assert.IsType(t, &azidentity.UsernamePasswordCredential{}, cred)

	cred, err = auth.NewCredential(connstring.MustParse("Data Source=https://x;UsrToken=user-token"), nil)
	require.NoError(t, err)
	assert.IsType(t, &auth.StaticTokenCredential{}, cred)

	_, err = auth.NewCredential(connstring.MustParse("Initial Catalog=db"), nil)
	assert.ErrorIs(t, err, connstring.ErrMissingDataSource)
}

func TestNewCredential_Certificate(t *testing.T) {
	t.Parallel()

	pemBytes := selfSignedPEM(t)

	blob := "Data Source=https://x;AppClientId=c;Application Certificate Blob=" +
		base64.StdEncoding.EncodeToString(pemBytes) + ";SendX5c=true;Authority Id=" + tenant
	cred, err := auth.NewCredential(connstring.MustParse(blob), nil)
	require.NoError(t, err)
	assert.IsType(t, &azidentity.ClientCertificateCredential{}, cred)

	path := filepath.Join(t.TempDir(), "app.pem")
	require.NoError(t, os.WriteFile(path, pemBytes, 0o600))
	cred, err = auth.NewCredential(connstring.MustParse(
		fmt.Sprintf("Data Source=https://x;AppClientId=c;Application Certificate Path=%s;Authority Id=%s", path, tenant)), nil)
	require.NoError(t, err)
	assert.IsType(t, &azidentity.ClientCertificateCredential{}, cred)
}

func TestNewCredential_CertificateErrors(t *testing.T) {
	t.Parallel()

	_, err := auth.NewCredential(connstring.MustParse("Data Source=https://x;AppClientId=c;AppCert=AB12;Authority Id="+tenant), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "thumbprint is not supported")

	_, err = auth.NewCredential(connstring.MustParse("Data Source=https://x;AppClientId=c;Application Certificate Blob=!!;Authority Id="+tenant), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not valid base64")

	_, err = auth.NewCredential(connstring.MustParse(
		"Data Source=https://x;AppClientId=c;Application Certificate Path=/does/not/exist.pem;Authority Id="+tenant), nil)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestStaticTokenCredential(t *testing.T) {
	t.Parallel()

	cred, err := auth.NewStaticTokenCredential("eyJ0eXAi.token")
	require.NoError(t, err)

	tok, err := cred.GetToken(context.Background(), policy.TokenRequestOptions{Scopes: []string{"https://x/.default"}})
	require.NoError(t, err)
	assert.Equal(t, "eyJ0eXAi.token", tok.Token)
	assert.True(t, tok.ExpiresOn.After(time.Now()))
	assert.NotContains(t, fmt.Sprintf("%v", cred), "eyJ0eXAi")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = cred.GetToken(ctx, policy.TokenRequestOptions{})
	assert.ErrorIs(t, err, context.Canceled)

	cred.Destroy()
	_, err = cred.GetToken(context.Background(), policy.TokenRequestOptions{})
	assert.Error(t, err)

	_, err = auth.NewStaticTokenCredential("")
	assert.Error(t, err)
}

func TestScope(t *testing.T) {
	t.Parallel()

	scope, err := auth.Scope(connstring.MustParse("Data Source=https://help.kusto.windows.net/Samples"))
	require.NoError(t, err)
	assert.Equal(t, "https://help.kusto.windows.net/.default", scope)

	_, err = auth.Scope(connstring.MustParse("Data Source=help"))
	assert.Error(t, err)
}

func TestStrategyString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "application-key", auth.StrategyApplicationKey.String())
	assert.Equal(t, "default-azure-credential", auth.StrategyDefault.String())
	assert.Equal(t, "anonymous", auth.StrategyAnonymous.String())
}

func selfSignedPEM(t *testing.T) []byte {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "kustoconn-test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	pkcs8, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)

	out := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	return append(out, pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: pkcs8})...)
}
