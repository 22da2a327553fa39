package connstring_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/systmms/kustoconn/pkg/connstring"
)

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		input     string
		wantErr   error
		wantModes []connstring.CredentialMode
	}{
		{
			name:  "data source only",
			input: "Data Source=https://x.kusto.windows.net",
		},
		{
			name:  "federated without credential",
			input: "Data Source=x;Fed=true;Authority Id=t",
		},
		{
			name:    "missing data source",
			input:   "Initial Catalog=db;AppClientId=c;AppKey=k;AppCert=thumb",
			wantErr: connstring.ErrMissingDataSource,
		},
		{
			name:      "application key valid",
			input:     "Data Source=x;AppClientId=c;AppKey=k;Authority Id=t",
			wantModes: nil,
		},
		{
			name:      "key and certificate conflict",
			input:     "Data Source=x;AppClientId=c;AppKey=k;AppCert=thumb;Authority Id=t",
			wantErr:   connstring.ErrConflictingCredentials,
			wantModes: []connstring.CredentialMode{connstring.ModeApplicationKey, connstring.ModeApplicationCertificate},
		},
		{
			name:      "tokens conflict",
			input:     "Data Source=x;Application Token=a;User Token=u",
			wantErr:   connstring.ErrConflictingCredentials,
			wantModes: []connstring.CredentialMode{connstring.ModeUserToken, connstring.ModeApplicationToken},
		},
		{
			name:    "all modes reported in precedence order",
			input:   "Data Source=x;AppToken=a;UsrToken=u;Application Certificate Path=/c.pem;AppKey=k;Pwd=p",
			wantErr: connstring.ErrConflictingCredentials,
			wantModes: []connstring.CredentialMode{
				connstring.ModeUserPassword,
				connstring.ModeApplicationKey,
				connstring.ModeApplicationCertificate,
				connstring.ModeUserToken,
				connstring.ModeApplicationToken,
			},
		},
		{
			name:      "application key without client id",
			input:     "Data Source=x;AppKey=k;Authority Id=t",
			wantErr:   connstring.ErrMissingClientID,
			wantModes: []connstring.CredentialMode{connstring.ModeApplicationKey},
		},
		{
			name:      "certificate without client id",
			input:     "Data Source=x;Application Certificate Blob=QUJD;Authority Id=t",
			wantErr:   connstring.ErrMissingClientID,
			wantModes: []connstring.CredentialMode{connstring.ModeApplicationCertificate},
		},
		{
			name:      "application key without tenant",
			input:     "Data Source=x;AppClientId=c;AppKey=k",
			wantErr:   connstring.ErrMissingTenant,
			wantModes: []connstring.CredentialMode{connstring.ModeApplicationKey},
		},
		{
			name:      "application key without client id or tenant",
			input:     "Data Source=x;AppKey=k",
			wantErr:   connstring.ErrMissingTenant,
			wantModes: []connstring.CredentialMode{connstring.ModeApplicationKey},
		},
		{
			name:      "password without user id",
			input:     "Data Source=x;Password=p;Authority Id=t",
			wantErr:   connstring.ErrMissingUserID,
			wantModes: []connstring.CredentialMode{connstring.ModeUserPassword},
		},
		{
			name:      "password without tenant",
			input:     "Data Source=x;User ID=u;Password=p",
			wantErr:   connstring.ErrMissingTenant,
			wantModes: []connstring.CredentialMode{connstring.ModeUserPassword},
		},
		{
			name:  "user token needs no tenant",
			input: "Data Source=x;User Token=tok",
		},
		{
			name:  "application token needs no tenant",
			input: "Data Source=x;Application Token=tok",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s, err := connstring.Parse(tt.input)
			require.NoError(t, err)

			err = connstring.Validate(s)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)

			var ve *connstring.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.wantModes, ve.Modes)
		})
	}
}

func TestValidate_ConflictMessageListsModes(t *testing.T) {
	t.Parallel()

	s := connstring.MustParse("Data Source=x;AppClientId=c;AppKey=k;AppCert=thumb;Authority Id=t")
	err := connstring.Validate(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[application-key, application-certificate]")
	assert.NotContains(t, err.Error(), "thumb")
	assert.Equal(t, connstring.KindConflictingCredentials, connstring.KindOf(err))
}

func TestCredentialModeOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, connstring.ModeNone, connstring.CredentialModeOf(connstring.MustParse("Data Source=x")))
	assert.Equal(t, connstring.ModeUserToken, connstring.CredentialModeOf(connstring.MustParse("Data Source=x;UsrToken=t")))
	assert.Equal(t, connstring.ModeApplicationKey,
		connstring.CredentialModeOf(connstring.MustParse("Data Source=x;AppToken=a;AppKey=k")))
}

func TestCredentialMode_RequiresTenant(t *testing.T) {
	t.Parallel()

	assert.True(t, connstring.ModeUserPassword.RequiresTenant())
	assert.True(t, connstring.ModeApplicationKey.RequiresTenant())
	assert.True(t, connstring.ModeApplicationCertificate.RequiresTenant())
	assert.False(t, connstring.ModeUserToken.RequiresTenant())
	assert.False(t, connstring.ModeApplicationToken.RequiresTenant())
	assert.False(t, connstring.ModeNone.RequiresTenant())
}

func TestSettings_Certificate(t *testing.T) {
	t.Parallel()

	s := connstring.MustParse("Data Source=x;AppCert=thumb;Application Certificate Path=/c.pem")
	src, v := s.Certificate()
	assert.Equal(t, connstring.CertificatePath, src)
	assert.Equal(t, "/c.pem", v)

	s, err := s.With(connstring.ApplicationCertificateBlob, "QUJD")
	require.NoError(t, err)
	src, v = s.Certificate()
	assert.Equal(t, connstring.CertificateBlob, src)
	assert.Equal(t, "QUJD", v)

	src, _ = connstring.MustParse("Data Source=x").Certificate()
	assert.Equal(t, connstring.CertificateNone, src)
	assert.Equal(t, "none", src.String())
}
