package connstring

import "encoding/base64"

// credentialKeywords are cleared whenever a builder switches credential mode.
var credentialKeywords = []string{
	UserID,
	Password,
	ApplicationClientID,
	ApplicationKey,
	ApplicationCertificateThumbprint,
	ApplicationCertificateBlob,
	ApplicationCertificatePath,
	ApplicationCertificateX5C,
	AuthorityID,
	ApplicationToken,
	UserToken,
}

// Builder assembles Settings programmatically. Each With* credential method
// replaces any credential set before it, so the result holds one mode.
// The first error is kept and returned by Build.
type Builder struct {
	s   Settings
	err error
}

// NewBuilder starts a builder for the given cluster URL.
func NewBuilder(dataSource string) *Builder {
	b := &Builder{s: Settings{}.clone()}
	return b.Set(DataSource, dataSource)
}

// FromSettings starts a builder from existing settings.
func FromSettings(s Settings) *Builder {
	return &Builder{s: s.clone()}
}

// Set assigns any supported keyword by name or alias.
func (b *Builder) Set(key, value string) *Builder {
	if b.err != nil {
		return b
	}
	kw, ok := registry.find(key)
	if !ok || !kw.Supported {
		b.err = unknownKeyError(key, ok, 0)
		return b
	}
	if err := b.s.set(kw, value); err != nil {
		b.err = err
	}
	return b
}

func (b *Builder) resetCredentials() *Builder {
	for _, name := range credentialKeywords {
		delete(b.s.values, name)
	}
	return b.Set(FederatedSecurity, "true")
}

// WithDatabase sets the default database.
func (b *Builder) WithDatabase(database string) *Builder {
	return b.Set(InitialCatalog, database)
}

// WithAadUserPassword authenticates as an AAD user with a password.
func (b *Builder) WithAadUserPassword(user, password, authorityID string) *Builder {
	return b.resetCredentials().
		Set(UserID, user).
		Set(Password, password).
		Set(AuthorityID, authorityID)
}

// WithAadAppKey authenticates as an AAD application with a client secret.
func (b *Builder) WithAadAppKey(appID, appKey, authorityID string) *Builder {
	return b.resetCredentials().
		Set(ApplicationClientID, appID).
		Set(ApplicationKey, appKey).
		Set(AuthorityID, authorityID)
}

// WithAppCertificatePath authenticates as an AAD application with a PEM or
// PKCS#12 certificate read from disk.
func (b *Builder) WithAppCertificatePath(appID, path string, sendX5C bool, authorityID string) *Builder {
	return b.resetCredentials().
		Set(ApplicationClientID, appID).
		Set(ApplicationCertificatePath, path).
		Set(ApplicationCertificateX5C, boolString(sendX5C)).
		Set(AuthorityID, authorityID)
}

// WithAppCertificateBlob authenticates with certificate bytes, stored base64
// encoded.
func (b *Builder) WithAppCertificateBlob(appID string, certificate []byte, sendX5C bool, authorityID string) *Builder {
	return b.resetCredentials().
		Set(ApplicationClientID, appID).
		Set(ApplicationCertificateBlob, base64.StdEncoding.EncodeToString(certificate)).
		Set(ApplicationCertificateX5C, boolString(sendX5C)).
		Set(AuthorityID, authorityID)
}

// WithAppCertificateThumbprint authenticates with a certificate looked up by
// thumbprint in the local certificate store.
func (b *Builder) WithAppCertificateThumbprint(appID, thumbprint, authorityID string) *Builder {
	return b.resetCredentials().
		Set(ApplicationClientID, appID).
		Set(ApplicationCertificateThumbprint, thumbprint).
		Set(AuthorityID, authorityID)
}

// WithUserToken authenticates with a pre-acquired user access token.
func (b *Builder) WithUserToken(token string) *Builder {
	return b.resetCredentials().Set(UserToken, token)
}

// WithApplicationToken authenticates with a pre-acquired application token.
func (b *Builder) WithApplicationToken(token string) *Builder {
	return b.resetCredentials().Set(ApplicationToken, token)
}

// WithDefaultAzureCredential enables AAD authentication without an explicit
// credential, leaving the choice to the ambient environment.
func (b *Builder) WithDefaultAzureCredential(authorityID string) *Builder {
	return b.resetCredentials().Set(AuthorityID, authorityID)
}

// WithTracing sets the tracing identifiers sent with each request.
func (b *Builder) WithTracing(application, user, version string) *Builder {
	return b.Set(ApplicationNameForTracing, application).
		Set(UserNameForTracing, user).
		Set(ClientVersionForTracing, version)
}

// Build returns the assembled settings, or the first error encountered.
func (b *Builder) Build() (Settings, error) {
	if b.err != nil {
		return Settings{}, b.err
	}
	return b.s.clone(), nil
}

func boolString(v bool) string {
	if v {
		return "true"
	}
	return "false"
}
