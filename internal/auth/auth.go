// Package auth turns validated connection string settings into an Azure
// token credential for the cluster.
package auth

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"

	dserrors "github.com/systmms/kustoconn/internal/errors"
	"github.com/systmms/kustoconn/internal/logging"
	"github.com/systmms/kustoconn/pkg/connstring"
)

// KustoClientAppID is the public client application registered for Kusto
// tools. User-password sign-in uses it when no Application Client Id is set.
const KustoClientAppID = "db662dc1-0cfe-4e1c-a843-19a68e65be58"

// Strategy is the way requests to the cluster are authenticated.
type Strategy int

const (
	StrategyAnonymous Strategy = iota
	StrategyUserPassword
	StrategyApplicationKey
	StrategyApplicationCertificate
	StrategyUserToken
	StrategyApplicationToken
	StrategyDefault
)

func (s Strategy) String() string {
	switch s {
	case StrategyUserPassword:
		return "user-password"
	case StrategyApplicationKey:
		return "application-key"
	case StrategyApplicationCertificate:
		return "application-certificate"
	case StrategyUserToken:
		return "user-token"
	case StrategyApplicationToken:
		return "application-token"
	case StrategyDefault:
		return "default-azure-credential"
	}
	return "anonymous"
}

var modeStrategies = map[connstring.CredentialMode]Strategy{
	connstring.ModeUserPassword:           StrategyUserPassword,
	connstring.ModeApplicationKey:         StrategyApplicationKey,
	connstring.ModeApplicationCertificate: StrategyApplicationCertificate,
	connstring.ModeUserToken:              StrategyUserToken,
	connstring.ModeApplicationToken:       StrategyApplicationToken,
}

// Select validates s and picks the strategy for it. Without an explicit
// credential, AAD Federated Security selects DefaultAzureCredential.
func Select(s connstring.Settings) (Strategy, error) {
	if err := connstring.Validate(s); err != nil {
		return StrategyAnonymous, err
	}
	if st, ok := modeStrategies[connstring.CredentialModeOf(s)]; ok {
		return st, nil
	}
	if s.FederatedSecurity() {
		return StrategyDefault, nil
	}
	return StrategyAnonymous, nil
}

// Options tune credential construction.
type Options struct {
	ClientOptions azcore.ClientOptions
	Logger        *logging.Logger
}

// NewCredential builds the token credential for s. It returns nil, nil for
// the anonymous strategy.
func NewCredential(s connstring.Settings, opts *Options) (azcore.TokenCredential, error) {
	if opts == nil {
		opts = &Options{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	strategy, err := Select(s)
	if err != nil {
		return nil, err
	}
	logger.Debug("Authenticating to %s with %s", s.DataSource(), strategy)

	switch strategy {
	case StrategyUserPassword:
		clientID := s.ApplicationClientID()
		if clientID == "" {
			clientID = KustoClientAppID
		}
		//nolint:staticcheck // username/password flow is still a supported connection string mode
		cred, err := azidentity.NewUsernamePasswordCredential(s.AuthorityID(), clientID, s.UserID(), s.Password(),
			&azidentity.UsernamePasswordCredentialOptions{ClientOptions: opts.ClientOptions})
		if err != nil {
			return nil, fmt.Errorf("user password credential: %w", err)
		}
		return cred, nil

	case StrategyApplicationKey:
		cred, err := azidentity.NewClientSecretCredential(s.AuthorityID(), s.ApplicationClientID(), s.ApplicationKey(),
			&azidentity.ClientSecretCredentialOptions{ClientOptions: opts.ClientOptions})
		if err != nil {
			return nil, fmt.Errorf("application key credential: %w", err)
		}
		return cred, nil

	case StrategyApplicationCertificate:
		return newCertificateCredential(s, opts)

	case StrategyUserToken:
		return NewStaticTokenCredential(s.UserToken())

	case StrategyApplicationToken:
		return NewStaticTokenCredential(s.ApplicationToken())

	case StrategyDefault:
		cred, err := azidentity.NewDefaultAzureCredential(&azidentity.DefaultAzureCredentialOptions{
			ClientOptions: opts.ClientOptions,
			TenantID:      s.AuthorityID(),
		})
		if err != nil {
			return nil, dserrors.UserError{
				Message:    "No ambient Azure credential is available",
				Suggestion: "Run 'az login', configure a managed identity, or put a credential in the connection string",
				Err:        err,
			}
		}
		return cred, nil
	}
	return nil, nil
}

func newCertificateCredential(s connstring.Settings, opts *Options) (azcore.TokenCredential, error) {
	source, value := s.Certificate()

	var data []byte
	switch source {
	case connstring.CertificateBlob:
		decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(value))
		if err != nil {
			return nil, dserrors.UserError{
				Message:    "Application Certificate Blob is not valid base64",
				Suggestion: "Encode the PEM or PKCS#12 file with 'base64 -w0'",
				Err:        err,
			}
		}
		data = decoded
	case connstring.CertificatePath:
		raw, err := os.ReadFile(value)
		if err != nil {
			return nil, fmt.Errorf("reading application certificate: %w", err)
		}
		data = raw
	case connstring.CertificateThumbprint:
		return nil, dserrors.UserError{
			Message:    "Certificate store lookup by thumbprint is not supported on this platform",
			Suggestion: "Use Application Certificate Path or Application Certificate Blob instead",
		}
	}

	certs, key, err := azidentity.ParseCertificates(data, nil)
	if err != nil {
		return nil, fmt.Errorf("parsing application certificate: %w", err)
	}
	cred, err := azidentity.NewClientCertificateCredential(s.AuthorityID(), s.ApplicationClientID(), certs, key,
		&azidentity.ClientCertificateCredentialOptions{
			ClientOptions:        opts.ClientOptions,
			SendCertificateChain: s.SendCertificateChain(),
		})
	if err != nil {
		return nil, fmt.Errorf("application certificate credential: %w", err)
	}
	return cred, nil
}

// Scope returns the token scope for the cluster: its origin plus /.default.
func Scope(s connstring.Settings) (string, error) {
	u, err := url.Parse(s.DataSource())
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", dserrors.ConfigError{
			Field:      connstring.DataSource,
			Value:      s.DataSource(),
			Message:    "must be an absolute URL",
			Suggestion: "Use the form https://<cluster>.<region>.kusto.windows.net",
		}
	}
	return u.Scheme + "://" + u.Host + "/.default", nil
}
