package auth

import (
	"context"
	"errors"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"

	"github.com/systmms/kustoconn/internal/secure"
)

// staticTokenLifetime is how long a pre-acquired token is reported valid.
// The real expiry is unknown; the service rejects it once it lapses.
const staticTokenLifetime = time.Hour

// StaticTokenCredential returns a token that was acquired outside this
// process. The token stays encrypted in memory between requests.
type StaticTokenCredential struct {
	token *secure.SecureBuffer
	now   func() time.Time
}

var _ azcore.TokenCredential = (*StaticTokenCredential)(nil)

// NewStaticTokenCredential wraps token.
func NewStaticTokenCredential(token string) (*StaticTokenCredential, error) {
	if token == "" {
		return nil, errors.New("static token credential: empty token")
	}
	buf, err := secure.NewSecureString(token)
	if err != nil {
		return nil, err
	}
	return &StaticTokenCredential{token: buf, now: time.Now}, nil
}

// GetToken implements azcore.TokenCredential. Scopes are ignored.
func (c *StaticTokenCredential) GetToken(ctx context.Context, _ policy.TokenRequestOptions) (azcore.AccessToken, error) {
	if err := ctx.Err(); err != nil {
		return azcore.AccessToken{}, err
	}
	tok, err := c.token.Reveal()
	if err != nil {
		return azcore.AccessToken{}, err
	}
	if tok == "" {
		return azcore.AccessToken{}, errors.New("static token credential: token was destroyed")
	}
	return azcore.AccessToken{Token: tok, ExpiresOn: c.now().Add(staticTokenLifetime)}, nil
}

// Destroy wipes the token.
func (c *StaticTokenCredential) Destroy() {
	c.token.Destroy()
}

// String keeps the credential safe to print.
func (c *StaticTokenCredential) String() string {
	return "StaticTokenCredential{[REDACTED]}"
}
