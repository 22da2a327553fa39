package connstring

// CredentialMode is one mutually exclusive way of authenticating.
type CredentialMode int

const (
	ModeNone CredentialMode = iota
	ModeUserPassword
	ModeApplicationKey
	ModeApplicationCertificate
	ModeUserToken
	ModeApplicationToken
)

// CredentialPrecedence is the fixed order in which credential modes are
// considered. Validate reports conflicts in this order and CredentialModeOf
// picks the first mode set.
var CredentialPrecedence = []CredentialMode{
	ModeUserPassword,
	ModeApplicationKey,
	ModeApplicationCertificate,
	ModeUserToken,
	ModeApplicationToken,
}

func (m CredentialMode) String() string {
	switch m {
	case ModeUserPassword:
		return "user-password"
	case ModeApplicationKey:
		return "application-key"
	case ModeApplicationCertificate:
		return "application-certificate"
	case ModeUserToken:
		return "user-token"
	case ModeApplicationToken:
		return "application-token"
	}
	return "none"
}

// RequiresTenant reports whether the mode needs an Authority Id.
func (m CredentialMode) RequiresTenant() bool {
	switch m {
	case ModeUserPassword, ModeApplicationKey, ModeApplicationCertificate:
		return true
	}
	return false
}

func (s Settings) hasMode(m CredentialMode) bool {
	switch m {
	case ModeUserPassword:
		return s.Password() != ""
	case ModeApplicationKey:
		return s.ApplicationKey() != ""
	case ModeApplicationCertificate:
		src, _ := s.Certificate()
		return src != CertificateNone
	case ModeUserToken:
		return s.UserToken() != ""
	case ModeApplicationToken:
		return s.ApplicationToken() != ""
	}
	return false
}

// CredentialModes returns every credential mode set, in precedence order.
func CredentialModes(s Settings) []CredentialMode {
	var modes []CredentialMode
	for _, m := range CredentialPrecedence {
		if s.hasMode(m) {
			modes = append(modes, m)
		}
	}
	return modes
}

// CredentialModeOf returns the highest precedence credential mode set, or
// ModeNone.
func CredentialModeOf(s Settings) CredentialMode {
	for _, m := range CredentialPrecedence {
		if s.hasMode(m) {
			return m
		}
	}
	return ModeNone
}

// Validate checks that settings describe a usable connection. Checks run in a
// fixed order and the first failure is returned:
//
//  1. Data Source is set (ErrMissingDataSource).
//  2. At most one credential mode is set (ErrConflictingCredentials).
//  3. Modes that authenticate against a tenant carry an Authority Id
//     (ErrMissingTenant).
//  4. Application modes carry a client id and user-password carries a user id
//     (ErrMissingClientID, ErrMissingUserID).
func Validate(s Settings) error {
	if s.DataSource() == "" {
		return &ValidationError{Kind: KindMissingDataSource}
	}

	modes := CredentialModes(s)
	if len(modes) > 1 {
		return &ValidationError{
			Kind:   KindConflictingCredentials,
			Modes:  modes,
			Detail: "set only one of user password, application key, application certificate, user token or application token",
		}
	}
	if len(modes) == 0 {
		return nil
	}

	mode := modes[0]
	if mode.RequiresTenant() && s.AuthorityID() == "" {
		return &ValidationError{Kind: KindMissingTenant, Modes: modes}
	}
	switch mode {
	case ModeApplicationKey, ModeApplicationCertificate:
		if s.ApplicationClientID() == "" {
			return &ValidationError{Kind: KindMissingClientID, Modes: modes}
		}
	case ModeUserPassword:
		if s.UserID() == "" {
			return &ValidationError{Kind: KindMissingUserID, Modes: modes}
		}
	}
	return nil
}
