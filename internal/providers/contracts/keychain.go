// Package contracts holds the narrow client interfaces providers depend on so
// tests can substitute fakes for OS services.
package contracts

// KeychainClient abstracts OS keychain access
type KeychainClient interface {
	// Query returns the secret stored for service and account.
	Query(service, account string) ([]byte, error)

	// Validate checks that the keychain is usable.
	Validate() error

	// IsAvailable reports whether this platform has a keychain.
	IsAvailable() bool

	// IsHeadless reports whether no user session is present to unlock it.
	IsHeadless() bool
}

// KeychainReference is a parsed service/account keychain key
type KeychainReference struct {
	Service string
	Account string
}
