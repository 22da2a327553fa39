package providers_test

import (
	"errors"

	"github.com/systmms/kustoconn/internal/providers/contracts"
)

// fakeKeychain is an in-memory contracts.KeychainClient
type fakeKeychain struct {
	secrets     map[string]map[string][]byte
	available   bool
	headless    bool
	validateErr error
	queryErr    error
}

func newFakeKeychain() *fakeKeychain {
	return &fakeKeychain{secrets: map[string]map[string][]byte{}, available: true}
}

func (f *fakeKeychain) set(service, account, value string) {
	if f.secrets[service] == nil {
		f.secrets[service] = map[string][]byte{}
	}
	f.secrets[service][account] = []byte(value)
}

func (f *fakeKeychain) Query(service, account string) ([]byte, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	if v, ok := f.secrets[service][account]; ok {
		return v, nil
	}
	return nil, errFakeItemNotFound
}

func (f *fakeKeychain) Validate() error   { return f.validateErr }
func (f *fakeKeychain) IsAvailable() bool { return f.available }
func (f *fakeKeychain) IsHeadless() bool  { return f.headless }

var (
	errFakeItemNotFound = errors.New("The specified item could not be found in the keychain (itemNotFound)")
	errFakeAccessDenied = errors.New("accessDenied: user interaction is not allowed")
)

var _ contracts.KeychainClient = (*fakeKeychain)(nil)
