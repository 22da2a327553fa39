package provider

import (
	"context"
	"errors"
	"testing"
	"time"
)

// ContractTest describes a provider under test for RunContractTests.
type ContractTest struct {
	// CreateProvider returns a fresh provider.
	CreateProvider func(t *testing.T) Provider

	// SetupTestSecret stores a secret and returns its key, the stored value
	// and a cleanup function. Nil skips the resolve checks.
	SetupTestSecret func(t *testing.T, p Provider) (key, value string, cleanup func())

	SkipValidation bool
}

// RunContractTests checks the behavior every Provider must share.
func RunContractTests(t *testing.T, contract ContractTest) {
	t.Helper()
	t.Run("Contract", func(t *testing.T) {
		t.Run("Name", func(t *testing.T) {
			p := contract.CreateProvider(t)
			if p.Name() == "" {
				t.Error("Name() returned empty string")
			}
		})

		t.Run("Capabilities", func(t *testing.T) {
			caps := contract.CreateProvider(t).Capabilities()
			if caps.RequiresAuth && len(caps.AuthMethods) == 0 {
				t.Error("provider requires auth but lists no auth methods")
			}
		})

		if !contract.SkipValidation {
			t.Run("Validate", func(t *testing.T) {
				p := contract.CreateProvider(t)
				done := make(chan error, 1)
				go func() { done <- p.Validate(context.Background()) }()
				select {
				case err := <-done:
					if err != nil {
						t.Logf("Validate failed (expected without a real backend): %v", err)
					}
				case <-time.After(5 * time.Second):
					t.Error("Validate() timed out")
				}
			})
		}

		t.Run("Resolve", func(t *testing.T) {
			if contract.SetupTestSecret == nil {
				t.Skip("no SetupTestSecret")
			}
			p := contract.CreateProvider(t)
			key, want, cleanup := contract.SetupTestSecret(t, p)
			defer cleanup()

			got, err := p.Resolve(context.Background(), Reference{Provider: p.Name(), Key: key})
			if err != nil {
				t.Fatalf("Resolve() failed: %v", err)
			}
			if got.Value != want {
				t.Error("Resolve() returned a different value than was stored")
			}

			md, err := p.Describe(context.Background(), Reference{Provider: p.Name(), Key: key})
			if err != nil {
				t.Fatalf("Describe() failed: %v", err)
			}
			if !md.Exists {
				t.Error("Describe() reported Exists=false for a stored secret")
			}
		})

		t.Run("ResolveNotFound", func(t *testing.T) {
			p := contract.CreateProvider(t)
			key := "kustoconn-missing-" + time.Now().Format("20060102150405")
			_, err := p.Resolve(context.Background(), Reference{Provider: p.Name(), Key: key})
			if err == nil {
				t.Fatal("Resolve() of a missing key succeeded")
			}
			var nf NotFoundError
			if !errors.As(err, &nf) {
				t.Logf("provider returned a non NotFoundError: %v", err)
			}
		})
	})
}
