// Package provider defines the interface secret stores implement so that
// connection string credentials can live outside the configuration file.
//
// A cluster in kustoconn.yaml names a provider and a key for each secret
// keyword:
//
//	clusters:
//	  prod:
//	    connection_string: "Data Source=https://help.kusto.windows.net;AppClientId=...;Authority Id=..."
//	    secrets:
//	      Application Key: {provider: vault, key: kusto-app-key}
//
// The resolver looks up the provider named "vault", calls Resolve with
// Reference{Provider: "vault", Key: "kusto-app-key"} and applies the value to
// the parsed settings. Providers must never log secret values.
package provider

import (
	"context"
	"time"
)

// Provider retrieves secret values from one store.
type Provider interface {
	// Name returns the configured provider name.
	Name() string

	// Resolve retrieves a secret value. Missing secrets return NotFoundError.
	Resolve(ctx context.Context, ref Reference) (SecretValue, error)

	// Describe reports metadata about a secret without returning its value.
	// A missing secret yields Metadata{Exists: false} and no error.
	Describe(ctx context.Context, ref Reference) (Metadata, error)

	// Capabilities reports optional features of the store.
	Capabilities() Capabilities

	// Validate checks that the store is reachable and configured.
	Validate(ctx context.Context) error
}

// Reference addresses one secret within a provider.
type Reference struct {
	Provider string
	Key      string
	// Version is optional; empty means the latest version.
	Version string
}

// SecretValue is a retrieved secret.
type SecretValue struct {
	// Value must never be logged.
	Value     string
	Version   string
	UpdatedAt time.Time
	Metadata  map[string]string
}

// Metadata describes a secret without its value.
type Metadata struct {
	Exists    bool
	Version   string
	UpdatedAt time.Time
	Size      int
	Type      string
	Tags      map[string]string
}

// Capabilities lists what a provider supports.
type Capabilities struct {
	SupportsVersioning bool
	SupportsMetadata   bool
	RequiresAuth       bool
	AuthMethods        []string
}

// NotFoundError is returned when the key does not exist in the provider.
type NotFoundError struct {
	Provider string
	Key      string
}

func (e NotFoundError) Error() string {
	return "secret not found: " + e.Key + " in " + e.Provider
}

// AuthError indicates that authentication to the provider failed.
type AuthError struct {
	Provider string
	Message  string
}

func (e AuthError) Error() string {
	return "authentication failed for " + e.Provider + ": " + e.Message
}
