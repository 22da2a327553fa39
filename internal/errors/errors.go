package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"

	"github.com/systmms/kustoconn/pkg/connstring"
)

// UserError represents an error that should be shown to the user with helpful context
type UserError struct {
	Message    string
	Suggestion string
	Details    string
	Err        error
}

func (e UserError) Error() string {
	var parts []string

	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}

	if e.Details != "" {
		parts = append(parts, "\n  Details: "+e.Details)
	}

	if e.Suggestion != "" {
		parts = append(parts, "\n  💡 Try: "+e.Suggestion)
	}

	return strings.Join(parts, "")
}

func (e UserError) Unwrap() error {
	return e.Err
}

// ConfigError represents a configuration error with helpful context
type ConfigError struct {
	Field      string
	Value      interface{}
	Message    string
	Suggestion string
}

func (e ConfigError) Error() string {
	msg := "Configuration error"
	if e.Field != "" {
		msg += fmt.Sprintf(" in field '%s'", e.Field)
	}
	if e.Value != nil {
		msg += fmt.Sprintf(" (value: %v)", e.Value)
	}
	msg += ": " + e.Message

	if e.Suggestion != "" {
		msg += "\n  💡 " + e.Suggestion
	}

	return msg
}

// ConnectionStringError turns a parse or validation failure into a UserError
// with a suggestion for the specific problem. Other errors pass through.
func ConnectionStringError(err error) error {
	kind := connstring.KindOf(err)
	if kind == 0 {
		return err
	}
	return UserError{
		Message:    "Invalid connection string",
		Details:    err.Error(),
		Suggestion: connStringSuggestion(kind),
		Err:        err,
	}
}

func connStringSuggestion(kind connstring.ErrorKind) string {
	switch kind {
	case connstring.KindMalformedSegment:
		return "Every segment must look like Key=Value; quote values that contain ';' or '='"
	case connstring.KindUnterminatedQuote:
		return "Close the quote; a quote inside a quoted value is written twice, e.g. 'o''brien'"
	case connstring.KindUnknownKey:
		return "Run 'kustoconn keywords' to list supported keywords, or drop --strict to keep unknown keys"
	case connstring.KindInvalidBooleanValue:
		return "Use one of true, false, yes, no, 1 or 0"
	case connstring.KindInputTooLarge:
		return "Shorten the connection string or raise parse.max_length / parse.max_segments in kustoconn.yaml"
	case connstring.KindMissingDataSource:
		return "Add Data Source=https://<cluster>.<region>.kusto.windows.net"
	case connstring.KindConflictingCredentials:
		return "Keep exactly one credential: password, application key, certificate, user token or application token"
	case connstring.KindMissingTenant:
		return "Add Authority Id=<tenant id or domain>"
	case connstring.KindMissingClientID:
		return "Add Application Client Id=<app id> for application key or certificate authentication"
	case connstring.KindMissingUserID:
		return "Add User ID=<upn> for password authentication"
	}
	return ""
}

// ProviderError enhances secret provider errors with context
func ProviderError(provider string, operation string, err error) error {
	return UserError{
		Message:    fmt.Sprintf("%s provider error during %s", provider, operation),
		Suggestion: getProviderSuggestion(provider, err),
		Err:        err,
	}
}

// getProviderSuggestion returns helpful suggestions based on provider and error
func getProviderSuggestion(provider string, err error) string {
	var respErr *azcore.ResponseError
	if provider == "azure.keyvault" && errors.As(err, &respErr) {
		switch respErr.StatusCode {
		case 401:
			return "Sign in with 'az login' or set AZURE_CLIENT_ID / AZURE_TENANT_ID / AZURE_CLIENT_SECRET"
		case 403:
			return "Grant the identity the 'Key Vault Secrets User' role on the vault"
		case 404:
			return "Verify the secret name. List secrets with: 'az keyvault secret list --vault-name <vault>'"
		}
	}

	errStr := err.Error()
	switch provider {
	case "azure.keyvault":
		if strings.Contains(errStr, "DefaultAzureCredential") {
			return "No Azure credential found. Run 'az login' or configure a managed identity"
		}

	case "keychain":
		if strings.Contains(errStr, "not found") {
			return "Store the value first, e.g. 'security add-generic-password -s <service> -a <account> -w'"
		}
		if strings.Contains(errStr, "org.freedesktop.secrets") {
			return "Start a Secret Service provider such as gnome-keyring"
		}

	case "env":
		return "Export the variable before running kustoconn"
	}

	if strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded") {
		return "The operation timed out. Check your network connection and try again"
	}
	if strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "no such host") {
		return "Unable to connect. Check your network and provider configuration"
	}

	return ""
}

// QueryError explains a failed Kusto request
func QueryError(cluster string, err error) error {
	ue := UserError{
		Message: fmt.Sprintf("Query against %s failed", cluster),
		Err:     err,
	}
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		ue.Details = fmt.Sprintf("%d %s", respErr.StatusCode, respErr.ErrorCode)
		switch respErr.StatusCode {
		case 401:
			ue.Suggestion = "Check the credential in the connection string; run 'kustoconn validate' first"
		case 403:
			ue.Suggestion = "The principal lacks viewer permission on the database"
		case 404:
			ue.Suggestion = "Check Data Source and Initial Catalog"
		}
	}
	return ue
}

// SimplifyError simplifies complex error messages for users
func SimplifyError(err error) error {
	if err == nil {
		return nil
	}

	// Already a user-friendly error
	var ue UserError
	if errors.As(err, &ue) {
		return err
	}
	var ce ConfigError
	if errors.As(err, &ce) {
		return err
	}
	if connstring.KindOf(err) != 0 {
		return ConnectionStringError(err)
	}

	// Unwrap to get the root cause
	rootErr := err
	for {
		unwrapped := errors.Unwrap(rootErr)
		if unwrapped == nil {
			break
		}
		rootErr = unwrapped
	}
	errStr := rootErr.Error()

	// yaml.v3 prefixes its errors; a "kustoconn.yaml:" path must not match
	if strings.HasPrefix(errStr, "yaml: ") {
		return ConfigError{
			Message:    "Invalid YAML format",
			Suggestion: "Check for indentation errors and missing quotes",
		}
	}

	if strings.Contains(errStr, "permission denied") {
		return UserError{
			Message:    "Permission denied",
			Suggestion: "Check file permissions or run with appropriate privileges",
			Err:        err,
		}
	}

	if strings.Contains(errStr, "no such file or directory") {
		return UserError{
			Message:    "File or directory not found",
			Suggestion: "Verify the path exists and is spelled correctly",
			Err:        err,
		}
	}

	return err
}
