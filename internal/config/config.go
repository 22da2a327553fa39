// Package config loads kustoconn.yaml: parse limits, secret providers and
// named clusters whose connection strings may pull credentials from those
// providers.
package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	dserrors "github.com/systmms/kustoconn/internal/errors"
	"github.com/systmms/kustoconn/internal/logging"
	"github.com/systmms/kustoconn/pkg/connstring"
	"github.com/systmms/kustoconn/pkg/provider"
)

// DefaultPath is the configuration file looked up when --config is not given.
const DefaultPath = "kustoconn.yaml"

// EnvConnectionString is the environment variable read when neither a
// connection string nor a cluster is given.
const EnvConnectionString = "KUSTO_CONNECTION_STRING"

//go:embed schema.json
var schemaJSON []byte

// Config holds the runtime configuration
type Config struct {
	Path       string
	Logger     *logging.Logger
	Definition *Definition
}

// Definition is the kustoconn.yaml document
type Definition struct {
	Version   int                       `yaml:"version"`
	Parse     ParseConfig               `yaml:"parse,omitempty"`
	Providers map[string]ProviderConfig `yaml:"providers,omitempty"`
	Clusters  map[string]ClusterConfig  `yaml:"clusters,omitempty"`
}

// ParseConfig tunes connection string parsing
type ParseConfig struct {
	Strict         bool `yaml:"strict,omitempty"`
	BareDataSource bool `yaml:"bare_data_source,omitempty"`
	MaxLength      int  `yaml:"max_length,omitempty"`
	MaxSegments    int  `yaml:"max_segments,omitempty"`
}

// ProviderConfig holds provider-specific configuration
type ProviderConfig struct {
	Type      string                 `yaml:"type"`
	TimeoutMs int                    `yaml:"timeout_ms,omitempty"`
	Config    map[string]interface{} `yaml:",inline"`
}

// ClusterConfig is one named connection
type ClusterConfig struct {
	Description      string               `yaml:"description,omitempty"`
	ConnectionString string               `yaml:"connection_string"`
	Secrets          map[string]SecretRef `yaml:"secrets,omitempty"`
}

// SecretRef points a connection string keyword at a provider key
type SecretRef struct {
	Provider string `yaml:"provider"`
	Key      string `yaml:"key"`
	Version  string `yaml:"version,omitempty"`
}

// ProviderFactory builds providers from their configuration
type ProviderFactory interface {
	CreateProvider(name string, cfg ProviderConfig) (provider.Provider, error)
}

// Load reads, schema-checks and parses the configuration file
func (c *Config) Load() error {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return dserrors.ConfigError{
				Field:      "path",
				Value:      c.Path,
				Message:    "configuration file not found",
				Suggestion: "Create " + DefaultPath + " or pass --connection-string",
			}
		}
		return dserrors.UserError{
			Message:    "Failed to read configuration file",
			Details:    err.Error(),
			Suggestion: "Check file permissions and path",
			Err:        err,
		}
	}

	def, err := Parse(data)
	if err != nil {
		return err
	}
	c.Definition = def
	if c.Logger != nil {
		c.Logger.Debug("Loaded %s: %d clusters, %d providers", c.Path, len(def.Clusters), len(def.Providers))
	}
	return nil
}

// Parse decodes and validates a kustoconn.yaml document
func Parse(data []byte) (*Definition, error) {
	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, dserrors.ConfigError{
			Message:    "invalid YAML syntax in configuration file: " + err.Error(),
			Suggestion: "Check for indentation errors, missing quotes, or invalid characters",
		}
	}
	if raw == nil {
		raw = map[string]interface{}{}
	}
	if err := validateSchema(raw); err != nil {
		return nil, err
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, dserrors.ConfigError{
			Message:    "invalid configuration: " + err.Error(),
			Suggestion: "Compare the file with the example in the README",
		}
	}
	if err := def.check(); err != nil {
		return nil, err
	}
	return &def, nil
}

func validateSchema(doc interface{}) error {
	jsonData, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration for validation: %w", err)
	}

	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schemaJSON), gojsonschema.NewBytesLoader(jsonData))
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}

	var msgs []string
	for _, desc := range result.Errors() {
		msgs = append(msgs, desc.String())
	}
	sort.Strings(msgs)
	return dserrors.ConfigError{
		Message:    "schema validation failed:\n  - " + strings.Join(msgs, "\n  - "),
		Suggestion: "Fix the fields listed above",
	}
}

// check enforces the cross references the schema cannot express
func (d *Definition) check() error {
	for _, name := range d.ClusterNames() {
		cl := d.Clusters[name]
		for _, kw := range mapKeys(cl.Secrets) {
			ref := cl.Secrets[kw]
			if _, ok := d.Providers[ref.Provider]; !ok {
				return dserrors.ConfigError{
					Field:      fmt.Sprintf("clusters.%s.secrets.%s.provider", name, kw),
					Value:      ref.Provider,
					Message:    "provider not defined",
					Suggestion: availableSuggestion("providers", mapKeys(d.Providers)),
				}
			}
			keyword, ok := connstring.LookupKeyword(kw)
			if !ok || !keyword.Supported {
				return dserrors.ConfigError{
					Field:      fmt.Sprintf("clusters.%s.secrets", name),
					Value:      kw,
					Message:    "not a supported connection string keyword",
					Suggestion: "Run 'kustoconn keywords' to list supported keywords",
				}
			}
		}
	}
	return nil
}

// ClusterNames returns the configured cluster names, sorted
func (d *Definition) ClusterNames() []string {
	return mapKeys(d.Clusters)
}

// ParseOptions returns the connstring options described by the parse block
func (d *Definition) ParseOptions() []connstring.ParseOption {
	opts := connstring.DefaultParseOptions()
	opts.Strict = d.Parse.Strict
	opts.BareDataSource = d.Parse.BareDataSource
	if d.Parse.MaxLength > 0 {
		opts.MaxLength = d.Parse.MaxLength
	}
	if d.Parse.MaxSegments > 0 {
		opts.MaxSegments = d.Parse.MaxSegments
	}
	return []connstring.ParseOption{connstring.WithOptions(opts)}
}

// GetCluster returns the configuration for a named cluster
func (c *Config) GetCluster(name string) (ClusterConfig, error) {
	if c.Definition == nil {
		return ClusterConfig{}, dserrors.UserError{
			Message:    "Configuration not loaded",
			Suggestion: "This is an internal error. Please report it",
		}
	}
	cl, ok := c.Definition.Clusters[name]
	if !ok {
		return ClusterConfig{}, dserrors.ConfigError{
			Field:      "cluster",
			Value:      name,
			Message:    "cluster not found",
			Suggestion: availableSuggestion("clusters", c.Definition.ClusterNames()),
		}
	}
	return cl, nil
}

// GetProviderTimeout returns the timeout for a provider
func (p ProviderConfig) GetProviderTimeout() time.Duration {
	if p.TimeoutMs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(p.TimeoutMs) * time.Millisecond
}

// Resolve parses a cluster's connection string and fills in its secrets from
// the configured providers. The result is not validated.
func (c *Config) Resolve(ctx context.Context, cluster string, factory ProviderFactory) (connstring.Settings, error) {
	cl, err := c.GetCluster(cluster)
	if err != nil {
		return connstring.Settings{}, err
	}

	s, err := connstring.Parse(cl.ConnectionString, c.Definition.ParseOptions()...)
	if err != nil {
		return connstring.Settings{}, dserrors.ConnectionStringError(err)
	}

	created := map[string]provider.Provider{}
	for _, kw := range mapKeys(cl.Secrets) {
		ref := cl.Secrets[kw]
		pc := c.Definition.Providers[ref.Provider]

		p, ok := created[ref.Provider]
		if !ok {
			if p, err = factory.CreateProvider(ref.Provider, pc); err != nil {
				return connstring.Settings{}, dserrors.ProviderError(pc.Type, "setup", err)
			}
			created[ref.Provider] = p
		}

		value, err := resolveOne(ctx, p, pc.GetProviderTimeout(), ref)
		if err != nil {
			return connstring.Settings{}, dserrors.ProviderError(pc.Type, "resolve "+kw, err)
		}
		if s, err = s.With(kw, value); err != nil {
			return connstring.Settings{}, dserrors.ConnectionStringError(err)
		}
		if c.Logger != nil {
			c.Logger.Debug("Resolved %s for cluster %s from %s", kw, cluster, ref.Provider)
		}
	}
	return s, nil
}

func resolveOne(ctx context.Context, p provider.Provider, timeout time.Duration, ref SecretRef) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	sv, err := p.Resolve(ctx, provider.Reference{Provider: ref.Provider, Key: ref.Key, Version: ref.Version})
	if err != nil {
		return "", err
	}
	return sv.Value, nil
}

func availableSuggestion(what string, names []string) string {
	if len(names) == 0 {
		return fmt.Sprintf("No %s are defined in %s", what, DefaultPath)
	}
	return fmt.Sprintf("Available %s: %s", what, strings.Join(names, ", "))
}

func mapKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
