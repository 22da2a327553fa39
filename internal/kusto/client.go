// Package kusto is a minimal query client for Azure Data Explorer built on
// the azcore HTTP pipeline.
package kusto

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/streaming"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/systmms/kustoconn/internal/auth"
	"github.com/systmms/kustoconn/internal/logging"
	"github.com/systmms/kustoconn/internal/metrics"
	"github.com/systmms/kustoconn/internal/result"
	"github.com/systmms/kustoconn/pkg/connstring"
)

const (
	moduleName = "kustoconn"
	queryPath  = "/v2/rest/query"

	headerApp           = "x-ms-app"
	headerUser          = "x-ms-user"
	headerClientVersion = "x-ms-client-version"
	headerRequestID     = "x-ms-client-request-id"
)

// ErrNoDatabase is returned when neither the call nor the connection string
// names a database.
var ErrNoDatabase = errors.New("no database given and Initial Catalog is not set")

// Client sends queries to one cluster. It is safe for concurrent use.
type Client struct {
	endpoint  string
	defaultDB string
	settings  connstring.Settings
	pipeline  runtime.Pipeline
	version   string
	logger    *logging.Logger
	metrics   *metrics.Recorder
	requestID func() string
}

type clientConfig struct {
	clientOptions policy.ClientOptions
	credential    azcore.TokenCredential
	logger        *logging.Logger
	metrics       *metrics.Recorder
	version       string
}

// Option configures New.
type Option func(*clientConfig)

// WithClientOptions sets the azcore transport, retry and telemetry options.
func WithClientOptions(o policy.ClientOptions) Option {
	return func(c *clientConfig) { c.clientOptions = o }
}

// WithCredential overrides the credential derived from the connection string.
func WithCredential(cred azcore.TokenCredential) Option {
	return func(c *clientConfig) { c.credential = cred }
}

// WithLogger sets the logger for request tracing.
func WithLogger(l *logging.Logger) Option {
	return func(c *clientConfig) { c.logger = l }
}

// WithMetrics records query metrics.
func WithMetrics(m *metrics.Recorder) Option {
	return func(c *clientConfig) { c.metrics = m }
}

// WithClientVersion sets the x-ms-client-version header when the connection
// string does not.
func WithClientVersion(v string) Option {
	return func(c *clientConfig) { c.version = v }
}

// New validates s and builds a client for its cluster.
func New(s connstring.Settings, opts ...Option) (*Client, error) {
	cfg := clientConfig{version: "dev"}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logging.Discard()
	}
	if cfg.metrics == nil {
		cfg.metrics = metrics.NewRecorder()
	}

	if err := connstring.Validate(s); err != nil {
		return nil, err
	}
	endpoint, pathDB, err := parseEndpoint(s.DataSource())
	if err != nil {
		return nil, err
	}
	if s, err = s.With(connstring.DataSource, endpoint); err != nil {
		return nil, err
	}

	cred := cfg.credential
	if cred == nil {
		if cred, err = auth.NewCredential(s, &auth.Options{ClientOptions: cfg.clientOptions, Logger: cfg.logger}); err != nil {
			return nil, err
		}
	}

	var perRetry []policy.Policy
	if cred != nil {
		scope, err := auth.Scope(s)
		if err != nil {
			return nil, err
		}
		perRetry = append(perRetry, runtime.NewBearerTokenPolicy(cred, []string{scope}, nil))
	}
	pl := runtime.NewPipeline(moduleName, cfg.version, runtime.PipelineOptions{PerRetry: perRetry}, &cfg.clientOptions)

	defaultDB := s.InitialCatalog()
	if defaultDB == "" {
		defaultDB = pathDB
	}

	version := s.ClientVersionForTracing()
	if version == "" {
		version = "Kusto.kustoconn:" + cfg.version
	}

	return &Client{
		endpoint:  endpoint,
		defaultDB: defaultDB,
		settings:  s,
		pipeline:  pl,
		version:   version,
		logger:    cfg.logger,
		metrics:   cfg.metrics,
		requestID: func() string { return "KGC.execute;" + uuid.NewString() },
	}, nil
}

// parseEndpoint returns scheme://host for a Data Source and the database
// named by its path, if any. A missing scheme defaults to https.
func parseEndpoint(dataSource string) (string, string, error) {
	raw := strings.TrimSpace(dataSource)
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", "", fmt.Errorf("invalid Data Source %q: %w", dataSource, errOrInvalid(err))
	}
	return u.Scheme + "://" + u.Host, strings.Trim(u.Path, "/"), nil
}

func errOrInvalid(err error) error {
	if err != nil {
		return err
	}
	return errors.New("missing host")
}

// Endpoint returns the cluster base URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Database returns the database used when Query is called without one.
func (c *Client) Database() string {
	return c.defaultDB
}

type queryRequest struct {
	DB         string          `json:"db"`
	CSL        string          `json:"csl"`
	Properties queryProperties `json:"properties"`
}

type queryProperties struct {
	Options map[string]interface{} `json:"Options"`
}

// Query runs a KQL query and returns the decoded v2 data set. An empty db
// uses the connection string's database. Non-2xx responses are returned as
// *azcore.ResponseError.
func (c *Client) Query(ctx context.Context, db, query string) (*result.DataSet, error) {
	if db == "" {
		db = c.defaultDB
	}
	if db == "" {
		return nil, ErrNoDatabase
	}

	body, err := json.Marshal(queryRequest{
		DB:  db,
		CSL: query,
		Properties: queryProperties{Options: map[string]interface{}{
			"results_progressive_enabled": false,
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("encoding query: %w", err)
	}

	req, err := runtime.NewRequest(ctx, http.MethodPost, c.endpoint+queryPath)
	if err != nil {
		return nil, err
	}
	requestID := c.requestID()
	h := req.Raw().Header
	h.Set("Accept", "application/json")
	h.Set(headerApp, c.tracingApp())
	h.Set(headerUser, c.tracingUser())
	h.Set(headerClientVersion, c.version)
	h.Set(headerRequestID, requestID)
	if err := req.SetBody(streaming.NopCloser(bytes.NewReader(body)), "application/json; charset=utf-8"); err != nil {
		return nil, err
	}

	c.logger.Debug("POST %s%s db=%s request=%s", c.endpoint, queryPath, db, requestID)
	start := time.Now()
	resp, err := c.pipeline.Do(req)
	if err != nil {
		c.metrics.RecordQuery("error", time.Since(start).Seconds(), 0)
		return nil, err
	}
	defer resp.Body.Close()

	status := strconv.Itoa(resp.StatusCode)
	if !runtime.HasStatusCode(resp, http.StatusOK) {
		c.metrics.RecordQuery(status, time.Since(start).Seconds(), 0)
		return nil, runtime.NewResponseError(resp)
	}

	ds, err := result.DecodeFrames(resp.Body)
	if err != nil {
		c.metrics.RecordQuery(status, time.Since(start).Seconds(), 0)
		return nil, err
	}

	rows := 0
	for _, t := range ds.PrimaryResults() {
		rows += len(t.Rows)
	}
	c.metrics.RecordQuery(status, time.Since(start).Seconds(), rows)
	c.logger.Debug("Query %s returned %d rows in %s", requestID, rows, time.Since(start).Round(time.Millisecond))
	return ds, nil
}

func (c *Client) tracingApp() string {
	if app := c.settings.ApplicationNameForTracing(); app != "" {
		return app
	}
	return moduleName
}

func (c *Client) tracingUser() string {
	if user := c.settings.UserNameForTracing(); user != "" {
		return user
	}
	return "[none]"
}
