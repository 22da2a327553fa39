// Package metrics records parse, validation and query outcomes as Prometheus
// metrics. Metrics are only recorded after InitMetrics; the CLI calls it when
// --metrics-file is given and writes the default registry on exit.
package metrics

import (
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/systmms/kustoconn/pkg/connstring"
)

// ResultOK labels successful operations.
const ResultOK = "ok"

var (
	parseTotal    *prometheus.CounterVec
	validateTotal *prometheus.CounterVec
	queryDuration *prometheus.HistogramVec
	queryRows     prometheus.Counter

	metricsOnce sync.Once
	// set after the collectors above are assigned; readers load it first
	metricsRegistered atomic.Bool
)

// Recorder records metrics. The zero value is ready to use.
type Recorder struct{}

// NewRecorder creates a Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// InitMetrics registers all metrics with the default registry.
func InitMetrics() {
	metricsOnce.Do(func() {
		parseTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kustoconn_parse_total",
				Help: "Connection strings parsed, by result (ok or error kind)",
			},
			[]string{"result"},
		)

		validateTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kustoconn_validate_total",
				Help: "Connection strings validated, by result (ok or error kind)",
			},
			[]string{"result"},
		)

		queryDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kustoconn_query_duration_seconds",
				Help:    "Duration of Kusto query requests in seconds",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 30, 120},
			},
			[]string{"status"},
		)

		queryRows = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "kustoconn_query_rows_total",
				Help: "Rows returned in primary results",
			},
		)

		metricsRegistered.Store(true)
	})
}

func resultLabel(err error) string {
	if err == nil {
		return ResultOK
	}
	if kind := connstring.KindOf(err); kind != 0 {
		return kind.String()
	}
	return "error"
}

// RecordParse counts one Parse call.
func (m *Recorder) RecordParse(err error) {
	if !metricsRegistered.Load() {
		return
	}
	parseTotal.WithLabelValues(resultLabel(err)).Inc()
}

// RecordValidate counts one Validate call.
func (m *Recorder) RecordValidate(err error) {
	if !metricsRegistered.Load() {
		return
	}
	validateTotal.WithLabelValues(resultLabel(err)).Inc()
}

// RecordQuery records a query request. status is the HTTP status code as
// text, or "error" when no response arrived.
func (m *Recorder) RecordQuery(status string, durationSeconds float64, rows int) {
	if !metricsRegistered.Load() {
		return
	}
	queryDuration.WithLabelValues(status).Observe(durationSeconds)
	if rows > 0 {
		queryRows.Add(float64(rows))
	}
}

// WriteTextfile writes the default registry in the text exposition format,
// for node_exporter's textfile collector.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}

// GetParseTotal returns the parse counter for testing.
func GetParseTotal() *prometheus.CounterVec {
	return parseTotal
}

// GetValidateTotal returns the validate counter for testing.
func GetValidateTotal() *prometheus.CounterVec {
	return validateTotal
}

// GetQueryDuration returns the query duration histogram for testing.
func GetQueryDuration() *prometheus.HistogramVec {
	return queryDuration
}

// GetQueryRows returns the row counter for testing.
func GetQueryRows() prometheus.Counter {
	return queryRows
}

// IsMetricsRegistered returns whether metrics have been initialized.
func IsMetricsRegistered() bool {
	return metricsRegistered.Load()
}
