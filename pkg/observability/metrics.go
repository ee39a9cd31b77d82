// Package observability provides Prometheus metrics and OpenTelemetry
// tracing for archive loads, tool calls and exports.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Load results
const (
	ResultOK         = "ok"
	ResultUnreadable = "unreadable"
	ResultCorrupt    = "corrupt"
)

// Dropped record reasons
const (
	ReasonNoStart   = "no_start"
	ReasonMalformed = "malformed"
	ReasonDeleted   = "deleted"
)

// Metrics holds all Prometheus metrics for the tool server.
type Metrics struct {
	// Archive metrics
	ArchiveLoadsTotal   *prometheus.CounterVec
	ArchiveLoadSeconds  prometheus.Histogram
	ArchiveMeetings     prometheus.Gauge
	ArchiveDroppedTotal *prometheus.CounterVec

	// Tool metrics
	ToolCallsTotal *prometheus.CounterVec
	ToolSeconds    *prometheus.HistogramVec

	// Export metrics
	ExportFilesTotal *prometheus.CounterVec
}

// DefaultMetrics registers metrics with the default Prometheus registerer.
func DefaultMetrics() *Metrics {
	return NewMetrics(prometheus.DefaultRegisterer)
}

// NewMetrics creates a new set of metrics registered with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ArchiveLoadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "granola_archive_loads_total",
				Help: "Archive load attempts by result",
			},
			[]string{"result"},
		),
		ArchiveLoadSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "granola_archive_load_seconds",
				Help:    "Time to read and decode the archive",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
		),
		ArchiveMeetings: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "granola_archive_meetings",
				Help: "Meetings in the current snapshot",
			},
		),
		ArchiveDroppedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "granola_archive_dropped_records_total",
				Help: "Archive records skipped during decode",
			},
			[]string{"reason"},
		),
		ToolCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "granola_tool_calls_total",
				Help: "Tool calls by tool and outcome",
			},
			[]string{"tool", "status"},
		),
		ToolSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "granola_tool_seconds",
				Help:    "Tool call latency",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"tool"},
		),
		ExportFilesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "granola_export_files_total",
				Help: "Per-day export files considered, by whether content changed",
			},
			[]string{"changed"},
		),
	}
}

// RecordLoad records one archive load attempt. meetings is ignored unless
// result is ResultOK.
func (m *Metrics) RecordLoad(result string, elapsed time.Duration, meetings int) {
	if m == nil {
		return
	}
	m.ArchiveLoadsTotal.WithLabelValues(result).Inc()
	m.ArchiveLoadSeconds.Observe(elapsed.Seconds())
	if result == ResultOK {
		m.ArchiveMeetings.Set(float64(meetings))
	}
}

// RecordDropped adds n skipped records for the given reason.
func (m *Metrics) RecordDropped(reason string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ArchiveDroppedTotal.WithLabelValues(reason).Add(float64(n))
}

// RecordToolCall records a tool call outcome. status is "ok" or an error kind.
func (m *Metrics) RecordToolCall(tool, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.ToolCallsTotal.WithLabelValues(tool, status).Inc()
	m.ToolSeconds.WithLabelValues(tool).Observe(elapsed.Seconds())
}

// RecordExportFile records one per-day export file.
func (m *Metrics) RecordExportFile(changed bool) {
	if m == nil {
		return
	}
	label := "false"
	if changed {
		label = "true"
	}
	m.ExportFilesTotal.WithLabelValues(label).Inc()
}
