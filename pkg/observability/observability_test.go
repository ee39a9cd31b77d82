package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestNewMetrics_RegistersAll(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordLoad(ResultOK, 20*time.Millisecond, 42)
	m.RecordDropped(ReasonNoStart, 2)
	m.RecordToolCall("get-meeting", "ok", time.Millisecond)
	m.RecordExportFile(true)

	families, err := reg.Gather()
	assert.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"granola_archive_loads_total",
		"granola_archive_load_seconds",
		"granola_archive_meetings",
		"granola_archive_dropped_records_total",
		"granola_tool_calls_total",
		"granola_tool_seconds",
		"granola_export_files_total",
	} {
		assert.True(t, names[want], "metric %s should be registered", want)
	}
}

func TestRecordLoad(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordLoad(ResultOK, time.Millisecond, 10)
	m.RecordLoad(ResultCorrupt, time.Millisecond, 0)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.ArchiveLoadsTotal.WithLabelValues(ResultOK)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ArchiveLoadsTotal.WithLabelValues(ResultCorrupt)))
	assert.Equal(t, float64(10), testutil.ToFloat64(m.ArchiveMeetings), "failed load keeps the previous gauge value")
}

func TestRecordDropped_IgnoresZero(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordDropped(ReasonDeleted, 0)
	m.RecordDropped(ReasonDeleted, 3)

	assert.Equal(t, float64(3), testutil.ToFloat64(m.ArchiveDroppedTotal.WithLabelValues(ReasonDeleted)))
}

func TestRecordToolCall(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordToolCall("search-meetings", "ok", time.Millisecond)
	m.RecordToolCall("search-meetings", "InvalidArgument", time.Millisecond)
	m.RecordToolCall("search-meetings", "ok", time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.ToolCallsTotal.WithLabelValues("search-meetings", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ToolCallsTotal.WithLabelValues("search-meetings", "InvalidArgument")))
}

func TestRecordExportFile(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordExportFile(true)
	m.RecordExportFile(false)
	m.RecordExportFile(false)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.ExportFilesTotal.WithLabelValues("true")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.ExportFilesTotal.WithLabelValues("false")))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.RecordLoad(ResultOK, time.Second, 1)
	m.RecordDropped(ReasonMalformed, 1)
	m.RecordToolCall("x", "ok", time.Second)
	m.RecordExportFile(true)
}

func TestTracer_NoopProvider(t *testing.T) {
	tr := NewTracerWithProvider(noop.NewTracerProvider())

	ctx, span := tr.StartArchiveLoad(context.Background(), "/tmp/cache.json")
	h := NewSpanHelper(span)
	h.SetLoadStats(10, 8, 2)
	h.SetError(errors.New("boom"), "ArchiveCorrupt")
	span.End()

	_, span = tr.StartToolDispatch(ctx, "get-meeting", "req-1")
	NewSpanHelper(span).SetSuccess()
	span.End()

	assert.Equal(t, "", GetTraceID(context.Background()))
}
