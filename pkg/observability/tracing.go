package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// TracerName is the name of the tracer for archive and tool operations.
	TracerName = "granola"
)

// Span attribute keys
const (
	AttrArchivePath = "archive.path"
	AttrRecords     = "archive.records"
	AttrMeetings    = "archive.meetings"
	AttrDropped     = "archive.dropped"
	AttrTool        = "tool.name"
	AttrRequestID   = "request_id"
	AttrErrorKind   = "error.kind"
)

// Span names
const (
	SpanArchiveLoad  = "archive.load"
	SpanToolDispatch = "tools.dispatch"
)

// Tracer wraps the global OpenTelemetry tracer. With no SDK installed the
// spans are no-ops.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer returns a Tracer backed by the global provider.
func NewTracer() *Tracer {
	return &Tracer{tracer: otel.Tracer(TracerName)}
}

// NewTracerWithProvider returns a Tracer backed by tp.
func NewTracerWithProvider(tp trace.TracerProvider) *Tracer {
	return &Tracer{tracer: tp.Tracer(TracerName)}
}

// StartArchiveLoad starts a span for reading and decoding the archive.
func (t *Tracer) StartArchiveLoad(ctx context.Context, path string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, SpanArchiveLoad,
		trace.WithAttributes(attribute.String(AttrArchivePath, path)),
	)
}

// StartToolDispatch starts a span for one tool call.
func (t *Tracer) StartToolDispatch(ctx context.Context, tool, requestID string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, SpanToolDispatch,
		trace.WithAttributes(
			attribute.String(AttrTool, tool),
			attribute.String(AttrRequestID, requestID),
		),
	)
}

// SpanHelper provides convenient methods for working with a span.
type SpanHelper struct {
	span trace.Span
}

// NewSpanHelper creates a new span helper for the given span.
func NewSpanHelper(span trace.Span) *SpanHelper {
	return &SpanHelper{span: span}
}

// SetLoadStats sets archive decode counters on the span.
func (h *SpanHelper) SetLoadStats(records, meetings, dropped int) {
	h.span.SetAttributes(
		attribute.Int(AttrRecords, records),
		attribute.Int(AttrMeetings, meetings),
		attribute.Int(AttrDropped, dropped),
	)
}

// SetError records an error and its kind on the span.
func (h *SpanHelper) SetError(err error, kind string) {
	h.span.SetStatus(codes.Error, err.Error())
	h.span.SetAttributes(attribute.String(AttrErrorKind, kind))
	h.span.RecordError(err)
}

// SetSuccess marks the span as successful.
func (h *SpanHelper) SetSuccess() {
	h.span.SetStatus(codes.Ok, "")
}

// GetTraceID returns the trace ID from the context.
func GetTraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().HasTraceID() {
		return span.SpanContext().TraceID().String()
	}
	return ""
}
