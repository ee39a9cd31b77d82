package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/otherjamesbrown/granola-mcp/pkg/archive"
	grerrors "github.com/otherjamesbrown/granola-mcp/pkg/errors"
	"github.com/otherjamesbrown/granola-mcp/pkg/logging"
	"github.com/otherjamesbrown/granola-mcp/pkg/observability"
	"github.com/otherjamesbrown/granola-mcp/pkg/query"
	"github.com/otherjamesbrown/granola-mcp/pkg/timeutil"
)

// Phase is the dispatcher state a call is in.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseValidating Phase = "validating"
	PhaseExecuting  Phase = "executing"
	PhaseResponding Phase = "responding"
)

// Request is one tool call.
type Request struct {
	Tool      string `json:"tool"`
	Arguments Args   `json:"arguments"`
}

// ErrorBody is the wire form of a failed call.
type ErrorBody struct {
	Kind    grerrors.Kind `json:"kind"`
	Message string        `json:"message"`
}

// Response holds exactly one of a result or an error.
type Response struct {
	Result any
	Error  *ErrorBody

	encoded json.RawMessage
}

// MarshalJSON renders {"result": ...} or {"error": {...}}.
func (r Response) MarshalJSON() ([]byte, error) {
	if r.Error != nil {
		return json.Marshal(struct {
			Error *ErrorBody `json:"error"`
		}{r.Error})
	}
	result := r.encoded
	if result == nil {
		b, err := json.Marshal(r.Result)
		if err != nil {
			return nil, err
		}
		result = b
	}
	return json.Marshal(struct {
		Result json.RawMessage `json:"result"`
	}{result})
}

// ResultJSON returns the encoded result, or nil for an error response.
func (r Response) ResultJSON() json.RawMessage {
	return r.encoded
}

// selfLoading tools manage the store themselves and run without a snapshot.
type selfLoading interface {
	loadsSnapshot() bool
}

// Dispatcher validates and executes tool calls against the store's current
// snapshot.
type Dispatcher struct {
	registry *Registry
	store    *archive.Store
	time     *timeutil.Service
	engine   *query.Engine
	logger   logging.Logger
	metrics  *observability.Metrics
	tracer   *observability.Tracer
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithRegistry replaces the default catalog.
func WithRegistry(r *Registry) Option {
	return func(d *Dispatcher) {
		d.registry = r
	}
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = l
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *observability.Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// WithTracer sets the tracer.
func WithTracer(t *observability.Tracer) Option {
	return func(d *Dispatcher) {
		d.tracer = t
	}
}

// NewDispatcher returns a dispatcher over store, resolving dates with ts.
func NewDispatcher(store *archive.Store, ts *timeutil.Service, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		registry: DefaultRegistry(),
		store:    store,
		time:     ts,
		engine:   query.NewEngine(ts.Zone()),
		logger:   logging.NewNopLogger(),
		tracer:   observability.NewTracer(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Registry returns the dispatcher's catalog.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Dispatch runs one call. It never panics and never returns a bare error:
// every failure becomes an ErrorBody.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) Response {
	ctx = logging.WithTool(logging.WithRequestID(ctx), req.Tool)
	log := d.logger.WithContext(ctx)

	ctx, span := d.tracer.StartToolDispatch(ctx, req.Tool, logging.RequestID(ctx))
	defer span.End()
	helper := observability.NewSpanHelper(span)

	started := time.Now()
	result, encoded, terr := d.run(ctx, log, req)
	elapsed := time.Since(started)

	if terr != nil {
		d.metrics.RecordToolCall(req.Tool, string(terr.Kind), elapsed)
		helper.SetError(terr, string(terr.Kind))
		fields := []logging.Field{
			logging.Err(terr),
			logging.F("kind", string(terr.Kind)),
			logging.F("phase", terr.Phase),
			logging.F("duration", elapsed),
		}
		if traceID := observability.GetTraceID(ctx); traceID != "" {
			fields = append(fields, logging.F("trace_id", traceID))
		}
		if grerrors.IsCallerError(terr.Kind) {
			log.Warn("tool call rejected", fields...)
		} else {
			log.Error("tool call failed", fields...)
		}
		return Response{Error: &ErrorBody{Kind: terr.Kind, Message: terr.Message}}
	}

	d.metrics.RecordToolCall(req.Tool, "ok", elapsed)
	helper.SetSuccess()
	log.Info("tool call completed", logging.F("duration", elapsed), logging.F("bytes", len(encoded)))
	return Response{Result: result, encoded: encoded}
}

// Call is Dispatch for in-process callers: it returns the result or the
// structured error.
func (d *Dispatcher) Call(ctx context.Context, tool string, args Args) (any, error) {
	resp := d.Dispatch(ctx, Request{Tool: tool, Arguments: args})
	if resp.Error != nil {
		te := grerrors.New(resp.Error.Kind, "%s", resp.Error.Message)
		te.Tool = tool
		return nil, te
	}
	return resp.Result, nil
}

func (d *Dispatcher) run(ctx context.Context, log logging.Logger, req Request) (result any, encoded json.RawMessage, terr *grerrors.ToolError) {
	phase := PhaseIdle
	defer func() {
		if r := recover(); r != nil {
			log.Error("tool panicked",
				logging.F("panic", fmt.Sprint(r)),
				logging.F("phase", string(phase)),
				logging.F("stack", string(debug.Stack())),
			)
			result, encoded = nil, nil
			terr = &grerrors.ToolError{
				Kind:    grerrors.KindInternal,
				Tool:    req.Tool,
				Phase:   string(phase),
				Message: fmt.Sprintf("panic: %v", r),
			}
		}
	}()
	fail := func(err error) (any, json.RawMessage, *grerrors.ToolError) {
		te := grerrors.Classify(err, req.Tool)
		if te.Phase == "" {
			te.Phase = string(phase)
		}
		return nil, nil, te
	}

	phase = PhaseValidating
	log.Debug("validating arguments", logging.F("args", len(req.Arguments)))
	tool, ok := d.registry.Get(req.Tool)
	if !ok {
		return fail(fmt.Errorf("%q: %w", req.Tool, grerrors.ErrUnknownTool))
	}
	params, err := tool.Validate(req.Arguments)
	if err != nil {
		return fail(err)
	}

	phase = PhaseExecuting
	env := &Env{
		Store:  d.store,
		Time:   d.time,
		Engine: d.engine,
		Logger: log,
	}
	if sl, ok := tool.(selfLoading); !ok || !sl.loadsSnapshot() {
		snap := d.store.Current()
		if snap == nil {
			if snap, err = d.store.Load(ctx); err != nil {
				return fail(err)
			}
		}
		env.Snapshot = snap
	}
	result, err = tool.Execute(ctx, env, params)
	if err != nil {
		return fail(err)
	}

	phase = PhaseResponding
	encoded, err = json.Marshal(result)
	if err != nil {
		return fail(fmt.Errorf("encode result: %w", err))
	}
	return result, encoded, nil
}
