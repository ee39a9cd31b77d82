package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/otherjamesbrown/granola-mcp/pkg/buildinfo"
	grerrors "github.com/otherjamesbrown/granola-mcp/pkg/errors"
	"github.com/otherjamesbrown/granola-mcp/pkg/logging"
	"github.com/otherjamesbrown/granola-mcp/pkg/tools"
)

// maxBody caps a tool call request body.
const maxBody = 1 << 20

// ToolInfo is the catalog entry returned by GET /v1/tools.
type ToolInfo struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// HTTPOptions configures the HTTP router.
type HTTPOptions struct {
	Logger   logging.Logger
	Gatherer prometheus.Gatherer
}

// NewRouter returns the HTTP API:
//
//	GET  /health
//	GET  /version
//	GET  /metrics
//	GET  /v1/tools
//	POST /v1/tools/{name}
func NewRouter(d *tools.Dispatcher, opts HTTPOptions) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/version", buildinfo.Handler(ServerName))
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/v1/tools", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			catalog := d.Registry().Catalog()
			out := make([]ToolInfo, 0, len(catalog))
			for _, t := range catalog {
				out = append(out, ToolInfo{
					Name:        t.Name(),
					Description: t.Description(),
					InputSchema: t.Schema().JSONSchema(),
				})
			}
			writeJSON(w, http.StatusOK, map[string]any{"tools": out})
		})
		r.Post("/{name}", func(w http.ResponseWriter, r *http.Request) {
			name := chi.URLParam(r, "name")
			body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
			if err != nil {
				writeJSON(w, http.StatusBadRequest, tools.Response{Error: &tools.ErrorBody{
					Kind: grerrors.KindInvalidArgument, Message: err.Error(),
				}})
				return
			}
			args, err := decodeArguments(body)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, tools.Response{Error: &tools.ErrorBody{
					Kind: grerrors.KindInvalidArgument, Message: err.Error(),
				}})
				return
			}

			resp := d.Dispatch(r.Context(), tools.Request{Tool: name, Arguments: args})
			writeJSON(w, statusFor(resp), resp)
		})
	})
	return r
}

// statusFor maps a response to an HTTP status. The body always carries the
// structured error, so the status is informational.
func statusFor(resp tools.Response) int {
	if resp.Error == nil {
		return http.StatusOK
	}
	switch resp.Error.Kind {
	case grerrors.KindUnknownTool, grerrors.KindNotFound:
		return http.StatusNotFound
	case grerrors.KindMissingArgument, grerrors.KindInvalidArgument, grerrors.KindInvalidDateExpression:
		return http.StatusBadRequest
	case grerrors.KindArchiveUnreadable, grerrors.KindArchiveCorrupt:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, `{"error":{"kind":"Internal","message":"encode response"}}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func requestLogger(logger logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			started := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				logging.F("method", r.Method),
				logging.F("path", r.URL.Path),
				logging.F("status", ww.Status()),
				logging.F("duration", time.Since(started)),
				logging.F("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}

// ListenAndServe serves handler on addr until ctx is done, then shuts down
// gracefully.
func ListenAndServe(ctx context.Context, addr string, handler http.Handler, logger logging.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("serving HTTP", logging.F("address", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		logger.Info("shutting down HTTP server")
		return srv.Shutdown(shutdownCtx)
	}
}
