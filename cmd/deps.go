// Package cmd implements the granola subcommands. Data commands run through
// the same tool dispatcher the MCP server uses, so the CLI and AI callers
// always see the same results.
package cmd

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/otherjamesbrown/granola-mcp/config"
	"github.com/otherjamesbrown/granola-mcp/pkg/archive"
	"github.com/otherjamesbrown/granola-mcp/pkg/logging"
	"github.com/otherjamesbrown/granola-mcp/pkg/observability"
	"github.com/otherjamesbrown/granola-mcp/pkg/timeutil"
	"github.com/otherjamesbrown/granola-mcp/pkg/tools"
)

// CommandDeps holds dependencies shared by the granola commands.
type CommandDeps struct {
	Config     *config.CLIConfig
	LoadConfig func() (*config.CLIConfig, error)
	Logger     logging.Logger

	// OutputFormat overrides the configured format when set.
	OutputFormat string

	// Registry collects the process metrics and backs GET /metrics.
	Registry *prometheus.Registry

	// Now replaces the wall clock in tests.
	Now func() time.Time

	once       sync.Once
	initErr    error
	store      *archive.Store
	time       *timeutil.Service
	metrics    *observability.Metrics
	dispatcher *tools.Dispatcher
}

// DefaultDeps returns default dependencies for production use.
func DefaultDeps() *CommandDeps {
	return &CommandDeps{
		LoadConfig: config.LoadConfig,
		Registry:   prometheus.NewRegistry(),
	}
}

func (d *CommandDeps) config() (*config.CLIConfig, error) {
	if d.Config != nil {
		return d.Config, nil
	}
	if d.LoadConfig == nil {
		d.Config = config.DefaultConfig()
		return d.Config, nil
	}
	cfg, err := d.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	d.Config = cfg
	return cfg, nil
}

func (d *CommandDeps) logger() logging.Logger {
	if d.Logger == nil {
		return logging.NewNopLogger()
	}
	return d.Logger
}

// format returns the output format for this invocation.
func (d *CommandDeps) format() (config.OutputFormat, error) {
	if d.OutputFormat != "" {
		f := config.OutputFormat(d.OutputFormat)
		if !f.IsValid() {
			return "", fmt.Errorf("invalid output format %q (must be text, json, or yaml)", d.OutputFormat)
		}
		return f, nil
	}
	if d.Config != nil && d.Config.OutputFormat != "" {
		return d.Config.OutputFormat, nil
	}
	return config.OutputFormatText, nil
}

// setup builds the store, time service and dispatcher once per process.
func (d *CommandDeps) setup() error {
	d.once.Do(func() {
		cfg, err := d.config()
		if err != nil {
			d.initErr = err
			return
		}
		ts, err := timeutil.New(cfg.Timezone, cfg.DefaultLookback)
		if err != nil {
			d.initErr = err
			return
		}
		if d.Now != nil {
			ts.Now = d.Now
		}
		path, err := cfg.ResolvedArchivePath()
		if err != nil {
			d.initErr = err
			return
		}

		reg := d.Registry
		if reg == nil {
			reg = prometheus.NewRegistry()
			d.Registry = reg
		}
		log := d.logger()
		tracer := observability.NewTracer()

		d.time = ts
		d.metrics = observability.NewMetrics(reg)
		d.store = archive.NewStore(path,
			archive.WithLogger(log),
			archive.WithMetrics(d.metrics),
			archive.WithTracer(tracer),
			archive.WithLocation(ts.Zone()),
		)
		d.dispatcher = tools.NewDispatcher(d.store, ts,
			tools.WithLogger(log),
			tools.WithMetrics(d.metrics),
			tools.WithTracer(tracer),
		)
	})
	return d.initErr
}

// Dispatcher returns the shared tool dispatcher.
func (d *CommandDeps) Dispatcher() (*tools.Dispatcher, error) {
	if err := d.setup(); err != nil {
		return nil, err
	}
	return d.dispatcher, nil
}

// snapshot loads the archive, for commands that work on meetings directly.
func (d *CommandDeps) snapshot(ctx context.Context) (*archive.Snapshot, error) {
	if err := d.setup(); err != nil {
		return nil, err
	}
	return d.store.Load(ctx)
}

// call runs one tool through the dispatcher.
func (d *CommandDeps) call(ctx context.Context, tool string, args tools.Args) (any, error) {
	disp, err := d.Dispatcher()
	if err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return disp.Call(ctx, tool, args)
}
