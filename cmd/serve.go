package cmd

import (
	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/granola-mcp/pkg/logging"
	"github.com/otherjamesbrown/granola-mcp/pkg/transport"
)

// NewServeCommand creates the serve command.
func NewServeCommand(deps *CommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultDeps()
	}
	var (
		serveHTTP bool
		httpAddr  string
		preload   bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the meeting tools to an AI assistant",
		Long: `Serve the meeting tools over the Model Context Protocol on stdin/stdout.
Logs go to stderr.

With --http, serve the same tools as a JSON API instead:
  GET  /v1/tools          tool catalog with input schemas
  POST /v1/tools/{name}   call a tool; the body is the argument object
  GET  /health, /version, /metrics`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			ctx := c.Context()
			d, err := deps.Dispatcher()
			if err != nil {
				return err
			}
			log := deps.logger()

			if preload {
				if _, err := deps.store.Load(ctx); err != nil {
					log.Warn("archive not loaded at startup, will retry on first call", logging.Err(err))
				}
			}

			if serveHTTP {
				if httpAddr == "" {
					httpAddr = deps.Config.HTTPAddress
				}
				h := transport.NewRouter(d, transport.HTTPOptions{Logger: log, Gatherer: deps.Registry})
				return transport.ListenAndServe(ctx, httpAddr, h, log)
			}
			return transport.ServeStdio(ctx, transport.NewMCPServer(d), log)
		},
	}
	cmd.Flags().BoolVar(&serveHTTP, "http", false, "Serve the HTTP API instead of MCP stdio")
	cmd.Flags().StringVar(&httpAddr, "addr", "", "HTTP listen address (default from config)")
	cmd.Flags().BoolVar(&preload, "preload", true, "Load the archive at startup")
	return cmd
}
