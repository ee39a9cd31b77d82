// Package main provides the granola CLI entry point.
// granola answers questions about a local meeting-recorder archive, either
// directly on the command line or as a tool server for AI assistants.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/granola-mcp/cmd"
	"github.com/otherjamesbrown/granola-mcp/config"
	grerrors "github.com/otherjamesbrown/granola-mcp/pkg/errors"
	"github.com/otherjamesbrown/granola-mcp/pkg/logging"
)

// rootFlags are the persistent flags shared by every command.
type rootFlags struct {
	archivePath  string
	timezone     string
	outputFormat string
	debug        bool
	logJSON      bool
}

// skipsConfig lists commands that run without loading configuration.
var skipsConfig = map[string]bool{
	"version":    true,
	"help":       true,
	"completion": true,
	"init":       true,
}

func newRootCommand(deps *cmd.CommandDeps, stderr io.Writer) *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:   "granola",
		Short: "Query your meeting archive, or serve it to an AI assistant",
		Long: `granola reads the meeting recorder's local cache and answers questions
about your meetings: what happened, who was there, what was said.

DESIGNED FOR AI ASSISTANTS:
  'granola serve' exposes every query as an MCP tool on stdio. The same
  tools back the commands below, so results match exactly.

COMMON WORKFLOWS:
  Recent meetings:   granola meeting recent
  Find a meeting:    granola meeting search "pricing" --from 1m
  Read it:           granola meeting show <id>  →  granola meeting transcript <id>
  Trends:            granola stats summary  |  granola patterns --kind time
  Your own words:    granola export days --from 1w --dir ./me

Date flags accept 3d, 24h, 1w, 2m, 1y or YYYY-MM-DD[ HH:MM:SS] in the
configured timezone.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(c *cobra.Command, _ []string) error {
			deps.OutputFormat = flags.outputFormat
			if skipsConfig[c.Name()] {
				return nil
			}

			cfg, err := deps.LoadConfig()
			if err != nil {
				return fmt.Errorf("loading configuration: %w", err)
			}
			if flags.archivePath != "" {
				cfg.ArchivePath = flags.archivePath
			}
			if flags.timezone != "" {
				cfg.Timezone = flags.timezone
			}
			if flags.debug {
				cfg.Debug = true
			}
			if flags.logJSON {
				cfg.LogJSON = true
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			deps.Config = cfg

			level := logging.LevelWarn
			if c.Name() == "serve" {
				level = logging.LevelInfo
			}
			if cfg.Debug {
				level = logging.LevelDebug
			}
			deps.Logger = logging.NewLogger(&logging.Config{
				Level:       level,
				ServiceName: "granola",
				JSONFormat:  cfg.LogJSON,
				Output:      stderr,
			})
			logging.SetGlobal(deps.Logger)
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.archivePath, "archive", "", "Archive file (overrides archive_path)")
	pf.StringVar(&flags.timezone, "timezone", "", "IANA timezone for dates (overrides timezone)")
	pf.StringVarP(&flags.outputFormat, "output", "o", "", "Output format: text, json, yaml")
	pf.BoolVar(&flags.debug, "debug", false, "Enable debug logging")
	pf.BoolVar(&flags.logJSON, "log-json", false, "Write logs as JSON")

	root.AddCommand(cmd.NewServeCommand(deps))
	root.AddCommand(cmd.NewMeetingCommand(deps))
	root.AddCommand(cmd.NewStatsCommand(deps))
	root.AddCommand(cmd.NewPatternsCommand(deps))
	root.AddCommand(cmd.NewParticipantsCommand(deps))
	root.AddCommand(cmd.NewExportCommand(deps))
	root.AddCommand(cmd.NewConfigCommand(cmd.DefaultConfigDeps(deps)))
	root.AddCommand(cmd.NewVersionCommand(deps))

	return root
}

// printError writes err and, for classified failures, what to do next.
func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)
	var te *grerrors.ToolError
	if errors.As(err, &te) {
		if !grerrors.IsCallerError(te.Kind) {
			fmt.Fprintf(w, "Cause: %s\n", grerrors.GetDescription(te.Kind))
		}
		fmt.Fprintf(w, "Hint: %s\n", grerrors.GetSuggestedAction(te.Kind))
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps := cmd.DefaultDeps()
	deps.LoadConfig = config.LoadConfig
	if err := newRootCommand(deps, os.Stderr).ExecuteContext(ctx); err != nil {
		printError(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
