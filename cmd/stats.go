package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/granola-mcp/pkg/tools"
)

// NewStatsCommand creates the stats command.
func NewStatsCommand(deps *CommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultDeps()
	}

	cmd := &cobra.Command{
		Use:   "stats <kind>",
		Short: "Compute meeting statistics",
		Long: fmt.Sprintf(`Compute statistics over the archive, or over a date range when --from
or --to is given.

Kinds: %v

Examples:
  granola stats summary
  granola stats duration --from 1m
  granola stats words --from 2025-06-01 --to 2025-06-30 -o json`, tools.StatisticsKinds),
		Args:      cobra.ExactArgs(1),
		ValidArgs: tools.StatisticsKinds,
		RunE: func(c *cobra.Command, args []string) error {
			a := flagArgs(c, dateArgs)
			a["kind"] = args[0]
			return runTool(c, deps, "get-statistics", a)
		},
	}
	addDateFlags(cmd)
	return cmd
}

// NewPatternsCommand creates the patterns command.
func NewPatternsCommand(deps *CommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultDeps()
	}

	cmd := &cobra.Command{
		Use:   "patterns",
		Short: "Analyze meeting patterns",
		Long: fmt.Sprintf(`Analyze when meetings happen, how often, who meets together and how
durations trend. All analyses run unless --kind picks one of %v.`, tools.PatternKinds),
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			return runTool(c, deps, "analyze-patterns", flagArgs(c, merge(dateArgs, map[string]string{"kind": "kind"})))
		},
	}
	addDateFlags(cmd)
	cmd.Flags().String("kind", "", "Single analysis to run")
	return cmd
}

// NewParticipantsCommand creates the participants command.
func NewParticipantsCommand(deps *CommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultDeps()
	}

	cmd := &cobra.Command{
		Use:     "participants",
		Short:   "List participants and how many meetings each attended",
		Aliases: []string{"people"},
		Args:    cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			return runTool(c, deps, "list-participants", flagArgs(c, merge(dateArgs, map[string]string{"min-meetings": "min_meetings"})))
		},
	}
	addDateFlags(cmd)
	cmd.Flags().Int("min-meetings", 0, "Only participants in at least this many meetings")
	return cmd
}
