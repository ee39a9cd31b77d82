package cmd

import (
	"strings"

	"github.com/spf13/cobra"
)

var (
	listArgs = merge(dateArgs, map[string]string{
		"limit":   "limit",
		"sort":    "sort",
		"reverse": "reverse",
	})
	searchArgs = merge(listArgs, map[string]string{
		"participant": "participant",
		"title":       "title",
		"folder":      "folder",
	})
)

// NewMeetingCommand creates the meeting command with all subcommands.
func NewMeetingCommand(deps *CommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultDeps()
	}

	cmd := &cobra.Command{
		Use:   "meeting",
		Short: "List, search and read archived meetings",
		Long: `List, search and read meetings from the local recorder archive.

Date flags accept relative offsets (3d, 24h, 1w, 2m, 1y) or absolute dates
(2025-06-01, "2025-06-01 09:30:00") in the configured timezone. Without
--from, list and search look back over the default lookback (3d).

Examples:
  # Meetings in the last week, longest first
  granola meeting list --from 1w --sort duration --reverse

  # Everything mentioning the pilot with Carla this month
  granola meeting search pilot --participant carla --from 1m

  # Read a transcript with timestamps
  granola meeting transcript <id> --timestamps

  # Output as JSON
  granola meeting list -o json`,
		Aliases: []string{"meetings"},
	}

	cmd.AddCommand(newMeetingRecentCommand(deps))
	cmd.AddCommand(newMeetingListCommand(deps))
	cmd.AddCommand(newMeetingSearchCommand(deps))
	cmd.AddCommand(newMeetingShowCommand(deps))
	cmd.AddCommand(newMeetingTranscriptCommand(deps))
	cmd.AddCommand(newMeetingNotesCommand(deps))

	return cmd
}

func addListFlags(c *cobra.Command) {
	addDateFlags(c)
	c.Flags().IntP("limit", "l", 0, "Maximum number of results (0 for all)")
	c.Flags().String("sort", "start", "Sort key: start, duration, transcript_words, summary_words, title")
	c.Flags().BoolP("reverse", "r", false, "Reverse the sort order")
}

func newMeetingRecentCommand(deps *CommandDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recent",
		Short: "Show the most recent meetings, newest first",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			return runTool(c, deps, "recent-meetings", flagArgs(c, map[string]string{"count": "count"}))
		},
	}
	cmd.Flags().IntP("count", "n", 10, "Number of meetings (1-100)")
	return cmd
}

func newMeetingListCommand(deps *CommandDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Short:   "List meetings in a date range",
		Aliases: []string{"ls"},
		Args:    cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			return runTool(c, deps, "list-meetings", flagArgs(c, listArgs))
		},
	}
	addListFlags(cmd)
	return cmd
}

func newMeetingSearchCommand(deps *CommandDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search [text...]",
		Short: "Search meetings by text, participant, title or folder",
		Long: `Search meetings in a date range. Free text matches titles, transcripts,
summaries and notes, case-insensitively. All given filters must match.

Pass --folder "" to find meetings that are in no folder.`,
		RunE: func(c *cobra.Command, args []string) error {
			a := flagArgs(c, searchArgs)
			if len(args) > 0 {
				a["query"] = strings.Join(args, " ")
			}
			return runTool(c, deps, "search-meetings", a)
		},
	}
	addListFlags(cmd)
	cmd.Flags().String("participant", "", "Participant name or email substring")
	cmd.Flags().String("title", "", "Title substring")
	cmd.Flags().String("folder", "", "Exact folder name")
	return cmd
}

func newMeetingShowCommand(deps *CommandDeps) *cobra.Command {
	return &cobra.Command{
		Use:     "show <id>",
		Short:   "Show meeting details",
		Aliases: []string{"get"},
		Args:    cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return runTool(c, deps, "get-meeting", map[string]any{"id": args[0]})
		},
	}
}

func newMeetingTranscriptCommand(deps *CommandDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transcript <id>",
		Short: "Print a meeting transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			a := flagArgs(c, map[string]string{"timestamps": "include_timestamps"})
			if noSources, _ := c.Flags().GetBool("no-speakers"); noSources {
				a["include_sources"] = false
			}
			a["id"] = args[0]
			return runTool(c, deps, "get-transcript", a)
		},
	}
	cmd.Flags().BoolP("timestamps", "t", false, "Include entry timestamps")
	cmd.Flags().Bool("no-speakers", false, "Omit speaker labels")
	return cmd
}

func newMeetingNotesCommand(deps *CommandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "notes <id>",
		Short: "Print the summary and notes of a meeting",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return runTool(c, deps, "get-meeting-notes", map[string]any{"id": args[0]})
		},
	}
}
