package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/granola-mcp/config"
	"github.com/otherjamesbrown/granola-mcp/pkg/export"
	"github.com/otherjamesbrown/granola-mcp/pkg/partition"
	"github.com/otherjamesbrown/granola-mcp/pkg/query"
	"github.com/otherjamesbrown/granola-mcp/pkg/tools"
)

// NewExportCommand creates the export command.
func NewExportCommand(deps *CommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultDeps()
	}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export transcripts to files",
	}
	cmd.AddCommand(newExportDaysCommand(deps))
	cmd.AddCommand(newExportMeetingCommand(deps))
	return cmd
}

// ExportSummary reports a per-day export run.
type ExportSummary struct {
	Dir      string              `json:"dir"`
	Side     partition.Side      `json:"side"`
	Meetings int                 `json:"meetings"`
	Files    []export.FileResult `json:"files"`
	Changed  int                 `json:"changed"`
}

func newExportDaysCommand(deps *CommandDeps) *cobra.Command {
	var (
		dir, from, to, side  string
		minWords             int
		timestamps, metadata bool
	)

	cmd := &cobra.Command{
		Use:   "days",
		Short: "Write one text file per day of your own (or others') speech",
		Long: `Split every transcript into what you said (microphone) and what you heard
(system audio), then write the chosen side as one YYYY-MM-DD.txt file per
day. Files whose content is unchanged are not rewritten, so re-running is
cheap and keeps modification times stable.

Examples:
  # Your own words from the last month
  granola export days --from 1m --dir ./me

  # What others said, with timestamps and meeting headers
  granola export days --side heard --timestamps --metadata`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			cfg, err := deps.config()
			if err != nil {
				return err
			}
			if !c.Flags().Changed("dir") {
				dir = cfg.ExportDir
			}
			if !c.Flags().Changed("min-words") {
				minWords = cfg.MinWords
			}
			s, err := partition.ParseSide(side)
			if err != nil {
				return err
			}

			snap, err := deps.snapshot(c.Context())
			if err != nil {
				return err
			}
			r, err := deps.time.OptionalRange(from, to)
			if err != nil {
				return err
			}
			ms := query.Filter(snap.Meetings, query.Criteria{Range: r})
			loc := deps.time.Zone()
			days := partition.ForExport(ms, minWords, partition.Options{Side: s, Location: loc})

			w := export.NewWriter(
				export.Options{Timestamps: timestamps, Metadata: metadata, Location: loc},
				export.WithLogger(deps.logger()),
				export.WithMetrics(deps.metrics),
			)
			files, err := w.WriteDays(dir, days)
			if err != nil {
				return err
			}

			sum := ExportSummary{Dir: dir, Side: s, Meetings: len(ms), Files: files}
			for _, f := range files {
				if f.Changed {
					sum.Changed++
				}
			}
			format, err := deps.format()
			if err != nil {
				return err
			}
			if format == config.OutputFormatText {
				return exportSummaryText(c.OutOrStdout(), sum)
			}
			return render(c.OutOrStdout(), format, sum)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Output directory (default from config)")
	cmd.Flags().StringVar(&from, "from", "", "Start date or relative offset (default: whole archive)")
	cmd.Flags().StringVar(&to, "to", "", "End date or relative offset")
	cmd.Flags().StringVar(&side, "side", string(partition.SideOwn), "Which side to export: own or heard")
	cmd.Flags().IntVar(&minWords, "min-words", 0, "Drop entries shorter than this many words (default from config)")
	cmd.Flags().BoolVar(&timestamps, "timestamps", false, "Prefix lines with [HH:MM:SS]")
	cmd.Flags().BoolVar(&metadata, "metadata", false, "Write a header line for each meeting")
	return cmd
}

func exportSummaryText(w io.Writer, s ExportSummary) error {
	for _, f := range s.Files {
		mark := " "
		if f.Changed {
			mark = "*"
		}
		fmt.Fprintf(w, "%s %s  %d lines\n", mark, f.Path, f.Lines)
	}
	_, err := fmt.Fprintf(w, "%d file(s) for %d meeting(s) in %s, %d changed\n",
		len(s.Files), s.Meetings, s.Dir, s.Changed)
	return err
}

func newExportMeetingCommand(deps *CommandDeps) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "meeting <id>",
		Short: "Export one meeting as markdown",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			a := flagArgs(c, map[string]string{
				"transcript": "include_transcript",
				"metadata":   "include_metadata",
			})
			a["id"] = args[0]

			if file == "" {
				return runTool(c, deps, "export-meeting", a)
			}
			res, err := deps.call(c.Context(), "export-meeting", a)
			if err != nil {
				return err
			}
			content := res.(tools.ExportResult).Content
			changed, err := export.WriteFileIfChanged(file, []byte(content))
			if err != nil {
				return err
			}
			status := "unchanged"
			if changed {
				status = "written"
			}
			_, err = fmt.Fprintf(c.OutOrStdout(), "%s: %s\n", file, status)
			return err
		},
	}
	cmd.Flags().Bool("transcript", true, "Include the transcript")
	cmd.Flags().Bool("metadata", true, "Include date, duration and participants")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Write to this file instead of stdout")
	return cmd
}
