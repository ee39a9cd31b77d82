package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/otherjamesbrown/granola-mcp/config"
	"github.com/otherjamesbrown/granola-mcp/pkg/tools"
)

// render writes v in the requested format. Text output uses the type's
// table or prose form when it has one, and YAML otherwise.
func render(w io.Writer, format config.OutputFormat, v any) error {
	switch format {
	case config.OutputFormatJSON:
		return outputJSON(w, v)
	case config.OutputFormatYAML:
		return outputYAML(w, v)
	}
	if ok, err := renderText(w, v); ok {
		return err
	}
	return outputYAML(w, v)
}

// outputJSON outputs data as indented JSON.
func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputYAML outputs data as YAML with the same keys and key order as the
// JSON form: v is encoded to JSON, read back as a YAML node tree and
// re-emitted in block style.
func outputYAML(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return err
	}
	blockStyle(&node)
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return err
	}
	return enc.Close()
}

func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}

func renderText(w io.Writer, v any) (bool, error) {
	switch r := v.(type) {
	case tools.MeetingList:
		return true, meetingTable(w, r)
	case tools.MeetingDetail:
		return true, meetingDetailText(w, r)
	case tools.TranscriptResult:
		return true, transcriptText(w, r)
	case tools.MeetingNotes:
		return true, notesText(w, r)
	case tools.ParticipantList:
		return true, participantTable(w, r)
	case tools.ExportResult:
		_, err := io.WriteString(w, r.Content)
		return true, err
	}
	return false, nil
}

func meetingTable(w io.Writer, l tools.MeetingList) error {
	if len(l.Meetings) == 0 {
		_, err := fmt.Fprintln(w, "No meetings found.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTART\tDURATION\tPEOPLE\tTITLE")
	for _, m := range l.Meetings {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
			m.ID, shortTime(m.StartTime), minutes(m.DurationMinutes), m.ParticipantCount, m.Title)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%d meeting(s)\n", l.TotalFound)
	return err
}

func meetingDetailText(w io.Writer, d tools.MeetingDetail) error {
	fmt.Fprintf(w, "%s\n", d.Title)
	fmt.Fprintf(w, "  ID:           %s\n", d.ID)
	fmt.Fprintf(w, "  Start:        %s\n", shortTime(d.StartTime))
	fmt.Fprintf(w, "  Duration:     %s\n", minutes(d.DurationMinutes))
	fmt.Fprintf(w, "  Participants: %s\n", joinOrDash(d.Participants))
	fmt.Fprintf(w, "  Folders:      %s\n", joinOrDash(d.Folders))
	if d.TranscriptInfo != nil {
		fmt.Fprintf(w, "  Transcript:   %d words, %d segments\n", d.TranscriptInfo.WordCount, d.TranscriptInfo.SegmentCount)
	}
	if d.Summary != nil {
		fmt.Fprintf(w, "\nSummary:\n%s\n", *d.Summary)
	}
	if d.Notes != nil {
		fmt.Fprintf(w, "\nNotes:\n%s\n", *d.Notes)
	}
	return nil
}

func transcriptText(w io.Writer, t tools.TranscriptResult) error {
	if !t.TranscriptAvailable {
		_, err := fmt.Fprintf(w, "No transcript for %s.\n", t.MeetingTitle)
		return err
	}
	for _, e := range t.Entries {
		var prefix []string
		if e.Timestamp != nil {
			prefix = append(prefix, "["+clock(*e.Timestamp)+"]")
		}
		if e.Speaker != nil {
			prefix = append(prefix, *e.Speaker+":")
		}
		if len(prefix) > 0 {
			fmt.Fprintf(w, "%s %s\n", strings.Join(prefix, " "), e.Text)
		} else {
			fmt.Fprintln(w, e.Text)
		}
	}
	return nil
}

func notesText(w io.Writer, n tools.MeetingNotes) error {
	fmt.Fprintf(w, "%s (%s)\n", n.Title, n.Date)
	if n.Summary != nil {
		fmt.Fprintf(w, "\nSummary:\n%s\n", *n.Summary)
	}
	if n.Notes != nil {
		fmt.Fprintf(w, "\nNotes:\n%s\n", *n.Notes)
	}
	if n.Summary == nil && n.Notes == nil {
		fmt.Fprintln(w, "\nNo summary or notes.")
	}
	return nil
}

func participantTable(w io.Writer, l tools.ParticipantList) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tMEETINGS")
	for _, p := range l.Participants {
		fmt.Fprintf(tw, "%s\t%d\n", p.Name, p.MeetingCount)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%d participant(s) across %d meeting(s)\n", l.TotalParticipants, l.TotalMeetingsAnalyzed)
	return err
}

// shortTime turns an RFC 3339 instant into "2006-01-02 15:04".
func shortTime(s string) string {
	if len(s) < 16 {
		return s
	}
	return strings.Replace(s[:16], "T", " ", 1)
}

// clock returns the HH:MM:SS part of an RFC 3339 instant.
func clock(s string) string {
	if len(s) < 19 {
		return s
	}
	return s[11:19]
}

func minutes(m *int) string {
	if m == nil {
		return "-"
	}
	return fmt.Sprintf("%dm", *m)
}

func joinOrDash(s []string) string {
	if len(s) == 0 {
		return "-"
	}
	return strings.Join(s, ", ")
}

// flagArgs copies the flags the user actually set into tool arguments,
// keyed by argument name. Unset flags are left out so tool defaults apply.
func flagArgs(c *cobra.Command, names map[string]string) tools.Args {
	args := tools.Args{}
	c.Flags().Visit(func(f *pflag.Flag) {
		key, ok := names[f.Name]
		if !ok {
			return
		}
		switch f.Value.Type() {
		case "int":
			n, _ := c.Flags().GetInt(f.Name)
			args[key] = n
		case "bool":
			b, _ := c.Flags().GetBool(f.Name)
			args[key] = b
		default:
			args[key] = f.Value.String()
		}
	})
	return args
}

// runTool dispatches tool and renders its result to the command's output.
func runTool(c *cobra.Command, deps *CommandDeps, tool string, args tools.Args) error {
	format, err := deps.format()
	if err != nil {
		return err
	}
	res, err := deps.call(c.Context(), tool, args)
	if err != nil {
		return err
	}
	return render(c.OutOrStdout(), format, res)
}

func addDateFlags(c *cobra.Command) {
	c.Flags().String("from", "", "Start: relative (3d, 24h, 1w, 2m, 1y) or YYYY-MM-DD[ HH:MM:SS]")
	c.Flags().String("to", "", "End: relative or absolute; a bare date includes the whole day")
}

var dateArgs = map[string]string{"from": "from", "to": "to"}

func merge(maps ...map[string]string) map[string]string {
	out := map[string]string{}
	for _, m := range maps {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}

// outputYAMLStruct encodes v with its yaml tags.
func outputYAMLStruct(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
