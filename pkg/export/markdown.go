package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/otherjamesbrown/granola-mcp/pkg/meeting"
)

// MarkdownOptions control MeetingMarkdown.
type MarkdownOptions struct {
	IncludeTranscript bool
	IncludeMetadata   bool
	Location          *time.Location
}

// MeetingMarkdown renders one meeting as a markdown document: title,
// optional metadata block, summary, notes and optional transcript.
func MeetingMarkdown(m *meeting.Meeting, opts MarkdownOptions) string {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", m.DisplayTitle())

	if opts.IncludeMetadata {
		fmt.Fprintf(&b, "- **Date:** %s\n", m.Start.In(loc).Format("2006-01-02 15:04 MST"))
		if d, ok := m.Duration(); ok {
			fmt.Fprintf(&b, "- **Duration:** %d minutes\n", int(d.Minutes()))
		}
		if ps := m.UniqueParticipants(); len(ps) > 0 {
			fmt.Fprintf(&b, "- **Participants:** %s\n", strings.Join(ps, ", "))
		}
		if len(m.Folders) > 0 {
			fmt.Fprintf(&b, "- **Folders:** %s\n", strings.Join(m.Folders, ", "))
		}
		if len(m.Tags) > 0 {
			fmt.Fprintf(&b, "- **Tags:** %s\n", strings.Join(m.Tags, ", "))
		}
		fmt.Fprintf(&b, "- **Meeting ID:** %s\n\n", m.ID)
	}

	if s, ok := m.Summary().Summary(); ok {
		fmt.Fprintf(&b, "## Summary\n\n%s\n\n", s)
	}
	if n, ok := m.Summary().Notes(); ok {
		fmt.Fprintf(&b, "## Notes\n\n%s\n\n", n)
	}

	if opts.IncludeTranscript && m.HasTranscript() {
		b.WriteString("## Transcript\n\n")
		for _, e := range m.Transcript().Entries {
			text := strings.TrimSpace(e.Text)
			if text == "" {
				continue
			}
			fmt.Fprintf(&b, "**[%s] %s:** %s\n\n", e.Timestamp.In(loc).Format("15:04:05"), e.Source.Label(), text)
		}
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}
