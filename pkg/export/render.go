// Package export renders partitioned transcript days and single meetings as
// text files, writing them atomically and only when their content changes.
package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/otherjamesbrown/granola-mcp/pkg/partition"
)

// Options control how a day is rendered.
type Options struct {
	// Timestamps prefixes each line with [HH:MM:SS].
	Timestamps bool
	// Metadata writes a "## HH:MM Title" header whenever the meeting changes.
	Metadata bool
	Location *time.Location
}

func (o Options) loc() *time.Location {
	if o.Location == nil {
		return time.UTC
	}
	return o.Location
}

// Render returns the text of one day. The output always ends in a newline
// unless the day has no lines.
func Render(day partition.Day, opts Options) string {
	var b strings.Builder
	loc := opts.loc()
	current := ""
	for i, l := range day.Lines {
		if opts.Metadata && (i == 0 || l.MeetingID != current) {
			if i > 0 {
				b.WriteString("\n")
			}
			fmt.Fprintf(&b, "## %s %s\n\n", l.MeetingStart.In(loc).Format("15:04"), l.MeetingTitle)
		}
		current = l.MeetingID
		if opts.Timestamps {
			fmt.Fprintf(&b, "[%s] ", l.Timestamp.In(loc).Format("15:04:05"))
		}
		b.WriteString(strings.TrimSpace(l.Text))
		b.WriteString("\n")
	}
	return b.String()
}

// FileName is the per-day output file name.
func FileName(day partition.Day) string {
	return day.Key + ".txt"
}
