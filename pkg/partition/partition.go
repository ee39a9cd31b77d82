// Package partition splits transcripts by audio source into the words the
// recorder's owner spoke (local microphone) and the words they heard
// (remote/system audio), and groups them into calendar days for export.
package partition

import (
	"fmt"
	"sort"
	"strings"
	"time"

	grerrors "github.com/otherjamesbrown/granola-mcp/pkg/errors"
	"github.com/otherjamesbrown/granola-mcp/pkg/meeting"
)

// Result is the outcome of partitioning one transcript.
type Result struct {
	Own   []meeting.Entry
	Heard []meeting.Entry
	// Unknown counts entries whose source is neither side.
	Unknown int
	// ShortDropped counts entries below the minimum word count.
	ShortDropped int
}

// Partition separates entries by source, keeping archive order within each
// side. Entries with fewer than minWords words are dropped; minWords <= 0
// keeps everything.
func Partition(entries []meeting.Entry, minWords int) Result {
	var r Result
	for _, e := range entries {
		if e.Source == meeting.SourceUnknown {
			r.Unknown++
			continue
		}
		if minWords > 0 && e.WordCount() < minWords {
			r.ShortDropped++
			continue
		}
		switch e.Source {
		case meeting.SourceLocalMic:
			r.Own = append(r.Own, e)
		case meeting.SourceRemoteSystem:
			r.Heard = append(r.Heard, e)
		}
	}
	return r
}

// Side selects which half of a partition is exported.
type Side string

const (
	SideOwn   Side = "own"
	SideHeard Side = "heard"
)

// ParseSide parses a side name. Empty selects SideOwn.
func ParseSide(s string) (Side, error) {
	switch Side(strings.ToLower(strings.TrimSpace(s))) {
	case "", SideOwn:
		return SideOwn, nil
	case SideHeard:
		return SideHeard, nil
	default:
		return "", fmt.Errorf("side %q (want own or heard): %w", s, grerrors.ErrInvalidArgument)
	}
}

// Line is one entry tagged with the meeting it came from.
type Line struct {
	MeetingID    string
	MeetingTitle string
	MeetingStart time.Time
	meeting.Entry
}

// Day is all lines whose timestamps fall on one calendar day.
type Day struct {
	// Key is the day as YYYY-MM-DD in the grouping zone.
	Key   string
	Lines []Line
}

// GroupByDay buckets lines by calendar day in loc. Days are returned in
// ascending order; lines within a day are chronological, equal timestamps
// keeping their input order.
func GroupByDay(lines []Line, loc *time.Location) []Day {
	if loc == nil {
		loc = time.UTC
	}
	byKey := map[string][]Line{}
	for _, l := range lines {
		k := l.Timestamp.In(loc).Format("2006-01-02")
		byKey[k] = append(byKey[k], l)
	}

	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	days := make([]Day, 0, len(keys))
	for _, k := range keys {
		ls := byKey[k]
		sort.SliceStable(ls, func(i, j int) bool { return ls[i].Timestamp.Before(ls[j].Timestamp) })
		days = append(days, Day{Key: k, Lines: ls})
	}
	return days
}

// Options control ForExport.
type Options struct {
	Side     Side
	Location *time.Location
}

// ForExport partitions every meeting's transcript and returns the selected
// side grouped by day, merged across meetings. Entries with empty text are
// skipped.
func ForExport(ms []*meeting.Meeting, minWords int, opts Options) []Day {
	side := opts.Side
	if side == "" {
		side = SideOwn
	}

	var lines []Line
	for _, m := range ms {
		t := m.Transcript()
		if t == nil {
			continue
		}
		r := Partition(t.Entries, minWords)
		picked := r.Own
		if side == SideHeard {
			picked = r.Heard
		}
		for _, e := range picked {
			if strings.TrimSpace(e.Text) == "" {
				continue
			}
			lines = append(lines, Line{
				MeetingID:    m.ID,
				MeetingTitle: m.DisplayTitle(),
				MeetingStart: m.Start,
				Entry:        e,
			})
		}
	}
	return GroupByDay(lines, opts.Location)
}
