package tools

import (
	"fmt"
	"time"
	"unicode/utf8"

	grerrors "github.com/otherjamesbrown/granola-mcp/pkg/errors"
	"github.com/otherjamesbrown/granola-mcp/pkg/meeting"
	"github.com/otherjamesbrown/granola-mcp/pkg/timeutil"
)

const previewRunes = 200

// MeetingItem is the list form of a meeting.
type MeetingItem struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	StartTime        string   `json:"start_time"`
	DurationMinutes  *int     `json:"duration_minutes"`
	ParticipantCount int      `json:"participant_count"`
	Folders          []string `json:"folders"`
	HasTranscript    bool     `json:"has_transcript"`
	HasSummary       bool     `json:"has_summary"`
	HasNotes         bool     `json:"has_notes"`
	SummaryPreview   *string  `json:"summary_preview"`
}

// MeetingList is the result of the listing tools.
type MeetingList struct {
	TotalFound     int            `json:"total_found"`
	Meetings       []MeetingItem  `json:"meetings"`
	FiltersApplied map[string]any `json:"filters_applied"`
}

// RangeInfo is a resolved date range in the display zone.
type RangeInfo struct {
	Start *string `json:"start"`
	End   string  `json:"end"`
}

func (e *Env) instant(t time.Time) string {
	return e.Time.ToDisplay(t).Format(time.RFC3339)
}

func (e *Env) optionalInstant(t time.Time, ok bool) *string {
	if !ok {
		return nil
	}
	s := e.instant(t)
	return &s
}

func (e *Env) rangeInfo(r *timeutil.Range) *RangeInfo {
	if r == nil {
		return nil
	}
	return &RangeInfo{Start: e.optionalInstant(r.Start, !r.Open()), End: e.instant(r.End)}
}

func (e *Env) item(m *meeting.Meeting) MeetingItem {
	it := MeetingItem{
		ID:               m.ID,
		Title:            m.DisplayTitle(),
		StartTime:        e.instant(m.Start),
		DurationMinutes:  durationMinutes(m),
		ParticipantCount: len(m.UniqueParticipants()),
		Folders:          nonNil(m.Folders),
		HasTranscript:    m.HasTranscript(),
		HasSummary:       m.Summary().HasSummary(),
		HasNotes:         m.Summary().HasNotes(),
	}
	if s, ok := m.Summary().Summary(); ok {
		p := preview(s)
		it.SummaryPreview = &p
	}
	return it
}

func (e *Env) items(ms []*meeting.Meeting) []MeetingItem {
	out := make([]MeetingItem, 0, len(ms))
	for _, m := range ms {
		out = append(out, e.item(m))
	}
	return out
}

// lookup returns the meeting with id from the call's snapshot.
func (e *Env) lookup(id string) (*meeting.Meeting, error) {
	m, ok := e.Snapshot.Get(id)
	if !ok {
		return nil, fmt.Errorf("meeting %q: %w", id, grerrors.ErrNotFound)
	}
	return m, nil
}

func durationMinutes(m *meeting.Meeting) *int {
	d, ok := m.Duration()
	if !ok {
		return nil
	}
	n := int(d.Minutes())
	return &n
}

func preview(s string) string {
	if utf8.RuneCountInString(s) <= previewRunes {
		return s
	}
	return string([]rune(s)[:previewRunes]) + "..."
}

func formatMinutes(n int) string {
	return fmt.Sprintf("%d minutes", n)
}

func optionalString(s string, ok bool) *string {
	if !ok {
		return nil
	}
	return &s
}

// nilIfEmpty returns nil for "", so omitted arguments render as null.
func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
