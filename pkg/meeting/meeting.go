// Package meeting provides the typed, immutable view over one archived
// meeting: metadata, a lazily materialized transcript and the separated
// AI summary and human notes.
package meeting

import (
	"sync"
	"time"
)

// UntitledTitle is shown for meetings whose title is empty.
const UntitledTitle = "Untitled Meeting"

// Info holds the scalar metadata of a meeting.
type Info struct {
	ID           string
	Title        string
	Start        time.Time
	CalendarEnd  *time.Time
	Updated      *time.Time
	Folders      []string
	Participants []string
	Tags         []string
}

// Meeting is one decoded archive record. It is never modified after New
// returns, and is safe for concurrent use.
type Meeting struct {
	Info
	summary SummaryBundle

	raw            []RawEntry
	transcriptOnce sync.Once
	transcript     *Transcript
}

// New builds a meeting. The raw transcript entries are decoded on the first
// call to Transcript.
func New(info Info, summary SummaryBundle, raw []RawEntry) *Meeting {
	return &Meeting{Info: info, summary: summary, raw: raw}
}

// DisplayTitle returns the title, or UntitledTitle when it is empty.
func (m *Meeting) DisplayTitle() string {
	if m.Title == "" {
		return UntitledTitle
	}
	return m.Title
}

// Transcript returns the meeting transcript, or nil when the record had no
// transcript entries.
func (m *Meeting) Transcript() *Transcript {
	m.transcriptOnce.Do(func() {
		if len(m.raw) > 0 {
			m.transcript = NewTranscript(m.raw)
		}
	})
	return m.transcript
}

// HasTranscript reports whether the meeting has at least one usable entry.
func (m *Meeting) HasTranscript() bool {
	t := m.Transcript()
	return t != nil && len(t.Entries) > 0
}

// Summary returns the summary bundle.
func (m *Meeting) Summary() SummaryBundle {
	return m.summary
}

// Duration is derived from the transcript: last entry end (or start) minus
// first entry start. ok is false when there is no transcript or the result
// is not positive.
func (m *Meeting) Duration() (d time.Duration, ok bool) {
	t := m.Transcript()
	if t == nil {
		return 0, false
	}
	return t.Span()
}

// End returns Start plus the duration when defined, else the calendar end.
func (m *Meeting) End() (time.Time, bool) {
	if d, ok := m.Duration(); ok {
		return m.Start.Add(d), true
	}
	if m.CalendarEnd != nil {
		return *m.CalendarEnd, true
	}
	return time.Time{}, false
}

// TranscriptWords returns the transcript word count, 0 without a transcript.
func (m *Meeting) TranscriptWords() int {
	if t := m.Transcript(); t != nil {
		return t.WordCount()
	}
	return 0
}

// HasFolder reports whether the meeting carries the exact folder label.
func (m *Meeting) HasFolder(label string) bool {
	for _, f := range m.Folders {
		if f == label {
			return true
		}
	}
	return false
}

// UniqueParticipants returns the participant list with duplicates removed,
// keeping first-seen order.
func (m *Meeting) UniqueParticipants() []string {
	seen := make(map[string]bool, len(m.Participants))
	out := make([]string, 0, len(m.Participants))
	for _, p := range m.Participants {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}
