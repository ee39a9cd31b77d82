package meeting

import (
	"strings"
	"time"
)

// Source identifies which audio channel an entry was captured from.
type Source int

const (
	SourceUnknown Source = iota
	SourceLocalMic
	SourceRemoteSystem
)

// ParseSource maps an archive source tag to a Source. Matching is
// case-insensitive; unrecognized tags are SourceUnknown.
func ParseSource(tag string) Source {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "microphone", "mic", "local":
		return SourceLocalMic
	case "system", "speaker", "remote":
		return SourceRemoteSystem
	default:
		return SourceUnknown
	}
}

// String returns the canonical name of the source.
func (s Source) String() string {
	switch s {
	case SourceLocalMic:
		return "local_mic"
	case SourceRemoteSystem:
		return "remote_system"
	default:
		return "unknown"
	}
}

// Label returns the speaker label used in transcripts: "me", "them" or "unknown".
func (s Source) Label() string {
	switch s {
	case SourceLocalMic:
		return "me"
	case SourceRemoteSystem:
		return "them"
	default:
		return "unknown"
	}
}

// RawEntry is a transcript entry as stored in the archive.
type RawEntry struct {
	ID             string `json:"id"`
	Text           string `json:"text"`
	Source         string `json:"source"`
	StartTimestamp string `json:"start_timestamp"`
	EndTimestamp   string `json:"end_timestamp"`
}

// Entry is one timestamped utterance.
type Entry struct {
	Timestamp time.Time
	End       *time.Time
	Source    Source
	Text      string
}

// WordCount returns the number of whitespace-separated tokens in the text.
func (e Entry) WordCount() int {
	return WordCount(e.Text)
}

// WordCount counts whitespace-separated tokens.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

// Transcript is an ordered sequence of entries in archive order.
type Transcript struct {
	Entries []Entry
	// Dropped counts raw entries whose start timestamp could not be parsed.
	Dropped int
}

// NewTranscript decodes raw entries, keeping archive order and dropping
// entries without a parseable start timestamp.
func NewTranscript(raw []RawEntry) *Transcript {
	t := &Transcript{Entries: make([]Entry, 0, len(raw))}
	for _, r := range raw {
		ts, ok := ParseTimestamp(r.StartTimestamp)
		if !ok {
			t.Dropped++
			continue
		}
		e := Entry{
			Timestamp: ts,
			Source:    ParseSource(r.Source),
			Text:      r.Text,
		}
		if end, ok := ParseTimestamp(r.EndTimestamp); ok {
			e.End = &end
		}
		t.Entries = append(t.Entries, e)
	}
	return t
}

// FullText joins entry texts with single spaces, skipping empty ones.
func (t *Transcript) FullText() string {
	parts := make([]string, 0, len(t.Entries))
	for _, e := range t.Entries {
		if s := strings.TrimSpace(e.Text); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// WordCount returns the total word count over all entries.
func (t *Transcript) WordCount() int {
	n := 0
	for _, e := range t.Entries {
		n += e.WordCount()
	}
	return n
}

// Speakers returns the distinct speaker labels in order of first appearance.
func (t *Transcript) Speakers() []string {
	seen := make(map[Source]bool, 3)
	out := make([]string, 0, 3)
	for _, e := range t.Entries {
		if !seen[e.Source] {
			seen[e.Source] = true
			out = append(out, e.Source.Label())
		}
	}
	return out
}

// WordsBySpeaker returns word counts keyed by speaker label, counting only
// non-empty entries.
func (t *Transcript) WordsBySpeaker() map[string]int {
	out := make(map[string]int)
	for _, e := range t.Entries {
		if n := e.WordCount(); n > 0 {
			out[e.Source.Label()] += n
		}
	}
	return out
}

// Span returns the time from the first entry start to the last entry end
// (or start when it has no end). ok is false when the span is not positive.
func (t *Transcript) Span() (time.Duration, bool) {
	if len(t.Entries) == 0 {
		return 0, false
	}
	first := t.Entries[0].Timestamp
	last := t.Entries[len(t.Entries)-1]
	end := last.Timestamp
	if last.End != nil {
		end = *last.End
	}
	d := end.Sub(first)
	if d <= 0 {
		return 0, false
	}
	return d, true
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses an archive timestamp. Values without a zone are UTC.
// The result is always in UTC.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
