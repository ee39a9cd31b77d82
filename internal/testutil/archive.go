// Package testutil builds archive fixtures for tests.
package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"
)

// Entry is a transcript entry relative to its meeting's start.
type Entry struct {
	At     time.Duration
	Until  time.Duration
	Source string
	Text   string
}

// Doc describes one archive document.
type Doc struct {
	ID           string
	Title        string
	Start        time.Time
	Attendees    []string
	Creator      string
	Folders      []string
	Tags         []string
	Summary      string
	Notes        string
	PanelHTML    string
	Entries      []Entry
	Deleted      bool
	InlineOnly   bool
	NoCreatedAt  bool
	CalendarOnly bool
}

// State returns the decoded archive state for docs.
func State(docs ...Doc) map[string]any {
	documents := map[string]any{}
	transcripts := map[string]any{}
	panels := map[string]any{}
	lists := map[string][]string{}

	for _, d := range docs {
		rec := map[string]any{
			"id":    d.ID,
			"title": d.Title,
		}
		if !d.NoCreatedAt {
			rec["created_at"] = d.Start.UTC().Format(time.RFC3339Nano)
		}
		if d.CalendarOnly {
			rec["google_calendar_event"] = map[string]any{
				"start": map[string]any{"dateTime": d.Start.Format(time.RFC3339)},
				"end":   map[string]any{"dateTime": d.Start.Add(time.Hour).Format(time.RFC3339)},
			}
		}
		if d.Deleted {
			rec["deleted_at"] = d.Start.UTC().Format(time.RFC3339)
		}
		if len(d.Attendees) > 0 || d.Creator != "" {
			attendees := make([]map[string]any, 0, len(d.Attendees))
			for _, a := range d.Attendees {
				attendees = append(attendees, map[string]any{"name": a})
			}
			people := map[string]any{"attendees": attendees}
			if d.Creator != "" {
				people["creator"] = map[string]any{"name": d.Creator}
			}
			rec["people"] = people
		}
		if d.Summary != "" {
			rec["summary"] = d.Summary
		}
		if d.Notes != "" {
			rec["notes_markdown"] = d.Notes
		}
		if len(d.Tags) > 0 {
			rec["tags"] = d.Tags
		}
		if d.PanelHTML != "" {
			panels[d.ID] = map[string]any{
				"p1": map[string]any{"title": "Summary", "original_content": d.PanelHTML},
			}
		}
		for _, f := range d.Folders {
			lists[f] = append(lists[f], d.ID)
		}

		if len(d.Entries) > 0 {
			entries := make([]map[string]any, 0, len(d.Entries))
			for _, e := range d.Entries {
				entry := map[string]any{
					"text":            e.Text,
					"source":          e.Source,
					"start_timestamp": d.Start.Add(e.At).UTC().Format(time.RFC3339Nano),
				}
				if e.Until > 0 {
					entry["end_timestamp"] = d.Start.Add(e.Until).UTC().Format(time.RFC3339Nano)
				}
				entries = append(entries, entry)
			}
			if d.InlineOnly {
				rec["transcript"] = entries
			} else {
				transcripts[d.ID] = entries
			}
		}
		documents[d.ID] = rec
	}

	listIDs := make([]string, 0, len(lists))
	for f := range lists {
		listIDs = append(listIDs, f)
	}
	sort.Strings(listIDs)
	documentLists := map[string]any{}
	metadata := map[string]any{}
	for i, f := range listIDs {
		id := "list-" + string(rune('a'+i))
		documentLists[id] = lists[f]
		metadata[id] = map[string]any{"title": f}
	}

	return map[string]any{
		"documents":             documents,
		"transcripts":           transcripts,
		"documentPanels":        panels,
		"documentLists":         documentLists,
		"documentListsMetadata": metadata,
	}
}

// ArchiveJSON returns archive file bytes for docs, with the state
// double-encoded inside the cache field.
func ArchiveJSON(t testing.TB, docs ...Doc) []byte {
	t.Helper()
	inner, err := json.Marshal(map[string]any{"state": State(docs...)})
	if err != nil {
		t.Fatalf("marshal state: %v", err)
	}
	outer, err := json.Marshal(map[string]any{"cache": string(inner)})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return outer
}

// WriteArchive writes an archive for docs into dir and returns its path.
func WriteArchive(t testing.TB, dir string, docs ...Doc) string {
	t.Helper()
	path := filepath.Join(dir, "cache-v3.json")
	if err := os.WriteFile(path, ArchiveJSON(t, docs...), 0o644); err != nil {
		t.Fatalf("write archive: %v", err)
	}
	return path
}

// SampleDocs returns a small, varied set of meetings in June 2025
// (America/Chicago wall times).
func SampleDocs() []Doc {
	loc, err := time.LoadLocation("America/Chicago")
	if err != nil {
		loc = time.FixedZone("CDT", -5*60*60)
	}
	at := func(day, hour, min int) time.Time {
		return time.Date(2025, 6, day, hour, min, 0, 0, loc)
	}

	return []Doc{
		{
			ID:        "m-standup-1",
			Title:     "Daily Standup",
			Start:     at(2, 9, 0),
			Attendees: []string{"Ana Silva", "Ben Ode"},
			Creator:   "Me",
			Folders:   []string{"Team"},
			Summary:   "Discussed the release checklist and blockers.",
			Entries: []Entry{
				{At: 0, Source: "microphone", Text: "morning everyone"},
				{At: time.Minute, Source: "system", Text: "hi there how are you"},
				{At: 10 * time.Minute, Until: 15 * time.Minute, Source: "microphone", Text: "let us wrap up"},
			},
		},
		{
			ID:        "m-client-1",
			Title:     "Acme Kickoff",
			Start:     at(3, 14, 30),
			Attendees: []string{"Carla Diaz", "Ana Silva"},
			Creator:   "Me",
			Folders:   []string{"Clients"},
			Tags:      []string{"acme"},
			PanelHTML: "<p>Agreed on a <strong>pilot</strong> for July.</p>",
			Notes:     "Follow up on pricing",
			Entries: []Entry{
				{At: 0, Source: "system", Text: "thanks for joining"},
				{At: 45 * time.Minute, Until: 50 * time.Minute, Source: "microphone", Text: "the pilot starts in July"},
			},
		},
		{
			ID:        "m-standup-2",
			Title:     "Daily Standup",
			Start:     at(9, 9, 0),
			Attendees: []string{"Ana Silva", "Ben Ode"},
			Creator:   "Me",
			Folders:   []string{"Team"},
			Entries: []Entry{
				{At: 0, Source: "microphone", Text: "quick one today"},
				{At: 20 * time.Minute, Source: "speaker", Text: "ok"},
			},
		},
		{
			ID:    "m-solo",
			Title: "",
			Start: at(10, 23, 59),
			Notes: "Thinking about the roadmap",
		},
	}
}
