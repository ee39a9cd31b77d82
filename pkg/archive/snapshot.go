package archive

import (
	"sort"
	"time"

	"github.com/otherjamesbrown/granola-mcp/pkg/meeting"
)

// Stats counts what happened to the records of one decode pass.
type Stats struct {
	// Records is the number of documents in the archive.
	Records int `json:"records"`
	// Loaded is the number of meetings in the snapshot.
	Loaded int `json:"loaded"`
	// Dropped counts records that were malformed or had no parseable start.
	Dropped int `json:"dropped"`
	// Malformed is the subset of Dropped that did not decode at all.
	Malformed int `json:"malformed"`
	// Deleted counts records carrying a deleted_at marker.
	Deleted int `json:"deleted"`
}

// Snapshot is one immutable, fully decoded copy of the archive.
type Snapshot struct {
	LoadedAt time.Time
	Path     string
	// Meetings is ordered by start ascending, then ID.
	Meetings []*meeting.Meeting
	Stats    Stats

	byID map[string]*meeting.Meeting
}

// Get returns the meeting with the given ID.
func (s *Snapshot) Get(id string) (*meeting.Meeting, bool) {
	if s == nil {
		return nil, false
	}
	m, ok := s.byID[id]
	return m, ok
}

// Len returns the number of meetings.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Meetings)
}

// Latest returns the meeting with the latest start, or nil when empty.
func (s *Snapshot) Latest() *meeting.Meeting {
	if s.Len() == 0 {
		return nil
	}
	return s.Meetings[len(s.Meetings)-1]
}

// IDs returns all meeting IDs in snapshot order.
func (s *Snapshot) IDs() []string {
	ids := make([]string, 0, s.Len())
	if s == nil {
		return ids
	}
	for _, m := range s.Meetings {
		ids = append(ids, m.ID)
	}
	return ids
}

func sortMeetings(ms []*meeting.Meeting) {
	sort.SliceStable(ms, func(i, j int) bool {
		if !ms[i].Start.Equal(ms[j].Start) {
			return ms[i].Start.Before(ms[j].Start)
		}
		return ms[i].ID < ms[j].ID
	})
}
