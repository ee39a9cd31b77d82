package archive

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	grerrors "github.com/otherjamesbrown/granola-mcp/pkg/errors"
	"github.com/otherjamesbrown/granola-mcp/pkg/meeting"
)

// envelope is the outer layer of the archive file. cache normally holds the
// state as a JSON-encoded string.
type envelope struct {
	Cache json.RawMessage `json:"cache"`
}

type state struct {
	Documents             map[string]json.RawMessage            `json:"documents"`
	Transcripts           map[string]json.RawMessage            `json:"transcripts"`
	DocumentPanels        map[string]map[string]json.RawMessage `json:"documentPanels"`
	DocumentLists         map[string]json.RawMessage            `json:"documentLists"`
	DocumentListsMetadata map[string]json.RawMessage            `json:"documentListsMetadata"`
}

type record struct {
	ID            string          `json:"id"`
	Title         *string         `json:"title"`
	CreatedAt     string          `json:"created_at"`
	UpdatedAt     string          `json:"updated_at"`
	DeletedAt     json.RawMessage `json:"deleted_at"`
	Summary       json.RawMessage `json:"summary"`
	Overview      json.RawMessage `json:"overview"`
	NotesMarkdown json.RawMessage `json:"notes_markdown"`
	NotesPlain    json.RawMessage `json:"notes_plain"`
	Notes         json.RawMessage `json:"notes"`
	People        *people         `json:"people"`
	Calendar      *calendarEvent  `json:"google_calendar_event"`
	Folders       json.RawMessage `json:"folders"`
	Lists         json.RawMessage `json:"lists"`
	Tags          json.RawMessage `json:"tags"`
	Transcript    json.RawMessage `json:"transcript"`
}

type person struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type people struct {
	Attendees []person `json:"attendees"`
	Creator   *person  `json:"creator"`
}

type calendarTime struct {
	DateTime string `json:"dateTime"`
	Date     string `json:"date"`
	TimeZone string `json:"timeZone"`
}

type calendarAttendee struct {
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
}

type calendarEvent struct {
	Start     *calendarTime      `json:"start"`
	End       *calendarTime      `json:"end"`
	Attendees []calendarAttendee `json:"attendees"`
}

type panel struct {
	Title           string          `json:"title"`
	OriginalContent string          `json:"original_content"`
	Content         json.RawMessage `json:"content"`
}

type listMetadata struct {
	Title string `json:"title"`
}

// Decode parses archive bytes into a snapshot, placing all-day calendar
// dates at local midnight. See DecodeIn.
func Decode(data []byte) (*Snapshot, error) {
	return DecodeIn(data, time.Local)
}

// DecodeIn parses archive bytes into a snapshot. An unreadable outer envelope
// is ErrArchiveUnreadable; an undecodable embedded payload is
// ErrArchiveCorrupt. Individual bad records are counted, not returned.
// All-day calendar dates without their own zone are midnight in loc.
func DecodeIn(data []byte, loc *time.Location) (*Snapshot, error) {
	if loc == nil {
		loc = time.Local
	}
	payload, err := decodeEnvelope(data)
	if err != nil {
		return nil, err
	}
	st, err := decodeState(payload)
	if err != nil {
		return nil, err
	}
	return buildSnapshot(st, loc), nil
}

func decodeEnvelope(data []byte) ([]byte, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %v: %w", err, grerrors.ErrArchiveUnreadable)
	}
	raw := bytes.TrimSpace(env.Cache)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, fmt.Errorf("envelope has no cache field: %w", grerrors.ErrArchiveUnreadable)
	}

	// An object-valued cache is already decoded.
	if raw[0] == '{' {
		return raw, nil
	}
	var inner string
	if err := json.Unmarshal(raw, &inner); err != nil {
		return nil, fmt.Errorf("cache field is neither string nor object: %w", grerrors.ErrArchiveUnreadable)
	}
	return []byte(inner), nil
}

func decodeState(payload []byte) (*state, error) {
	var wrapper struct {
		State json.RawMessage `json:"state"`
	}
	if err := json.Unmarshal(payload, &wrapper); err != nil {
		return nil, fmt.Errorf("decode cache payload: %v: %w", err, grerrors.ErrArchiveCorrupt)
	}
	body := payload
	if s := bytes.TrimSpace(wrapper.State); len(s) > 0 && !bytes.Equal(s, []byte("null")) {
		body = s
	}

	var st state
	if err := json.Unmarshal(body, &st); err != nil {
		return nil, fmt.Errorf("decode state: %v: %w", err, grerrors.ErrArchiveCorrupt)
	}
	return &st, nil
}

func buildSnapshot(st *state, loc *time.Location) *Snapshot {
	folders := folderIndex(st)

	snap := &Snapshot{
		byID: make(map[string]*meeting.Meeting, len(st.Documents)),
	}
	snap.Stats.Records = len(st.Documents)

	for id, raw := range st.Documents {
		var rec record
		if err := json.Unmarshal(raw, &rec); err != nil {
			snap.Stats.Dropped++
			snap.Stats.Malformed++
			continue
		}
		if isSet(rec.DeletedAt) {
			snap.Stats.Deleted++
			continue
		}
		m, ok := buildMeeting(id, &rec, st, folders[id], loc)
		if !ok {
			snap.Stats.Dropped++
			continue
		}
		snap.Meetings = append(snap.Meetings, m)
		snap.byID[id] = m
	}

	sortMeetings(snap.Meetings)
	snap.Stats.Loaded = len(snap.Meetings)
	return snap
}

func buildMeeting(id string, rec *record, st *state, listFolders []string, loc *time.Location) (*meeting.Meeting, bool) {
	start, ok := startTime(rec, loc)
	if !ok {
		return nil, false
	}

	info := meeting.Info{
		ID:           id,
		Start:        start,
		Participants: participants(rec),
		Tags:         stringList(rec.Tags),
	}
	if rec.Title != nil {
		info.Title = strings.TrimSpace(*rec.Title)
	}
	if t, ok := meeting.ParseTimestamp(rec.UpdatedAt); ok {
		info.Updated = &t
	}
	if rec.Calendar != nil && rec.Calendar.End != nil {
		if t, ok := calendarInstant(rec.Calendar.End, loc); ok {
			info.CalendarEnd = &t
		}
	}

	info.Folders = uniqueSorted(listFolders, stringList(rec.Folders), stringList(rec.Lists))

	return meeting.New(info, summaryBundle(rec, st.DocumentPanels[id]), transcriptEntries(id, rec, st)), true
}

func startTime(rec *record, loc *time.Location) (time.Time, bool) {
	if rec.Calendar != nil && rec.Calendar.Start != nil {
		if t, ok := calendarInstant(rec.Calendar.Start, loc); ok {
			return t, true
		}
	}
	return meeting.ParseTimestamp(rec.CreatedAt)
}

func calendarInstant(ct *calendarTime, loc *time.Location) (time.Time, bool) {
	if t, ok := meeting.ParseTimestamp(ct.DateTime); ok {
		return t, true
	}
	if ct.Date != "" {
		if ct.TimeZone != "" {
			if z, err := time.LoadLocation(ct.TimeZone); err == nil {
				loc = z
			}
		}
		if t, err := time.ParseInLocation("2006-01-02", ct.Date, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func participants(rec *record) []string {
	var out []string
	if rec.People != nil {
		for _, a := range rec.People.Attendees {
			if n := firstNonEmpty(a.Name, a.Email); n != "" {
				out = append(out, n)
			}
		}
		if c := rec.People.Creator; c != nil {
			if n := firstNonEmpty(c.Name, c.Email); n != "" {
				out = append(out, n)
			}
		}
	}
	if rec.Calendar != nil {
		for _, a := range rec.Calendar.Attendees {
			if n := firstNonEmpty(a.DisplayName, a.Email); n != "" {
				out = append(out, n)
			}
		}
	}
	return out
}

func summaryBundle(rec *record, panels map[string]json.RawMessage) meeting.SummaryBundle {
	summary := firstNonEmpty(stringValue(rec.Summary), stringValue(rec.Overview))
	if summary == "" {
		summary = panelText(panels)
	}
	notes := firstNonEmpty(
		stringValue(rec.NotesMarkdown),
		stringValue(rec.NotesPlain),
		meeting.FlattenProseMirror(rec.Notes),
	)
	return meeting.NewSummaryBundle(summary, notes)
}

// panelText renders the AI panels of a document in key order.
func panelText(panels map[string]json.RawMessage) string {
	if len(panels) == 0 {
		return ""
	}
	keys := make([]string, 0, len(panels))
	for k := range panels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		var p panel
		if err := json.Unmarshal(panels[k], &p); err != nil {
			continue
		}
		text := meeting.HTMLToMarkdown(p.OriginalContent)
		if text == "" {
			text = meeting.FlattenProseMirror(p.Content)
		}
		if text == "" {
			continue
		}
		if p.Title != "" {
			text = "## " + p.Title + "\n\n" + text
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, "\n\n")
}

func transcriptEntries(id string, rec *record, st *state) []meeting.RawEntry {
	if raw, ok := st.Transcripts[id]; ok {
		var entries []meeting.RawEntry
		if err := json.Unmarshal(raw, &entries); err == nil {
			return entries
		}
	}
	if isSet(rec.Transcript) {
		var entries []meeting.RawEntry
		if err := json.Unmarshal(rec.Transcript, &entries); err == nil {
			return entries
		}
	}
	return nil
}

// folderIndex maps document ID to the titles of the lists containing it.
func folderIndex(st *state) map[string][]string {
	idx := make(map[string][]string)
	for listID, raw := range st.DocumentLists {
		var meta listMetadata
		if m, ok := st.DocumentListsMetadata[listID]; ok {
			_ = json.Unmarshal(m, &meta)
		}
		title := strings.TrimSpace(meta.Title)
		if title == "" {
			continue
		}
		for _, docID := range documentIDs(raw) {
			idx[docID] = append(idx[docID], title)
		}
	}
	return idx
}

// documentIDs accepts either a list of IDs or a list of objects with an id.
func documentIDs(raw json.RawMessage) []string {
	if ids := stringList(raw); ids != nil {
		return ids
	}
	var objs []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &objs); err != nil {
		return nil
	}
	out := make([]string, 0, len(objs))
	for _, o := range objs {
		if o.ID != "" {
			out = append(out, o.ID)
		}
	}
	return out
}

func isSet(raw json.RawMessage) bool {
	s := bytes.TrimSpace(raw)
	return len(s) > 0 && !bytes.Equal(s, []byte("null"))
}

func stringValue(raw json.RawMessage) string {
	if !isSet(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

func stringList(raw json.RawMessage) []string {
	if !isSet(raw) {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil
	}
	return list
}

func uniqueSorted(lists ...[]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, list := range lists {
		for _, v := range list {
			if v = strings.TrimSpace(v); v != "" && !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	sort.Strings(out)
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
