package tools

import (
	"context"

	"github.com/otherjamesbrown/granola-mcp/pkg/export"
	"github.com/otherjamesbrown/granola-mcp/pkg/query"
)

// recent-meetings

type recentMeetings struct{ base }

type recentParams struct {
	Count int
}

func newRecentMeetings() *recentMeetings {
	return &recentMeetings{base{
		name:        "recent-meetings",
		description: "Get the most recent meetings, newest first, going back as far as needed to find the requested number.",
		schema: Schema{
			{Name: "count", Type: TypeInteger, Default: 10, Minimum: intPtr(1), Maximum: intPtr(100), Description: "Number of meetings to return"},
		},
	}}
}

func (t *recentMeetings) Validate(args Args) (any, error) {
	v, err := t.schema.Bind(args)
	if err != nil {
		return nil, err
	}
	return recentParams{Count: v.Int("count")}, nil
}

func (t *recentMeetings) Execute(_ context.Context, env *Env, params any) (any, error) {
	p := params.(recentParams)
	ms := env.Engine.Query(env.Snapshot, query.Criteria{}, query.SortSpec{Key: query.SortStart, Reverse: true}, p.Count)
	return MeetingList{
		TotalFound: len(ms),
		Meetings:   env.items(ms),
		FiltersApplied: map[string]any{
			"type":                    "recent_meetings",
			"count_requested":         p.Count,
			"total_meetings_in_cache": env.Snapshot.Len(),
		},
	}, nil
}

// list-meetings and search-meetings

type searchParams struct {
	Query       string
	Participant string
	Title       string
	Folder      *string
	Dates       dates
	Limit       int
	HasLimit    bool
	Sort        query.SortSpec
}

func bindSearch(v Values) (searchParams, error) {
	d, err := bindDates(v)
	if err != nil {
		return searchParams{}, err
	}
	spec, err := bindSort(v)
	if err != nil {
		return searchParams{}, err
	}
	p := searchParams{
		Query:       v.String("query"),
		Participant: v.String("participant"),
		Title:       v.String("title"),
		Dates:       d,
		Limit:       v.Int("limit"),
		HasLimit:    v.Has("limit"),
		Sort:        spec,
	}
	if v.Has("folder") {
		f := v.String("folder")
		p.Folder = &f
	}
	return p, nil
}

func runSearch(env *Env, p searchParams) (MeetingList, error) {
	r, err := p.Dates.required(env.Time)
	if err != nil {
		return MeetingList{}, err
	}
	c := query.Criteria{
		Range:         r,
		Participant:   p.Participant,
		TitleContains: p.Title,
		Folder:        p.Folder,
		FreeText:      p.Query,
	}
	ms := env.Engine.Query(env.Snapshot, c, p.Sort, p.Limit)

	filters := p.Dates.filters(env, r)
	if p.Dates.From == "" && p.Dates.To == "" {
		filters["from"] = env.Time.Lookback()
	}
	filters["query"] = nilIfEmpty(p.Query)
	filters["participant"] = nilIfEmpty(p.Participant)
	filters["title"] = nilIfEmpty(p.Title)
	filters["folder"] = p.Folder
	filters["limit"] = nil
	if p.HasLimit {
		filters["limit"] = p.Limit
	}
	filters["sort"] = p.Sort.Key.String()
	filters["reverse"] = p.Sort.Reverse

	return MeetingList{TotalFound: len(ms), Meetings: env.items(ms), FiltersApplied: filters}, nil
}

type listMeetings struct{ base }

func newListMeetings() *listMeetings {
	return &listMeetings{base{
		name:        "list-meetings",
		description: "List meetings in a date range. Defaults to the configured lookback (3d) when from is omitted.",
		schema:      concat(dateParams(), sortParams()),
	}}
}

func (t *listMeetings) Validate(args Args) (any, error) {
	v, err := t.schema.Bind(args)
	if err != nil {
		return nil, err
	}
	return bindSearch(v)
}

func (t *listMeetings) Execute(_ context.Context, env *Env, params any) (any, error) {
	return runSearch(env, params.(searchParams))
}

type searchMeetings struct{ base }

func newSearchMeetings() *searchMeetings {
	return &searchMeetings{base{
		name:        "search-meetings",
		description: "Search meetings by text, participant, title and folder within a date range. Defaults to the configured lookback (3d) when from is omitted.",
		schema: concat(
			[]Param{
				{Name: "query", Type: TypeString, Description: "Case-insensitive text matched against title, transcript, summary and notes"},
				{Name: "participant", Type: TypeString, Description: "Case-insensitive substring of a participant name or email"},
				{Name: "title", Type: TypeString, Description: "Case-insensitive substring of the title"},
				{Name: "folder", Type: TypeString, Description: "Exact folder label; empty selects meetings in no folder"},
			},
			dateParams(),
			sortParams(),
		),
	}}
}

func (t *searchMeetings) Validate(args Args) (any, error) {
	v, err := t.schema.Bind(args)
	if err != nil {
		return nil, err
	}
	return bindSearch(v)
}

func (t *searchMeetings) Execute(_ context.Context, env *Env, params any) (any, error) {
	return runSearch(env, params.(searchParams))
}

// get-meeting

type getMeeting struct{ base }

type idParams struct {
	ID string
}

// TranscriptInfo summarizes a transcript without its text.
type TranscriptInfo struct {
	WordCount       int      `json:"word_count"`
	Speakers        []string `json:"speakers"`
	SegmentCount    int      `json:"segment_count"`
	DurationSeconds *float64 `json:"duration_seconds"`
	DroppedEntries  int      `json:"dropped_entries"`
}

// MeetingDetail is the full view of one meeting.
type MeetingDetail struct {
	ID              string          `json:"id"`
	Title           string          `json:"title"`
	StartTime       string          `json:"start_time"`
	EndTime         *string         `json:"end_time"`
	UpdatedAt       *string         `json:"updated_at"`
	DurationMinutes *int            `json:"duration_minutes"`
	Participants    []string        `json:"participants"`
	Folders         []string        `json:"folders"`
	Tags            []string        `json:"tags"`
	Summary         *string         `json:"summary"`
	Notes           *string         `json:"notes"`
	HasTranscript   bool            `json:"has_transcript"`
	HasSummary      bool            `json:"has_summary"`
	HasNotes        bool            `json:"has_notes"`
	TranscriptInfo  *TranscriptInfo `json:"transcript_info"`
}

func newGetMeeting() *getMeeting {
	return &getMeeting{base{
		name:        "get-meeting",
		description: "Get complete meeting details including participants, summary, notes and transcript info.",
		schema:      Schema{idParam("to retrieve")},
	}}
}

func bindID(s Schema, args Args) (idParams, error) {
	v, err := s.Bind(args)
	if err != nil {
		return idParams{}, err
	}
	return idParams{ID: v.String("id")}, nil
}

func (t *getMeeting) Validate(args Args) (any, error) {
	return bindID(t.schema, args)
}

func (t *getMeeting) Execute(_ context.Context, env *Env, params any) (any, error) {
	m, err := env.lookup(params.(idParams).ID)
	if err != nil {
		return nil, err
	}

	end, hasEnd := m.End()
	var updated *string
	if m.Updated != nil {
		s := env.instant(*m.Updated)
		updated = &s
	}
	d := MeetingDetail{
		ID:              m.ID,
		Title:           m.DisplayTitle(),
		StartTime:       env.instant(m.Start),
		EndTime:         env.optionalInstant(end, hasEnd),
		UpdatedAt:       updated,
		DurationMinutes: durationMinutes(m),
		Participants:    nonNil(m.Participants),
		Folders:         nonNil(m.Folders),
		Tags:            nonNil(m.Tags),
		Summary:         optionalString(m.Summary().Summary()),
		Notes:           optionalString(m.Summary().Notes()),
		HasTranscript:   m.HasTranscript(),
		HasSummary:      m.Summary().HasSummary(),
		HasNotes:        m.Summary().HasNotes(),
	}
	if m.HasTranscript() {
		tr := m.Transcript()
		info := &TranscriptInfo{
			WordCount:      tr.WordCount(),
			Speakers:       tr.Speakers(),
			SegmentCount:   len(tr.Entries),
			DroppedEntries: tr.Dropped,
		}
		if span, ok := tr.Span(); ok {
			secs := span.Seconds()
			info.DurationSeconds = &secs
		}
		d.TranscriptInfo = info
	}
	return d, nil
}

// get-transcript

type getTranscript struct{ base }

type transcriptParams struct {
	ID         string
	Timestamps bool
	Sources    bool
}

// TranscriptEntry is one utterance as returned to callers. Speaker and
// timestamps are present only when requested.
type TranscriptEntry struct {
	Text         string  `json:"text"`
	Speaker      *string `json:"speaker,omitempty"`
	Source       *string `json:"source,omitempty"`
	Timestamp    *string `json:"timestamp,omitempty"`
	EndTimestamp *string `json:"end_timestamp,omitempty"`
}

// TranscriptResult is the transcript of one meeting.
type TranscriptResult struct {
	MeetingID           string            `json:"meeting_id"`
	MeetingTitle        string            `json:"meeting_title"`
	TranscriptAvailable bool              `json:"transcript_available"`
	FullText            *string           `json:"full_text"`
	WordCount           int               `json:"word_count"`
	Speakers            []string          `json:"speakers"`
	SegmentCount        int               `json:"segment_count"`
	Entries             []TranscriptEntry `json:"entries"`
}

func newGetTranscript() *getTranscript {
	return &getTranscript{base{
		name:        "get-transcript",
		description: "Get the full transcript of a meeting with optional speaker labels and timestamps.",
		schema: Schema{
			idParam("to retrieve the transcript for"),
			{Name: "include_timestamps", Type: TypeBoolean, Default: false, Description: "Include entry timestamps"},
			{Name: "include_sources", Type: TypeBoolean, Default: true, Description: "Include speaker labels (me, them, unknown)"},
		},
	}}
}

func (t *getTranscript) Validate(args Args) (any, error) {
	v, err := t.schema.Bind(args)
	if err != nil {
		return nil, err
	}
	return transcriptParams{
		ID:         v.String("id"),
		Timestamps: v.Bool("include_timestamps"),
		Sources:    v.Bool("include_sources"),
	}, nil
}

func (t *getTranscript) Execute(_ context.Context, env *Env, params any) (any, error) {
	p := params.(transcriptParams)
	m, err := env.lookup(p.ID)
	if err != nil {
		return nil, err
	}

	res := TranscriptResult{
		MeetingID:    m.ID,
		MeetingTitle: m.DisplayTitle(),
		Speakers:     []string{},
		Entries:      []TranscriptEntry{},
	}
	if !m.HasTranscript() {
		return res, nil
	}

	tr := m.Transcript()
	full := tr.FullText()
	res.TranscriptAvailable = true
	res.FullText = &full
	res.WordCount = tr.WordCount()
	res.Speakers = tr.Speakers()
	res.SegmentCount = len(tr.Entries)
	res.Entries = make([]TranscriptEntry, 0, len(tr.Entries))
	for _, e := range tr.Entries {
		te := TranscriptEntry{Text: e.Text}
		if p.Sources {
			label, src := e.Source.Label(), e.Source.String()
			te.Speaker, te.Source = &label, &src
		}
		if p.Timestamps {
			ts := env.instant(e.Timestamp)
			te.Timestamp = &ts
			if e.End != nil {
				end := env.instant(*e.End)
				te.EndTimestamp = &end
			}
		}
		res.Entries = append(res.Entries, te)
	}
	return res, nil
}

// get-meeting-notes

type getMeetingNotes struct{ base }

// TranscriptSummary is per-speaker participation in a transcript.
type TranscriptSummary struct {
	TotalWords           int            `json:"total_words"`
	Speakers             []string       `json:"speakers"`
	SpeakerCount         int            `json:"speaker_count"`
	SpeakerParticipation map[string]int `json:"speaker_participation"`
}

// MeetingNotes holds the summary and notes of one meeting.
type MeetingNotes struct {
	MeetingID         string             `json:"meeting_id"`
	Title             string             `json:"title"`
	Date              string             `json:"date"`
	Duration          *string            `json:"duration"`
	Participants      []string           `json:"participants"`
	Tags              []string           `json:"tags"`
	Summary           *string            `json:"summary"`
	Notes             *string            `json:"notes"`
	HasSummary        bool               `json:"has_summary"`
	HasNotes          bool               `json:"has_notes"`
	TranscriptSummary *TranscriptSummary `json:"transcript_summary"`
}

func newGetMeetingNotes() *getMeetingNotes {
	return &getMeetingNotes{base{
		name:        "get-meeting-notes",
		description: "Get the AI summary and human notes of a meeting, with per-speaker transcript participation.",
		schema:      Schema{idParam("to get notes for")},
	}}
}

func (t *getMeetingNotes) Validate(args Args) (any, error) {
	return bindID(t.schema, args)
}

func (t *getMeetingNotes) Execute(_ context.Context, env *Env, params any) (any, error) {
	m, err := env.lookup(params.(idParams).ID)
	if err != nil {
		return nil, err
	}

	n := MeetingNotes{
		MeetingID:    m.ID,
		Title:        m.DisplayTitle(),
		Date:         env.Time.DayKey(m.Start),
		Participants: nonNil(m.Participants),
		Tags:         nonNil(m.Tags),
		Summary:      optionalString(m.Summary().Summary()),
		Notes:        optionalString(m.Summary().Notes()),
		HasSummary:   m.Summary().HasSummary(),
		HasNotes:     m.Summary().HasNotes(),
	}
	if mins := durationMinutes(m); mins != nil {
		s := formatMinutes(*mins)
		n.Duration = &s
	}
	if m.HasTranscript() {
		tr := m.Transcript()
		speakers := tr.Speakers()
		n.TranscriptSummary = &TranscriptSummary{
			TotalWords:           tr.WordCount(),
			Speakers:             speakers,
			SpeakerCount:         len(speakers),
			SpeakerParticipation: tr.WordsBySpeaker(),
		}
	}
	return n, nil
}

// export-meeting

type exportMeeting struct{ base }

type exportParams struct {
	ID         string
	Transcript bool
	Metadata   bool
}

// ExportResult carries a rendered markdown document.
type ExportResult struct {
	MeetingID          string `json:"meeting_id"`
	Title              string `json:"title"`
	Format             string `json:"format"`
	Content            string `json:"content"`
	IncludesTranscript bool   `json:"includes_transcript"`
	IncludesMetadata   bool   `json:"includes_metadata"`
}

func newExportMeeting() *exportMeeting {
	return &exportMeeting{base{
		name:        "export-meeting",
		description: "Export a meeting as a markdown document.",
		schema: Schema{
			idParam("to export"),
			{Name: "include_transcript", Type: TypeBoolean, Default: true, Description: "Include the full transcript"},
			{Name: "include_metadata", Type: TypeBoolean, Default: true, Description: "Include date, duration, participants and folders"},
		},
	}}
}

func (t *exportMeeting) Validate(args Args) (any, error) {
	v, err := t.schema.Bind(args)
	if err != nil {
		return nil, err
	}
	return exportParams{
		ID:         v.String("id"),
		Transcript: v.Bool("include_transcript"),
		Metadata:   v.Bool("include_metadata"),
	}, nil
}

func (t *exportMeeting) Execute(_ context.Context, env *Env, params any) (any, error) {
	p := params.(exportParams)
	m, err := env.lookup(p.ID)
	if err != nil {
		return nil, err
	}
	content := export.MeetingMarkdown(m, export.MarkdownOptions{
		IncludeTranscript: p.Transcript,
		IncludeMetadata:   p.Metadata,
		Location:          env.Time.Zone(),
	})
	return ExportResult{
		MeetingID:          m.ID,
		Title:              m.DisplayTitle(),
		Format:             "markdown",
		Content:            content,
		IncludesTranscript: p.Transcript && m.HasTranscript(),
		IncludesMetadata:   p.Metadata,
	}, nil
}
