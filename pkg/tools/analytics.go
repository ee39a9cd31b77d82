package tools

import (
	"context"
	"sort"

	"github.com/otherjamesbrown/granola-mcp/pkg/meeting"
	"github.com/otherjamesbrown/granola-mcp/pkg/query"
)

// scoped returns the snapshot's meetings, restricted to the range when a
// bound was given.
func scoped(env *Env, d dates) ([]*meeting.Meeting, map[string]any, error) {
	r, err := d.optional(env.Time)
	if err != nil {
		return nil, nil, err
	}
	ms := query.Filter(env.Snapshot.Meetings, query.Criteria{Range: r})
	return ms, d.filters(env, r), nil
}

// list-participants

type listParticipants struct{ base }

type participantsParams struct {
	Dates       dates
	MinMeetings int
}

// MeetingRef points at one meeting a participant attended.
type MeetingRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Date  string `json:"date"`
}

// ParticipantEntry is one participant with the meetings they attended.
type ParticipantEntry struct {
	Name         string       `json:"name"`
	MeetingCount int          `json:"meeting_count"`
	Meetings     []MeetingRef `json:"meetings"`
}

// ParticipantList is the result of list-participants.
type ParticipantList struct {
	TotalParticipants     int                `json:"total_participants"`
	TotalMeetingsAnalyzed int                `json:"total_meetings_analyzed"`
	Participants          []ParticipantEntry `json:"participants"`
	FiltersApplied        map[string]any     `json:"filters_applied"`
}

func newListParticipants() *listParticipants {
	return &listParticipants{base{
		name:        "list-participants",
		description: "List participants with how many meetings each attended and which. No date filter applies unless from or to is given.",
		schema: concat(dateParams(), []Param{
			{Name: "min_meetings", Type: TypeInteger, Minimum: intPtr(0), Description: "Only participants in at least this many meetings"},
		}),
	}}
}

func (t *listParticipants) Validate(args Args) (any, error) {
	v, err := t.schema.Bind(args)
	if err != nil {
		return nil, err
	}
	d, err := bindDates(v)
	if err != nil {
		return nil, err
	}
	return participantsParams{Dates: d, MinMeetings: v.Int("min_meetings")}, nil
}

func (t *listParticipants) Execute(_ context.Context, env *Env, params any) (any, error) {
	p := params.(participantsParams)
	ms, filters, err := scoped(env, p.Dates)
	if err != nil {
		return nil, err
	}

	refs := map[string][]MeetingRef{}
	for _, m := range ms {
		ref := MeetingRef{ID: m.ID, Title: m.DisplayTitle(), Date: env.instant(m.Start)}
		for _, name := range m.UniqueParticipants() {
			refs[name] = append(refs[name], ref)
		}
	}

	entries := make([]ParticipantEntry, 0, len(refs))
	for name, rs := range refs {
		if len(rs) < p.MinMeetings {
			continue
		}
		entries = append(entries, ParticipantEntry{Name: name, MeetingCount: len(rs), Meetings: rs})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].MeetingCount != entries[j].MeetingCount {
			return entries[i].MeetingCount > entries[j].MeetingCount
		}
		return entries[i].Name < entries[j].Name
	})

	filters["min_meetings"] = nil
	if p.MinMeetings > 0 {
		filters["min_meetings"] = p.MinMeetings
	}
	return ParticipantList{
		TotalParticipants:     len(entries),
		TotalMeetingsAnalyzed: len(ms),
		Participants:          entries,
		FiltersApplied:        filters,
	}, nil
}

// get-statistics

// Statistics kinds.
const (
	StatsSummary      = "summary"
	StatsFrequency    = "frequency"
	StatsDuration     = "duration"
	StatsParticipants = "participants"
	StatsPatterns     = "patterns"
	StatsWords        = "words"
)

// StatisticsKinds lists the accepted get-statistics kinds.
var StatisticsKinds = []string{StatsSummary, StatsFrequency, StatsDuration, StatsParticipants, StatsPatterns, StatsWords}

type getStatistics struct{ base }

type statisticsParams struct {
	Kind  string
	Dates dates
}

// StatisticsResult wraps one aggregate.
type StatisticsResult struct {
	Kind             string         `json:"kind"`
	MeetingsAnalyzed int            `json:"meetings_analyzed"`
	FiltersApplied   map[string]any `json:"filters_applied"`
	Statistics       any            `json:"statistics"`
}

func newGetStatistics() *getStatistics {
	return &getStatistics{base{
		name:        "get-statistics",
		description: "Compute meeting statistics: summary, frequency, duration, participants, patterns or words. No date filter applies unless from or to is given.",
		schema: concat([]Param{
			{Name: "kind", Type: TypeString, Required: true, Enum: StatisticsKinds, Description: "Statistics to compute"},
		}, dateParams()),
	}}
}

func (t *getStatistics) Validate(args Args) (any, error) {
	v, err := t.schema.Bind(args)
	if err != nil {
		return nil, err
	}
	d, err := bindDates(v)
	if err != nil {
		return nil, err
	}
	return statisticsParams{Kind: v.String("kind"), Dates: d}, nil
}

func (t *getStatistics) Execute(_ context.Context, env *Env, params any) (any, error) {
	p := params.(statisticsParams)
	ms, filters, err := scoped(env, p.Dates)
	if err != nil {
		return nil, err
	}

	loc := env.Time.Zone()
	var stats any
	switch p.Kind {
	case StatsSummary:
		stats = query.Summary(ms, loc)
	case StatsFrequency:
		stats = query.Frequency(ms, loc)
	case StatsDuration:
		stats = query.Durations(ms)
	case StatsParticipants:
		stats = query.Participants(ms)
	case StatsPatterns:
		stats = query.TimePatterns(ms, loc)
	case StatsWords:
		stats = query.Words(ms)
	}
	return StatisticsResult{
		Kind:             p.Kind,
		MeetingsAnalyzed: len(ms),
		FiltersApplied:   filters,
		Statistics:       stats,
	}, nil
}

// analyze-patterns

// Pattern kinds.
const (
	PatternTime         = "time"
	PatternFrequency    = "frequency"
	PatternParticipants = "participants"
	PatternDuration     = "duration"
)

// PatternKinds lists the accepted analyze-patterns kinds.
var PatternKinds = []string{PatternTime, PatternFrequency, PatternParticipants, PatternDuration}

type analyzePatterns struct{ base }

type patternsParams struct {
	Kind  string
	Dates dates
}

// ParticipantPatterns combines participant statistics with collaboration pairs.
type ParticipantPatterns struct {
	query.ParticipantStats
	query.CoOccurrenceStats
}

// PatternAnalysis holds the requested analyses; the others are null.
type PatternAnalysis struct {
	Kind             string                  `json:"kind"`
	MeetingsAnalyzed int                     `json:"meetings_analyzed"`
	FiltersApplied   map[string]any          `json:"filters_applied"`
	Time             *query.TimePatternStats `json:"time"`
	Frequency        *query.FrequencyStats   `json:"frequency"`
	Participants     *ParticipantPatterns    `json:"participants"`
	Duration         *query.DurationStats    `json:"duration"`
}

func newAnalyzePatterns() *analyzePatterns {
	return &analyzePatterns{base{
		name:        "analyze-patterns",
		description: "Analyze meeting patterns: time of day and weekday, frequency, collaboration pairs and duration trend. All analyses run when kind is omitted.",
		schema: concat([]Param{
			{Name: "kind", Type: TypeString, Enum: PatternKinds, Description: "Single analysis to run"},
		}, dateParams()),
	}}
}

func (t *analyzePatterns) Validate(args Args) (any, error) {
	v, err := t.schema.Bind(args)
	if err != nil {
		return nil, err
	}
	d, err := bindDates(v)
	if err != nil {
		return nil, err
	}
	return patternsParams{Kind: v.String("kind"), Dates: d}, nil
}

func (t *analyzePatterns) Execute(_ context.Context, env *Env, params any) (any, error) {
	p := params.(patternsParams)
	ms, filters, err := scoped(env, p.Dates)
	if err != nil {
		return nil, err
	}

	loc := env.Time.Zone()
	want := func(kind string) bool { return p.Kind == "" || p.Kind == kind }
	a := PatternAnalysis{
		Kind:             p.Kind,
		MeetingsAnalyzed: len(ms),
		FiltersApplied:   filters,
	}
	if a.Kind == "" {
		a.Kind = "all"
	}
	if want(PatternTime) {
		s := query.TimePatterns(ms, loc)
		a.Time = &s
	}
	if want(PatternFrequency) {
		s := query.Frequency(ms, loc)
		a.Frequency = &s
	}
	if want(PatternParticipants) {
		a.Participants = &ParticipantPatterns{
			ParticipantStats:  query.Participants(ms),
			CoOccurrenceStats: query.CoOccurrence(ms),
		}
	}
	if want(PatternDuration) {
		s := query.Durations(ms)
		a.Duration = &s
	}
	return a, nil
}
