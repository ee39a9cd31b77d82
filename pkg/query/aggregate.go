package query

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/otherjamesbrown/granola-mcp/pkg/meeting"
)

// Count is a labelled tally.
type Count struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// FrequencyStats buckets meetings by calendar day, ISO week (keyed by its
// Monday) and month.
type FrequencyStats struct {
	Daily     map[string]int `json:"daily_frequency"`
	Weekly    map[string]int `json:"weekly_frequency"`
	Monthly   map[string]int `json:"monthly_frequency"`
	PeakDay   *Count         `json:"peak_day"`
	PeakWeek  *Count         `json:"peak_week"`
	PeakMonth *Count         `json:"peak_month"`
}

// Frequency computes day, week and month histograms in loc.
func Frequency(ms []*meeting.Meeting, loc *time.Location) FrequencyStats {
	s := FrequencyStats{
		Daily:   map[string]int{},
		Weekly:  map[string]int{},
		Monthly: map[string]int{},
	}
	for _, m := range ms {
		t := m.Start.In(loc)
		s.Daily[t.Format("2006-01-02")]++
		monday := t.AddDate(0, 0, -((int(t.Weekday()) + 6) % 7))
		s.Weekly[monday.Format("2006-01-02")]++
		s.Monthly[t.Format("2006-01")]++
	}
	s.PeakDay = peak(s.Daily)
	s.PeakWeek = peak(s.Weekly)
	s.PeakMonth = peak(s.Monthly)
	return s
}

// peak returns the largest bucket, ties broken by key ascending.
func peak(counts map[string]int) *Count {
	top := topN(counts, 1)
	if len(top) == 0 {
		return nil
	}
	return &top[0]
}

// topN returns the n largest buckets, count descending then key ascending.
// n <= 0 returns all.
func topN(counts map[string]int, n int) []Count {
	out := make([]Count, 0, len(counts))
	for k, c := range counts {
		out = append(out, Count{Key: k, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Duration histogram bucket labels; upper bounds are inclusive.
const (
	Bucket0To15  = "0-15 min"
	Bucket15To30 = "15-30 min"
	Bucket30To60 = "30-60 min"
	Bucket60To90 = "60-90 min"
	Bucket90Plus = "90+ min"
)

// Trend compares mean duration of the earlier and later halves.
type Trend struct {
	Direction     string  `json:"trend"`
	FirstHalfAvg  float64 `json:"first_half_avg"`
	SecondHalfAvg float64 `json:"second_half_avg"`
}

// DurationStats summarizes derived durations in minutes. Meetings without a
// duration are excluded; statistics are nil when no meeting has one.
type DurationStats struct {
	Meetings     int            `json:"total_meetings"`
	TotalMinutes float64        `json:"total_minutes"`
	Average      *float64       `json:"average_minutes"`
	Median       *float64       `json:"median_minutes"`
	Min          *float64       `json:"min_minutes"`
	Max          *float64       `json:"max_minutes"`
	StdDev       *float64       `json:"std_dev_minutes"`
	Distribution map[string]int `json:"duration_distribution"`
	Trend        *Trend         `json:"trend_analysis"`
}

// Durations computes duration statistics and, when more than five meetings
// are given and more than two have durations, a trend.
func Durations(ms []*meeting.Meeting) DurationStats {
	s := DurationStats{Distribution: map[string]int{
		Bucket0To15: 0, Bucket15To30: 0, Bucket30To60: 0, Bucket60To90: 0, Bucket90Plus: 0,
	}}

	mins := durationMinutes(ms)
	s.Meetings = len(mins)
	if len(mins) == 0 {
		return s
	}
	for _, d := range mins {
		s.TotalMinutes += d
		s.Distribution[bucketFor(d)]++
	}
	s.Average = ptr(mean(mins))
	s.Median = ptr(median(mins))
	lo, hi := minMax(mins)
	s.Min, s.Max = ptr(lo), ptr(hi)
	s.StdDev = ptr(stddev(mins))

	if len(ms) > 5 && len(mins) > 2 {
		s.Trend = trend(mins)
	}
	return s
}

// durationMinutes returns durations in start order, skipping undefined ones.
func durationMinutes(ms []*meeting.Meeting) []float64 {
	ordered := append([]*meeting.Meeting(nil), ms...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Start.Before(ordered[j].Start) })

	var out []float64
	for _, m := range ordered {
		if d, ok := m.Duration(); ok {
			out = append(out, d.Minutes())
		}
	}
	return out
}

func bucketFor(mins float64) string {
	switch {
	case mins <= 15:
		return Bucket0To15
	case mins <= 30:
		return Bucket15To30
	case mins <= 60:
		return Bucket30To60
	case mins <= 90:
		return Bucket60To90
	default:
		return Bucket90Plus
	}
}

func trend(mins []float64) *Trend {
	half := len(mins) / 2
	first, second := mean(mins[:half]), mean(mins[half:])
	t := &Trend{Direction: "stable", FirstHalfAvg: first, SecondHalfAvg: second}
	switch {
	case second > first*1.1:
		t.Direction = "increasing"
	case second < first*0.9:
		t.Direction = "decreasing"
	}
	return t
}

// ParticipantStats summarizes who attends and how large meetings are.
// Participants are counted once per meeting.
type ParticipantStats struct {
	Unique              int         `json:"unique_participants"`
	TotalParticipations int         `json:"total_participations"`
	AverageMeetingSize  float64     `json:"average_meeting_size"`
	MedianMeetingSize   float64     `json:"median_meeting_size"`
	MaxMeetingSize      int         `json:"max_meeting_size"`
	MinMeetingSize      int         `json:"min_meeting_size"`
	TopParticipants     []Count     `json:"top_participants"`
	SizeDistribution    map[int]int `json:"meeting_size_distribution"`
}

// Participants computes participant statistics.
func Participants(ms []*meeting.Meeting) ParticipantStats {
	counts := ParticipantCounts(ms)
	s := ParticipantStats{
		Unique:           len(counts),
		TopParticipants:  topN(counts, 10),
		SizeDistribution: map[int]int{},
	}
	if len(ms) == 0 {
		return s
	}

	sizes := make([]float64, 0, len(ms))
	for _, m := range ms {
		n := len(m.UniqueParticipants())
		sizes = append(sizes, float64(n))
		s.SizeDistribution[n]++
		s.TotalParticipations += n
	}
	s.AverageMeetingSize = mean(sizes)
	s.MedianMeetingSize = median(sizes)
	lo, hi := minMax(sizes)
	s.MinMeetingSize, s.MaxMeetingSize = int(lo), int(hi)
	return s
}

// ParticipantCounts returns the number of meetings each participant attended.
func ParticipantCounts(ms []*meeting.Meeting) map[string]int {
	counts := map[string]int{}
	for _, m := range ms {
		for _, p := range m.UniqueParticipants() {
			counts[p]++
		}
	}
	return counts
}

// Pair is an undirected participant pair with A < B.
type Pair struct {
	A     string `json:"a"`
	B     string `json:"b"`
	Count int    `json:"count"`
}

// CoOccurrenceStats counts how often two people share a meeting.
type CoOccurrenceStats struct {
	Frequent     []Pair `json:"frequent_collaborations"`
	UniquePairs  int    `json:"total_unique_pairs"`
	MostFrequent *Pair  `json:"most_frequent_pair"`
}

// CoOccurrence counts undirected participant pairs. Self-pairs never occur
// because participants are deduplicated per meeting.
func CoOccurrence(ms []*meeting.Meeting) CoOccurrenceStats {
	counts := map[[2]string]int{}
	for _, m := range ms {
		ps := m.UniqueParticipants()
		for i := 0; i < len(ps); i++ {
			for j := i + 1; j < len(ps); j++ {
				a, b := ps[i], ps[j]
				if b < a {
					a, b = b, a
				}
				counts[[2]string{a, b}]++
			}
		}
	}

	pairs := make([]Pair, 0, len(counts))
	for k, c := range counts {
		pairs = append(pairs, Pair{A: k[0], B: k[1], Count: c})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Count != pairs[j].Count {
			return pairs[i].Count > pairs[j].Count
		}
		if pairs[i].A != pairs[j].A {
			return pairs[i].A < pairs[j].A
		}
		return pairs[i].B < pairs[j].B
	})

	s := CoOccurrenceStats{UniquePairs: len(pairs), Frequent: pairs}
	if len(pairs) > 10 {
		s.Frequent = pairs[:10]
	}
	if len(pairs) > 0 {
		top := pairs[0]
		s.MostFrequent = &top
	}
	return s
}

// HourCount is a tally for one hour of the day.
type HourCount struct {
	Hour  int `json:"hour"`
	Count int `json:"count"`
}

// TimePatternStats holds hour-of-day and weekday histograms.
type TimePatternStats struct {
	Hourly   map[int]int    `json:"hourly_patterns"`
	Daily    map[string]int `json:"daily_patterns"`
	PeakHour *HourCount     `json:"peak_hour"`
	PeakDay  *string        `json:"peak_day"`
}

// TimePatterns computes start-hour and weekday histograms in loc.
func TimePatterns(ms []*meeting.Meeting, loc *time.Location) TimePatternStats {
	s := TimePatternStats{Hourly: map[int]int{}, Daily: map[string]int{}}
	for _, m := range ms {
		t := m.Start.In(loc)
		s.Hourly[t.Hour()]++
		s.Daily[t.Weekday().String()]++
	}

	for h := 0; h < 24; h++ {
		if c := s.Hourly[h]; c > 0 && (s.PeakHour == nil || c > s.PeakHour.Count) {
			s.PeakHour = &HourCount{Hour: h, Count: c}
		}
	}
	if p := peak(s.Daily); p != nil {
		s.PeakDay = &p.Key
	}
	return s
}

// WordTotals is a word count over the meetings that have a given text.
type WordTotals struct {
	Meetings int      `json:"meetings"`
	Total    int      `json:"total_words"`
	Average  *float64 `json:"average_words"`
}

// WordStats holds transcript and summary word counts separately.
type WordStats struct {
	Transcript WordTotals `json:"transcript"`
	Summary    WordTotals `json:"summary"`
}

// Words totals transcript and summary words. Averages are taken over the
// meetings that have each kind of text.
func Words(ms []*meeting.Meeting) WordStats {
	var s WordStats
	for _, m := range ms {
		if m.HasTranscript() {
			s.Transcript.Meetings++
			s.Transcript.Total += m.TranscriptWords()
		}
		if m.Summary().HasSummary() {
			s.Summary.Meetings++
			s.Summary.Total += m.Summary().SummaryWords()
		}
	}
	if s.Transcript.Meetings > 0 {
		s.Transcript.Average = ptr(float64(s.Transcript.Total) / float64(s.Transcript.Meetings))
	}
	if s.Summary.Meetings > 0 {
		s.Summary.Average = ptr(float64(s.Summary.Total) / float64(s.Summary.Meetings))
	}
	return s
}

// DateRange is the span of meeting starts.
type DateRange struct {
	Earliest string `json:"earliest"`
	Latest   string `json:"latest"`
	SpanDays int    `json:"span_days"`
}

// DurationSummary is the short form of DurationStats.
type DurationSummary struct {
	TotalMinutes float64 `json:"total_minutes"`
	Average      float64 `json:"average_minutes"`
	Median       float64 `json:"median_minutes"`
	Min          float64 `json:"min_minutes"`
	Max          float64 `json:"max_minutes"`
}

// ParticipantSummary is the short form of ParticipantStats.
type ParticipantSummary struct {
	Unique              int     `json:"unique_participants"`
	TotalParticipations int     `json:"total_participations"`
	AveragePerMeeting   float64 `json:"average_participants_per_meeting"`
}

// SummaryStats is the overview returned for the "summary" statistics kind.
type SummaryStats struct {
	TotalMeetings      int                `json:"total_meetings"`
	DateCoverage       string             `json:"date_coverage"`
	DurationCoverage   string             `json:"duration_coverage"`
	TranscriptCoverage string             `json:"transcript_coverage"`
	SummaryCoverage    string             `json:"summary_coverage"`
	NotesCoverage      string             `json:"notes_coverage"`
	DateRange          *DateRange         `json:"date_range"`
	Durations          *DurationSummary   `json:"duration_statistics"`
	Participants       ParticipantSummary `json:"participant_statistics"`
}

// Summary computes the overview statistics, formatting instants in loc.
func Summary(ms []*meeting.Meeting, loc *time.Location) SummaryStats {
	var withDuration, withTranscript, withSummary, withNotes int
	for _, m := range ms {
		if _, ok := m.Duration(); ok {
			withDuration++
		}
		if m.HasTranscript() {
			withTranscript++
		}
		if m.Summary().HasSummary() {
			withSummary++
		}
		if m.Summary().HasNotes() {
			withNotes++
		}
	}

	n := len(ms)
	s := SummaryStats{
		TotalMeetings:      n,
		DateCoverage:       coverage(n, n),
		DurationCoverage:   coverage(withDuration, n),
		TranscriptCoverage: coverage(withTranscript, n),
		SummaryCoverage:    coverage(withSummary, n),
		NotesCoverage:      coverage(withNotes, n),
	}

	if n > 0 {
		earliest, latest := ms[0].Start, ms[0].Start
		for _, m := range ms[1:] {
			if m.Start.Before(earliest) {
				earliest = m.Start
			}
			if m.Start.After(latest) {
				latest = m.Start
			}
		}
		s.DateRange = &DateRange{
			Earliest: earliest.In(loc).Format(time.RFC3339),
			Latest:   latest.In(loc).Format(time.RFC3339),
			SpanDays: int(latest.Sub(earliest).Hours() / 24),
		}
	}

	if d := Durations(ms); d.Meetings > 0 {
		s.Durations = &DurationSummary{
			TotalMinutes: d.TotalMinutes,
			Average:      *d.Average,
			Median:       *d.Median,
			Min:          *d.Min,
			Max:          *d.Max,
		}
	}

	counts := ParticipantCounts(ms)
	s.Participants.Unique = len(counts)
	for _, c := range counts {
		s.Participants.TotalParticipations += c
	}
	if n > 0 {
		s.Participants.AveragePerMeeting = float64(s.Participants.TotalParticipations) / float64(n)
	}
	return s
}

func coverage(have, total int) string {
	return fmt.Sprintf("%d/%d", have, total)
}

func ptr(f float64) *float64 {
	return &f
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	s := append([]float64(nil), xs...)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}
	return (s[mid-1] + s[mid]) / 2
}

func minMax(xs []float64) (float64, float64) {
	lo, hi := xs[0], xs[0]
	for _, x := range xs[1:] {
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	return lo, hi
}

// stddev is the sample standard deviation; 0 for fewer than two values.
func stddev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	var ss float64
	for _, x := range xs {
		ss += (x - m) * (x - m)
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}
