// Package query evaluates filter, sort and limit over a snapshot's meetings
// and computes aggregate statistics. Every function here is pure: results
// depend only on the meetings passed in and the display zone.
package query

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/otherjamesbrown/granola-mcp/pkg/archive"
	grerrors "github.com/otherjamesbrown/granola-mcp/pkg/errors"
	"github.com/otherjamesbrown/granola-mcp/pkg/meeting"
	"github.com/otherjamesbrown/granola-mcp/pkg/timeutil"
)

// SortKey selects the primary sort field.
type SortKey string

const (
	// SortStart sorts by start time (default).
	SortStart SortKey = "start"
	// SortDuration sorts by derived duration; meetings without one count as zero.
	SortDuration SortKey = "duration"
	// SortTranscriptWords sorts by transcript word count.
	SortTranscriptWords SortKey = "transcript_words"
	// SortSummaryWords sorts by summary word count.
	SortSummaryWords SortKey = "summary_words"
	// SortTitle sorts by title, byte-wise.
	SortTitle SortKey = "title"
)

// SortKeys lists the accepted sort keys.
var SortKeys = []SortKey{SortStart, SortDuration, SortTranscriptWords, SortSummaryWords, SortTitle}

// String returns the string representation of a SortKey.
func (k SortKey) String() string {
	return string(k)
}

// ParseSortKey parses a sort key name. Empty selects SortStart.
func ParseSortKey(s string) (SortKey, error) {
	if s == "" {
		return SortStart, nil
	}
	for _, k := range SortKeys {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("sort key %q (want one of %s): %w", s, sortKeyList(), grerrors.ErrInvalidArgument)
}

func sortKeyList() string {
	names := make([]string, len(SortKeys))
	for i, k := range SortKeys {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}

// SortSpec is a sort key plus direction.
type SortSpec struct {
	Key     SortKey
	Reverse bool
}

// Criteria holds independently optional filters. All present filters must
// match. A Folder pointing at "" selects meetings with no folder.
type Criteria struct {
	Range         *timeutil.Range
	Participant   string
	TitleContains string
	Folder        *string
	FreeText      string
}

// IsEmpty reports whether no filter is set.
func (c Criteria) IsEmpty() bool {
	return c.Range == nil && c.Participant == "" && c.TitleContains == "" && c.Folder == nil && c.FreeText == ""
}

// matcher holds the folded needles for one Filter call.
type matcher struct {
	fold        cases.Caser
	participant string
	title       string
	freeText    string
}

func newMatcher(c Criteria) *matcher {
	m := &matcher{fold: cases.Fold()}
	m.participant = m.folded(c.Participant)
	m.title = m.folded(c.TitleContains)
	m.freeText = m.folded(c.FreeText)
	return m
}

func (m *matcher) folded(s string) string {
	return m.fold.String(strings.TrimSpace(s))
}

func (m *matcher) contains(haystack, needle string) bool {
	return strings.Contains(m.fold.String(haystack), needle)
}

// Filter returns the meetings matching c, preserving input order. It never
// modifies its input.
func Filter(ms []*meeting.Meeting, c Criteria) []*meeting.Meeting {
	out := make([]*meeting.Meeting, 0, len(ms))
	if c.IsEmpty() {
		return append(out, ms...)
	}
	mt := newMatcher(c)
	for _, m := range ms {
		if mt.match(m, c) {
			out = append(out, m)
		}
	}
	return out
}

func (mt *matcher) match(m *meeting.Meeting, c Criteria) bool {
	if c.Range != nil && !c.Range.Contains(m.Start) {
		return false
	}
	if c.Folder != nil {
		if *c.Folder == "" {
			if len(m.Folders) > 0 {
				return false
			}
		} else if !m.HasFolder(*c.Folder) {
			return false
		}
	}
	if mt.title != "" && !mt.contains(m.Title, mt.title) {
		return false
	}
	if mt.participant != "" && !mt.anyParticipant(m) {
		return false
	}
	if mt.freeText != "" && !mt.freeTextMatch(m) {
		return false
	}
	return true
}

func (mt *matcher) anyParticipant(m *meeting.Meeting) bool {
	for _, p := range m.Participants {
		if mt.contains(p, mt.participant) {
			return true
		}
	}
	return false
}

func (mt *matcher) freeTextMatch(m *meeting.Meeting) bool {
	if mt.contains(m.Title, mt.freeText) {
		return true
	}
	if s, ok := m.Summary().Summary(); ok && mt.contains(s, mt.freeText) {
		return true
	}
	if n, ok := m.Summary().Notes(); ok && mt.contains(n, mt.freeText) {
		return true
	}
	if t := m.Transcript(); t != nil && mt.contains(t.FullText(), mt.freeText) {
		return true
	}
	return false
}

type sortable struct {
	m    *meeting.Meeting
	num  int64
	text string
}

// Sort returns a sorted copy of ms. Reverse flips only the primary key; ties
// always break by start ascending, then ID, so the order is total.
func Sort(ms []*meeting.Meeting, spec SortSpec) []*meeting.Meeting {
	key := spec.Key
	if key == "" {
		key = SortStart
	}

	items := make([]sortable, len(ms))
	for i, m := range ms {
		items[i] = sortable{m: m}
		switch key {
		case SortStart:
			items[i].num = m.Start.UnixNano()
		case SortDuration:
			d, _ := m.Duration()
			items[i].num = int64(d)
		case SortTranscriptWords:
			items[i].num = int64(m.TranscriptWords())
		case SortSummaryWords:
			items[i].num = int64(m.Summary().SummaryWords())
		case SortTitle:
			items[i].text = m.Title
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		c := compareInt(a.num, b.num)
		if key == SortTitle {
			c = strings.Compare(a.text, b.text)
		}
		if spec.Reverse {
			c = -c
		}
		if c != 0 {
			return c < 0
		}
		if !a.m.Start.Equal(b.m.Start) {
			return a.m.Start.Before(b.m.Start)
		}
		return a.m.ID < b.m.ID
	})

	out := make([]*meeting.Meeting, len(items))
	for i, it := range items {
		out[i] = it.m
	}
	return out
}

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Limit returns the first n meetings; n <= 0 returns all.
func Limit(ms []*meeting.Meeting, n int) []*meeting.Meeting {
	if n <= 0 || n >= len(ms) {
		return ms
	}
	return ms[:n]
}

// Engine runs queries against snapshots and renders aggregates in a
// display zone.
type Engine struct {
	Location *time.Location
}

// NewEngine returns an engine for the given display zone.
func NewEngine(loc *time.Location) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{Location: loc}
}

// Query filters, sorts and limits the meetings of snap.
func (e *Engine) Query(snap *archive.Snapshot, c Criteria, spec SortSpec, limit int) []*meeting.Meeting {
	if snap == nil {
		return nil
	}
	return Limit(Sort(Filter(snap.Meetings, c), spec), limit)
}
