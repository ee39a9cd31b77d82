package tools

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otherjamesbrown/granola-mcp/internal/testutil"
	"github.com/otherjamesbrown/granola-mcp/pkg/archive"
	grerrors "github.com/otherjamesbrown/granola-mcp/pkg/errors"
	"github.com/otherjamesbrown/granola-mcp/pkg/observability"
	"github.com/otherjamesbrown/granola-mcp/pkg/timeutil"
)

type fixture struct {
	path    string
	store   *archive.Store
	d       *Dispatcher
	metrics *observability.Metrics
}

func newFixture(t *testing.T, docs ...testutil.Doc) *fixture {
	t.Helper()
	if docs == nil {
		docs = testutil.SampleDocs()
	}
	loc, err := time.LoadLocation("America/Chicago")
	require.NoError(t, err)
	ts := &timeutil.Service{
		Location:        loc,
		Now:             func() time.Time { return time.Date(2025, 6, 12, 12, 0, 0, 0, loc) },
		DefaultLookback: "3d",
	}

	path := testutil.WriteArchive(t, t.TempDir(), docs...)
	m := observability.NewMetrics(prometheus.NewRegistry())
	store := archive.NewStore(path)
	return &fixture{
		path:    path,
		store:   store,
		metrics: m,
		d:       NewDispatcher(store, ts, WithMetrics(m)),
	}
}

// call dispatches and returns the decoded JSON response.
func (f *fixture) call(t *testing.T, tool string, args Args) map[string]any {
	t.Helper()
	resp := f.d.Dispatch(context.Background(), Request{Tool: tool, Arguments: args})
	b, err := json.Marshal(resp)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(b, &out))
	return out
}

func (f *fixture) result(t *testing.T, tool string, args Args) map[string]any {
	t.Helper()
	out := f.call(t, tool, args)
	require.Nil(t, out["error"], "unexpected error: %v", out["error"])
	res, ok := out["result"].(map[string]any)
	require.True(t, ok, "result is %T", out["result"])
	return res
}

func (f *fixture) errorKind(t *testing.T, tool string, args Args) string {
	t.Helper()
	out := f.call(t, tool, args)
	body, ok := out["error"].(map[string]any)
	require.True(t, ok, "expected an error response, got %v", out)
	assert.NotEmpty(t, body["message"])
	return body["kind"].(string)
}

func meetingIDs(t *testing.T, res map[string]any) []string {
	t.Helper()
	var ids []string
	for _, m := range res["meetings"].([]any) {
		ids = append(ids, m.(map[string]any)["id"].(string))
	}
	return ids
}

func TestCatalog(t *testing.T) {
	r := DefaultRegistry()
	var names []string
	for _, tool := range r.Catalog() {
		names = append(names, tool.Name())
		assert.NotEmpty(t, tool.Description(), tool.Name())
		schema := tool.Schema().JSONSchema()
		assert.Equal(t, "object", schema["type"], tool.Name())
	}
	assert.Equal(t, []string{
		"recent-meetings", "list-meetings", "search-meetings", "get-meeting",
		"get-transcript", "get-meeting-notes", "list-participants", "get-statistics",
		"export-meeting", "analyze-patterns", "refresh",
	}, names)

	require.Error(t, r.Register(newRefresh()), "duplicate names are rejected")
}

func TestDispatch_ValidationErrors(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		tool string
		args Args
		kind grerrors.Kind
	}{
		{"unknown tool", "delete-meeting", nil, grerrors.KindUnknownTool},
		{"unknown argument", "recent-meetings", Args{"cnt": 3}, grerrors.KindInvalidArgument},
		{"missing id", "get-meeting", Args{}, grerrors.KindMissingArgument},
		{"blank id", "get-meeting", Args{"id": "  "}, grerrors.KindMissingArgument},
		{"string for integer", "recent-meetings", Args{"count": "5"}, grerrors.KindInvalidArgument},
		{"fractional integer", "recent-meetings", Args{"count": 2.5}, grerrors.KindInvalidArgument},
		{"below minimum", "recent-meetings", Args{"count": 0}, grerrors.KindInvalidArgument},
		{"above maximum", "recent-meetings", Args{"count": 101}, grerrors.KindInvalidArgument},
		{"bad enum", "get-statistics", Args{"kind": "vibes"}, grerrors.KindInvalidArgument},
		{"missing kind", "get-statistics", Args{}, grerrors.KindMissingArgument},
		{"bad sort", "list-meetings", Args{"sort": "loudness"}, grerrors.KindInvalidArgument},
		{"bad boolean", "get-transcript", Args{"id": "m-solo", "include_timestamps": "yes"}, grerrors.KindInvalidArgument},
		{"bad date", "list-meetings", Args{"from": "last tuesday"}, grerrors.KindInvalidDateExpression},
		{"bad to date", "get-statistics", Args{"kind": "summary", "to": "2025-13-01"}, grerrors.KindInvalidDateExpression},
		{"refresh takes no arguments", "refresh", Args{"force": true}, grerrors.KindInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, string(tt.kind), f.errorKind(t, tt.tool, tt.args))
		})
	}
}

func TestGetMeeting_NotFound(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, string(grerrors.KindNotFound), f.errorKind(t, "get-meeting", Args{"id": "no-such-meeting"}))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(f.metrics.ToolCallsTotal.WithLabelValues("get-meeting", "NotFound")))
}

func TestGetMeeting(t *testing.T) {
	f := newFixture(t)
	res := f.result(t, "get-meeting", Args{"id": "m-standup-1"})

	assert.Equal(t, "Daily Standup", res["title"])
	assert.Equal(t, "2025-06-02T09:00:00-05:00", res["start_time"])
	assert.Equal(t, "2025-06-02T09:15:00-05:00", res["end_time"])
	assert.Equal(t, 15.0, res["duration_minutes"])
	assert.Equal(t, []any{"Ana Silva", "Ben Ode", "Me"}, res["participants"])
	assert.Equal(t, []any{}, res["tags"])
	assert.Nil(t, res["notes"])
	assert.Contains(t, res, "notes", "absent values are null, not omitted")

	info := res["transcript_info"].(map[string]any)
	assert.Equal(t, 11.0, info["word_count"])
	assert.Equal(t, []any{"me", "them"}, info["speakers"])
	assert.Equal(t, 3.0, info["segment_count"])
	assert.Equal(t, 900.0, info["duration_seconds"])

	solo := f.result(t, "get-meeting", Args{"id": "m-solo"})
	assert.Equal(t, "Untitled Meeting", solo["title"])
	assert.Nil(t, solo["transcript_info"])
	assert.Nil(t, solo["duration_minutes"])
	assert.Nil(t, solo["end_time"])
	assert.Contains(t, solo, "transcript_info")
}

func TestRecentMeetings(t *testing.T) {
	f := newFixture(t)

	res := f.result(t, "recent-meetings", Args{"count": 2})
	assert.Equal(t, []string{"m-solo", "m-standup-2"}, meetingIDs(t, res))
	assert.Equal(t, 2.0, res["total_found"])

	res = f.result(t, "recent-meetings", nil)
	assert.Len(t, res["meetings"], 4)
	filters := res["filters_applied"].(map[string]any)
	assert.Equal(t, 10.0, filters["count_requested"])
	assert.Equal(t, 4.0, filters["total_meetings_in_cache"])
}

func TestListMeetings_DefaultLookback(t *testing.T) {
	f := newFixture(t)

	// Now is 2025-06-12 12:00, so 3d reaches back to 2025-06-09 12:00.
	res := f.result(t, "list-meetings", nil)
	assert.Equal(t, []string{"m-solo"}, meetingIDs(t, res))

	filters := res["filters_applied"].(map[string]any)
	assert.Equal(t, "3d", filters["from"])
	assert.Nil(t, filters["to"])
	dr := filters["date_range"].(map[string]any)
	assert.Equal(t, "2025-06-09T12:00:00-05:00", dr["start"])

	item := res["meetings"].([]any)[0].(map[string]any)
	assert.Nil(t, item["duration_minutes"])
	assert.Nil(t, item["summary_preview"])
	assert.Equal(t, []any{}, item["folders"])
	assert.Equal(t, true, item["has_notes"])
}

func TestListMeetings_EndOfDayAndSort(t *testing.T) {
	f := newFixture(t)

	res := f.result(t, "list-meetings", Args{"from": "2025-06-01", "to": "2025-06-10", "sort": "duration", "reverse": true})
	assert.Equal(t, []string{"m-client-1", "m-standup-2", "m-standup-1", "m-solo"}, meetingIDs(t, res))

	res = f.result(t, "list-meetings", Args{"from": "2025-06-01", "to": "2025-06-09", "limit": 2})
	assert.Equal(t, []string{"m-standup-1", "m-client-1"}, meetingIDs(t, res))
	assert.Equal(t, 2.0, res["filters_applied"].(map[string]any)["limit"])
}

func TestListMeetings_ToOnly(t *testing.T) {
	f := newFixture(t)

	res := f.result(t, "list-meetings", Args{"to": "2025-06-03"})
	assert.Equal(t, []string{"m-standup-1", "m-client-1"}, meetingIDs(t, res))

	filters := res["filters_applied"].(map[string]any)
	assert.Nil(t, filters["from"])
	assert.Equal(t, "2025-06-03", filters["to"])
	dr := filters["date_range"].(map[string]any)
	assert.Nil(t, dr["start"])
	assert.Equal(t, "2025-06-03T23:59:59-05:00", dr["end"])

	res = f.result(t, "search-meetings", Args{"participant": "ana", "to": "2025-06-09"})
	assert.Equal(t, []string{"m-standup-1", "m-client-1", "m-standup-2"}, meetingIDs(t, res))

	stats := f.result(t, "get-statistics", Args{"kind": "summary", "to": "2025-06-03"})
	assert.Equal(t, 2.0, stats["meetings_analyzed"])

	ps := f.result(t, "list-participants", Args{"to": "2025-06-03"})
	assert.Equal(t, 2.0, ps["total_meetings_analyzed"])
}

func TestSearchMeetings(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		args Args
		want []string
	}{
		{"free text", Args{"query": "PILOT", "from": "30d"}, []string{"m-client-1"}},
		{"participant", Args{"participant": "ben", "from": "30d"}, []string{"m-standup-1", "m-standup-2"}},
		{"folder", Args{"folder": "Clients", "from": "30d"}, []string{"m-client-1"}},
		{"no folder", Args{"folder": "", "from": "30d"}, []string{"m-solo"}},
		{"contradictory", Args{"folder": "Team", "participant": "carla", "from": "30d"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := f.result(t, "search-meetings", tt.args)
			assert.Equal(t, tt.want, meetingIDs(t, res))
		})
	}
}

func TestSearchMeetings_SummaryPreview(t *testing.T) {
	long := ""
	for i := 0; i < 60; i++ {
		long += "word "
	}
	f := newFixture(t, testutil.Doc{
		ID:      "long",
		Title:   "Long summary",
		Start:   time.Date(2025, 6, 11, 9, 0, 0, 0, time.UTC),
		Summary: long,
	})

	res := f.result(t, "search-meetings", Args{"query": "long"})
	item := res["meetings"].([]any)[0].(map[string]any)
	preview := item["summary_preview"].(string)
	assert.Len(t, []rune(preview), previewRunes+3)
	assert.Equal(t, "...", preview[len(preview)-3:])
}

func TestGetTranscript(t *testing.T) {
	f := newFixture(t)

	res := f.result(t, "get-transcript", Args{"id": "m-standup-1", "include_timestamps": true})
	assert.Equal(t, true, res["transcript_available"])
	assert.Equal(t, "morning everyone hi there how are you let us wrap up", res["full_text"])
	assert.Equal(t, 11.0, res["word_count"])
	entries := res["entries"].([]any)
	require.Len(t, entries, 3)
	first := entries[0].(map[string]any)
	assert.Equal(t, "me", first["speaker"])
	assert.Equal(t, "local_mic", first["source"])
	assert.Equal(t, "2025-06-02T09:00:00-05:00", first["timestamp"])
	last := entries[2].(map[string]any)
	assert.Equal(t, "2025-06-02T09:15:00-05:00", last["end_timestamp"])

	bare := f.result(t, "get-transcript", Args{"id": "m-standup-1", "include_sources": false})
	e := bare["entries"].([]any)[0].(map[string]any)
	assert.NotContains(t, e, "speaker")
	assert.NotContains(t, e, "timestamp")

	none := f.result(t, "get-transcript", Args{"id": "m-solo"})
	assert.Equal(t, false, none["transcript_available"])
	assert.Nil(t, none["full_text"])
	assert.Contains(t, none, "full_text")
	assert.Equal(t, 0.0, none["word_count"])
	assert.Equal(t, []any{}, none["entries"])
	assert.Equal(t, []any{}, none["speakers"])
}

func TestGetMeetingNotes(t *testing.T) {
	f := newFixture(t)

	res := f.result(t, "get-meeting-notes", Args{"id": "m-client-1"})
	assert.Equal(t, "2025-06-03", res["date"])
	assert.Equal(t, "50 minutes", res["duration"])
	assert.Equal(t, "Follow up on pricing", res["notes"])
	assert.Contains(t, res["summary"], "pilot")
	assert.Equal(t, true, res["has_summary"])

	ts := res["transcript_summary"].(map[string]any)
	assert.Equal(t, 8.0, ts["total_words"])
	assert.Equal(t, []any{"them", "me"}, ts["speakers"])
	assert.Equal(t, 2.0, ts["speaker_count"])
	assert.Equal(t, map[string]any{"me": 5.0, "them": 3.0}, ts["speaker_participation"])

	solo := f.result(t, "get-meeting-notes", Args{"id": "m-solo"})
	assert.Nil(t, solo["summary"])
	assert.Nil(t, solo["duration"])
	assert.Nil(t, solo["transcript_summary"])
	assert.Equal(t, "2025-06-10", solo["date"])
}

func TestListParticipants(t *testing.T) {
	f := newFixture(t)

	res := f.result(t, "list-participants", nil)
	assert.Equal(t, 4.0, res["total_participants"])
	assert.Equal(t, 4.0, res["total_meetings_analyzed"], "no date filter without from or to")
	ps := res["participants"].([]any)
	first := ps[0].(map[string]any)
	assert.Equal(t, "Ana Silva", first["name"])
	assert.Equal(t, 3.0, first["meeting_count"])
	assert.Len(t, first["meetings"], 3)
	assert.Nil(t, res["filters_applied"].(map[string]any)["date_range"])

	res = f.result(t, "list-participants", Args{"min_meetings": 2})
	assert.Equal(t, 3.0, res["total_participants"])

	res = f.result(t, "list-participants", Args{"from": "2025-06-03", "to": "2025-06-03"})
	assert.Equal(t, 1.0, res["total_meetings_analyzed"])
	assert.Equal(t, 3.0, res["total_participants"])
}

func TestGetStatistics(t *testing.T) {
	f := newFixture(t)

	for _, kind := range StatisticsKinds {
		t.Run(kind, func(t *testing.T) {
			res := f.result(t, "get-statistics", Args{"kind": kind})
			assert.Equal(t, kind, res["kind"])
			assert.Equal(t, 4.0, res["meetings_analyzed"])
			assert.NotNil(t, res["statistics"])
		})
	}

	res := f.result(t, "get-statistics", Args{"kind": "summary", "from": "2025-06-09"})
	assert.Equal(t, 2.0, res["meetings_analyzed"])
	stats := res["statistics"].(map[string]any)
	assert.Equal(t, "1/2", stats["transcript_coverage"])

	words := f.result(t, "get-statistics", Args{"kind": "words"})["statistics"].(map[string]any)
	assert.Equal(t, 23.0, words["transcript"].(map[string]any)["total_words"])
}

func TestAnalyzePatterns(t *testing.T) {
	f := newFixture(t)

	all := f.result(t, "analyze-patterns", nil)
	assert.Equal(t, "all", all["kind"])
	for _, k := range PatternKinds {
		assert.NotNil(t, all[k], k)
	}
	participants := all["participants"].(map[string]any)
	assert.Equal(t, 5.0, participants["total_unique_pairs"])
	assert.Equal(t, 4.0, participants["unique_participants"])

	one := f.result(t, "analyze-patterns", Args{"kind": "time"})
	assert.NotNil(t, one["time"])
	assert.Nil(t, one["frequency"])
	assert.Contains(t, one, "frequency")
	assert.Equal(t, "Monday", one["time"].(map[string]any)["peak_day"])
}

func TestExportMeeting(t *testing.T) {
	f := newFixture(t)

	res := f.result(t, "export-meeting", Args{"id": "m-standup-1"})
	assert.Equal(t, "markdown", res["format"])
	assert.Equal(t, true, res["includes_transcript"])
	assert.Contains(t, res["content"], "# Daily Standup")
	assert.Contains(t, res["content"], "## Transcript")

	solo := f.result(t, "export-meeting", Args{"id": "m-solo", "include_metadata": false})
	assert.Equal(t, false, solo["includes_transcript"])
	assert.Equal(t, false, solo["includes_metadata"])
}

func TestRefresh_ObservableByNextCall(t *testing.T) {
	docs := testutil.SampleDocs()
	f := newFixture(t, docs[:2]...)

	res := f.result(t, "recent-meetings", nil)
	assert.Len(t, res["meetings"], 2)

	require.NoError(t, os.WriteFile(f.path, testutil.ArchiveJSON(t, docs...), 0o644))

	// Still the old snapshot until refresh.
	res = f.result(t, "recent-meetings", nil)
	assert.Len(t, res["meetings"], 2)

	r := f.result(t, "refresh", nil)
	assert.Equal(t, "refreshed", r["status"])
	assert.Equal(t, 2.0, r["previous_count"])
	assert.Equal(t, 4.0, r["new_count"])
	assert.Equal(t, 2.0, r["meetings_added"])
	assert.Equal(t, "Untitled Meeting", r["latest_meeting_title"])
	assert.Equal(t, "2025-06-10T23:59:00-05:00", r["latest_meeting_date"])

	res = f.result(t, "recent-meetings", nil)
	assert.Len(t, res["meetings"], 4)
}

func TestRefresh_BeforeFirstLoad(t *testing.T) {
	f := newFixture(t)
	r := f.result(t, "refresh", nil)
	assert.Equal(t, 0.0, r["previous_count"])
	assert.Equal(t, 4.0, r["new_count"])
}

func TestDispatch_ArchiveErrors(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.Remove(f.path))
	assert.Equal(t, string(grerrors.KindArchiveUnreadable), f.errorKind(t, "recent-meetings", nil))

	require.NoError(t, os.WriteFile(f.path, []byte(`{"cache": "{not json"}`), 0o644))
	assert.Equal(t, string(grerrors.KindArchiveCorrupt), f.errorKind(t, "refresh", nil))
}

func TestDispatch_FailedRefreshKeepsSnapshot(t *testing.T) {
	f := newFixture(t)
	f.result(t, "recent-meetings", nil)

	require.NoError(t, os.WriteFile(f.path, []byte("garbage"), 0o644))
	assert.Equal(t, string(grerrors.KindArchiveUnreadable), f.errorKind(t, "refresh", nil))

	res := f.result(t, "recent-meetings", nil)
	assert.Len(t, res["meetings"], 4)
}

type panicky struct{ base }

func (p *panicky) Validate(Args) (any, error) { return nil, nil }

func (p *panicky) Execute(context.Context, *Env, any) (any, error) {
	var m map[string]int
	m["boom"]++
	return nil, nil
}

type unencodable struct{ base }

func (u *unencodable) Validate(Args) (any, error) { return nil, nil }

func (u *unencodable) Execute(context.Context, *Env, any) (any, error) {
	return map[string]any{"ch": make(chan int)}, nil
}

func TestDispatch_PanicsAndEncodingFailuresBecomeInternal(t *testing.T) {
	f := newFixture(t)
	reg := NewRegistry()
	require.NoError(t, reg.Register(&panicky{base{name: "boom", schema: Schema{}}}))
	require.NoError(t, reg.Register(&unencodable{base{name: "chan", schema: Schema{}}}))
	f.d = NewDispatcher(f.store, f.d.time, WithRegistry(reg))

	resp := f.d.Dispatch(context.Background(), Request{Tool: "boom"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, grerrors.KindInternal, resp.Error.Kind)
	assert.Contains(t, resp.Error.Message, "panic")

	_, err := f.d.Call(context.Background(), "chan", nil)
	require.Error(t, err)
	assert.Equal(t, grerrors.KindInternal, grerrors.KindOf(err))
}

func TestDispatcher_Call(t *testing.T) {
	f := newFixture(t)

	res, err := f.d.Call(context.Background(), "get-meeting", Args{"id": "m-client-1"})
	require.NoError(t, err)
	detail, ok := res.(MeetingDetail)
	require.True(t, ok)
	assert.Equal(t, "Acme Kickoff", detail.Title)

	_, err = f.d.Call(context.Background(), "get-meeting", Args{"id": "nope"})
	require.Error(t, err)
	assert.True(t, grerrors.IsNotFound(err))
}

func TestResponse_MarshalJSON(t *testing.T) {
	b, err := json.Marshal(Response{Result: map[string]int{"n": 1}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"result": {"n": 1}}`, string(b))

	b, err = json.Marshal(Response{Error: &ErrorBody{Kind: grerrors.KindNotFound, Message: "x"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"error": {"kind": "NotFound", "message": "x"}}`, string(b))
}

func TestSchema_Bind(t *testing.T) {
	s := Schema{
		{Name: "n", Type: TypeInteger, Default: 3},
		{Name: "flag", Type: TypeBoolean},
		{Name: "name", Type: TypeString},
	}

	v, err := s.Bind(Args{"n": json.Number("7"), "name": " x ", "flag": nil})
	require.NoError(t, err)
	assert.Equal(t, 7, v.Int("n"))
	assert.Equal(t, "x", v.String("name"))
	assert.False(t, v.Has("flag"), "null counts as absent")

	v, err = s.Bind(nil)
	require.NoError(t, err)
	assert.Equal(t, 3, v.Int("n"))

	_, err = s.Bind(Args{"zeta": 1, "alpha": 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "alpha, zeta")
}

func TestSchema_JSONSchema(t *testing.T) {
	js := newGetTranscript().Schema().JSONSchema()
	assert.Equal(t, []string{"id"}, js["required"])
	assert.Equal(t, false, js["additionalProperties"])
	props := js["properties"].(map[string]any)
	assert.Equal(t, true, props["include_sources"].(map[string]any)["default"])

	_, hasRequired := Schema{}.JSONSchema()["required"]
	assert.False(t, hasRequired)
}

