package export

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otherjamesbrown/granola-mcp/internal/testutil"
	"github.com/otherjamesbrown/granola-mcp/pkg/archive"
	"github.com/otherjamesbrown/granola-mcp/pkg/meeting"
	"github.com/otherjamesbrown/granola-mcp/pkg/observability"
	"github.com/otherjamesbrown/granola-mcp/pkg/partition"
)

func chicago(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/Chicago")
	require.NoError(t, err)
	return loc
}

func sampleSnapshot(t *testing.T) *archive.Snapshot {
	t.Helper()
	snap, err := archive.Decode(testutil.ArchiveJSON(t, testutil.SampleDocs()...))
	require.NoError(t, err)
	return snap
}

func twoMeetingDay(t *testing.T) partition.Day {
	loc := chicago(t)
	a := time.Date(2025, 6, 2, 9, 0, 0, 0, loc)
	b := time.Date(2025, 6, 2, 14, 30, 0, 0, loc)
	return partition.Day{Key: "2025-06-02", Lines: []partition.Line{
		{MeetingID: "a", MeetingTitle: "Standup", MeetingStart: a, Entry: meeting.Entry{Timestamp: a, Text: "morning"}},
		{MeetingID: "a", MeetingTitle: "Standup", MeetingStart: a, Entry: meeting.Entry{Timestamp: a.Add(90 * time.Second), Text: " wrap up "}},
		{MeetingID: "b", MeetingTitle: "Kickoff", MeetingStart: b, Entry: meeting.Entry{Timestamp: b.Add(5 * time.Second), Text: "welcome"}},
	}}
}

func TestRender(t *testing.T) {
	day := twoMeetingDay(t)
	loc := chicago(t)

	tests := []struct {
		name string
		opts Options
		want string
	}{
		{
			name: "plain",
			opts: Options{Location: loc},
			want: "morning\nwrap up\nwelcome\n",
		},
		{
			name: "timestamps",
			opts: Options{Location: loc, Timestamps: true},
			want: "[09:00:00] morning\n[09:01:30] wrap up\n[14:30:05] welcome\n",
		},
		{
			name: "metadata headers",
			opts: Options{Location: loc, Metadata: true},
			want: "## 09:00 Standup\n\nmorning\nwrap up\n\n## 14:30 Kickoff\n\nwelcome\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Render(day, tt.opts))
		})
	}

	assert.Equal(t, "", Render(partition.Day{Key: "2025-06-02"}, Options{}))
}

func TestWriteDays_Idempotent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	reg := prometheus.NewRegistry()
	m := observability.NewMetrics(reg)
	days := partition.ForExport(sampleSnapshot(t).Meetings, 0, partition.Options{Location: chicago(t)})
	w := NewWriter(Options{Location: chicago(t), Timestamps: true}, WithMetrics(m))

	first, err := w.WriteDays(dir, days)
	require.NoError(t, err)
	require.Len(t, first, 3)
	for _, r := range first {
		assert.True(t, r.Changed, r.Day)
	}
	assert.Equal(t, filepath.Join(dir, "2025-06-02.txt"), first[0].Path)

	content, err := os.ReadFile(first[0].Path)
	require.NoError(t, err)
	assert.Equal(t, "[09:00:00] morning everyone\n[09:10:00] let us wrap up\n", string(content))

	old := time.Now().Add(-time.Hour).Truncate(time.Second)
	require.NoError(t, os.Chtimes(first[0].Path, old, old))

	second, err := w.WriteDays(dir, days)
	require.NoError(t, err)
	for _, r := range second {
		assert.False(t, r.Changed, r.Day)
	}
	info, err := os.Stat(first[0].Path)
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(old), "unchanged file must keep its mtime")

	assert.Equal(t, 3.0, promtestutil.ToFloat64(m.ExportFilesTotal.WithLabelValues("true")))
	assert.Equal(t, 3.0, promtestutil.ToFloat64(m.ExportFilesTotal.WithLabelValues("false")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 3, "no temp files left behind")
}

func TestWriteFileIfChanged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "day.txt")

	changed, err := WriteFileIfChanged(path, []byte("one\n"))
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = WriteFileIfChanged(path, []byte("one\n"))
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = WriteFileIfChanged(path, []byte("two\n"))
	require.NoError(t, err)
	assert.True(t, changed)
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two\n", string(got))
}

func TestWriteFileIfChanged_MissingDirectory(t *testing.T) {
	_, err := WriteFileIfChanged(filepath.Join(t.TempDir(), "nope", "day.txt"), []byte("x"))
	require.Error(t, err)
}

func TestMeetingMarkdown(t *testing.T) {
	snap := sampleSnapshot(t)
	m, ok := snap.Get("m-standup-1")
	require.True(t, ok)

	full := MeetingMarkdown(m, MarkdownOptions{IncludeTranscript: true, IncludeMetadata: true, Location: chicago(t)})
	assert.Contains(t, full, "# Daily Standup\n")
	assert.Contains(t, full, "- **Date:** 2025-06-02 09:00 CDT\n")
	assert.Contains(t, full, "- **Duration:** 15 minutes\n")
	assert.Contains(t, full, "- **Participants:** Ana Silva, Ben Ode, Me\n")
	assert.Contains(t, full, "- **Meeting ID:** m-standup-1\n")
	assert.Contains(t, full, "## Summary\n\nDiscussed the release checklist and blockers.")
	assert.Contains(t, full, "**[09:01:00] them:** hi there how are you")

	bare := MeetingMarkdown(m, MarkdownOptions{Location: chicago(t)})
	assert.NotContains(t, bare, "**Date:**")
	assert.NotContains(t, bare, "## Transcript")

	solo, ok := snap.Get("m-solo")
	require.True(t, ok)
	out := MeetingMarkdown(solo, MarkdownOptions{IncludeTranscript: true})
	assert.Equal(t, "# Untitled Meeting\n\n## Notes\n\nThinking about the roadmap\n", out)
}
