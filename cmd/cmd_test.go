package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otherjamesbrown/granola-mcp/config"
	"github.com/otherjamesbrown/granola-mcp/internal/testutil"
	grerrors "github.com/otherjamesbrown/granola-mcp/pkg/errors"
)

func testDeps(t *testing.T, format string) *CommandDeps {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.ArchivePath = testutil.WriteArchive(t, t.TempDir(), testutil.SampleDocs()...)
	cfg.ExportDir = filepath.Join(t.TempDir(), "out")

	deps := DefaultDeps()
	deps.Config = cfg
	deps.OutputFormat = format
	deps.Now = func() time.Time {
		loc, _ := time.LoadLocation("America/Chicago")
		return time.Date(2025, 6, 12, 12, 0, 0, 0, loc)
	}
	return deps
}

func execute(t *testing.T, c *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	c.SetOut(&out)
	c.SetErr(&out)
	c.SetArgs(args)
	err := c.Execute()
	return out.String(), err
}

func TestMeetingList_Text(t *testing.T) {
	deps := testDeps(t, "")
	out, err := execute(t, NewMeetingCommand(deps), "list", "--from", "2025-06-01", "--sort", "duration", "--reverse")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.GreaterOrEqual(t, len(lines), 5)
	assert.Contains(t, lines[0], "ID")
	assert.Contains(t, lines[1], "m-client-1")
	assert.Contains(t, lines[1], "50m")
	assert.Contains(t, lines[1], "2025-06-03 14:30")
	assert.Contains(t, out, "4 meeting(s)")
}

func TestMeetingSearch_JSON(t *testing.T) {
	deps := testDeps(t, "json")
	out, err := execute(t, NewMeetingCommand(deps), "search", "pilot", "--from", "30d")
	require.NoError(t, err)

	var res struct {
		TotalFound int `json:"total_found"`
		Meetings   []struct {
			ID string `json:"id"`
		} `json:"meetings"`
		Filters map[string]any `json:"filters_applied"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 1, res.TotalFound)
	assert.Equal(t, "m-client-1", res.Meetings[0].ID)
	assert.Equal(t, "pilot", res.Filters["query"])
	assert.Nil(t, res.Filters["limit"], "unset flags are not sent")
}

func TestMeetingSearch_EmptyFolder(t *testing.T) {
	deps := testDeps(t, "json")
	out, err := execute(t, NewMeetingCommand(deps), "search", "--folder", "", "--from", "30d")
	require.NoError(t, err)
	assert.Contains(t, out, `"m-solo"`)
	assert.NotContains(t, out, `"m-client-1"`)
}

func TestMeetingShowAndTranscript(t *testing.T) {
	deps := testDeps(t, "")

	out, err := execute(t, NewMeetingCommand(deps), "show", "m-standup-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Daily Standup")
	assert.Contains(t, out, "Ana Silva, Ben Ode, Me")
	assert.Contains(t, out, "11 words, 3 segments")

	out, err = execute(t, NewMeetingCommand(deps), "transcript", "m-standup-1", "--timestamps")
	require.NoError(t, err)
	assert.Contains(t, out, "[09:00:00] me: morning everyone")
	assert.Contains(t, out, "[09:01:00] them: hi there how are you")

	out, err = execute(t, NewMeetingCommand(deps), "transcript", "m-standup-1", "--no-speakers")
	require.NoError(t, err)
	assert.Equal(t, "morning everyone\nhi there how are you\nlet us wrap up\n", out)
}

func TestMeeting_NotFound(t *testing.T) {
	deps := testDeps(t, "")
	_, err := execute(t, NewMeetingCommand(deps), "notes", "nope")
	require.Error(t, err)
	assert.Equal(t, grerrors.KindNotFound, grerrors.KindOf(err))
}

func TestMeeting_InvalidDate(t *testing.T) {
	deps := testDeps(t, "")
	_, err := execute(t, NewMeetingCommand(deps), "list", "--from", "last week")
	require.Error(t, err)
	assert.True(t, grerrors.IsInvalidDateExpression(err))
}

func TestStats_YAML(t *testing.T) {
	deps := testDeps(t, "yaml")
	out, err := execute(t, NewStatsCommand(deps), "summary")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "kind: summary\n"), out)
	assert.Contains(t, out, "meetings_analyzed: 4")
	assert.Contains(t, out, `transcript_coverage: 3/4`)
}

func TestStats_BadKind(t *testing.T) {
	deps := testDeps(t, "")
	_, err := execute(t, NewStatsCommand(deps), "vibes")
	require.Error(t, err)
	assert.True(t, grerrors.IsInvalidArgument(err))
}

func TestPatternsAndParticipants(t *testing.T) {
	deps := testDeps(t, "json")
	out, err := execute(t, NewPatternsCommand(deps), "--kind", "time")
	require.NoError(t, err)
	assert.Contains(t, out, `"peak_day": "Monday"`)

	deps = testDeps(t, "")
	out, err = execute(t, NewParticipantsCommand(deps), "--min-meetings", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Ana Silva")
	assert.NotContains(t, out, "Carla Diaz")
	assert.Contains(t, out, "3 participant(s) across 4 meeting(s)")
}

func TestExportDays(t *testing.T) {
	deps := testDeps(t, "json")
	out, err := execute(t, NewExportCommand(deps), "days", "--from", "2025-06-01")
	require.NoError(t, err)

	var sum ExportSummary
	require.NoError(t, json.Unmarshal([]byte(out), &sum))
	assert.Equal(t, deps.Config.ExportDir, sum.Dir)
	assert.Len(t, sum.Files, 3)
	assert.Equal(t, 3, sum.Changed)

	data, err := os.ReadFile(filepath.Join(sum.Dir, "2025-06-02.txt"))
	require.NoError(t, err)
	assert.Equal(t, "morning everyone\nlet us wrap up\n", string(data))

	// Unchanged content is not rewritten.
	deps = testDeps(t, "json")
	deps.Config.ExportDir = sum.Dir
	out, err = execute(t, NewExportCommand(deps), "days", "--from", "2025-06-01")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &sum))
	assert.Equal(t, 0, sum.Changed)
}

func TestExportDays_ToOnly(t *testing.T) {
	deps := testDeps(t, "json")
	out, err := execute(t, NewExportCommand(deps), "days", "--to", "2025-06-03")
	require.NoError(t, err)

	var sum ExportSummary
	require.NoError(t, json.Unmarshal([]byte(out), &sum))
	assert.Equal(t, 2, sum.Meetings)
	require.Len(t, sum.Files, 2)
	assert.FileExists(t, filepath.Join(sum.Dir, "2025-06-02.txt"))
	assert.FileExists(t, filepath.Join(sum.Dir, "2025-06-03.txt"))
	assert.NoFileExists(t, filepath.Join(sum.Dir, "2025-06-09.txt"))
}

func TestExportDays_BadSide(t *testing.T) {
	deps := testDeps(t, "")
	_, err := execute(t, NewExportCommand(deps), "days", "--side", "both")
	require.Error(t, err)
	assert.True(t, grerrors.IsInvalidArgument(err))
}

func TestExportMeeting(t *testing.T) {
	deps := testDeps(t, "")
	out, err := execute(t, NewExportCommand(deps), "meeting", "m-client-1", "--transcript=false")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "# Acme Kickoff\n"), out)
	assert.NotContains(t, out, "## Transcript")

	file := filepath.Join(t.TempDir(), "acme.md")
	out, err = execute(t, NewExportCommand(deps), "meeting", "m-client-1", "-f", file)
	require.NoError(t, err)
	assert.Contains(t, out, "written")
	out, err = execute(t, NewExportCommand(deps), "meeting", "m-client-1", "-f", file)
	require.NoError(t, err)
	assert.Contains(t, out, "unchanged")
}

func TestConfigCommands(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	var saved *config.CLIConfig

	deps := &ConfigCommandDeps{
		CommandDeps: testDeps(t, ""),
		ConfigPath:  func() (string, error) { return path, nil },
		SaveConfig: func(c *config.CLIConfig) error {
			saved = c
			return os.WriteFile(path, []byte("x"), 0o600)
		},
	}

	out, err := execute(t, NewConfigCommand(deps), "init", "--archive", "/data/cache.json")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+path)
	require.NotNil(t, saved)
	assert.Equal(t, "/data/cache.json", saved.ArchivePath)

	_, err = execute(t, NewConfigCommand(deps), "init")
	require.Error(t, err, "existing file needs --force")

	out, err = execute(t, NewConfigCommand(deps), "show")
	require.NoError(t, err)
	assert.Contains(t, out, "# "+path)
	assert.Contains(t, out, "timezone: America/Chicago")
}

func TestVersion(t *testing.T) {
	out, err := execute(t, NewVersionCommand(testDeps(t, "")))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "granola dev ("), out)

	out, err = execute(t, NewVersionCommand(testDeps(t, "json")))
	require.NoError(t, err)
	assert.Contains(t, out, `"version": "dev"`)
}

func TestFormat_Invalid(t *testing.T) {
	deps := testDeps(t, "xml")
	_, err := execute(t, NewMeetingCommand(deps), "recent")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid output format")
}

func TestOutputYAML_KeepsKeyOrder(t *testing.T) {
	var buf bytes.Buffer
	v := struct {
		Zeta  string   `json:"zeta"`
		Alpha *string  `json:"alpha"`
		List  []string `json:"list"`
	}{Zeta: "2025-06-01", List: []string{"a"}}
	require.NoError(t, outputYAML(&buf, v))
	assert.Equal(t, "zeta: \"2025-06-01\"\nalpha: null\nlist:\n  - a\n", buf.String())
}
