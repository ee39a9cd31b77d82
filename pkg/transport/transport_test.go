package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otherjamesbrown/granola-mcp/internal/testutil"
	"github.com/otherjamesbrown/granola-mcp/pkg/archive"
	"github.com/otherjamesbrown/granola-mcp/pkg/observability"
	"github.com/otherjamesbrown/granola-mcp/pkg/timeutil"
	"github.com/otherjamesbrown/granola-mcp/pkg/tools"
)

var testImpl = &mcp.Implementation{Name: "granola-test", Version: "0.1.0"}

func newDispatcher(t *testing.T, reg prometheus.Registerer) *tools.Dispatcher {
	t.Helper()
	loc, err := time.LoadLocation("America/Chicago")
	require.NoError(t, err)
	ts := &timeutil.Service{
		Location: loc,
		Now:      func() time.Time { return time.Date(2025, 6, 12, 12, 0, 0, 0, loc) },
	}
	path := testutil.WriteArchive(t, t.TempDir(), testutil.SampleDocs()...)
	return tools.NewDispatcher(archive.NewStore(path), ts, tools.WithMetrics(observability.NewMetrics(reg)))
}

func mcpSession(t *testing.T) *mcp.ClientSession {
	t.Helper()
	srv := NewMCPServer(newDispatcher(t, prometheus.NewRegistry()))

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = srv.Run(ctx, serverT) }()

	session, err := mcp.NewClient(testImpl, nil).Connect(ctx, clientT, nil)
	require.NoError(t, err)
	t.Cleanup(func() { session.Close() })
	return session
}

func callTool(t *testing.T, session *mcp.ClientSession, name string, args any) (*mcp.CallToolResult, string) {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.NotEmpty(t, result.Content)
	tc, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok, "expected TextContent")
	return result, tc.Text
}

func TestMCP_ListTools(t *testing.T) {
	session := mcpSession(t)

	res, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)
	names := map[string]bool{}
	for _, tool := range res.Tools {
		names[tool.Name] = true
	}
	assert.Len(t, names, 11)
	assert.True(t, names["search-meetings"])
	assert.True(t, names["refresh"])
}

func TestMCP_CallTool(t *testing.T) {
	session := mcpSession(t)

	result, text := callTool(t, session, "get-meeting", map[string]any{"id": "m-client-1"})
	require.NoError(t, result.GetError())

	var detail struct {
		Title           string `json:"title"`
		DurationMinutes int    `json:"duration_minutes"`
	}
	require.NoError(t, json.Unmarshal([]byte(text), &detail))
	assert.Equal(t, "Acme Kickoff", detail.Title)
	assert.Equal(t, 50, detail.DurationMinutes)

	_, text = callTool(t, session, "recent-meetings", map[string]any{"count": 1})
	var list tools.MeetingList
	require.NoError(t, json.Unmarshal([]byte(text), &list))
	require.Len(t, list.Meetings, 1)
	assert.Equal(t, "m-solo", list.Meetings[0].ID)
}

func TestMCP_ToolErrors(t *testing.T) {
	session := mcpSession(t)

	result, text := callTool(t, session, "get-meeting", map[string]any{"id": "missing"})
	assert.True(t, result.IsError)

	var body tools.ErrorBody
	require.NoError(t, json.Unmarshal([]byte(text), &body))
	assert.Equal(t, "NotFound", string(body.Kind))
	assert.Contains(t, body.Message, "missing")
}

func TestDecodeArguments(t *testing.T) {
	args, err := decodeArguments(json.RawMessage(`{"count": 3, "from": "2d"}`))
	require.NoError(t, err)
	assert.Equal(t, json.Number("3"), args["count"])
	assert.Equal(t, "2d", args["from"])

	args, err = decodeArguments(json.RawMessage(" null "))
	require.NoError(t, err)
	assert.Nil(t, args)

	_, err = decodeArguments(json.RawMessage(`[1,2]`))
	require.Error(t, err)
}

func TestHTTP_Routes(t *testing.T) {
	reg := prometheus.NewRegistry()
	srv := httptest.NewServer(NewRouter(newDispatcher(t, reg), HTTPOptions{Gatherer: reg}))
	defer srv.Close()

	get := func(path string) (*http.Response, map[string]any) {
		t.Helper()
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		var out map[string]any
		if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		}
		return resp, out
	}
	post := func(path, body string) (*http.Response, map[string]any) {
		t.Helper()
		resp, err := http.Post(srv.URL+path, "application/json", strings.NewReader(body))
		require.NoError(t, err)
		defer resp.Body.Close()
		var out map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		return resp, out
	}

	resp, out := get("/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", out["status"])

	resp, out = get("/v1/tools")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	catalog := out["tools"].([]any)
	require.Len(t, catalog, 11)
	assert.Equal(t, "recent-meetings", catalog[0].(map[string]any)["name"])

	resp, out = post("/v1/tools/search-meetings", `{"query": "pilot", "from": "30d"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1.0, out["result"].(map[string]any)["total_found"])

	resp, out = post("/v1/tools/get-meeting", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "MissingArgument", out["error"].(map[string]any)["kind"])

	resp, out = post("/v1/tools/nope", ``)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "UnknownTool", out["error"].(map[string]any)["kind"])

	resp, out = post("/v1/tools/recent-meetings", `"count"`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "InvalidArgument", out["error"].(map[string]any)["kind"])

	resp, _ = get("/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHTTP_MetricsExposeToolCalls(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := NewRouter(newDispatcher(t, reg), HTTPOptions{Gatherer: reg})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/tools/recent-meetings", strings.NewReader(`{"count": 2}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `tool="recent-meetings"`)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusOK, statusFor(tools.Response{Result: 1}))
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(tools.Response{Error: &tools.ErrorBody{Kind: "ArchiveCorrupt"}}))
	assert.Equal(t, http.StatusInternalServerError, statusFor(tools.Response{Error: &tools.ErrorBody{Kind: "Internal"}}))
}
