// Package tools is the protocol boundary: a fixed catalog of named tools,
// each validating its own arguments and executing against one archive
// snapshot, behind a dispatcher that turns every outcome into a structured
// response.
package tools

import (
	"context"
	"fmt"
	"sync"

	"github.com/otherjamesbrown/granola-mcp/pkg/archive"
	"github.com/otherjamesbrown/granola-mcp/pkg/logging"
	"github.com/otherjamesbrown/granola-mcp/pkg/query"
	"github.com/otherjamesbrown/granola-mcp/pkg/timeutil"
)

// Args is the raw argument mapping of a tool call.
type Args map[string]any

// Env is what a tool may read while executing. Snapshot is fixed for the
// whole call.
type Env struct {
	Snapshot *archive.Snapshot
	Store    *archive.Store
	Time     *timeutil.Service
	Engine   *query.Engine
	Logger   logging.Logger
}

// Tool is one named operation.
type Tool interface {
	// Name returns the catalog name.
	Name() string

	// Description is shown to callers listing the catalog.
	Description() string

	// Schema declares the accepted arguments.
	Schema() Schema

	// Validate checks args and returns the tool's typed parameters.
	Validate(args Args) (any, error)

	// Execute runs the tool with parameters returned by Validate.
	Execute(ctx context.Context, env *Env, params any) (any, error)
}

// Registry maps names to tools, keeping registration order.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Names must be unique.
func (r *Registry) Register(t Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := t.Name()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool already registered: %s", name)
	}
	r.tools[name] = t
	r.order = append(r.order, name)
	return nil
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tools[name]
	return t, ok
}

// Catalog returns all tools in registration order.
func (r *Registry) Catalog() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// DefaultRegistry returns a registry holding the full catalog.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, t := range []Tool{
		newRecentMeetings(),
		newListMeetings(),
		newSearchMeetings(),
		newGetMeeting(),
		newGetTranscript(),
		newGetMeetingNotes(),
		newListParticipants(),
		newGetStatistics(),
		newExportMeeting(),
		newAnalyzePatterns(),
		newRefresh(),
	} {
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}
	return r
}

// base holds the static description of a tool.
type base struct {
	name        string
	description string
	schema      Schema
}

func (b base) Name() string        { return b.name }
func (b base) Description() string { return b.description }
func (b base) Schema() Schema      { return b.schema }
