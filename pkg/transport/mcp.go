// Package transport exposes the tool dispatcher over the Model Context
// Protocol (stdio) and a small JSON-over-HTTP API.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/otherjamesbrown/granola-mcp/pkg/buildinfo"
	grerrors "github.com/otherjamesbrown/granola-mcp/pkg/errors"
	"github.com/otherjamesbrown/granola-mcp/pkg/logging"
	"github.com/otherjamesbrown/granola-mcp/pkg/tools"
)

// ServerName identifies the server to MCP clients.
const ServerName = "granola-mcp"

// NewMCPServer returns an MCP server with every catalog tool registered.
func NewMCPServer(d *tools.Dispatcher) *mcp.Server {
	srv := mcp.NewServer(&mcp.Implementation{Name: ServerName, Version: buildinfo.Version}, nil)
	RegisterTools(srv, d)
	return srv
}

// RegisterTools adds the dispatcher's catalog to srv, in catalog order.
func RegisterTools(srv *mcp.Server, d *tools.Dispatcher) {
	for _, t := range d.Registry().Catalog() {
		name := t.Name()
		srv.AddTool(&mcp.Tool{
			Name:        name,
			Description: t.Description(),
			InputSchema: t.Schema().JSONSchema(),
		}, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args, err := decodeArguments(req.Params.Arguments)
			if err != nil {
				return errorResult(&tools.ErrorBody{
					Kind:    grerrors.KindInvalidArgument,
					Message: err.Error(),
				}), nil
			}
			resp := d.Dispatch(ctx, tools.Request{Tool: name, Arguments: args})
			if resp.Error != nil {
				return errorResult(resp.Error), nil
			}
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: string(resp.ResultJSON())}},
			}, nil
		})
	}
}

// ServeStdio runs srv on stdin/stdout until ctx is done or the client
// disconnects.
func ServeStdio(ctx context.Context, srv *mcp.Server, logger logging.Logger) error {
	logger.Info("serving MCP on stdio")
	if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}

// decodeArguments keeps numbers as json.Number so integer arguments are not
// rounded through float64.
func decodeArguments(raw json.RawMessage) (tools.Args, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var args tools.Args
	if err := dec.Decode(&args); err != nil {
		return nil, fmt.Errorf("arguments must be a JSON object: %v: %w", err, grerrors.ErrInvalidArgument)
	}
	return args, nil
}

func errorResult(body *tools.ErrorBody) *mcp.CallToolResult {
	b, err := json.Marshal(body)
	if err != nil {
		b = []byte(body.Message)
	}
	var res mcp.CallToolResult
	res.SetError(errors.New(string(b)))
	return &res
}
