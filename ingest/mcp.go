// CLAUDE:SUMMARY MCP tool surface: resolve_date, build_destination, find_source and run as server tools.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/docnorm/datesolve"
	"github.com/hazyhaar/docnorm/destname"
	"github.com/hazyhaar/docnorm/kit"
)

// RegisterMCP registers the document normalization tools on an MCP server.
func (c *Coordinator) RegisterMCP(srv *mcp.Server) {
	c.registerResolveDateTool(srv)
	c.registerBuildDestinationTool(srv)
	c.registerFindSourceTool(srv)
	c.registerRunTool(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// --- resolve_date ---

type resolveDateReq struct {
	Name string `json:"name"`
	Text string `json:"text,omitempty"`
}

func (c *Coordinator) registerResolveDateTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "docnorm_resolve_date",
		Description: "Resolve a calendar date from a filename, optionally cross-checked against document text.",
		InputSchema: inputSchema(map[string]any{
			"name": map[string]any{"type": "string", "description": "Source filename"},
			"text": map[string]any{"type": "string", "description": "Optional document text for content resolution"},
		}, []string{"name"}),
	}

	endpoint := func(_ context.Context, req any) (any, error) {
		r := req.(*resolveDateReq)
		res, ok := datesolve.FromFilename(r.Name)
		source := "filename"
		if r.Text != "" {
			var preferred *datesolve.Date
			if ok {
				preferred = &res.Date
			}
			// Content resolution wins when both sources yield a date.
			if content, cok := datesolve.FromContent(r.Text, preferred); cok && !content.Partial {
				res, ok, source = content, true, "content"
			}
		}
		if !ok {
			return nil, fmt.Errorf("no date found in %q", r.Name)
		}
		return map[string]any{"date": res.Date.String(), "source": source}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r resolveDateReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- build_destination ---

type buildDestReq struct {
	RelPath  string `json:"rel_path"`
	Date     string `json:"date"`
	DestRoot string `json:"dest_root"`
}

func (c *Coordinator) registerBuildDestinationTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "docnorm_build_destination",
		Description: "Build the destination path for a source file: date-prefixed, sanitized, length-bounded.",
		InputSchema: inputSchema(map[string]any{
			"rel_path":  map[string]any{"type": "string", "description": "Source path relative to the source root"},
			"date":      map[string]any{"type": "string", "description": "Resolved date, YYYY-MM-DD"},
			"dest_root": map[string]any{"type": "string", "description": "Destination root directory"},
		}, []string{"rel_path", "date", "dest_root"}),
	}

	endpoint := func(_ context.Context, req any) (any, error) {
		r := req.(*buildDestReq)
		date, ok := datesolve.ParseCanonical(r.Date)
		if !ok {
			return nil, fmt.Errorf("invalid date %q, want YYYY-MM-DD", r.Date)
		}
		return map[string]any{"dest_path": destname.Build(r.RelPath, date, r.DestRoot)}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r buildDestReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- find_source ---

type findSourceReq struct {
	DestPath   string `json:"dest_path"`
	DestRoot   string `json:"dest_root"`
	SourceRoot string `json:"source_root"`
}

func (c *Coordinator) registerFindSourceTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "docnorm_find_source",
		Description: "Map a converted destination file back to the source file it came from.",
		InputSchema: inputSchema(map[string]any{
			"dest_path":   map[string]any{"type": "string", "description": "Destination file path"},
			"dest_root":   map[string]any{"type": "string", "description": "Destination root directory"},
			"source_root": map[string]any{"type": "string", "description": "Source root directory"},
		}, []string{"dest_path", "dest_root", "source_root"}),
	}

	endpoint := func(_ context.Context, req any) (any, error) {
		r := req.(*findSourceReq)
		src, ok := destname.FindSource(r.DestPath, r.DestRoot, r.SourceRoot)
		if !ok {
			return nil, fmt.Errorf("no source found for %s", r.DestPath)
		}
		return map[string]any{"source_path": src}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r findSourceReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- run ---

type runReq struct {
	SourceRoot string `json:"source_root"`
	DestRoot   string `json:"dest_root"`
}

func (c *Coordinator) registerRunTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "docnorm_run",
		Description: "Run a full ingestion pass: scan, convert, reconcile, write the rejection ledger.",
		InputSchema: inputSchema(map[string]any{
			"source_root": map[string]any{"type": "string", "description": "Source root directory"},
			"dest_root":   map[string]any{"type": "string", "description": "Destination root directory"},
		}, []string{"source_root", "dest_root"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*runReq)
		return c.Run(ctx, r.SourceRoot, r.DestRoot)
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r runReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{
			Request: &r,
			EnrichCtx: func(ctx context.Context) context.Context {
				return kit.WithTransport(ctx, "mcp_stdio")
			},
		}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}
