package promptnav

import (
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/promptnav/kit"
)

// RegisterMCP registers promptnav tools on an MCP server.
func (c *Control) RegisterMCP(srv *mcp.Server) {
	c.registerListTool(srv)
	c.registerGetTool(srv)
	c.registerSelectTool(srv)
	c.registerResetTool(srv)
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

func noArgs(_ *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
	return &kit.MCPDecodeResult{Request: nil}, nil
}

func (c *Control) registerListTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "promptnav_list",
		Description: "List the user prompts found on the chat page, in the order they were discovered.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}
	kit.RegisterMCPTool(srv, tool, c.list, noArgs)
}

func (c *Control) registerGetTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "promptnav_get",
		Description: "Get one prompt by ID (prompt-<n>). Set markdown to also return its current content as Markdown.",
		InputSchema: inputSchema(map[string]any{
			"id":       map[string]any{"type": "string", "description": "Prompt ID, e.g. prompt-0"},
			"markdown": map[string]any{"type": "boolean", "description": "Include the content converted to Markdown"},
		}, []string{"id"}),
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r getReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}
	kit.RegisterMCPTool(srv, tool, c.get, decode)
}

func (c *Control) registerSelectTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "promptnav_select",
		Description: "Scroll the chat page to a prompt and highlight it briefly.",
		InputSchema: inputSchema(map[string]any{
			"id": map[string]any{"type": "string", "description": "Prompt ID, e.g. prompt-0"},
		}, []string{"id"}),
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r selectReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}
	kit.RegisterMCPTool(srv, tool, c.sel, decode)
}

func (c *Control) registerResetTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "promptnav_reset",
		Description: "Clear the prompt index and rebuild it from the page, renumbering from 1.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}
	kit.RegisterMCPTool(srv, tool, c.reset, noArgs)
}
