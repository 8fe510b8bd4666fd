package promptnav

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var testMCPImpl = &mcp.Implementation{Name: "promptnav-test", Version: "0.1.0"}

func mcpSession(t *testing.T, nav *Navigator) *mcp.ClientSession {
	t.Helper()
	srv := mcp.NewServer(testMCPImpl, nil)
	NewControl(func() *Navigator { return nav }, nil).RegisterMCP(srv)

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()
	go func() { _ = srv.Run(ctx, serverT) }()

	client := mcp.NewClient(testMCPImpl, nil)
	session, err := client.Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

func mcpCallTool(t *testing.T, session *mcp.ClientSession, name string, args any) (string, bool) {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	tc, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("CallTool(%s): expected TextContent", name)
	}
	return tc.Text, result.IsError
}

func TestMCP_ListSelectReset(t *testing.T) {
	doc, _, rec, nav := newTestNavigator(t, testPrompts())
	doc.Append(doc.BodyNode(), prompt("alpha"))
	doc.Append(doc.BodyNode(), prompt("beta"))
	if err := nav.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
	session := mcpSession(t, nav)

	text, isErr := mcpCallTool(t, session, "promptnav_list", map[string]any{})
	if isErr {
		t.Fatalf("list: %s", text)
	}
	var list ListResponse
	if err := json.Unmarshal([]byte(text), &list); err != nil {
		t.Fatal(err)
	}
	if len(list.Prompts) != 2 || list.Prompts[1].Text != "beta" {
		t.Errorf("list: %+v", list)
	}

	if text, isErr := mcpCallTool(t, session, "promptnav_select", map[string]any{"id": "prompt-1"}); isErr {
		t.Fatalf("select: %s", text)
	}
	_, _, sels := rec.snapshot()
	if len(sels) != 1 || sels[0].Source != SourceMCP {
		t.Errorf("selections: %+v", sels)
	}

	text, _ = mcpCallTool(t, session, "promptnav_reset", map[string]any{})
	var rst ResetResponse
	if err := json.Unmarshal([]byte(text), &rst); err != nil {
		t.Fatal(err)
	}
	if rst.Dropped != 2 {
		t.Errorf("reset: %+v", rst)
	}
}

func TestMCP_GetMarkdown(t *testing.T) {
	doc, _, _, nav := newTestNavigator(t, testPrompts())
	doc.Append(doc.BodyNode(), prompt("explain goroutines"))
	if err := nav.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
	session := mcpSession(t, nav)

	text, isErr := mcpCallTool(t, session, "promptnav_get", map[string]any{"id": "prompt-0", "markdown": true})
	if isErr {
		t.Fatalf("get: %s", text)
	}
	var got PromptResponse
	if err := json.Unmarshal([]byte(text), &got); err != nil {
		t.Fatal(err)
	}
	if got.ID != "prompt-0" || got.Markdown != "explain goroutines" {
		t.Errorf("get: %+v", got)
	}
}

func TestMCP_UnknownPromptIsToolError(t *testing.T) {
	_, _, _, nav := newTestNavigator(t, testPrompts())
	if err := nav.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
	session := mcpSession(t, nav)

	if _, isErr := mcpCallTool(t, session, "promptnav_select", map[string]any{"id": "prompt-3"}); !isErr {
		t.Error("select of an unknown prompt should be a tool error")
	}
}
