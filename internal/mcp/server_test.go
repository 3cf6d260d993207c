package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/blockcanvas/indy/internal/registry"
	"github.com/blockcanvas/indy/internal/schema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func connect(t *testing.T) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	cache, err := schema.NewSummaryCache(16)
	require.NoError(t, err)
	srv := NewServer("test", registry.Default(), cache, schema.DesignTokens{Colors: []string{"primary", "accent"}})

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	serverSession, err := srv.MCP().Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { serverSession.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { session.Close() })
	return session
}

func call(t *testing.T, session *mcp.ClientSession, name string, args map[string]any, out any) *mcp.CallToolResult {
	t.Helper()
	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	if out != nil && !res.IsError {
		data, err := json.Marshal(res.StructuredContent)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(data, out))
	}
	return res
}

func TestListTools(t *testing.T) {
	session := connect(t)
	res, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"list_blocks", "summarize_block_schema", "classify_block_intent", "prepare_block_context"}, names)
}

func TestListBlocksTool(t *testing.T) {
	session := connect(t)
	var out listBlocksOutput
	res := call(t, session, "list_blocks", map[string]any{}, &out)
	require.False(t, res.IsError)

	kinds := make([]string, len(out.Blocks))
	for i, b := range out.Blocks {
		kinds[i] = b.Kind
	}
	assert.ElementsMatch(t, []string{"hero", "grid", "features", "cta", "testimonials", "footer"}, kinds)
	assert.NotEmpty(t, out.Elements)
}

func TestSummarizeBlockSchemaTool(t *testing.T) {
	session := connect(t)

	var out summarizeOutput
	res := call(t, session, "summarize_block_schema", map[string]any{"blockType": "hero", "includeHints": true}, &out)
	require.False(t, res.IsError)
	assert.Equal(t, "hero", out.BlockType)
	assert.Equal(t, schema.Summarise(mustResolve(t, "hero").Schema, schema.SummaryOptions{IncludeHints: true}), out.Summary)

	res = call(t, session, "summarize_block_schema", map[string]any{"blockType": "carousel"}, nil)
	assert.True(t, res.IsError)
}

func TestClassifyBlockIntentTool(t *testing.T) {
	session := connect(t)

	var out struct {
		Intent string `json:"intent"`
		Reason string `json:"reason"`
	}
	call(t, session, "classify_block_intent", map[string]any{"blockType": "cta"}, &out)
	assert.Equal(t, "create", out.Intent)

	call(t, session, "classify_block_intent", map[string]any{
		"blockType":   "cta",
		"currentData": mustResolve(t, "cta").Defaults(),
	}, &out)
	assert.Equal(t, "replace", out.Intent)

	call(t, session, "classify_block_intent", map[string]any{
		"blockType":   "cta",
		"currentData": map[string]any{"content": map[string]any{"heading": "Mine"}},
	}, &out)
	assert.Equal(t, "update", out.Intent)
	assert.Contains(t, out.Reason, "content")
}

func TestPrepareBlockContextTool(t *testing.T) {
	session := connect(t)

	var out struct {
		Intent  string         `json:"intent"`
		Context map[string]any `json:"context"`
	}
	res := call(t, session, "prepare_block_context", map[string]any{"blockType": "hero"}, &out)
	require.False(t, res.IsError)
	assert.Equal(t, "create", out.Intent)
	assert.Contains(t, out.Context["tokens"], "colors")

	res = call(t, session, "prepare_block_context", map[string]any{
		"blockType":   "hero",
		"currentData": map[string]any{"background": map[string]any{"color": "red"}, "elements": map[string]any{"eyebrow": "New"}},
		"target":      "background.color",
	}, &out)
	require.False(t, res.IsError)
	assert.Equal(t, "update", out.Intent)
	data, _ := json.Marshal(out.Context)
	assert.Contains(t, string(data), "background.color")
	assert.NotContains(t, string(data), "eyebrow")

	res = call(t, session, "prepare_block_context", map[string]any{"blockType": "hero", "target": "background"}, nil)
	assert.True(t, res.IsError)
}

func mustResolve(t *testing.T, kind string) *registry.BlockDescriptor {
	t.Helper()
	d, err := registry.Default().Resolve(kind)
	require.NoError(t, err)
	return d
}
