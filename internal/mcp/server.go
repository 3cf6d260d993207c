// Package mcp exposes the block context layer as MCP tools, so coding agents
// can inspect block schemas and build the same prompts the assistant uses.
package mcp

import (
	"context"
	"log/slog"

	"github.com/blockcanvas/indy/internal/aicontext"
	"github.com/blockcanvas/indy/internal/registry"
	"github.com/blockcanvas/indy/internal/schema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverName = "indy"

// Server wraps an MCP server with the block tools registered.
type Server struct {
	mcp       *mcp.Server
	registry  *registry.Registry
	builder   *aicontext.Builder
	summaries *schema.SummaryCache
	tokens    schema.DesignTokens
	logger    *slog.Logger
}

// NewServer registers the tools. tokens are used when a call does not pass
// its own; summaries may be nil.
func NewServer(version string, reg *registry.Registry, summaries *schema.SummaryCache, tokens schema.DesignTokens) *Server {
	s := &Server{
		mcp:       mcp.NewServer(&mcp.Implementation{Name: serverName, Version: version}, nil),
		registry:  reg,
		builder:   aicontext.NewBuilder(reg),
		summaries: summaries,
		tokens:    tokens,
		logger:    slog.Default().With("component", "mcp"),
	}

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_blocks",
		Description: "List the registered block types and elements",
	}, s.listBlocks)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "summarize_block_schema",
		Description: "Summarize a block type's schema in the compact form given to the model",
	}, s.summarizeBlockSchema)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "classify_block_intent",
		Description: "Decide whether a block should be created, replaced or updated",
	}, s.classifyBlockIntent)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "prepare_block_context",
		Description: "Build the AI context for a block, optionally compressed to one target path",
	}, s.prepareBlockContext)

	return s
}

// MCP returns the underlying server, for custom transports.
func (s *Server) MCP() *mcp.Server {
	return s.mcp
}

// ServeStdio serves over stdin/stdout until the client disconnects or ctx is
// cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	s.logger.Info("mcp server starting", "transport", "stdio")
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}
