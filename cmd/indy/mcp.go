package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/blockcanvas/indy/internal/config"
	"github.com/blockcanvas/indy/internal/mcp"
	"github.com/blockcanvas/indy/internal/registry"
	"github.com/blockcanvas/indy/internal/schema"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the block tools over MCP (stdio)",
	Long: `Run an MCP server on stdin/stdout exposing:

  list_blocks              registered block types and elements
  summarize_block_schema   compact schema summary of a block type
  classify_block_intent    create, replace or update for given block data
  prepare_block_context    the AI context for a block, optionally compressed

Add it to an MCP client as: indy mcp`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.RequireValid(config.ValidationContextOffline); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		summaries, err := schema.NewSummaryCache(cfg.Indy.SummaryCacheSize)
		if err != nil {
			return err
		}
		tokens, err := loadTokens()
		if err != nil {
			return err
		}
		return mcp.NewServer(Version, registry.Default(), summaries, tokens).ServeStdio(ctx)
	},
}
