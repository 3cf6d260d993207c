// Package aicontext assembles the payloads sent to the model: a block's
// schema, defaults or current data, design tokens and AI hints, optionally
// narrowed to a single target path.
package aicontext

import (
	"log/slog"

	"github.com/blockcanvas/indy/internal/intent"
	"github.com/blockcanvas/indy/internal/registry"
	"github.com/blockcanvas/indy/internal/schema"
)

// BlockAIContext is the context for generating a block from scratch.
type BlockAIContext struct {
	BlockType string              `json:"blockType"`
	Intent    intent.Intent       `json:"intent"`
	Schema    *schema.Schema      `json:"schema"`
	Tokens    schema.DesignTokens `json:"tokens"`
	Defaults  map[string]any      `json:"defaults"`
	AIHints   map[string]any      `json:"aiHints"`
}

// BlockUpdateContext is the context for changing an existing block.
type BlockUpdateContext struct {
	BlockType string              `json:"blockType"`
	Intent    intent.Intent       `json:"intent"`
	Schema    *schema.Schema      `json:"schema"`
	Tokens    schema.DesignTokens `json:"tokens"`
	Current   map[string]any      `json:"current"`
	AIHints   map[string]any      `json:"aiHints"`
}

// PageMeta describes the page a batch of blocks belongs to.
type PageMeta struct {
	PageIntent  string `json:"pageIntent,omitempty"`
	Route       string `json:"route,omitempty"`
	LayoutStyle string `json:"layoutStyle,omitempty"`
	Title       string `json:"title,omitempty"`
}

// PageBlock is one block of a page-level request. CurrentData is nil for a
// block that does not exist yet; Target optionally narrows an update to one
// dot path.
type PageBlock struct {
	BlockType   string         `json:"blockType"`
	CurrentData map[string]any `json:"currentData,omitempty"`
	Target      string         `json:"target,omitempty"`
}

// EnrichedBlockContext is one block of a PageAIContext.
type EnrichedBlockContext struct {
	Position  int            `json:"position"`
	BlockType string         `json:"blockType"`
	Intent    intent.Intent  `json:"intent"`
	Schema    *schema.Schema `json:"schema"`
	Defaults  map[string]any `json:"defaults"`
	Current   map[string]any `json:"current,omitempty"`
	AIHints   map[string]any `json:"aiHints"`
}

// PageAIContext is the context for planning a whole page.
type PageAIContext struct {
	PageIntent  string                 `json:"pageIntent"`
	Route       string                 `json:"route"`
	LayoutStyle string                 `json:"layoutStyle"`
	Tokens      schema.DesignTokens    `json:"tokens"`
	Blocks      []EnrichedBlockContext `json:"blocks"`
}

// PageUpdateInput is the request for PreparePageUpdateContext.
type PageUpdateInput struct {
	Blocks []PageBlock
	Tokens schema.DesignTokens
	Meta   PageMeta
}

// PageUpdateBlockContext is one processed block of a page update. Exactly one
// of Full and Compressed is set.
type PageUpdateBlockContext struct {
	Index      int                      `json:"index"`
	BlockType  string                   `json:"blockType"`
	Full       *BlockUpdateContext      `json:"context,omitempty"`
	Compressed *CompressedUpdateContext `json:"compressed,omitempty"`
}

// PageUpdateContext is the context for a multi-block update.
type PageUpdateContext struct {
	PageIntent string                   `json:"pageIntent"`
	Route      string                   `json:"route"`
	Title      string                   `json:"title"`
	Tokens     schema.DesignTokens      `json:"tokens"`
	Blocks     []PageUpdateBlockContext `json:"blocks"`
}

// Builder prepares AI contexts from registered block descriptors.
type Builder struct {
	resolver registry.Resolver
	logger   *slog.Logger
}

// NewBuilder creates a Builder backed by resolver.
func NewBuilder(resolver registry.Resolver) *Builder {
	return &Builder{
		resolver: resolver,
		logger:   slog.Default().With("component", "aicontext"),
	}
}

// PrepareBlockAIContext builds the generation context for blockType. An empty
// in defaults to intent.Create. Unknown block types are a NotFound error.
func (b *Builder) PrepareBlockAIContext(blockType string, tokens schema.DesignTokens, in intent.Intent) (*BlockAIContext, error) {
	desc, err := b.resolver.Resolve(blockType)
	if err != nil {
		return nil, err
	}
	if in == "" {
		in = intent.Create
	}

	return &BlockAIContext{
		BlockType: blockType,
		Intent:    in,
		Schema:    desc.Schema.Clone(),
		Tokens:    tokens,
		Defaults:  desc.Defaults(),
		AIHints:   desc.Hints(),
	}, nil
}

// PrepareBlockUpdateContext builds the update context for an existing block.
func (b *Builder) PrepareBlockUpdateContext(blockType string, current map[string]any, tokens schema.DesignTokens) (*BlockUpdateContext, error) {
	desc, err := b.resolver.Resolve(blockType)
	if err != nil {
		return nil, err
	}

	return &BlockUpdateContext{
		BlockType: blockType,
		Intent:    intent.Update,
		Schema:    desc.Schema.Clone(),
		Tokens:    tokens,
		Current:   current,
		AIHints:   desc.Hints(),
	}, nil
}

// PreparePageAIContext builds a planning context for every block of a page.
// A block's intent is update when it carries current data and create
// otherwise. Any unknown block type fails the whole call.
func (b *Builder) PreparePageAIContext(blocks []PageBlock, tokens schema.DesignTokens, meta PageMeta) (*PageAIContext, error) {
	out := &PageAIContext{
		PageIntent:  meta.PageIntent,
		Route:       meta.Route,
		LayoutStyle: meta.LayoutStyle,
		Tokens:      tokens,
		Blocks:      make([]EnrichedBlockContext, 0, len(blocks)),
	}

	for i, block := range blocks {
		desc, err := b.resolver.Resolve(block.BlockType)
		if err != nil {
			return nil, err
		}

		blockIntent := intent.Create
		if block.CurrentData != nil {
			blockIntent = intent.Update
		}

		out.Blocks = append(out.Blocks, EnrichedBlockContext{
			Position:  i,
			BlockType: block.BlockType,
			Intent:    blockIntent,
			Schema:    desc.Schema.Clone(),
			Defaults:  desc.Defaults(),
			Current:   block.CurrentData,
			AIHints:   desc.Hints(),
		})
	}

	return out, nil
}

// PreparePageUpdateContext builds an update context for each block of a page.
// Unlike PreparePageAIContext it never fails: unregistered block types and
// blocks whose context cannot be built are left out of the result. Blocks
// with a Target are compressed to that path.
func (b *Builder) PreparePageUpdateContext(in PageUpdateInput) *PageUpdateContext {
	out := &PageUpdateContext{
		PageIntent: in.Meta.PageIntent,
		Route:      in.Meta.Route,
		Title:      in.Meta.Title,
		Tokens:     in.Tokens,
		Blocks:     make([]PageUpdateBlockContext, 0, len(in.Blocks)),
	}

	for i, block := range in.Blocks {
		full, err := b.PrepareBlockUpdateContext(block.BlockType, block.CurrentData, in.Tokens)
		if err != nil {
			b.logger.Debug("skipping block in page update",
				"index", i,
				"block_type", block.BlockType,
				"error", err)
			continue
		}

		entry := PageUpdateBlockContext{Index: i, BlockType: block.BlockType}
		if block.Target != "" {
			entry.Compressed = CompressBlockUpdateContextForTarget(full, block.Target)
		} else {
			entry.Full = full
		}
		out.Blocks = append(out.Blocks, entry)
	}

	return out
}
