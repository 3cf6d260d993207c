package mcp

import (
	"context"
	"encoding/json"

	"github.com/blockcanvas/indy/internal/aicontext"
	"github.com/blockcanvas/indy/internal/errors"
	"github.com/blockcanvas/indy/internal/intent"
	"github.com/blockcanvas/indy/internal/schema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type listBlocksInput struct{}

type blockInfo struct {
	Kind        string `json:"kind"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type elementInfo struct {
	Kind    string `json:"kind"`
	Summary string `json:"summary"`
}

type listBlocksOutput struct {
	Blocks   []blockInfo   `json:"blocks"`
	Elements []elementInfo `json:"elements"`
}

func (s *Server) listBlocks(ctx context.Context, req *mcp.CallToolRequest, _ listBlocksInput) (*mcp.CallToolResult, listBlocksOutput, error) {
	out := listBlocksOutput{Blocks: []blockInfo{}, Elements: []elementInfo{}}
	for _, d := range s.registry.Blocks() {
		out.Blocks = append(out.Blocks, blockInfo{Kind: string(d.Kind), Name: d.Name, Description: d.Description})
	}
	for _, e := range s.registry.Elements() {
		out.Elements = append(out.Elements, elementInfo{Kind: string(e.Kind), Summary: e.Summarise()})
	}
	return nil, out, nil
}

type summarizeInput struct {
	BlockType       string `json:"blockType" jsonschema:"registered block type, e.g. hero"`
	IncludeHints    bool   `json:"includeHints,omitempty" jsonschema:"include content hints and examples"`
	MaxDepth        int    `json:"maxDepth,omitempty" jsonschema:"maximum nesting depth to render"`
	ExcludeDefaults bool   `json:"excludeDefaults,omitempty" jsonschema:"omit default values"`
	ExcludeEnums    bool   `json:"excludeEnums,omitempty" jsonschema:"omit enum value lists"`
}

type summarizeOutput struct {
	BlockType string `json:"blockType"`
	Summary   string `json:"summary"`
}

func (s *Server) summarizeBlockSchema(ctx context.Context, req *mcp.CallToolRequest, in summarizeInput) (*mcp.CallToolResult, summarizeOutput, error) {
	desc, err := s.registry.Resolve(in.BlockType)
	if err != nil {
		return nil, summarizeOutput{}, err
	}

	opts := schema.SummaryOptions{
		IncludeHints:    in.IncludeHints,
		MaxDepth:        in.MaxDepth,
		ExcludeDefaults: in.ExcludeDefaults,
		ExcludeEnums:    in.ExcludeEnums,
	}
	// only the default options are cached
	var summary string
	if opts == (schema.SummaryOptions{IncludeHints: true}) {
		summary = s.summaries.Summarise(in.BlockType, desc.Schema, opts)
	} else {
		summary = schema.Summarise(desc.Schema, opts)
	}
	return nil, summarizeOutput{BlockType: in.BlockType, Summary: summary}, nil
}

type classifyInput struct {
	BlockType   string         `json:"blockType" jsonschema:"registered block type"`
	CurrentData map[string]any `json:"currentData,omitempty" jsonschema:"current block data; omit for a new block"`
}

func (s *Server) classifyBlockIntent(ctx context.Context, req *mcp.CallToolRequest, in classifyInput) (*mcp.CallToolResult, intent.Result, error) {
	desc, err := s.registry.Resolve(in.BlockType)
	if err != nil {
		return nil, intent.Result{}, err
	}
	return nil, intent.Classify(intent.Input{
		Current:       in.CurrentData,
		DefaultData:   desc.Defaults(),
		SchemaSummary: s.summaries.Summarise(in.BlockType, desc.Schema, schema.SummaryOptions{IncludeHints: true}),
	}), nil
}

type prepareInput struct {
	BlockType   string         `json:"blockType" jsonschema:"registered block type"`
	CurrentData map[string]any `json:"currentData,omitempty" jsonschema:"current block data; enables update context"`
	Target      string         `json:"target,omitempty" jsonschema:"dot path to compress the update context to"`
	Tokens      map[string]any `json:"tokens,omitempty" jsonschema:"design tokens; defaults to the configured tokens"`
}

type prepareOutput struct {
	Intent  intent.Intent `json:"intent"`
	Context any           `json:"context"`
}

func (s *Server) prepareBlockContext(ctx context.Context, req *mcp.CallToolRequest, in prepareInput) (*mcp.CallToolResult, prepareOutput, error) {
	tokens, err := s.tokensFor(in.Tokens)
	if err != nil {
		return nil, prepareOutput{}, err
	}

	if in.CurrentData == nil {
		if in.Target != "" {
			return nil, prepareOutput{}, errors.ValidationError("target requires currentData")
		}
		built, err := s.builder.PrepareBlockAIContext(in.BlockType, tokens, intent.Create)
		if err != nil {
			return nil, prepareOutput{}, err
		}
		return nil, prepareOutput{Intent: intent.Create, Context: built}, nil
	}

	built, err := s.builder.PrepareBlockUpdateContext(in.BlockType, in.CurrentData, tokens)
	if err != nil {
		return nil, prepareOutput{}, err
	}
	if in.Target != "" {
		return nil, prepareOutput{Intent: intent.Update, Context: aicontext.CompressBlockUpdateContextForTarget(built, in.Target)}, nil
	}
	return nil, prepareOutput{Intent: intent.Update, Context: built}, nil
}

func (s *Server) tokensFor(raw map[string]any) (schema.DesignTokens, error) {
	if len(raw) == 0 {
		return s.tokens, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return schema.DesignTokens{}, errors.ParseError(err, "encode tokens")
	}
	var tokens schema.DesignTokens
	if err := json.Unmarshal(data, &tokens); err != nil {
		return schema.DesignTokens{}, errors.ParseError(err, "invalid tokens")
	}
	return tokens, nil
}
