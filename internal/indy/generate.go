package indy

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/blockcanvas/indy/internal/aicontext"
	"github.com/blockcanvas/indy/internal/errors"
	"github.com/blockcanvas/indy/internal/intent"
	"github.com/blockcanvas/indy/internal/jsonutil"
	"github.com/blockcanvas/indy/internal/llm"
	"github.com/blockcanvas/indy/internal/llm/prompts"
	"github.com/blockcanvas/indy/internal/registry"
	"github.com/blockcanvas/indy/internal/schema"
)

// GenerateRequest is the body of POST /api/indy/generate.
type GenerateRequest struct {
	UserInput   string              `json:"userInput"`
	BlockType   string              `json:"blockType"`
	CurrentData map[string]any      `json:"currentData,omitempty"`
	Tokens      schema.DesignTokens `json:"tokens"`
}

// GenerateResponse is the reply of POST /api/indy/generate.
type GenerateResponse struct {
	Success   bool           `json:"success"`
	BlockData map[string]any `json:"blockData,omitempty"`
	Intent    intent.Intent  `json:"intent,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// Generator produces blockData for one block with a single JSON completion.
type Generator struct {
	resolver  registry.Resolver
	builder   *aicontext.Builder
	llm       llm.JSONCompleter
	summaries *schema.SummaryCache
	logger    *slog.Logger
}

// NewGenerator creates a generator. summaries may be nil.
func NewGenerator(resolver registry.Resolver, completer llm.JSONCompleter, summaries *schema.SummaryCache) *Generator {
	return &Generator{
		resolver:  resolver,
		builder:   aicontext.NewBuilder(resolver),
		llm:       completer,
		summaries: summaries,
		logger:    slog.Default().With("component", "generator"),
	}
}

// Generate classifies the request, asks the model for block data and merges
// the result over the defaults (create, replace) or the current data
// (update). Failures are reported in the response, never returned.
func (g *Generator) Generate(ctx context.Context, req GenerateRequest) GenerateResponse {
	if strings.TrimSpace(req.UserInput) == "" {
		return GenerateResponse{Error: "userInput is required"}
	}
	desc, err := g.resolver.Resolve(req.BlockType)
	if err != nil {
		return GenerateResponse{Error: err.Error()}
	}

	summary := g.summaries.Summarise(req.BlockType, desc.Schema, schema.SummaryOptions{IncludeHints: true})
	defaults := desc.Defaults()
	classified := intent.Classify(intent.Input{
		Current:       req.CurrentData,
		DefaultData:   defaults,
		SchemaSummary: summary,
	})

	var blockContext any
	if classified.Intent == intent.Update {
		blockContext, err = g.builder.PrepareBlockUpdateContext(req.BlockType, req.CurrentData, req.Tokens)
	} else {
		blockContext, err = g.builder.PrepareBlockAIContext(req.BlockType, req.Tokens, classified.Intent)
	}
	if err != nil {
		return GenerateResponse{Error: err.Error()}
	}

	contextJSON, err := jsonutil.MarshalIndentNoEscape(blockContext)
	if err != nil {
		return GenerateResponse{Error: MsgGeneric}
	}

	g.logger.Debug("generating block", "block_type", req.BlockType, "intent", classified.Intent)
	raw, err := g.llm.CompleteJSON(ctx,
		prompts.GenerateSystem+"\n\n"+summary,
		prompts.GenerateUser(req.UserInput, string(classified.Intent), classified.Reason, string(contextJSON)),
	)
	if err != nil {
		g.logger.Warn("generation failed", "block_type", req.BlockType, "error", err)
		return GenerateResponse{Error: UserMessage(err), Intent: classified.Intent}
	}

	generated, err := ParseBlockData(raw)
	if err != nil {
		g.logger.Warn("unparseable generation", "block_type", req.BlockType, "error", err)
		return GenerateResponse{Error: MsgGeneric, Intent: classified.Intent}
	}

	base := defaults
	if classified.Intent == intent.Update {
		base = req.CurrentData
	}
	return GenerateResponse{
		Success:   true,
		BlockData: jsonutil.Merge(base, generated),
		Intent:    classified.Intent,
	}
}

// ParseBlockData decodes a model reply that must be a JSON object. Markdown
// code fences around it are tolerated.
func ParseBlockData(raw string) (map[string]any, error) {
	var out map[string]any
	if err := json.Unmarshal([]byte(stripFences(raw)), &out); err != nil {
		return nil, errors.ParseError(err, "model reply is not a JSON object")
	}
	if out == nil {
		return nil, errors.New(errors.ErrorTypeParse, errors.SeverityHigh, "model reply is null")
	}
	return out, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}
