package indy

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"strings"
	"unicode"

	"github.com/blockcanvas/indy/internal/aicontext"
	"github.com/blockcanvas/indy/internal/blockstore"
	"github.com/blockcanvas/indy/internal/errors"
	"github.com/blockcanvas/indy/internal/jsonutil"
	"github.com/blockcanvas/indy/internal/llm/prompts"
	"github.com/blockcanvas/indy/internal/schema"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

var changeVerbs = wordSet("change", "make", "set", "turn", "switch", "update", "adjust", "use", "swap")

var propertyNouns = wordSet("color", "colour", "background", "font", "size", "padding", "margin",
	"spacing", "align", "alignment", "border", "radius", "shadow", "width", "height", "title",
	"heading", "headline", "subtitle", "label", "text", "image", "variant", "gradient", "overlay",
	"link", "href", "columns")

var structuralWords = wordSet("add", "remove", "delete", "insert", "new", "create", "generate",
	"write", "rewrite", "section", "block", "page", "save", "publish")

var synonyms = map[string]string{
	"colour":    "color",
	"heading":   "title",
	"headline":  "title",
	"alignment": "align",
	"bg":        "background",
	"url":       "href",
	"link":      "href",
}

func wordSet(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

// words lower-cases s and splits it on anything that is not a letter or digit.
func words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// IsPropertyChange reports whether text asks to tweak a property of a block
// rather than to restructure the page: it needs a change verb and a property
// noun, and no structural word.
func IsPropertyChange(text string) bool {
	var verb, noun bool
	for _, w := range words(text) {
		if structuralWords[w] {
			return false
		}
		verb = verb || changeVerbs[w]
		noun = noun || propertyNouns[w] || propertyNouns[singular(w)]
	}
	return verb && noun
}

func singular(w string) string {
	if len(w) > 3 && strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss") {
		return w[:len(w)-1]
	}
	return w
}

func normalise(w string) string {
	w = singular(w)
	if s, ok := synonyms[w]; ok {
		return s
	}
	return w
}

// splitCamel splits "gradientFrom" into ["gradient", "from"].
func splitCamel(s string) []string {
	var out []string
	start := 0
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			out = append(out, strings.ToLower(s[start:i]))
			start = i
		}
	}
	return append(out, strings.ToLower(s[start:]))
}

// InferTargetPath picks the dot path in data that the text refers to. Each
// path scores one point per segment named in the text; the leaf segment must
// be named. The best score wins, ties going to the shorter path. It returns
// "" when nothing matches.
func InferTargetPath(text string, data map[string]any) string {
	mentioned := make(map[string]bool)
	for _, w := range words(text) {
		mentioned[normalise(w)] = true
	}

	segMatches := func(seg string) bool {
		if mentioned[normalise(strings.ToLower(seg))] {
			return true
		}
		parts := splitCamel(seg)
		if len(parts) < 2 {
			return false
		}
		for _, p := range parts {
			if len(p) > 1 && mentioned[normalise(p)] {
				return true
			}
		}
		return false
	}

	var paths [][]string
	collectPaths(data, nil, 3, &paths)

	best, bestScore := "", 0
	sort.Slice(paths, func(i, j int) bool {
		return strings.Join(paths[i], ".") < strings.Join(paths[j], ".")
	})
	for _, p := range paths {
		if !segMatches(p[len(p)-1]) {
			continue
		}
		score := 0
		for _, seg := range p {
			if segMatches(seg) {
				score++
			}
		}
		joined := strings.Join(p, ".")
		if score > bestScore || (score == bestScore && len(p) < strings.Count(best, ".")+1) {
			best, bestScore = joined, score
		}
	}
	return best
}

func collectPaths(v any, prefix []string, depth int, out *[][]string) {
	m, ok := jsonutil.AsObject(v)
	if !ok || depth == 0 {
		return
	}
	for k, child := range m {
		p := append(append([]string{}, prefix...), k)
		*out = append(*out, p)
		collectPaths(child, p, depth-1, out)
	}
}

// PropertyRequest asks for a change to one property of an existing block.
type PropertyRequest struct {
	UserInput string
	Index     int
	Block     blockstore.Block
	Tokens    schema.DesignTokens
}

// PropertyAgent proposes a single-path change for a block.
type PropertyAgent interface {
	Propose(ctx context.Context, req PropertyRequest) (blockstore.PropertyUpdate, error)
}

// OpenAIPropertyAgent asks the model for the new value of the inferred
// target path, sending only the compressed context for that path.
type OpenAIPropertyAgent struct {
	client  openai.Client
	model   openai.ChatModel
	builder *aicontext.Builder
	logger  *slog.Logger
}

// NewOpenAIPropertyAgent creates a property agent. Extra options are passed
// to the OpenAI SDK client.
func NewOpenAIPropertyAgent(apiKey, model string, builder *aicontext.Builder, opts ...option.RequestOption) *OpenAIPropertyAgent {
	if model == "" {
		model = string(openai.ChatModelGPT4oMini)
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &OpenAIPropertyAgent{
		client:  openai.NewClient(opts...),
		model:   openai.ChatModel(model),
		builder: builder,
		logger:  slog.Default().With("component", "property_agent"),
	}
}

type propertyReply struct {
	Value *json.RawMessage `json:"value"`
}

// Propose implements PropertyAgent. It fails with a validation error when no
// target path can be inferred from the request.
func (a *OpenAIPropertyAgent) Propose(ctx context.Context, req PropertyRequest) (blockstore.PropertyUpdate, error) {
	target := InferTargetPath(req.UserInput, req.Block.BlockData)
	if target == "" {
		return blockstore.PropertyUpdate{}, errors.ValidationError("could not determine which property to change")
	}

	full, err := a.builder.PrepareBlockUpdateContext(req.Block.BlockType, req.Block.BlockData, req.Tokens)
	if err != nil {
		return blockstore.PropertyUpdate{}, err
	}
	compressed := aicontext.CompressBlockUpdateContextForTarget(full, target)
	contextJSON, err := jsonutil.MarshalIndentNoEscape(compressed)
	if err != nil {
		return blockstore.PropertyUpdate{}, errors.InternalErrorf("encode property context: %v", err)
	}

	completion, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(prompts.PropertySystem),
			openai.UserMessage(prompts.PropertyUser(req.UserInput, target, string(contextJSON))),
		},
		Model:       a.model,
		Temperature: openai.Float(0.2),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		return blockstore.PropertyUpdate{}, err
	}
	if len(completion.Choices) == 0 {
		return blockstore.PropertyUpdate{}, errors.New(errors.ErrorTypeExternal, errors.SeverityMedium, "no response from OpenAI")
	}

	var reply propertyReply
	if err := json.Unmarshal([]byte(stripFences(completion.Choices[0].Message.Content)), &reply); err != nil {
		return blockstore.PropertyUpdate{}, errors.ParseError(err, "invalid property agent response")
	}
	if reply.Value == nil {
		return blockstore.PropertyUpdate{}, errors.New(errors.ErrorTypeParse, errors.SeverityHigh, "property agent response has no value")
	}
	var value any
	if err := json.Unmarshal(*reply.Value, &value); err != nil {
		return blockstore.PropertyUpdate{}, errors.ParseError(err, "invalid property value")
	}

	a.logger.Debug("property change proposed",
		"block_type", req.Block.BlockType,
		"target", target,
		"tokens_used", completion.Usage.TotalTokens,
	)

	return blockstore.PropertyUpdate{
		Ref:   blockstore.Ref{Index: req.Index, ID: req.Block.ID},
		Path:  target,
		Value: value,
	}, nil
}
