// Package indy runs the assistant: it turns a user request into one model
// call, parses the function the model picked and applies it to the page.
package indy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/blockcanvas/indy/internal/blockstore"
	"github.com/blockcanvas/indy/internal/cms"
	"github.com/blockcanvas/indy/internal/errors"
	"github.com/blockcanvas/indy/internal/jsonutil"
	"github.com/blockcanvas/indy/internal/llm"
	"github.com/blockcanvas/indy/internal/llm/prompts"
	"github.com/blockcanvas/indy/internal/registry"
	"github.com/blockcanvas/indy/internal/schema"
	"github.com/sashabaranov/go-openai"
)

// State is a step of one request.
type State string

const (
	StateIdle             State = "Idle"
	StatePreparing        State = "Preparing"
	StateContextAssembled State = "ContextAssembled"
	StateAwaitingModel    State = "AwaitingModel"
	StateNoFunctionCalled State = "NoFunctionCalled"
	StateFunctionCalled   State = "FunctionCalled"
	StateExecuting        State = "Executing"
	StateDone             State = "Done"
	StateFailed           State = "Failed"
)

// Saver persists the blocks of an entry. *cms.Client and the SQL stores
// implement it.
type Saver interface {
	SaveBlocks(ctx context.Context, site, entry string, blocks []blockstore.Block) error
}

// Request is one user turn against a page.
type Request struct {
	Store     blockstore.Store
	UserInput string
	// SelectedIndex is the block the user has selected, if any.
	SelectedIndex *int
	// PagePath is the editor path, /edit/<site>/<entry>.
	PagePath string
	Tokens   schema.DesignTokens
}

// Response is the outcome of a request. Message is always set; Err is the
// underlying failure, if any, for logging.
type Response struct {
	Message  string              `json:"message"`
	Function string              `json:"function,omitempty"`
	Outcome  *blockstore.Outcome `json:"-"`
	Saved    bool                `json:"saved,omitempty"`
	Err      error               `json:"-"`
}

// Options tunes the model call.
type Options struct {
	Model       string
	Temperature float32
	MaxTokens   int
	Summaries   *schema.SummaryCache
}

// Dispatcher drives the request state machine. It is the error boundary:
// Handle never returns an error, only a Response.
type Dispatcher struct {
	llm      llm.ChatCompleter
	resolver registry.Resolver
	saver    Saver
	opts     Options
	logger   *slog.Logger
}

// NewDispatcher creates a dispatcher. saver may be nil, in which case
// savePage fails with the generic message.
func NewDispatcher(completer llm.ChatCompleter, resolver registry.Resolver, saver Saver, opts Options) *Dispatcher {
	return &Dispatcher{
		llm:      completer,
		resolver: resolver,
		saver:    saver,
		opts:     opts,
		logger:   slog.Default().With("component", "dispatcher"),
	}
}

func (d *Dispatcher) enter(s State) {
	d.logger.Debug("state", "name", string(s))
}

func (d *Dispatcher) fail(err error, function string) Response {
	d.enter(StateFailed)
	d.logger.Warn("request failed", "function", function, "error", err)
	return Response{Message: UserMessage(err), Function: function, Err: err}
}

// Handle runs one request to completion.
func (d *Dispatcher) Handle(ctx context.Context, req Request) Response {
	d.enter(StateIdle)
	if req.Store == nil {
		return d.fail(errors.InternalErrorf("no block store"), "")
	}

	d.enter(StatePreparing)
	blocks := req.Store.List()
	selected := -1
	if req.SelectedIndex != nil {
		selected = *req.SelectedIndex
	}

	messages := d.buildMessages(blocks, selected, req)
	d.enter(StateContextAssembled)

	d.enter(StateAwaitingModel)
	resp, err := d.llm.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       d.opts.Model,
		Messages:    messages,
		Tools:       Tools(),
		ToolChoice:  "auto",
		Temperature: d.opts.Temperature,
		MaxTokens:   d.opts.MaxTokens,
	})
	if err != nil {
		return d.fail(err, "")
	}
	if len(resp.Choices) == 0 {
		return d.fail(errors.New(errors.ErrorTypeExternal, errors.SeverityMedium, "model returned no choices"), "")
	}

	msg := resp.Choices[0].Message
	name, arguments, ok := firstCall(msg)
	if !ok {
		d.enter(StateNoFunctionCalled)
		return Response{Message: msg.Content}
	}

	d.enter(StateFunctionCalled)
	call, err := ParseCall(name, arguments)
	if err != nil {
		return d.fail(err, name)
	}

	// a cancelled request must not apply a call
	if err := ctx.Err(); err != nil {
		return d.fail(err, name)
	}

	d.enter(StateExecuting)
	out := d.execute(ctx, req, call)
	if out.Err != nil && !errors.IsValidation(out.Err) {
		return d.fail(out.Err, name)
	}
	d.enter(StateDone)
	return out
}

func (d *Dispatcher) buildMessages(blocks []blockstore.Block, selected int, req Request) []openai.ChatCompletionMessage {
	types := make([]string, len(blocks))
	for i, b := range blocks {
		types[i] = b.BlockType
	}

	system := prompts.AssistantSystem + "\n\n" + prompts.SelectionContext(types, selected)
	if !req.Tokens.IsEmpty() {
		system += "\n" + schema.SummariseTokensForAI(req.Tokens)
	}

	var messages []openai.ChatCompletionMessage
	if selected >= 0 && selected < len(blocks) {
		b := blocks[selected]
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: prompts.SelectedBlock(selected, b.BlockType, d.summarise(b.BlockType), currentJSON(b.BlockData)),
		})
	}

	return append(messages,
		openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system},
		openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.UserInput},
	)
}

func (d *Dispatcher) summarise(blockType string) string {
	desc, err := d.resolver.Resolve(blockType)
	if err != nil {
		d.logger.Debug("no schema for selected block", "block_type", blockType, "error", err)
		return schema.InvalidSchemaSummary
	}
	return d.opts.Summaries.Summarise(blockType, desc.Schema, schema.SummaryOptions{IncludeHints: true})
}

func currentJSON(data map[string]any) string {
	out, err := jsonutil.MarshalIndentNoEscape(data)
	if err != nil {
		return "{}"
	}
	return string(out)
}

func (d *Dispatcher) execute(ctx context.Context, req Request, call Call) Response {
	if call.Save {
		return d.savePage(ctx, req)
	}

	action := call.Action
	if add, ok := action.(blockstore.AddBlock); ok {
		desc, err := d.resolver.Resolve(add.BlockType)
		if err != nil {
			return Response{
				Message:  fmt.Sprintf("Cannot add block: unknown block type %q.", add.BlockType),
				Function: call.Name,
				Err:      errors.ValidationErrorf("unknown block type %q", add.BlockType),
			}
		}
		add.Data = jsonutil.Merge(desc.Defaults(), add.Data)
		action = add
	}

	outcome, err := req.Store.Apply(action)
	if err != nil {
		if errors.IsValidation(err) {
			return Response{Message: err.Error(), Function: call.Name, Err: err}
		}
		return Response{Function: call.Name, Err: err}
	}

	return Response{Message: describe(outcome), Function: call.Name, Outcome: &outcome}
}

// describe reports an applied action. Updates and removals name the block
// type as it was before the change.
func describe(o blockstore.Outcome) string {
	switch o.Kind {
	case blockstore.KindUpdateBlock:
		return fmt.Sprintf("Updated the %s block at position %d.", o.Previous.BlockType, o.Index)
	case blockstore.KindAddBlock:
		return fmt.Sprintf("Added a %s block at position %d.", o.Block.BlockType, o.Index)
	case blockstore.KindRemoveBlock:
		return fmt.Sprintf("Removed the %s block from position %d.", o.Previous.BlockType, o.Index)
	case blockstore.KindReplaceBlock:
		return fmt.Sprintf("Replaced the %s block at position %d.", o.Previous.BlockType, o.Index)
	case blockstore.KindPropertyUpdate:
		return fmt.Sprintf("Updated the %s block at position %d.", o.Previous.BlockType, o.Index)
	}
	return "Done."
}

func (d *Dispatcher) savePage(ctx context.Context, req Request) Response {
	site, entry, ok := cms.ParseEditPath(req.PagePath)
	if !ok {
		err := errors.ValidationErrorf("cannot save: page path %q is not an editor path", req.PagePath)
		return Response{
			Message:  "I can only save from the page editor (/edit/<site>/<entry>).",
			Function: FnSavePage,
			Err:      err,
		}
	}
	if d.saver == nil {
		return Response{Function: FnSavePage, Err: errors.InternalErrorf("no persistence configured")}
	}

	blocks := req.Store.List()
	if err := d.saver.SaveBlocks(ctx, site, entry, blocks); err != nil {
		return Response{Function: FnSavePage, Err: err}
	}
	return Response{
		Message:  fmt.Sprintf("Saved %d blocks to %s/%s.", len(blocks), site, entry),
		Function: FnSavePage,
		Saved:    true,
	}
}
