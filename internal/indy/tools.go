package indy

import (
	"encoding/json"
	"strings"

	"github.com/blockcanvas/indy/internal/blockstore"
	"github.com/blockcanvas/indy/internal/errors"
	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

// Function names offered to the model.
const (
	FnUpdateBlock = "updateBlock"
	FnAddBlock    = "addBlock"
	FnDeleteBlock = "deleteBlock"
	FnSavePage    = "savePage"
)

// Tools returns the fixed function catalogue.
func Tools() []openai.Tool {
	defs := []openai.FunctionDefinition{
		{
			Name:        FnUpdateBlock,
			Description: "Merge new values into an existing block's data",
			Parameters: jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"index":   {Type: jsonschema.Integer, Description: "Zero-based index of the block"},
					"updates": {Type: jsonschema.Object, Description: "Top-level blockData keys to replace"},
				},
				Required: []string{"index", "updates"},
			},
		},
		{
			Name:        FnAddBlock,
			Description: "Add a new block to the page",
			Parameters: jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"type":     {Type: jsonschema.String, Description: "Block type, e.g. hero or cta"},
					"props":    {Type: jsonschema.Object, Description: "Initial blockData"},
					"position": {Type: jsonschema.Integer, Description: "Ignored; new blocks are always appended"},
				},
				Required: []string{"type", "props"},
			},
		},
		{
			Name:        FnDeleteBlock,
			Description: "Remove a block from the page",
			Parameters: jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"index": {Type: jsonschema.Integer, Description: "Zero-based index of the block"},
				},
				Required: []string{"index"},
			},
		},
		{
			Name:        FnSavePage,
			Description: "Save the current page",
			Parameters: jsonschema.Definition{
				Type:       jsonschema.Object,
				Properties: map[string]jsonschema.Definition{},
			},
		},
	}

	tools := make([]openai.Tool, len(defs))
	for i := range defs {
		tools[i] = openai.Tool{Type: openai.ToolTypeFunction, Function: &defs[i]}
	}
	return tools
}

// Call is a parsed function call. Exactly one of Action and Save is set.
type Call struct {
	Name   string
	Action blockstore.Action
	Save   bool
}

type updateArgs struct {
	Index   *int           `json:"index"`
	Updates map[string]any `json:"updates"`
}

// addArgs accepts position for compatibility with older prompts. It is not
// used: addBlock always appends.
type addArgs struct {
	Type     string         `json:"type"`
	Props    map[string]any `json:"props"`
	Position *int           `json:"position"`
}

type deleteArgs struct {
	Index *int `json:"index"`
}

// ParseCall decodes a function call into a Call. Unknown names, malformed
// JSON and missing required arguments are parse errors; nothing is applied.
func ParseCall(name, arguments string) (Call, error) {
	args := strings.TrimSpace(arguments)
	if args == "" {
		args = "{}"
	}

	switch name {
	case FnUpdateBlock:
		var a updateArgs
		if err := json.Unmarshal([]byte(args), &a); err != nil {
			return Call{}, errors.ParseError(err, "invalid updateBlock arguments")
		}
		if a.Index == nil {
			return Call{}, errors.New(errors.ErrorTypeParse, errors.SeverityHigh, "updateBlock requires an index")
		}
		if a.Updates == nil {
			a.Updates = map[string]any{}
		}
		return Call{Name: name, Action: blockstore.UpdateBlock{Ref: blockstore.Ref{Index: *a.Index}, Updates: a.Updates}}, nil

	case FnAddBlock:
		var a addArgs
		if err := json.Unmarshal([]byte(args), &a); err != nil {
			return Call{}, errors.ParseError(err, "invalid addBlock arguments")
		}
		if a.Type == "" {
			return Call{}, errors.New(errors.ErrorTypeParse, errors.SeverityHigh, "addBlock requires a type")
		}
		return Call{Name: name, Action: blockstore.AddBlock{BlockType: a.Type, Data: a.Props}}, nil

	case FnDeleteBlock:
		var a deleteArgs
		if err := json.Unmarshal([]byte(args), &a); err != nil {
			return Call{}, errors.ParseError(err, "invalid deleteBlock arguments")
		}
		if a.Index == nil {
			return Call{}, errors.New(errors.ErrorTypeParse, errors.SeverityHigh, "deleteBlock requires an index")
		}
		return Call{Name: name, Action: blockstore.RemoveBlock{Ref: blockstore.Ref{Index: *a.Index}}}, nil

	case FnSavePage:
		return Call{Name: name, Save: true}, nil
	}

	return Call{}, errors.New(errors.ErrorTypeParse, errors.SeverityHigh, "unknown function: "+name)
}

// firstCall extracts the function call from a model message, preferring
// tool calls over the legacy function_call field. ok is false for plain text.
func firstCall(msg openai.ChatCompletionMessage) (name, arguments string, ok bool) {
	for _, tc := range msg.ToolCalls {
		if tc.Type == "" || tc.Type == openai.ToolTypeFunction {
			return tc.Function.Name, tc.Function.Arguments, true
		}
	}
	if msg.FunctionCall != nil && msg.FunctionCall.Name != "" {
		return msg.FunctionCall.Name, msg.FunctionCall.Arguments, true
	}
	return "", "", false
}
