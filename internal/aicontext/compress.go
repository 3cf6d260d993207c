package aicontext

import (
	"encoding/json"
	"strings"

	"github.com/blockcanvas/indy/internal/intent"
	"github.com/blockcanvas/indy/internal/jsonutil"
	"github.com/blockcanvas/indy/internal/schema"
)

const unknownBlockType = "unknown"

// CompressedUpdateContext is an update context narrowed to one target path.
type CompressedUpdateContext struct {
	BlockType string              `json:"blockType"`
	Intent    intent.Intent       `json:"intent"`
	Target    string              `json:"target"`
	Current   map[string]any      `json:"current"`
	Schema    *schema.Schema      `json:"schema"`
	Tokens    schema.DesignTokens `json:"tokens"`
}

// CompressBlockUpdateContextForTarget narrows an update context to target, a
// dot path such as "background" or "elements.title". ctx may be a
// *BlockUpdateContext or its decoded JSON form. Invalid input yields an empty
// context for block type "unknown".
//
// When target does not resolve in the current data the whole current data is
// kept, and when it is not described by the schema the whole schema is kept.
func CompressBlockUpdateContextForTarget(ctx any, target string) *CompressedUpdateContext {
	full, ok := asUpdateContext(ctx)
	if !ok {
		return &CompressedUpdateContext{
			BlockType: unknownBlockType,
			Intent:    intent.Update,
			Target:    target,
			Current:   map[string]any{},
			Schema:    &schema.Schema{},
		}
	}

	current := jsonutil.ExtractTargetPath(full.Current, target)
	if len(current) == 0 {
		current = jsonutil.CloneObject(full.Current)
	}

	narrowed := narrowSchema(full.Schema, target)
	if narrowed == nil {
		narrowed = full.Schema
	}
	if narrowed == nil {
		narrowed = &schema.Schema{}
	}

	blockType := full.BlockType
	if blockType == "" {
		blockType = unknownBlockType
	}

	return &CompressedUpdateContext{
		BlockType: blockType,
		Intent:    intent.Update,
		Target:    target,
		Current:   current,
		Schema:    narrowed,
		Tokens:    full.Tokens,
	}
}

// narrowSchema returns a schema holding only the node at path, wrapped in its
// ancestors so the shape matches jsonutil.ExtractTargetPath. It returns nil
// when path is not described.
func narrowSchema(s *schema.Schema, path string) *schema.Schema {
	if s == nil || path == "" {
		return nil
	}
	segments := strings.Split(path, ".")
	node := s
	for _, seg := range segments {
		child, ok := node.Property(seg)
		if !ok {
			return nil
		}
		node = child
	}

	wrapped := node.Clone()
	for i := len(segments) - 1; i >= 0; i-- {
		wrapped = schema.Object(schema.P(segments[i], wrapped))
	}
	return wrapped
}

func asUpdateContext(ctx any) (*BlockUpdateContext, bool) {
	switch v := ctx.(type) {
	case *BlockUpdateContext:
		if v == nil {
			return nil, false
		}
		return v, true
	case BlockUpdateContext:
		return &v, true
	case map[string]any:
		return updateContextFromMap(v), true
	}
	return nil, false
}

// updateContextFromMap reads a decoded JSON update context. Missing or
// malformed fields are left empty.
func updateContextFromMap(m map[string]any) *BlockUpdateContext {
	out := &BlockUpdateContext{Intent: intent.Update}
	out.BlockType, _ = m["blockType"].(string)
	out.Current, _ = jsonutil.AsObject(m["current"])
	if s, ok := schema.FromValue(m["schema"]); ok {
		out.Schema = s
	}
	if raw, ok := m["tokens"]; ok && raw != nil {
		if data, err := json.Marshal(raw); err == nil {
			_ = json.Unmarshal(data, &out.Tokens)
		}
	}
	return out
}
