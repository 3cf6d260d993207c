package aicontext

import (
	"encoding/json"
	"testing"

	"github.com/blockcanvas/indy/internal/intent"
	"github.com/blockcanvas/indy/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func updateContext(t *testing.T) *BlockUpdateContext {
	var s schema.Schema
	require.NoError(t, json.Unmarshal([]byte(`{
		"type": "object",
		"properties": {
			"elements": {"type": "object", "properties": {
				"title": {"type": "string"}
			}},
			"background": {"type": "object", "properties": {
				"color": {"type": "string", "default": "white"}
			}}
		}
	}`), &s))

	return &BlockUpdateContext{
		BlockType: "hero",
		Intent:    intent.Update,
		Schema:    &s,
		Tokens:    schema.DesignTokens{Colors: []string{"red"}},
		Current: map[string]any{
			"background": map[string]any{"color": "red"},
			"elements":   map[string]any{"title": "Hello"},
		},
	}
}

func TestCompress_NarrowsCurrentAndSchema(t *testing.T) {
	c := CompressBlockUpdateContextForTarget(updateContext(t), "background")

	assert.Equal(t, "hero", c.BlockType)
	assert.Equal(t, intent.Update, c.Intent)
	assert.Equal(t, "background", c.Target)
	assert.Equal(t, map[string]any{"background": map[string]any{"color": "red"}}, c.Current)
	assert.Equal(t, []string{"background"}, c.Schema.Keys())
	assert.Equal(t, []string{"red"}, c.Tokens.Colors)
}

func TestCompress_NestedTarget(t *testing.T) {
	c := CompressBlockUpdateContextForTarget(updateContext(t), "elements.title")

	assert.Equal(t, map[string]any{"elements": map[string]any{"title": "Hello"}}, c.Current)
	elements, ok := c.Schema.Property("elements")
	require.True(t, ok)
	assert.Equal(t, []string{"title"}, elements.Keys())
}

func TestCompress_FallsBackToFullData(t *testing.T) {
	full := updateContext(t)
	c := CompressBlockUpdateContextForTarget(full, "layout.variant")

	assert.Equal(t, full.Current, c.Current)
	assert.Equal(t, full.Schema.Keys(), c.Schema.Keys())
}

func TestCompress_InvalidInput(t *testing.T) {
	for _, in := range []any{nil, "not a context", 42, (*BlockUpdateContext)(nil)} {
		c := CompressBlockUpdateContextForTarget(in, "background")
		assert.Equal(t, "unknown", c.BlockType)
		assert.Equal(t, intent.Update, c.Intent)
		assert.Empty(t, c.Current)
		assert.NotNil(t, c.Schema)
		assert.True(t, c.Tokens.IsEmpty())
	}
}

func TestCompress_DecodedJSONContext(t *testing.T) {
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(`{
		"blockType": "cta",
		"current": {"style": {"align": "left"}, "elements": {}},
		"schema": {"properties": {"style": {"type": "object", "properties": {"align": {"type": "string"}}}}}
	}`), &decoded))

	c := CompressBlockUpdateContextForTarget(decoded, "style")
	assert.Equal(t, "cta", c.BlockType)
	assert.Equal(t, map[string]any{"style": map[string]any{"align": "left"}}, c.Current)
	assert.Equal(t, []string{"style"}, c.Schema.Keys())
	assert.True(t, c.Tokens.IsEmpty())
}
