package aicontext

import (
	"encoding/json"
	"testing"

	"github.com/blockcanvas/indy/internal/errors"
	"github.com/blockcanvas/indy/internal/intent"
	"github.com/blockcanvas/indy/internal/registry"
	"github.com/blockcanvas/indy/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTokens() schema.DesignTokens {
	return schema.DesignTokens{
		Colors:  []string{"primary", "secondary"},
		Spacing: []string{"sm", "md", "lg"},
	}
}

func TestPrepareBlockAIContext_Hero(t *testing.T) {
	b := NewBuilder(registry.Default())
	hero, err := registry.Default().Resolve("hero")
	require.NoError(t, err)

	ctx, err := b.PrepareBlockAIContext("hero", testTokens(), intent.Create)
	require.NoError(t, err)

	assert.Equal(t, "hero", ctx.BlockType)
	assert.Equal(t, intent.Create, ctx.Intent)
	assert.Equal(t, hero.DefaultData, ctx.Defaults)
	assert.Equal(t, testTokens(), ctx.Tokens)
	assert.Equal(t, hero.AIHints, ctx.AIHints)
	require.NotNil(t, ctx.Schema)
	assert.Equal(t, hero.Schema.Keys(), ctx.Schema.Keys())
}

func TestPrepareBlockAIContext_DefaultIntentAndNotFound(t *testing.T) {
	b := NewBuilder(registry.Default())

	ctx, err := b.PrepareBlockAIContext("cta", testTokens(), "")
	require.NoError(t, err)
	assert.Equal(t, intent.Create, ctx.Intent)

	_, err = b.PrepareBlockAIContext("nonexistent", testTokens(), "")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestPrepareBlockAIContext_ReturnsCopies(t *testing.T) {
	b := NewBuilder(registry.Default())
	ctx, err := b.PrepareBlockAIContext("hero", testTokens(), "")
	require.NoError(t, err)

	ctx.Defaults["layout"] = "mutated"
	delete(ctx.Schema.Properties, "layout")

	hero, _ := registry.Default().Resolve("hero")
	assert.NotEqual(t, "mutated", hero.DefaultData["layout"])
	_, ok := hero.Schema.Property("layout")
	assert.True(t, ok)
}

func TestPrepareBlockUpdateContext(t *testing.T) {
	b := NewBuilder(registry.Default())
	current := map[string]any{"elements": map[string]any{"title": "Hi"}}

	ctx, err := b.PrepareBlockUpdateContext("hero", current, testTokens())
	require.NoError(t, err)
	assert.Equal(t, intent.Update, ctx.Intent)
	assert.Equal(t, current, ctx.Current)

	_, err = b.PrepareBlockUpdateContext("nonexistent", current, testTokens())
	assert.True(t, errors.IsNotFound(err))
}

func TestPreparePageAIContext(t *testing.T) {
	b := NewBuilder(registry.Default())
	meta := PageMeta{PageIntent: "landing", Route: "/", LayoutStyle: "modern"}

	page, err := b.PreparePageAIContext([]PageBlock{
		{BlockType: "hero"},
		{BlockType: "features", CurrentData: map[string]any{"elements": map[string]any{}}},
	}, testTokens(), meta)
	require.NoError(t, err)

	assert.Equal(t, "landing", page.PageIntent)
	assert.Equal(t, "/", page.Route)
	assert.Equal(t, "modern", page.LayoutStyle)
	require.Len(t, page.Blocks, 2)
	assert.Equal(t, intent.Create, page.Blocks[0].Intent)
	assert.Equal(t, intent.Update, page.Blocks[1].Intent)
	assert.Equal(t, 1, page.Blocks[1].Position)
}

func TestPreparePageAIContext_UnknownTypeAborts(t *testing.T) {
	b := NewBuilder(registry.Default())
	page, err := b.PreparePageAIContext([]PageBlock{
		{BlockType: "hero"},
		{BlockType: "carousel"},
	}, testTokens(), PageMeta{})

	assert.Nil(t, page)
	assert.True(t, errors.IsNotFound(err))
}

func TestPreparePageUpdateContext_SkipsUnregistered(t *testing.T) {
	b := NewBuilder(registry.Default())
	page := b.PreparePageUpdateContext(PageUpdateInput{
		Blocks: []PageBlock{
			{BlockType: "hero", CurrentData: map[string]any{"layout": map[string]any{"variant": "split"}}},
			{BlockType: "carousel", CurrentData: map[string]any{}},
		},
		Tokens: testTokens(),
		Meta:   PageMeta{PageIntent: "refresh", Route: "/about", Title: "About"},
	})

	require.Len(t, page.Blocks, 1)
	assert.Equal(t, "hero", page.Blocks[0].BlockType)
	assert.Equal(t, 0, page.Blocks[0].Index)
	assert.NotNil(t, page.Blocks[0].Full)
	assert.Nil(t, page.Blocks[0].Compressed)
	assert.Equal(t, "About", page.Title)
}

func TestPreparePageUpdateContext_CompressesTargetedBlocks(t *testing.T) {
	b := NewBuilder(registry.Default())
	page := b.PreparePageUpdateContext(PageUpdateInput{
		Blocks: []PageBlock{{
			BlockType: "hero",
			Target:    "background",
			CurrentData: map[string]any{
				"background": map[string]any{"color": "red"},
				"elements":   map[string]any{"eyebrow": "New"},
			},
		}},
	})

	require.Len(t, page.Blocks, 1)
	c := page.Blocks[0].Compressed
	require.NotNil(t, c)
	assert.Equal(t, map[string]any{"background": map[string]any{"color": "red"}}, c.Current)
	assert.Equal(t, []string{"background"}, c.Schema.Keys())
}

func TestPageUpdateContextJSON(t *testing.T) {
	b := NewBuilder(registry.Default())
	page := b.PreparePageUpdateContext(PageUpdateInput{
		Blocks: []PageBlock{{BlockType: "cta", CurrentData: map[string]any{}, Target: "style"}},
		Tokens: testTokens(),
	})

	data, err := json.Marshal(page)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"compressed":{"blockType":"cta","intent":"update","target":"style"`)
	assert.Contains(t, string(data), `"colors":["primary","secondary"]`)
}
