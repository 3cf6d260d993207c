package indy

import (
	"context"
	"fmt"
	"testing"

	"github.com/blockcanvas/indy/internal/intent"
	"github.com/blockcanvas/indy/internal/registry"
	"github.com/blockcanvas/indy/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeJSON struct {
	reply  string
	err    error
	system string
	user   string
}

func (f *fakeJSON) CompleteJSON(_ context.Context, systemPrompt, userPrompt string) (string, error) {
	f.system, f.user = systemPrompt, userPrompt
	return f.reply, f.err
}

func newTestGenerator(f *fakeJSON) *Generator {
	cache, _ := schema.NewSummaryCache(8)
	return NewGenerator(registry.Default(), f, cache)
}

func TestGenerate_CreateMergesOverDefaults(t *testing.T) {
	f := &fakeJSON{reply: `{"content":{"heading":"Join us","body":"Today"}}`}

	resp := newTestGenerator(f).Generate(context.Background(), GenerateRequest{
		UserInput: "a signup call to action",
		BlockType: "cta",
	})

	require.True(t, resp.Success, resp.Error)
	assert.Equal(t, intent.Create, resp.Intent)
	assert.Equal(t, map[string]any{"heading": "Join us", "body": "Today"}, resp.BlockData["content"])
	assert.Contains(t, resp.BlockData, "background")
	assert.Contains(t, f.user, "INTENT: create")
	assert.Contains(t, f.user, "a signup call to action")
}

func TestGenerate_ReplaceWhenCurrentEqualsDefaults(t *testing.T) {
	desc, err := registry.Default().Resolve("cta")
	require.NoError(t, err)
	f := &fakeJSON{reply: `{"content":{"heading":"New"}}`}

	resp := newTestGenerator(f).Generate(context.Background(), GenerateRequest{
		UserInput:   "rewrite this",
		BlockType:   "cta",
		CurrentData: desc.Defaults(),
	})

	require.True(t, resp.Success)
	assert.Equal(t, intent.Replace, resp.Intent)
}

func TestGenerate_UpdateMergesOverCurrent(t *testing.T) {
	current := map[string]any{
		"content":    map[string]any{"heading": "Mine"},
		"background": map[string]any{"type": "solid", "color": "black"},
	}
	f := &fakeJSON{reply: "```json\n{\"content\":{\"heading\":\"Sharper\"}}\n```"}

	resp := newTestGenerator(f).Generate(context.Background(), GenerateRequest{
		UserInput:   "make the heading sharper",
		BlockType:   "cta",
		CurrentData: current,
	})

	require.True(t, resp.Success, resp.Error)
	assert.Equal(t, intent.Update, resp.Intent)
	assert.Equal(t, map[string]any{"heading": "Sharper"}, resp.BlockData["content"])
	assert.Equal(t, current["background"], resp.BlockData["background"])
	assert.NotContains(t, resp.BlockData, "elements")
	// the caller's map is left alone
	assert.Equal(t, "Mine", current["content"].(map[string]any)["heading"])
}

func TestGenerate_Failures(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		resp := newTestGenerator(&fakeJSON{}).Generate(context.Background(), GenerateRequest{BlockType: "cta"})
		assert.False(t, resp.Success)
		assert.Equal(t, "userInput is required", resp.Error)
	})

	t.Run("unknown type", func(t *testing.T) {
		resp := newTestGenerator(&fakeJSON{}).Generate(context.Background(), GenerateRequest{UserInput: "x", BlockType: "carousel"})
		assert.False(t, resp.Success)
		assert.Contains(t, resp.Error, "not registered")
	})

	t.Run("model error", func(t *testing.T) {
		f := &fakeJSON{err: fmt.Errorf("approaching RPM limit")}
		resp := newTestGenerator(f).Generate(context.Background(), GenerateRequest{UserInput: "x", BlockType: "cta"})
		assert.False(t, resp.Success)
		assert.Equal(t, MsgRateLimited, resp.Error)
	})

	t.Run("not json", func(t *testing.T) {
		f := &fakeJSON{reply: "Sure! Here is your block."}
		resp := newTestGenerator(f).Generate(context.Background(), GenerateRequest{UserInput: "x", BlockType: "cta"})
		assert.False(t, resp.Success)
		assert.Equal(t, MsgGeneric, resp.Error)
	})
}

func TestParseBlockData(t *testing.T) {
	out, err := ParseBlockData("```\n{\"a\":1}\n```")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": float64(1)}, out)

	_, err = ParseBlockData("null")
	assert.Error(t, err)

	_, err = ParseBlockData("[1,2]")
	assert.Error(t, err)
}
