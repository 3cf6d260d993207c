package indy

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/blockcanvas/indy/internal/blockstore"
	"github.com/blockcanvas/indy/internal/cms"
	"github.com/blockcanvas/indy/internal/config"
	"github.com/blockcanvas/indy/internal/registry"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockCompleter returns a canned response and records the request.
type mockCompleter struct {
	resp   openai.ChatCompletionResponse
	err    error
	got    openai.ChatCompletionRequest
	calls  int
	during func()
}

func (m *mockCompleter) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	m.calls++
	m.got = req
	if m.during != nil {
		m.during()
	}
	return m.resp, m.err
}

func toolCall(name, args string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{
				Role: openai.ChatMessageRoleAssistant,
				ToolCalls: []openai.ToolCall{{
					ID:       "call_1",
					Type:     openai.ToolTypeFunction,
					Function: openai.FunctionCall{Name: name, Arguments: args},
				}},
			},
		}},
	}
}

func textReply(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content},
		}},
	}
}

func heroStore() *blockstore.MemoryStore {
	return blockstore.NewMemoryStore([]blockstore.Block{
		blockstore.NewBlock("hero", map[string]any{"title": "Hi"}),
	})
}

func newTestDispatcher(m *mockCompleter, saver Saver) *Dispatcher {
	return NewDispatcher(m, registry.Default(), saver, Options{Model: "gpt-4o-mini"})
}

func intPtr(i int) *int { return &i }

func TestHandle_UpdateBlock(t *testing.T) {
	store := heroStore()
	m := &mockCompleter{resp: toolCall(FnUpdateBlock, `{"index":0,"updates":{"x":1}}`)}

	resp := newTestDispatcher(m, nil).Handle(context.Background(), Request{Store: store, UserInput: "set x"})

	require.NoError(t, resp.Err)
	assert.Contains(t, resp.Message, "hero")
	assert.Equal(t, FnUpdateBlock, resp.Function)

	b, err := store.Get(0)
	require.NoError(t, err)
	assert.Equal(t, float64(1), b.BlockData["x"])
	assert.Equal(t, "Hi", b.BlockData["title"])
}

func TestHandle_UpdateBlockInvalidIndex(t *testing.T) {
	store := heroStore()
	before := store.List()
	m := &mockCompleter{resp: toolCall(FnUpdateBlock, `{"index":5,"updates":{"x":1}}`)}

	resp := newTestDispatcher(m, nil).Handle(context.Background(), Request{Store: store, UserInput: "set x"})

	assert.Contains(t, resp.Message, "Invalid block index")
	assert.Error(t, resp.Err)
	assert.Equal(t, before, store.List())
}

func TestHandle_AddBlock(t *testing.T) {
	store := heroStore()
	m := &mockCompleter{resp: toolCall(FnAddBlock, `{"type":"cta","props":{"content":{"title":"Join"}}}`)}

	resp := newTestDispatcher(m, nil).Handle(context.Background(), Request{Store: store, UserInput: "add a cta"})

	require.NoError(t, resp.Err)
	assert.Contains(t, resp.Message, "position 1")
	require.Equal(t, 2, store.Len())

	b, _ := store.Get(1)
	assert.Equal(t, "cta", b.BlockType)
	assert.Equal(t, map[string]any{"title": "Join"}, b.BlockData["content"])
	// keys the model left out come from the registry defaults
	assert.Contains(t, b.BlockData, "background")
}

func TestHandle_AddBlockIgnoresPosition(t *testing.T) {
	store := heroStore()
	m := &mockCompleter{resp: toolCall(FnAddBlock, `{"type":"cta","props":{},"position":0}`)}

	resp := newTestDispatcher(m, nil).Handle(context.Background(), Request{Store: store, UserInput: "add a cta first"})

	require.NoError(t, resp.Err)
	assert.Equal(t, "Added a cta block at position 1.", resp.Message)

	blocks := store.List()
	require.Len(t, blocks, 2)
	assert.Equal(t, "hero", blocks[0].BlockType)
	assert.Equal(t, "cta", blocks[1].BlockType)
	assert.Equal(t, 1, blocks[1].Position)
}

func TestHandle_AddBlockUnknownType(t *testing.T) {
	store := heroStore()
	m := &mockCompleter{resp: toolCall(FnAddBlock, `{"type":"carousel","props":{}}`)}

	resp := newTestDispatcher(m, nil).Handle(context.Background(), Request{Store: store, UserInput: "add a carousel"})

	assert.Contains(t, resp.Message, "unknown block type")
	assert.Equal(t, 1, store.Len())
}

func TestHandle_DeleteBlock(t *testing.T) {
	store := heroStore()
	m := &mockCompleter{resp: toolCall(FnDeleteBlock, `{"index":0}`)}

	resp := newTestDispatcher(m, nil).Handle(context.Background(), Request{Store: store, UserInput: "remove it"})

	require.NoError(t, resp.Err)
	assert.Contains(t, resp.Message, "hero")
	assert.Equal(t, 0, store.Len())
}

func TestHandle_DeleteBlockInvalidIndex(t *testing.T) {
	store := heroStore()
	m := &mockCompleter{resp: toolCall(FnDeleteBlock, `{"index":-1}`)}

	resp := newTestDispatcher(m, nil).Handle(context.Background(), Request{Store: store, UserInput: "remove it"})

	assert.Contains(t, resp.Message, "Invalid block index")
	assert.Equal(t, 1, store.Len())
}

func TestHandle_SavePage(t *testing.T) {
	var gotPath string
	var body cms.EntryPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cmsCfg := config.Default().CMS
	cmsCfg.BaseURL = srv.URL
	store := heroStore()
	m := &mockCompleter{resp: toolCall(FnSavePage, `{}`)}

	resp := newTestDispatcher(m, cms.NewClient(cmsCfg)).Handle(context.Background(), Request{
		Store: store, UserInput: "save", PagePath: "/edit/acme/home",
	})

	require.NoError(t, resp.Err)
	assert.True(t, resp.Saved)
	assert.Equal(t, "/entries/acme/home", gotPath)
	require.Len(t, body.Blocks, 1)
	assert.Equal(t, "hero", body.Blocks[0].BlockType)
	assert.Equal(t, 0, body.Blocks[0].Position)
}

func TestHandle_SavePageOutsideEditor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	}))
	defer srv.Close()

	cmsCfg := config.Default().CMS
	cmsCfg.BaseURL = srv.URL
	m := &mockCompleter{resp: toolCall(FnSavePage, ``)}

	resp := newTestDispatcher(m, cms.NewClient(cmsCfg)).Handle(context.Background(), Request{
		Store: heroStore(), UserInput: "save", PagePath: "/preview/acme",
	})

	assert.False(t, resp.Saved)
	assert.Contains(t, resp.Message, "/edit/")
}

func TestHandle_SavePageFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":"entry is locked"}`))
	}))
	defer srv.Close()

	cmsCfg := config.Default().CMS
	cmsCfg.BaseURL = srv.URL
	m := &mockCompleter{resp: toolCall(FnSavePage, `{}`)}

	resp := newTestDispatcher(m, cms.NewClient(cmsCfg)).Handle(context.Background(), Request{
		Store: heroStore(), UserInput: "save", PagePath: "/edit/acme/home",
	})

	assert.Equal(t, MsgGeneric, resp.Message)
	require.Error(t, resp.Err)
	assert.Contains(t, resp.Err.Error(), "entry is locked")
}

func TestHandle_PlainText(t *testing.T) {
	store := heroStore()
	m := &mockCompleter{resp: textReply("Your hero looks great.")}

	resp := newTestDispatcher(m, nil).Handle(context.Background(), Request{Store: store, UserInput: "thoughts?"})

	assert.Equal(t, "Your hero looks great.", resp.Message)
	assert.Empty(t, resp.Function)
	assert.NoError(t, resp.Err)
}

func TestHandle_LegacyFunctionCall(t *testing.T) {
	store := heroStore()
	m := &mockCompleter{resp: openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{
				FunctionCall: &openai.FunctionCall{Name: FnDeleteBlock, Arguments: `{"index":0}`},
			},
		}},
	}}

	resp := newTestDispatcher(m, nil).Handle(context.Background(), Request{Store: store, UserInput: "remove"})

	require.NoError(t, resp.Err)
	assert.Equal(t, 0, store.Len())
}

func TestHandle_ModelErrorsAreMapped(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"rate limit", &openai.APIError{HTTPStatusCode: 429, Code: "rate_limit_exceeded"}, MsgRateLimited},
		{"quota", &openai.APIError{HTTPStatusCode: 429, Code: "insufficient_quota"}, MsgQuotaExceeded},
		{"bad key", &openai.APIError{HTTPStatusCode: 401, Code: "invalid_api_key"}, MsgInvalidAPIKey},
		{"other", &openai.APIError{HTTPStatusCode: 500}, MsgGeneric},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &mockCompleter{err: tt.err}
			resp := newTestDispatcher(m, nil).Handle(context.Background(), Request{Store: heroStore(), UserInput: "hi"})
			assert.Equal(t, tt.want, resp.Message)
			assert.Error(t, resp.Err)
		})
	}
}

func TestHandle_MalformedArgumentsDoNotMutate(t *testing.T) {
	store := heroStore()
	before := store.List()
	m := &mockCompleter{resp: toolCall(FnUpdateBlock, `{"index":0,"updates":`)}

	resp := newTestDispatcher(m, nil).Handle(context.Background(), Request{Store: store, UserInput: "set x"})

	assert.Equal(t, MsgGeneric, resp.Message)
	assert.Equal(t, before, store.List())
}

func TestHandle_CancelledBeforeApply(t *testing.T) {
	store := heroStore()
	before := store.List()
	ctx, cancel := context.WithCancel(context.Background())
	m := &mockCompleter{resp: toolCall(FnDeleteBlock, `{"index":0}`), during: cancel}

	resp := newTestDispatcher(m, nil).Handle(ctx, Request{Store: store, UserInput: "remove"})

	assert.ErrorIs(t, resp.Err, context.Canceled)
	assert.Equal(t, before, store.List())
}

func TestHandle_SelectedBlockContext(t *testing.T) {
	m := &mockCompleter{resp: textReply("ok")}

	newTestDispatcher(m, nil).Handle(context.Background(), Request{
		Store:         heroStore(),
		UserInput:     "make it pop",
		SelectedIndex: intPtr(0),
	})

	require.Equal(t, 1, m.calls)
	assert.Equal(t, "auto", m.got.ToolChoice)
	assert.Len(t, m.got.Tools, 4)
	require.Len(t, m.got.Messages, 3)

	selected := m.got.Messages[0]
	assert.Equal(t, openai.ChatMessageRoleSystem, selected.Role)
	assert.Contains(t, selected.Content, "SELECTED BLOCK [0] hero")
	assert.Contains(t, selected.Content, `"title": "Hi"`)

	assert.Contains(t, m.got.Messages[1].Content, "<- selected")
	assert.Equal(t, openai.ChatMessageRoleUser, m.got.Messages[2].Role)
	assert.Equal(t, "make it pop", m.got.Messages[2].Content)
}

func TestHandle_NoSelection(t *testing.T) {
	m := &mockCompleter{resp: textReply("ok")}

	newTestDispatcher(m, nil).Handle(context.Background(), Request{Store: heroStore(), UserInput: "hello"})

	require.Len(t, m.got.Messages, 2)
	assert.Contains(t, m.got.Messages[0].Content, "No block is selected")
}

func TestParseCall(t *testing.T) {
	call, err := ParseCall(FnAddBlock, `{"type":"grid","props":{"columns":3},"position":0}`)
	require.NoError(t, err)
	add, ok := call.Action.(blockstore.AddBlock)
	require.True(t, ok)
	assert.Equal(t, "grid", add.BlockType)
	assert.Equal(t, map[string]any{"columns": float64(3)}, add.Data)

	_, err = ParseCall(FnUpdateBlock, `{"updates":{}}`)
	assert.Error(t, err)

	_, err = ParseCall("dropDatabase", `{}`)
	assert.Error(t, err)

	call, err = ParseCall(FnSavePage, "")
	require.NoError(t, err)
	assert.True(t, call.Save)
}
