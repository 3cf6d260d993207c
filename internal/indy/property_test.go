package indy

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/blockcanvas/indy/internal/aicontext"
	"github.com/blockcanvas/indy/internal/blockstore"
	"github.com/blockcanvas/indy/internal/errors"
	"github.com/blockcanvas/indy/internal/registry"
	"github.com/openai/openai-go/v3/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func heroData() map[string]any {
	return map[string]any{
		"elements": map[string]any{
			"eyebrow":  "New",
			"title":    map[string]any{"content": "Build faster", "level": "h1"},
			"subtitle": map[string]any{"content": "Pages in minutes"},
			"buttons":  []any{},
		},
		"layout":     map[string]any{"variant": "centered", "minHeight": "lg"},
		"background": map[string]any{"type": "solid", "color": "white"},
		"style":      map[string]any{"paddingY": "lg", "textAlign": "center"},
	}
}

func TestIsPropertyChange(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"change the background color to blue", true},
		{"Make the heading smaller", true},
		{"set padding to large", true},
		{"add a new cta section", false},
		{"delete the title", false},
		{"what do you think of this page?", false},
		{"make it pop", false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPropertyChange(tt.text))
		})
	}
}

func TestInferTargetPath(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"change the background color to blue", "background.color"},
		{"make the title shorter", "elements.title"},
		{"make the headline punchier", "elements.title"},
		{"change the bg colour", "background.color"},
		{"set the subtitle to something calmer", "elements.subtitle"},
		{"make the min height smaller", "layout.minHeight"},
		{"make it pop", ""},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, InferTargetPath(tt.text, heroData()))
		})
	}
}

type capturedChat struct {
	Model          string `json:"model"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func fakeOpenAI(t *testing.T, status int, body string, got *capturedChat) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		if got != nil {
			_ = json.NewDecoder(r.Body).Decode(got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func completionBody(content string) string {
	msg, _ := json.Marshal(content)
	return `{"id":"chatcmpl-1","object":"chat.completion","created":1,"model":"gpt-4o-mini",` +
		`"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":` + string(msg) + `}}],` +
		`"usage":{"prompt_tokens":10,"completion_tokens":3,"total_tokens":13}}`
}

func newTestPropertyAgent(srv *httptest.Server) *OpenAIPropertyAgent {
	return NewOpenAIPropertyAgent("test-key", "", aicontext.NewBuilder(registry.Default()),
		option.WithBaseURL(srv.URL+"/v1/"),
		option.WithMaxRetries(0),
	)
}

func TestOpenAIPropertyAgent_Propose(t *testing.T) {
	var got capturedChat
	srv := fakeOpenAI(t, http.StatusOK, completionBody(`{"value":"blue"}`), &got)

	block := blockstore.NewBlock("hero", heroData())
	update, err := newTestPropertyAgent(srv).Propose(context.Background(), PropertyRequest{
		UserInput: "change the background color to blue",
		Index:     2,
		Block:     block,
	})
	require.NoError(t, err)

	assert.Equal(t, "background.color", update.Path)
	assert.Equal(t, "blue", update.Value)
	assert.Equal(t, 2, update.Index)
	assert.Equal(t, block.ID, update.ID)

	assert.Equal(t, "gpt-4o-mini", got.Model)
	assert.Equal(t, "json_object", got.ResponseFormat.Type)
	require.Len(t, got.Messages, 2)
	assert.Contains(t, got.Messages[1].Content, "background.color")
	// the compressed context leaves unrelated sections out
	assert.NotContains(t, got.Messages[1].Content, "Pages in minutes")
}

func TestOpenAIPropertyAgent_StructuredValue(t *testing.T) {
	srv := fakeOpenAI(t, http.StatusOK, completionBody("```json\n{\"value\":{\"content\":\"Ship it\",\"level\":\"h1\"}}\n```"), nil)

	update, err := newTestPropertyAgent(srv).Propose(context.Background(), PropertyRequest{
		UserInput: "make the title shorter",
		Block:     blockstore.NewBlock("hero", heroData()),
	})
	require.NoError(t, err)
	assert.Equal(t, "elements.title", update.Path)
	assert.Equal(t, map[string]any{"content": "Ship it", "level": "h1"}, update.Value)
}

func TestOpenAIPropertyAgent_NoTarget(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("model must not be called without a target")
	}))
	defer srv.Close()

	_, err := newTestPropertyAgent(srv).Propose(context.Background(), PropertyRequest{
		UserInput: "make it pop",
		Block:     blockstore.NewBlock("hero", heroData()),
	})
	assert.True(t, errors.IsValidation(err))
}

func TestOpenAIPropertyAgent_MissingValue(t *testing.T) {
	srv := fakeOpenAI(t, http.StatusOK, completionBody(`{"color":"blue"}`), nil)

	_, err := newTestPropertyAgent(srv).Propose(context.Background(), PropertyRequest{
		UserInput: "change the background color to blue",
		Block:     blockstore.NewBlock("hero", heroData()),
	})
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeParse, errors.GetType(err))
}

func TestOpenAIPropertyAgent_RateLimited(t *testing.T) {
	srv := fakeOpenAI(t, http.StatusTooManyRequests,
		`{"error":{"message":"slow down","type":"requests","code":"rate_limit_exceeded"}}`, nil)

	_, err := newTestPropertyAgent(srv).Propose(context.Background(), PropertyRequest{
		UserInput: "change the background color to blue",
		Block:     blockstore.NewBlock("hero", heroData()),
	})
	require.Error(t, err)
	assert.Equal(t, MsgRateLimited, UserMessage(err))
}
