package indy

import (
	"fmt"
	"testing"

	"github.com/blockcanvas/indy/internal/errors"
	openaigo "github.com/openai/openai-go/v3"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
)

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"api 429", &openai.APIError{HTTPStatusCode: 429}, MsgRateLimited},
		{"api quota", &openai.APIError{HTTPStatusCode: 429, Type: "insufficient_quota"}, MsgQuotaExceeded},
		{"api 401", &openai.APIError{HTTPStatusCode: 401}, MsgInvalidAPIKey},
		{"api code not string", &openai.APIError{HTTPStatusCode: 400, Code: 42}, MsgGeneric},
		{"wrapped api error", fmt.Errorf("chat: %w", &openai.APIError{HTTPStatusCode: 429}), MsgRateLimited},
		{"request error 401", &openai.RequestError{HTTPStatusCode: 401}, MsgInvalidAPIKey},
		{"sdk 429", &openaigo.Error{StatusCode: 429}, MsgRateLimited},
		{"sdk quota", &openaigo.Error{StatusCode: 429, Code: "insufficient_quota"}, MsgQuotaExceeded},
		{"config", errors.ConfigError("OpenAI API key not configured"), MsgInvalidAPIKey},
		{"limiter daily", fmt.Errorf("daily quota exceeded: 10000/10000 requests"), MsgQuotaExceeded},
		{"limiter rpm", fmt.Errorf("approaching RPM limit"), MsgRateLimited},
		{"anything else", fmt.Errorf("boom"), MsgGeneric},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UserMessage(tt.err))
		})
	}
}
