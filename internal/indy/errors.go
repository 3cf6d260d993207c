package indy

import (
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/blockcanvas/indy/internal/errors"
	openaigo "github.com/openai/openai-go/v3"
	"github.com/sashabaranov/go-openai"
)

// User-facing failure messages. Every failed request ends in one of these.
const (
	MsgRateLimited   = "I'm receiving too many requests right now. Please wait a moment and try again."
	MsgQuotaExceeded = "The AI service quota has been exceeded. Please check your plan and billing details."
	MsgInvalidAPIKey = "The AI service rejected the API key. Please check your configuration."
	MsgGeneric       = "Sorry, something went wrong while processing your request. Please try again."
)

// UserMessage maps an error from the model, the rate limiter or persistence
// to one of the fixed user-facing messages.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var apiErr *openai.APIError
	if stderrors.As(err, &apiErr) {
		return classify(apiErr.HTTPStatusCode, codeString(apiErr.Code), apiErr.Type)
	}

	var reqErr *openai.RequestError
	if stderrors.As(err, &reqErr) {
		return classify(reqErr.HTTPStatusCode, "", "")
	}

	var sdkErr *openaigo.Error
	if stderrors.As(err, &sdkErr) {
		return classify(sdkErr.StatusCode, sdkErr.Code, sdkErr.Type)
	}

	if errors.GetType(err) == errors.ErrorTypeConfig {
		return MsgInvalidAPIKey
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "daily quota exceeded"):
		return MsgQuotaExceeded
	case strings.Contains(msg, "rate limit"), strings.Contains(msg, "approaching RPM"), strings.Contains(msg, "approaching TPM"):
		return MsgRateLimited
	}
	return MsgGeneric
}

func classify(status int, code, typ string) string {
	switch {
	case code == "insufficient_quota" || typ == "insufficient_quota":
		return MsgQuotaExceeded
	case status == http.StatusTooManyRequests || code == "rate_limit_exceeded":
		return MsgRateLimited
	case status == http.StatusUnauthorized || code == "invalid_api_key":
		return MsgInvalidAPIKey
	}
	return MsgGeneric
}

func codeString(code any) string {
	if s, ok := code.(string); ok {
		return s
	}
	return ""
}
