package llm

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/blockcanvas/indy/internal/config"
	"github.com/blockcanvas/indy/internal/errors"
	"github.com/sashabaranov/go-openai"
)

// Provider represents the LLM provider
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderGemini Provider = "gemini"
	ProviderNone   Provider = "none"
)

// ChatCompleter is the function-calling surface the assistant dispatcher
// talks to. *Client and *openai.Client both satisfy it.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// JSONCompleter returns a single JSON object as text.
type JSONCompleter interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Client provides the multi-provider LLM interface. Tool calling always goes
// through OpenAI; JSON generation follows the configured provider.
type Client struct {
	provider     Provider
	openaiClient *openai.Client
	geminiClient *GeminiClient
	limiter      Limiter
	logger       *slog.Logger
	model        string
	temperature  float32
	maxTokens    int
}

// NewClient creates an LLM client from configuration. Missing keys do not
// fail construction; the affected calls return a config error instead.
func NewClient(ctx context.Context, cfg *config.Config) (*Client, error) {
	logger := slog.Default().With("component", "llm")

	c := &Client{
		provider:    ProviderNone,
		logger:      logger,
		model:       cfg.API.OpenAIModel,
		temperature: float32(cfg.Indy.Temperature),
		maxTokens:   cfg.Indy.MaxTokens,
	}
	if c.model == "" {
		c.model = openai.GPT4oMini
	}

	if cfg.API.OpenAIKey != "" {
		c.openaiClient = openai.NewClient(cfg.API.OpenAIKey)
		c.provider = ProviderOpenAI
		logger.Info("openai client initialized", "key_source", getKeySource(cfg), "model", c.model)
	} else {
		logger.Warn("no OpenAI API key configured, run 'indy configure' to set one")
	}

	if Provider(cfg.API.Provider) == ProviderGemini {
		if cfg.API.GeminiKey == "" {
			logger.Warn("LLM_PROVIDER=gemini but no Gemini API key configured")
		} else {
			gc, err := NewGeminiClient(ctx, cfg.API.GeminiKey, cfg.API.GeminiModel)
			if err != nil {
				return nil, fmt.Errorf("failed to create gemini client: %w", err)
			}
			c.geminiClient = gc
			c.provider = ProviderGemini
		}
	}

	return c, nil
}

// WithLimiter throttles every outgoing call through l.
func (c *Client) WithLimiter(l Limiter) *Client {
	c.limiter = l
	return c
}

// getKeySource returns a string indicating where the API key came from
func getKeySource(cfg *config.Config) string {
	if os.Getenv("OPENAI_API_KEY") != "" {
		return "environment"
	}
	if cfg.API.UseKeychain {
		return "keychain"
	}
	return "config_file"
}

// IsEnabled reports whether any provider is ready.
func (c *Client) IsEnabled() bool {
	return c.openaiClient != nil || c.geminiClient != nil
}

// GetProvider returns the provider used for JSON generation.
func (c *Client) GetProvider() Provider {
	return c.provider
}

// Model returns the OpenAI chat model.
func (c *Client) Model() string {
	return c.model
}

// CreateChatCompletion forwards a function-calling request to OpenAI. An
// empty model or zero temperature in req is filled from configuration.
func (c *Client) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	if c.openaiClient == nil {
		return openai.ChatCompletionResponse{}, errors.ConfigError("OpenAI API key is not configured")
	}
	if req.Model == "" {
		req.Model = c.model
	}
	if req.Temperature == 0 {
		req.Temperature = c.temperature
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = c.maxTokens
	}

	if err := c.wait(ctx, EstimateTokens(req.Messages)+int64(req.MaxTokens)); err != nil {
		return openai.ChatCompletionResponse{}, err
	}

	resp, err := c.openaiClient.CreateChatCompletion(ctx, req)
	if err != nil {
		// callers inspect *openai.APIError, so keep it unwrapped
		return resp, err
	}

	c.logger.Debug("openai chat completion",
		"model", req.Model,
		"messages", len(req.Messages),
		"tools", len(req.Tools),
		"tokens_used", resp.Usage.TotalTokens,
	)
	return resp, nil
}

// CompleteJSON sends a prompt to the configured provider and returns its
// JSON object response.
func (c *Client) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if err := c.wait(ctx, int64((len(systemPrompt)+len(userPrompt))/4+c.maxTokens)); err != nil {
		return "", err
	}

	switch {
	case c.provider == ProviderGemini && c.geminiClient != nil:
		return c.geminiClient.CompleteJSON(ctx, systemPrompt, userPrompt)
	case c.openaiClient != nil:
		return c.completeOpenAIJSON(ctx, systemPrompt, userPrompt)
	default:
		return "", errors.ConfigError("no LLM provider configured")
	}
}

// completeOpenAIJSON handles OpenAI JSON completion
func (c *Client) completeOpenAIJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := c.openaiClient.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: userPrompt,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", errors.New(errors.ErrorTypeExternal, errors.SeverityMedium, "openai returned no choices")
	}

	response := resp.Choices[0].Message.Content
	c.logger.Debug("openai json completion",
		"model", c.model,
		"prompt_length", len(userPrompt),
		"response_length", len(response),
		"tokens_used", resp.Usage.TotalTokens,
	)

	return response, nil
}

func (c *Client) wait(ctx context.Context, tokens int64) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx, tokens)
}

// EstimateTokens approximates prompt size at four characters per token.
func EstimateTokens(msgs []openai.ChatCompletionMessage) int64 {
	var chars int
	for _, m := range msgs {
		chars += len(m.Content)
	}
	return int64(chars / 4)
}
