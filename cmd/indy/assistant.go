package main

import (
	"context"

	"github.com/blockcanvas/indy/internal/aicontext"
	"github.com/blockcanvas/indy/internal/config"
	"github.com/blockcanvas/indy/internal/indy"
	"github.com/blockcanvas/indy/internal/llm"
	"github.com/blockcanvas/indy/internal/registry"
	"github.com/blockcanvas/indy/internal/schema"
)

// assistant holds the services shared by serve and chat.
type assistant struct {
	registry  *registry.Registry
	llm       *llm.Client
	summaries *schema.SummaryCache
	tokens    schema.DesignTokens
	property  indy.PropertyAgent
	usage     llm.UsageReporter
	closeFn   func() error
}

func newAssistant(ctx context.Context) (*assistant, error) {
	limiter, closeLimiter := llm.NewLimiter(cfg.Redis)

	client, err := llm.NewClient(ctx, cfg)
	if err != nil {
		closeLimiter()
		return nil, err
	}
	client.WithLimiter(limiter)

	summaries, err := schema.NewSummaryCache(cfg.Indy.SummaryCacheSize)
	if err != nil {
		closeLimiter()
		return nil, err
	}

	tokens, err := loadTokens()
	if err != nil {
		closeLimiter()
		return nil, err
	}

	reg := registry.Default()
	a := &assistant{
		registry:  reg,
		llm:       client,
		summaries: summaries,
		tokens:    tokens,
		closeFn:   closeLimiter,
	}
	if usage, ok := limiter.(llm.UsageReporter); ok {
		a.usage = usage
	}
	if cfg.API.OpenAIKey != "" {
		a.property = indy.NewOpenAIPropertyAgent(cfg.API.OpenAIKey, cfg.API.OpenAIModel, aicontext.NewBuilder(reg))
	}
	return a, nil
}

func (a *assistant) dispatcher(saver indy.Saver) *indy.Dispatcher {
	return indy.NewDispatcher(a.llm, a.registry, saver, indy.Options{
		Model:       a.llm.Model(),
		Temperature: float32(cfg.Indy.Temperature),
		MaxTokens:   cfg.Indy.MaxTokens,
		Summaries:   a.summaries,
	})
}

func (a *assistant) generator() *indy.Generator {
	return indy.NewGenerator(a.registry, a.llm, a.summaries)
}

func (a *assistant) runner() *indy.Runner {
	if cfg.Indy.GenerateURL == "" {
		return nil
	}
	return indy.NewRunner(cfg.Indy.GenerateURL, a.property, cfg.Indy.RequestTimeout)
}

func (a *assistant) Close() error {
	return a.closeFn()
}

// resolveOpenAIKey falls back to the credentials file, prompting when the
// terminal allows it.
func resolveOpenAIKey() {
	if cfg.API.OpenAIKey != "" {
		return
	}
	key, err := config.NewCredentialManager().GetOpenAIAPIKey()
	if err != nil {
		logger.WithError(err).Debug("No OpenAI key in credentials file")
		return
	}
	cfg.API.OpenAIKey = key
}

// loadTokens reads the configured design tokens. No file means no tokens.
func loadTokens() (schema.DesignTokens, error) {
	if cfg.Indy.TokensFile == "" {
		return schema.DesignTokens{}, nil
	}
	tokens, err := schema.LoadTokens(cfg.Indy.TokensFile)
	if err != nil {
		return schema.DesignTokens{}, err
	}
	logger.WithField("file", cfg.Indy.TokensFile).Debug("Loaded design tokens")
	return tokens, nil
}
