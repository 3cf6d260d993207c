package llm

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/genai"
)

// GeminiClient wraps Google's Generative AI SDK for JSON block generation.
type GeminiClient struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

// NewGeminiClient creates a new Gemini API client
func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}

	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	logger := slog.Default().With("component", "gemini", "model", model)
	logger.Info("gemini client initialized")

	return &GeminiClient{
		client: client,
		model:  model,
		logger: logger,
	}, nil
}

// CompleteJSON sends a prompt to Gemini and requests JSON response
// Uses Gemini's native JSON mode (application/json response MIME type)
func (c *GeminiClient) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	var systemInstruction *genai.Content
	if systemPrompt != "" {
		systemInstruction = genai.Text(systemPrompt)[0]
	}

	genConfig := &genai.GenerateContentConfig{
		SystemInstruction: systemInstruction,
		Temperature:       ptrFloat32(0.7),
		ResponseMIMEType:  "application/json",
		MaxOutputTokens:   2000,
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(userPrompt), genConfig)
	if err != nil {
		return "", fmt.Errorf("gemini json completion failed: %w", err)
	}

	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("gemini returned no candidates")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("gemini returned no content parts")
	}

	jsonText := candidate.Content.Parts[0].Text

	c.logger.Debug("gemini json completion",
		"prompt_length", len(userPrompt),
		"response_length", len(jsonText),
	)

	return jsonText, nil
}

func ptrFloat32(f float64) *float32 {
	f32 := float32(f)
	return &f32
}
