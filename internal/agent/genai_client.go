package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"
)

// GenAIClient calls the Gemini API through the Google GenAI SDK.
type GenAIClient struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

// NewGenAIClient creates a Gemini client. A missing API key is reported as a
// *ConfigurationError before any network activity.
func NewGenAIClient(ctx context.Context, cfg Config, logger *slog.Logger) (*GenAIClient, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(cfg.GoogleAPIKey) == "" {
		return nil, &ConfigurationError{Setting: "GEMINI_API_KEY", Reason: "is required"}
	}

	model := strings.TrimSpace(cfg.ModelName)
	if model == "" {
		model = DefaultModel
	}

	clientCfg := &genai.ClientConfig{
		APIKey:     cfg.GoogleAPIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	logger.Info("GenAI client ready", "model", model)
	return &GenAIClient{
		client: client,
		model:  model,
		logger: logger,
	}, nil
}

// Model returns the configured model name.
func (c *GenAIClient) Model() string {
	return c.model
}

// analysisSchema constrains the reply to {answer, recommendedPostIds}.
func analysisSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"answer": {
				Type:        genai.TypeString,
				Description: "A helpful answer to the user query based on the content.",
			},
			"recommendedPostIds": {
				Type:        genai.TypeArray,
				Items:       &genai.Schema{Type: genai.TypeInteger},
				Description: "IDs of posts or pages that are highly relevant to the query.",
			},
		},
		Required: []string{"answer", "recommendedPostIds"},
	}
}

// GenerateJSON implements Generator.
func (c *GenAIClient) GenerateJSON(ctx context.Context, req GenerateRequest) (string, error) {
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   analysisSchema(),
	}
	if req.SystemInstruction != "" {
		config.SystemInstruction = genai.NewContentFromText(req.SystemInstruction, genai.RoleUser)
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(req.Prompt), config)
	if err != nil {
		return "", fmt.Errorf("GenAI generate failed: %w", err)
	}

	text := resp.Text()
	c.logger.Debug("GenAI reply received", "model", c.model, "reply_length", len(text))
	return text, nil
}
