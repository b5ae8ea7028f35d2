package enrich

import (
	"aquasync/pkg/domain"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// Compile-time contract assertion.
var _ Explainer = (*OpenAIExplainer)(nil)

const (
	defaultModel     = openai.GPT4oMini
	defaultMaxTokens = 160
	systemPrompt     = "You explain aquarium fish compatibility verdicts to hobbyists. " +
		"Rewrite the verdict as two or three plain sentences. Keep every fact, add no new ones, never change the verdict level."
)

// OpenAIConfig configures the chat completion backend.
type OpenAIConfig struct {
	APIKey    string `json:"-" yaml:"api_key"`
	Model     string `json:"model" yaml:"model"`
	BaseURL   string `json:"base_url" yaml:"base_url" validate:"omitempty,url"`
	MaxTokens int    `json:"max_tokens" yaml:"max_tokens" validate:"gte=0"`
}

// ErrNoAPIKey is returned when no key is configured.
var ErrNoAPIKey = errors.New("openai api key is not configured")

// OpenAIExplainer calls the chat completions API.
type OpenAIExplainer struct {
	client    *openai.Client
	model     string
	maxTokens int
	logger    *slog.Logger
}

// NewOpenAIExplainer builds the explainer. BaseURL points it at a
// compatible gateway or a test server.
func NewOpenAIExplainer(cfg OpenAIConfig, logger *slog.Logger) (*OpenAIExplainer, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrNoAPIKey
	}
	if logger == nil {
		logger = slog.Default()
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}
	logger.Info("generative explanations enabled", "model", model)
	return &OpenAIExplainer{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     model,
		maxTokens: maxTokens,
		logger:    logger,
	}, nil
}

// Model returns the configured model name.
func (o *OpenAIExplainer) Model() string { return o.model }

// Explain implements Explainer.
func (o *OpenAIExplainer) Explain(ctx context.Context, v domain.Verdict) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:               o.model,
		MaxCompletionTokens: o.maxTokens,
		Temperature:         0.2,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: Prompt(v)},
		},
	}
	o.logger.Debug("requesting explanation", "model", o.model, "pair", v.Pair.String())
	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// Prompt renders the user message for a verdict.
func Prompt(v domain.Verdict) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Species: %s and %s\nVerdict: %s\n", v.Pair.A, v.Pair.B, v.Level)
	for _, r := range v.Reasons {
		fmt.Fprintf(&b, "Reason: %s\n", r)
	}
	for _, c := range v.Conditions {
		fmt.Fprintf(&b, "Condition: %s\n", c)
	}
	fmt.Fprintf(&b, "Summary: %s", Local(v))
	return b.String()
}
