package generate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/m3rciful/raidbot/core/logger"
)

// Config selects the completion endpoint.
type Config struct {
	APIKey    string `yaml:"api_key" envconfig:"OPENAI_API_KEY"`
	Model     string `yaml:"model" envconfig:"OPENAI_MODEL"`
	BaseURL   string `yaml:"base_url" envconfig:"OPENAI_BASE_URL"`
	MaxTokens int    `yaml:"max_tokens" envconfig:"OPENAI_MAX_TOKENS"`
	// TimeoutSeconds bounds one completion call.
	TimeoutSeconds int `yaml:"timeout_seconds" envconfig:"OPENAI_TIMEOUT_SECONDS"`
}

// Normalize fills defaults.
func (c *Config) Normalize() {
	if c.Model == "" {
		c.Model = openai.GPT3Dot5Turbo1106
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 1000
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
}

// Enabled reports whether an API key is configured.
func (c Config) Enabled() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

// OpenAI completes prompts through the chat completions API in JSON mode.
type OpenAI struct {
	client    *openai.Client
	model     string
	maxTokens int
	timeout   time.Duration
}

// NewOpenAI builds a client from cfg.
func NewOpenAI(cfg Config) *OpenAI {
	cfg.Normalize()
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	return &OpenAI{
		client:    openai.NewClientWithConfig(oc),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		timeout:   time.Duration(cfg.TimeoutSeconds) * time.Second,
	}
}

// Complete sends prompt as a single user message and returns the reply text.
func (o *OpenAI) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	start := time.Now()
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		MaxTokens: o.maxTokens,
	})
	took := logger.RoundMS(time.Since(start))
	if err != nil {
		attrs := []slog.Attr{
			slog.String("status", "fail"),
			slog.String("model", o.model),
			slog.Duration("duration", took),
			slog.String("err", err.Error()),
		}
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			attrs = append(attrs, slog.Int("http_code", apiErr.HTTPStatusCode))
		}
		logger.Warn(ctx, component, "completion", attrs...)
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion: no choices returned")
	}
	logger.Debug(ctx, component, "completion",
		slog.String("status", "ok"),
		slog.String("model", o.model),
		slog.Int("tokens", resp.Usage.TotalTokens),
		slog.Duration("duration", took),
	)
	return resp.Choices[0].Message.Content, nil
}
