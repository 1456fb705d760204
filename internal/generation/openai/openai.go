package openai

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/aaryapoyrekar/isro-bot/internal/domain"
	"github.com/aaryapoyrekar/isro-bot/internal/generation"
)

// Client is an OpenAI-compatible chat-completions client.
type Client struct {
	api     *openai.Client
	model   string
	timeout time.Duration
}

// Config configures the generation client.
type Config struct {
	BaseURL   string
	APIKeyEnv string
	Model     string
	Timeout   time.Duration
}

// NewClient creates a generation client. A missing API key is a configuration
// error, detected before any pipeline run.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = "OPENAI_API_KEY"
	}
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, domain.Errorf(domain.StageConfig, domain.KindConfig, "missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	apiCfg := openai.DefaultConfig(key)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}
	return &Client{
		api:     openai.NewClientWithConfig(apiCfg),
		model:   cfg.Model,
		timeout: cfg.Timeout,
	}, nil
}

// Name returns the identifier of this generator implementation.
func (c *Client) Name() string { return "openai" }

// Generate sends the prompt with the given sampling parameters and returns
// the produced text.
func (c *Client) Generate(ctx context.Context, prompt string, opts generation.Options) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: float32(opts.Temperature),
		MaxTokens:   opts.MaxTokens,
	})
	if err != nil {
		return "", domain.NewError(domain.StageGenerate, classify(err), err)
	}
	if len(resp.Choices) == 0 {
		return "", domain.Errorf(domain.StageGenerate, domain.KindEmptyResponse, "no choices in model response")
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", domain.Errorf(domain.StageGenerate, domain.KindEmptyResponse, "model returned an empty message")
	}
	return text, nil
}

// classify maps a go-openai error to a failure kind using its HTTP status.
func classify(err error) domain.Kind {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.KindTimeout
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case 401, 403:
			return domain.KindAuth
		case 429:
			return domain.KindQuota
		case 404:
			return domain.KindUnavailable
		}
		if apiErr.HTTPStatusCode >= 500 {
			return domain.KindUnavailable
		}
		return domain.KindMalformed
	}
	return domain.KindUnavailable
}
