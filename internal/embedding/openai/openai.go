package openai

import (
	"context"
	"errors"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/aaryapoyrekar/isro-bot/internal/domain"
)

// Client is an OpenAI-compatible embeddings client.
type Client struct {
	api       *openai.Client
	model     string
	timeout   time.Duration
	dimension int
}

// Config configures the embeddings client.
type Config struct {
	BaseURL   string
	APIKeyEnv string
	Model     string
	Timeout   time.Duration
}

// NewClient creates an embeddings client. A missing API key is a configuration
// error, detected here rather than at retrieval time.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = "OPENAI_API_KEY"
	}
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, domain.Errorf(domain.StageConfig, domain.KindConfig, "missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
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

// Name returns the identifier of this embedder implementation.
func (c *Client) Name() string { return "openai" }

// Dimension returns the dimensionality of produced vectors, 0 before the
// first successful embed.
func (c *Client) Dimension() int { return c.dimension }

// Embed returns an embedding vector for the given text.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	vectors, err := c.EmbedMany(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedMany embeds a batch of texts in one request, preserving input order.
func (c *Client) EmbedMany(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(c.model),
	})
	if err != nil {
		return nil, domain.NewError(domain.StageEmbed, classify(err), err)
	}
	if len(resp.Data) != len(texts) {
		return nil, domain.Errorf(domain.StageEmbed, domain.KindMalformed,
			"embedding service returned %d vectors for %d inputs", len(resp.Data), len(texts))
	}
	vectors := make([][]float64, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, domain.Errorf(domain.StageEmbed, domain.KindMalformed,
				"embedding service returned out-of-range index %d", d.Index)
		}
		v := make([]float64, len(d.Embedding))
		for i, x := range d.Embedding {
			v[i] = float64(x)
		}
		if len(v) == 0 {
			return nil, domain.Errorf(domain.StageEmbed, domain.KindMalformed, "empty embedding at index %d", d.Index)
		}
		vectors[d.Index] = v
	}
	for i, v := range vectors {
		if v == nil {
			return nil, domain.Errorf(domain.StageEmbed, domain.KindMalformed, "missing embedding for input %d", i)
		}
	}
	if c.dimension == 0 {
		c.dimension = len(vectors[0])
	}
	return vectors, nil
}

// classify maps a go-openai error to a failure kind using its HTTP status, so
// user-facing messages never depend on raw error text.
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
