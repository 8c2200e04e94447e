package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"
)

// EmbedderConfig configures the remote embedding client.
type EmbedderConfig struct {
	Model      string
	APIKey     string
	BaseURL    string // OpenAI-compatible endpoint
	RateLimit  float64
	MaxRetries int
}

// Embedder calls an external embedding service. Calls are rate limited and
// transient failures are retried with backoff.
type Embedder struct {
	config  EmbedderConfig
	client  *openai.LLM
	limiter *rate.Limiter
}

func NewEmbedderWithConfig(config EmbedderConfig) (*Embedder, error) {
	if config.Model == "" {
		config.Model = "text-embedding-3-small"
	}
	if config.RateLimit == 0 {
		config.RateLimit = 2
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = 3
	}

	opts := []openai.Option{openai.WithEmbeddingModel(config.Model)}
	if config.APIKey != "" {
		opts = append(opts, openai.WithToken(config.APIKey))
	}
	if config.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(config.BaseURL))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding client: %w", err)
	}

	return &Embedder{
		config:  config,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
	}, nil
}

// Embed returns one vector per input text, in input order.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var vectors [][]float32
	err := withRetry(ctx, e.config.MaxRetries, func() error {
		var err error
		vectors, err = e.client.CreateEmbedding(ctx, texts)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("embedding call failed: %w", err)
	}

	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedding service returned %d vectors for %d texts", len(vectors), len(texts))
	}
	return vectors, nil
}
