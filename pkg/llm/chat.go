package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
	"github.com/xhad/mmrag/internal/types"
	"golang.org/x/time/rate"
)

// ChatConfig represents the configuration for a chat engine.
type ChatConfig struct {
	Model       string
	Temperature float64
	MaxTokens   int
	APIKey      string
	BaseURL     string // OpenAI-compatible endpoint
	RateLimit   float64
	MaxRetries  int
}

// ChatEngine is the generation service: it turns a role-tagged message set,
// possibly containing inlined images, into a single textual answer.
type ChatEngine struct {
	config  ChatConfig
	llm     llms.Model
	limiter *rate.Limiter
}

// NewWithConfig creates a new ChatEngine with the given configuration.
func NewWithConfig(config ChatConfig) (*ChatEngine, error) {
	if config.Model == "" {
		config.Model = "gpt-4o"
	}
	if config.Temperature < 0 || config.Temperature > 2 {
		return nil, fmt.Errorf("temperature must be between 0 and 2")
	}
	if config.MaxTokens < 0 {
		return nil, fmt.Errorf("max tokens cannot be negative")
	} else if config.MaxTokens == 0 {
		config.MaxTokens = 2000
	}
	if config.RateLimit == 0 {
		config.RateLimit = 2
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = 3
	}

	opts := []openai.Option{openai.WithModel(config.Model)}
	if config.APIKey != "" {
		opts = append(opts, openai.WithToken(config.APIKey))
	}
	if config.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(config.BaseURL))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}

	return &ChatEngine{
		config:  config,
		llm:     llm,
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
	}, nil
}

// Generate invokes the model once and coerces its response into a plain
// string at this boundary.
func (ce *ChatEngine) Generate(ctx context.Context, messages []types.Message) (string, error) {
	content := toContent(messages)

	if err := ce.limiter.Wait(ctx); err != nil {
		return "", err
	}

	var response *llms.ContentResponse
	err := withRetry(ctx, ce.config.MaxRetries, func() error {
		var err error
		response, err = ce.llm.GenerateContent(ctx, content,
			llms.WithMaxTokens(ce.config.MaxTokens),
			llms.WithTemperature(ce.config.Temperature),
		)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("generation call failed: %w", err)
	}

	return coerceResponse(response)
}

// toContent maps boundary messages onto the provider's content schema.
// Images travel as data URLs, the way the vision endpoint expects them.
func toContent(messages []types.Message) []llms.MessageContent {
	content := make([]llms.MessageContent, 0, len(messages))
	for _, msg := range messages {
		role := schema.ChatMessageTypeHuman
		if msg.Role == types.RoleSystem {
			role = schema.ChatMessageTypeSystem
		}

		mc := llms.MessageContent{Role: role}
		for _, part := range msg.Parts {
			if part.ImageB64 != "" {
				mime := part.MIMEType
				if mime == "" {
					mime = "image/jpeg"
				}
				mc.Parts = append(mc.Parts, llms.ImageURLPart(
					fmt.Sprintf("data:%s;base64,%s", mime, part.ImageB64)))
				continue
			}
			mc.Parts = append(mc.Parts, llms.TextPart(part.Text))
		}
		content = append(content, mc)
	}
	return content
}

func coerceResponse(response *llms.ContentResponse) (string, error) {
	if response == nil || len(response.Choices) == 0 {
		return "", fmt.Errorf("empty response from model")
	}
	for _, choice := range response.Choices {
		if choice != nil && strings.TrimSpace(choice.Content) != "" {
			return choice.Content, nil
		}
	}
	// A structured-only response still has a printable first choice.
	return fmt.Sprintf("%v", response.Choices[0].Content), nil
}
