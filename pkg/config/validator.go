package config

import (
	"fmt"
	"net/url"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	if c.LLM.MaxTokens < 1 || c.LLM.MaxTokens > 8192 {
		errors = append(errors, ValidationError{
			Field:   "llm.max_tokens",
			Message: "max_tokens must be between 1 and 8192",
		})
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errors = append(errors, ValidationError{
			Field:   "llm.temperature",
			Message: "temperature must be between 0 and 2",
		})
	}

	if c.LLM.RateLimit <= 0 {
		errors = append(errors, ValidationError{
			Field:   "llm.rate_limit",
			Message: "rate_limit must be positive",
		})
	}

	if c.LLM.MaxRetries < 0 {
		errors = append(errors, ValidationError{
			Field:   "llm.max_retries",
			Message: "max_retries cannot be negative",
		})
	}

	if c.LLM.BaseURL != "" {
		if _, err := url.Parse(c.LLM.BaseURL); err != nil {
			errors = append(errors, ValidationError{
				Field:   "llm.base_url",
				Message: "invalid LLM base URL",
			})
		}
	}

	if c.Database.URL != "" {
		if _, err := url.Parse(c.Database.URL); err != nil {
			errors = append(errors, ValidationError{
				Field:   "database.url",
				Message: "invalid database URL",
			})
		}
	}

	if c.Database.VectorDim < 1 {
		errors = append(errors, ValidationError{
			Field:   "database.vector_dim",
			Message: "vector_dim must be positive",
		})
	}

	if c.Database.BatchSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "database.batch_size",
			Message: "batch_size must be positive",
		})
	}

	if c.Processor.MinChunkLength < 1 {
		errors = append(errors, ValidationError{
			Field:   "processor.min_chunk_length",
			Message: "min_chunk_length must be positive",
		})
	}

	if c.Processor.SentenceFlush > c.Processor.FlushSize {
		errors = append(errors, ValidationError{
			Field:   "processor.sentence_flush",
			Message: "sentence_flush cannot exceed flush_size",
		})
	}

	if c.Query.TopK < 1 {
		errors = append(errors, ValidationError{
			Field:   "query.top_k",
			Message: "top_k must be positive",
		})
	}

	if c.Query.MaxWorkers < 1 {
		errors = append(errors, ValidationError{
			Field:   "query.max_workers",
			Message: "max_workers must be positive",
		})
	}

	return errors
}
