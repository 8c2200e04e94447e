package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/mmrag/pkg/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig_AppliesDefaults(t *testing.T) {
	cfg, err := config.LoadConfig(writeConfig(t, "llm:\n  api_key: sk-test\n"))
	require.NoError(t, err)

	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	assert.Equal(t, "gpt-4o", cfg.LLM.VisionModel)
	assert.Equal(t, "text-embedding-3-small", cfg.LLM.EmbeddingModel)
	assert.Equal(t, 2000, cfg.LLM.MaxTokens)
	assert.Equal(t, "entries", cfg.Database.TableName)
	assert.Equal(t, 1536, cfg.Database.VectorDim)
	assert.Equal(t, 500, cfg.Processor.FlushSize)
	assert.Equal(t, 200, cfg.Processor.SentenceFlush)
	assert.Equal(t, 50, cfg.Processor.MinChunkLength)
	assert.Equal(t, 5, cfg.Query.TopK)
	assert.Equal(t, 4, cfg.Query.MaxWorkers)
	assert.Equal(t, "8080", cfg.Server.Port)
}

func TestLoadConfig_FileValuesWin(t *testing.T) {
	path := writeConfig(t, `
llm:
  model: gpt-4o-mini
  vision_model: gpt-4o
  max_tokens: 1024
  temperature: 0.2
database:
  table_name: docs
  vector_dim: 768
processor:
  flush_size: 400
  sentence_flush: 150
query:
  top_k: 8
server:
  port: "9090"
`)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, "gpt-4o", cfg.LLM.VisionModel)
	assert.Equal(t, 1024, cfg.LLM.MaxTokens)
	assert.Equal(t, 0.2, cfg.LLM.Temperature)
	assert.Equal(t, "docs", cfg.Database.TableName)
	assert.Equal(t, 768, cfg.Database.VectorDim)
	assert.Equal(t, 400, cfg.Processor.FlushSize)
	assert.Equal(t, 150, cfg.Processor.SentenceFlush)
	assert.Equal(t, 8, cfg.Query.TopK)
	assert.Equal(t, "9090", cfg.Server.Port)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-from-env")
	t.Setenv("DATABASE_URL", "postgres://env-host/mmrag")
	t.Setenv("PORT", "3000")

	cfg, err := config.LoadConfig(writeConfig(t, "llm:\n  api_key: sk-from-file\n"))
	require.NoError(t, err)

	assert.Equal(t, "sk-from-env", cfg.LLM.APIKey)
	assert.Equal(t, "postgres://env-host/mmrag", cfg.Database.URL)
	assert.Equal(t, "3000", cfg.Server.Port)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := config.LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	_, err := config.LoadConfig(writeConfig(t, "llm: [not: a: mapping"))
	assert.Error(t, err)
}

func TestValidate_DefaultsAreValid(t *testing.T) {
	cfg, err := config.LoadConfig(writeConfig(t, "llm:\n  api_key: sk-test\n"))
	require.NoError(t, err)

	assert.Empty(t, cfg.Validate())
}

func TestValidate_CollectsFieldErrors(t *testing.T) {
	cfg, err := config.LoadConfig(writeConfig(t, `
llm:
  max_tokens: 10000
  temperature: 2.5
processor:
  flush_size: 100
  sentence_flush: 300
query:
  top_k: -1
`))
	require.NoError(t, err)

	errs := cfg.Validate()
	fields := make([]string, len(errs))
	for i, e := range errs {
		fields[i] = e.Field
	}

	assert.Contains(t, fields, "llm.max_tokens")
	assert.Contains(t, fields, "llm.temperature")
	assert.Contains(t, fields, "processor.sentence_flush")
	assert.Contains(t, fields, "query.top_k")
}

func TestValidationError_Error(t *testing.T) {
	e := config.ValidationError{Field: "query.top_k", Message: "top_k must be positive"}
	assert.Equal(t, "query.top_k: top_k must be positive", e.Error())
}
