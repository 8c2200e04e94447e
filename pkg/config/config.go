package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	LLM struct {
		BaseURL        string  `yaml:"base_url"`
		APIKey         string  `yaml:"api_key"`
		Model          string  `yaml:"model"`
		VisionModel    string  `yaml:"vision_model"`
		EmbeddingModel string  `yaml:"embedding_model"`
		MaxTokens      int     `yaml:"max_tokens"`
		Temperature    float64 `yaml:"temperature"`
		RateLimit      float64 `yaml:"rate_limit"`
		MaxRetries     int     `yaml:"max_retries"`
	} `yaml:"llm"`

	Database struct {
		URL       string `yaml:"url"`
		TableName string `yaml:"table_name"`
		VectorDim int    `yaml:"vector_dim"`
		BatchSize int    `yaml:"batch_size"`
	} `yaml:"database"`

	Extractor struct {
		OutputDir string `yaml:"output_dir"`
	} `yaml:"extractor"`

	Processor struct {
		FlushSize      int `yaml:"flush_size"`
		SentenceFlush  int `yaml:"sentence_flush"`
		MinChunkLength int `yaml:"min_chunk_length"`
	} `yaml:"processor"`

	Query struct {
		TopK       int `yaml:"top_k"`
		MaxWorkers int `yaml:"max_workers"`
	} `yaml:"query"`

	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
}

func LoadConfig(path string) (*Config, error) {
	// A .env file is optional; real environment variables win either way.
	_ = godotenv.Load()

	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/mmrag/config.yaml"),
			"/etc/mmrag/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	mergeWithEnv(&config)
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	mergeWithEnv(config)
	applyDefaults(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.LLM.Model == "" {
		config.LLM.Model = "gpt-4o"
	}
	if config.LLM.VisionModel == "" {
		config.LLM.VisionModel = config.LLM.Model
	}
	if config.LLM.EmbeddingModel == "" {
		config.LLM.EmbeddingModel = "text-embedding-3-small"
	}
	if config.LLM.MaxTokens == 0 {
		config.LLM.MaxTokens = 2000
	}
	if config.LLM.Temperature == 0 {
		config.LLM.Temperature = 0.7
	}
	if config.LLM.RateLimit == 0 {
		config.LLM.RateLimit = 2.0
	}
	if config.LLM.MaxRetries == 0 {
		config.LLM.MaxRetries = 3
	}

	if config.Database.TableName == "" {
		config.Database.TableName = "entries"
	}
	if config.Database.VectorDim == 0 {
		config.Database.VectorDim = 1536
	}
	if config.Database.BatchSize == 0 {
		config.Database.BatchSize = 100
	}

	if config.Extractor.OutputDir == "" {
		config.Extractor.OutputDir = "./extracted_docs"
	}

	if config.Processor.FlushSize == 0 {
		config.Processor.FlushSize = 500
	}
	if config.Processor.SentenceFlush == 0 {
		config.Processor.SentenceFlush = 200
	}
	if config.Processor.MinChunkLength == 0 {
		config.Processor.MinChunkLength = 50
	}

	if config.Query.TopK == 0 {
		config.Query.TopK = 5
	}
	if config.Query.MaxWorkers == 0 {
		config.Query.MaxWorkers = 4
	}

	if config.Server.Port == "" {
		config.Server.Port = "8080"
	}
}

func mergeWithEnv(config *Config) {
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		config.LLM.BaseURL = baseURL
	}
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		config.LLM.APIKey = apiKey
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}
	if dir := os.Getenv("EXTRACTED_DOCS_DIR"); dir != "" {
		config.Extractor.OutputDir = dir
	}
	if port := os.Getenv("PORT"); port != "" {
		config.Server.Port = port
	}
}
