package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/xhad/mmrag/internal/models"
	cfgPkg "github.com/xhad/mmrag/pkg/config"
	"github.com/xhad/mmrag/pkg/engine"
	"github.com/xhad/mmrag/pkg/extractor"
	"github.com/xhad/mmrag/pkg/llm"
	"github.com/xhad/mmrag/pkg/processor"
	"github.com/xhad/mmrag/pkg/retriever"
	"github.com/xhad/mmrag/pkg/store"
	"github.com/xhad/mmrag/server"
)

type flags struct {
	configPath string
	serve      bool
	ingestPath string
	product    string
}

func main() {
	var f flags
	flag.StringVar(&f.configPath, "config", "", "Path to config file")
	flag.BoolVar(&f.serve, "serve", false, "Run the HTTP API server")
	flag.StringVar(&f.ingestPath, "ingest", "", "File or directory to ingest before starting")
	flag.StringVar(&f.product, "product", "", "Collection to ingest into / query against")
	flag.Parse()

	if err := run(f); err != nil {
		log.Fatal(err)
	}
}

func run(f flags) error {
	cfg, err := cfgPkg.LoadConfig(f.configPath)
	if err != nil {
		return err
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			color.Red("config: %v", e)
		}
		return fmt.Errorf("invalid configuration")
	}

	ctx := context.Background()

	eng, vectorStore, err := buildEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer vectorStore.Close()

	if f.ingestPath != "" {
		if err := ingestPath(ctx, eng, f.ingestPath, f.product); err != nil {
			return err
		}
	}

	if f.serve {
		return server.New(eng).Run(cfg.Server.Port)
	}

	return askLoop(ctx, eng, f.product)
}

func buildEngine(ctx context.Context, cfg *cfgPkg.Config) (*engine.Engine, *store.VectorStore, error) {
	embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Model:      cfg.LLM.EmbeddingModel,
		APIKey:     cfg.LLM.APIKey,
		BaseURL:    cfg.LLM.BaseURL,
		RateLimit:  cfg.LLM.RateLimit,
		MaxRetries: cfg.LLM.MaxRetries,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	chatEngine, err := llm.NewWithConfig(llm.ChatConfig{
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		RateLimit:   cfg.LLM.RateLimit,
		MaxRetries:  cfg.LLM.MaxRetries,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize chat engine: %w", err)
	}

	visionEngine := chatEngine
	if cfg.LLM.VisionModel != cfg.LLM.Model {
		visionEngine, err = llm.NewWithConfig(llm.ChatConfig{
			Model:       cfg.LLM.VisionModel,
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
			APIKey:      cfg.LLM.APIKey,
			BaseURL:     cfg.LLM.BaseURL,
			RateLimit:   cfg.LLM.RateLimit,
			MaxRetries:  cfg.LLM.MaxRetries,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize vision engine: %w", err)
		}
	}

	vectorStore, err := store.NewWithConfig(ctx, store.VectorStoreConfig{
		ConnString:  cfg.Database.URL,
		TableName:   cfg.Database.TableName,
		VectorDim:   cfg.Database.VectorDim,
		SearchLimit: cfg.Query.TopK,
	}, embedder)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize vector store: %w", err)
	}

	ext, err := extractor.NewWithConfig(extractor.ExtractorConfig{
		OutputDir: cfg.Extractor.OutputDir,
	})
	if err != nil {
		vectorStore.Close()
		return nil, nil, fmt.Errorf("failed to initialize extractor: %w", err)
	}

	proc := processor.NewWithConfig(processor.ProcessorConfig{
		FlushSize:      cfg.Processor.FlushSize,
		SentenceFlush:  cfg.Processor.SentenceFlush,
		MinChunkLength: cfg.Processor.MinChunkLength,
	})

	eng := engine.New(
		engine.EngineConfig{TopK: cfg.Query.TopK, MaxWorkers: cfg.Query.MaxWorkers},
		ext,
		&proc,
		llm.NewVisionSummarizer(visionEngine),
		chatEngine,
		vectorStore,
		retriever.New(vectorStore, vectorStore),
	)
	return eng, vectorStore, nil
}

func ingestPath(ctx context.Context, eng *engine.Engine, path, product string) error {
	if product == "" {
		return fmt.Errorf("-product is required for ingestion")
	}

	files, err := collectFiles(path)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no ingestable files under %s", path)
	}

	bar := getProgressBar(len(files), " Ingesting documents")
	total := 0
	for _, file := range files {
		f, err := os.Open(file)
		if err != nil {
			color.Red("Failed to open %s: %v\n", file, err)
			bar.Add(1)
			continue
		}

		result, err := eng.Ingest(ctx, engine.IngestRequest{
			Product:      product,
			DocumentName: filepath.Base(file),
			Reader:       f,
		})
		f.Close()
		if err != nil {
			color.Red("Failed to ingest %s: %v\n", file, err)
			bar.Add(1)
			continue
		}

		total += result.ChunksStored
		if result.Status != models.StatusIndexed {
			color.Yellow("%s: %s (%d chunks)\n", result.DocumentName, result.Status, result.ChunksStored)
		}
		bar.Add(1)
	}
	bar.Finish()
	color.Green("✓ Stored %d chunks in collection %q\n", total, product)
	return nil
}

func collectFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".pdf", ".html", ".htm", ".txt", ".md", ".markdown":
			files = append(files, filepath.Join(path, entry.Name()))
		}
	}
	return files, nil
}

func askLoop(ctx context.Context, eng *engine.Engine, product string) error {
	if product == "" {
		return fmt.Errorf("-product is required for the ask loop")
	}

	color.Cyan("\nAsk questions about collection %q (type 'exit' to quit)", product)

	scanner := bufio.NewScanner(os.Stdin)
	userPrompt := color.New(color.FgGreen).PrintfFunc()
	assistantPrompt := color.New(color.FgCyan).PrintfFunc()

	for {
		userPrompt("\nYou: ")
		if !scanner.Scan() {
			break
		}

		question := strings.TrimSpace(scanner.Text())
		if strings.ToLower(question) == "exit" {
			break
		}
		if question == "" {
			continue
		}

		spinner := getSpinner(" Thinking...")
		answer, err := eng.Query(ctx, product, question)
		spinner.Finish()

		if err != nil {
			var unknown *engine.UnknownCollectionError
			if errors.As(err, &unknown) {
				color.Red("%v\n", unknown)
				continue
			}
			color.Red("Error: %v\n", err)
			continue
		}

		assistantPrompt("\nAssistant: %s\n", answer)
	}

	return nil
}

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("docs"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func getSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}
