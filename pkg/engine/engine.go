package engine

import (
	"context"
	"strings"

	"github.com/xhad/mmrag/internal/models"
	"github.com/xhad/mmrag/internal/types"
)

// Aggregator merges extracted elements into embeddable chunks.
type Aggregator interface {
	Aggregate(elements []models.Element) []models.Chunk
}

type EngineConfig struct {
	// TopK is how many entries retrieval fetches per query.
	TopK int
	// MaxWorkers bounds concurrent visual summarization calls.
	MaxWorkers int
}

// Engine orchestrates the ingestion pipeline and the query state machine.
// It is stateless across calls; all state lives in the index.
type Engine struct {
	config     EngineConfig
	extractor  types.Extractor
	aggregator Aggregator
	summarizer types.VisionSummarizer
	generator  types.Generator
	index      types.VectorIndex
	retriever  types.Retriever
}

func New(
	config EngineConfig,
	extractor types.Extractor,
	aggregator Aggregator,
	summarizer types.VisionSummarizer,
	generator types.Generator,
	index types.VectorIndex,
	retriever types.Retriever,
) *Engine {
	if config.TopK <= 0 {
		config.TopK = 5
	}
	if config.MaxWorkers <= 0 {
		config.MaxWorkers = 4
	}
	return &Engine{
		config:     config,
		extractor:  extractor,
		aggregator: aggregator,
		summarizer: summarizer,
		generator:  generator,
		index:      index,
		retriever:  retriever,
	}
}

// Query answers a question from a collection's indexed content.
//
// Steps: validate the collection, retrieve top-k content, assemble the
// context (splitting text from image payloads), pick a verbosity tier from
// the text length, short-circuit to the fixed fallback on empty context, and
// otherwise call the generation model once.
func (e *Engine) Query(ctx context.Context, product, question string) (string, error) {
	if strings.TrimSpace(product) == "" {
		return "", ErrNoCollection
	}

	exists, err := e.index.HasProduct(ctx, product)
	if err != nil {
		return "", &RetrievalError{Err: err}
	}
	if !exists {
		known, err := e.index.ListProducts(ctx)
		if err != nil {
			return "", &RetrievalError{Err: err}
		}
		return "", &UnknownCollectionError{Product: product, Known: known}
	}

	items, err := e.retriever.Retrieve(ctx, product, question, e.config.TopK)
	if err != nil {
		return "", &RetrievalError{Err: err}
	}

	contextText, images := splitContext(items)
	if strings.TrimSpace(contextText) == "" {
		return FallbackAnswer, nil
	}

	userParts := []types.MessagePart{{Text: userPrompt(contextText, question)}}
	for _, img := range images {
		userParts = append(userParts, types.MessagePart{ImageB64: img.B64, MIMEType: img.MIMEType})
	}

	messages := []types.Message{
		types.TextMessage(types.RoleSystem, selectTier(len(contextText))),
		{Role: types.RoleUser, Parts: userParts},
	}

	answer, err := e.generator.Generate(ctx, messages)
	if err != nil {
		return "", &GenerationError{Err: err}
	}
	return answer, nil
}

// Products lists the known collections and their documents.
func (e *Engine) Products(ctx context.Context) (map[string][]string, error) {
	products, err := e.index.ListProducts(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[string][]string, len(products))
	for _, product := range products {
		docs, err := e.index.ListDocuments(ctx, product)
		if err != nil {
			return nil, err
		}
		out[product] = docs
	}
	return out, nil
}
