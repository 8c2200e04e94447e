package processor

import (
	"strings"

	"github.com/xhad/mmrag/internal/models"
)

type ProcessorConfig struct {
	// FlushSize is the accumulator length that always forces a chunk flush.
	FlushSize int
	// SentenceFlush is the minimum accumulator length at which a trailing
	// period also forces a flush.
	SentenceFlush int
	// MinChunkLength drops degenerate fragments after aggregation.
	MinChunkLength int
}

// Processor aggregates extracted element text into bounded-size chunks.
//
// The thresholds are a best-effort balance between embedding-context richness
// and retrieval precision; chunk boundaries are not guaranteed to respect
// sentence or semantic boundaries.
type Processor struct {
	config ProcessorConfig
}

func NewWithConfig(config ProcessorConfig) Processor {
	if config.FlushSize == 0 {
		config.FlushSize = 500
	}
	if config.SentenceFlush == 0 {
		config.SentenceFlush = 200
	}
	if config.MinChunkLength == 0 {
		config.MinChunkLength = 50
	}
	return Processor{config: config}
}

// Aggregate merges the text of embeddable elements into chunks. Header and
// footer elements are boilerplate and excluded; table and image elements are
// indexed through the visual summarizer, not here.
func (p *Processor) Aggregate(elements []models.Element) []models.Chunk {
	var chunks []models.Chunk
	var acc strings.Builder
	var sources []int

	flush := func() {
		text := strings.TrimSpace(acc.String())
		acc.Reset()
		src := sources
		sources = nil
		if len(text) < p.config.MinChunkLength {
			return
		}
		chunks = append(chunks, models.Chunk{Text: text, SourceElements: src})
	}

	for i, el := range elements {
		if !embeddable(el.Kind) {
			continue
		}
		text := strings.TrimSpace(el.Text)
		if text == "" {
			continue
		}

		if acc.Len() > 0 {
			acc.WriteString(" ")
		}
		acc.WriteString(text)
		sources = append(sources, i)

		if acc.Len() > p.config.FlushSize {
			flush()
		} else if acc.Len() >= p.config.SentenceFlush && strings.HasSuffix(text, ".") {
			flush()
		}
	}
	flush()

	return chunks
}

// AggregateTexts applies the same algorithm to raw per-element strings.
func (p *Processor) AggregateTexts(texts []string) []models.Chunk {
	elements := make([]models.Element, len(texts))
	for i, t := range texts {
		elements[i] = models.Element{Kind: models.KindText, Text: t}
	}
	return p.Aggregate(elements)
}

func embeddable(kind models.ElementKind) bool {
	switch kind {
	case models.KindTitle, models.KindNarrativeText, models.KindText, models.KindListItem:
		return true
	default:
		return false
	}
}
