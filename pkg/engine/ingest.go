package engine

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/xhad/mmrag/internal/models"
	"github.com/xhad/mmrag/pkg/extractor"
)

// IngestRequest is one document bound for one collection.
type IngestRequest struct {
	Product      string
	DocumentName string
	Reader       io.Reader
}

// Ingest runs the ingestion pipeline for a single document: extract typed
// elements, aggregate text into chunks, summarize visual elements in
// parallel, and index everything under the collection.
//
// One document is the unit of retryable work. Extraction and index-write
// failures are converted into a degraded result (document recorded, status
// stored_not_indexed) rather than propagated; a skipped visual item yields
// status partial. Only caller-cancellation and validation errors come back
// as errors.
func (e *Engine) Ingest(ctx context.Context, req IngestRequest) (models.IngestResult, error) {
	result := models.IngestResult{
		Collection:   req.Product,
		DocumentName: req.DocumentName,
		Status:       models.StatusStoredNotIndexed,
	}

	if strings.TrimSpace(req.Product) == "" {
		return result, ErrNoCollection
	}
	if strings.TrimSpace(req.DocumentName) == "" {
		return result, fmt.Errorf("no document name supplied")
	}

	elements, err := e.extractor.Extract(ctx, req.Reader, req.DocumentName)
	if err != nil {
		var exErr *extractor.ExtractionError
		if errors.As(err, &exErr) {
			// Degraded mode: the document record survives with zero chunks.
			log.Printf("extraction failed for %s/%s: %v", req.Product, req.DocumentName, err)
			return result, nil
		}
		return result, err
	}

	chunks := e.aggregator.Aggregate(elements)
	summaries, skipped := e.summarizeVisuals(ctx, elements)

	entries := make([]models.IndexedEntry, 0, len(chunks))
	for i, chunk := range chunks {
		entries = append(entries, models.IndexedEntry{
			Text: chunk.Text,
			Kind: models.MediaText,
			Meta: models.Metadata{
				Product:  req.Product,
				Document: req.DocumentName,
				ChunkID:  uuid.NewString(),
				Seq:      i,
			},
		})
	}

	stored := 0
	if len(entries) > 0 {
		if err := e.index.Put(ctx, entries); err != nil {
			log.Printf("%v", &IndexWriteError{Err: err})
			return result, nil
		}
		stored += len(entries)
	}

	indexFailed := false
	for i, rec := range summaries {
		meta := models.Metadata{
			Product:  req.Product,
			Document: req.DocumentName,
			Seq:      len(entries) + i,
		}
		if _, err := e.retriever.Index(ctx, rec, meta); err != nil {
			log.Printf("%v", &IndexWriteError{Err: err})
			indexFailed = true
			continue
		}
		stored++
	}

	result.ChunksStored = stored
	switch {
	case stored == 0:
		result.Status = models.StatusStoredNotIndexed
	case skipped > 0 || indexFailed:
		result.Status = models.StatusPartial
	default:
		result.Status = models.StatusIndexed
	}
	return result, nil
}

// summarizeVisuals runs the summarization calls for table and image elements
// with bounded parallelism. Failed items are skipped, not fatal; the skip
// count feeds the partial status.
func (e *Engine) summarizeVisuals(ctx context.Context, elements []models.Element) ([]models.SummaryRecord, int) {
	var visuals []models.Element
	for _, el := range elements {
		if el.Kind.IsVisual() {
			visuals = append(visuals, el)
		}
	}
	if len(visuals) == 0 {
		return nil, 0
	}

	type slot struct {
		rec models.SummaryRecord
		ok  bool
	}
	results := make([]slot, len(visuals))

	var wg sync.WaitGroup
	sem := make(chan struct{}, e.config.MaxWorkers)

	for i, el := range visuals {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, el models.Element) {
			defer wg.Done()
			defer func() { <-sem }()

			rec, err := e.summarizeElement(ctx, el)
			if err != nil {
				log.Printf("visual item skipped: %v", err)
				return
			}
			results[i] = slot{rec: rec, ok: true}
		}(i, el)
	}
	wg.Wait()

	var records []models.SummaryRecord
	skipped := 0
	for _, r := range results {
		if !r.ok {
			skipped++
			continue
		}
		records = append(records, r.rec)
	}
	return records, skipped
}

func (e *Engine) summarizeElement(ctx context.Context, el models.Element) (models.SummaryRecord, error) {
	switch el.Kind {
	case models.KindTable:
		if strings.TrimSpace(el.Text) == "" {
			return models.SummaryRecord{}, fmt.Errorf("table element has no content")
		}
		summary, err := e.summarizer.SummarizeTable(ctx, el.Text)
		if err != nil {
			return models.SummaryRecord{}, err
		}
		return models.SummaryRecord{
			Summary:  summary,
			Kind:     models.MediaTableText,
			Original: el.Text,
		}, nil

	case models.KindImage:
		if len(el.Payload) == 0 {
			return models.SummaryRecord{}, fmt.Errorf("image element has no payload")
		}
		kind := imageKind(el.Payload)
		b64 := base64.StdEncoding.EncodeToString(el.Payload)
		summary, err := e.summarizer.SummarizeImage(ctx, b64, kind.MIMEType())
		if err != nil {
			return models.SummaryRecord{}, err
		}
		return models.SummaryRecord{
			Summary:  summary,
			Kind:     kind,
			Original: b64,
		}, nil

	default:
		return models.SummaryRecord{}, fmt.Errorf("element kind %s is not visual", el.Kind)
	}
}

func imageKind(payload []byte) models.MediaKind {
	if http.DetectContentType(payload) == "image/png" {
		return models.MediaImagePNG
	}
	return models.MediaImageJPEG
}
