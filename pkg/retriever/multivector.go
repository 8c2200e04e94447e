package retriever

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/xhad/mmrag/internal/models"
	"github.com/xhad/mmrag/internal/types"
)

// ErrInconsistentIndex marks an indexed surrogate id with no side-table
// entry. This is a consistency violation, never a silent empty return.
var ErrInconsistentIndex = errors.New("indexed surrogate id has no stored content")

// MultiVector embeds summaries but returns originals: each indexed summary
// carries a surrogate id that resolves, through the content store, to the
// payload the summary describes.
type MultiVector struct {
	index    types.VectorIndex
	contents types.ContentStore
}

func New(index types.VectorIndex, contents types.ContentStore) *MultiVector {
	return &MultiVector{index: index, contents: contents}
}

// Index stores the original payload under a surrogate id, then indexes the
// summary pointing at it. The payload is written first so every id reachable
// from the index has a side-table entry even if indexing fails midway.
func (r *MultiVector) Index(ctx context.Context, rec models.SummaryRecord, meta models.Metadata) (string, error) {
	id := rec.ID
	if id == "" {
		id = uuid.NewString()
	}
	if meta.ChunkID == "" {
		meta.ChunkID = id
	}

	if err := r.contents.PutContent(ctx, id, rec.Kind, rec.Original); err != nil {
		return "", fmt.Errorf("store original content: %w", err)
	}

	entry := models.IndexedEntry{
		Text:        rec.Summary,
		Kind:        rec.Kind,
		SurrogateID: id,
		Meta:        meta,
	}
	if err := r.index.Put(ctx, []models.IndexedEntry{entry}); err != nil {
		return "", fmt.Errorf("index summary: %w", err)
	}

	return id, nil
}

// Retrieve queries the k nearest entries for the product and resolves
// surrogate hits back to their original content. Direct entries (plain
// chunks with no surrogate) pass through as-is.
func (r *MultiVector) Retrieve(ctx context.Context, product, question string, k int) ([]models.RetrievedItem, error) {
	hits, err := r.index.Query(ctx, product, question, k)
	if err != nil {
		return nil, err
	}

	items := make([]models.RetrievedItem, 0, len(hits))
	for _, hit := range hits {
		if hit.SurrogateID == "" {
			items = append(items, models.RetrievedItem{
				Content: hit.Text,
				Kind:    hit.Kind,
				Meta:    hit.Meta,
			})
			continue
		}

		payload, kind, err := r.contents.GetContent(ctx, hit.SurrogateID)
		if errors.Is(err, types.ErrContentNotFound) {
			return nil, fmt.Errorf("surrogate %s in %s/%s: %w",
				hit.SurrogateID, hit.Meta.Product, hit.Meta.Document, ErrInconsistentIndex)
		}
		if err != nil {
			return nil, fmt.Errorf("resolve surrogate %s: %w", hit.SurrogateID, err)
		}

		items = append(items, models.RetrievedItem{
			Content: payload,
			Kind:    kind,
			Meta:    hit.Meta,
		})
	}

	return items, nil
}
