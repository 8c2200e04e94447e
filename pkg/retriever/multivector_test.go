package retriever_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/mmrag/internal/models"
	"github.com/xhad/mmrag/internal/types"
	"github.com/xhad/mmrag/pkg/retriever"
)

// fakeIndex ranks entries by naive term overlap with the question, filtered
// by product.
type fakeIndex struct {
	entries []models.IndexedEntry
	putErr  error
}

func (f *fakeIndex) Put(ctx context.Context, entries []models.IndexedEntry) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.entries = append(f.entries, entries...)
	return nil
}

func (f *fakeIndex) Query(ctx context.Context, product, question string, k int) ([]models.IndexedEntry, error) {
	var hits []models.IndexedEntry
	for _, entry := range f.entries {
		if entry.Meta.Product != product {
			continue
		}
		if overlaps(entry.Text, question) {
			hits = append(hits, entry)
		}
	}
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (f *fakeIndex) HasProduct(ctx context.Context, product string) (bool, error) {
	for _, entry := range f.entries {
		if entry.Meta.Product == product {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeIndex) ListProducts(ctx context.Context) ([]string, error) {
	seen := map[string]bool{}
	var products []string
	for _, entry := range f.entries {
		if !seen[entry.Meta.Product] {
			seen[entry.Meta.Product] = true
			products = append(products, entry.Meta.Product)
		}
	}
	return products, nil
}

func (f *fakeIndex) ListDocuments(ctx context.Context, product string) ([]string, error) {
	seen := map[string]bool{}
	var docs []string
	for _, entry := range f.entries {
		if entry.Meta.Product == product && !seen[entry.Meta.Document] {
			seen[entry.Meta.Document] = true
			docs = append(docs, entry.Meta.Document)
		}
	}
	return docs, nil
}

func overlaps(text, question string) bool {
	for _, word := range strings.Fields(strings.ToLower(question)) {
		if strings.Contains(strings.ToLower(text), word) {
			return true
		}
	}
	return false
}

type fakeContents struct {
	data map[string]models.RetrievedItem
}

func newFakeContents() *fakeContents {
	return &fakeContents{data: map[string]models.RetrievedItem{}}
}

func (f *fakeContents) PutContent(ctx context.Context, id string, kind models.MediaKind, payload string) error {
	f.data[id] = models.RetrievedItem{Content: payload, Kind: kind}
	return nil
}

func (f *fakeContents) GetContent(ctx context.Context, id string) (string, models.MediaKind, error) {
	item, ok := f.data[id]
	if !ok {
		return "", "", fmt.Errorf("id %s: %w", id, types.ErrContentNotFound)
	}
	return item.Content, item.Kind, nil
}

func TestMultiVector_RoundTripReturnsOriginal(t *testing.T) {
	index := &fakeIndex{}
	contents := newFakeContents()
	r := retriever.New(index, contents)

	rec := models.SummaryRecord{
		Summary:  "a chart showing revenue growth",
		Kind:     models.MediaImagePNG,
		Original: "iVBORw0KGgo-original-payload",
	}
	meta := models.Metadata{Product: "demo", Document: "report.html"}

	id, err := r.Index(context.Background(), rec, meta)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	items, err := r.Retrieve(context.Background(), "demo", "revenue growth", 5)
	require.NoError(t, err)
	require.Len(t, items, 1)

	// The original payload comes back, never the summary text.
	assert.Equal(t, rec.Original, items[0].Content)
	assert.NotEqual(t, rec.Summary, items[0].Content)
	assert.Equal(t, models.MediaImagePNG, items[0].Kind)
}

func TestMultiVector_DirectEntriesPassThrough(t *testing.T) {
	index := &fakeIndex{}
	require.NoError(t, index.Put(context.Background(), []models.IndexedEntry{{
		Text: "plain chunk about shipping",
		Kind: models.MediaText,
		Meta: models.Metadata{Product: "demo", Document: "faq.md", ChunkID: "c1"},
	}}))
	r := retriever.New(index, newFakeContents())

	items, err := r.Retrieve(context.Background(), "demo", "shipping", 5)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "plain chunk about shipping", items[0].Content)
}

func TestMultiVector_ProductIsolation(t *testing.T) {
	index := &fakeIndex{}
	contents := newFakeContents()
	r := retriever.New(index, contents)

	_, err := r.Index(context.Background(),
		models.SummaryRecord{Summary: "alpha summary", Kind: models.MediaTableText, Original: "alpha table"},
		models.Metadata{Product: "alpha", Document: "a.html"})
	require.NoError(t, err)
	_, err = r.Index(context.Background(),
		models.SummaryRecord{Summary: "beta summary", Kind: models.MediaTableText, Original: "beta table"},
		models.Metadata{Product: "beta", Document: "b.html"})
	require.NoError(t, err)

	items, err := r.Retrieve(context.Background(), "alpha", "summary", 5)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "alpha table", items[0].Content)
}

func TestMultiVector_MissingContentIsConsistencyViolation(t *testing.T) {
	index := &fakeIndex{}
	require.NoError(t, index.Put(context.Background(), []models.IndexedEntry{{
		Text:        "summary of a lost image",
		Kind:        models.MediaImageJPEG,
		SurrogateID: "orphan",
		Meta:        models.Metadata{Product: "demo", Document: "doc.pdf", ChunkID: "c9"},
	}}))
	r := retriever.New(index, newFakeContents())

	_, err := r.Retrieve(context.Background(), "demo", "lost image", 5)
	require.Error(t, err)
	assert.True(t, errors.Is(err, retriever.ErrInconsistentIndex))
}

func TestMultiVector_IndexWritesContentBeforeIndex(t *testing.T) {
	index := &fakeIndex{putErr: fmt.Errorf("store down")}
	contents := newFakeContents()
	r := retriever.New(index, contents)

	_, err := r.Index(context.Background(),
		models.SummaryRecord{ID: "fixed-id", Summary: "s", Kind: models.MediaTableText, Original: "o"},
		models.Metadata{Product: "demo", Document: "d"})
	require.Error(t, err)

	// The side-table write happened first, so the invariant holds even when
	// indexing fails.
	payload, _, err := contents.GetContent(context.Background(), "fixed-id")
	require.NoError(t, err)
	assert.Equal(t, "o", payload)
}
