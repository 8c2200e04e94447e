package types

import (
	"context"
	"errors"
	"io"

	"github.com/xhad/mmrag/internal/models"
)

// ErrContentNotFound is returned by ContentStore implementations when a
// surrogate id has no stored payload.
var ErrContentNotFound = errors.New("content not found")

// Message roles understood by the generation service.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// MessagePart is one part of a generation message: plain text, or an inlined
// base64 image with a declared media type. Exactly one of Text / ImageB64 is
// set.
type MessagePart struct {
	Text     string
	ImageB64 string
	MIMEType string
}

// Message is a role-tagged sequence of parts sent to the generation service.
type Message struct {
	Role  string
	Parts []MessagePart
}

// TextMessage builds a single-part text message.
func TextMessage(role, text string) Message {
	return Message{Role: role, Parts: []MessagePart{{Text: text}}}
}

// Embedder turns text into vectors via an external embedding service.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator produces a textual answer from an ordered message set. The
// response is coerced to a canonical string at this boundary.
type Generator interface {
	Generate(ctx context.Context, messages []Message) (string, error)
}

// VisionSummarizer produces retrieval-oriented textual summaries for content
// that cannot be embedded directly.
type VisionSummarizer interface {
	SummarizeImage(ctx context.Context, imageB64, mimeType string) (string, error)
	SummarizeTable(ctx context.Context, table string) (string, error)
}

// Extractor turns a raw document into an ordered sequence of typed elements.
type Extractor interface {
	Extract(ctx context.Context, r io.Reader, name string) ([]models.Element, error)
}

// VectorIndex is the persistent embedding index, namespaced by product.
type VectorIndex interface {
	// Put embeds each entry's text and persists it under its product.
	Put(ctx context.Context, entries []models.IndexedEntry) error

	// Query returns the k nearest entries whose product matches. An unknown
	// product yields an empty result, not an error.
	Query(ctx context.Context, product, question string, k int) ([]models.IndexedEntry, error)

	// HasProduct reports whether any entry exists for the product.
	HasProduct(ctx context.Context, product string) (bool, error)

	// ListProducts returns every product that has at least one entry.
	ListProducts(ctx context.Context) ([]string, error)

	// ListDocuments returns the document names stored under a product.
	ListDocuments(ctx context.Context, product string) ([]string, error)
}

// ContentStore is the surrogate-id side table holding original payloads for
// indexed summaries. Its contents must live at least as long as the
// embeddings that reference them.
type ContentStore interface {
	PutContent(ctx context.Context, id string, kind models.MediaKind, payload string) error
	GetContent(ctx context.Context, id string) (string, models.MediaKind, error)
}

// Retriever resolves nearest-summary hits back to original content.
type Retriever interface {
	Index(ctx context.Context, rec models.SummaryRecord, meta models.Metadata) (string, error)
	Retrieve(ctx context.Context, product, question string, k int) ([]models.RetrievedItem, error)
}
