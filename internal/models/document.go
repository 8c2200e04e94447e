package models

// ElementKind identifies the structural role of an extracted element.
type ElementKind int

const (
	KindTitle ElementKind = iota
	KindNarrativeText
	KindText
	KindListItem
	KindTable
	KindImage
	KindHeader
	KindFooter
)

func (k ElementKind) String() string {
	switch k {
	case KindTitle:
		return "Title"
	case KindNarrativeText:
		return "NarrativeText"
	case KindText:
		return "Text"
	case KindListItem:
		return "ListItem"
	case KindTable:
		return "Table"
	case KindImage:
		return "Image"
	case KindHeader:
		return "Header"
	case KindFooter:
		return "Footer"
	default:
		return "Unknown"
	}
}

// IsVisual reports whether the element carries a payload that cannot be
// embedded directly and must go through the visual summarizer.
func (k ElementKind) IsVisual() bool {
	return k == KindTable || k == KindImage
}

// Element is a single unit extracted from a source document. Elements are
// immutable once produced by the extractor.
type Element struct {
	Kind ElementKind
	// Text holds the textual content for text-like kinds, or a rendered
	// textual form for tables.
	Text string
	// Payload holds raw bytes for Image elements.
	Payload []byte
	// Path points at a materialized copy of the payload on disk, when the
	// extractor wrote one.
	Path string
	// Page is the 1-based source page, or 0 when the format has no pages.
	Page int
}

// Chunk is an aggregated text unit ready for embedding.
type Chunk struct {
	Text string
	// SourceElements are indexes into the element sequence the chunk was
	// built from.
	SourceElements []int
}

// MediaKind tags stored content so readers never have to sniff payload bytes.
type MediaKind string

const (
	MediaText      MediaKind = "text"
	MediaTableText MediaKind = "table"
	MediaImagePNG  MediaKind = "image/png"
	MediaImageJPEG MediaKind = "image/jpeg"
)

// IsImage reports whether the kind is an inlined base64 image payload.
func (m MediaKind) IsImage() bool {
	return m == MediaImagePNG || m == MediaImageJPEG
}

// MIMEType returns the media type used when inlining the payload into a
// generation message.
func (m MediaKind) MIMEType() string {
	switch m {
	case MediaImagePNG:
		return "image/png"
	case MediaImageJPEG:
		return "image/jpeg"
	default:
		return "text/plain"
	}
}

// SummaryRecord pairs a generated textual summary with the original non-text
// content it describes. ID is the surrogate key joining the summary's
// embedding to the original payload.
type SummaryRecord struct {
	ID       string
	Summary  string
	Kind     MediaKind
	Original string // base64 image data, or the table's textual form
}

// Metadata identifies an indexed entry within a collection.
type Metadata struct {
	Product  string `json:"product"`
	Document string `json:"document"`
	ChunkID  string `json:"chunk_id"`
	Seq      int    `json:"seq"`
}

// IndexedEntry is what the store persists: the text that gets embedded
// (a chunk or a summary), its media kind, and its metadata. SurrogateID is
// set when the embedded text is a summary standing in for other content.
type IndexedEntry struct {
	Text        string
	Kind        MediaKind
	SurrogateID string
	Meta        Metadata
}

// RetrievedItem is a retrieval hit after surrogate resolution: the original
// content, not the summary that matched.
type RetrievedItem struct {
	Content string
	Kind    MediaKind
	Meta    Metadata
}

// Ingestion statuses surfaced at the boundary.
const (
	StatusIndexed          = "indexed"
	StatusPartial          = "partial"
	StatusStoredNotIndexed = "stored_not_indexed"
)

// IngestResult is the boundary data returned for one document ingestion.
type IngestResult struct {
	Collection   string `json:"collection"`
	DocumentName string `json:"document_name"`
	ChunksStored int    `json:"chunks_stored"`
	Status       string `json:"status"`
}
