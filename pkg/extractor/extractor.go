package extractor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xhad/mmrag/internal/models"
)

// ExtractionError marks a document that could not be turned into elements.
// It is fatal to that document's indexing: the caller records the document
// with zero chunks instead of storing partial garbage.
type ExtractionError struct {
	Name string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed for %q: %v", e.Name, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

type ExtractorConfig struct {
	// OutputDir receives materialized copies of embedded images.
	OutputDir string
}

// Extractor turns raw documents into ordered, typed element sequences.
// Supported inputs: HTML, PDF, Markdown and plain text.
type Extractor struct {
	config ExtractorConfig
}

func NewWithConfig(config ExtractorConfig) (*Extractor, error) {
	if config.OutputDir == "" {
		config.OutputDir = "./extracted_docs"
	}
	if err := os.MkdirAll(config.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &Extractor{config: config}, nil
}

// Extract reads the whole document and dispatches on its extension.
func (e *Extractor) Extract(ctx context.Context, r io.Reader, name string) ([]models.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &ExtractionError{Name: name, Err: err}
	}
	if len(data) == 0 {
		return nil, &ExtractionError{Name: name, Err: fmt.Errorf("empty document")}
	}

	switch strings.ToLower(filepath.Ext(name)) {
	case ".html", ".htm":
		return e.extractHTML(data, name)
	case ".pdf":
		return e.extractPDF(data, name)
	case ".txt", ".md", ".markdown":
		return e.extractText(data, name)
	default:
		return nil, &ExtractionError{
			Name: name,
			Err:  fmt.Errorf("unsupported document type %q", filepath.Ext(name)),
		}
	}
}

// extractText handles plain text and markdown with line heuristics: heading
// markers become titles, bullet markers become list items, and blank-line
// separated paragraphs become narrative text.
func (e *Extractor) extractText(data []byte, name string) ([]models.Element, error) {
	var elements []models.Element
	var paragraph strings.Builder

	flushParagraph := func() {
		text := strings.TrimSpace(paragraph.String())
		paragraph.Reset()
		if text != "" {
			elements = append(elements, models.Element{
				Kind: models.KindNarrativeText,
				Text: text,
			})
		}
	}

	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			flushParagraph()
		case strings.HasPrefix(line, "#"):
			flushParagraph()
			elements = append(elements, models.Element{
				Kind: models.KindTitle,
				Text: strings.TrimSpace(strings.TrimLeft(line, "#")),
			})
		case strings.HasPrefix(line, "- "), strings.HasPrefix(line, "* "), strings.HasPrefix(line, "+ "):
			flushParagraph()
			elements = append(elements, models.Element{
				Kind: models.KindListItem,
				Text: strings.TrimSpace(line[2:]),
			})
		default:
			if paragraph.Len() > 0 {
				paragraph.WriteString(" ")
			}
			paragraph.WriteString(line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, &ExtractionError{Name: name, Err: err}
	}
	flushParagraph()

	if len(elements) == 0 {
		return nil, &ExtractionError{Name: name, Err: fmt.Errorf("no extractable content")}
	}
	return elements, nil
}

// materialize writes an image payload into the output directory and returns
// the file path the element should reference.
func (e *Extractor) materialize(docName, suffix string, seq int, payload []byte) (string, error) {
	base := strings.TrimSuffix(filepath.Base(docName), filepath.Ext(docName))
	path := filepath.Join(e.config.OutputDir, fmt.Sprintf("%s-figure-%d%s", base, seq, suffix))
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return "", fmt.Errorf("materialize image: %w", err)
	}
	return path, nil
}
