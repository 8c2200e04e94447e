package extractor

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/xhad/mmrag/internal/models"
)

var errNoContent = fmt.Errorf("no extractable content")

// extractPDF produces per-page narrative elements. The first heading-sized
// line of the first page is promoted to a title.
func (e *Extractor) extractPDF(data []byte, name string) (elements []models.Element, err error) {
	// The pdf reader panics on some malformed inputs; fold that into the
	// same failure mode as a parse error.
	defer func() {
		if r := recover(); r != nil {
			elements = nil
			err = &ExtractionError{Name: name, Err: fmt.Errorf("malformed pdf: %v", r)}
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &ExtractionError{Name: name, Err: fmt.Errorf("open pdf: %w", err)}
	}

	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, &ExtractionError{Name: name, Err: fmt.Errorf("extract page %d: %w", i, err)}
		}
		elements = append(elements, pageElements(text, i, len(elements) == 0)...)
	}

	if len(elements) == 0 {
		return nil, &ExtractionError{Name: name, Err: errNoContent}
	}
	return elements, nil
}

// pageElements splits one page's plain text into paragraph elements.
func pageElements(text string, page int, firstPage bool) []models.Element {
	var elements []models.Element

	for _, block := range strings.Split(text, "\n\n") {
		block = strings.TrimSpace(strings.Join(strings.Fields(block), " "))
		if block == "" {
			continue
		}
		kind := models.KindNarrativeText
		if firstPage && len(elements) == 0 && len(block) < 120 {
			kind = models.KindTitle
		}
		elements = append(elements, models.Element{
			Kind: kind,
			Text: block,
			Page: page,
		})
	}
	return elements
}
