package extractor

import (
	"bytes"
	"encoding/base64"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/xhad/mmrag/internal/models"
)

// extractHTML walks the document in order and emits one element per
// structural node. Nodes nested inside header, footer or table containers are
// covered by their container's element and skipped individually.
func (e *Extractor) extractHTML(data []byte, name string) ([]models.Element, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, &ExtractionError{Name: name, Err: err}
	}

	var elements []models.Element

	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		elements = append(elements, models.Element{Kind: models.KindTitle, Text: title})
	}

	imageSeq := 0
	selector := "header, footer, h1, h2, h3, h4, h5, h6, p, li, table, img, pre"

	doc.Find("body").Find(selector).Each(func(_ int, sel *goquery.Selection) {
		tag := goquery.NodeName(sel)

		// Containers own their nested content.
		if tag != "header" && tag != "footer" && sel.ParentsFiltered("header, footer, table").Length() > 0 {
			return
		}

		switch tag {
		case "header":
			if text := cleanText(sel.Text()); text != "" {
				elements = append(elements, models.Element{Kind: models.KindHeader, Text: text})
			}
		case "footer":
			if text := cleanText(sel.Text()); text != "" {
				elements = append(elements, models.Element{Kind: models.KindFooter, Text: text})
			}
		case "h1", "h2", "h3", "h4", "h5", "h6":
			if text := cleanText(sel.Text()); text != "" {
				elements = append(elements, models.Element{Kind: models.KindTitle, Text: text})
			}
		case "p":
			if text := cleanText(sel.Text()); text != "" {
				elements = append(elements, models.Element{Kind: models.KindNarrativeText, Text: text})
			}
		case "li":
			if text := cleanText(sel.Text()); text != "" {
				elements = append(elements, models.Element{Kind: models.KindListItem, Text: text})
			}
		case "pre":
			if text := strings.TrimSpace(sel.Text()); text != "" {
				elements = append(elements, models.Element{Kind: models.KindText, Text: text})
			}
		case "table":
			if text := renderTable(sel); text != "" {
				elements = append(elements, models.Element{Kind: models.KindTable, Text: text})
			}
		case "img":
			el, ok := e.imageElement(sel, name, imageSeq)
			if ok {
				elements = append(elements, el)
				imageSeq++
			}
		}
	})

	if len(elements) == 0 {
		return nil, &ExtractionError{Name: name, Err: errNoContent}
	}
	return elements, nil
}

// renderTable flattens a table into pipe-separated rows so it has a textual
// form alongside its structural payload.
func renderTable(sel *goquery.Selection) string {
	var rows []string
	sel.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var cells []string
		tr.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, cleanText(cell.Text()))
		})
		if len(cells) > 0 {
			rows = append(rows, strings.Join(cells, " | "))
		}
	})
	return strings.Join(rows, "\n")
}

// imageElement decodes inline data-URI images and materializes them to the
// output directory. Remote image references carry no payload and are skipped.
func (e *Extractor) imageElement(sel *goquery.Selection, docName string, seq int) (models.Element, bool) {
	src, exists := sel.Attr("src")
	if !exists || !strings.HasPrefix(src, "data:image/") {
		return models.Element{}, false
	}

	rest := strings.TrimPrefix(src, "data:image/")
	semi := strings.Index(rest, ";base64,")
	if semi < 0 {
		return models.Element{}, false
	}
	format := rest[:semi]
	payload, err := base64.StdEncoding.DecodeString(rest[semi+len(";base64,"):])
	if err != nil || len(payload) == 0 {
		return models.Element{}, false
	}

	suffix := ".png"
	if format == "jpeg" || format == "jpg" {
		suffix = ".jpg"
	}

	path, err := e.materialize(docName, suffix, seq, payload)
	if err != nil {
		// Materialization is best effort; the payload still flows through.
		path = ""
	}

	return models.Element{
		Kind:    models.KindImage,
		Payload: payload,
		Path:    path,
	}, true
}

func cleanText(s string) string {
	return strings.TrimSpace(strings.Join(strings.Fields(s), " "))
}
