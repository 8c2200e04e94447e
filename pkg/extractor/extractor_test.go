package extractor_test

import (
	"context"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/mmrag/internal/models"
	"github.com/xhad/mmrag/pkg/extractor"
)

// 1x1 transparent PNG.
const tinyPNG = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mP8z8BQDwAEhQGAhKmMIQAAAABJRU5ErkJggg=="

func newExtractor(t *testing.T) *extractor.Extractor {
	t.Helper()
	e, err := extractor.NewWithConfig(extractor.ExtractorConfig{OutputDir: t.TempDir()})
	require.NoError(t, err)
	return e
}

func kinds(elements []models.Element) []models.ElementKind {
	out := make([]models.ElementKind, len(elements))
	for i, el := range elements {
		out[i] = el.Kind
	}
	return out
}

func TestExtract_HTML(t *testing.T) {
	e := newExtractor(t)

	html := `<html>
<head><title>Quarterly Report</title></head>
<body>
<header>Acme Corp internal</header>
<h1>Results</h1>
<p>Revenue grew in the third quarter.</p>
<ul><li>Higher margins</li><li>Lower churn</li></ul>
<table><tr><th>Region</th><th>Revenue</th></tr><tr><td>EMEA</td><td>120</td></tr></table>
<img src="data:image/png;base64,` + tinyPNG + `">
<footer>Page 1 of 1</footer>
</body>
</html>`

	elements, err := e.Extract(context.Background(), strings.NewReader(html), "report.html")
	require.NoError(t, err)

	assert.Equal(t, []models.ElementKind{
		models.KindTitle, // <title>
		models.KindHeader,
		models.KindTitle, // <h1>
		models.KindNarrativeText,
		models.KindListItem,
		models.KindListItem,
		models.KindTable,
		models.KindImage,
		models.KindFooter,
	}, kinds(elements))

	assert.Equal(t, "Quarterly Report", elements[0].Text)
	assert.Equal(t, "Revenue grew in the third quarter.", elements[3].Text)
	assert.Equal(t, "Region | Revenue\nEMEA | 120", elements[6].Text)
}

func TestExtract_HTMLImageMaterialized(t *testing.T) {
	dir := t.TempDir()
	e, err := extractor.NewWithConfig(extractor.ExtractorConfig{OutputDir: dir})
	require.NoError(t, err)

	html := `<html><body><p>Figure follows.</p><img src="data:image/png;base64,` + tinyPNG + `"></body></html>`

	elements, err := e.Extract(context.Background(), strings.NewReader(html), "figures.html")
	require.NoError(t, err)
	require.Len(t, elements, 2)

	img := elements[1]
	require.Equal(t, models.KindImage, img.Kind)

	want, _ := base64.StdEncoding.DecodeString(tinyPNG)
	assert.Equal(t, want, img.Payload)

	require.NotEmpty(t, img.Path)
	assert.Equal(t, dir, filepath.Dir(img.Path))
	data, err := os.ReadFile(img.Path)
	require.NoError(t, err)
	assert.Equal(t, want, data)
}

func TestExtract_HTMLSkipsRemoteImages(t *testing.T) {
	e := newExtractor(t)

	html := `<html><body><p>Some narrative text here.</p><img src="https://example.com/x.png"></body></html>`

	elements, err := e.Extract(context.Background(), strings.NewReader(html), "page.html")
	require.NoError(t, err)
	assert.Equal(t, []models.ElementKind{models.KindNarrativeText}, kinds(elements))
}

func TestExtract_Markdown(t *testing.T) {
	e := newExtractor(t)

	md := `# Installation

Download the binary and place it on your PATH.
Run it once to generate a config.

- supports linux
- supports macos

## Usage

Invoke with a question.`

	elements, err := e.Extract(context.Background(), strings.NewReader(md), "readme.md")
	require.NoError(t, err)

	assert.Equal(t, []models.ElementKind{
		models.KindTitle,
		models.KindNarrativeText,
		models.KindListItem,
		models.KindListItem,
		models.KindTitle,
		models.KindNarrativeText,
	}, kinds(elements))

	assert.Equal(t, "Installation", elements[0].Text)
	assert.Equal(t, "Download the binary and place it on your PATH. Run it once to generate a config.", elements[1].Text)
	assert.Equal(t, "supports linux", elements[2].Text)
}

func TestExtract_UnsupportedType(t *testing.T) {
	e := newExtractor(t)

	_, err := e.Extract(context.Background(), strings.NewReader("binary"), "archive.zip")
	require.Error(t, err)

	var exErr *extractor.ExtractionError
	require.True(t, errors.As(err, &exErr))
	assert.Equal(t, "archive.zip", exErr.Name)
}

func TestExtract_EmptyDocument(t *testing.T) {
	e := newExtractor(t)

	_, err := e.Extract(context.Background(), strings.NewReader(""), "empty.txt")

	var exErr *extractor.ExtractionError
	require.True(t, errors.As(err, &exErr))
}

func TestExtract_MalformedPDF(t *testing.T) {
	e := newExtractor(t)

	_, err := e.Extract(context.Background(), strings.NewReader("not a pdf at all"), "broken.pdf")

	var exErr *extractor.ExtractionError
	require.True(t, errors.As(err, &exErr))
}

func TestExtract_WhitespaceOnlyText(t *testing.T) {
	e := newExtractor(t)

	_, err := e.Extract(context.Background(), strings.NewReader("   \n\n   \n"), "blank.txt")

	var exErr *extractor.ExtractionError
	require.True(t, errors.As(err, &exErr))
}
