package engine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/xhad/mmrag/internal/models"
)

func TestSelectTier_Boundaries(t *testing.T) {
	tests := []struct {
		contextLen int
		want       string
	}{
		{0, tierConcise},
		{299, tierConcise},
		{300, tierFocused},
		{301, tierFocused},
		{999, tierFocused},
		{1000, tierFocused},
		{1001, tierComprehensive},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, selectTier(tt.contextLen), "contextLen=%d", tt.contextLen)
	}
}

func TestSplitContext_TaggedKinds(t *testing.T) {
	items := []models.RetrievedItem{
		{Content: "first passage", Kind: models.MediaText},
		{Content: "aGVsbG8=", Kind: models.MediaImagePNG},
		{Content: "a | b\n1 | 2", Kind: models.MediaTableText},
		{Content: "/9j/4payload", Kind: models.MediaImageJPEG},
	}

	text, images := splitContext(items)

	assert.Equal(t, "first passage\na | b\n1 | 2", text)
	assert.Len(t, images, 2)
	assert.Equal(t, "image/png", images[0].MIMEType)
	assert.Equal(t, "image/jpeg", images[1].MIMEType)
}

func TestSplitContext_SniffsUntaggedEntries(t *testing.T) {
	png := "iVBOR" + strings.Repeat("A", 1100)
	jpeg := "/9j/4" + strings.Repeat("B", 1100)
	marked := strings.Repeat("x", 400) + "base64" + strings.Repeat("x", 200)

	text, images := splitContext([]models.RetrievedItem{
		{Content: png},
		{Content: jpeg},
		{Content: marked},
		{Content: "just a paragraph of ordinary text"},
	})

	assert.Equal(t, "just a paragraph of ordinary text", text)
	assert.Len(t, images, 3)
	assert.Equal(t, "image/png", images[0].MIMEType)
	assert.Equal(t, "image/jpeg", images[1].MIMEType)
}

func TestSniffImage(t *testing.T) {
	assert.False(t, sniffImage("iVBORshort"))
	assert.False(t, sniffImage(strings.Repeat("a", 2000)))
	assert.False(t, sniffImage("base64 but short"))
	assert.True(t, sniffImage("iVBOR"+strings.Repeat("A", 1000)))
	assert.True(t, sniffImage("/9j/4"+strings.Repeat("A", 1000)))
	assert.True(t, sniffImage(strings.Repeat("z", 600)+"base64"))
}

func TestUserPrompt(t *testing.T) {
	prompt := userPrompt("some retrieved text", "what happened?")

	assert.Contains(t, prompt, "## Text:\nsome retrieved text")
	assert.Contains(t, prompt, "## Question:\nwhat happened?")
}
