package engine

import (
	"fmt"
	"strings"

	"github.com/xhad/mmrag/internal/models"
)

// FallbackAnswer is returned verbatim when retrieval produces no usable text
// context. The model is not called in that case.
const FallbackAnswer = "I don't know."

// The three verbosity tiers. Models tend to pad thin contexts with
// speculation, so the instruction gets stricter as retrieved context shrinks.
const (
	tierComprehensive = "You are a multi-modal assistant answering user queries using both text and images. " +
		"Substantial context has been retrieved for this question. Provide a comprehensive, detailed answer " +
		"grounded strictly in the supplied content."
	tierFocused = "You are a multi-modal assistant answering user queries using both text and images. " +
		"Provide a clear, focused answer grounded strictly in the supplied content."
	tierConcise = "You are a multi-modal assistant answering user queries using both text and images. " +
		"Only limited context has been retrieved. Answer concisely and do not speculate beyond the supplied content."
)

const userPromptFormat = `Answer the user's question based on the following retrieved content.

## Text:
%s

## Question:
%s`

// selectTier picks the system instruction from the text-context length.
// Boundaries: above 1000 characters is comprehensive, 300 through 1000 is
// focused, below 300 is concise.
func selectTier(contextLen int) string {
	switch {
	case contextLen > 1000:
		return tierComprehensive
	case contextLen >= 300:
		return tierFocused
	default:
		return tierConcise
	}
}

func userPrompt(contextText, question string) string {
	return fmt.Sprintf(userPromptFormat, contextText, question)
}

type imagePayload struct {
	B64      string
	MIMEType string
}

// splitContext separates retrieved items into a joined text context and a
// list of inline image payloads. Explicitly tagged kinds win; for untagged
// content the original byte-sniffing heuristics apply (documented
// best-effort, not guaranteed classification).
func splitContext(items []models.RetrievedItem) (string, []imagePayload) {
	var texts []string
	var images []imagePayload

	for _, item := range items {
		switch {
		case item.Kind.IsImage():
			images = append(images, imagePayload{B64: item.Content, MIMEType: item.Kind.MIMEType()})
		case item.Kind == "" && sniffImage(item.Content):
			images = append(images, imagePayload{B64: item.Content, MIMEType: sniffMIME(item.Content)})
		default:
			texts = append(texts, item.Content)
		}
	}

	return strings.Join(texts, "\n"), images
}

// sniffImage applies the legacy heuristics for entries stored without a
// media kind: long content starting with a known base64 image header, or
// base64-marked content over 500 characters.
func sniffImage(content string) bool {
	if len(content) > 1000 &&
		(strings.HasPrefix(content, "/9j/4") || strings.HasPrefix(content, "iVBOR")) {
		return true
	}
	if len(content) > 500 && strings.Contains(strings.ToLower(content), "base64") {
		return true
	}
	return false
}

func sniffMIME(content string) string {
	if strings.HasPrefix(content, "iVBOR") {
		return "image/png"
	}
	return "image/jpeg"
}
