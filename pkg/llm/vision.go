package llm

import (
	"context"
	"fmt"

	"github.com/xhad/mmrag/internal/types"
)

// The two fixed summarization instructions. Summaries are written for
// retrieval: they are what gets embedded in place of the visual payload.
const (
	imagePrompt = "You are an assistant tasked with summarizing images for retrieval. " +
		"Describe the content of this image in detail."
	tablePrompt = "You are an assistant tasked with summarizing tables for retrieval. " +
		"Describe the data, key insights, and structure in detail."
)

// SummarizationError marks a visual item whose summary call failed. The item
// is omitted from the index; ingestion of the rest of the document continues.
type SummarizationError struct {
	Kind string
	Err  error
}

func (e *SummarizationError) Error() string {
	return fmt.Sprintf("summarization failed for %s: %v", e.Kind, e.Err)
}

func (e *SummarizationError) Unwrap() error { return e.Err }

// VisionSummarizer turns tables and images into retrieval-oriented text via
// a vision-capable generation call.
type VisionSummarizer struct {
	generator types.Generator
}

func NewVisionSummarizer(generator types.Generator) *VisionSummarizer {
	return &VisionSummarizer{generator: generator}
}

// SummarizeImage describes an inlined base64 image.
func (v *VisionSummarizer) SummarizeImage(ctx context.Context, imageB64, mimeType string) (string, error) {
	messages := []types.Message{
		{
			Role: types.RoleUser,
			Parts: []types.MessagePart{
				{Text: imagePrompt},
				{ImageB64: imageB64, MIMEType: mimeType},
			},
		},
	}

	summary, err := v.generator.Generate(ctx, messages)
	if err != nil {
		return "", &SummarizationError{Kind: "image", Err: err}
	}
	return summary, nil
}

// SummarizeTable describes a table given its textual form.
func (v *VisionSummarizer) SummarizeTable(ctx context.Context, table string) (string, error) {
	messages := []types.Message{
		{
			Role: types.RoleUser,
			Parts: []types.MessagePart{
				{Text: tablePrompt},
				{Text: table},
			},
		},
	}

	summary, err := v.generator.Generate(ctx, messages)
	if err != nil {
		return "", &SummarizationError{Kind: "table", Err: err}
	}
	return summary, nil
}
