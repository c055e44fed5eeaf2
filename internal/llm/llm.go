package llm

import (
	"context"

	"github.com/raine/rapidlisting/internal/listing"
)

// Usage contains token usage and cost information.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
	CostUSD      float64
}

// Extractor reads visible text from a product photo.
type Extractor interface {
	// ExtractText returns the text found in the image. An empty string means
	// nothing legible was found and is not an error.
	ExtractText(ctx context.Context, imageData []byte, mimeType string) (string, error)
}

// Generator turns a listing prompt into the six platform texts.
type Generator interface {
	GenerateListings(ctx context.Context, prompt string) (*listing.Result, error)
}
