package embed

import (
	"context"
)

// Embedder converts text into a fixed-dimension dense vector. Implementations
// must be deterministic for identical input and keep the dimension fixed for
// the lifetime of the process.
type Embedder interface {
	// Embed returns the vector representation of text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the fixed vector size produced by this embedder.
	Dimensions() int
}
