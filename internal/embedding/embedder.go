package embedding

import "context"

// Embedder converts free text into a numeric vector representation in a shared
// vector space. A changed text requires a new vector, never an in-place update.
type Embedder interface {
	Name() string
	// Dimension reports the vector dimensionality, 0 until the first embed.
	Dimension() int
	Embed(ctx context.Context, text string) ([]float64, error)
	// EmbedMany embeds a batch of texts, preserving input order.
	EmbedMany(ctx context.Context, texts []string) ([][]float64, error)
}
