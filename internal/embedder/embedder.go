// Package embedder abstracts the external text-to-vector provider.
package embedder

import "context"

// Embedder turns text into embedding vectors. Implementations must be
// safe for concurrent use; the ingestion pipeline issues batches from
// multiple workers.
type Embedder interface {
	// Embed returns the vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch returns one vector per input text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	// ModelInfo identifies the model, recorded in the artifact metadata.
	ModelInfo() string
}
