package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"strings"
)

// Hash is a deterministic, offline embedder: each word contributes to a
// bucket chosen by its hash. It has no semantic power, but identical text
// always produces an identical vector, which is what the idempotence
// guarantees and the test suite need. It also lets the whole pipeline run
// without provider credentials.
type Hash struct {
	dim int
}

// NewHash creates a hash embedder with the given dimension.
func NewHash(dim int) *Hash {
	if dim <= 0 {
		dim = 256
	}
	return &Hash{dim: dim}
}

// Embed returns a deterministic unit vector for the text.
func (e *Hash) Embed(_ context.Context, text string) ([]float32, error) {
	v := make([]float32, e.dim)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := sha256.Sum256([]byte(word))
		idx := binary.LittleEndian.Uint32(h[:4]) % uint32(e.dim)
		sign := float32(1)
		if h[4]&1 == 1 {
			sign = -1
		}
		v[idx] += sign
	}
	l2normalize(v)
	return v, nil
}

// EmbedBatch embeds each text independently.
func (e *Hash) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

// ModelInfo identifies the embedder.
func (e *Hash) ModelInfo() string {
	return "hash-v1"
}
