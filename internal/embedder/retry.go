package embedder

import (
	"context"
	"fmt"
	"time"
)

// Retrying decorates an Embedder with bounded retries and exponential
// backoff, for transient provider failures. After the final attempt the
// last error is returned; the pipeline then marks the affected chunks
// failed instead of aborting the run.
type Retrying struct {
	inner    Embedder
	attempts int
	base     time.Duration
}

// WithRetry wraps inner. attempts is the total number of tries; base is
// the first backoff delay, doubled after each failure.
func WithRetry(inner Embedder, attempts int, base time.Duration) *Retrying {
	if attempts < 1 {
		attempts = 1
	}
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	return &Retrying{inner: inner, attempts: attempts, base: base}
}

// Embed retries the wrapped call with backoff.
func (r *Retrying) Embed(ctx context.Context, text string) ([]float32, error) {
	var out []float32
	err := r.do(ctx, func() error {
		var err error
		out, err = r.inner.Embed(ctx, text)
		return err
	})
	return out, err
}

// EmbedBatch retries the wrapped call with backoff.
func (r *Retrying) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var out [][]float32
	err := r.do(ctx, func() error {
		var err error
		out, err = r.inner.EmbedBatch(ctx, texts)
		return err
	})
	return out, err
}

// ModelInfo delegates to the wrapped embedder.
func (r *Retrying) ModelInfo() string {
	return r.inner.ModelInfo()
}

func (r *Retrying) do(ctx context.Context, call func() error) error {
	delay := r.base
	var lastErr error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if lastErr = call(); lastErr == nil {
			return nil
		}
		if attempt == r.attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return fmt.Errorf("embedder: %d attempts failed: %w", r.attempts, lastErr)
}
