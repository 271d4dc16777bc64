package embedder

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"
)

func TestHash_Deterministic(t *testing.T) {
	e := NewHash(64)
	a, err := e.Embed(context.Background(), "the quick brown fox")
	if err != nil {
		t.Fatal(err)
	}
	b, _ := e.Embed(context.Background(), "the quick brown fox")
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("vectors differ at %d", i)
		}
	}
	c, _ := e.Embed(context.Background(), "completely different words")
	same := true
	for i := range a {
		if a[i] != c[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different texts produced identical vectors")
	}
}

func TestHash_UnitLength(t *testing.T) {
	v, err := NewHash(32).Embed(context.Background(), "some words to embed")
	if err != nil {
		t.Fatal(err)
	}
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if math.Abs(sum-1.0) > 1e-5 {
		t.Errorf("norm^2 = %f, want 1", sum)
	}
}

func TestHash_EmbedBatchOrder(t *testing.T) {
	e := NewHash(32)
	texts := []string{"one", "two", "three"}
	batch, err := e.EmbedBatch(context.Background(), texts)
	if err != nil {
		t.Fatal(err)
	}
	if len(batch) != 3 {
		t.Fatalf("len = %d", len(batch))
	}
	for i, text := range texts {
		single, _ := e.Embed(context.Background(), text)
		for j := range single {
			if batch[i][j] != single[j] {
				t.Fatalf("batch[%d] differs from single embed", i)
			}
		}
	}
}

// flaky fails a fixed number of times before succeeding.
type flaky struct {
	*Hash
	failures int
	calls    int
}

func (f *flaky) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("transient")
	}
	return f.Hash.EmbedBatch(ctx, texts)
}

func TestWithRetry_RecoversFromTransientFailure(t *testing.T) {
	f := &flaky{Hash: NewHash(16), failures: 2}
	r := WithRetry(f, 3, time.Millisecond)
	out, err := r.EmbedBatch(context.Background(), []string{"x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 || f.calls != 3 {
		t.Errorf("out len = %d, calls = %d", len(out), f.calls)
	}
}

func TestWithRetry_GivesUpAfterAttempts(t *testing.T) {
	f := &flaky{Hash: NewHash(16), failures: 10}
	r := WithRetry(f, 3, time.Millisecond)
	if _, err := r.EmbedBatch(context.Background(), []string{"x"}); err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if f.calls != 3 {
		t.Errorf("calls = %d, want 3", f.calls)
	}
}

func TestWithRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := &flaky{Hash: NewHash(16), failures: 10}
	r := WithRetry(f, 5, time.Millisecond)
	if _, err := r.EmbedBatch(ctx, []string{"x"}); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
