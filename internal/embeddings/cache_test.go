package embeddings

import (
	"context"
	"errors"
	"testing"
)

type countingProvider struct {
	calls int
	fail  bool
}

func (p *countingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	p.calls++
	if p.fail {
		return nil, errors.New("boom")
	}
	return []float32{float32(len(text)), 1}, nil
}

func (p *countingProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := p.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (p *countingProvider) Name() string      { return "counting" }
func (p *countingProvider) Dimension() int    { return 2 }
func (p *countingProvider) MaxBatchSize() int { return 2 }

func TestCacheEmbed(t *testing.T) {
	inner := &countingProvider{}
	cache := NewCache(inner, 2)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := cache.Embed(ctx, "hello"); err != nil {
			t.Fatalf("Embed() error = %v", err)
		}
	}
	if inner.calls != 1 {
		t.Fatalf("inner calls = %d, want 1", inner.calls)
	}

	// Fill past capacity so "hello" is evicted.
	_, _ = cache.Embed(ctx, "a")
	_, _ = cache.Embed(ctx, "b")
	_, _ = cache.Embed(ctx, "hello")
	if inner.calls != 4 {
		t.Errorf("inner calls = %d, want 4 after eviction", inner.calls)
	}

	hits, misses := cache.(*Cache).Stats()
	if hits != 2 || misses != 4 {
		t.Errorf("stats = %d hits / %d misses, want 2 / 4", hits, misses)
	}
}

func TestCacheEmbedBatchOnlySendsMisses(t *testing.T) {
	inner := &countingProvider{}
	cache := NewCache(inner, 10)
	ctx := context.Background()

	if _, err := cache.Embed(ctx, "x"); err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	out, err := cache.EmbedBatch(ctx, []string{"x", "yy", "zzz"})
	if err != nil {
		t.Fatalf("EmbedBatch() error = %v", err)
	}
	if inner.calls != 3 {
		t.Errorf("inner calls = %d, want 3", inner.calls)
	}
	if out[2][0] != 3 {
		t.Errorf("order not preserved: %v", out)
	}
}

func TestCacheDoesNotStoreErrors(t *testing.T) {
	inner := &countingProvider{fail: true}
	cache := NewCache(inner, 10)
	if _, err := cache.Embed(context.Background(), "x"); err == nil {
		t.Fatal("expected error")
	}
	inner.fail = false
	if _, err := cache.Embed(context.Background(), "x"); err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if inner.calls != 2 {
		t.Errorf("inner calls = %d, want 2", inner.calls)
	}
}

func TestNewCacheDisabled(t *testing.T) {
	inner := &countingProvider{}
	if got := NewCache(inner, 0); got != Provider(inner) {
		t.Error("expected the provider itself when capacity is 0")
	}
}

func TestEmbedAllChunks(t *testing.T) {
	inner := &countingProvider{}
	out, err := EmbedAll(context.Background(), inner, []string{"a", "bb", "ccc", "dddd", "eeeee"})
	if err != nil {
		t.Fatalf("EmbedAll() error = %v", err)
	}
	if len(out) != 5 {
		t.Fatalf("len = %d, want 5", len(out))
	}
	if out[4][0] != 5 {
		t.Errorf("out[4] = %v", out[4])
	}
}
