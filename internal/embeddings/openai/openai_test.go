package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error without api key")
	}
}

func TestDimension(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want int
	}{
		{name: "default model", cfg: Config{APIKey: "k"}, want: 1536},
		{name: "large", cfg: Config{APIKey: "k", Model: "text-embedding-3-large"}, want: 3072},
		{name: "override", cfg: Config{APIKey: "k", Dimension: 384}, want: 384},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(tt.cfg)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if got := p.Dimension(); got != tt.want {
				t.Errorf("Dimension() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestEmbedBatchOrdersByIndex(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("path = %q, want /embeddings", r.URL.Path)
		}
		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Input) != 2 {
			t.Fatalf("inputs = %d, want 2", len(req.Input))
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"model":  req.Model,
			"data": []map[string]any{
				{"object": "embedding", "index": 1, "embedding": []float32{0, 1}},
				{"object": "embedding", "index": 0, "embedding": []float32{1, 0}},
			},
		})
	}))
	defer server.Close()

	p, err := New(Config{APIKey: "test", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	out, err := p.EmbedBatch(context.Background(), []string{"first", "second"})
	if err != nil {
		t.Fatalf("EmbedBatch() error = %v", err)
	}
	if out[0][0] != 1 || out[1][1] != 1 {
		t.Errorf("unexpected order: %v", out)
	}
}

func TestEmbedBatchEmpty(t *testing.T) {
	p, _ := New(Config{APIKey: "k"})
	out, err := p.EmbedBatch(context.Background(), nil)
	if err != nil || out != nil {
		t.Fatalf("EmbedBatch(nil) = %v, %v", out, err)
	}
}
