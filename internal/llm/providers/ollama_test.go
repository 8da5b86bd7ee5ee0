package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/haasonsaas/introspect/internal/llm"
)

func TestOllamaCompleteStreams(t *testing.T) {
	var got ollamaGenerateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		fmt.Fprintln(w, `{"response":"You keep ","done":false}`)
		fmt.Fprintln(w, `{"response":"showing up.","done":false}`)
		fmt.Fprintln(w, `{"response":"","done":true,"eval_count":7,"prompt_eval_count":42}`)
	}))
	defer server.Close()

	p := NewOllamaProvider(OllamaConfig{BaseURL: server.URL + "/", DefaultModel: "llama3.2"})
	text, err := llm.Collect(context.Background(), p, llm.NewRequest("", "be kind", "prompt"))
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if text != "You keep showing up." {
		t.Fatalf("text = %q", text)
	}
	if got.Model != "llama3.2" || got.System != "be kind" || !got.Stream {
		t.Fatalf("unexpected request: %+v", got)
	}
	if got.Options["num_predict"] != float64(300) || got.Options["top_p"] != 0.9 {
		t.Fatalf("unexpected options: %+v", got.Options)
	}
}

func TestOllamaUsageOnDone(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"response":"ok","done":true,"eval_count":3,"prompt_eval_count":9}`)
	}))
	defer server.Close()

	p := NewOllamaProvider(OllamaConfig{BaseURL: server.URL})
	chunks, err := p.Complete(context.Background(), llm.NewRequest("m", "", "p"))
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	var last *llm.Chunk
	for c := range chunks {
		last = c
	}
	if last == nil || !last.Done || last.InputTokens != 9 || last.OutputTokens != 3 {
		t.Fatalf("last chunk = %+v", last)
	}
}

func TestOllamaRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "loading model", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprintln(w, `{"response":"ready","done":true}`)
	}))
	defer server.Close()

	p := NewOllamaProvider(OllamaConfig{BaseURL: server.URL, RetryDelay: time.Millisecond})
	text, err := llm.Collect(context.Background(), p, llm.NewRequest("m", "", "p"))
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if text != "ready" || calls.Load() != 3 {
		t.Fatalf("text = %q calls = %d", text, calls.Load())
	}
}

func TestOllamaBadRequestNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad", http.StatusBadRequest)
	}))
	defer server.Close()

	p := NewOllamaProvider(OllamaConfig{BaseURL: server.URL, RetryDelay: time.Millisecond})
	_, err := p.Complete(context.Background(), llm.NewRequest("m", "", "p"))
	perr, ok := GetProviderError(err)
	if !ok || perr.Reason != ReasonInvalidRequest || perr.Status != http.StatusBadRequest {
		t.Fatalf("err = %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1", calls.Load())
	}
}

func TestOllamaStreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"error":"model crashed"}`)
	}))
	defer server.Close()

	p := NewOllamaProvider(OllamaConfig{BaseURL: server.URL})
	if _, err := llm.Collect(context.Background(), p, llm.NewRequest("m", "", "p")); err == nil {
		t.Fatal("expected stream error")
	}
}
