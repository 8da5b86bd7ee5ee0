package analysis

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/haasonsaas/introspect/internal/llm"
)

type stubLLM struct {
	mu     sync.Mutex
	text   string
	err    error
	block  bool
	calls  int
	prompt string
	req    llm.Request
}

func (s *stubLLM) Name() string { return "stub" }

func (s *stubLLM) Complete(ctx context.Context, req *llm.Request) (<-chan *llm.Chunk, error) {
	s.mu.Lock()
	s.calls++
	s.prompt = req.Prompt
	s.req = *req
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	ch := make(chan *llm.Chunk, 2)
	if s.block {
		go func() {
			<-ctx.Done()
			ch <- &llm.Chunk{Error: ctx.Err()}
			close(ch)
		}()
		return ch, nil
	}
	ch <- &llm.Chunk{Text: s.text}
	ch <- &llm.Chunk{Done: true}
	close(ch)
	return ch, nil
}

func llmInput() InsightInput {
	in := baseInput()
	in.History = pastEntries(3)
	in.Similar = []SimilarEntry{similarAt(1, 3, "Painted the fence blue."), similarAt(2, 3, "Fixed the bike chain.")}
	return in
}

func TestLLMGeneratorUsesModel(t *testing.T) {
	stub := &stubLLM{text: "  Assistant: You keep returning to small projects.  "}
	g := NewLLMGenerator(LLMGeneratorConfig{Provider: stub, Model: "test-model"})

	ins, err := g.Generate(context.Background(), llmInput())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if ins.Source != SourceLLM {
		t.Fatalf("source = %s, want llm", ins.Source)
	}
	if ins.Text != "You keep returning to small projects." {
		t.Fatalf("text = %q", ins.Text)
	}
	if !strings.Contains(stub.prompt, "\"Today felt steady.\"") {
		t.Fatalf("prompt does not include the entry:\n%s", stub.prompt)
	}
}

func TestLLMGeneratorSampling(t *testing.T) {
	stub := &stubLLM{text: "ok"}
	g := NewLLMGenerator(LLMGeneratorConfig{Provider: stub, MaxTokens: 120, TopP: 0.5})
	if _, err := g.Generate(context.Background(), llmInput()); err != nil {
		t.Fatal(err)
	}
	if stub.req.MaxTokens != 120 || stub.req.TopP != 0.5 {
		t.Fatalf("sampling not applied: %+v", stub.req)
	}
	if stub.req.Temperature != llm.DefaultTemperature {
		t.Fatalf("temperature = %v, want default", stub.req.Temperature)
	}
}

func TestLLMGeneratorFallsBack(t *testing.T) {
	tests := []struct {
		name string
		stub *stubLLM
	}{
		{"start error", &stubLLM{err: errors.New("connection refused")}},
		{"empty output", &stubLLM{text: "   "}},
		{"echo only", &stubLLM{text: "Assistant:"}},
		{"timeout", &stubLLM{block: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewLLMGenerator(LLMGeneratorConfig{Provider: tt.stub, Timeout: 20 * time.Millisecond})
			in := llmInput()
			ins, err := g.Generate(context.Background(), in)
			if err != nil {
				t.Fatalf("generation failures must not surface: %v", err)
			}
			if ins.Source != SourceTemplate {
				t.Fatalf("source = %s, want template", ins.Source)
			}
			if ins.Text != render(in) {
				t.Fatalf("fallback text differs from template chain: %q", ins.Text)
			}
		})
	}
}

func TestLLMGeneratorWelcomesFirstEntry(t *testing.T) {
	stub := &stubLLM{text: "should not be used"}
	g := NewLLMGenerator(LLMGeneratorConfig{Provider: stub})
	ins, err := g.Generate(context.Background(), baseInput())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if ins.Text != WelcomeInsight || stub.calls != 0 {
		t.Fatalf("first entry: text %q, calls %d", ins.Text, stub.calls)
	}
}

func TestLLMGeneratorWithoutProvider(t *testing.T) {
	g := NewLLMGenerator(LLMGeneratorConfig{})
	ins, _ := g.Generate(context.Background(), llmInput())
	if ins.Source != SourceTemplate {
		t.Fatalf("source = %s, want template", ins.Source)
	}
}
