package providers

import (
	"context"
	"testing"
)

func TestNewDisabled(t *testing.T) {
	for _, name := range []string{"", "none", " NONE "} {
		p, err := New(context.Background(), Config{Provider: name})
		if err != nil || p != nil {
			t.Fatalf("New(%q) = %v, %v", name, p, err)
		}
	}
}

func TestNewOllama(t *testing.T) {
	p, err := New(context.Background(), Config{Provider: "ollama", Model: "llama3.2"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if p.Name() != "ollama" {
		t.Fatalf("Name() = %q", p.Name())
	}
}

func TestNewUnknown(t *testing.T) {
	if _, err := New(context.Background(), Config{Provider: "carrier-pigeon"}); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestNewMissingKeys(t *testing.T) {
	for _, name := range []string{"openai", "anthropic", "google"} {
		if _, err := New(context.Background(), Config{Provider: name}); err == nil {
			t.Errorf("New(%q) expected error without API key", name)
		}
	}
}
