package providers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestErrorReasonIsRetryable(t *testing.T) {
	tests := []struct {
		reason   ErrorReason
		expected bool
	}{
		{ReasonRateLimit, true},
		{ReasonTimeout, true},
		{ReasonServerError, true},
		{ReasonBilling, false},
		{ReasonAuth, false},
		{ReasonInvalidRequest, false},
		{ReasonModelUnavailable, false},
		{ReasonContentFilter, false},
		{ReasonUnknown, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.reason), func(t *testing.T) {
			if got := tt.reason.IsRetryable(); got != tt.expected {
				t.Errorf("ErrorReason(%q).IsRetryable() = %v, want %v", tt.reason, got, tt.expected)
			}
		})
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorReason
	}{
		{"nil error", nil, ReasonUnknown},
		{"timeout", errors.New("request timeout"), ReasonTimeout},
		{"deadline exceeded", errors.New("context deadline exceeded"), ReasonTimeout},
		{"rate limit", errors.New("rate limit exceeded"), ReasonRateLimit},
		{"429 status", errors.New("HTTP 429"), ReasonRateLimit},
		{"throttled", errors.New("ThrottlingException: slow down"), ReasonRateLimit},
		{"unauthorized", errors.New("unauthorized"), ReasonAuth},
		{"quota exceeded", errors.New("quota exceeded"), ReasonBilling},
		{"content blocked", errors.New("content blocked by safety"), ReasonContentFilter},
		{"model not found", errors.New("model not found"), ReasonModelUnavailable},
		{"server error", errors.New("internal server error"), ReasonServerError},
		{"500 status", errors.New("HTTP 500"), ReasonServerError},
		{"unknown", errors.New("something went wrong"), ReasonUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyError(tt.err); got != tt.expected {
				t.Errorf("ClassifyError(%v) = %q, want %q", tt.err, got, tt.expected)
			}
		})
	}
}

func TestProviderErrorWithStatus(t *testing.T) {
	err := NewProviderError("ollama", "llama3", errors.New("boom")).WithStatus(http.StatusTooManyRequests)
	if err.Reason != ReasonRateLimit {
		t.Fatalf("Reason = %q, want rate_limit", err.Reason)
	}
	if !IsRetryable(err) {
		t.Fatal("expected rate limit to be retryable")
	}

	err = NewProviderError("ollama", "llama3", errors.New("boom")).WithStatus(http.StatusUnauthorized)
	if err.Reason != ReasonAuth || IsRetryable(err) {
		t.Fatalf("unexpected classification: %+v", err)
	}
}

func TestProviderErrorWithCode(t *testing.T) {
	err := NewProviderError("bedrock", "m", errors.New("boom")).WithCode("ThrottlingException")
	if err.Reason != ReasonRateLimit {
		t.Fatalf("Reason = %q, want rate_limit", err.Reason)
	}
	err = NewProviderError("bedrock", "m", errors.New("boom")).WithCode("something_new")
	if err.Code != "something_new" || err.Reason != ReasonUnknown {
		t.Fatalf("unexpected: %+v", err)
	}
}

func TestProviderErrorUnwrapAndString(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewProviderError("openai", "gpt-4o-mini", cause).WithStatus(503)
	wrapped := fmt.Errorf("generate: %w", err)

	if !errors.Is(wrapped, cause) {
		t.Fatal("expected errors.Is to reach the cause")
	}
	got, ok := GetProviderError(wrapped)
	if !ok || got.Provider != "openai" {
		t.Fatalf("GetProviderError() = %v, %v", got, ok)
	}
	want := "[server_error] openai model=gpt-4o-mini status=503 connection refused"
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestIsRetryableRawErrors(t *testing.T) {
	if IsRetryable(nil) {
		t.Fatal("nil should not be retryable")
	}
	if !IsRetryable(errors.New("503 service unavailable")) {
		t.Fatal("expected 503 to be retryable")
	}
	if IsRetryable(errors.New("invalid api key")) {
		t.Fatal("auth errors should not be retryable")
	}
}
