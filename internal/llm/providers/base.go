package providers

import (
	"context"
	"fmt"
	"time"
)

// DefaultMaxRetries matches the llm.max_retries config default.
const DefaultMaxRetries = 2

// BaseProvider carries the retry policy shared by the generation backends.
// An insight call runs under a short deadline and falls back to templates
// on failure, so retries give up as soon as the deadline can not cover the
// next wait.
type BaseProvider struct {
	name       string
	maxRetries int
	retryDelay time.Duration
}

// NewBaseProvider returns the policy for one backend. maxRetries counts
// retries after the first attempt; zero or less uses DefaultMaxRetries.
func NewBaseProvider(name string, maxRetries int, retryDelay time.Duration) BaseProvider {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	if retryDelay <= 0 {
		retryDelay = time.Second
	}
	return BaseProvider{
		name:       name,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
	}
}

// Name returns the backend identifier.
func (b *BaseProvider) Name() string {
	return b.name
}

// Retry runs op until it succeeds, returns an error retryable rejects, or
// the retries run out. The wait before retry n is n times the retry delay.
func (b *BaseProvider) Retry(ctx context.Context, retryable func(error) bool, op func() error) error {
	if op == nil {
		return nil
	}
	attempts := b.maxRetries + 1
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := op()
		if err == nil {
			return nil
		}
		if retryable == nil || !retryable(err) {
			return err
		}
		if attempt == attempts {
			return fmt.Errorf("%s: giving up after %d attempts: %w", b.name, attempt, err)
		}

		wait := b.retryDelay * time.Duration(attempt)
		if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < wait {
			return fmt.Errorf("%s: no time left to retry: %w", b.name, err)
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
