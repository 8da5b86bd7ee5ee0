package llm

import (
	"context"
	"time"
)

// RecordFunc receives the outcome of one completion: status is "success"
// or "error".
type RecordFunc func(provider, model, status string, durationSeconds float64)

type instrumented struct {
	Provider
	record RecordFunc
}

// Instrument reports every completion of p to record. A nil provider or
// record func returns p unchanged.
func Instrument(p Provider, record RecordFunc) Provider {
	if p == nil || record == nil {
		return p
	}
	return &instrumented{Provider: p, record: record}
}

func (i *instrumented) Complete(ctx context.Context, req *Request) (<-chan *Chunk, error) {
	start := time.Now()
	model := ""
	if req != nil {
		model = req.Model
	}
	chunks, err := i.Provider.Complete(ctx, req)
	if err != nil {
		i.record(i.Name(), model, "error", time.Since(start).Seconds())
		return nil, err
	}

	out := make(chan *Chunk)
	go func() {
		defer close(out)
		status := "success"
		defer func() { i.record(i.Name(), model, status, time.Since(start).Seconds()) }()
		for chunk := range chunks {
			if chunk != nil && chunk.Error != nil {
				status = "error"
			}
			select {
			case out <- chunk:
			case <-ctx.Done():
				status = "error"
				// drain so the provider goroutine can exit
				for range chunks {
				}
				return
			}
		}
	}()
	return out, nil
}
