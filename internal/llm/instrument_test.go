package llm

import (
	"context"
	"errors"
	"testing"
	"time"
)

type outcome struct {
	provider, model, status string
}

func recorder() (RecordFunc, <-chan outcome) {
	ch := make(chan outcome, 1)
	return func(provider, model, status string, _ float64) {
		ch <- outcome{provider, model, status}
	}, ch
}

func waitOutcome(t *testing.T, ch <-chan outcome) outcome {
	t.Helper()
	select {
	case o := <-ch:
		return o
	case <-time.After(2 * time.Second):
		t.Fatal("completion was not recorded")
		return outcome{}
	}
}

func TestInstrumentRecordsOutcome(t *testing.T) {
	tests := []struct {
		name     string
		provider *scriptedProvider
		want     string
	}{
		{"success", &scriptedProvider{chunks: []*Chunk{{Text: "ok"}, {Done: true}}}, "success"},
		{"stream error", &scriptedProvider{chunks: []*Chunk{{Error: errors.New("reset")}}}, "error"},
		{"start error", &scriptedProvider{err: errors.New("refused")}, "error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record, ch := recorder()
			p := Instrument(tt.provider, record)
			_, _ = Collect(context.Background(), p, NewRequest("small", "", "hi"))
			got := waitOutcome(t, ch)
			if got != (outcome{"scripted", "small", tt.want}) {
				t.Fatalf("recorded %+v", got)
			}
		})
	}
}

func TestInstrumentNil(t *testing.T) {
	if Instrument(nil, func(string, string, string, float64) {}) != nil {
		t.Fatal("nil provider should stay nil")
	}
	p := &scriptedProvider{}
	if Instrument(p, nil) != Provider(p) {
		t.Fatal("nil recorder should return the provider unchanged")
	}
}
