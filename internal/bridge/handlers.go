package bridge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/haasonsaas/introspect/internal/journal"
)

type createEntryParams struct {
	Content    string `json:"content"`
	MoodRating *int   `json:"mood_rating"`
}

type limitParams struct {
	Limit int `json:"limit"`
}

type getEntryParams struct {
	ID string `json:"id"`
}

func decodeParams(data json.RawMessage, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}

func (s *Server) handleCreateEntry(ctx context.Context, data json.RawMessage) (any, error) {
	var params createEntryParams
	if err := decodeParams(data, &params); err != nil {
		return nil, err
	}
	mood := journal.DefaultMood
	if params.MoodRating != nil {
		mood = *params.MoodRating
	}
	s.logger.InfoContext(ctx, "processing entry", "chars", len([]rune(params.Content)), "mood", mood)

	start := s.now()
	created, err := s.service.CreateEntry(ctx, params.Content, mood)
	if err != nil {
		s.metrics.RecordError("journal", "create_entry")
		return nil, err
	}
	s.metrics.RecordEntryCreated(created.InsightSource, s.now().Sub(start).Seconds())
	return created, nil
}

func (s *Server) handleGetEntries(ctx context.Context, data json.RawMessage) (any, error) {
	var params limitParams
	if err := decodeParams(data, &params); err != nil {
		return nil, err
	}
	entries, err := s.service.Store().Recent(ctx, params.Limit)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []*journal.Entry{}
	}
	return map[string]any{"entries": entries}, nil
}

func (s *Server) handleGetEntry(ctx context.Context, data json.RawMessage) (any, error) {
	var params getEntryParams
	if err := decodeParams(data, &params); err != nil {
		return nil, err
	}
	entry, err := s.service.Store().Get(ctx, params.ID)
	if err != nil {
		return nil, &entryError{id: params.ID, err: err}
	}
	return entry, nil
}

func (s *Server) handleGetStats(ctx context.Context, _ json.RawMessage) (any, error) {
	return s.service.Store().Stats(ctx)
}

func (s *Server) handleBackfill(ctx context.Context, data json.RawMessage) (any, error) {
	var params limitParams
	if err := decodeParams(data, &params); err != nil {
		return nil, err
	}
	report, err := s.service.Backfill(ctx, params.Limit)
	s.metrics.RecordBackfill(report.Analyzed, report.Failed, report.Skipped)
	if err != nil {
		return nil, err
	}
	return report, nil
}

func (s *Server) handlePing(context.Context, json.RawMessage) (any, error) {
	return map[string]any{
		"pong":      true,
		"version":   s.version,
		"timestamp": s.now().UnixMilli(),
	}, nil
}
