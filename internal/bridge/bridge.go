// Package bridge serves the journal over newline-delimited JSON on a pair of
// streams, normally the stdin and stdout of a child process spawned by a
// desktop shell.
//
// The process announces itself with {"type":"ready"}. Each request line is
//
//	{"command": "create_entry", "data": {...}, "requestId": 1}
//
// and is answered by exactly one line, either
//
//	{"type": "response", "data": {...}, "requestId": 1}
//	{"type": "error", "error": "...", "requestId": 1}
//
// Requests are handled one at a time in arrival order.
package bridge

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/haasonsaas/introspect/internal/journal"
	"github.com/haasonsaas/introspect/internal/observability"
)

// MaxLineBytes bounds a single request line.
const MaxLineBytes = 4 << 20

// Message types.
const (
	TypeReady    = "ready"
	TypeResponse = "response"
	TypeError    = "error"
)

// Request is one inbound frame.
type Request struct {
	Command   string          `json:"command"`
	Data      json.RawMessage `json:"data,omitempty"`
	RequestID json.RawMessage `json:"requestId,omitempty"`
}

// Message is one outbound frame.
type Message struct {
	Type      string          `json:"type"`
	Data      any             `json:"data,omitempty"`
	Error     string          `json:"error,omitempty"`
	RequestID json.RawMessage `json:"requestId,omitempty"`
}

type handlerFunc func(ctx context.Context, data json.RawMessage) (any, error)

// Server dispatches bridge commands to the journal service.
type Server struct {
	service  *journal.Service
	logger   *slog.Logger
	metrics  *observability.Metrics
	tracer   *observability.Tracer
	version  string
	now      func() time.Time
	handlers map[string]handlerFunc

	writeMu sync.Mutex
	out     *bufio.Writer
}

// Option customizes a Server.
type Option func(*Server)

// WithLogger sets the logger. Logs must not go to the protocol stream.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics records per-command metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithTracer wraps each command in a span.
func WithTracer(t *observability.Tracer) Option {
	return func(s *Server) { s.tracer = t }
}

// WithVersion sets the version reported by ping.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// New creates a bridge server.
func New(service *journal.Service, opts ...Option) *Server {
	s := &Server{
		service: service,
		logger:  slog.Default().With("component", "bridge"),
		version: "dev",
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.handlers = map[string]handlerFunc{
		"create_entry": s.handleCreateEntry,
		"get_entries":  s.handleGetEntries,
		"get_entry":    s.handleGetEntry,
		"get_stats":    s.handleGetStats,
		"backfill":     s.handleBackfill,
		"ping":         s.handlePing,
	}
	return s
}

// Serve writes the ready message and answers requests from r until r is
// exhausted or ctx is cancelled. Reaching EOF is not an error.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	if err := initSchemas(); err != nil {
		return fmt.Errorf("bridge schemas: %w", err)
	}
	s.out = bufio.NewWriter(w)
	if err := s.send(Message{Type: TypeReady}); err != nil {
		return err
	}
	s.logger.Info("bridge ready")

	lines := make(chan []byte)
	readErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), MaxLineBytes)
		for scanner.Scan() {
			line := append([]byte(nil), scanner.Bytes()...)
			select {
			case lines <- line:
			case <-done:
				return
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					if err != nil {
						return fmt.Errorf("read requests: %w", err)
					}
				default:
				}
				s.logger.Info("input closed; bridge stopping")
				return nil
			}
			if err := s.handleLine(ctx, line); err != nil {
				return err
			}
		}
	}
}

// handleLine answers one request line. Only write failures are returned.
func (s *Server) handleLine(ctx context.Context, line []byte) error {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil
	}

	var payload any
	if err := json.Unmarshal(line, &payload); err != nil {
		s.logger.Warn("json decode error", "error", err)
		s.metrics.RecordError("bridge", "invalid_json")
		return s.send(Message{Type: TypeError, Error: "Invalid JSON: " + err.Error()})
	}

	var req Request
	_ = json.Unmarshal(line, &req)
	requestID := normalizeID(req.RequestID)

	if err := validateRequest(payload); err != nil {
		s.metrics.RecordError("bridge", "invalid_request")
		return s.send(Message{Type: TypeError, Error: "Invalid request: " + err.Error(), RequestID: requestID})
	}

	ctx = observability.AddRequestID(ctx, string(requestID))
	s.logger.DebugContext(ctx, "received command", "command", req.Command)

	handler, ok := s.handlers[req.Command]
	if !ok {
		s.metrics.RecordBridgeRequest("unknown", "error", 0)
		return s.send(Message{Type: TypeError, Error: "Unknown command: " + req.Command, RequestID: requestID})
	}

	data := req.Data
	if len(data) == 0 || string(data) == "null" {
		data = json.RawMessage(`{}`)
	}
	var dataValue any
	if err := json.Unmarshal(data, &dataValue); err != nil {
		return s.send(Message{Type: TypeError, Error: "Invalid JSON: " + err.Error(), RequestID: requestID})
	}
	if err := validateData(req.Command, dataValue); err != nil {
		s.metrics.RecordBridgeRequest(req.Command, "error", 0)
		return s.send(Message{Type: TypeError, Error: fmt.Sprintf("Invalid data for %s: %v", req.Command, err), RequestID: requestID})
	}

	start := s.now()
	ctx, span := s.tracer.TraceBridgeCommand(ctx, req.Command, string(requestID))
	result, err := handler(ctx, data)
	if err != nil {
		s.tracer.RecordError(span, err)
	}
	span.End()

	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.RecordBridgeRequest(req.Command, status, s.now().Sub(start).Seconds())

	if err != nil {
		s.logger.ErrorContext(ctx, "command failed", "command", req.Command, "error", err)
		return s.send(Message{Type: TypeError, Error: errorMessage(err), RequestID: requestID})
	}
	return s.send(Message{Type: TypeResponse, Data: result, RequestID: requestID})
}

func (s *Server) send(msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode %s message: %w", msg.Type, err)
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := s.out.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write %s message: %w", msg.Type, err)
	}
	if err := s.out.Flush(); err != nil {
		return fmt.Errorf("flush %s message: %w", msg.Type, err)
	}
	return nil
}

// normalizeID drops absent and null request ids so they are omitted from
// replies.
func normalizeID(id json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(id)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	return trimmed
}

// entryError ties a store error to the entry id it was raised for.
type entryError struct {
	id  string
	err error
}

func (e *entryError) Error() string { return "entry " + e.id + ": " + e.err.Error() }

func (e *entryError) Unwrap() error { return e.err }

// errorMessage is the text the shell shows for a failed command.
func errorMessage(err error) string {
	var ee *entryError
	if errors.As(err, &ee) && errors.Is(ee.err, journal.ErrNotFound) {
		return "Entry not found: " + ee.id
	}
	return err.Error()
}
