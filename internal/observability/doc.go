// Package observability wires logging, metrics and tracing for introspect.
//
// Logging is log/slog behind a handler that masks API keys, bearer tokens
// and database credentials, and that attaches the bridge request id and the
// journal entry id carried in the context. Logs go to stderr by default
// because stdout carries the bridge protocol.
//
// Metrics are Prometheus collectors under the introspect_ prefix, served on
// an optional listener. Tracing uses OpenTelemetry with an OTLP gRPC
// exporter; with no endpoint configured spans go to the global provider.
package observability
