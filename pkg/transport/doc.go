// Package transport defines the handler contract and HTTP middleware for
// the sandboxd API layer.
//
// The transport layer bridges external clients and the orchestrator. It
// deserializes incoming requests into the types defined in pkg/api,
// dispatches them to a Lifecycle implementation, and serializes results
// and errors back to the client as JSON.
//
// # Handler Interface
//
// Lifecycle is the single contract between the transport layer and the
// orchestrator: one method per lifecycle operation, each returning the
// structured errors from pkg/api so the HTTP adapter can map error kinds
// to status codes without inspecting messages.
//
// # Middleware
//
// Middleware wraps http.Handler with cross-cutting concerns. Built-in
// middleware provides panic recovery, request ID assignment
// (X-Request-ID), and structured logging via log/slog. Request metrics
// live in pkg/observability and are applied by the server.
package transport
