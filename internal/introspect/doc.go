// Package introspect provides a debug HTTP server exposing a Connection
// aggregate's queue depths, in-flight status, and Prometheus metrics,
// following internal/http/server.go in the teacher (an Echo server with
// OTEL request metrics middleware and a /metrics Prometheus endpoint).
package introspect
