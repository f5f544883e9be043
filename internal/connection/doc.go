// Package connection implements the request-batching and response-dispatch
// engine that sits between a record store and the JMAP HTTP transport: it
// accumulates heterogeneous work into a single batched call, paginates
// against the server's maxCallsInRequest, sends the batch, and routes each
// method response to a registered handler before running queued
// callbacks. It is the package every other package in this module exists
// to serve.
package connection
