// Package transport implements the HTTP round-trip for a batched JMAP
// request: marshal a jmap.BatchRequest, POST it with the required headers,
// and unmarshal a jmap.BatchResponse — or classify the failure for the
// caller. The Connection treats this as a collaborator; this package
// supplies the one reference implementation.
package transport
