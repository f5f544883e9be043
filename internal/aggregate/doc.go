// Package aggregate fans out to one connection.Connection per data group
// and reports their combined in-flight status (spec §5: "the aggregate
// source reports any Connection with in-flight set/copy or any active
// upload as dirty"). As an ambient enrichment beyond the distilled spec,
// it optionally publishes dirty/idle transitions over NATS
// (grounded on the teacher's pkg/mcp.OperationRegistry event-publishing
// pattern) so a separate process can observe combined status without
// polling.
package aggregate
