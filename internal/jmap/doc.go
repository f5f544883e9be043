// Package jmap defines the wire-level JMAP data model shared by the rest of
// joltsync: method calls and responses, batch requests/responses, result
// references, and the session capability shapes the Connection needs to read
// (maxCallsInRequest, data groups).
//
// Nothing in this package talks to the network. It only knows how to encode
// and decode the JSON shapes described in RFC 8620.
package jmap
