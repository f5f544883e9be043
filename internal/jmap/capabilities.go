package jmap

import "fmt"

// CoreCapability is the URN under which the server advertises core request
// limits such as maxCallsInRequest.
const CoreCapability = "urn:ietf:params:jmap:core"

// Data group URNs. The Connection owning each data group is decided by
// dataGroup strings exactly like these.
const (
	DataGroupMail       = "urn:ietf:params:jmap:mail"
	DataGroupSubmission = "urn:ietf:params:jmap:submission"
	DataGroupContacts   = "urn:ietf:params:jmap:contacts"
	DataGroupCalendars  = "urn:ietf:params:jmap:calendars"
)

// Capabilities is the server-advertised capability map from the JMAP
// session object, keyed by capability URN.
type Capabilities map[string]map[string]any

// MaxCallsInRequest reads urn:ietf:params:jmap:core.maxCallsInRequest. It
// returns ok=false if the core capability or the field is absent or not a
// number, so callers can fall back to an unbounded batch.
func (c Capabilities) MaxCallsInRequest() (int, bool) {
	core, ok := c[CoreCapability]
	if !ok {
		return 0, false
	}
	raw, ok := core["maxCallsInRequest"]
	if !ok {
		return 0, false
	}
	switch v := raw.(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	default:
		return 0, false
	}
}

// Keys returns the capability URNs, suitable for the "using" field of a
// BatchRequest.
func (c Capabilities) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}

// Validate checks that the core capability is present, which the
// Connection requires to decide pagination.
func (c Capabilities) Validate() error {
	if _, ok := c[CoreCapability]; !ok {
		return fmt.Errorf("session capabilities missing %s", CoreCapability)
	}
	return nil
}
