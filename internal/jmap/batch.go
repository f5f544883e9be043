package jmap

import "encoding/json"

// BatchRequest is the top-level JMAP request body.
//
//	{ using: [...], methodCalls: [...], createdIds?: {...} }
type BatchRequest struct {
	Using       []string          `json:"using"`
	MethodCalls []MethodCall      `json:"methodCalls"`
	CreatedIDs  map[string]string `json:"createdIds,omitempty"`
}

// BatchResponse is the top-level JMAP response body.
//
//	{ methodResponses: [...], sessionState?: "...", createdIds?: {...} }
type BatchResponse struct {
	MethodResponses []MethodResponse  `json:"methodResponses"`
	SessionState    string            `json:"sessionState,omitempty"`
	CreatedIDs      map[string]string `json:"createdIds,omitempty"`
}

// ByClientTag indexes responses by their numeric client tag for O(1)
// correlation against the request that produced them.
func (b BatchResponse) ByClientTag() map[string]MethodResponse {
	idx := make(map[string]MethodResponse, len(b.MethodResponses))
	for _, r := range b.MethodResponses {
		idx[r.ClientTag] = r
	}
	return idx
}

// AllServerUnavailable reports whether every response in the batch is a
// serverUnavailable error marked willRetry — the connection-failure case
// described in spec §4.3.
func (b BatchResponse) AllServerUnavailable() bool {
	if len(b.MethodResponses) == 0 {
		return false
	}
	for _, r := range b.MethodResponses {
		if r.ErrorType() != "serverUnavailable" {
			return false
		}
		willRetry, _ := r.Arguments["willRetry"].(bool)
		if !willRetry {
			return false
		}
	}
	return true
}

// Clone returns a deep-enough copy of the request suitable for mutating
// MethodCalls/CreatedIDs without aliasing the original slice/map.
func (b BatchRequest) Clone() BatchRequest {
	clone := BatchRequest{
		Using:       append([]string(nil), b.Using...),
		MethodCalls: append([]MethodCall(nil), b.MethodCalls...),
	}
	if b.CreatedIDs != nil {
		clone.CreatedIDs = make(map[string]string, len(b.CreatedIDs))
		for k, v := range b.CreatedIDs {
			clone.CreatedIDs[k] = v
		}
	}
	return clone
}

// MarshalForWire renders the batch to the exact JSON payload sent over
// HTTP, useful for logging/diagnostics without re-deriving it.
func (b BatchRequest) MarshalForWire() ([]byte, error) {
	return json.Marshal(b)
}
